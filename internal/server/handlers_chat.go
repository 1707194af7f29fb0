package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dailyinspo/inspo/pkg/models"
)

const defaultSessionLimit = 20

// sessionRequest is the JSON body for creating a chat session.
type sessionRequest struct {
	ProjectID      int64  `json:"project_id"`
	Title          string `json:"title"`
	InitialMessage string `json:"initial_message"`
}

func (s *Service) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session payload")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "Session title is required")
		return
	}

	project, err := s.projectStore.GetByID(r.Context(), req.ProjectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create chat session")
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}

	session, err := s.chatStore.CreateSession(r.Context(), req.ProjectID, req.Title)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create chat session")
		writeError(w, http.StatusInternalServerError, "Failed to create chat session")
		return
	}

	if req.InitialMessage != "" {
		msg := &models.ChatMessage{
			SessionID: session.ID,
			Role:      models.RoleUser,
			Content:   req.InitialMessage,
		}
		if err := s.chatStore.InsertMessage(r.Context(), msg); err != nil {
			log.Error().Err(err).Int64("session_id", session.ID).Msg("Failed to store initial message")
			writeError(w, http.StatusInternalServerError, "Failed to create chat session")
			return
		}
		s.registry.Broadcast(msg)

		if _, err := s.responder.Respond(r.Context(), session.ID, req.InitialMessage); err != nil {
			log.Error().Err(err).Int64("session_id", session.ID).Msg("Failed to respond to initial message")
		}
	}

	created, err := s.chatStore.GetSession(r.Context(), session.ID)
	if err != nil || created == nil {
		writeError(w, http.StatusInternalServerError, "Failed to create chat session")
		return
	}

	writeJSON(w, http.StatusOK, created)
}

// handleListSessions lists the chat sessions of a project; the path
// identifier is the project ID.
func (s *Service) handleListSessions(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	sessions, err := s.chatStore.ListSessions(r.Context(), projectID)
	if err != nil {
		log.Error().Err(err).Int64("project_id", projectID).Msg("Failed to list chat sessions")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve chat sessions")
		return
	}

	limit := queryInt(r, "limit", defaultSessionLimit, 1, 100)
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}

	writeJSON(w, http.StatusOK, sessions)
}

func (s *Service) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	session, err := s.chatStore.GetSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve messages")
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "Chat session not found")
		return
	}

	limit := queryInt(r, "limit", 100, 1, 500)
	offset := queryInt(r, "offset", 0, 0, 1<<30)

	messages, err := s.chatStore.ListMessages(r.Context(), sessionID, limit, offset)
	if err != nil {
		log.Error().Err(err).Int64("session_id", sessionID).Msg("Failed to list messages")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve messages")
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// messageRequest is the JSON body for posting a chat message.
type messageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Service) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid message payload")
		return
	}

	role := models.MessageRole(req.Role)
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid message role")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "Message content is required")
		return
	}

	session, err := s.chatStore.GetSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "Chat session not found")
		return
	}

	msg := &models.ChatMessage{
		SessionID: sessionID,
		Role:      role,
		Content:   req.Content,
	}
	if err := s.chatStore.InsertMessage(r.Context(), msg); err != nil {
		log.Error().Err(err).Int64("session_id", sessionID).Msg("Failed to store message")
		writeError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}
	s.registry.Broadcast(msg)

	// User messages get an assistant reply before the request returns, so
	// a poll right after sees the full exchange.
	if role == models.RoleUser {
		if _, err := s.responder.Respond(r.Context(), sessionID, req.Content); err != nil {
			log.Error().Err(err).Int64("session_id", sessionID).Msg("Failed to respond to message")
		}
	}

	writeJSON(w, http.StatusOK, msg)
}

func (s *Service) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	s.registry.CloseSession(sessionID)

	deleted, err := s.chatStore.DeleteSession(r.Context(), sessionID)
	if err != nil {
		log.Error().Err(err).Int64("session_id", sessionID).Msg("Failed to delete chat session")
		writeError(w, http.StatusInternalServerError, "Failed to delete chat session")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Chat session not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Chat session deleted successfully"})
}

func (s *Service) handleExportSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	session, err := s.chatStore.GetSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export chat session")
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "Chat session not found")
		return
	}

	project, err := s.projectStore.GetByID(r.Context(), session.ProjectID)
	if err != nil || project == nil {
		writeError(w, http.StatusInternalServerError, "Failed to export chat session")
		return
	}

	// Exports always carry the full transcript.
	messages, err := s.chatStore.ListMessages(r.Context(), sessionID, 1<<30, 0)
	if err != nil {
		log.Error().Err(err).Int64("session_id", sessionID).Msg("Failed to load messages for export")
		writeError(w, http.StatusInternalServerError, "Failed to export chat session")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=chat_session_%d.txt", sessionID))
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "Chat Session: %s\n", session.Title)
	fmt.Fprintf(w, "Project: %s\n", project.Name)
	fmt.Fprintf(w, "Created: %s\n", session.CreatedAt)
	fmt.Fprintf(w, "Messages: %d\n", len(messages))
	fmt.Fprintf(w, "\n%s\n\n", strings.Repeat("=", 50))

	for _, msg := range messages {
		display := "Assistant"
		if msg.Role == models.RoleUser {
			display = "You"
		}
		fmt.Fprintf(w, "[%s] %s:\n%s\n\n", msg.Timestamp, display, msg.Content)
	}
}
