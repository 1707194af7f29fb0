package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dailyinspo/inspo/internal/chat"
	"github.com/dailyinspo/inspo/pkg/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The browser UI is served from a different origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsSender adapts a websocket connection to the chat listener interface.
// Gorilla connections allow one concurrent writer, so sends serialize on a
// mutex.
type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSender) Send(frame chat.OutboundFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(frame)
}

func (s *wsSender) Close() error {
	return s.conn.Close()
}

// handleChatWS upgrades the connection and relays chat frames for one
// session until the client disconnects.
func (s *Service) handleChatWS(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	session, err := s.chatStore.GetSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to open chat connection")
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "Chat session not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Int64("session_id", sessionID).Msg("WebSocket upgrade failed")
		return
	}

	sender := &wsSender{conn: conn}
	listenerID := s.registry.Add(sessionID, sender)
	log.Info().Int64("session_id", sessionID).Str("listener", listenerID).Msg("Chat listener connected")

	defer func() {
		s.registry.Remove(sessionID, listenerID)
		conn.Close()
		log.Info().Int64("session_id", sessionID).Str("listener", listenerID).Msg("Chat listener disconnected")
	}()

	for {
		var frame chat.InboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Int64("session_id", sessionID).Msg("Chat connection error")
			}
			return
		}

		if frame.Type != "message" {
			continue
		}

		role := models.MessageRole(frame.Role)
		if !role.Valid() || frame.Content == "" {
			log.Warn().Int64("session_id", sessionID).Str("role", frame.Role).Msg("Dropping malformed chat frame")
			continue
		}

		msg := &models.ChatMessage{
			SessionID: sessionID,
			Role:      role,
			Content:   frame.Content,
		}
		// Use the service context: the message outlives this read if the
		// client drops right after sending.
		if err := s.chatStore.InsertMessage(s.ctx, msg); err != nil {
			log.Error().Err(err).Int64("session_id", sessionID).Msg("Failed to store chat frame")
			continue
		}
		s.registry.Broadcast(msg)

		if role == models.RoleUser {
			if _, err := s.responder.Respond(s.ctx, sessionID, frame.Content); err != nil {
				log.Error().Err(err).Int64("session_id", sessionID).Msg("Failed to respond over chat connection")
			}
		}
	}
}
