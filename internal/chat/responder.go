package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dailyinspo/inspo/internal/assistant"
	dbgorm "github.com/dailyinspo/inspo/internal/db/gorm"
	"github.com/dailyinspo/inspo/pkg/models"
)

// apologyResponse is stored and broadcast when the assistant cannot answer.
const apologyResponse = "I apologize, but I encountered an error processing your message. Please try again."

// contextDetailLimit caps per-idea description excerpts in the assistant
// context.
const contextDetailLimit = 200

// Responder answers user messages: it builds a project-aware context,
// invokes the assistant with the project folder as working directory,
// stores the reply and broadcasts it to live listeners.
type Responder struct {
	chats    *dbgorm.ChatStore
	projects *dbgorm.ProjectStore
	client   assistant.Client
	registry *Registry
}

// NewResponder creates a responder.
func NewResponder(chats *dbgorm.ChatStore, projects *dbgorm.ProjectStore, client assistant.Client, registry *Registry) *Responder {
	return &Responder{chats: chats, projects: projects, client: client, registry: registry}
}

// Respond generates, stores and broadcasts the assistant reply to a user
// message. Assistant failures degrade to a stored apology message, so the
// conversation always gets a reply.
func (r *Responder) Respond(ctx context.Context, sessionID int64, userMessage string) (*models.ChatMessage, error) {
	content, err := r.generate(ctx, sessionID, userMessage)
	if err != nil {
		log.Error().Err(err).Int64("session_id", sessionID).Msg("Assistant response failed")
		content = apologyResponse
	}

	msg := &models.ChatMessage{
		SessionID: sessionID,
		Role:      models.RoleAssistant,
		Content:   content,
	}
	if err := r.chats.InsertMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store assistant reply: %w", err)
	}

	r.registry.Broadcast(msg)
	return msg, nil
}

func (r *Responder) generate(ctx context.Context, sessionID int64, userMessage string) (string, error) {
	session, err := r.chats.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", fmt.Errorf("chat session %d not found", sessionID)
	}

	project, err := r.projects.GetByID(ctx, session.ProjectID)
	if err != nil {
		return "", err
	}
	if project == nil {
		return "", fmt.Errorf("project %d not found", session.ProjectID)
	}

	ideas, err := r.projects.ConnectedIdeas(ctx, project.ID)
	if err != nil {
		return "", err
	}

	prompt := buildContext(project, ideas, userMessage)
	return r.client.Generate(ctx, prompt, project.FolderPath)
}

// buildContext assembles the assistant prompt from the project, its
// connected ideas and the user's question.
func buildContext(project *models.Project, ideas []models.ConnectedIdea, userMessage string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n", project.Name)
	fmt.Fprintf(&b, "Description: %s\n", project.Description)
	fmt.Fprintf(&b, "Location: %s\n", project.FolderPath)
	b.WriteString("\nConnected Ideas:\n")

	for _, idea := range ideas {
		fmt.Fprintf(&b, "- %s: %s\n", idea.Title, idea.Summary)
		fmt.Fprintf(&b, "  Details: %s\n\n", models.TruncateText(idea.Description, contextDetailLimit))
	}

	b.WriteString("User Question:\n")
	b.WriteString(userMessage)
	b.WriteString("\n\nPlease help with this question in the context of the project and its connected ideas.\n")
	b.WriteString("Focus on practical development guidance and how the current project state aligns with the original ideas.")
	return b.String()
}
