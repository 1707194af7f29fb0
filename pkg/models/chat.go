// Package models contains domain models for inspo.
package models

// MessageRole identifies who authored a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Valid reports whether r is a known message role.
func (r MessageRole) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ChatSession belongs to exactly one project and owns an ordered sequence
// of messages. MessageCount and LastMessage are computed at read time.
type ChatSession struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`

	MessageCount int     `json:"message_count"`
	LastMessage  *string `json:"last_message"`
}

// LastMessagePreviewLimit caps the last-message preview on session listings.
const LastMessagePreviewLimit = 100

// ChatMessage is one append-only message within a session.
type ChatMessage struct {
	ID             int64       `json:"id"`
	SessionID      int64       `json:"session_id"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	Timestamp      string      `json:"timestamp"`
	TimestampEpoch int64       `json:"-"`
}
