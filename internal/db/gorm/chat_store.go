package gorm

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dailyinspo/inspo/pkg/models"
)

// ChatStore handles chat sessions and their message history.
type ChatStore struct {
	db *Store
}

// NewChatStore creates a new chat store.
func NewChatStore(db *Store) *ChatStore {
	return &ChatStore{db: db}
}

// CreateSession opens a new session under a project and returns it.
func (s *ChatStore) CreateSession(ctx context.Context, projectID int64, title string) (*models.ChatSession, error) {
	row := ChatSession{ProjectID: projectID, Title: title}
	if err := s.db.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}
	return rowToSession(&row), nil
}

// GetSession loads one session with derived fields. Returns (nil, nil) when
// it does not exist.
func (s *ChatStore) GetSession(ctx context.Context, id int64) (*models.ChatSession, error) {
	var row ChatSession
	if err := s.db.DB.WithContext(ctx).First(&row, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get chat session %d: %w", id, err)
	}

	sess := rowToSession(&row)
	if err := s.enrichSessions(ctx, []*models.ChatSession{sess}); err != nil {
		return nil, err
	}
	return sess, nil
}

// ListSessions returns a project's sessions, most recently updated first.
// Each carries its message count and a preview of its last message.
func (s *ChatStore) ListSessions(ctx context.Context, projectID int64) ([]*models.ChatSession, error) {
	var rows []ChatSession
	err := s.db.DB.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("updated_at DESC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chat sessions: %w", err)
	}

	sessions := make([]*models.ChatSession, 0, len(rows))
	for i := range rows {
		sessions = append(sessions, rowToSession(&rows[i]))
	}
	if err := s.enrichSessions(ctx, sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteSession removes a session and, through the cascade, its messages.
// Returns whether a row existed.
func (s *ChatStore) DeleteSession(ctx context.Context, id int64) (bool, error) {
	res := s.db.DB.WithContext(ctx).Delete(&ChatSession{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete chat session %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// InsertMessage appends a message to a session and bumps the session's
// updated_at so it sorts to the top of listings.
func (s *ChatStore) InsertMessage(ctx context.Context, msg *models.ChatMessage) error {
	row := ChatMessage{
		SessionID: msg.SessionID,
		Role:      string(msg.Role),
		Content:   msg.Content,
	}
	err := s.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert chat message: %w", err)
		}
		return tx.Model(&ChatSession{}).
			Where("id = ?", msg.SessionID).
			Update("updated_at", time.Now().Format(time.RFC3339)).Error
	})
	if err != nil {
		return err
	}

	msg.ID = row.ID
	msg.Timestamp = row.Timestamp
	msg.TimestampEpoch = row.TimestampEpoch
	return nil
}

// ListMessages returns a session's messages in chronological order,
// paginated by limit/offset.
func (s *ChatStore) ListMessages(ctx context.Context, sessionID int64, limit, offset int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []ChatMessage
	err := s.db.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp_epoch ASC, id ASC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}

	out := make([]models.ChatMessage, 0, len(rows))
	for i := range rows {
		out = append(out, *rowToMessage(&rows[i]))
	}
	return out, nil
}

// enrichSessions fills the derived message_count and last_message fields.
// The preview is the latest message's content cut to the preview limit.
func (s *ChatStore) enrichSessions(ctx context.Context, sessions []*models.ChatSession) error {
	if len(sessions) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(sessions))
	byID := make(map[int64]*models.ChatSession, len(sessions))
	for _, sess := range sessions {
		ids = append(ids, sess.ID)
		byID[sess.ID] = sess
	}

	type statRow struct {
		SessionID int64
		N         int
	}
	var counts []statRow
	err := s.db.DB.WithContext(ctx).Raw(
		`SELECT session_id, COUNT(*) AS n FROM chat_messages
		 WHERE session_id IN ? GROUP BY session_id`, ids).Scan(&counts).Error
	if err != nil {
		return fmt.Errorf("failed to count chat messages: %w", err)
	}
	for _, c := range counts {
		if sess, ok := byID[c.SessionID]; ok {
			sess.MessageCount = c.N
		}
	}

	type lastRow struct {
		SessionID int64
		Content   string
	}
	var lasts []lastRow
	err = s.db.DB.WithContext(ctx).Raw(
		`SELECT m.session_id, m.content FROM chat_messages m
		 JOIN (SELECT session_id, MAX(id) AS max_id FROM chat_messages
		       WHERE session_id IN ? GROUP BY session_id) latest
		 ON m.id = latest.max_id`, ids).Scan(&lasts).Error
	if err != nil {
		return fmt.Errorf("failed to load last messages: %w", err)
	}
	for _, l := range lasts {
		if sess, ok := byID[l.SessionID]; ok {
			preview := models.TruncateText(l.Content, models.LastMessagePreviewLimit)
			sess.LastMessage = &preview
		}
	}
	return nil
}

func rowToSession(row *ChatSession) *models.ChatSession {
	return &models.ChatSession{
		ID:        row.ID,
		ProjectID: row.ProjectID,
		Title:     row.Title,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func rowToMessage(row *ChatMessage) *models.ChatMessage {
	return &models.ChatMessage{
		ID:             row.ID,
		SessionID:      row.SessionID,
		Role:           models.MessageRole(row.Role),
		Content:        row.Content,
		Timestamp:      row.Timestamp,
		TimestampEpoch: row.TimestampEpoch,
	}
}
