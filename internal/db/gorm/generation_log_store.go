package gorm

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dailyinspo/inspo/pkg/models"
)

// GenerationLogStore records generation attempts and answers health queries
// over them.
type GenerationLogStore struct {
	db *Store
}

// NewGenerationLogStore creates a new generation log store.
func NewGenerationLogStore(db *Store) *GenerationLogStore {
	return &GenerationLogStore{db: db}
}

// LogAttempt appends one attempt record. Failed attempts carry an error
// message and no idea ID; successful ones carry the produced idea's ID.
func (s *GenerationLogStore) LogAttempt(ctx context.Context, entry *models.GenerationLogEntry) error {
	row := GenerationLogEntry{
		Timestamp:            entry.Timestamp,
		TimestampEpoch:       entry.TimestampEpoch,
		Success:              entry.Success,
		ErrorMessage:         nullString(entry.ErrorMessage),
		ExecutionTimeSeconds: nullFloat64(entry.ExecutionTimeSeconds),
		IdeaID:               nullInt64Ptr(entry.IdeaID),
	}
	if err := s.db.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to log generation attempt: %w", err)
	}
	entry.ID = row.ID
	entry.Timestamp = row.Timestamp
	entry.TimestampEpoch = row.TimestampEpoch
	return nil
}

// LastSuccess returns the timestamp of the most recent successful
// generation, or nil when none has succeeded yet.
func (s *GenerationLogStore) LastSuccess(ctx context.Context) (*string, error) {
	var row GenerationLogEntry
	err := s.db.DB.WithContext(ctx).
		Where("success = ?", true).
		Order("timestamp_epoch DESC").
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query last generation: %w", err)
	}
	return &row.Timestamp, nil
}

// SuccessRate returns the fraction of attempts in the trailing window that
// succeeded. With no attempts in the window it returns 0: a system that
// never ran is not considered healthy.
func (s *GenerationLogStore) SuccessRate(ctx context.Context, window time.Duration) (float64, error) {
	since := time.Now().Add(-window).UnixMilli()

	type tally struct {
		Total     int64
		Succeeded int64
	}
	var t tally
	err := s.db.DB.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS total,
		        COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0) AS succeeded
		 FROM generation_log WHERE timestamp_epoch >= ?`, since).Scan(&t).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute success rate: %w", err)
	}
	if t.Total == 0 {
		return 0, nil
	}
	return float64(t.Succeeded) / float64(t.Total), nil
}

// CleanupOlderThan deletes attempt records older than the retention window.
// Returns the number of rows removed.
func (s *GenerationLogStore) CleanupOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UnixMilli()
	res := s.db.DB.WithContext(ctx).
		Where("timestamp_epoch < ?", cutoff).
		Delete(&GenerationLogEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clean up generation log: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Recent returns the newest limit attempt records, newest first.
func (s *GenerationLogStore) Recent(ctx context.Context, limit int) ([]models.GenerationLogEntry, error) {
	var rows []GenerationLogEntry
	err := s.db.DB.WithContext(ctx).
		Order("timestamp_epoch DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list generation log: %w", err)
	}

	entries := make([]models.GenerationLogEntry, 0, len(rows))
	for _, r := range rows {
		e := models.GenerationLogEntry{
			ID:                   r.ID,
			Timestamp:            r.Timestamp,
			TimestampEpoch:       r.TimestampEpoch,
			Success:              r.Success,
			ErrorMessage:         stringOrEmpty(r.ErrorMessage),
			ExecutionTimeSeconds: r.ExecutionTimeSeconds.Float64,
		}
		if r.IdeaID.Valid {
			id := r.IdeaID.Int64
			e.IdeaID = &id
		}
		entries = append(entries, e)
	}
	return entries, nil
}
