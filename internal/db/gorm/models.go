// Package gorm provides GORM-based database operations for inspo.
package gorm

import (
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/dailyinspo/inspo/pkg/models"
)

// GORM Models

// Idea is the main idea storage row.
type Idea struct {
	ID               int64  `gorm:"primaryKey;autoIncrement"`
	Title            string `gorm:"type:text;not null;index"`
	Summary          string `gorm:"type:text;not null"`
	Description      string `gorm:"type:text;not null"`
	SupportingLogic  string `gorm:"type:text;not null"`
	GeneratedAt      string `gorm:"not null"`
	GeneratedAtEpoch int64  `gorm:"index:idx_ideas_generated,sort:desc;not null"`
	CreatedAt        string `gorm:"not null"`
	UpdatedAt        string `gorm:"not null"`
}

func (Idea) TableName() string { return "ideas" }

// BeforeCreate hook to ensure timestamps are set.
func (i *Idea) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if i.GeneratedAtEpoch == 0 {
		i.GeneratedAtEpoch = now.UnixMilli()
	}
	if i.GeneratedAt == "" {
		i.GeneratedAt = now.Format(time.RFC3339)
	}
	if i.CreatedAt == "" {
		i.CreatedAt = now.Format(time.RFC3339)
	}
	if i.UpdatedAt == "" {
		i.UpdatedAt = now.Format(time.RFC3339)
	}
	return nil
}

// Tag is a globally deduplicated (category, value) pair, shared across all
// ideas that declare it.
type Tag struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	Category string `gorm:"type:text;not null;index;uniqueIndex:idx_tags_category_value,priority:1"`
	Value    string `gorm:"type:text;not null;index;uniqueIndex:idx_tags_category_value,priority:2"`
}

func (Tag) TableName() string { return "tags" }

// IdeaTag is the many-to-many association between ideas and tags.
type IdeaTag struct {
	IdeaID int64 `gorm:"primaryKey;index:idx_idea_tags_idea"`
	TagID  int64 `gorm:"primaryKey;index:idx_idea_tags_tag"`
}

func (IdeaTag) TableName() string { return "idea_tags" }

// MarketData is the optional one-to-one market analysis for an idea.
// Competitors are serialized as a JSON array.
type MarketData struct {
	ID                   int64                  `gorm:"primaryKey;autoIncrement"`
	IdeaID               int64                  `gorm:"uniqueIndex;not null"`
	MarketSize           sql.NullString         `gorm:"type:text"`
	Competitors          models.JSONStringArray `gorm:"type:text"`
	TechnicalFeasibility sql.NullString         `gorm:"type:text"`
	DevelopmentTimeline  sql.NullString         `gorm:"type:text"`
}

func (MarketData) TableName() string { return "market_data" }

// GenerationLogEntry records one generation attempt. Append-only; the only
// mutations are the retention sweep and the SET NULL on idea deletion.
type GenerationLogEntry struct {
	ID                   int64 `gorm:"primaryKey;autoIncrement"`
	Timestamp            string
	TimestampEpoch       int64 `gorm:"index:idx_generation_log_ts,sort:desc;not null"`
	Success              bool  `gorm:"index;not null"`
	ErrorMessage         sql.NullString
	ExecutionTimeSeconds sql.NullFloat64
	IdeaID               sql.NullInt64
}

func (GenerationLogEntry) TableName() string { return "generation_log" }

// BeforeCreate hook to ensure timestamps are set.
func (e *GenerationLogEntry) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if e.TimestampEpoch == 0 {
		e.TimestampEpoch = now.UnixMilli()
	}
	if e.Timestamp == "" {
		e.Timestamp = now.Format(time.RFC3339)
	}
	return nil
}

// Project tracks a development effort by folder path and status.
type Project struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	Name          string `gorm:"type:text;not null"`
	Description   string `gorm:"type:text"`
	FolderPath    string `gorm:"type:text;not null"`
	Status        string `gorm:"type:text;check:status IN ('planning', 'development', 'testing', 'completed', 'paused', 'archived');default:'planning';index"`
	RepositoryURL sql.NullString
	CreatedAt     string `gorm:"not null"`
	UpdatedAt     string `gorm:"index:idx_projects_updated,sort:desc;not null"`
}

func (Project) TableName() string { return "projects" }

// BeforeCreate hook to ensure timestamps are set.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().Format(time.RFC3339)
	if p.CreatedAt == "" {
		p.CreatedAt = now
	}
	if p.UpdatedAt == "" {
		p.UpdatedAt = now
	}
	return nil
}

// IdeaProject connects an idea to a project with a connection date and an
// optional relevance note.
type IdeaProject struct {
	IdeaID         int64  `gorm:"primaryKey;index:idx_idea_projects_idea"`
	ProjectID      int64  `gorm:"primaryKey;index:idx_idea_projects_project"`
	ConnectionDate string `gorm:"not null"`
	RelevanceNotes sql.NullString
}

func (IdeaProject) TableName() string { return "idea_projects" }

// BeforeCreate hook to ensure the connection date is set.
func (c *IdeaProject) BeforeCreate(tx *gorm.DB) error {
	if c.ConnectionDate == "" {
		c.ConnectionDate = time.Now().Format(time.RFC3339)
	}
	return nil
}

// ChatSession belongs to exactly one project.
type ChatSession struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	ProjectID int64  `gorm:"index;not null"`
	Title     string `gorm:"type:text;not null"`
	CreatedAt string `gorm:"not null"`
	UpdatedAt string `gorm:"index:idx_chat_sessions_updated,sort:desc;not null"`
}

func (ChatSession) TableName() string { return "chat_sessions" }

// BeforeCreate hook to ensure timestamps are set.
func (s *ChatSession) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().Format(time.RFC3339)
	if s.CreatedAt == "" {
		s.CreatedAt = now
	}
	if s.UpdatedAt == "" {
		s.UpdatedAt = now
	}
	return nil
}

// ChatMessage is one append-only message within a session.
type ChatMessage struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	SessionID      int64  `gorm:"index;not null"`
	Role           string `gorm:"type:text;check:role IN ('user', 'assistant');not null"`
	Content        string `gorm:"type:text;not null"`
	Timestamp      string `gorm:"not null"`
	TimestampEpoch int64  `gorm:"index:idx_chat_messages_ts;not null"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

// BeforeCreate hook to ensure timestamps are set.
func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if m.TimestampEpoch == 0 {
		m.TimestampEpoch = now.UnixMilli()
	}
	if m.Timestamp == "" {
		m.Timestamp = now.Format(time.RFC3339)
	}
	return nil
}

// ProjectAnalysis is an immutable snapshot of one analysis run.
type ProjectAnalysis struct {
	ID                  int64                  `gorm:"primaryKey;autoIncrement"`
	ProjectID           int64                  `gorm:"index;not null"`
	IdeaAlignmentScore  float64                `gorm:"type:real"`
	ImplementedFeatures models.JSONStringArray `gorm:"type:text"`
	MissingFeatures     models.JSONStringArray `gorm:"type:text"`
	DivergentFeatures   models.JSONStringArray `gorm:"type:text"`
	TechnicalDebtScore  float64                `gorm:"type:real"`
	CompletionEstimate  float64                `gorm:"type:real"`
	Recommendations     models.JSONStringArray `gorm:"type:text"`
	AnalyzedAt          string                 `gorm:"column:analysis_date;not null"`
	AnalyzedAtEpoch     int64                  `gorm:"column:analysis_date_epoch;index:idx_project_analyses_date,sort:desc;not null"`
}

func (ProjectAnalysis) TableName() string { return "project_analyses" }

// BeforeCreate hook to ensure timestamps are set.
func (a *ProjectAnalysis) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if a.AnalyzedAtEpoch == 0 {
		a.AnalyzedAtEpoch = now.UnixMilli()
	}
	if a.AnalyzedAt == "" {
		a.AnalyzedAt = now.Format(time.RFC3339)
	}
	return nil
}
