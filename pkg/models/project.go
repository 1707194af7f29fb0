// Package models contains domain models for inspo.
package models

// ProjectStatus represents the lifecycle stage of a project.
type ProjectStatus string

const (
	ProjectStatusPlanning    ProjectStatus = "planning"
	ProjectStatusDevelopment ProjectStatus = "development"
	ProjectStatusTesting     ProjectStatus = "testing"
	ProjectStatusCompleted   ProjectStatus = "completed"
	ProjectStatusPaused      ProjectStatus = "paused"
	ProjectStatusArchived    ProjectStatus = "archived"
)

// Valid reports whether s is one of the known project statuses.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusDevelopment, ProjectStatusTesting,
		ProjectStatusCompleted, ProjectStatusPaused, ProjectStatusArchived:
		return true
	}
	return false
}

// Project is a development effort optionally linked to ideas, tracked by
// folder path and status.
type Project struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	FolderPath    string        `json:"folder_path"`
	Status        ProjectStatus `json:"status"`
	RepositoryURL string        `json:"repository_url,omitempty"`
	CreatedAt     string        `json:"created_at"`
	UpdatedAt     string        `json:"updated_at"`

	// Derived fields, computed at read time.
	IdeaCount    int     `json:"idea_count"`
	LastAnalysis *string `json:"last_analysis"`
}

// ConnectedIdea is an idea joined through its project connection.
type ConnectedIdea struct {
	Idea
	ConnectionDate string `json:"connection_date"`
	RelevanceNotes string `json:"relevance_notes,omitempty"`
}

// ProjectAnalysis is one immutable snapshot of a project analysis run.
// All scores are in [0,1].
type ProjectAnalysis struct {
	ID                  int64    `json:"id"`
	ProjectID           int64    `json:"project_id"`
	IdeaAlignmentScore  float64  `json:"idea_alignment_score"`
	ImplementedFeatures []string `json:"implemented_features"`
	MissingFeatures     []string `json:"missing_features"`
	DivergentFeatures   []string `json:"divergent_features"`
	TechnicalDebtScore  float64  `json:"technical_debt_score"`
	CompletionEstimate  float64  `json:"completion_estimate"`
	Recommendations     []string `json:"recommendations"`
	AnalyzedAt          string   `json:"analysis_date"`
}
