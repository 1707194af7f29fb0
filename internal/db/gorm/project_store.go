package gorm

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dailyinspo/inspo/pkg/models"
)

// ProjectStore handles project persistence, idea connections and analysis
// snapshots.
type ProjectStore struct {
	db    *Store
	ideas *IdeaStore
}

// NewProjectStore creates a new project store. The idea store is used to
// enrich connected ideas with their tags.
func NewProjectStore(db *Store, ideas *IdeaStore) *ProjectStore {
	return &ProjectStore{db: db, ideas: ideas}
}

// Insert stores a new project and returns its ID. Status defaults to
// planning when empty.
func (s *ProjectStore) Insert(ctx context.Context, p *models.Project) (int64, error) {
	if p.Status == "" {
		p.Status = models.ProjectStatusPlanning
	}
	row := Project{
		Name:          p.Name,
		Description:   p.Description,
		FolderPath:    p.FolderPath,
		Status:        string(p.Status),
		RepositoryURL: nullString(p.RepositoryURL),
	}
	if err := s.db.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("failed to insert project: %w", err)
	}
	p.ID = row.ID
	p.CreatedAt = row.CreatedAt
	p.UpdatedAt = row.UpdatedAt
	return row.ID, nil
}

// GetByID loads one project with derived fields. Returns (nil, nil) when it
// does not exist.
func (s *ProjectStore) GetByID(ctx context.Context, id int64) (*models.Project, error) {
	var row Project
	if err := s.db.DB.WithContext(ctx).First(&row, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get project %d: %w", id, err)
	}

	p := rowToProject(&row)
	if err := s.enrich(ctx, []*models.Project{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns projects ordered by last update, newest first, optionally
// restricted to one status. Each project carries its idea count and the
// date of its latest analysis.
func (s *ProjectStore) List(ctx context.Context, status models.ProjectStatus) ([]*models.Project, error) {
	q := s.db.DB.WithContext(ctx).Order("updated_at DESC, id ASC")
	if status != "" {
		q = q.Where("status = ?", string(status))
	}

	var rows []Project
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	projects := make([]*models.Project, 0, len(rows))
	for i := range rows {
		projects = append(projects, rowToProject(&rows[i]))
	}
	if err := s.enrich(ctx, projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// Update applies partial changes to a project. Zero-valued fields in p are
// left untouched; updated_at is always refreshed.
func (s *ProjectStore) Update(ctx context.Context, id int64, p *models.Project) (*models.Project, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	updates := map[string]interface{}{
		"updated_at": time.Now().Format(time.RFC3339),
	}
	if p.Name != "" {
		updates["name"] = p.Name
	}
	if p.Description != "" {
		updates["description"] = p.Description
	}
	if p.FolderPath != "" {
		updates["folder_path"] = p.FolderPath
	}
	if p.Status != "" {
		updates["status"] = string(p.Status)
	}
	if p.RepositoryURL != "" {
		updates["repository_url"] = p.RepositoryURL
	}

	res := s.db.DB.WithContext(ctx).Model(&Project{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update project %d: %w", id, res.Error)
	}
	return s.GetByID(ctx, id)
}

// Delete removes a project. Connections, sessions, messages and analyses go
// with it through cascading deletes. Returns whether a row existed.
func (s *ProjectStore) Delete(ctx context.Context, id int64) (bool, error) {
	res := s.db.DB.WithContext(ctx).Delete(&Project{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete project %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ErrAlreadyConnected reports an idea-project connection that already
// exists.
var ErrAlreadyConnected = fmt.Errorf("idea already connected to project")

// ConnectIdea links an idea to a project with optional relevance notes.
// Connecting the same pair twice returns ErrAlreadyConnected.
func (s *ProjectStore) ConnectIdea(ctx context.Context, projectID, ideaID int64, notes string) error {
	var count int64
	err := s.db.DB.WithContext(ctx).Model(&IdeaProject{}).
		Where("idea_id = ? AND project_id = ?", ideaID, projectID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check idea connection: %w", err)
	}
	if count > 0 {
		return ErrAlreadyConnected
	}

	link := IdeaProject{
		IdeaID:         ideaID,
		ProjectID:      projectID,
		RelevanceNotes: nullString(notes),
	}
	if err := s.db.DB.WithContext(ctx).Create(&link).Error; err != nil {
		return fmt.Errorf("failed to connect idea %d to project %d: %w", ideaID, projectID, err)
	}
	return nil
}

// DisconnectIdea removes an idea-project connection. Returns whether the
// connection existed.
func (s *ProjectStore) DisconnectIdea(ctx context.Context, projectID, ideaID int64) (bool, error) {
	res := s.db.DB.WithContext(ctx).
		Where("idea_id = ? AND project_id = ?", ideaID, projectID).
		Delete(&IdeaProject{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to disconnect idea %d from project %d: %w", ideaID, projectID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ConnectedIdeas returns the ideas linked to a project, with their tags and
// connection metadata, newest connection first.
func (s *ProjectStore) ConnectedIdeas(ctx context.Context, projectID int64) ([]models.ConnectedIdea, error) {
	type connRow struct {
		IdeaID         int64
		ConnectionDate string
		RelevanceNotes string
	}
	var conns []connRow
	err := s.db.DB.WithContext(ctx).Raw(
		`SELECT idea_id, connection_date, COALESCE(relevance_notes, '') AS relevance_notes
		 FROM idea_projects WHERE project_id = ?
		 ORDER BY connection_date DESC, idea_id ASC`, projectID).Scan(&conns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list connected ideas: %w", err)
	}

	out := make([]models.ConnectedIdea, 0, len(conns))
	for _, c := range conns {
		idea, err := s.ideas.GetByID(ctx, c.IdeaID)
		if err != nil {
			return nil, err
		}
		if idea == nil {
			continue
		}
		out = append(out, models.ConnectedIdea{
			Idea:           *idea,
			ConnectionDate: c.ConnectionDate,
			RelevanceNotes: c.RelevanceNotes,
		})
	}
	return out, nil
}

// InsertAnalysis stores one analysis snapshot for a project and returns it
// with its assigned ID and date.
func (s *ProjectStore) InsertAnalysis(ctx context.Context, a *models.ProjectAnalysis) error {
	row := ProjectAnalysis{
		ProjectID:           a.ProjectID,
		IdeaAlignmentScore:  a.IdeaAlignmentScore,
		ImplementedFeatures: models.JSONStringArray(a.ImplementedFeatures),
		MissingFeatures:     models.JSONStringArray(a.MissingFeatures),
		DivergentFeatures:   models.JSONStringArray(a.DivergentFeatures),
		TechnicalDebtScore:  a.TechnicalDebtScore,
		CompletionEstimate:  a.CompletionEstimate,
		Recommendations:     models.JSONStringArray(a.Recommendations),
	}
	if err := s.db.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert analysis for project %d: %w", a.ProjectID, err)
	}
	a.ID = row.ID
	a.AnalyzedAt = row.AnalyzedAt
	return nil
}

// ListAnalyses returns a project's analysis history, newest first.
func (s *ProjectStore) ListAnalyses(ctx context.Context, projectID int64) ([]models.ProjectAnalysis, error) {
	var rows []ProjectAnalysis
	err := s.db.DB.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("analysis_date_epoch DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses for project %d: %w", projectID, err)
	}

	out := make([]models.ProjectAnalysis, 0, len(rows))
	for i := range rows {
		out = append(out, rowToAnalysis(&rows[i]))
	}
	return out, nil
}

// enrich fills the derived idea_count and last_analysis fields.
func (s *ProjectStore) enrich(ctx context.Context, projects []*models.Project) error {
	if len(projects) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(projects))
	byID := make(map[int64]*models.Project, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
		byID[p.ID] = p
	}

	type countRow struct {
		ProjectID int64
		N         int
	}
	var counts []countRow
	err := s.db.DB.WithContext(ctx).Raw(
		`SELECT project_id, COUNT(*) AS n FROM idea_projects
		 WHERE project_id IN ? GROUP BY project_id`, ids).Scan(&counts).Error
	if err != nil {
		return fmt.Errorf("failed to count project ideas: %w", err)
	}
	for _, c := range counts {
		if p, ok := byID[c.ProjectID]; ok {
			p.IdeaCount = c.N
		}
	}

	type lastRow struct {
		ProjectID int64
		Date      string
	}
	var lasts []lastRow
	err = s.db.DB.WithContext(ctx).Raw(
		`SELECT project_id, MAX(analysis_date) AS date FROM project_analyses
		 WHERE project_id IN ? GROUP BY project_id`, ids).Scan(&lasts).Error
	if err != nil {
		return fmt.Errorf("failed to find latest analyses: %w", err)
	}
	for _, l := range lasts {
		if p, ok := byID[l.ProjectID]; ok && l.Date != "" {
			date := l.Date
			p.LastAnalysis = &date
		}
	}
	return nil
}

func rowToProject(row *Project) *models.Project {
	return &models.Project{
		ID:            row.ID,
		Name:          row.Name,
		Description:   row.Description,
		FolderPath:    row.FolderPath,
		Status:        models.ProjectStatus(row.Status),
		RepositoryURL: stringOrEmpty(row.RepositoryURL),
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func rowToAnalysis(row *ProjectAnalysis) models.ProjectAnalysis {
	return models.ProjectAnalysis{
		ID:                  row.ID,
		ProjectID:           row.ProjectID,
		IdeaAlignmentScore:  row.IdeaAlignmentScore,
		ImplementedFeatures: []string(row.ImplementedFeatures),
		MissingFeatures:     []string(row.MissingFeatures),
		DivergentFeatures:   []string(row.DivergentFeatures),
		TechnicalDebtScore:  row.TechnicalDebtScore,
		CompletionEstimate:  row.CompletionEstimate,
		Recommendations:     []string(row.Recommendations),
		AnalyzedAt:          row.AnalyzedAt,
	}
}
