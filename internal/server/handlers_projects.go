package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	dbgorm "github.com/dailyinspo/inspo/internal/db/gorm"
	"github.com/dailyinspo/inspo/pkg/models"
)

const defaultAnalysisLimit = 5

// projectRequest is the JSON body for project create and update.
type projectRequest struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	FolderPath    string  `json:"folder_path"`
	Status        string  `json:"status"`
	RepositoryURL string  `json:"repository_url"`
	IdeaIDs       []int64 `json:"idea_ids"`
}

func (s *Service) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid project payload")
		return
	}
	if req.Name == "" || req.FolderPath == "" {
		writeError(w, http.StatusBadRequest, "Project name and folder path are required")
		return
	}

	status := models.ProjectStatus(req.Status)
	if req.Status == "" {
		status = models.ProjectStatusPlanning
	}
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid project status")
		return
	}

	folder, err := ensureProjectFolder(req.FolderPath)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	project := &models.Project{
		Name:          req.Name,
		Description:   req.Description,
		FolderPath:    folder,
		Status:        status,
		RepositoryURL: req.RepositoryURL,
	}
	id, err := s.projectStore.Insert(r.Context(), project)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create project")
		writeError(w, http.StatusInternalServerError, "Failed to create project")
		return
	}

	s.connectIdeas(r, id, req.IdeaIDs)

	// The first analysis snapshot runs in the background so creation does
	// not wait on the directory walk.
	s.runner.Start(s.ctx, id, folder)

	created, err := s.projectStore.GetByID(r.Context(), id)
	if err != nil || created == nil {
		log.Error().Err(err).Int64("project_id", id).Msg("Failed to read back project")
		writeError(w, http.StatusInternalServerError, "Failed to create project")
		return
	}

	writeJSON(w, http.StatusOK, created)
}

func (s *Service) handleListProjects(w http.ResponseWriter, r *http.Request) {
	status := models.ProjectStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid project status")
		return
	}

	projects, err := s.projectStore.List(r.Context(), status)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list projects")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve projects")
		return
	}

	writeJSON(w, http.StatusOK, projects)
}

func (s *Service) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	project, err := s.projectStore.GetByID(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("project_id", id).Msg("Failed to get project")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve project")
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}

	writeJSON(w, http.StatusOK, project)
}

func (s *Service) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid project payload")
		return
	}

	status := models.ProjectStatus(req.Status)
	if req.Status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid project status")
		return
	}

	// Updates require the folder to already exist.
	if req.FolderPath != "" {
		info, err := os.Stat(req.FolderPath)
		if err != nil || !info.IsDir() {
			writeError(w, http.StatusBadRequest, "Invalid folder path")
			return
		}
		abs, err := filepath.Abs(req.FolderPath)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid folder path")
			return
		}
		req.FolderPath = abs
	}

	updated, err := s.projectStore.Update(r.Context(), id, &models.Project{
		Name:          req.Name,
		Description:   req.Description,
		FolderPath:    req.FolderPath,
		Status:        status,
		RepositoryURL: req.RepositoryURL,
	})
	if err != nil {
		log.Error().Err(err).Int64("project_id", id).Msg("Failed to update project")
		writeError(w, http.StatusInternalServerError, "Failed to update project")
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}

	// Idea connections are replaced wholesale when the request names them.
	if req.IdeaIDs != nil {
		if err := s.replaceConnections(r, id, req.IdeaIDs); err != nil {
			log.Error().Err(err).Int64("project_id", id).Msg("Failed to replace idea connections")
			writeError(w, http.StatusInternalServerError, "Failed to update project")
			return
		}
		updated, err = s.projectStore.GetByID(r.Context(), id)
		if err != nil || updated == nil {
			writeError(w, http.StatusInternalServerError, "Failed to update project")
			return
		}
	}

	writeJSON(w, http.StatusOK, updated)
}

func (s *Service) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	project, err := s.projectStore.GetByID(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("project_id", id).Msg("Failed to get project")
		writeError(w, http.StatusInternalServerError, "Failed to delete project")
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}

	// Chat listeners on this project's sessions go away with the cascade.
	sessions, err := s.chatStore.ListSessions(r.Context(), id)
	if err == nil {
		for _, session := range sessions {
			s.registry.CloseSession(session.ID)
		}
	}

	if _, err := s.projectStore.Delete(r.Context(), id); err != nil {
		log.Error().Err(err).Int64("project_id", id).Msg("Failed to delete project")
		writeError(w, http.StatusInternalServerError, "Failed to delete project")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Project '%s' deleted successfully", project.Name),
	})
}

func (s *Service) handleProjectIdeas(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	project, err := s.projectStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve project ideas")
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}

	ideas, err := s.projectStore.ConnectedIdeas(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("project_id", id).Msg("Failed to list connected ideas")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve project ideas")
		return
	}

	writeJSON(w, http.StatusOK, ideas)
}

func (s *Service) handleConnectIdea(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ideaID, ok := pathID(w, r, "ideaID")
	if !ok {
		return
	}

	var req struct {
		RelevanceNotes string `json:"relevance_notes"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	project, err := s.projectStore.GetByID(r.Context(), projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to connect idea")
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}

	idea, err := s.ideaStore.GetByID(r.Context(), ideaID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to connect idea")
		return
	}
	if idea == nil {
		writeError(w, http.StatusNotFound, "Idea not found")
		return
	}

	if err := s.projectStore.ConnectIdea(r.Context(), projectID, ideaID, req.RelevanceNotes); err != nil {
		if errors.Is(err, dbgorm.ErrAlreadyConnected) {
			writeError(w, http.StatusBadRequest, "Idea already connected to project")
			return
		}
		log.Error().Err(err).Int64("project_id", projectID).Int64("idea_id", ideaID).Msg("Failed to connect idea")
		writeError(w, http.StatusInternalServerError, "Failed to connect idea")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Idea '%s' connected to project '%s'", idea.Title, project.Name),
	})
}

func (s *Service) handleDisconnectIdea(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ideaID, ok := pathID(w, r, "ideaID")
	if !ok {
		return
	}

	removed, err := s.projectStore.DisconnectIdea(r.Context(), projectID, ideaID)
	if err != nil {
		log.Error().Err(err).Int64("project_id", projectID).Int64("idea_id", ideaID).Msg("Failed to disconnect idea")
		writeError(w, http.StatusInternalServerError, "Failed to disconnect idea")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "Idea is not connected to this project")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Idea disconnected from project"})
}

func (s *Service) handleAnalyzeProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	project, err := s.projectStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to start analysis")
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}

	s.runner.Start(s.ctx, id, project.FolderPath)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Project analysis started",
		"project_id": id,
	})
}

func (s *Service) handleProjectAnalyses(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	project, err := s.projectStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve analyses")
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}

	analyses, err := s.projectStore.ListAnalyses(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("project_id", id).Msg("Failed to list analyses")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve analyses")
		return
	}

	limit := queryInt(r, "limit", defaultAnalysisLimit, 1, 50)
	if len(analyses) > limit {
		analyses = analyses[:limit]
	}

	writeJSON(w, http.StatusOK, analyses)
}

// connectIdeas links the listed ideas to a project, skipping identifiers
// that do not resolve to a stored idea.
func (s *Service) connectIdeas(r *http.Request, projectID int64, ideaIDs []int64) {
	for _, ideaID := range ideaIDs {
		idea, err := s.ideaStore.GetByID(r.Context(), ideaID)
		if err != nil || idea == nil {
			log.Warn().Int64("idea_id", ideaID).Msg("Skipping unknown idea during connect")
			continue
		}
		if err := s.projectStore.ConnectIdea(r.Context(), projectID, ideaID, ""); err != nil &&
			!errors.Is(err, dbgorm.ErrAlreadyConnected) {
			log.Error().Err(err).Int64("idea_id", ideaID).Msg("Failed to connect idea")
		}
	}
}

// replaceConnections drops all existing idea connections and recreates the
// requested set.
func (s *Service) replaceConnections(r *http.Request, projectID int64, ideaIDs []int64) error {
	existing, err := s.projectStore.ConnectedIdeas(r.Context(), projectID)
	if err != nil {
		return err
	}
	for _, connected := range existing {
		if _, err := s.projectStore.DisconnectIdea(r.Context(), projectID, connected.ID); err != nil {
			return err
		}
	}
	s.connectIdeas(r, projectID, ideaIDs)
	return nil
}

// ensureProjectFolder validates and normalizes the project path, creating
// the directory when it does not exist yet.
func ensureProjectFolder(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.New("Invalid folder path")
	}

	info, err := os.Stat(abs)
	switch {
	case err == nil:
		if !info.IsDir() {
			return "", errors.New("Path exists but is not a directory")
		}
	case os.IsNotExist(err):
		parent := filepath.Dir(abs)
		if pinfo, perr := os.Stat(parent); perr != nil || !pinfo.IsDir() {
			return "", errors.New("Parent directory does not exist")
		}
		if err := os.Mkdir(abs, 0750); err != nil {
			return "", errors.New("Failed to create project directory")
		}
	default:
		return "", errors.New("Invalid folder path")
	}

	return abs, nil
}
