package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailyinspo/inspo/pkg/models"
)

// seedProject creates a project over the API with a real folder.
func seedProject(t *testing.T, svc *Service, name string, ideaIDs ...int64) models.Project {
	t.Helper()

	rec := doJSON(t, svc, http.MethodPost, "/api/projects/", map[string]interface{}{
		"name":        name,
		"description": "Test project " + name,
		"folder_path": filepath.Join(t.TempDir(), "proj"),
		"idea_ids":    ideaIDs,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var project models.Project
	decodeBody(t, rec, &project)
	return project
}

func TestHandleCreateProject(t *testing.T) {
	svc, _, cleanup := testService(t)
	defer cleanup()

	ideaID := seedIdea(t, svc, "Connected idea")

	folder := filepath.Join(t.TempDir(), "newproj")
	rec := doJSON(t, svc, http.MethodPost, "/api/projects/", map[string]interface{}{
		"name":        "My project",
		"description": "A test project",
		"folder_path": folder,
		"idea_ids":    []int64{ideaID, 9999},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var project models.Project
	decodeBody(t, rec, &project)
	assert.Equal(t, "My project", project.Name)
	assert.Equal(t, models.ProjectStatusPlanning, project.Status)
	assert.Equal(t, folder, project.FolderPath)
	// The unknown idea ID is skipped, the known one connected.
	assert.Equal(t, 1, project.IdeaCount)

	// The folder was created on disk.
	info, err := os.Stat(folder)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestHandleCreateProject_FolderValidation(t *testing.T) {
	svc, _, cleanup := testService(t)
	defer cleanup()

	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "afile")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	tests := []struct {
		name   string
		folder string
	}{
		{"path exists but is a file", file},
		{"parent does not exist", filepath.Join(tmpDir, "missing", "child")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, svc, http.MethodPost, "/api/projects/", map[string]interface{}{
				"name":        "Bad folder",
				"folder_path": tt.folder,
			})
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleCreateProject_MissingFields(t *testing.T) {
	svc, _, cleanup := testService(t)
	defer cleanup()

	rec := doJSON(t, svc, http.MethodPost, "/api/projects/", map[string]interface{}{
		"name": "No folder",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, svc, http.MethodPost, "/api/projects/", map[string]interface{}{
		"name":        "Bad status",
		"folder_path": t.TempDir(),
		"status":      "launching",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCreateProject_RunsInitialAnalysis(t *testing.T) {
	svc, _, cleanup := testService(t)
	defer cleanup()

	project := seedProject(t, svc, "Analyzed")
	svc.runner.Wait()

	rec := doJSON(t, svc, http.MethodGet, fmt.Sprintf("/api/projects/%d/analysis", project.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var analyses []models.ProjectAnalysis
	decodeBody(t, rec, &analyses)
	require.Len(t, analyses, 1)
	assert.Equal(t, project.ID, analyses[0].ProjectID)
}

func TestHandleListProjects(t *testing.T) {
	svc, _, cleanup := testService(t)
	defer cleanup()

	first := seedProject(t, svc, "First")
	seedProject(t, svc, "Second")

	rec := doJSON(t, svc, http.MethodGet, "/api/projects/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var projects []models.Project
	decodeBody(t, rec, &projects)
	assert.Len(t, projects, 2)

	// Move one project along and filter by status.
	rec = doJSON(t, svc, http.MethodPut, fmt.Sprintf("/api/projects/%d", first.ID), map[string]interface{}{
		"status": "development",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, svc, http.MethodGet, "/api/projects/?status=development", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &projects)
	require.Len(t, projects, 1)
	assert.Equal(t, "First", projects[0].Name)

	rec = doJSON(t, svc, http.MethodGet, "/api/projects/?status=launching", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetProject(t *testing.T) {
	svc, _, cleanup := testService(t)
	defer cleanup()

	project := seedProject(t, svc, "Lookup")

	rec := doJSON(t, svc, http.MethodGet, fmt.Sprintf("/api/projects/%d", project.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Project
	decodeBody(t, rec, &got)
	assert.Equal(t, "Lookup", got.Name)

	rec = doJSON(t, svc, http.MethodGet, "/api/projects/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleUpdateProject(t *testing.T) {
	svc, _, cleanup := testService(t)
	defer cleanup()

	project := seedProject(t, svc, "Before")
	ideaID := seedIdea(t, svc, "Swapped in")

	rec := doJSON(t, svc, http.MethodPut, fmt.Sprintf("/api/projects/%d", project.ID), map[string]interface{}{
		"name":     "After",
		"status":   "testing",
		"idea_ids": []int64{ideaID},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Project
	decodeBody(t, rec, &updated)
	assert.Equal(t, "After", updated.Name)
	assert.Equal(t, models.ProjectStatusTesting, updated.Status)
	assert.Equal(t, 1, updated.IdeaCount)
	// Fields left out of the payload survive the update.
	assert.Equal(t, project.FolderPath, updated.FolderPath)

	rec = doJSON(t, svc, http.MethodPut, "/api/projects/999", map[string]interface{}{"name": "Ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleUpdateProject_RejectsMissingFolder(t *testing.T) {
	svc, _, cleanup := testService(t)
	defer cleanup()

	project := seedProject(t, svc, "Fixed folder")

	rec := doJSON(t, svc, http.MethodPut, fmt.Sprintf("/api/projects/%d", project.ID), map[string]interface{}{
		"folder_path": filepath.Join(t.TempDir(), "does-not-exist"),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDeleteProject(t *testing.T) {
	svc, _, cleanup := testService(t)
	defer cleanup()

	project := seedProject(t, svc, "Doomed")

	rec := doJSON(t, svc, http.MethodDelete, fmt.Sprintf("/api/projects/%d", project.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Contains(t, body["message"], "Doomed")

	rec = doJSON(t, svc, http.MethodGet, fmt.Sprintf("/api/projects/%d", project.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, svc, http.MethodDelete, fmt.Sprintf("/api/projects/%d", project.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleProjectIdeas(t *testing.T) {
	svc, _, cleanup := testService(t)
	defer cleanup()

	ideaID := seedIdea(t, svc, "Connected idea",
		models.Tag{Category: "industry", Value: "fintech"})
	project := seedProject(t, svc, "With ideas", ideaID)

	rec := doJSON(t, svc, http.MethodGet, fmt.Sprintf("/api/projects/%d/ideas", project.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var ideas []models.ConnectedIdea
	decodeBody(t, rec, &ideas)
	require.Len(t, ideas, 1)
	assert.Equal(t, "Connected idea", ideas[0].Title)
	assert.Len(t, ideas[0].Tags, 1)

	rec = doJSON(t, svc, http.MethodGet, "/api/projects/999/ideas", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleConnectIdea(t *testing.T) {
	svc, _, cleanup := testService(t)
	defer cleanup()

	project := seedProject(t, svc, "Connector")
	ideaID := seedIdea(t, svc, "Candidate")

	path := fmt.Sprintf("/api/projects/%d/connect-idea/%d", project.ID, ideaID)

	rec := doJSON(t, svc, http.MethodPost, path, map[string]string{
		"relevance_notes": "Strong overlap",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Connecting twice is rejected.
	rec = doJSON(t, svc, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, svc, http.MethodPost,
		fmt.Sprintf("/api/projects/999/connect-idea/%d", ideaID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, svc, http.MethodPost,
		fmt.Sprintf("/api/projects/%d/connect-idea/999", project.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDisconnectIdea(t *testing.T) {
	svc, _, cleanup := testService(t)
	defer cleanup()

	ideaID := seedIdea(t, svc, "Linked")
	project := seedProject(t, svc, "Unlinker", ideaID)

	path := fmt.Sprintf("/api/projects/%d/connect-idea/%d", project.ID, ideaID)

	rec := doJSON(t, svc, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, svc, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleAnalyzeProject(t *testing.T) {
	svc, _, cleanup := testService(t)
	defer cleanup()

	project := seedProject(t, svc, "Analyze me")
	svc.runner.Wait() // let the creation-time analysis finish first

	rec := doJSON(t, svc, http.MethodPost, fmt.Sprintf("/api/projects/%d/analyze", project.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decodeBody(t, rec, &body)
	assert.Equal(t, "Project analysis started", body["message"])

	svc.runner.Wait()

	rec = doJSON(t, svc, http.MethodGet, fmt.Sprintf("/api/projects/%d/analysis", project.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var analyses []models.ProjectAnalysis
	decodeBody(t, rec, &analyses)
	assert.Len(t, analyses, 2)

	rec = doJSON(t, svc, http.MethodPost, "/api/projects/999/analyze", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleProjectAnalyses_Limit(t *testing.T) {
	svc, _, cleanup := testService(t)
	defer cleanup()

	project := seedProject(t, svc, "Busy")
	svc.runner.Wait()

	for i := 0; i < 3; i++ {
		rec := doJSON(t, svc, http.MethodPost, fmt.Sprintf("/api/projects/%d/analyze", project.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		svc.runner.Wait()
		time.Sleep(5 * time.Millisecond)
	}

	rec := doJSON(t, svc, http.MethodGet, fmt.Sprintf("/api/projects/%d/analysis?limit=2", project.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var analyses []models.ProjectAnalysis
	decodeBody(t, rec, &analyses)
	assert.Len(t, analyses, 2)
}
