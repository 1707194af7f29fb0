package analysis

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	dbgorm "github.com/dailyinspo/inspo/internal/db/gorm"
)

// Job tracks one background analysis run.
type Job struct {
	ProjectID int64

	done chan struct{}
	err  error
}

// Done is closed when the job finishes.
func (j *Job) Done() <-chan struct{} { return j.done }

// Err returns the job's failure, if any. Only valid after Done is closed.
func (j *Job) Err() error { return j.err }

// Runner executes project analyses in the background, one at a time per
// project. Starting an analysis while one is already running for the same
// project returns the in-flight job instead of stacking a second run.
type Runner struct {
	projects *dbgorm.ProjectStore

	mu      sync.Mutex
	running map[int64]*Job
	wg      sync.WaitGroup
}

// NewRunner creates an analysis runner backed by the project store.
func NewRunner(projects *dbgorm.ProjectStore) *Runner {
	return &Runner{
		projects: projects,
		running:  make(map[int64]*Job),
	}
}

// Start launches an analysis of folderPath for the project and returns a
// Job handle for observing completion.
func (r *Runner) Start(ctx context.Context, projectID int64, folderPath string) *Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job, ok := r.running[projectID]; ok {
		return job
	}

	job := &Job{ProjectID: projectID, done: make(chan struct{})}
	r.running[projectID] = job
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		job.err = r.analyze(ctx, projectID, folderPath)

		r.mu.Lock()
		delete(r.running, projectID)
		r.mu.Unlock()
		close(job.done)
	}()

	return job
}

// Wait blocks until all in-flight analyses complete. Used on shutdown and
// in tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) analyze(ctx context.Context, projectID int64, folderPath string) error {
	report, err := AnalyzeDirectory(folderPath)
	if err != nil {
		log.Error().Err(err).Int64("project_id", projectID).Msg("Project analysis failed")
		return err
	}

	log.Info().
		Int64("project_id", projectID).
		Int("files", report.FileCount).
		Int("lines", report.LineCount).
		Strs("technologies", report.Technologies).
		Msg("Project directory analyzed")

	snapshot := Snapshot(projectID)
	if err := r.projects.InsertAnalysis(ctx, snapshot); err != nil {
		log.Error().Err(err).Int64("project_id", projectID).Msg("Failed to store analysis")
		return err
	}
	return nil
}
