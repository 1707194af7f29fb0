// Package scheduler triggers unattended idea generation on weekday mornings
// and sweeps old generation log entries.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	dbgorm "github.com/dailyinspo/inspo/internal/db/gorm"
	"github.com/dailyinspo/inspo/internal/generation"
)

// Scheduler runs the generation command every weekday at a fixed hour and
// purges log entries older than the retention window after each run.
type Scheduler struct {
	command   *generation.Command
	logs      *dbgorm.GenerationLogStore
	hour      int
	retention time.Duration

	now func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

// New creates a scheduler firing at the given local hour on weekdays.
func New(command *generation.Command, logs *dbgorm.GenerationLogStore, hour int, retention time.Duration) *Scheduler {
	return &Scheduler{
		command:   command,
		logs:      logs,
		hour:      hour,
		retention: retention,
		now:       time.Now,
	}
}

// Next returns the next weekday trigger at the configured hour, strictly
// after from. Saturdays and Sundays are skipped.
func (s *Scheduler) Next(from time.Time) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), s.hour, 0, 0, 0, from.Location())
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// NextScheduled returns the upcoming trigger time for the stats endpoint.
func (s *Scheduler) NextScheduled() time.Time {
	return s.Next(s.now())
}

// Start launches the scheduling loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop terminates the loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	for {
		next := s.Next(s.now())
		wait := next.Sub(s.now())
		log.Info().Time("next_run", next).Dur("wait", wait).Msg("Generation scheduled")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.runOnce(ctx)
	}
}

// runOnce triggers one generation plus the retention sweep. Failures are
// logged and the loop keeps going; the generation command records its own
// attempt history.
func (s *Scheduler) runOnce(ctx context.Context) {
	id, found, err := s.command.Run(ctx)
	switch {
	case err != nil:
		log.Error().Err(err).Msg("Scheduled generation failed")
	case found:
		log.Info().Int64("idea_id", id).Msg("Scheduled generation stored idea")
	default:
		log.Warn().Msg("Scheduled generation completed without an idea marker")
	}

	removed, err := s.logs.CleanupOlderThan(ctx, s.retention)
	if err != nil {
		log.Error().Err(err).Msg("Generation log cleanup failed")
	} else if removed > 0 {
		log.Info().Int64("removed", removed).Msg("Purged old generation log entries")
	}
}
