package generation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/dailyinspo/inspo/pkg/models"
)

// Persist retry parameters. The generation CLI and the web server share the
// database file, so transient lock contention is expected.
const (
	persistMaxAttempts = 5
	persistBaseDelay   = time.Second
	persistDelayGrowth = 1.5
)

// persistWithRetry inserts an idea, retrying only when the database reports
// busy or locked. Any other failure aborts immediately.
func (p *Pipeline) persistWithRetry(ctx context.Context, idea *models.Idea) (int64, error) {
	delay := persistBaseDelay

	var lastErr error
	for attempt := 1; attempt <= persistMaxAttempts; attempt++ {
		id, err := p.ideas.Insert(ctx, idea)
		if err == nil {
			return id, nil
		}
		lastErr = err

		if !isBusyErr(err) {
			return 0, err
		}

		log.Warn().
			Int("attempt", attempt).
			Int("max_attempts", persistMaxAttempts).
			Dur("delay", delay).
			Msg("Database busy, retrying insert")

		if attempt < persistMaxAttempts {
			p.sleep(delay)
			delay = time.Duration(float64(delay) * persistDelayGrowth)
		}
	}
	return 0, lastErr
}

// isBusyErr classifies lock contention errors worth retrying.
func isBusyErr(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
