package jobs

import (
	"context"
	"errors"
	"time"

	"packloop-client/internal/config"
	"packloop-client/internal/logger"
	"packloop-client/internal/service"
)

const jobTimeout = 30 * time.Second

// JobRunner coordinates the background jobs that keep the transaction list
// warm between manual refreshes.
type JobRunner struct {
	history service.HistoryService
	config  *config.Config
}

// NewJobRunner creates a job runner bound to the history service.
func NewJobRunner(history service.HistoryService, cfg *config.Config) *JobRunner {
	return &JobRunner{history: history, config: cfg}
}

// Config exposes the configuration to the scheduler.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RefreshHistory reloads the cached transaction history. A refresh already
// running (pull-to-refresh in the foreground) is skipped, not queued.
func (jr *JobRunner) RefreshHistory() {
	jr.runWithRecovery("RefreshHistory", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		_, err := jr.history.Refresh(ctx)
		if errors.Is(err, service.ErrReloadInProgress) {
			logger.Debug("History refresh skipped, reload already running")
			return
		}
		if err != nil {
			logger.Error("History refresh failed", "error", err)
		}
	})
}

// SweepOverdue counts overdue items in the cached history and logs the
// result. Reminders themselves are sent server-side.
func (jr *JobRunner) SweepOverdue() {
	jr.runWithRecovery("SweepOverdue", func() {
		overdue := jr.history.Filter(service.TabOverdue)
		if len(overdue) == 0 {
			logger.Debug("No overdue items")
			return
		}
		logger.Info("Overdue items found", "count", len(overdue))
	})
}
