// Package jobs contains implementations of scheduled jobs for ClassLens.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/classlens/classlens/internal/application/command"
	"github.com/classlens/classlens/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RUN PIPELINE JOB
// ══════════════════════════════════════════════════════════════════════════════

// RunPipelineJob runs the full classification batch on a schedule.
// Activity data accumulates continuously but classifications only move
// when the batch runs, so this job is what keeps the dashboard current.
type RunPipelineJob struct {
	handler  *command.RunPipelineHandler
	courseID string
	logger   *slog.Logger

	// State (for metrics)
	lastRun atomic.Value // *RunStats
}

// RunStats contains statistics from the latest scheduled run.
type RunStats struct {
	RunID       string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Students    int
	Classified  int
	Skipped     int
	Failed      bool
	Error       string
}

// NewRunPipelineJob creates a new RunPipelineJob.
func NewRunPipelineJob(handler *command.RunPipelineHandler, courseID string, logger *slog.Logger) *RunPipelineJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunPipelineJob{
		handler:  handler,
		courseID: courseID,
		logger:   logger,
	}
}

// Name returns the unique name of the job.
func (j *RunPipelineJob) Name() string {
	return "run_classification_pipeline"
}

// Description returns a human-readable description of the job.
func (j *RunPipelineJob) Description() string {
	return "Recomputes student vectors, cluster classifications and statistics"
}

// Run executes the classification batch. A run already in progress is
// not an error for the scheduler: the overlap is logged and this tick
// is skipped.
func (j *RunPipelineJob) Run(ctx context.Context) error {
	stats := &RunStats{StartedAt: time.Now()}

	result, err := j.handler.Handle(ctx, command.RunPipelineCommand{
		CourseID: j.courseID,
	})
	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)

	if err != nil {
		if errors.Is(err, shared.ErrPipelineRunning) {
			j.logger.Warn("classification batch still running, skipping scheduled run",
				"course_id", j.courseID)
			return nil
		}
		stats.Failed = true
		stats.Error = err.Error()
		j.lastRun.Store(stats)
		return fmt.Errorf("scheduled classification batch: %w", err)
	}

	stats.RunID = result.RunID
	stats.Students = result.Students
	stats.Classified = result.Classified
	stats.Skipped = result.Skipped
	j.lastRun.Store(stats)

	return nil
}

// LastRun returns statistics from the most recent run, or nil if the
// job has not run yet.
func (j *RunPipelineJob) LastRun() *RunStats {
	v := j.lastRun.Load()
	if v == nil {
		return nil
	}
	return v.(*RunStats)
}
