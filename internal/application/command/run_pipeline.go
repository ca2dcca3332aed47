// Package command contains write operations (CQRS - Commands).
// Commands are responsible for changing the state of the system.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/classlens/classlens/internal/domain/activity"
	"github.com/classlens/classlens/internal/domain/classification"
	"github.com/classlens/classlens/internal/domain/cluster"
	"github.com/classlens/classlens/internal/domain/course"
	"github.com/classlens/classlens/internal/domain/dimension"
	"github.com/classlens/classlens/internal/domain/shared"
	"github.com/classlens/classlens/internal/domain/stats"
	"github.com/classlens/classlens/internal/domain/vector"
)

// ══════════════════════════════════════════════════════════════════════════════
// RUN PIPELINE COMMAND
// Executes one full classification batch: builds the dimension catalog,
// extracts a vector and a classification per student, then aggregates
// cluster statistics. A run fully replaces the previous generation of
// vectors, classifications and statistics.
// ══════════════════════════════════════════════════════════════════════════════

// RunPipelineCommand contains the data needed to run a classification batch.
type RunPipelineCommand struct {
	// CourseID identifies the course to classify.
	CourseID string

	// CorrelationID for tracing across services.
	CorrelationID string
}

// Validate validates the command.
func (c RunPipelineCommand) Validate() error {
	if c.CourseID == "" {
		return shared.ErrEmptyCourseID
	}
	return nil
}

// RunPipelineResult contains the result of a classification batch.
type RunPipelineResult struct {
	// RunID is the unique ID of this batch run.
	RunID string

	// Dimensions is the catalog size the run used.
	Dimensions int

	// Clusters is the number of cluster definitions in the snapshot.
	Clusters int

	// Students is the number of students with activity data.
	Students int

	// Classified is the number of students that received a vector and a
	// classification.
	Classified int

	// Skipped is the number of students excluded from the run because
	// their activity data could not be read or was empty.
	Skipped int

	// StartedAt and Duration describe the run timing.
	StartedAt time.Time
	Duration  time.Duration

	// Statistics is the aggregated output of the run.
	Statistics *stats.Statistics

	// Events contains domain events generated during the run.
	Events []shared.Event
}

// RunPipelineConfig contains configuration for the handler.
type RunPipelineConfig struct {
	// MaxDistance is the classification threshold. Negative values fall
	// back to classification.DefaultMaxDistance.
	MaxDistance int

	// Concurrency is the number of students processed in parallel during
	// the extract and classify phase.
	Concurrency int

	// EmitIntersections controls the pairwise intersection statistic.
	// Disabling it skips the O(k^2) pair enumeration per student.
	EmitIntersections bool

	// Timeout is the maximum duration for the entire batch (0 = none).
	Timeout time.Duration
}

// DefaultRunPipelineConfig returns sensible defaults.
func DefaultRunPipelineConfig() RunPipelineConfig {
	return RunPipelineConfig{
		MaxDistance:       classification.DefaultMaxDistance,
		Concurrency:       8,
		EmitIntersections: true,
		Timeout:           15 * time.Minute,
	}
}

// RunPipelineHandler handles the RunPipelineCommand.
type RunPipelineHandler struct {
	courseProvider     course.Provider
	activitySource     activity.Source
	clusterRepo        cluster.Repository
	vectorRepo         vector.Repository
	classificationRepo classification.Repository
	statsRepo          stats.Repository
	eventPublisher     shared.EventPublisher
	logger             *slog.Logger

	config  RunPipelineConfig
	running atomic.Bool
}

// NewRunPipelineHandler creates a new RunPipelineHandler.
func NewRunPipelineHandler(
	courseProvider course.Provider,
	activitySource activity.Source,
	clusterRepo cluster.Repository,
	vectorRepo vector.Repository,
	classificationRepo classification.Repository,
	statsRepo stats.Repository,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
	config RunPipelineConfig,
) *RunPipelineHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if eventPublisher == nil {
		eventPublisher = shared.NoopPublisher{}
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultRunPipelineConfig().Concurrency
	}
	if config.MaxDistance < 0 {
		config.MaxDistance = classification.DefaultMaxDistance
	}

	return &RunPipelineHandler{
		courseProvider:     courseProvider,
		activitySource:     activitySource,
		clusterRepo:        clusterRepo,
		vectorRepo:         vectorRepo,
		classificationRepo: classificationRepo,
		statsRepo:          statsRepo,
		eventPublisher:     eventPublisher,
		logger:             logger,
		config:             config,
	}
}

// Handle executes the classification batch.
//
// The shared inputs are snapshotted first: the dimension catalog is built
// from the current course structure and the cluster definitions are read
// once, so every student classifies against the same snapshot. The
// extract and classify phase then fans out across students with a
// bounded worker pool; a student whose activity cannot be read is
// skipped and excluded from the aggregate statistics, never aborting the
// batch. Observations stream into a single aggregator goroutine and the
// finalized statistics replace the previous generation.
func (h *RunPipelineHandler) Handle(ctx context.Context, cmd RunPipelineCommand) (*RunPipelineResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("run_pipeline: validation failed: %w", err)
	}
	if !h.running.CompareAndSwap(false, true) {
		return nil, shared.ErrPipelineRunning
	}
	defer h.running.Store(false)

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	runID := uuid.NewString()
	startedAt := time.Now()
	result := &RunPipelineResult{
		RunID:     runID,
		StartedAt: startedAt,
	}

	// Snapshot the shared read-only inputs.
	structure, err := h.courseProvider.GetStructure(ctx, cmd.CourseID)
	if err != nil {
		h.publishFailure(runID, cmd.CorrelationID, result, err)
		return nil, fmt.Errorf("run_pipeline: failed to load course structure: %w", err)
	}
	catalog := dimension.BuildCatalog(structure)
	if catalog.Len() == 0 {
		err := shared.ErrNoDimensionsDefined
		h.publishFailure(runID, cmd.CorrelationID, result, err)
		return nil, fmt.Errorf("run_pipeline: %w", err)
	}
	result.Dimensions = catalog.Len()

	clusters, err := h.clusterRepo.GetAll(ctx)
	if err != nil {
		h.publishFailure(runID, cmd.CorrelationID, result, err)
		return nil, fmt.Errorf("run_pipeline: failed to load clusters: %w", err)
	}
	result.Clusters = len(clusters)

	students, err := h.activitySource.ListStudents(ctx, cmd.CourseID)
	if err != nil {
		h.publishFailure(runID, cmd.CorrelationID, result, err)
		return nil, fmt.Errorf("run_pipeline: failed to list students: %w", err)
	}
	result.Students = len(students)

	h.logger.Info("starting classification pipeline",
		"run_id", runID,
		"course_id", cmd.CourseID,
		"students", len(students),
		"clusters", len(clusters),
		"dimensions", catalog.Len(),
	)
	started := shared.NewPipelineStartedEvent(runID, len(students), len(clusters))
	started.BaseEvent = started.WithCorrelationID(cmd.CorrelationID)
	h.publish(started, result)

	extractor := vector.NewExtractor(catalog)
	classifier := classification.NewClassifier(clusters, h.config.MaxDistance, h.config.EmitIntersections)
	aggregator := stats.NewAggregator(classifier.MaxDistance())

	// Observations drain through a single reducer goroutine; within a
	// group the accumulation is commutative, so worker order is fine.
	outcomes := make(chan classification.Outcome, h.config.Concurrency)
	reducerDone := make(chan struct{})
	go func() {
		defer close(reducerDone)
		for out := range outcomes {
			aggregator.AddOutcome(out)
		}
	}()

	var (
		wg         sync.WaitGroup
		sem        = make(chan struct{}, h.config.Concurrency)
		classified atomic.Int64
		skipped    atomic.Int64
	)
	for _, studentID := range students {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(studentID activity.StudentID) {
			defer wg.Done()
			defer func() { <-sem }()

			if h.processStudent(ctx, cmd.CourseID, studentID, extractor, classifier, outcomes) {
				classified.Add(1)
			} else {
				skipped.Add(1)
			}
		}(studentID)
	}
	wg.Wait()
	close(outcomes)
	<-reducerDone

	if err := ctx.Err(); err != nil {
		h.publishFailure(runID, cmd.CorrelationID, result, err)
		return nil, fmt.Errorf("run_pipeline: batch aborted: %w", err)
	}

	statistics := aggregator.Build()
	if err := h.statsRepo.Save(ctx, statistics); err != nil {
		h.publishFailure(runID, cmd.CorrelationID, result, err)
		return nil, fmt.Errorf("run_pipeline: failed to save statistics: %w", err)
	}

	result.Classified = int(classified.Load())
	result.Skipped = int(skipped.Load())
	result.Duration = time.Since(startedAt)
	result.Statistics = statistics

	refreshed := shared.NewStatisticsRefreshedEvent(runID, len(statistics.Counts), len(statistics.Intersections))
	refreshed.BaseEvent = refreshed.WithCorrelationID(cmd.CorrelationID)
	h.publish(refreshed, result)

	completed := shared.NewPipelineCompletedEvent(runID, result.Students, result.Classified, result.Skipped, result.Duration)
	completed.BaseEvent = completed.WithCorrelationID(cmd.CorrelationID)
	h.publish(completed, result)

	h.logger.Info("classification pipeline completed",
		"run_id", runID,
		"duration", result.Duration.String(),
		"students", result.Students,
		"classified", result.Classified,
		"skipped", result.Skipped,
	)
	return result, nil
}

// processStudent runs the extract and classify phase for one student.
// Returns false when the student was skipped. Failures are per-student
// isolated: a failed student contributes no observations to the run's
// statistics and the batch continues. The vector save can succeed before
// a later save fails, so a skipped student may keep a fresh vector next
// to a stale classification until the next run.
func (h *RunPipelineHandler) processStudent(
	ctx context.Context,
	courseID string,
	studentID activity.StudentID,
	extractor *vector.Extractor,
	classifier *classification.Classifier,
	outcomes chan<- classification.Outcome,
) bool {
	log, err := h.activitySource.GetLog(ctx, courseID, studentID)
	if err != nil {
		if !errors.Is(err, activity.ErrStudentNotFound) {
			h.logger.Error("failed to read student activity, skipping student",
				"student_id", studentID.String(), "error", err)
		}
		return false
	}
	if log == nil || log.IsEmpty() {
		// No activity at all: the student has nothing to classify.
		return false
	}

	v := extractor.Extract(log)
	if err := h.vectorRepo.Save(ctx, v); err != nil {
		h.logger.Error("failed to save student vector, skipping student",
			"student_id", studentID.String(), "error", err)
		return false
	}

	out := classifier.Classify(v)
	if err := h.classificationRepo.Save(ctx, out.Result); err != nil {
		h.logger.Error("failed to save classification, skipping student",
			"student_id", studentID.String(), "error", err)
		return false
	}

	select {
	case outcomes <- out:
		return true
	case <-ctx.Done():
		return false
	}
}

func (h *RunPipelineHandler) publish(event shared.Event, result *RunPipelineResult) {
	result.Events = append(result.Events, event)
	if err := h.eventPublisher.Publish(event); err != nil {
		h.logger.Error("failed to publish event", "type", string(event.EventType()), "error", err)
	}
}

func (h *RunPipelineHandler) publishFailure(runID, correlationID string, result *RunPipelineResult, cause error) {
	e := shared.NewPipelineFailedEvent(runID, cause.Error())
	e.BaseEvent = e.WithCorrelationID(correlationID)
	h.publish(e, result)
}
