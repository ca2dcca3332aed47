// Package shared contains common domain types, errors and events
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Cluster authoring events
	EventClusterSaved   EventType = "cluster.saved"
	EventClusterDeleted EventType = "cluster.deleted"

	// Pipeline events
	EventPipelineStarted   EventType = "pipeline.started"
	EventPipelineCompleted EventType = "pipeline.completed"
	EventPipelineFailed    EventType = "pipeline.failed"
	EventStudentClassified EventType = "pipeline.student_classified"
	EventStudentSkipped    EventType = "pipeline.student_skipped"

	// Statistics events
	EventStatisticsRefreshed EventType = "stats.refreshed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ClusterSavedEvent is emitted when a cluster definition is created or updated.
type ClusterSavedEvent struct {
	BaseEvent
	Name       string `json:"name"`
	Dimensions int    `json:"dimensions"`
}

// Payload implements Event interface.
func (e ClusterSavedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name":       e.Name,
		"dimensions": e.Dimensions,
	}
}

// NewClusterSavedEvent creates a new ClusterSavedEvent.
func NewClusterSavedEvent(clusterID, name string, dimensions int) ClusterSavedEvent {
	return ClusterSavedEvent{
		BaseEvent:  NewBaseEvent(EventClusterSaved, clusterID),
		Name:       name,
		Dimensions: dimensions,
	}
}

// ClusterDeletedEvent is emitted when a cluster definition is removed.
type ClusterDeletedEvent struct {
	BaseEvent
}

// Payload implements Event interface.
func (e ClusterDeletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{}
}

// NewClusterDeletedEvent creates a new ClusterDeletedEvent.
func NewClusterDeletedEvent(clusterID string) ClusterDeletedEvent {
	return ClusterDeletedEvent{
		BaseEvent: NewBaseEvent(EventClusterDeleted, clusterID),
	}
}

// PipelineStartedEvent is emitted when a classification batch run begins.
type PipelineStartedEvent struct {
	BaseEvent
	Students int `json:"students"`
	Clusters int `json:"clusters"`
}

// Payload implements Event interface.
func (e PipelineStartedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"students": e.Students,
		"clusters": e.Clusters,
	}
}

// NewPipelineStartedEvent creates a new PipelineStartedEvent.
func NewPipelineStartedEvent(runID string, students, clusters int) PipelineStartedEvent {
	return PipelineStartedEvent{
		BaseEvent: NewBaseEvent(EventPipelineStarted, runID),
		Students:  students,
		Clusters:  clusters,
	}
}

// PipelineCompletedEvent is emitted when a classification batch run finishes.
type PipelineCompletedEvent struct {
	BaseEvent
	Students   int           `json:"students"`
	Classified int           `json:"classified"`
	Skipped    int           `json:"skipped"`
	Duration   time.Duration `json:"duration"`
}

// Payload implements Event interface.
func (e PipelineCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"students":   e.Students,
		"classified": e.Classified,
		"skipped":    e.Skipped,
		"duration":   e.Duration.String(),
	}
}

// NewPipelineCompletedEvent creates a new PipelineCompletedEvent.
func NewPipelineCompletedEvent(runID string, students, classified, skipped int, duration time.Duration) PipelineCompletedEvent {
	return PipelineCompletedEvent{
		BaseEvent:  NewBaseEvent(EventPipelineCompleted, runID),
		Students:   students,
		Classified: classified,
		Skipped:    skipped,
		Duration:   duration,
	}
}

// PipelineFailedEvent is emitted when a classification batch run aborts.
type PipelineFailedEvent struct {
	BaseEvent
	Reason string `json:"reason"`
}

// Payload implements Event interface.
func (e PipelineFailedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"reason": e.Reason,
	}
}

// NewPipelineFailedEvent creates a new PipelineFailedEvent.
func NewPipelineFailedEvent(runID, reason string) PipelineFailedEvent {
	return PipelineFailedEvent{
		BaseEvent: NewBaseEvent(EventPipelineFailed, runID),
		Reason:    reason,
	}
}

// StatisticsRefreshedEvent is emitted when aggregate statistics are rebuilt.
type StatisticsRefreshedEvent struct {
	BaseEvent
	ClusterGroups int `json:"cluster_groups"`
	PairGroups    int `json:"pair_groups"`
}

// Payload implements Event interface.
func (e StatisticsRefreshedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"cluster_groups": e.ClusterGroups,
		"pair_groups":    e.PairGroups,
	}
}

// NewStatisticsRefreshedEvent creates a new StatisticsRefreshedEvent.
func NewStatisticsRefreshedEvent(runID string, clusterGroups, pairGroups int) StatisticsRefreshedEvent {
	return StatisticsRefreshedEvent{
		BaseEvent:     NewBaseEvent(EventStatisticsRefreshed, runID),
		ClusterGroups: clusterGroups,
		PairGroups:    pairGroups,
	}
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NoopPublisher is an EventPublisher that discards events.
// Useful for tests and for running commands outside the worker.
type NoopPublisher struct{}

// Publish implements EventPublisher.
func (NoopPublisher) Publish(Event) error { return nil }
