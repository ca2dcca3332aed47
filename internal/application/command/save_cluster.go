package command

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/classlens/classlens/internal/domain/cluster"
	"github.com/classlens/classlens/internal/domain/dimension"
	"github.com/classlens/classlens/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SAVE CLUSTER COMMAND
// Creates or updates a cluster definition. Cluster definitions are the
// read-only input of the classification pipeline; authoring them is the
// administrator-facing write path.
// ══════════════════════════════════════════════════════════════════════════════

// RangeInput is one dimension constraint of the cluster being saved.
// Bounds arrive already parsed as numbers; the HTTP layer rejects
// non-numeric input before it reaches this command.
type RangeInput struct {
	Key  dimension.Key
	Low  *float64
	High *float64
}

// SaveClusterCommand contains the data needed to save a cluster.
type SaveClusterCommand struct {
	// ID is the cluster to update. Empty means create a new cluster.
	ID string

	// Name of the cluster. Required.
	Name string

	// Description of the cluster. Optional.
	Description string

	// Ranges is the dimension constraint list. Entries with neither
	// bound are dropped before persistence.
	Ranges []RangeInput

	// CorrelationID for tracing across services.
	CorrelationID string
}

// Validate validates the command.
func (c SaveClusterCommand) Validate() error {
	if c.Name == "" {
		return shared.ErrClusterNameEmpty
	}
	for _, r := range c.Ranges {
		if r.Low != nil && r.High != nil && *r.Low > *r.High {
			return shared.ErrClusterRangeBounds
		}
	}
	return nil
}

// SaveClusterResult contains the result of saving a cluster.
type SaveClusterResult struct {
	// ClusterID is the ID of the saved cluster.
	ClusterID string

	// Created reports whether a new cluster was created.
	Created bool

	// Dimensions is the number of ranges kept after normalization.
	Dimensions int

	// Events contains domain events generated by the save.
	Events []shared.Event
}

// SaveClusterHandler handles the SaveClusterCommand.
type SaveClusterHandler struct {
	clusterRepo    cluster.Repository
	eventPublisher shared.EventPublisher
}

// NewSaveClusterHandler creates a new SaveClusterHandler.
func NewSaveClusterHandler(clusterRepo cluster.Repository, eventPublisher shared.EventPublisher) *SaveClusterHandler {
	if eventPublisher == nil {
		eventPublisher = shared.NoopPublisher{}
	}
	return &SaveClusterHandler{
		clusterRepo:    clusterRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the save cluster command.
func (h *SaveClusterHandler) Handle(ctx context.Context, cmd SaveClusterCommand) (*SaveClusterResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("save_cluster: validation failed: %w", err)
	}

	id := cmd.ID
	created := id == ""
	if created {
		id = uuid.NewString()
	}

	ranges := make([]cluster.Range, 0, len(cmd.Ranges))
	for _, r := range cmd.Ranges {
		ranges = append(ranges, cluster.Range{Key: r.Key, Low: r.Low, High: r.High})
	}

	c, err := cluster.New(cluster.ID(id), cmd.Name, cmd.Description, ranges)
	if err != nil {
		return nil, fmt.Errorf("save_cluster: invalid cluster: %w", err)
	}

	if err := h.clusterRepo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save_cluster: failed to save: %w", err)
	}

	event := shared.NewClusterSavedEvent(id, c.Name, len(c.Ranges))
	event.BaseEvent = event.WithCorrelationID(cmd.CorrelationID)
	_ = h.eventPublisher.Publish(event)

	return &SaveClusterResult{
		ClusterID:  id,
		Created:    created,
		Dimensions: len(c.Ranges),
		Events:     []shared.Event{event},
	}, nil
}
