package command

import (
	"context"
	"fmt"

	"github.com/classlens/classlens/internal/domain/cluster"
	"github.com/classlens/classlens/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE CLUSTER COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// DeleteClusterCommand contains the data needed to delete a cluster.
type DeleteClusterCommand struct {
	// ID of the cluster to delete.
	ID string

	// CorrelationID for tracing across services.
	CorrelationID string
}

// Validate validates the command.
func (c DeleteClusterCommand) Validate() error {
	if c.ID == "" {
		return shared.ErrInvalidID
	}
	return nil
}

// DeleteClusterHandler handles the DeleteClusterCommand.
type DeleteClusterHandler struct {
	clusterRepo    cluster.Repository
	eventPublisher shared.EventPublisher
}

// NewDeleteClusterHandler creates a new DeleteClusterHandler.
func NewDeleteClusterHandler(clusterRepo cluster.Repository, eventPublisher shared.EventPublisher) *DeleteClusterHandler {
	if eventPublisher == nil {
		eventPublisher = shared.NoopPublisher{}
	}
	return &DeleteClusterHandler{
		clusterRepo:    clusterRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the delete cluster command.
func (h *DeleteClusterHandler) Handle(ctx context.Context, cmd DeleteClusterCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("delete_cluster: validation failed: %w", err)
	}

	if err := h.clusterRepo.Delete(ctx, cluster.ID(cmd.ID)); err != nil {
		return fmt.Errorf("delete_cluster: failed to delete: %w", err)
	}

	event := shared.NewClusterDeletedEvent(cmd.ID)
	event.BaseEvent = event.WithCorrelationID(cmd.CorrelationID)
	_ = h.eventPublisher.Publish(event)

	return nil
}
