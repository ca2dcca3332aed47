package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/classlens/classlens/internal/domain/cluster"
	"github.com/classlens/classlens/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST CLUSTERS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// RangeDTO is one bounded dimension range of a cluster definition.
type RangeDTO struct {
	Key  string   `json:"key"`
	Low  *float64 `json:"low,omitempty"`
	High *float64 `json:"high,omitempty"`
}

// ClusterDTO is the cluster read model.
type ClusterDTO struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Ranges      []RangeDTO `json:"ranges"`
}

// ListClustersHandler lists cluster definitions for the editor.
type ListClustersHandler struct {
	clusterRepo cluster.Repository
	logger      *slog.Logger
}

// NewListClustersHandler creates a new ListClustersHandler.
func NewListClustersHandler(clusterRepo cluster.Repository, logger *slog.Logger) *ListClustersHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListClustersHandler{clusterRepo: clusterRepo, logger: logger}
}

// Handle returns all cluster definitions.
func (h *ListClustersHandler) Handle(ctx context.Context) ([]ClusterDTO, error) {
	clusters, err := h.clusterRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list_clusters: %w", err)
	}
	dtos := make([]ClusterDTO, 0, len(clusters))
	for _, c := range clusters {
		dtos = append(dtos, toClusterDTO(c))
	}
	return dtos, nil
}

// GetCluster returns a single cluster definition by ID.
func (h *ListClustersHandler) GetCluster(ctx context.Context, id string) (*ClusterDTO, error) {
	cid := cluster.ID(id)
	if !cid.IsValid() {
		return nil, shared.ErrInvalidID
	}
	c, err := h.clusterRepo.GetByID(ctx, cid)
	if err != nil {
		if errors.Is(err, shared.ErrClusterNotFound) {
			return nil, shared.ErrClusterNotFound
		}
		return nil, fmt.Errorf("get_cluster: %w", err)
	}
	dto := toClusterDTO(c)
	return &dto, nil
}

func toClusterDTO(c *cluster.Cluster) ClusterDTO {
	dto := ClusterDTO{
		ID:          string(c.ID),
		Name:        c.Name,
		Description: c.Description,
		Ranges:      make([]RangeDTO, 0, len(c.Ranges)),
	}
	for _, r := range c.Ranges {
		dto.Ranges = append(dto.Ranges, RangeDTO{
			Key:  r.Key.String(),
			Low:  r.Low,
			High: r.High,
		})
	}
	return dto
}
