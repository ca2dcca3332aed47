package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/classlens/classlens/internal/domain/course"
	"github.com/classlens/classlens/internal/domain/dimension"
	"github.com/classlens/classlens/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST DIMENSIONS QUERY
// Returns every dimension the current course structure produces, in
// catalog order. The cluster editor uses this list to offer range
// fields, so the order here is the order the editor renders.
// ══════════════════════════════════════════════════════════════════════════════

// ListDimensionsQuery contains the course identifier.
type ListDimensionsQuery struct {
	CourseID string
}

// Validate checks the query parameters.
func (q ListDimensionsQuery) Validate() error {
	if q.CourseID == "" {
		return shared.ErrEmptyCourseID
	}
	return nil
}

// DimensionDTO is one selectable dimension for the cluster editor.
type DimensionDTO struct {
	Key  string `json:"key"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// ListDimensionsHandler handles the ListDimensionsQuery.
type ListDimensionsHandler struct {
	provider course.Provider
	logger   *slog.Logger
}

// NewListDimensionsHandler creates a new ListDimensionsHandler.
func NewListDimensionsHandler(provider course.Provider, logger *slog.Logger) *ListDimensionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListDimensionsHandler{provider: provider, logger: logger}
}

// Handle executes the query against the live course structure.
func (h *ListDimensionsHandler) Handle(ctx context.Context, q ListDimensionsQuery) ([]DimensionDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	structure, err := h.provider.GetStructure(ctx, q.CourseID)
	if err != nil {
		return nil, fmt.Errorf("list_dimensions: failed to load course structure: %w", err)
	}

	catalog := dimension.BuildCatalog(structure)
	dims := catalog.Dimensions()

	dtos := make([]DimensionDTO, 0, len(dims))
	for _, d := range dims {
		dtos = append(dtos, DimensionDTO{
			Key:  d.Key.String(),
			Type: string(d.Key.Type),
			Name: d.Name,
		})
	}
	return dtos, nil
}
