package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/classlens/classlens/internal/domain/activity"
	"github.com/classlens/classlens/internal/domain/classification"
	"github.com/classlens/classlens/internal/domain/cluster"
	"github.com/classlens/classlens/internal/domain/shared"
	"github.com/classlens/classlens/internal/domain/vector"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT CLASSIFICATION QUERY
// Returns the per-cluster distances computed for one student in the
// latest run, together with the extracted performance vector.
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentClassificationQuery contains the student identifier.
type GetStudentClassificationQuery struct {
	StudentID string
}

// Validate checks the query parameters.
func (q GetStudentClassificationQuery) Validate() error {
	sid := activity.StudentID(q.StudentID)
	if !sid.IsValid() {
		return activity.ErrInvalidStudentID
	}
	return nil
}

// ClusterDistance is a single cluster's distance for a student.
type ClusterDistance struct {
	ClusterID   string `json:"cluster_id"`
	ClusterName string `json:"cluster_name"`
	Distance    int    `json:"distance"`
}

// StudentClassificationDTO is the classification read model for one student.
type StudentClassificationDTO struct {
	StudentID string             `json:"student_id"`
	Distances []ClusterDistance  `json:"distances"`
	Vector    map[string]float64 `json:"vector,omitempty"`
}

// GetStudentClassificationHandler handles the GetStudentClassificationQuery.
type GetStudentClassificationHandler struct {
	classificationRepo classification.Repository
	clusterRepo        cluster.Repository
	vectorRepo         vector.Repository // nil to omit the vector from the DTO
	logger             *slog.Logger
}

// NewGetStudentClassificationHandler creates a new handler.
func NewGetStudentClassificationHandler(
	classificationRepo classification.Repository,
	clusterRepo cluster.Repository,
	vectorRepo vector.Repository,
	logger *slog.Logger,
) *GetStudentClassificationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetStudentClassificationHandler{
		classificationRepo: classificationRepo,
		clusterRepo:        clusterRepo,
		vectorRepo:         vectorRepo,
		logger:             logger,
	}
}

// Handle executes the query.
//
// Distances are reported in cluster catalog order so repeated calls
// render identically. Clusters deleted since the run are still listed
// by raw ID with an empty name.
func (h *GetStudentClassificationHandler) Handle(ctx context.Context, q GetStudentClassificationQuery) (*StudentClassificationDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	studentID := activity.StudentID(q.StudentID)

	result, err := h.classificationRepo.Get(ctx, studentID)
	if err != nil {
		if errors.Is(err, shared.ErrClassificationNotFound) {
			return nil, shared.ErrClassificationNotFound
		}
		return nil, fmt.Errorf("get_student_classification: %w", err)
	}

	clusters, err := h.clusterRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_student_classification: failed to load clusters: %w", err)
	}
	names := make(map[cluster.ID]string, len(clusters))
	for _, c := range clusters {
		names[c.ID] = c.Name
	}

	dto := &StudentClassificationDTO{
		StudentID: string(studentID),
		Distances: make([]ClusterDistance, 0, len(result.Distances)),
	}
	for _, c := range clusters {
		d, ok := result.Distances[c.ID]
		if !ok {
			continue
		}
		dto.Distances = append(dto.Distances, ClusterDistance{
			ClusterID:   string(c.ID),
			ClusterName: c.Name,
			Distance:    d,
		})
	}
	for id, d := range result.Distances {
		if _, ok := names[id]; ok {
			continue
		}
		dto.Distances = append(dto.Distances, ClusterDistance{
			ClusterID: string(id),
			Distance:  d,
		})
	}

	if h.vectorRepo != nil {
		v, err := h.vectorRepo.Get(ctx, studentID)
		switch {
		case err == nil && v != nil:
			dto.Vector = make(map[string]float64, len(v.Values))
			for key, val := range v.Values {
				dto.Vector[key.String()] = val
			}
		case err != nil && !errors.Is(err, shared.ErrVectorNotFound):
			h.logger.Warn("failed to load student vector",
				"student_id", studentID,
				"error", err)
		}
	}

	return dto, nil
}
