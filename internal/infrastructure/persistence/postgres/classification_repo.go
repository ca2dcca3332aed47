package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/classlens/classlens/internal/domain/activity"
	"github.com/classlens/classlens/internal/domain/classification"
	"github.com/classlens/classlens/internal/domain/cluster"
	"github.com/classlens/classlens/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLASSIFICATION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ClassificationRepository implements classification.Repository for PostgreSQL.
type ClassificationRepository struct {
	conn *Connection
}

// NewClassificationRepository creates a new ClassificationRepository.
func NewClassificationRepository(conn *Connection) *ClassificationRepository {
	return &ClassificationRepository{conn: conn}
}

// Save persists a student's classification, replacing any prior one.
func (r *ClassificationRepository) Save(ctx context.Context, res *classification.Result) error {
	distances := make(map[string]int, len(res.Distances))
	for id, d := range res.Distances {
		distances[id.String()] = d
	}
	distancesJSON, err := json.Marshal(distances)
	if err != nil {
		return fmt.Errorf("failed to marshal classification of student %s: %w", res.StudentID, err)
	}

	query := `
		INSERT INTO student_classifications (student_id, distances)
		VALUES ($1, $2)
		ON CONFLICT (student_id) DO UPDATE SET
			distances = EXCLUDED.distances,
			updated_at = NOW()
	`

	if _, err := r.conn.Exec(ctx, query, res.StudentID.String(), distancesJSON); err != nil {
		return fmt.Errorf("failed to save classification of student %s: %w", res.StudentID, err)
	}
	return nil
}

// Get returns the stored classification for a student.
func (r *ClassificationRepository) Get(ctx context.Context, studentID activity.StudentID) (*classification.Result, error) {
	query := `
		SELECT distances
		FROM student_classifications
		WHERE student_id = $1
	`

	var distancesJSON []byte
	if err := r.conn.QueryRow(ctx, query, studentID.String()).Scan(&distancesJSON); err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrClassificationNotFound
		}
		return nil, fmt.Errorf("failed to get classification of student %s: %w", studentID, err)
	}

	var raw map[string]int
	if err := json.Unmarshal(distancesJSON, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal classification of student %s: %w", studentID, err)
	}

	distances := make(map[cluster.ID]int, len(raw))
	for id, d := range raw {
		distances[cluster.ID(id)] = d
	}

	return &classification.Result{
		StudentID: studentID,
		Distances: distances,
	}, nil
}
