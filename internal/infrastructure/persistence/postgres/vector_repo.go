package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/classlens/classlens/internal/domain/activity"
	"github.com/classlens/classlens/internal/domain/dimension"
	"github.com/classlens/classlens/internal/domain/shared"
	"github.com/classlens/classlens/internal/domain/vector"
)

// ══════════════════════════════════════════════════════════════════════════════
// VECTOR REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// VectorRepository implements vector.Repository for PostgreSQL.
//
// Dimension keys are stored in their string form; zero values are stored
// explicitly so a saved vector round-trips exactly.
type VectorRepository struct {
	conn *Connection
}

// NewVectorRepository creates a new VectorRepository.
func NewVectorRepository(conn *Connection) *VectorRepository {
	return &VectorRepository{conn: conn}
}

// Save persists a student vector, replacing any prior vector for the
// same student.
func (r *VectorRepository) Save(ctx context.Context, v *vector.Vector) error {
	values := make(map[string]float64, len(v.Values))
	for key, val := range v.Values {
		values[key.String()] = val
	}
	dimensionsJSON, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal vector of student %s: %w", v.StudentID, err)
	}

	query := `
		INSERT INTO student_vectors (student_id, dimensions)
		VALUES ($1, $2)
		ON CONFLICT (student_id) DO UPDATE SET
			dimensions = EXCLUDED.dimensions,
			updated_at = NOW()
	`

	if _, err := r.conn.Exec(ctx, query, v.StudentID.String(), dimensionsJSON); err != nil {
		return fmt.Errorf("failed to save vector of student %s: %w", v.StudentID, err)
	}
	return nil
}

// Get returns the stored vector for a student.
func (r *VectorRepository) Get(ctx context.Context, studentID activity.StudentID) (*vector.Vector, error) {
	query := `
		SELECT dimensions
		FROM student_vectors
		WHERE student_id = $1
	`

	var dimensionsJSON []byte
	if err := r.conn.QueryRow(ctx, query, studentID.String()).Scan(&dimensionsJSON); err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrVectorNotFound
		}
		return nil, fmt.Errorf("failed to get vector of student %s: %w", studentID, err)
	}

	var raw map[string]float64
	if err := json.Unmarshal(dimensionsJSON, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vector of student %s: %w", studentID, err)
	}

	values := make(map[dimension.Key]float64, len(raw))
	for keyStr, val := range raw {
		key, err := dimension.ParseKey(keyStr)
		if err != nil {
			return nil, fmt.Errorf("invalid dimension key %q in vector of student %s: %w", keyStr, studentID, err)
		}
		values[key] = val
	}

	return &vector.Vector{
		StudentID: studentID,
		Values:    values,
	}, nil
}
