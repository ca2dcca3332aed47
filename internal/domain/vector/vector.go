// Package vector builds the per-student dimension vector from raw
// activity records. Extraction is deterministic and pure: one student's
// vector depends only on that student's own log and the shared read-only
// dimension catalog, which makes the whole phase safe to run in parallel
// across students.
package vector

import (
	"context"

	"github.com/classlens/classlens/internal/domain/activity"
	"github.com/classlens/classlens/internal/domain/dimension"
)

// Vector is the fixed-length numeric profile of one student: a value for
// every dimension in the catalog. A classification run replaces the full
// vector; individual dimension values are never updated incrementally.
type Vector struct {
	StudentID activity.StudentID
	Values    map[dimension.Key]float64
}

// Value returns the student's value for the dimension, or 0 when the
// dimension is absent from the vector.
func (v *Vector) Value(key dimension.Key) float64 {
	if v == nil {
		return 0
	}
	return v.Values[key]
}

// Len returns the number of dimensions with a value.
func (v *Vector) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Values)
}

// Repository persists student vectors, one generation per batch run.
// Implemented by the infrastructure layer.
type Repository interface {
	// Save persists a student vector, replacing any prior vector for the
	// same student.
	Save(ctx context.Context, v *Vector) error

	// Get returns the stored vector for a student.
	// Returns shared.ErrVectorNotFound when none exists.
	Get(ctx context.Context, studentID activity.StudentID) (*Vector, error)
}
