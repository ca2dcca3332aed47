// Package cluster contains the administrator-defined range clusters that
// students are classified against. A cluster is a named set of dimension
// range constraints; cluster definitions are authored through the HTTP
// interface and are read-only inputs to the classification pipeline.
package cluster

import (
	"context"
	"errors"

	"github.com/classlens/classlens/internal/domain/dimension"
)

// Domain errors for cluster package.
var (
	ErrEmptyName    = errors.New("cluster: name is required")
	ErrInvalidRange = errors.New("cluster: lower bound above upper bound")
	ErrInvalidKey   = errors.New("cluster: invalid dimension key")
)

// ID represents a unique cluster identifier.
type ID string

// IsValid checks if the cluster ID is valid.
func (id ID) IsValid() bool {
	return id != ""
}

// String returns the string representation of ID.
func (id ID) String() string {
	return string(id)
}

// Range is one dimension constraint of a cluster. Either bound may be
// absent; an absent bound never rejects a student. A dimension with
// neither bound is meaningless and is dropped before persistence.
type Range struct {
	Key  dimension.Key
	Low  *float64
	High *float64
}

// HasLow reports whether the lower bound is set.
func (r Range) HasLow() bool {
	return r.Low != nil
}

// HasHigh reports whether the upper bound is set.
func (r Range) HasHigh() bool {
	return r.High != nil
}

// IsBounded reports whether at least one bound is set.
func (r Range) IsBounded() bool {
	return r.HasLow() || r.HasHigh()
}

// Contains reports whether the value satisfies the range. A missing
// bound is vacuously satisfied.
func (r Range) Contains(value float64) bool {
	if r.HasLow() && value < *r.Low {
		return false
	}
	if r.HasHigh() && value > *r.High {
		return false
	}
	return true
}

// Validate checks that the range is well-formed.
func (r Range) Validate() error {
	if !r.Key.IsValid() {
		return ErrInvalidKey
	}
	if r.HasLow() && r.HasHigh() && *r.Low > *r.High {
		return ErrInvalidRange
	}
	return nil
}

// Cluster is a named classification bucket defined by dimension ranges.
type Cluster struct {
	ID          ID
	Name        string
	Description string

	// Ranges is the cluster's dimension constraint list. An empty list
	// matches every student: with no bounds to violate, the distance to
	// the cluster is always 0.
	Ranges []Range
}

// New creates a validated cluster. Unbounded ranges are dropped, matching
// the authoring surface's pre-save behavior.
func New(id ID, name, description string, ranges []Range) (*Cluster, error) {
	c := &Cluster{
		ID:          id,
		Name:        name,
		Description: description,
		Ranges:      ranges,
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks cluster invariants: the name is required and every
// range with both bounds present must have low <= high. Bounds are
// numeric by construction here; the HTTP layer validates user input
// before it reaches the domain.
func (c *Cluster) Validate() error {
	if c.Name == "" {
		return ErrEmptyName
	}
	for _, r := range c.Ranges {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Normalize drops ranges that constrain neither side.
func (c *Cluster) Normalize() {
	kept := c.Ranges[:0]
	for _, r := range c.Ranges {
		if r.IsBounded() {
			kept = append(kept, r)
		}
	}
	c.Ranges = kept
}

// Repository persists cluster definitions.
// Implemented by the infrastructure layer.
type Repository interface {
	// Save persists a cluster (create or update).
	Save(ctx context.Context, c *Cluster) error

	// GetByID returns a cluster by ID.
	// Returns shared.ErrClusterNotFound when no cluster exists.
	GetByID(ctx context.Context, id ID) (*Cluster, error)

	// GetAll returns all cluster definitions in stable catalog order.
	GetAll(ctx context.Context) ([]*Cluster, error)

	// Delete removes a cluster definition.
	Delete(ctx context.Context, id ID) error
}
