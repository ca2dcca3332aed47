// Package stats combines classification observations into cumulative
// count distributions per cluster and per cluster pair, and assembles the
// report consumed by the HTTP interface.
package stats

import (
	"context"

	"github.com/classlens/classlens/internal/domain/cluster"
)

// Distribution is a cumulative count array: entry d holds the number of
// students at distance <= d. Its length is the maximum observed distance
// in the group plus one, and it is non-decreasing by construction.
type Distribution []int

// Total returns the number of students in the group.
func (d Distribution) Total() int {
	if len(d) == 0 {
		return 0
	}
	return d[len(d)-1]
}

// CountAtMost returns the number of students at distance <= dist.
// Distances beyond the array report the last entry.
func (d Distribution) CountAtMost(dist int) int {
	if len(d) == 0 || dist < 0 {
		return 0
	}
	if dist >= len(d) {
		dist = len(d) - 1
	}
	return d[dist]
}

// PairKey identifies an unordered cluster pair. First is the cluster
// processed earlier in catalog order; the reversed key never occurs.
type PairKey struct {
	First  cluster.ID
	Second cluster.ID
}

// Statistics is the aggregation output of one classification run.
type Statistics struct {
	// Counts maps each observed cluster to its cumulative distribution.
	Counts map[cluster.ID]Distribution

	// Intersections maps each observed cluster pair to the cumulative
	// distribution of the pair's combined distances.
	Intersections map[PairKey]Distribution

	// MaxDistance is the classification threshold the run used.
	MaxDistance int
}

// Repository persists run statistics, one generation per batch run.
// Implemented by the infrastructure layer.
type Repository interface {
	// Save persists the statistics, replacing the previous generation.
	Save(ctx context.Context, s *Statistics) error

	// Get returns the latest stored statistics.
	// Returns shared.ErrStatisticsNotFound when none exist.
	Get(ctx context.Context) (*Statistics, error)
}
