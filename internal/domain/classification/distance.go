// Package classification computes bounded-range distances between student
// vectors and cluster definitions and turns them into per-cluster and
// pairwise partial observations for the statistics aggregator.
package classification

import (
	"github.com/classlens/classlens/internal/domain/cluster"
	"github.com/classlens/classlens/internal/domain/vector"
)

// Distance returns the Hamming-style distance between a cluster and a
// student vector: the number of cluster dimensions whose range the
// student's value violates.
//
// A dimension absent from the student vector counts as value 0. A
// missing bound never rejects, so a cluster with an empty range list is
// at distance 0 from every student. The distance is insensitive to the
// magnitude of a violation and is always within [0, len(c.Ranges)].
func Distance(c *cluster.Cluster, v *vector.Vector) int {
	distance := 0
	for _, r := range c.Ranges {
		if !r.Contains(v.Value(r.Key)) {
			distance++
		}
	}
	return distance
}
