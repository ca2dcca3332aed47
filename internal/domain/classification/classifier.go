package classification

import (
	"context"

	"github.com/classlens/classlens/internal/domain/activity"
	"github.com/classlens/classlens/internal/domain/cluster"
	"github.com/classlens/classlens/internal/domain/vector"
)

// Default distance bounds for cluster membership.
const (
	// DefaultMinDistance is the lower distance bound. Distances are
	// non-negative by construction, so it is not a hard filter today.
	DefaultMinDistance = 0

	// DefaultMaxDistance is the threshold above which a cluster is
	// discarded from a student's classification.
	DefaultMaxDistance = 2
)

// Observation is one (student, cluster) distance to be aggregated into
// the per-cluster count statistic.
type Observation struct {
	StudentID activity.StudentID
	ClusterID cluster.ID
	Distance  int
}

// PairObservation is one (student, cluster pair) distance pair to be
// aggregated into the intersection statistic. First is always the
// cluster processed earlier in catalog order, so each unordered pair is
// observed exactly once.
type PairObservation struct {
	StudentID      activity.StudentID
	First          cluster.ID
	Second         cluster.ID
	FirstDistance  int
	SecondDistance int
}

// Result is the retained-cluster-to-distance mapping for one student.
// It fully replaces any prior classification for the student.
type Result struct {
	StudentID activity.StudentID
	Distances map[cluster.ID]int
}

// Outcome bundles a student's classification result with the partial
// observations it produced.
type Outcome struct {
	Result       *Result
	Observations []Observation
	Pairs        []PairObservation
}

// Classifier evaluates student vectors against a snapshot of the cluster
// set. The snapshot is taken once per batch run so that every student is
// classified against the same cluster definitions.
type Classifier struct {
	clusters    []*cluster.Cluster
	maxDistance int

	// emitPairs controls the pairwise intersection observations. The
	// pair enumeration is O(k^2) in the retained clusters per student and
	// can be switched off when only per-cluster counts are needed.
	emitPairs bool
}

// NewClassifier creates a Classifier over a cluster snapshot.
// A negative maxDistance falls back to DefaultMaxDistance.
func NewClassifier(clusters []*cluster.Cluster, maxDistance int, emitPairs bool) *Classifier {
	if maxDistance < 0 {
		maxDistance = DefaultMaxDistance
	}
	return &Classifier{
		clusters:    clusters,
		maxDistance: maxDistance,
		emitPairs:   emitPairs,
	}
}

// MaxDistance returns the configured distance threshold.
func (c *Classifier) MaxDistance() int {
	return c.maxDistance
}

// Classify computes the distance from one student vector to every cluster
// in the snapshot, discards clusters beyond the distance threshold, and
// returns the retained mapping together with the per-cluster and pairwise
// observations.
func (c *Classifier) Classify(v *vector.Vector) Outcome {
	out := Outcome{
		Result: &Result{
			StudentID: v.StudentID,
			Distances: make(map[cluster.ID]int),
		},
	}

	// Retained clusters in processing order; pairs are keyed
	// (earlier, later) so (A,B) and (B,A) are never both emitted.
	type retained struct {
		id       cluster.ID
		distance int
	}
	var kept []retained

	for _, cl := range c.clusters {
		distance := Distance(cl, v)
		if distance > c.maxDistance {
			continue
		}

		if c.emitPairs {
			for _, prev := range kept {
				out.Pairs = append(out.Pairs, PairObservation{
					StudentID:      v.StudentID,
					First:          prev.id,
					Second:         cl.ID,
					FirstDistance:  prev.distance,
					SecondDistance: distance,
				})
			}
		}

		kept = append(kept, retained{id: cl.ID, distance: distance})
		out.Result.Distances[cl.ID] = distance
		out.Observations = append(out.Observations, Observation{
			StudentID: v.StudentID,
			ClusterID: cl.ID,
			Distance:  distance,
		})
	}

	return out
}

// Repository persists classification results, one per student per run.
// Implemented by the infrastructure layer.
type Repository interface {
	// Save persists a student's classification, replacing any prior one.
	Save(ctx context.Context, r *Result) error

	// Get returns the stored classification for a student.
	// Returns shared.ErrClassificationNotFound when none exists.
	Get(ctx context.Context, studentID activity.StudentID) (*Result, error)
}
