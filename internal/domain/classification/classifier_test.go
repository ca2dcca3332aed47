package classification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classlens/classlens/internal/domain/activity"
	"github.com/classlens/classlens/internal/domain/cluster"
	"github.com/classlens/classlens/internal/domain/dimension"
	"github.com/classlens/classlens/internal/domain/vector"
)

func f(v float64) *float64 { return &v }

func studentVector(values map[dimension.Key]float64) *vector.Vector {
	return &vector.Vector{StudentID: "student-1", Values: values}
}

func TestDistance_BoundedRange(t *testing.T) {
	c := &cluster.Cluster{
		ID:   "c1",
		Name: "mid scorers",
		Ranges: []cluster.Range{
			{Key: dimension.UnitKey("u1"), Low: f(10), High: f(20)},
		},
	}

	inside := studentVector(map[dimension.Key]float64{dimension.UnitKey("u1"): 15})
	assert.Equal(t, 0, Distance(c, inside))

	above := studentVector(map[dimension.Key]float64{dimension.UnitKey("u1"): 25})
	assert.Equal(t, 1, Distance(c, above))

	below := studentVector(map[dimension.Key]float64{dimension.UnitKey("u1"): 5})
	assert.Equal(t, 1, Distance(c, below))
}

func TestDistance_BoundaryValuesFit(t *testing.T) {
	c := &cluster.Cluster{
		ID:   "c1",
		Name: "range",
		Ranges: []cluster.Range{
			{Key: dimension.UnitKey("u1"), Low: f(10), High: f(20)},
		},
	}

	for _, value := range []float64{10, 20} {
		v := studentVector(map[dimension.Key]float64{dimension.UnitKey("u1"): value})
		assert.Equal(t, 0, Distance(c, v), "bounds are inclusive")
	}
}

func TestDistance_MissingValueTreatedAsZero(t *testing.T) {
	c := &cluster.Cluster{
		ID:   "c1",
		Name: "has progress",
		Ranges: []cluster.Range{
			{Key: dimension.LessonKey("l1"), Low: f(0.5)},
		},
	}

	v := studentVector(map[dimension.Key]float64{})
	assert.Equal(t, 1, Distance(c, v), "absent dimension counts as 0 and fails the lower bound")
}

func TestDistance_MissingBoundNeverRejects(t *testing.T) {
	c := &cluster.Cluster{
		ID:   "c1",
		Name: "open",
		Ranges: []cluster.Range{
			{Key: dimension.UnitKey("u1"), Low: f(0)},
			{Key: dimension.UnitKey("u2"), High: f(100)},
		},
	}

	v := studentVector(map[dimension.Key]float64{
		dimension.UnitKey("u1"): 1e9,
		dimension.UnitKey("u2"): -5,
	})
	assert.Equal(t, 0, Distance(c, v))
}

func TestDistance_EmptyClusterAlwaysZero(t *testing.T) {
	c := &cluster.Cluster{ID: "c1", Name: "everyone"}
	v := studentVector(map[dimension.Key]float64{dimension.UnitKey("u1"): 42})
	assert.Equal(t, 0, Distance(c, v))
}

func TestDistance_BoundedByDimensionCount(t *testing.T) {
	c := &cluster.Cluster{
		ID:   "c1",
		Name: "strict",
		Ranges: []cluster.Range{
			{Key: dimension.UnitKey("u1"), Low: f(50)},
			{Key: dimension.UnitKey("u2"), Low: f(50)},
			{Key: dimension.UnitKey("u3"), Low: f(50)},
		},
	}

	v := studentVector(map[dimension.Key]float64{})
	d := Distance(c, v)
	assert.GreaterOrEqual(t, d, 0)
	assert.LessOrEqual(t, d, len(c.Ranges))
	assert.Equal(t, 3, d)
}

func testClusters() []*cluster.Cluster {
	return []*cluster.Cluster{
		{ID: "a", Name: "A"},
		{ID: "b", Name: "B", Ranges: []cluster.Range{
			{Key: dimension.UnitKey("u1"), Low: f(0.5)},
		}},
		{ID: "c", Name: "C", Ranges: []cluster.Range{
			{Key: dimension.UnitKey("u1"), Low: f(10)},
			{Key: dimension.UnitKey("u2"), Low: f(10)},
			{Key: dimension.UnitKey("u3"), Low: f(10)},
		}},
	}
}

func TestClassify_DiscardsBeyondMaxDistance(t *testing.T) {
	classifier := NewClassifier(testClusters(), DefaultMaxDistance, true)
	v := studentVector(map[dimension.Key]float64{dimension.UnitKey("u1"): 1})

	out := classifier.Classify(v)

	require.NotNil(t, out.Result)
	assert.Equal(t, activity.StudentID("student-1"), out.Result.StudentID)
	// a: distance 0, b: distance 0, c: distance 3 (discarded).
	assert.Equal(t, map[cluster.ID]int{"a": 0, "b": 0}, out.Result.Distances)
}

func TestClassify_PairsEmittedOncePerUnorderedPair(t *testing.T) {
	classifier := NewClassifier(testClusters(), 3, true)
	v := studentVector(map[dimension.Key]float64{dimension.UnitKey("u1"): 1})

	out := classifier.Classify(v)
	require.Len(t, out.Pairs, 3)

	seen := make(map[[2]cluster.ID]bool)
	for _, p := range out.Pairs {
		key := [2]cluster.ID{p.First, p.Second}
		reversed := [2]cluster.ID{p.Second, p.First}
		assert.False(t, seen[key], "duplicate pair %v", key)
		assert.False(t, seen[reversed], "reversed pair %v", reversed)
		seen[key] = true
	}

	// Pairs follow catalog processing order.
	assert.Equal(t, cluster.ID("a"), out.Pairs[0].First)
	assert.Equal(t, cluster.ID("b"), out.Pairs[0].Second)
}

func TestClassify_PairDistancesMatchIndividualObservations(t *testing.T) {
	classifier := NewClassifier(testClusters(), 3, true)
	v := studentVector(map[dimension.Key]float64{dimension.UnitKey("u1"): 11})

	out := classifier.Classify(v)

	distances := make(map[cluster.ID]int)
	for _, obs := range out.Observations {
		distances[obs.ClusterID] = obs.Distance
	}
	for _, p := range out.Pairs {
		assert.Equal(t, distances[p.First], p.FirstDistance)
		assert.Equal(t, distances[p.Second], p.SecondDistance)
	}
}

func TestClassify_PairsDisabled(t *testing.T) {
	classifier := NewClassifier(testClusters(), 3, false)
	v := studentVector(map[dimension.Key]float64{dimension.UnitKey("u1"): 1})

	out := classifier.Classify(v)
	assert.Empty(t, out.Pairs)
	assert.NotEmpty(t, out.Observations)
}

func TestNewClassifier_NegativeMaxDistanceFallsBack(t *testing.T) {
	classifier := NewClassifier(nil, -1, false)
	assert.Equal(t, DefaultMaxDistance, classifier.MaxDistance())
}
