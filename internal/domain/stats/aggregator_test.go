package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classlens/classlens/internal/domain/classification"
	"github.com/classlens/classlens/internal/domain/cluster"
)

func TestAggregator_CumulativeCounts(t *testing.T) {
	agg := NewAggregator(2)
	for _, d := range []int{0, 0, 1, 2} {
		agg.Add(classification.Observation{
			StudentID: "student",
			ClusterID: "c1",
			Distance:  d,
		})
	}

	s := agg.Build()
	require.Contains(t, s.Counts, cluster.ID("c1"))
	// Raw counts {0:2, 1:1, 2:1} accumulate to [2, 3, 4].
	assert.Equal(t, Distribution{2, 3, 4}, s.Counts["c1"])
}

func TestAggregator_DistributionNonDecreasing(t *testing.T) {
	agg := NewAggregator(5)
	for _, d := range []int{5, 0, 3, 3, 1, 5, 2} {
		agg.Add(classification.Observation{ClusterID: "c1", Distance: d})
	}

	dist := agg.Build().Counts["c1"]
	require.Len(t, dist, 6)
	for i := 1; i < len(dist); i++ {
		assert.LessOrEqual(t, dist[i-1], dist[i])
	}
}

func TestAggregator_GapDistancesZeroFilled(t *testing.T) {
	agg := NewAggregator(4)
	agg.Add(classification.Observation{ClusterID: "c1", Distance: 3})

	// No students at distances 0..2: cumulative stays 0 until 3.
	assert.Equal(t, Distribution{0, 0, 0, 1}, agg.Build().Counts["c1"])
}

func TestAggregator_PairUsesWorseDistance(t *testing.T) {
	agg := NewAggregator(2)
	agg.AddPair(classification.PairObservation{
		StudentID:      "s1",
		First:          "a",
		Second:         "b",
		FirstDistance:  0,
		SecondDistance: 2,
	})
	agg.AddPair(classification.PairObservation{
		StudentID:      "s2",
		First:          "a",
		Second:         "b",
		FirstDistance:  1,
		SecondDistance: 0,
	})

	s := agg.Build()
	key := PairKey{First: "a", Second: "b"}
	require.Contains(t, s.Intersections, key)
	// Combined distances are max(d1, d2): 2 and 1.
	assert.Equal(t, Distribution{0, 1, 2}, s.Intersections[key])
}

func TestAggregator_GroupsIndependent(t *testing.T) {
	agg := NewAggregator(2)
	agg.Add(classification.Observation{ClusterID: "a", Distance: 0})
	agg.Add(classification.Observation{ClusterID: "b", Distance: 1})

	s := agg.Build()
	assert.Equal(t, Distribution{1}, s.Counts["a"])
	assert.Equal(t, Distribution{0, 1}, s.Counts["b"])
}

func TestAggregator_OrderIrrelevant(t *testing.T) {
	forward := NewAggregator(3)
	backward := NewAggregator(3)
	distances := []int{0, 1, 1, 2, 3, 0}

	for _, d := range distances {
		forward.Add(classification.Observation{ClusterID: "c", Distance: d})
	}
	for i := len(distances) - 1; i >= 0; i-- {
		backward.Add(classification.Observation{ClusterID: "c", Distance: distances[i]})
	}

	assert.Equal(t, forward.Build().Counts, backward.Build().Counts)
}

func TestDistribution_CountAtMost(t *testing.T) {
	d := Distribution{2, 3, 4}
	assert.Equal(t, 2, d.CountAtMost(0))
	assert.Equal(t, 4, d.CountAtMost(2))
	assert.Equal(t, 4, d.CountAtMost(10), "beyond the array reports the last entry")
	assert.Equal(t, 0, d.CountAtMost(-1))
	assert.Equal(t, 4, d.Total())
	assert.Equal(t, 0, Distribution{}.Total())
}

func TestBuildReport_FillsMissingClusters(t *testing.T) {
	agg := NewAggregator(2)
	agg.Add(classification.Observation{ClusterID: "a", Distance: 0})
	s := agg.Build()

	clusters := []*cluster.Cluster{
		{ID: "a", Name: "Cluster A"},
		{ID: "b", Name: "Cluster B"},
	}

	r := BuildReport(s, clusters)
	assert.Equal(t, 2, r.MaxDistance)
	assert.Equal(t, ClusterCount{Name: "Cluster A", Vectors: Distribution{1}}, r.Count["a"])
	assert.Equal(t, ClusterCount{Name: "Cluster B", Vectors: Distribution{0}}, r.Count["b"])
}

func TestBuildReport_IntersectionShape(t *testing.T) {
	agg := NewAggregator(2)
	agg.AddPair(classification.PairObservation{First: "a", Second: "b", FirstDistance: 1, SecondDistance: 1})
	s := agg.Build()

	r := BuildReport(s, []*cluster.Cluster{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}})
	require.Contains(t, r.Intersection, "a")
	assert.Equal(t, Distribution{0, 1}, r.Intersection["a"]["b"])
	assert.NotContains(t, r.Intersection, "b", "reversed pair is never reported")
}
