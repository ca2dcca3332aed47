package stats

import (
	"github.com/classlens/classlens/internal/domain/classification"
	"github.com/classlens/classlens/internal/domain/cluster"
)

// Aggregator is a streaming reducer over classification observations.
// Observations are grouped by cluster ID ("count" statistic) and by
// cluster pair ("intersection" statistic); within a group the reduction
// is a commutative, associative count accumulation, so ingestion order
// is irrelevant. The Aggregator itself is not goroutine-safe: the
// pipeline drains all observations through a single reducer goroutine.
type Aggregator struct {
	counts      map[cluster.ID]map[int]int
	pairs       map[PairKey]map[int]int
	maxDistance int
}

// NewAggregator creates an Aggregator for a run with the given distance
// threshold.
func NewAggregator(maxDistance int) *Aggregator {
	return &Aggregator{
		counts:      make(map[cluster.ID]map[int]int),
		pairs:       make(map[PairKey]map[int]int),
		maxDistance: maxDistance,
	}
}

// Add ingests one per-cluster observation.
func (a *Aggregator) Add(obs classification.Observation) {
	group := a.counts[obs.ClusterID]
	if group == nil {
		group = make(map[int]int)
		a.counts[obs.ClusterID] = group
	}
	group[obs.Distance]++
}

// AddPair ingests one pairwise observation. The pair's combined distance
// is the maximum of the two individual distances: a student counts
// toward an intersection bucket only at the worse of its two distances.
func (a *Aggregator) AddPair(obs classification.PairObservation) {
	key := PairKey{First: obs.First, Second: obs.Second}
	group := a.pairs[key]
	if group == nil {
		group = make(map[int]int)
		a.pairs[key] = group
	}
	combined := obs.FirstDistance
	if obs.SecondDistance > combined {
		combined = obs.SecondDistance
	}
	group[combined]++
}

// AddOutcome ingests all observations of one student's classification.
func (a *Aggregator) AddOutcome(out classification.Outcome) {
	for _, obs := range out.Observations {
		a.Add(obs)
	}
	for _, pair := range out.Pairs {
		a.AddPair(pair)
	}
}

// Build finalizes the aggregation into cumulative distributions.
func (a *Aggregator) Build() *Statistics {
	s := &Statistics{
		Counts:        make(map[cluster.ID]Distribution, len(a.counts)),
		Intersections: make(map[PairKey]Distribution, len(a.pairs)),
		MaxDistance:   a.maxDistance,
	}
	for id, group := range a.counts {
		s.Counts[id] = cumulate(group)
	}
	for key, group := range a.pairs {
		s.Intersections[key] = cumulate(group)
	}
	return s
}

// cumulate turns a distance histogram into a cumulative distribution of
// length maxObserved+1: exact counts are laid out by distance, then
// summed left to right so entry d becomes "students at distance <= d".
func cumulate(histogram map[int]int) Distribution {
	maxDist := 0
	for dist := range histogram {
		if dist > maxDist {
			maxDist = dist
		}
	}

	dist := make(Distribution, maxDist+1)
	for d, count := range histogram {
		dist[d] = count
	}
	for i := 1; i < len(dist); i++ {
		dist[i] += dist[i-1]
	}
	return dist
}
