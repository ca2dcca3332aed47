package stats

import (
	"github.com/classlens/classlens/internal/domain/cluster"
)

// ClusterCount is the count statistic of one cluster.
type ClusterCount struct {
	Name    string       `json:"name"`
	Vectors Distribution `json:"vectors"`
}

// Report is the reporting-layer contract: the count statistic per
// cluster, the intersection statistic per cluster pair (keyed by the
// first cluster's ID, then the second's; absent entries mean an empty
// intersection) and the distance threshold the run used.
type Report struct {
	Count        map[string]ClusterCount            `json:"count"`
	Intersection map[string]map[string]Distribution `json:"intersection"`
	MaxDistance  int                                `json:"max_distance"`
}

// BuildReport assembles the report from run statistics and the current
// cluster definitions. Clusters with no observations are reported with a
// single zero-count bucket so every defined cluster appears.
func BuildReport(s *Statistics, clusters []*cluster.Cluster) *Report {
	names := make(map[cluster.ID]string, len(clusters))
	for _, c := range clusters {
		names[c.ID] = c.Name
	}

	r := &Report{
		Count:        make(map[string]ClusterCount, len(clusters)),
		Intersection: make(map[string]map[string]Distribution, len(s.Intersections)),
		MaxDistance:  s.MaxDistance,
	}

	for id, dist := range s.Counts {
		r.Count[id.String()] = ClusterCount{
			Name:    names[id],
			Vectors: dist,
		}
	}
	for _, c := range clusters {
		if _, ok := r.Count[c.ID.String()]; !ok {
			r.Count[c.ID.String()] = ClusterCount{
				Name:    c.Name,
				Vectors: Distribution{0},
			}
		}
	}

	for key, dist := range s.Intersections {
		inner := r.Intersection[key.First.String()]
		if inner == nil {
			inner = make(map[string]Distribution)
			r.Intersection[key.First.String()] = inner
		}
		inner[key.Second.String()] = dist
	}

	return r
}
