package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classlens/classlens/internal/domain/classification"
	"github.com/classlens/classlens/internal/domain/cluster"
	"github.com/classlens/classlens/internal/domain/shared"
	"github.com/classlens/classlens/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY FAKES
// ══════════════════════════════════════════════════════════════════════════════

type fakeStatsRepo struct {
	stats    *stats.Statistics
	err      error
	getCalls int
}

func (f *fakeStatsRepo) Save(_ context.Context, _ *stats.Statistics) error { return nil }
func (f *fakeStatsRepo) Get(_ context.Context) (*stats.Statistics, error) {
	f.getCalls++
	return f.stats, f.err
}

type fakeClusterRepo struct {
	clusters []*cluster.Cluster
	err      error
}

func (f *fakeClusterRepo) Save(_ context.Context, _ *cluster.Cluster) error { return nil }
func (f *fakeClusterRepo) GetByID(_ context.Context, id cluster.ID) (*cluster.Cluster, error) {
	for _, c := range f.clusters {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, shared.ErrClusterNotFound
}
func (f *fakeClusterRepo) GetAll(_ context.Context) ([]*cluster.Cluster, error) {
	return f.clusters, f.err
}
func (f *fakeClusterRepo) Delete(_ context.Context, _ cluster.ID) error { return nil }

type fakeReportCache struct {
	report      *stats.Report
	getErr      error
	setErr      error
	getCalls    int
	setCalls    int
	invalidated int
	lastTTL     time.Duration
}

func (f *fakeReportCache) GetReport(_ context.Context) (*stats.Report, error) {
	f.getCalls++
	return f.report, f.getErr
}

func (f *fakeReportCache) SetReport(_ context.Context, r *stats.Report, ttl time.Duration) error {
	f.setCalls++
	if f.setErr == nil {
		f.report = r
		f.lastTTL = ttl
	}
	return f.setErr
}

func (f *fakeReportCache) InvalidateReport(_ context.Context) error {
	f.invalidated++
	f.report = nil
	return nil
}

func mustCluster(t *testing.T, id, name string) *cluster.Cluster {
	t.Helper()
	c, err := cluster.New(cluster.ID(id), name, "", nil)
	require.NoError(t, err)
	return c
}

// ══════════════════════════════════════════════════════════════════════════════
// GET STATISTICS
// ══════════════════════════════════════════════════════════════════════════════

func TestGetStatistics_BuildsReportFromStore(t *testing.T) {
	clusters := []*cluster.Cluster{
		mustCluster(t, "struggling", "Struggling"),
		mustCluster(t, "on-track", "On track"),
	}
	statsRepo := &fakeStatsRepo{
		stats: &stats.Statistics{
			Counts: map[cluster.ID]stats.Distribution{
				"struggling": {3, 5},
			},
			Intersections: map[stats.PairKey]stats.Distribution{
				{First: "struggling", Second: "on-track"}: {1, 2},
			},
			MaxDistance: 1,
		},
	}

	handler := NewGetStatisticsHandler(statsRepo, &fakeClusterRepo{clusters: clusters}, nil, 0, nil)
	report, err := handler.Handle(context.Background(), GetStatisticsQuery{})

	require.NoError(t, err)
	assert.Equal(t, 1, report.MaxDistance)
	assert.Equal(t, stats.Distribution{3, 5}, report.Count["struggling"].Vectors)
	assert.Equal(t, "Struggling", report.Count["struggling"].Name)
	assert.Equal(t, stats.Distribution{1, 2}, report.Intersection["struggling"]["on-track"])
}

func TestGetStatistics_ZeroFillsClustersWithoutObservations(t *testing.T) {
	clusters := []*cluster.Cluster{
		mustCluster(t, "struggling", "Struggling"),
		mustCluster(t, "on-track", "On track"),
	}
	statsRepo := &fakeStatsRepo{err: shared.ErrStatisticsNotFound}

	handler := NewGetStatisticsHandler(statsRepo, &fakeClusterRepo{clusters: clusters}, nil, 0, nil)
	report, err := handler.Handle(context.Background(), GetStatisticsQuery{})

	require.NoError(t, err)
	assert.Len(t, report.Count, 2)
	assert.Equal(t, stats.Distribution{0}, report.Count["struggling"].Vectors)
	assert.Equal(t, stats.Distribution{0}, report.Count["on-track"].Vectors)
	assert.Equal(t, classification.DefaultMaxDistance, report.MaxDistance)
}

func TestGetStatistics_ServesFromCache(t *testing.T) {
	cached := &stats.Report{MaxDistance: 2}
	cache := &fakeReportCache{report: cached}
	statsRepo := &fakeStatsRepo{err: shared.ErrStatisticsNotFound}

	handler := NewGetStatisticsHandler(statsRepo, &fakeClusterRepo{}, cache, time.Minute, nil)
	report, err := handler.Handle(context.Background(), GetStatisticsQuery{})

	require.NoError(t, err)
	assert.Same(t, cached, report)
	assert.Equal(t, 0, statsRepo.getCalls)
	assert.Equal(t, 0, cache.setCalls)
}

func TestGetStatistics_BypassCacheSkipsLookupAndRefills(t *testing.T) {
	stale := &stats.Report{MaxDistance: 9}
	cache := &fakeReportCache{report: stale}
	statsRepo := &fakeStatsRepo{
		stats: &stats.Statistics{
			Counts:      map[cluster.ID]stats.Distribution{"struggling": {4}},
			MaxDistance: 2,
		},
	}
	clusters := []*cluster.Cluster{mustCluster(t, "struggling", "Struggling")}

	handler := NewGetStatisticsHandler(statsRepo, &fakeClusterRepo{clusters: clusters}, cache, time.Minute, nil)
	report, err := handler.Handle(context.Background(), GetStatisticsQuery{BypassCache: true})

	require.NoError(t, err)
	assert.Equal(t, 2, report.MaxDistance)
	assert.Equal(t, 0, cache.getCalls)
	assert.Equal(t, 1, cache.setCalls)
	assert.Same(t, report, cache.report)
	assert.Equal(t, time.Minute, cache.lastTTL)
}

func TestGetStatistics_CacheMissFallsThroughToStore(t *testing.T) {
	cache := &fakeReportCache{} // empty, GetReport returns (nil, nil)
	statsRepo := &fakeStatsRepo{
		stats: &stats.Statistics{MaxDistance: 1},
	}

	handler := NewGetStatisticsHandler(statsRepo, &fakeClusterRepo{}, cache, time.Minute, nil)
	report, err := handler.Handle(context.Background(), GetStatisticsQuery{})

	require.NoError(t, err)
	assert.Equal(t, 1, cache.getCalls)
	assert.Equal(t, 1, statsRepo.getCalls)
	assert.Equal(t, 1, cache.setCalls)
	assert.Equal(t, 1, report.MaxDistance)
}

func TestGetStatistics_CacheWriteFailureIsNotFatal(t *testing.T) {
	cache := &fakeReportCache{setErr: errors.New("redis: connection refused")}
	statsRepo := &fakeStatsRepo{stats: &stats.Statistics{MaxDistance: 1}}

	handler := NewGetStatisticsHandler(statsRepo, &fakeClusterRepo{}, cache, time.Minute, nil)
	report, err := handler.Handle(context.Background(), GetStatisticsQuery{})

	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 1, cache.setCalls)
}

func TestGetStatistics_StoreErrorPropagates(t *testing.T) {
	repoErr := errors.New("pg: connection reset")
	statsRepo := &fakeStatsRepo{err: repoErr}

	handler := NewGetStatisticsHandler(statsRepo, &fakeClusterRepo{}, nil, 0, nil)
	_, err := handler.Handle(context.Background(), GetStatisticsQuery{})

	require.Error(t, err)
	assert.ErrorIs(t, err, repoErr)
}
