// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/classlens/classlens/internal/domain/classification"
	"github.com/classlens/classlens/internal/domain/cluster"
	"github.com/classlens/classlens/internal/domain/shared"
	"github.com/classlens/classlens/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STATISTICS QUERY
// Returns the cluster statistics report of the latest classification
// run: cumulative counts per cluster, intersections per cluster pair and
// the distance threshold the run used.
// ══════════════════════════════════════════════════════════════════════════════

// GetStatisticsQuery contains parameters for the statistics report.
type GetStatisticsQuery struct {
	// BypassCache forces a re-read from the statistics store.
	BypassCache bool
}

// ReportCache caches the assembled statistics report.
// Implemented by the Redis infrastructure; optional.
type ReportCache interface {
	// GetReport returns the cached report, if present.
	GetReport(ctx context.Context) (*stats.Report, error)

	// SetReport caches the report with a TTL.
	SetReport(ctx context.Context, r *stats.Report, ttl time.Duration) error

	// InvalidateReport drops the cached report.
	InvalidateReport(ctx context.Context) error
}

// GetStatisticsHandler handles the GetStatisticsQuery.
type GetStatisticsHandler struct {
	statsRepo   stats.Repository
	clusterRepo cluster.Repository
	cache       ReportCache // nil when caching is disabled
	cacheTTL    time.Duration
	logger      *slog.Logger
}

// NewGetStatisticsHandler creates a new GetStatisticsHandler.
// cache may be nil to disable report caching.
func NewGetStatisticsHandler(
	statsRepo stats.Repository,
	clusterRepo cluster.Repository,
	cache ReportCache,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *GetStatisticsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &GetStatisticsHandler{
		statsRepo:   statsRepo,
		clusterRepo: clusterRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// Handle executes the statistics query.
//
// When no run has produced statistics yet, the report still lists every
// defined cluster with a zero count and carries the default distance
// threshold so the dashboard has a stable shape.
func (h *GetStatisticsHandler) Handle(ctx context.Context, q GetStatisticsQuery) (*stats.Report, error) {
	if h.cache != nil && !q.BypassCache {
		if report, err := h.cache.GetReport(ctx); err == nil && report != nil {
			return report, nil
		}
	}

	clusters, err := h.clusterRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_statistics: failed to load clusters: %w", err)
	}

	statistics, err := h.statsRepo.Get(ctx)
	if err != nil {
		if !errors.Is(err, shared.ErrStatisticsNotFound) {
			return nil, fmt.Errorf("get_statistics: failed to load statistics: %w", err)
		}
		statistics = &stats.Statistics{MaxDistance: classification.DefaultMaxDistance}
	}

	report := stats.BuildReport(statistics, clusters)

	if h.cache != nil {
		if err := h.cache.SetReport(ctx, report, h.cacheTTL); err != nil {
			h.logger.Warn("failed to cache statistics report", "error", err)
		}
	}
	return report, nil
}
