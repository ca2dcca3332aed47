package redis

import (
	"context"
	"errors"
	"time"

	"github.com/classlens/classlens/internal/domain/stats"
)

// ReportCache implements query.ReportCache using the generic Redis Cache.
type ReportCache struct {
	cache *Cache
}

// NewReportCache creates a new ReportCache.
func NewReportCache(cache *Cache) *ReportCache {
	return &ReportCache{cache: cache}
}

// GetReport returns the cached report. A cache miss returns (nil, nil)
// so callers fall through to the repository without branching on errors.
func (r *ReportCache) GetReport(ctx context.Context) (*stats.Report, error) {
	var report stats.Report
	if err := r.cache.Get(ctx, ReportKey(), &report); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

// SetReport caches the report with a TTL.
func (r *ReportCache) SetReport(ctx context.Context, report *stats.Report, ttl time.Duration) error {
	if report == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = TTLReportCache
	}
	return r.cache.Set(ctx, ReportKey(), report, ttl)
}

// InvalidateReport drops the cached report.
func (r *ReportCache) InvalidateReport(ctx context.Context) error {
	return r.cache.Delete(ctx, ReportKey())
}
