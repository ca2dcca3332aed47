// Package eventhandler contains subscribers reacting to domain events.
package eventhandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/classlens/classlens/internal/application/query"
	"github.com/classlens/classlens/internal/domain/shared"
)

// InvalidateReportCacheHandler drops the cached statistics report
// whenever cluster definitions change or a new run publishes fresh
// statistics, so readers never see a report built from stale inputs.
type InvalidateReportCacheHandler struct {
	cache  query.ReportCache
	logger *slog.Logger
}

// NewInvalidateReportCacheHandler creates a new handler.
func NewInvalidateReportCacheHandler(cache query.ReportCache, logger *slog.Logger) *InvalidateReportCacheHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvalidateReportCacheHandler{cache: cache, logger: logger}
}

// EventTypes returns the event types this handler subscribes to.
func (h *InvalidateReportCacheHandler) EventTypes() []shared.EventType {
	return []shared.EventType{
		shared.EventClusterSaved,
		shared.EventClusterDeleted,
		shared.EventStatisticsRefreshed,
	}
}

// Handle invalidates the report cache. Failures are logged and
// swallowed: the cache entry carries a TTL and expires on its own.
func (h *InvalidateReportCacheHandler) Handle(event shared.Event) error {
	if h.cache == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.cache.InvalidateReport(ctx); err != nil {
		h.logger.Warn("failed to invalidate report cache",
			"event_type", event.EventType(),
			"error", err)
	}
	return nil
}

// Register subscribes the handler on the given bus.
func (h *InvalidateReportCacheHandler) Register(bus shared.EventSubscriber) error {
	for _, t := range h.EventTypes() {
		if err := bus.Subscribe(t, h.Handle); err != nil {
			return err
		}
	}
	return nil
}
