package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/classlens/classlens/internal/domain/cluster"
	"github.com/classlens/classlens/internal/domain/shared"
	"github.com/classlens/classlens/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATISTICS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// currentGeneration is the key of the single live statistics row. Each
// successful batch run overwrites it.
const currentGeneration = "current"

// pairKeySeparator joins the two cluster IDs of an intersection group in
// the JSONB object key. Cluster IDs are UUIDs and never contain it.
const pairKeySeparator = "|"

// StatsRepository implements stats.Repository for PostgreSQL.
type StatsRepository struct {
	conn *Connection
}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(conn *Connection) *StatsRepository {
	return &StatsRepository{conn: conn}
}

// Save persists the statistics, replacing the previous generation.
func (r *StatsRepository) Save(ctx context.Context, s *stats.Statistics) error {
	counts := make(map[string][]int, len(s.Counts))
	for id, dist := range s.Counts {
		counts[id.String()] = dist
	}
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("failed to marshal statistics counts: %w", err)
	}

	intersections := make(map[string][]int, len(s.Intersections))
	for pair, dist := range s.Intersections {
		key := pair.First.String() + pairKeySeparator + pair.Second.String()
		intersections[key] = dist
	}
	intersectionsJSON, err := json.Marshal(intersections)
	if err != nil {
		return fmt.Errorf("failed to marshal statistics intersections: %w", err)
	}

	query := `
		INSERT INTO cluster_statistics (generation, max_distance, counts, intersections)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (generation) DO UPDATE SET
			max_distance = EXCLUDED.max_distance,
			counts = EXCLUDED.counts,
			intersections = EXCLUDED.intersections,
			computed_at = NOW()
	`

	if _, err := r.conn.Exec(ctx, query, currentGeneration, s.MaxDistance, countsJSON, intersectionsJSON); err != nil {
		return fmt.Errorf("failed to save cluster statistics: %w", err)
	}
	return nil
}

// Get returns the latest stored statistics.
func (r *StatsRepository) Get(ctx context.Context) (*stats.Statistics, error) {
	query := `
		SELECT max_distance, counts, intersections
		FROM cluster_statistics
		WHERE generation = $1
	`

	var (
		maxDistance       int
		countsJSON        []byte
		intersectionsJSON []byte
	)
	if err := r.conn.QueryRow(ctx, query, currentGeneration).Scan(&maxDistance, &countsJSON, &intersectionsJSON); err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStatisticsNotFound
		}
		return nil, fmt.Errorf("failed to get cluster statistics: %w", err)
	}

	var rawCounts map[string][]int
	if err := json.Unmarshal(countsJSON, &rawCounts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal statistics counts: %w", err)
	}
	counts := make(map[cluster.ID]stats.Distribution, len(rawCounts))
	for id, dist := range rawCounts {
		counts[cluster.ID(id)] = dist
	}

	var rawIntersections map[string][]int
	if err := json.Unmarshal(intersectionsJSON, &rawIntersections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal statistics intersections: %w", err)
	}
	intersections := make(map[stats.PairKey]stats.Distribution, len(rawIntersections))
	for key, dist := range rawIntersections {
		first, second, ok := strings.Cut(key, pairKeySeparator)
		if !ok {
			return nil, fmt.Errorf("invalid intersection key %q in cluster statistics", key)
		}
		pair := stats.PairKey{First: cluster.ID(first), Second: cluster.ID(second)}
		intersections[pair] = dist
	}

	return &stats.Statistics{
		MaxDistance:   maxDistance,
		Counts:        counts,
		Intersections: intersections,
	}, nil
}
