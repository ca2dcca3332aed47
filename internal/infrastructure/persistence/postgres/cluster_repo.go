package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/classlens/classlens/internal/domain/cluster"
	"github.com/classlens/classlens/internal/domain/dimension"
	"github.com/classlens/classlens/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLUSTER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ClusterRepository implements cluster.Repository for PostgreSQL.
type ClusterRepository struct {
	conn *Connection
}

// NewClusterRepository creates a new ClusterRepository.
func NewClusterRepository(conn *Connection) *ClusterRepository {
	return &ClusterRepository{conn: conn}
}

// rangeRecord is the JSONB shape of one dimension range.
type rangeRecord struct {
	Key  string   `json:"key"`
	Low  *float64 `json:"low,omitempty"`
	High *float64 `json:"high,omitempty"`
}

// Save persists a cluster, creating or updating by ID.
func (r *ClusterRepository) Save(ctx context.Context, c *cluster.Cluster) error {
	rangesJSON, err := marshalRanges(c.Ranges)
	if err != nil {
		return fmt.Errorf("failed to marshal cluster ranges: %w", err)
	}

	query := `
		INSERT INTO clusters (id, name, description, ranges)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			ranges = EXCLUDED.ranges,
			updated_at = NOW()
	`

	if _, err := r.conn.Exec(ctx, query, c.ID.String(), c.Name, c.Description, rangesJSON); err != nil {
		return fmt.Errorf("failed to save cluster %s: %w", c.ID, err)
	}
	return nil
}

// GetByID returns a cluster by ID.
func (r *ClusterRepository) GetByID(ctx context.Context, id cluster.ID) (*cluster.Cluster, error) {
	query := `
		SELECT id, name, description, ranges
		FROM clusters
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id.String())
	c, err := scanCluster(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrClusterNotFound
		}
		return nil, fmt.Errorf("failed to get cluster %s: %w", id, err)
	}
	return c, nil
}

// GetAll returns every cluster definition ordered by creation time, so
// batch runs and the editor see clusters in a stable order.
func (r *ClusterRepository) GetAll(ctx context.Context) ([]*cluster.Cluster, error) {
	query := `
		SELECT id, name, description, ranges
		FROM clusters
		ORDER BY created_at, id
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query clusters: %w", err)
	}
	defer rows.Close()

	var clusters []*cluster.Cluster
	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cluster row: %w", err)
		}
		clusters = append(clusters, c)
	}
	return clusters, rows.Err()
}

// Delete removes a cluster by ID.
func (r *ClusterRepository) Delete(ctx context.Context, id cluster.ID) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM clusters WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete cluster %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrClusterNotFound
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Row mapping
// ─────────────────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCluster(row rowScanner) (*cluster.Cluster, error) {
	var (
		id          string
		name        string
		description string
		rangesJSON  []byte
	)
	if err := row.Scan(&id, &name, &description, &rangesJSON); err != nil {
		return nil, err
	}

	ranges, err := unmarshalRanges(rangesJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal ranges of cluster %s: %w", id, err)
	}

	return &cluster.Cluster{
		ID:          cluster.ID(id),
		Name:        name,
		Description: description,
		Ranges:      ranges,
	}, nil
}

func marshalRanges(ranges []cluster.Range) ([]byte, error) {
	records := make([]rangeRecord, 0, len(ranges))
	for _, rg := range ranges {
		records = append(records, rangeRecord{
			Key:  rg.Key.String(),
			Low:  rg.Low,
			High: rg.High,
		})
	}
	return json.Marshal(records)
}

func unmarshalRanges(data []byte) ([]cluster.Range, error) {
	var records []rangeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}

	ranges := make([]cluster.Range, 0, len(records))
	for _, rec := range records {
		key, err := dimension.ParseKey(rec.Key)
		if err != nil {
			return nil, fmt.Errorf("invalid dimension key %q: %w", rec.Key, err)
		}
		ranges = append(ranges, cluster.Range{
			Key:  key,
			Low:  rec.Low,
			High: rec.High,
		})
	}
	return ranges, nil
}
