package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig configures the Postgres-backed queue store.
type PostgresConfig struct {
	DSN           string
	Table         string
	PendingStatus string
}

// PostgresStore implements Store against a Postgres queue table.
type PostgresStore struct {
	pool    *pgxpool.Pool
	table   string // sanitized identifier, safe to interpolate
	pending string
}

// NewPostgresStore connects to the queue database and verifies the
// connection before returning.
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	poolCfg.MaxConns = 5
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pending := cfg.PendingStatus
	if pending == "" {
		pending = DefaultPendingStatus
	}

	return &PostgresStore{
		pool:    pool,
		table:   pgx.Identifier{cfg.Table}.Sanitize(),
		pending: pending,
	}, nil
}

// FetchPending returns up to limit pending rows in id order, so grouping
// order matches extraction order.
func (s *PostgresStore) FetchPending(ctx context.Context, limit int) ([]Row, error) {
	query := fmt.Sprintf(`
		SELECT id, batch_id, site, template_name, language, product_name,
		       COALESCE(allergens_short, ''), qty, status, error_reason
		FROM %s
		WHERE status = $1
		ORDER BY id
		LIMIT $2`, s.table)

	rows, err := s.pool.Query(ctx, query, s.pending, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending rows: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(
			&r.ID, &r.BatchID, &r.Site, &r.TemplateName, &r.Language,
			&r.ProductName, &r.AllergensShort, &r.Qty, &r.Status, &r.ErrorReason,
		); err != nil {
			return nil, fmt.Errorf("scan queue row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read pending rows: %w", err)
	}

	return out, nil
}

// MarkSent bulk-updates the given row ids to Sent.
func (s *PostgresStore) MarkSent(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(`UPDATE %s SET status = $1 WHERE id = ANY($2)`, s.table)
	if _, err := s.pool.Exec(ctx, query, StatusSent, ids); err != nil {
		return fmt.Errorf("mark rows sent: %w", err)
	}
	return nil
}

// MarkBatchError blocks an entire batch from reprocessing.
func (s *PostgresStore) MarkBatchError(ctx context.Context, batchID string) error {
	query := fmt.Sprintf(`UPDATE %s SET status = $1 WHERE batch_id = $2`, s.table)
	if _, err := s.pool.Exec(ctx, query, StatusError, batchID); err != nil {
		return fmt.Errorf("mark batch error: %w", err)
	}
	return nil
}

// MarkRowError attributes a failure reason to a single row.
func (s *PostgresStore) MarkRowError(ctx context.Context, id int64, reason string) error {
	query := fmt.Sprintf(`UPDATE %s SET status = $1, error_reason = $2 WHERE id = $3`, s.table)
	if _, err := s.pool.Exec(ctx, query, StatusError, reason, id); err != nil {
		return fmt.Errorf("mark row error: %w", err)
	}
	return nil
}

// MarkRowStatus updates only the status column of a single row.
func (s *PostgresStore) MarkRowStatus(ctx context.Context, id int64, status Status) error {
	query := fmt.Sprintf(`UPDATE %s SET status = $1 WHERE id = $2`, s.table)
	if _, err := s.pool.Exec(ctx, query, status, id); err != nil {
		return fmt.Errorf("mark row status: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var _ Store = (*PostgresStore)(nil)
