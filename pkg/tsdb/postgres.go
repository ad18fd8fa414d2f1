package tsdb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // postgres driver

	"github.com/facilitymind/building-agent/pkg/logging"
)

// PostgresConfig holds settings for the Postgres-compatible time-series
// backend (e.g. TimescaleDB)
type PostgresConfig struct {
	DSN string
}

// PostgresRunner executes SQL queries against a Postgres-compatible store
type PostgresRunner struct {
	db     *sql.DB
	logger logging.Logger
}

// NewPostgresRunner creates a runner over the given DSN
func NewPostgresRunner(cfg PostgresConfig, logger logging.Logger) (*PostgresRunner, error) {
	if logger == nil {
		logger = logging.New()
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	return &PostgresRunner{db: db, logger: logger}, nil
}

// Run executes a SQL query and returns the rows as maps. Implements
// interfaces.QueryRunner.
func (r *PostgresRunner) Run(ctx context.Context, query string) ([]map[string]interface{}, error) {
	result, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := result.Close(); err != nil {
			r.logger.Warn(ctx, "Failed to close result set", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	columns, err := result.Columns()
	if err != nil {
		return nil, err
	}

	rows := []map[string]interface{}{}
	for result.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := result.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, column := range columns {
			value := values[i]
			if raw, ok := value.([]byte); ok {
				value = string(raw)
			}
			row[column] = normalizeValue(value)
		}
		rows = append(rows, row)
	}
	return rows, result.Err()
}

// Verify checks connectivity
func (r *PostgresRunner) Verify(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres connection check failed: %w", err)
	}
	return nil
}

// Close releases the connection pool
func (r *PostgresRunner) Close() error {
	return r.db.Close()
}
