// Package tsdb provides read access to the sensor time-series store. Two
// backends are supported: InfluxDB 3 (the default) and a Postgres-compatible
// store, both exposed through the same QueryRunner contract.
package tsdb

import (
	"context"
	"fmt"
	"time"

	"github.com/InfluxCommunity/influxdb3-go/v2/influxdb3"

	"github.com/facilitymind/building-agent/pkg/logging"
)

// InfluxConfig holds InfluxDB 3 connection settings
type InfluxConfig struct {
	Host     string // e.g. http://localhost:8181
	Token    string
	Database string
}

// InfluxRunner executes SQL queries against InfluxDB 3
type InfluxRunner struct {
	client *influxdb3.Client
	logger logging.Logger
}

// NewInfluxRunner creates a runner for the given InfluxDB instance
func NewInfluxRunner(cfg InfluxConfig, logger logging.Logger) (*InfluxRunner, error) {
	if logger == nil {
		logger = logging.New()
	}

	client, err := influxdb3.New(influxdb3.ClientConfig{
		Host:     cfg.Host,
		Token:    cfg.Token,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create influxdb client: %w", err)
	}

	return &InfluxRunner{client: client, logger: logger}, nil
}

// Run executes a SQL query and returns the rows as maps. Implements
// interfaces.QueryRunner.
func (r *InfluxRunner) Run(ctx context.Context, query string) ([]map[string]interface{}, error) {
	iterator, err := r.client.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	rows := []map[string]interface{}{}
	for iterator.Next() {
		row := make(map[string]interface{}, len(iterator.Value()))
		for key, value := range iterator.Value() {
			row[key] = normalizeValue(value)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Verify checks connectivity by running a trivial query
func (r *InfluxRunner) Verify(ctx context.Context) error {
	if _, err := r.Run(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("influxdb connection check failed: %w", err)
	}
	return nil
}

// Close releases the underlying client
func (r *InfluxRunner) Close() error {
	return r.client.Close()
}

// normalizeValue makes a column value JSON-friendly for the model:
// timestamps become RFC3339 strings.
func normalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case time.Time:
		return v.Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.Format(time.RFC3339)
	default:
		return value
	}
}
