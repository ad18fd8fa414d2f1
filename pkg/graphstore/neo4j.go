// Package graphstore provides read access to the Neo4j building topology
// graph.
package graphstore

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/facilitymind/building-agent/pkg/logging"
)

// Config holds Neo4j connection settings
type Config struct {
	URI      string
	Username string
	Password string
}

// Client wraps the Neo4j driver. The driver is long-lived; each query runs
// in its own session, released when the call returns.
type Client struct {
	driver neo4j.DriverWithContext
	logger logging.Logger
}

// New creates a client for the given Neo4j instance
func New(cfg Config, logger logging.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.New()
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	return &Client{driver: driver, logger: logger}, nil
}

// Run executes a Cypher query in a read session and returns the records as
// maps. Implements interfaces.QueryRunner.
func (c *Client) Run(ctx context.Context, query string) ([]map[string]interface{}, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer func() {
		if err := session.Close(ctx); err != nil {
			c.logger.Warn(ctx, "Failed to close neo4j session", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	result, err := session.Run(ctx, query, nil)
	if err != nil {
		return nil, err
	}

	records, err := result.Collect(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		rows = append(rows, normalizeRow(record.AsMap()))
	}
	return rows, nil
}

// Verify checks connectivity by running a trivial query
func (c *Client) Verify(ctx context.Context) error {
	rows, err := c.Run(ctx, "RETURN 1 AS num")
	if err != nil {
		return fmt.Errorf("neo4j connection check failed: %w", err)
	}
	if len(rows) != 1 {
		return fmt.Errorf("neo4j connection check returned %d rows", len(rows))
	}
	return nil
}

// Close releases the underlying driver
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// normalizeRow makes record values JSON-friendly for the model: timestamps
// become RFC3339 strings.
func normalizeRow(row map[string]interface{}) map[string]interface{} {
	for key, value := range row {
		switch v := value.(type) {
		case time.Time:
			row[key] = v.Format(time.RFC3339)
		}
	}
	return row
}
