// Package timeseries exposes the sensor time-series store as a tool.
package timeseries

import (
	"context"

	"github.com/facilitymind/building-agent/pkg/interfaces"
	"github.com/facilitymind/building-agent/pkg/validator"
)

// Tool executes read-only SQL queries against the time-series store
type Tool struct {
	runner interfaces.QueryRunner
}

// New creates the time-series query tool backed by the given runner
func New(runner interfaces.QueryRunner) *Tool {
	return &Tool{runner: runner}
}

// Name returns the name of the tool
func (t *Tool) Name() string {
	return "execute_sql"
}

// Description returns a description of what the tool does
func (t *Tool) Description() string {
	return "Execute a SQL query against the time-series database. Use for questions about " +
		"sensor readings over time, temperatures, occupancy patterns, averages, etc. The " +
		"database only knows sensor IDs, not rooms: query the graph database first to " +
		"resolve room numbers into sensor IDs."
}

// Parameters returns the parameters that the tool accepts
func (t *Tool) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"query": {
			Type:        "string",
			Description: "The SQL query to execute",
			Required:    true,
		},
	}
}

// Execute validates the query as read-only and runs it against the store
func (t *Tool) Execute(ctx context.Context, query string) interfaces.ToolResult {
	if err := validator.ValidateSQL(query); err != nil {
		return interfaces.ToolResult{
			Success: false,
			Error:   "Validation error: " + err.Error(),
		}
	}

	rows, err := t.runner.Run(ctx, query)
	if err != nil {
		return interfaces.ToolResult{
			Success: false,
			Error:   "Query execution error: " + err.Error(),
		}
	}

	return interfaces.ToolResult{
		Success:  true,
		Data:     rows,
		RowCount: len(rows),
	}
}
