// Package topology exposes the building topology graph as a tool.
package topology

import (
	"context"

	"github.com/facilitymind/building-agent/pkg/interfaces"
	"github.com/facilitymind/building-agent/pkg/validator"
)

// Tool executes read-only Cypher queries against the topology graph
type Tool struct {
	runner interfaces.QueryRunner
}

// New creates the topology query tool backed by the given runner
func New(runner interfaces.QueryRunner) *Tool {
	return &Tool{runner: runner}
}

// Name returns the name of the tool
func (t *Tool) Name() string {
	return "execute_cypher"
}

// Description returns a description of what the tool does
func (t *Tool) Description() string {
	return "Execute a Cypher query against the Neo4j graph database. Use for questions about " +
		"relationships and topology, for example which AC unit services which room, or what " +
		"sensors are in a room. Should also be used to look up sensor IDs before querying " +
		"time-series data."
}

// Parameters returns the parameters that the tool accepts
func (t *Tool) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"query": {
			Type:        "string",
			Description: "The Cypher query to execute",
			Required:    true,
		},
	}
}

// Execute validates the query as read-only and runs it against the graph.
// Validation failures and backend failures are both reported as a failed
// ToolResult, distinguished by their message prefix.
func (t *Tool) Execute(ctx context.Context, query string) interfaces.ToolResult {
	if err := validator.ValidateCypher(query); err != nil {
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
