// Package tools holds the closed registry of tools the model may invoke.
package tools

import (
	"context"
	"fmt"

	"github.com/facilitymind/building-agent/pkg/interfaces"
	"github.com/facilitymind/building-agent/pkg/logging"
)

// ToolID identifies one of the fixed set of tools. The registry is closed:
// there is no way to register a tool outside this enumeration.
type ToolID string

const (
	// ToolExecuteCypher queries the Neo4j topology graph
	ToolExecuteCypher ToolID = "execute_cypher"

	// ToolExecuteSQL queries the time-series store
	ToolExecuteSQL ToolID = "execute_sql"
)

// UnknownToolError is returned by Lookup for names outside the registry
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("Unknown tool: %s", e.Name)
}

// Registry maps the fixed tool identifiers to their implementations
type Registry struct {
	tools  map[ToolID]interfaces.Tool
	order  []ToolID
	logger logging.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets a custom logger for the registry
func WithLogger(logger logging.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry builds the registry from the two concrete tools. The tool set
// is fixed at construction.
func NewRegistry(topology interfaces.Tool, timeseries interfaces.Tool, opts ...Option) *Registry {
	r := &Registry{
		tools: map[ToolID]interfaces.Tool{
			ToolExecuteCypher: topology,
			ToolExecuteSQL:    timeseries,
		},
		order:  []ToolID{ToolExecuteCypher, ToolExecuteSQL},
		logger: logging.New(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Tools returns the registered tools in declaration order, for building the
// schema sent to the model.
func (r *Registry) Tools() []interfaces.Tool {
	out := make([]interfaces.Tool, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tools[id])
	}
	return out
}

// Lookup resolves a tool name as produced by the model. Unknown names yield
// a typed *UnknownToolError.
func (r *Registry) Lookup(name string) (interfaces.Tool, error) {
	tool, ok := r.tools[ToolID(name)]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return tool, nil
}

// Invoke executes the named tool with the given arguments. It is total: an
// unknown name, a missing query argument, a panicking tool, or a failing
// backend all surface as a failed ToolResult, never as an error or panic.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]interface{}) (result interfaces.ToolResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error(ctx, "Tool invocation panicked", map[string]interface{}{
				"tool":  name,
				"panic": fmt.Sprintf("%v", rec),
			})
			result = interfaces.ToolResult{
				Success: false,
				Error:   fmt.Sprintf("Query execution error: %v", rec),
			}
		}
	}()

	tool, err := r.Lookup(name)
	if err != nil {
		return interfaces.ToolResult{Success: false, Error: err.Error()}
	}

	query, ok := args["query"].(string)
	if !ok {
		return interfaces.ToolResult{
			Success: false,
			Error:   fmt.Sprintf("Validation error: tool '%s' requires a string 'query' argument", name),
		}
	}

	return tool.Execute(ctx, query)
}
