package interfaces

import "context"

// ParameterSpec describes a single tool parameter for the model
type ParameterSpec struct {
	Type        string        `json:"type"`
	Description string        `json:"description"`
	Required    bool          `json:"required"`
	Default     interface{}   `json:"default,omitempty"`
	Enum        []interface{} `json:"enum,omitempty"`
}

// ToolResult is the outcome of a tool invocation. When Success is true,
// Data and RowCount are populated; when false, Error holds the message.
type ToolResult struct {
	Success  bool                     `json:"success"`
	Data     []map[string]interface{} `json:"data,omitempty"`
	RowCount int                      `json:"row_count,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

// Tool is a named, schema-declared callable the model may invoke
type Tool interface {
	// Name returns the name of the tool as declared to the model
	Name() string

	// Description returns a natural-language description of what the tool does
	Description() string

	// Parameters returns the parameters that the tool accepts
	Parameters() map[string]ParameterSpec

	// Execute runs the tool against its backend. It never panics and never
	// returns an error: all failures are reported inside the ToolResult.
	Execute(ctx context.Context, query string) ToolResult
}

// QueryRunner executes a query string against a backing store and returns
// the result rows. Implementations scope their connection to the call.
type QueryRunner interface {
	Run(ctx context.Context, query string) ([]map[string]interface{}, error)
}
