package openai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facilitymind/building-agent/pkg/interfaces"
)

type stubTool struct{}

func (stubTool) Name() string        { return "execute_sql" }
func (stubTool) Description() string { return "Run a SQL query" }
func (stubTool) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"query": {Type: "string", Description: "The query", Required: true},
	}
}
func (stubTool) Execute(ctx context.Context, query string) interfaces.ToolResult {
	return interfaces.ToolResult{Success: true}
}

func TestBuildTools_FunctionDefinition(t *testing.T) {
	built := buildTools([]interfaces.Tool{stubTool{}})
	require.Len(t, built, 1)
	require.NotNil(t, built[0].OfFunction)

	definition := built[0].OfFunction.Function
	assert.Equal(t, "execute_sql", definition.Name)
	assert.Equal(t, "Run a SQL query", definition.Description.Value)
	assert.Equal(t, []string{"query"}, definition.Parameters["required"])

	properties, ok := definition.Parameters["properties"].(map[string]interface{})
	require.True(t, ok)
	require.Contains(t, properties, "query")
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}
