package agent

import "github.com/facilitymind/building-agent/pkg/interfaces"

// AgentStep records a single tool invocation in a run. The ordered sequence
// of steps forms the audit trail of the answer.
type AgentStep struct {
	Thought    string                 `json:"thought"`
	ToolName   string                 `json:"tool_name,omitempty"`
	ToolInput  map[string]interface{} `json:"tool_input,omitempty"`
	ToolResult *interfaces.ToolResult `json:"tool_result,omitempty"`
}

// AgentResponse is the complete result of one run. It is fully populated
// before Run returns and not mutated afterwards.
type AgentResponse struct {
	Steps       []AgentStep `json:"steps"`
	FinalAnswer string      `json:"final_answer"`
	TraceURL    string      `json:"trace_url,omitempty"`
}
