package interfaces

import "context"

// MessageRole identifies who produced a conversation turn
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleTool      MessageRole = "tool"
)

// Message is a single turn in an agent conversation
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
	// ToolName is set on tool-result turns to identify which tool produced the content
	ToolName string `json:"tool_name,omitempty"`
}

// ToolCall is a structured tool invocation produced by the model
type ToolCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ModelResponse is the outcome of one completion call. Exactly one of
// ToolCall or Text is populated.
type ModelResponse struct {
	ToolCall *ToolCall `json:"tool_call,omitempty"`
	Text     string    `json:"text,omitempty"`
}

// CompletionService generates a model turn from a system prompt, the
// accumulated conversation, and the declared tool schema
type CompletionService interface {
	// GenerateWithTools returns either a tool invocation or free text.
	// An empty or malformed model response is reported as an error.
	GenerateWithTools(ctx context.Context, systemPrompt string, conversation []Message, tools []Tool) (*ModelResponse, error)

	// Model returns the model identifier used for generation
	Model() string

	// Name returns the name of the provider
	Name() string
}
