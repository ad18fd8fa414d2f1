// Package openai implements the completion service over the OpenAI chat
// completions API with tool calling.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/facilitymind/building-agent/pkg/interfaces"
	"github.com/facilitymind/building-agent/pkg/logging"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gpt-4o"

// OpenAIClient implements interfaces.CompletionService using OpenAI tool
// calling
type OpenAIClient struct {
	client openai.Client
	model  string
	logger logging.Logger
}

var _ interfaces.CompletionService = (*OpenAIClient)(nil)

// Option configures the client
type Option func(*OpenAIClient)

// WithModel sets the model to use
func WithModel(model string) Option {
	return func(c *OpenAIClient) {
		c.model = model
	}
}

// WithLogger sets a custom logger
func WithLogger(logger logging.Logger) Option {
	return func(c *OpenAIClient) {
		c.logger = logger
	}
}

// NewClient creates an OpenAI-backed completion service
func NewClient(apiKey string, opts ...Option) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	c := &OpenAIClient{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  DefaultModel,
		logger: logging.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the configured model identifier
func (c *OpenAIClient) Model() string {
	return c.model
}

// Name returns the provider name
func (c *OpenAIClient) Name() string {
	return "openai"
}

// GenerateWithTools implements interfaces.CompletionService
func (c *OpenAIClient) GenerateWithTools(ctx context.Context, systemPrompt string, conversation []interfaces.Message, tools []interfaces.Tool) (*interfaces.ModelResponse, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(conversation)+1)
	messages = append(messages, openai.SystemMessage(systemPrompt))
	for _, message := range conversation {
		switch message.Role {
		case interfaces.MessageRoleUser:
			messages = append(messages, openai.UserMessage(message.Content))
		case interfaces.MessageRoleAssistant:
			messages = append(messages, openai.AssistantMessage(message.Content))
		case interfaces.MessageRoleTool:
			// Tool results are replayed as user turns: the provider-neutral
			// conversation does not carry OpenAI tool-call IDs.
			messages = append(messages, openai.UserMessage(
				fmt.Sprintf("[%s result]\n%s", message.ToolName, message.Content)))
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: messages,
		Tools:    buildTools(tools),
	})
	if err != nil {
		return nil, fmt.Errorf("openai generation failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}
	choice := completion.Choices[0]

	if len(choice.Message.ToolCalls) > 0 {
		call := choice.Message.ToolCalls[0]
		arguments := map[string]interface{}{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &arguments); err != nil {
				return nil, fmt.Errorf("failed to parse tool arguments: %w", err)
			}
		}
		c.logger.Debug(ctx, "Model requested tool", map[string]interface{}{
			"tool": call.Function.Name,
		})
		return &interfaces.ModelResponse{
			ToolCall: &interfaces.ToolCall{
				Name:      call.Function.Name,
				Arguments: arguments,
			},
		}, nil
	}

	if choice.Message.Content == "" {
		return nil, fmt.Errorf("model returned an empty response")
	}
	return &interfaces.ModelResponse{Text: choice.Message.Content}, nil
}

// buildTools converts the declared tool schema into OpenAI function tools
func buildTools(tools []interfaces.Tool) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		properties := make(map[string]interface{}, len(tool.Parameters()))
		required := []string{}
		for name, spec := range tool.Parameters() {
			property := map[string]interface{}{
				"type":        spec.Type,
				"description": spec.Description,
			}
			if len(spec.Enum) > 0 {
				property["enum"] = spec.Enum
			}
			properties[name] = property
			if spec.Required {
				required = append(required, name)
			}
		}

		out = append(out, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        tool.Name(),
			Description: openai.String(tool.Description()),
			Parameters: shared.FunctionParameters{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		}))
	}
	return out
}
