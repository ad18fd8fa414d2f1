// Package gemini implements the completion service over the Google Gemini
// API with function calling.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/facilitymind/building-agent/pkg/interfaces"
	"github.com/facilitymind/building-agent/pkg/logging"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-3-flash-preview"

// GeminiClient implements interfaces.CompletionService using Gemini
// function calling
type GeminiClient struct {
	client *genai.Client
	model  string
	logger logging.Logger
}

var _ interfaces.CompletionService = (*GeminiClient)(nil)

// Option configures the client
type Option func(*GeminiClient)

// WithModel sets the model to use
func WithModel(model string) Option {
	return func(c *GeminiClient) {
		c.model = model
	}
}

// WithLogger sets a custom logger
func WithLogger(logger logging.Logger) Option {
	return func(c *GeminiClient) {
		c.logger = logger
	}
}

// NewClient creates a Gemini-backed completion service
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	c := &GeminiClient{
		client: client,
		model:  DefaultModel,
		logger: logging.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the configured model identifier
func (c *GeminiClient) Model() string {
	return c.model
}

// Name returns the provider name
func (c *GeminiClient) Name() string {
	return "gemini"
}

// GenerateWithTools implements interfaces.CompletionService. The response
// is classified into exactly one of a tool invocation or free text; an
// empty or blocked response is reported as an error.
func (c *GeminiClient) GenerateWithTools(ctx context.Context, systemPrompt string, conversation []interfaces.Message, tools []interfaces.Tool) (*interfaces.ModelResponse, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Tools:             buildTools(tools),
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAuto,
			},
		},
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, buildContents(conversation), config)
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}

	if len(result.Candidates) == 0 {
		return nil, fmt.Errorf("model returned no candidates")
	}
	candidate := result.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("model returned empty content")
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.FunctionCall != nil && part.FunctionCall.Name != "" {
			c.logger.Debug(ctx, "Model requested tool", map[string]interface{}{
				"tool": part.FunctionCall.Name,
			})
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]interface{}{}
			}
			return &interfaces.ModelResponse{
				ToolCall: &interfaces.ToolCall{
					Name:      part.FunctionCall.Name,
					Arguments: args,
				},
			}, nil
		}
		if part.Text != "" {
			text.WriteString(part.Text)
		}
	}

	if text.Len() == 0 {
		return nil, fmt.Errorf("model returned neither text nor a tool call")
	}
	return &interfaces.ModelResponse{Text: text.String()}, nil
}

// buildContents maps the conversation into Gemini contents. Tool results
// are sent back as function responses.
func buildContents(conversation []interfaces.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(conversation))
	for _, message := range conversation {
		switch message.Role {
		case interfaces.MessageRoleUser:
			contents = append(contents, genai.NewContentFromText(message.Content, genai.RoleUser))
		case interfaces.MessageRoleAssistant:
			contents = append(contents, genai.NewContentFromText(message.Content, genai.RoleModel))
		case interfaces.MessageRoleTool:
			part := genai.NewPartFromFunctionResponse(message.ToolName, map[string]interface{}{
				"result": message.Content,
			})
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		}
	}
	return contents
}

// buildTools converts the declared tool schema into Gemini function
// declarations
func buildTools(tools []interfaces.Tool) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		properties := make(map[string]*genai.Schema, len(tool.Parameters()))
		required := []string{}
		for name, spec := range tool.Parameters() {
			properties[name] = &genai.Schema{
				Type:        schemaType(spec.Type),
				Description: spec.Description,
			}
			if spec.Required {
				required = append(required, name)
			}
		}

		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: properties,
				Required:   required,
			},
		})
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

func schemaType(t string) genai.Type {
	switch t {
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeString
	}
}
