// Package agent implements the orchestration loop that answers questions
// about a building by iteratively calling a language model and executing the
// tools it requests.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/facilitymind/building-agent/pkg/interfaces"
	"github.com/facilitymind/building-agent/pkg/logging"
	"github.com/facilitymind/building-agent/pkg/tools"
	"github.com/facilitymind/building-agent/pkg/tracing"
)

// DefaultMaxIterations bounds the number of model turns per run
const DefaultMaxIterations = 10

// maxRowsRendered caps how many result rows are rendered back to the model
const maxRowsRendered = 20

// nudgeMessage is the synthetic user turn sent when the model describes a
// tool call instead of making one
const nudgeMessage = "Please actually call the tool now with a query. Don't describe what you'll do - execute the function."

// Budget-exhaustion answers, depending on whether any data was gathered
const (
	answerExhaustedWithData = "I gathered some data but couldn't complete the analysis. Please see the results above."
	answerExhaustedNoData   = "I wasn't able to answer your question."
)

// toolIntentPhrases mark free text that announces a tool call without making
// one. This is a heuristic substring match, not a semantic guarantee.
var toolIntentPhrases = []string{
	"i'll use", "i will use", "i'll call", "i will call",
	"let me use", "let me call", "i need to use", "i need to call",
	"using execute_", "call execute_",
}

// runState is the state of the orchestration loop after one pass
type runState int

const (
	stateThinking runState = iota
	stateToolCall
	stateNudge
	stateFinalAnswer
	stateError
	stateBudgetExhausted
)

// terminal reports whether the loop stops in this state
func (s runState) terminal() bool {
	switch s {
	case stateFinalAnswer, stateError, stateBudgetExhausted:
		return true
	}
	return false
}

// Agent drives the plan-act-observe cycle over the building databases
type Agent struct {
	llm           interfaces.CompletionService
	registry      *tools.Registry
	tracer        interfaces.Tracer
	logger        logging.Logger
	systemPrompt  string
	maxIterations int
}

// Option configures an Agent
type Option func(*Agent)

// WithLLM sets the completion service for the agent
func WithLLM(llm interfaces.CompletionService) Option {
	return func(a *Agent) {
		a.llm = llm
	}
}

// WithRegistry sets the tool registry for the agent
func WithRegistry(registry *tools.Registry) Option {
	return func(a *Agent) {
		a.registry = registry
	}
}

// WithTracer sets the tracer for the agent
func WithTracer(tracer interfaces.Tracer) Option {
	return func(a *Agent) {
		a.tracer = tracer
	}
}

// WithLogger sets the logger for the agent
func WithLogger(logger logging.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithSystemPrompt overrides the default system prompt
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		a.systemPrompt = prompt
	}
}

// WithMaxIterations overrides the iteration budget
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		a.maxIterations = n
	}
}

// NewAgent creates an agent with the given options
func NewAgent(options ...Option) (*Agent, error) {
	agent := &Agent{
		systemPrompt:  DefaultSystemPrompt,
		maxIterations: DefaultMaxIterations,
	}

	for _, option := range options {
		option(agent)
	}

	if agent.llm == nil {
		return nil, fmt.Errorf("completion service is required")
	}
	if agent.registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	if agent.tracer == nil {
		agent.tracer = tracing.NewNoopTracer()
	}
	if agent.logger == nil {
		agent.logger = logging.New()
	}
	if agent.maxIterations <= 0 {
		agent.maxIterations = DefaultMaxIterations
	}

	return agent, nil
}

// Run processes one user query through the agentic loop. It is total: any
// failure is reported inside the returned AgentResponse, never as an error
// or panic to the caller.
func (a *Agent) Run(ctx context.Context, userQuery string, userID string) *AgentResponse {
	ctx, run := a.tracer.StartRun(ctx, "agent_run",
		map[string]interface{}{"query": userQuery},
		interfaces.WithUserID(userID),
	)
	defer run.End()

	response := &AgentResponse{}
	conversation := []interfaces.Message{
		{Role: interfaces.MessageRoleUser, Content: userQuery},
	}

	state := stateThinking
	for iteration := 1; iteration <= a.maxIterations; iteration++ {
		a.logger.Debug(ctx, "Starting iteration", map[string]interface{}{
			"iteration": iteration,
			"messages":  len(conversation),
		})

		state = a.step(ctx, run, iteration, &conversation, response)
		if state.terminal() {
			break
		}
	}

	if !state.terminal() {
		state = stateBudgetExhausted
		if len(response.Steps) > 0 {
			response.FinalAnswer = answerExhaustedWithData
		} else {
			response.FinalAnswer = answerExhaustedNoData
		}
	}

	toolsUsed := make([]string, 0, len(response.Steps))
	for _, step := range response.Steps {
		toolsUsed = append(toolsUsed, step.ToolName)
	}
	run.Update(map[string]interface{}{
		"final_answer": response.FinalAnswer,
		"steps_count":  len(response.Steps),
		"tools_used":   toolsUsed,
	})

	run.End()
	response.TraceURL = run.TraceURL()
	run.Flush(ctx)

	return response
}

// step executes one pass through the loop: one model turn, and at most one
// tool call. A panic anywhere in the pass is converted into the ERROR state
// so Run stays total.
func (a *Agent) step(ctx context.Context, run interfaces.RunSpan, iteration int, conversation *[]interfaces.Message, response *AgentResponse) (state runState) {
	spanCtx, iterSpan := run.StartSpan(ctx, fmt.Sprintf("iteration_%d", iteration), map[string]interface{}{
		"iteration": iteration,
		"messages":  len(*conversation),
	})
	defer iterSpan.End()

	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error(ctx, "Panic in agent iteration", map[string]interface{}{
				"iteration": iteration,
				"panic":     fmt.Sprintf("%v", rec),
			})
			iterSpan.Update(map[string]interface{}{"error": fmt.Sprintf("%v", rec)})
			response.FinalAnswer = fmt.Sprintf("Error: %v", rec)
			state = stateError
		}
	}()

	genCtx, gen := iterSpan.StartGeneration(spanCtx, "llm_call", a.llm.Model(), map[string]interface{}{
		"system_prompt": a.systemPrompt,
		"messages":      *conversation,
	})
	modelResponse, err := a.llm.GenerateWithTools(genCtx, a.systemPrompt, *conversation, a.registry.Tools())
	if err != nil {
		gen.Update(map[string]interface{}{"error": err.Error()})
		gen.End()
		a.logger.Error(ctx, "Completion service failed", map[string]interface{}{
			"iteration": iteration,
			"error":     err.Error(),
		})
		iterSpan.Update(map[string]interface{}{"error": err.Error()})
		response.FinalAnswer = fmt.Sprintf("Error: %s", err.Error())
		return stateError
	}
	gen.Update(modelResponse)
	gen.End()

	if modelResponse.ToolCall != nil {
		a.handleToolCall(spanCtx, iterSpan, modelResponse.ToolCall, conversation, response)
		return stateToolCall
	}

	content := modelResponse.Text

	// The model described a tool call without making one: nudge it. The
	// iteration counter bounds how often this can repeat.
	if describesToolIntent(content) {
		*conversation = append(*conversation,
			interfaces.Message{Role: interfaces.MessageRoleAssistant, Content: content},
			interfaces.Message{Role: interfaces.MessageRoleUser, Content: nudgeMessage},
		)
		iterSpan.Update(map[string]interface{}{
			"action":       "nudge",
			"llm_response": content,
		})
		return stateNudge
	}

	response.FinalAnswer = content
	iterSpan.Update(map[string]interface{}{
		"action": "final_answer",
		"answer": content,
	})
	return stateFinalAnswer
}

// handleToolCall executes the requested tool and appends the observation to
// the conversation: an assistant turn recording the call, and a tool turn
// holding the rendered result.
func (a *Agent) handleToolCall(ctx context.Context, iterSpan interfaces.Span, call *interfaces.ToolCall, conversation *[]interfaces.Message, response *AgentResponse) {
	toolCtx, toolSpan := iterSpan.StartToolSpan(ctx, "tool_"+call.Name, call.Arguments)
	result := a.registry.Invoke(toolCtx, call.Name, call.Arguments)
	toolSpan.Update(result)
	toolSpan.End()

	a.logger.Info(ctx, "Tool executed", map[string]interface{}{
		"tool":    call.Name,
		"success": result.Success,
		"rows":    result.RowCount,
	})

	response.Steps = append(response.Steps, AgentStep{
		Thought:    "Calling " + call.Name,
		ToolName:   call.Name,
		ToolInput:  call.Arguments,
		ToolResult: &result,
	})

	*conversation = append(*conversation,
		interfaces.Message{Role: interfaces.MessageRoleAssistant, Content: "Calling " + call.Name},
		interfaces.Message{Role: interfaces.MessageRoleTool, ToolName: call.Name, Content: formatToolResult(result)},
	)

	iterSpan.Update(map[string]interface{}{
		"action":      "tool_call",
		"tool_name":   call.Name,
		"tool_input":  call.Arguments,
		"tool_result": result,
	})
}

// formatToolResult renders a ToolResult as text for the model. Successful
// results beyond maxRowsRendered rows are truncated with an annotation.
func formatToolResult(result interfaces.ToolResult) string {
	if !result.Success {
		message := result.Error
		if message == "" {
			message = "Unknown error"
		}
		return "Error: " + message
	}

	data := result.Data
	if result.RowCount > maxRowsRendered {
		if len(data) > maxRowsRendered {
			data = data[:maxRowsRendered]
		}
		return fmt.Sprintf("Result (%d rows, showing first %d):\n%s",
			result.RowCount, maxRowsRendered, renderRows(data))
	}
	return fmt.Sprintf("Result (%d rows):\n%s", result.RowCount, renderRows(data))
}

func renderRows(rows []map[string]interface{}) string {
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	encoded, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", rows)
	}
	return string(encoded)
}

// describesToolIntent reports whether free text announces a tool call
// without making one
func describesToolIntent(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range toolIntentPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
