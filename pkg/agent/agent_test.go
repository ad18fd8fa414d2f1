package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facilitymind/building-agent/pkg/interfaces"
	"github.com/facilitymind/building-agent/pkg/logging"
	"github.com/facilitymind/building-agent/pkg/tools"
	"github.com/facilitymind/building-agent/pkg/tools/topology"
)

// scriptedLLM replays a fixed sequence of model responses. Once the script
// is exhausted the last entry repeats, which makes unbounded-model scenarios
// easy to express.
type scriptedLLM struct {
	script           []*interfaces.ModelResponse
	err              error
	calls            int
	lastConversation []interfaces.Message
}

func (s *scriptedLLM) GenerateWithTools(ctx context.Context, systemPrompt string, conversation []interfaces.Message, declared []interfaces.Tool) (*interfaces.ModelResponse, error) {
	s.calls++
	s.lastConversation = append([]interfaces.Message(nil), conversation...)
	if s.err != nil {
		return nil, s.err
	}
	index := s.calls - 1
	if index >= len(s.script) {
		index = len(s.script) - 1
	}
	return s.script[index], nil
}

func (s *scriptedLLM) Model() string { return "scripted-model" }
func (s *scriptedLLM) Name() string  { return "scripted" }

func toolCallResponse(name, query string) *interfaces.ModelResponse {
	return &interfaces.ModelResponse{
		ToolCall: &interfaces.ToolCall{
			Name:      name,
			Arguments: map[string]interface{}{"query": query},
		},
	}
}

func textResponse(text string) *interfaces.ModelResponse {
	return &interfaces.ModelResponse{Text: text}
}

// stubTool is a canned interfaces.Tool for registry wiring
type stubTool struct {
	name   string
	result interfaces.ToolResult
	calls  int
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub" }

func (s *stubTool) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"query": {Type: "string", Required: true},
	}
}

func (s *stubTool) Execute(ctx context.Context, query string) interfaces.ToolResult {
	s.calls++
	return s.result
}

// fakeRunner backs a real topology tool in the destructive-intent test
type fakeRunner struct {
	queries []string
}

func (f *fakeRunner) Run(ctx context.Context, query string) ([]map[string]interface{}, error) {
	f.queries = append(f.queries, query)
	return nil, nil
}

func newTestAgent(t *testing.T, llm interfaces.CompletionService, registry *tools.Registry, opts ...Option) *Agent {
	t.Helper()
	base := []Option{
		WithLLM(llm),
		WithRegistry(registry),
		WithLogger(logging.Nop()),
	}
	a, err := NewAgent(append(base, opts...)...)
	require.NoError(t, err)
	return a
}

func stubRegistry(topologyResult, timeseriesResult interfaces.ToolResult) (*tools.Registry, *stubTool, *stubTool) {
	graph := &stubTool{name: "execute_cypher", result: topologyResult}
	series := &stubTool{name: "execute_sql", result: timeseriesResult}
	return tools.NewRegistry(graph, series, tools.WithLogger(logging.Nop())), graph, series
}

func TestNewAgent_RequiresLLMAndRegistry(t *testing.T) {
	registry, _, _ := stubRegistry(interfaces.ToolResult{}, interfaces.ToolResult{})

	_, err := NewAgent(WithRegistry(registry))
	assert.Error(t, err)

	_, err = NewAgent(WithLLM(&scriptedLLM{}))
	assert.Error(t, err)
}

func TestRun_ToolCallThenAnswer(t *testing.T) {
	registry, graph, _ := stubRegistry(interfaces.ToolResult{
		Success:  true,
		Data:     []map[string]interface{}{{"a.unit_id": "AC-1"}},
		RowCount: 1,
	}, interfaces.ToolResult{})

	llm := &scriptedLLM{script: []*interfaces.ModelResponse{
		toolCallResponse("execute_cypher", "MATCH (a:ACUnit)-[:SERVICES]->(r:Room {room_number: '101'}) RETURN a.unit_id"),
		textResponse("AC-1 services room 101."),
	}}

	a := newTestAgent(t, llm, registry)
	response := a.Run(context.Background(), "Which AC unit services room 101?", "user-1")

	assert.Equal(t, "AC-1 services room 101.", response.FinalAnswer)
	require.Len(t, response.Steps, 1)
	assert.Equal(t, "execute_cypher", response.Steps[0].ToolName)
	assert.Equal(t, "Calling execute_cypher", response.Steps[0].Thought)
	require.NotNil(t, response.Steps[0].ToolResult)
	assert.True(t, response.Steps[0].ToolResult.Success)
	assert.Equal(t, 1, graph.calls)
	assert.Equal(t, 2, llm.calls)

	// the second model call sees the original query plus the two turns
	// recorded around the tool call
	require.Len(t, llm.lastConversation, 3)
	assert.Equal(t, interfaces.MessageRoleUser, llm.lastConversation[0].Role)
	assert.Equal(t, interfaces.MessageRoleAssistant, llm.lastConversation[1].Role)
	assert.Equal(t, "Calling execute_cypher", llm.lastConversation[1].Content)
	assert.Equal(t, interfaces.MessageRoleTool, llm.lastConversation[2].Role)
	assert.Contains(t, llm.lastConversation[2].Content, "Result (1 rows)")
	assert.Empty(t, response.TraceURL)
}

func TestRun_DestructiveQueryNeverReachesBackend(t *testing.T) {
	runner := &fakeRunner{}
	graphTool := topology.New(runner)
	series := &stubTool{name: "execute_sql"}
	registry := tools.NewRegistry(graphTool, series, tools.WithLogger(logging.Nop()))

	llm := &scriptedLLM{script: []*interfaces.ModelResponse{
		toolCallResponse("execute_cypher", "MATCH (r:TemperatureReading) DETACH DELETE r"),
		textResponse("I can't delete data: the query was rejected because only read operations are permitted."),
	}}

	a := newTestAgent(t, llm, registry)
	response := a.Run(context.Background(), "Delete all temperature readings", "")

	assert.Empty(t, runner.queries, "destructive query must never reach the backend")
	require.Len(t, response.Steps, 1)
	require.NotNil(t, response.Steps[0].ToolResult)
	assert.False(t, response.Steps[0].ToolResult.Success)
	assert.Contains(t, response.Steps[0].ToolResult.Error, "Validation error:")
	assert.NotContains(t, strings.ToLower(response.FinalAnswer), "deleted")
}

func TestRun_TerminatesAtIterationBudget(t *testing.T) {
	registry, graph, _ := stubRegistry(interfaces.ToolResult{
		Success:  true,
		Data:     []map[string]interface{}{{"n": 1}},
		RowCount: 1,
	}, interfaces.ToolResult{})

	// the model calls a tool forever
	llm := &scriptedLLM{script: []*interfaces.ModelResponse{
		toolCallResponse("execute_cypher", "MATCH (n) RETURN n"),
	}}

	a := newTestAgent(t, llm, registry)
	response := a.Run(context.Background(), "keep going", "")

	assert.Equal(t, DefaultMaxIterations, llm.calls, "the completion service is never called an 11th time")
	assert.Equal(t, DefaultMaxIterations, graph.calls)
	assert.Len(t, response.Steps, DefaultMaxIterations)
	assert.Equal(t, answerExhaustedWithData, response.FinalAnswer)
}

func TestRun_NudgeContainment(t *testing.T) {
	registry, graph, series := stubRegistry(interfaces.ToolResult{}, interfaces.ToolResult{})

	// the model describes its intent on every iteration without ever
	// calling a tool
	llm := &scriptedLLM{script: []*interfaces.ModelResponse{
		textResponse("Let me use execute_cypher to look up the sensors."),
	}}

	a := newTestAgent(t, llm, registry)
	response := a.Run(context.Background(), "What sensors are in room 101?", "")

	assert.Equal(t, DefaultMaxIterations, llm.calls)
	assert.Zero(t, graph.calls)
	assert.Zero(t, series.calls)
	assert.Empty(t, response.Steps)
	assert.Equal(t, answerExhaustedNoData, response.FinalAnswer)

	// every nudge appends the model text and the synthetic user instruction
	require.Len(t, llm.lastConversation, 1+2*(DefaultMaxIterations-1))
	last := llm.lastConversation[len(llm.lastConversation)-1]
	assert.Equal(t, interfaces.MessageRoleUser, last.Role)
	assert.Equal(t, nudgeMessage, last.Content)
}

func TestRun_NudgeThenToolCall(t *testing.T) {
	registry, graph, _ := stubRegistry(interfaces.ToolResult{
		Success:  true,
		Data:     []map[string]interface{}{{"s.sensor_id": "TEMP-101"}},
		RowCount: 1,
	}, interfaces.ToolResult{})

	llm := &scriptedLLM{script: []*interfaces.ModelResponse{
		textResponse("I'll call execute_cypher to find the sensor."),
		toolCallResponse("execute_cypher", "MATCH (s:TemperatureSensor) RETURN s.sensor_id"),
		textResponse("The sensor is TEMP-101."),
	}}

	a := newTestAgent(t, llm, registry)
	response := a.Run(context.Background(), "What's the temperature sensor in 101?", "")

	assert.Equal(t, 3, llm.calls)
	assert.Equal(t, 1, graph.calls)
	assert.Len(t, response.Steps, 1)
	assert.Equal(t, "The sensor is TEMP-101.", response.FinalAnswer)
}

func TestRun_CompletionErrorBecomesErrorAnswer(t *testing.T) {
	registry, _, _ := stubRegistry(interfaces.ToolResult{}, interfaces.ToolResult{})
	llm := &scriptedLLM{err: errors.New("model returned no candidates")}

	a := newTestAgent(t, llm, registry)
	response := a.Run(context.Background(), "hello", "")

	assert.Equal(t, 1, llm.calls, "completion errors are not retried")
	assert.Empty(t, response.Steps)
	assert.Equal(t, "Error: model returned no candidates", response.FinalAnswer)
}

func TestRun_UnknownToolSurfacesToModel(t *testing.T) {
	registry, _, _ := stubRegistry(interfaces.ToolResult{}, interfaces.ToolResult{})

	llm := &scriptedLLM{script: []*interfaces.ModelResponse{
		toolCallResponse("execute_graphql", "{ rooms }"),
		textResponse("That tool is not available."),
	}}

	a := newTestAgent(t, llm, registry)
	response := a.Run(context.Background(), "use graphql", "")

	require.Len(t, response.Steps, 1)
	require.NotNil(t, response.Steps[0].ToolResult)
	assert.False(t, response.Steps[0].ToolResult.Success)
	assert.Equal(t, "Unknown tool: execute_graphql", response.Steps[0].ToolResult.Error)

	// the failure is rendered into the tool turn the model sees next
	assert.Contains(t, llm.lastConversation[2].Content, "Error: Unknown tool: execute_graphql")
	assert.Equal(t, "That tool is not available.", response.FinalAnswer)
}

func TestFormatToolResult_TruncatesAtTwentyRows(t *testing.T) {
	rows := make([]map[string]interface{}, 25)
	for i := range rows {
		rows[i] = map[string]interface{}{"reading": i}
	}

	formatted := formatToolResult(interfaces.ToolResult{Success: true, Data: rows, RowCount: 25})
	assert.Contains(t, formatted, "Result (25 rows, showing first 20):")
	assert.Equal(t, 20, strings.Count(formatted, `"reading"`))
}

func TestFormatToolResult_SmallResultsRenderedInFull(t *testing.T) {
	rows := make([]map[string]interface{}, 5)
	for i := range rows {
		rows[i] = map[string]interface{}{"reading": i}
	}

	formatted := formatToolResult(interfaces.ToolResult{Success: true, Data: rows, RowCount: 5})
	assert.Contains(t, formatted, "Result (5 rows):")
	assert.NotContains(t, formatted, "showing first")
	assert.Equal(t, 5, strings.Count(formatted, `"reading"`))
}

func TestFormatToolResult_Failures(t *testing.T) {
	assert.Equal(t, "Error: connection refused",
		formatToolResult(interfaces.ToolResult{Success: false, Error: "connection refused"}))
	assert.Equal(t, "Error: Unknown error",
		formatToolResult(interfaces.ToolResult{Success: false}))
}

func TestDescribesToolIntent(t *testing.T) {
	positives := []string{
		"I'll use execute_cypher to find the room.",
		"I will call the SQL tool next.",
		"Let me use the graph database here.",
		"let me call execute_sql",
		"First I need to use the topology graph.",
		"I was thinking of using execute_sql for this.",
	}
	for _, text := range positives {
		assert.True(t, describesToolIntent(text), "expected intent: %s", text)
	}

	negatives := []string{
		"AC-1 services room 101.",
		"The average temperature was 22.4 degrees.",
		"No occupancy data was recorded yesterday.",
	}
	for _, text := range negatives {
		assert.False(t, describesToolIntent(text), "unexpected intent: %s", text)
	}
}

// recordingTracer captures the span tree to verify the degraded-mode
// contract: tracing on or off, the agent's answer and steps are identical.
type recordingTracer struct {
	spans []string
}

func (r *recordingTracer) StartRun(ctx context.Context, name string, input interface{}, opts ...interfaces.RunOption) (context.Context, interfaces.RunSpan) {
	r.spans = append(r.spans, name)
	return ctx, &recordingRunSpan{recordingSpan: recordingSpan{tracer: r}}
}

type recordingSpan struct {
	tracer *recordingTracer
}

func (s *recordingSpan) StartSpan(ctx context.Context, name string, input interface{}) (context.Context, interfaces.Span) {
	s.tracer.spans = append(s.tracer.spans, name)
	return ctx, &recordingSpan{tracer: s.tracer}
}

func (s *recordingSpan) StartGeneration(ctx context.Context, name string, model string, input interface{}) (context.Context, interfaces.Span) {
	s.tracer.spans = append(s.tracer.spans, name)
	return ctx, &recordingSpan{tracer: s.tracer}
}

func (s *recordingSpan) StartToolSpan(ctx context.Context, name string, input interface{}) (context.Context, interfaces.Span) {
	s.tracer.spans = append(s.tracer.spans, name)
	return ctx, &recordingSpan{tracer: s.tracer}
}

func (s *recordingSpan) Update(output interface{}) {}
func (s *recordingSpan) End()                      {}

type recordingRunSpan struct {
	recordingSpan
}

func (s *recordingRunSpan) TraceURL() string {
	return "https://langfuse.example.com/trace/0123456789abcdef"
}

func (s *recordingRunSpan) Flush(ctx context.Context) {}

func TestRun_DegradedObservabilityIsBehaviorPreserving(t *testing.T) {
	script := []*interfaces.ModelResponse{
		toolCallResponse("execute_cypher", "MATCH (s:TemperatureSensor) RETURN s.sensor_id"),
		toolCallResponse("execute_sql", "SELECT AVG(reading) FROM sensor_readings WHERE sensor_id = 'TEMP-101'"),
		textResponse("The average temperature was 22.4 degrees."),
	}
	graphResult := interfaces.ToolResult{
		Success:  true,
		Data:     []map[string]interface{}{{"s.sensor_id": "TEMP-101"}},
		RowCount: 1,
	}
	seriesResult := interfaces.ToolResult{
		Success:  true,
		Data:     []map[string]interface{}{{"avg": 22.4}},
		RowCount: 1,
	}

	runOnce := func(tracer interfaces.Tracer) *AgentResponse {
		registry, _, _ := stubRegistry(graphResult, seriesResult)
		llm := &scriptedLLM{script: script}
		opts := []Option{}
		if tracer != nil {
			opts = append(opts, WithTracer(tracer))
		}
		a := newTestAgent(t, llm, registry, opts...)
		return a.Run(context.Background(), "Average temperature in room 101?", "user-7")
	}

	recorder := &recordingTracer{}
	traced := runOnce(recorder)
	degraded := runOnce(nil) // defaults to the no-op tracer

	assert.Equal(t, traced.Steps, degraded.Steps)
	assert.Equal(t, traced.FinalAnswer, degraded.FinalAnswer)
	assert.NotEmpty(t, traced.TraceURL)
	assert.Empty(t, degraded.TraceURL)

	// the span tree mirrors the loop nesting: a root, then per iteration a
	// span, a generation, and (for tool turns) a tool span
	expected := []string{
		"agent_run",
		"iteration_1", "llm_call", "tool_execute_cypher",
		"iteration_2", "llm_call", "tool_execute_sql",
		"iteration_3", "llm_call",
	}
	assert.Equal(t, expected, recorder.spans)
}

func TestRun_CustomIterationBudget(t *testing.T) {
	registry, _, _ := stubRegistry(interfaces.ToolResult{Success: true, RowCount: 0}, interfaces.ToolResult{})
	llm := &scriptedLLM{script: []*interfaces.ModelResponse{
		toolCallResponse("execute_cypher", "MATCH (n) RETURN n"),
	}}

	a := newTestAgent(t, llm, registry, WithMaxIterations(3))
	response := a.Run(context.Background(), "loop", "")

	assert.Equal(t, 3, llm.calls)
	assert.Len(t, response.Steps, 3)
	assert.Equal(t, answerExhaustedWithData, response.FinalAnswer)
}

func ExampleAgent_Run() {
	registry := tools.NewRegistry(
		&stubTool{name: "execute_cypher", result: interfaces.ToolResult{
			Success:  true,
			Data:     []map[string]interface{}{{"a.unit_id": "AC-1"}},
			RowCount: 1,
		}},
		&stubTool{name: "execute_sql"},
		tools.WithLogger(logging.Nop()),
	)
	llm := &scriptedLLM{script: []*interfaces.ModelResponse{
		toolCallResponse("execute_cypher", "MATCH (a:ACUnit)-[:SERVICES]->(r:Room {room_number: '101'}) RETURN a.unit_id"),
		textResponse("AC-1 services room 101."),
	}}

	a, _ := NewAgent(WithLLM(llm), WithRegistry(registry), WithLogger(logging.Nop()))
	response := a.Run(context.Background(), "Which AC unit services room 101?", "")
	fmt.Println(response.FinalAnswer)
	// Output: AC-1 services room 101.
}
