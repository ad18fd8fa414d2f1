package tracing

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facilitymind/building-agent/pkg/interfaces"
	"github.com/facilitymind/building-agent/pkg/logging"
)

func TestNew_SelectsNoopWithoutKeys(t *testing.T) {
	tracer := New(context.Background(), Config{}, logging.Nop())

	_, ok := tracer.(*NoopTracer)
	assert.True(t, ok, "missing keys must select the no-op tracer")
}

func TestNew_SelectsLangfuseWithKeys(t *testing.T) {
	tracer := New(context.Background(), Config{
		PublicKey: "pk-lf-test",
		SecretKey: "sk-lf-test",
		Host:      "https://langfuse.example.com",
	}, logging.Nop())

	_, ok := tracer.(*LangfuseTracer)
	assert.True(t, ok)
}

func TestNoopTracer_InertHandles(t *testing.T) {
	tracer := NewNoopTracer()
	ctx := context.Background()

	runCtx, run := tracer.StartRun(ctx, "agent_run", map[string]interface{}{"query": "hi"},
		interfaces.WithUserID("user-1"))
	assert.Equal(t, ctx, runCtx, "no-op tracer must not alter the context")

	spanCtx, span := run.StartSpan(runCtx, "iteration_1", nil)
	_, gen := span.StartGeneration(spanCtx, "llm_call", "model-x", nil)
	_, tool := span.StartToolSpan(spanCtx, "tool_execute_cypher", nil)

	// all operations are safe no-ops, in any order and any number of times
	gen.Update("output")
	gen.End()
	gen.End()
	tool.Update(nil)
	tool.End()
	span.Update(map[string]interface{}{"action": "tool_call"})
	span.End()
	run.Update("final")
	run.End()
	run.Flush(ctx)

	assert.Empty(t, run.TraceURL())
}

func TestLangfuseTracer_TraceURL(t *testing.T) {
	tracer, err := NewLangfuseTracer(context.Background(), Config{
		PublicKey: "pk-lf-test",
		SecretKey: "sk-lf-test",
		Host:      "https://langfuse.example.com",
	}, logging.Nop())
	require.NoError(t, err)

	_, run := tracer.StartRun(context.Background(), "agent_run", map[string]interface{}{"query": "hi"})
	defer run.End()

	url := run.TraceURL()
	require.True(t, strings.HasPrefix(url, "https://langfuse.example.com/trace/"), "got %s", url)
	assert.Greater(t, len(url), len("https://langfuse.example.com/trace/"))
}

func TestLangfuseTracer_DefaultHost(t *testing.T) {
	tracer, err := NewLangfuseTracer(context.Background(), Config{
		PublicKey: "pk-lf-test",
		SecretKey: "sk-lf-test",
	}, logging.Nop())
	require.NoError(t, err)

	_, run := tracer.StartRun(context.Background(), "agent_run", nil)
	defer run.End()

	assert.True(t, strings.HasPrefix(run.TraceURL(), "https://cloud.langfuse.com/trace/"))
}

func TestLangfuseSpan_EndIsIdempotentAndUpdateAfterEndIsSafe(t *testing.T) {
	tracer, err := NewLangfuseTracer(context.Background(), Config{
		PublicKey: "pk-lf-test",
		SecretKey: "sk-lf-test",
		Host:      "https://langfuse.example.com",
	}, logging.Nop())
	require.NoError(t, err)

	ctx, run := tracer.StartRun(context.Background(), "agent_run", nil)
	_, span := run.StartSpan(ctx, "iteration_1", map[string]interface{}{"iteration": 1})

	span.Update(map[string]interface{}{"action": "nudge"})
	span.Update(map[string]interface{}{"action": "final_answer"}) // last write wins
	span.End()
	span.End()                     // second End is a no-op
	span.Update("after end")       // must not panic
	run.End()
	run.Update("after end either") // must not panic
}

func TestConfig_Enabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.False(t, Config{PublicKey: "pk"}.Enabled())
	assert.False(t, Config{SecretKey: "sk"}.Enabled())
	assert.True(t, Config{PublicKey: "pk", SecretKey: "sk"}.Enabled())
}
