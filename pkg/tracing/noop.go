package tracing

import (
	"context"

	"github.com/facilitymind/building-agent/pkg/interfaces"
)

// NoopTracer satisfies interfaces.Tracer with inert handles. Used when no
// observability backend is configured, so orchestration code never has to
// check whether tracing is enabled.
type NoopTracer struct{}

var _ interfaces.Tracer = (*NoopTracer)(nil)

// NewNoopTracer creates a tracer whose operations all do nothing
func NewNoopTracer() *NoopTracer {
	return &NoopTracer{}
}

// StartRun implements interfaces.Tracer
func (t *NoopTracer) StartRun(ctx context.Context, name string, input interface{}, opts ...interfaces.RunOption) (context.Context, interfaces.RunSpan) {
	return ctx, noopRunSpan{}
}

type noopSpan struct{}

func (noopSpan) StartSpan(ctx context.Context, name string, input interface{}) (context.Context, interfaces.Span) {
	return ctx, noopSpan{}
}

func (noopSpan) StartGeneration(ctx context.Context, name string, model string, input interface{}) (context.Context, interfaces.Span) {
	return ctx, noopSpan{}
}

func (noopSpan) StartToolSpan(ctx context.Context, name string, input interface{}) (context.Context, interfaces.Span) {
	return ctx, noopSpan{}
}

func (noopSpan) Update(output interface{}) {}

func (noopSpan) End() {}

type noopRunSpan struct {
	noopSpan
}

func (noopRunSpan) TraceURL() string { return "" }

func (noopRunSpan) Flush(ctx context.Context) {}
