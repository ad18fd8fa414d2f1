package interfaces

import "context"

// Tracer records agent runs as a tree of spans. Two implementations exist:
// a Langfuse-backed tracer and a no-op tracer for when observability is not
// configured. Callers pick one at startup and never branch on it afterwards.
//
// Tracing is best-effort by contract: no method returns an error, and a
// failing backend must never alter the behavior of the code being traced.
type Tracer interface {
	// StartRun begins the root span for one agent run. The returned context
	// carries the span for child creation; End must be called on every exit
	// path.
	StartRun(ctx context.Context, name string, input interface{}, opts ...RunOption) (context.Context, RunSpan)
}

// Span is a scoped observability handle. Children are created from their
// parent handle, so the trace tree mirrors the call nesting explicitly.
type Span interface {
	// StartSpan opens a child span under this one
	StartSpan(ctx context.Context, name string, input interface{}) (context.Context, Span)

	// StartGeneration opens a child span marked as a model generation
	StartGeneration(ctx context.Context, name string, model string, input interface{}) (context.Context, Span)

	// StartToolSpan opens a child span marked as a tool execution
	StartToolSpan(ctx context.Context, name string, input interface{}) (context.Context, Span)

	// Update attaches output to a still-open span. Safe to call multiple
	// times; the last write wins.
	Update(output interface{})

	// End closes the span. Safe to call more than once; only the first call
	// emits the closing record.
	End()
}

// RunSpan is the root span of a run
type RunSpan interface {
	Span

	// TraceURL returns a link to the trace in the observability backend, or
	// an empty string when none is available
	TraceURL() string

	// Flush pushes pending trace data to the backend, best-effort
	Flush(ctx context.Context)
}

// RunOptions carries optional attributes for a root span
type RunOptions struct {
	UserID   string
	Metadata map[string]interface{}
}

// RunOption configures a root span
type RunOption func(*RunOptions)

// WithUserID attaches a user identifier to the run
func WithUserID(userID string) RunOption {
	return func(o *RunOptions) {
		o.UserID = userID
	}
}

// WithRunMetadata attaches metadata to the run
func WithRunMetadata(metadata map[string]interface{}) RunOption {
	return func(o *RunOptions) {
		o.Metadata = metadata
	}
}
