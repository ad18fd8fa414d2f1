// Package tracing records agent runs in Langfuse via the OpenTelemetry SDK.
// It is fail-open by contract: no trace operation returns an error, and a
// broken or absent backend never changes the behavior of the traced code.
package tracing

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/facilitymind/building-agent/pkg/interfaces"
	"github.com/facilitymind/building-agent/pkg/logging"
)

const defaultLangfuseHost = "https://cloud.langfuse.com"

// Langfuse observation attribute keys, per the Langfuse OTLP mapping
const (
	attrObservationType  = "langfuse.observation.type"
	attrObservationInput = "langfuse.observation.input"
	attrObservationOut   = "langfuse.observation.output"
	attrObservationModel = "langfuse.observation.model.name"
	attrTraceInput       = "langfuse.trace.input"
	attrTraceOutput      = "langfuse.trace.output"
	attrTraceMetadata    = "langfuse.trace.metadata"
	attrUserID           = "user.id"
)

// Config holds Langfuse connection settings
type Config struct {
	PublicKey string
	SecretKey string
	Host      string // defaults to cloud.langfuse.com
}

// Enabled reports whether both API keys are present
func (c Config) Enabled() bool {
	return c.PublicKey != "" && c.SecretKey != ""
}

// LangfuseTracer exports spans to Langfuse over OTLP/HTTP
type LangfuseTracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	host     string
	logger   logging.Logger
}

var _ interfaces.Tracer = (*LangfuseTracer)(nil)

// New selects the tracer implementation once, from configuration: a
// Langfuse-backed tracer when keys are configured, the no-op tracer
// otherwise. Initialization failures degrade to the no-op tracer with a
// warning rather than failing the caller.
func New(ctx context.Context, cfg Config, logger logging.Logger) interfaces.Tracer {
	if logger == nil {
		logger = logging.New()
	}
	if !cfg.Enabled() {
		logger.Info(ctx, "Langfuse not configured, tracing disabled", nil)
		return NewNoopTracer()
	}

	tracer, err := NewLangfuseTracer(ctx, cfg, logger)
	if err != nil {
		logger.Warn(ctx, "Failed to initialize Langfuse tracing, continuing without it", map[string]interface{}{
			"error": err.Error(),
		})
		return NewNoopTracer()
	}

	logger.Info(ctx, "Langfuse tracing enabled", map[string]interface{}{"host": tracer.host})
	return tracer
}

// NewLangfuseTracer builds a tracer exporting to the Langfuse OTLP endpoint
func NewLangfuseTracer(ctx context.Context, cfg Config, logger logging.Logger) (*LangfuseTracer, error) {
	if logger == nil {
		logger = logging.New()
	}
	host := cfg.Host
	if host == "" {
		host = defaultLangfuseHost
	}

	auth := base64.StdEncoding.EncodeToString([]byte(cfg.PublicKey + ":" + cfg.SecretKey))
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(host+"/api/public/otel/v1/traces"),
		otlptracehttp.WithHeaders(map[string]string{
			"Authorization": "Basic " + auth,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))

	return &LangfuseTracer{
		provider: provider,
		tracer:   provider.Tracer("github.com/facilitymind/building-agent/pkg/tracing"),
		host:     host,
		logger:   logger,
	}, nil
}

// StartRun implements interfaces.Tracer
func (t *LangfuseTracer) StartRun(ctx context.Context, name string, input interface{}, opts ...interfaces.RunOption) (context.Context, interfaces.RunSpan) {
	options := interfaces.RunOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	ctx, otelSpan := t.tracer.Start(ctx, name)
	otelSpan.SetAttributes(attribute.String(attrObservationType, "span"))
	t.setJSONAttr(ctx, otelSpan, attrTraceInput, input)
	t.setJSONAttr(ctx, otelSpan, attrObservationInput, input)
	if options.UserID != "" {
		otelSpan.SetAttributes(attribute.String(attrUserID, options.UserID))
	}
	if len(options.Metadata) > 0 {
		t.setJSONAttr(ctx, otelSpan, attrTraceMetadata, options.Metadata)
	}

	return ctx, &langfuseRunSpan{
		langfuseSpan: langfuseSpan{tracer: t, span: otelSpan, outputAttrs: []string{attrTraceOutput, attrObservationOut}},
	}
}

// Shutdown flushes and stops the exporter. For process teardown.
func (t *LangfuseTracer) Shutdown(ctx context.Context) {
	if err := t.provider.Shutdown(ctx); err != nil {
		t.logger.Warn(ctx, "Failed to shut down trace provider", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// setJSONAttr marshals a value and attaches it as a span attribute. Marshal
// failures are logged and swallowed: tracing must never break the caller.
func (t *LangfuseTracer) setJSONAttr(ctx context.Context, span trace.Span, key string, value interface{}) {
	if value == nil {
		return
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		t.logger.Warn(ctx, "Failed to encode trace attribute", map[string]interface{}{
			"attribute": key,
			"error":     err.Error(),
		})
		return
	}
	span.SetAttributes(attribute.String(key, string(encoded)))
}

// langfuseSpan is a scoped handle over one OTEL span
type langfuseSpan struct {
	tracer      *LangfuseTracer
	span        trace.Span
	outputAttrs []string

	mu    sync.Mutex
	ended bool
}

func (s *langfuseSpan) startChild(ctx context.Context, name, observationType string, input interface{}) (context.Context, *langfuseSpan) {
	childCtx, otelSpan := s.tracer.tracer.Start(ctx, name)
	otelSpan.SetAttributes(attribute.String(attrObservationType, observationType))
	s.tracer.setJSONAttr(childCtx, otelSpan, attrObservationInput, input)
	return childCtx, &langfuseSpan{
		tracer:      s.tracer,
		span:        otelSpan,
		outputAttrs: []string{attrObservationOut},
	}
}

// StartSpan implements interfaces.Span
func (s *langfuseSpan) StartSpan(ctx context.Context, name string, input interface{}) (context.Context, interfaces.Span) {
	return s.startChild(ctx, name, "span", input)
}

// StartGeneration implements interfaces.Span
func (s *langfuseSpan) StartGeneration(ctx context.Context, name string, model string, input interface{}) (context.Context, interfaces.Span) {
	childCtx, child := s.startChild(ctx, name, "generation", input)
	if model != "" {
		child.span.SetAttributes(attribute.String(attrObservationModel, model))
	}
	return childCtx, child
}

// StartToolSpan implements interfaces.Span
func (s *langfuseSpan) StartToolSpan(ctx context.Context, name string, input interface{}) (context.Context, interfaces.Span) {
	return s.startChild(ctx, name, "tool", input)
}

// Update implements interfaces.Span. Last write wins.
func (s *langfuseSpan) Update(output interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	for _, key := range s.outputAttrs {
		s.tracer.setJSONAttr(context.Background(), s.span, key, output)
	}
}

// End implements interfaces.Span. Only the first call emits the record.
func (s *langfuseSpan) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.span.End()
}

// langfuseRunSpan is the root span of a run
type langfuseRunSpan struct {
	langfuseSpan
}

// TraceURL returns the Langfuse UI link for this trace
func (s *langfuseRunSpan) TraceURL() string {
	traceID := s.span.SpanContext().TraceID()
	if !traceID.IsValid() {
		return ""
	}
	return fmt.Sprintf("%s/trace/%s", s.tracer.host, traceID.String())
}

// Flush pushes pending spans to Langfuse, best-effort
func (s *langfuseRunSpan) Flush(ctx context.Context) {
	if err := s.tracer.provider.ForceFlush(ctx); err != nil {
		s.tracer.logger.Warn(ctx, "Failed to flush traces", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
