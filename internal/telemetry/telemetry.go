package telemetry

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

var tracerName = "github.com/unkn0wn-root/wsterm/internal/telemetry"

type Instrumenter interface {
	Start(ctx context.Context, info ConnectionStart) (context.Context, ConnectionSpan)
	Shutdown(ctx context.Context) error
}

// ConnectionStart describes a dial attempt before the handshake runs.
type ConnectionStart struct {
	URL         string
	RequestID   string
	RequestName string
	Environment string
}

// ConnectionResult closes the span. HandshakeStatus carries the HTTP status
// of the upgrade response when one was received.
type ConnectionResult struct {
	Err             error
	HandshakeStatus int
	ClosedBy        string
	Duration        time.Duration
}

type ConnectionSpan interface {
	End(result ConnectionResult)
}

type providerOptions struct {
	exporter       sdktrace.SpanExporter
	spanProcessors []sdktrace.SpanProcessor
}

type Option func(*providerOptions)

func WithSpanProcessor(proc sdktrace.SpanProcessor) Option {
	return func(opts *providerOptions) {
		if proc != nil {
			opts.spanProcessors = append(opts.spanProcessors, proc)
		}
	}
}

func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(opts *providerOptions) {
		if exp != nil {
			opts.exporter = exp
		}
	}
}

type manager struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	shutdown sync.Once
}

func New(cfg Config, opts ...Option) (Instrumenter, error) {
	builder := providerOptions{}
	for _, opt := range opts {
		opt(&builder)
	}

	if !cfg.Enabled() && builder.exporter == nil && len(builder.spanProcessors) == 0 {
		return Noop(), nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(buildResourceAttributes(cfg)...),
	)
	if err != nil {
		return nil, err
	}

	exporter := builder.exporter
	if exporter == nil && cfg.Enabled() {
		exporter, err = newExporter(cfg)
		if err != nil {
			return nil, err
		}
	}

	var tpOpts []sdktrace.TracerProviderOption
	tpOpts = append(tpOpts, sdktrace.WithResource(res))
	if exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}
	for _, proc := range builder.spanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(proc))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	return &manager{tracer: tp.Tracer(tracerName), provider: tp}, nil
}

func (m *manager) Start(ctx context.Context, info ConnectionStart) (context.Context, ConnectionSpan) {
	attrs := buildSpanAttributes(info)
	ctx, span := m.tracer.Start(
		ctx,
		spanNameFor(info),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return ctx, &connectionSpan{span: span}
}

func (m *manager) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	var shutdownErr error
	m.shutdown.Do(func() {
		shutdownErr = m.provider.Shutdown(ctx)
	})
	return shutdownErr
}

type connectionSpan struct {
	span trace.Span
}

func (cs *connectionSpan) End(result ConnectionResult) {
	if cs == nil || cs.span == nil {
		return
	}

	if result.HandshakeStatus > 0 {
		cs.span.SetAttributes(semconv.HTTPStatusCodeKey.Int(result.HandshakeStatus))
	}
	if result.ClosedBy != "" {
		cs.span.SetAttributes(attribute.String("wsterm.closed_by", result.ClosedBy))
	}
	if result.Duration > 0 {
		cs.span.SetAttributes(attribute.Int64("wsterm.duration_ms", result.Duration.Milliseconds()))
	}

	if result.Err != nil {
		cs.span.RecordError(result.Err)
		cs.span.SetStatus(codes.Error, result.Err.Error())
	} else {
		cs.span.SetStatus(codes.Ok, "OK")
	}
	cs.span.End()
}

func Noop() Instrumenter {
	return noopInstrumenter{}
}

type noopInstrumenter struct{}

type noopSpan struct{}

func (noopInstrumenter) Start(ctx context.Context, _ ConnectionStart) (context.Context, ConnectionSpan) {
	return ctx, noopSpan{}
}

func (noopInstrumenter) Shutdown(context.Context) error { return nil }

func (noopSpan) End(ConnectionResult) {}

func newExporter(cfg Config) (sdktrace.SpanExporter, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("telemetry endpoint is required")
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	clientOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		clientOpts = append(clientOpts, otlptracegrpc.WithHeaders(cfg.Headers))
	}

	client := otlptracegrpc.NewClient(clientOpts...)
	return otlptrace.New(ctx, client)
}

func buildResourceAttributes(cfg Config) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
	}
	if strings.TrimSpace(cfg.Version) != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.Version))
	}
	return attrs
}

func buildSpanAttributes(info ConnectionStart) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.HTTPMethodKey.String("GET"),
	}

	if parsed, err := url.Parse(info.URL); err == nil {
		if parsed.Scheme != "" {
			attrs = append(attrs, semconv.HTTPSchemeKey.String(parsed.Scheme))
		}
		if parsed.Host != "" {
			attrs = append(attrs, attribute.String("http.host", parsed.Host))
		}
	}
	if info.URL != "" {
		attrs = append(attrs, semconv.HTTPURLKey.String(info.URL))
	}
	if info.RequestID != "" {
		attrs = append(attrs, attribute.String("wsterm.request.id", info.RequestID))
	}
	if name := strings.TrimSpace(info.RequestName); name != "" {
		attrs = append(attrs, attribute.String("wsterm.request.name", name))
	}
	if env := strings.TrimSpace(info.Environment); env != "" {
		attrs = append(attrs, attribute.String("wsterm.environment", env))
	}
	return attrs
}

func spanNameFor(info ConnectionStart) string {
	if name := strings.TrimSpace(info.RequestName); name != "" {
		return name
	}
	if parsed, err := url.Parse(info.URL); err == nil && parsed.Host != "" {
		return "CONNECT " + parsed.Host
	}
	return "websocket.connect"
}
