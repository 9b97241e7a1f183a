// Package telemetry exports one OpenTelemetry span per dispatched request.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/unkn0wn-root/restbench/internal/nettrace"
)

const tracerName = "github.com/unkn0wn-root/restbench/internal/telemetry"

// Instrumenter opens a span around each request the dispatcher sends.
type Instrumenter interface {
	Start(ctx context.Context, info RequestStart) (context.Context, RequestSpan)
	Shutdown(ctx context.Context) error
}

// RequestStart identifies the request being sent. RequestID is the
// collection request id when the request came from a collection.
type RequestStart struct {
	Name        string
	RequestID   string
	HTTPRequest *http.Request
}

type RequestResult struct {
	Err        error
	StatusCode int
	Size       int64
	Fallback   bool
	Timeline   *nettrace.Timeline
}

type RequestSpan interface {
	// Fallback records that the primary transport failed and the raw
	// transport is being tried.
	Fallback(err error)
	End(result RequestResult)
}

type settings struct {
	exporter   sdktrace.SpanExporter
	processors []sdktrace.SpanProcessor
}

type Option func(*settings)

// WithSpanProcessor adds proc next to the exporter. Tests use it with a
// span recorder.
func WithSpanProcessor(proc sdktrace.SpanProcessor) Option {
	return func(s *settings) {
		if proc != nil {
			s.processors = append(s.processors, proc)
		}
	}
}

func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(s *settings) {
		if exp != nil {
			s.exporter = exp
		}
	}
}

type otelInstrumenter struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	once     sync.Once
}

// New returns a no-op instrumenter unless cfg has an endpoint or an
// option supplies somewhere to send spans.
func New(cfg Config, opts ...Option) (Instrumenter, error) {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if !cfg.Enabled() && s.exporter == nil && len(s.processors) == 0 {
		return Noop(), nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(serviceAttributes(cfg)...),
	)
	if err != nil {
		return nil, err
	}

	exp := s.exporter
	if exp == nil && cfg.Enabled() {
		if exp, err = dialExporter(cfg); err != nil {
			return nil, err
		}
	}

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if exp != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
	}
	for _, proc := range s.processors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(proc))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)
	return &otelInstrumenter{tracer: tp.Tracer(tracerName), provider: tp}, nil
}

func (o *otelInstrumenter) Start(ctx context.Context, info RequestStart) (context.Context, RequestSpan) {
	if info.HTTPRequest == nil {
		return ctx, noopSpan{}
	}
	ctx, span := o.tracer.Start(
		ctx,
		spanName(info),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(requestAttributes(info)...),
	)
	return ctx, &requestSpan{span: span}
}

// Shutdown flushes pending spans. Only the first call does any work.
func (o *otelInstrumenter) Shutdown(ctx context.Context) error {
	if o == nil || o.provider == nil {
		return nil
	}
	var err error
	o.once.Do(func() {
		err = o.provider.Shutdown(ctx)
	})
	return err
}

func Noop() Instrumenter {
	return noopInstrumenter{}
}

type noopInstrumenter struct{}

func (noopInstrumenter) Start(ctx context.Context, _ RequestStart) (context.Context, RequestSpan) {
	return ctx, noopSpan{}
}

func (noopInstrumenter) Shutdown(context.Context) error { return nil }

type noopSpan struct{}

func (noopSpan) Fallback(error)    {}
func (noopSpan) End(RequestResult) {}

func dialExporter(cfg Config) (sdktrace.SpanExporter, error) {
	if !cfg.Enabled() {
		return nil, errors.New("telemetry endpoint is required")
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		grpcOpts = append(grpcOpts, otlptracegrpc.WithHeaders(cfg.Headers))
	}
	return otlptrace.New(ctx, otlptracegrpc.NewClient(grpcOpts...))
}

func serviceAttributes(cfg Config) []attribute.KeyValue {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = DefaultServiceName
	}
	attrs := []attribute.KeyValue{semconv.ServiceName(name)}
	if v := strings.TrimSpace(cfg.Version); v != "" {
		attrs = append(attrs, semconv.ServiceVersion(v))
	}
	return attrs
}
