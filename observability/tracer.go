package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/spacekit/logger"
)

// TracerName is the instrumentation scope of client spans.
const TracerName = "github.com/kbukum/spacekit/httpclient"

// SpanHTTPRequest names the span of one transport attempt.
const SpanHTTPRequest = "http.request"

// Attribute keys set on client spans.
const (
	AttrRequestID    = "request.id"
	AttrHTTPMethod   = "http.request.method"
	AttrHTTPURL      = "url.full"
	AttrHTTPStatus   = "http.response.status_code"
	AttrAttempt      = "http.request.resend_count"
	AttrSpace        = "spacekit.space"
	AttrErrorMessage = "error.message"
)

// TracerConfig configures span export.
type TracerConfig struct {
	ServiceName    string `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	Environment    string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
	// SampleRate is the share of root spans kept. Child spans follow their
	// parent's decision.
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// DefaultTracerConfig returns sensible defaults for development.
func DefaultTracerConfig(serviceName string) TracerConfig {
	return TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		SampleRate:     1.0,
	}
}

// InitTracer exports spans over OTLP HTTP and installs the provider and the
// W3C propagators globally. Shut the provider down on exit.
func InitTracer(ctx context.Context, config *TracerConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	tp, err := NewTracerProvider(config, sdktrace.WithBatcher(exporter))
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracer initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"sample_rate", config.SampleRate,
	))
	return tp, nil
}

// NewTracerProvider builds a provider with the service resource and sampler
// of config. It leaves the global provider alone; pass it to a client with
// httpclient.WithTracerProvider.
func NewTracerProvider(config *TracerConfig, opts ...sdktrace.TracerProviderOption) (*sdktrace.TracerProvider, error) {
	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	opts = append([]sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(config.SampleRate)),
	}, opts...)
	return sdktrace.NewTracerProvider(opts...), nil
}

// newResource describes the service for traces and metrics.
func newResource(serviceName, serviceVersion, environment string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
			attribute.String("deployment.environment", environment),
		),
	)
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case rate <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

// ClientSpan describes one transport attempt.
type ClientSpan struct {
	Method    string
	URL       string
	Space     string
	RequestID string
	// Attempt is 1-based. Resends record Attempt-1 as the resend count.
	Attempt int
}

// StartClientSpan starts a client-kind http.request span for one attempt on
// tp, or on the global provider when tp is nil.
func StartClientSpan(ctx context.Context, tp trace.TracerProvider, s ClientSpan) (context.Context, trace.Span) {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	attrs := []attribute.KeyValue{
		attribute.String(AttrHTTPMethod, s.Method),
		attribute.String(AttrHTTPURL, s.URL),
	}
	if s.RequestID != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, s.RequestID))
	}
	if s.Space != "" {
		attrs = append(attrs, attribute.String(AttrSpace, s.Space))
	}
	if s.Attempt > 1 {
		attrs = append(attrs, attribute.Int(AttrAttempt, s.Attempt-1))
	}

	return tp.Tracer(TracerName).Start(ctx, SpanHTTPRequest,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// EndClientSpan records the outcome of an attempt and ends span. status is 0
// when no response arrived; kind labels a failure (e.g. "rate_limit").
func EndClientSpan(span trace.Span, status int, kind string, err error) {
	if status > 0 {
		span.SetAttributes(attribute.Int(AttrHTTPStatus, status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
		span.SetStatus(codes.Error, kind)
	}
	span.End()
}
