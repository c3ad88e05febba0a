package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerProvider manages the lifecycle of the OpenTelemetry tracer
type TracerProvider struct {
	tp *sdktrace.TracerProvider
}

// NewTracerProvider creates a new OpenTelemetry tracer provider
func NewTracerProvider(serviceName, serviceVersion, otlpEndpoint string) (*TracerProvider, error) {
	exporter, err := otlptracegrpc.New(
		context.Background(),
		otlptracegrpc.WithEndpoint(otlpEndpoint),
		otlptracegrpc.WithInsecure(), // TODO: Add TLS configuration
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
			semconv.ServiceNamespaceKey.String("vigil-core"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)

	return &TracerProvider{tp: tp}, nil
}

// Shutdown gracefully shuts down the tracer provider
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return tp.tp.Shutdown(ctx)
}

// DispatchTracer provides distributed tracing around escalation dispatch
type DispatchTracer struct {
	tracer trace.Tracer
}

// NewDispatchTracer creates a tracer for escalation step dispatch
func NewDispatchTracer(serviceName string) *DispatchTracer {
	return &DispatchTracer{tracer: otel.Tracer(serviceName)}
}

// StartStepSpan starts a span covering one escalation step dispatch
func (dt *DispatchTracer) StartStepSpan(ctx context.Context, instanceID, ruleName string, level int) (context.Context, trace.Span) {
	return dt.tracer.Start(ctx, "escalation_step",
		trace.WithAttributes(
			attribute.String("escalation.instance_id", instanceID),
			attribute.String("escalation.rule", ruleName),
			attribute.Int("escalation.level", level),
			attribute.String("component", "dispatcher"),
		),
	)
}

// StartSendSpan starts a span for one channel send within a step
func (dt *DispatchTracer) StartSendSpan(ctx context.Context, channelID, channelType, targetID string) (context.Context, trace.Span) {
	return dt.tracer.Start(ctx, "notification_send",
		trace.WithAttributes(
			attribute.String("notification.channel_id", channelID),
			attribute.String("notification.channel_type", channelType),
			attribute.String("notification.target", targetID),
		),
	)
}

// RecordSendResult marks the span with the delivery outcome
func RecordSendResult(span trace.Span, status string, errMsg string) {
	span.SetAttributes(attribute.String("notification.status", status))
	if errMsg != "" {
		span.SetStatus(codes.Error, errMsg)
	} else {
		span.SetStatus(codes.Ok, "")
	}
}
