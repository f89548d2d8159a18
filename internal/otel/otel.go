package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	eventbus "github.com/hanpama/lighthouse/internal/eventbus"
	events "github.com/hanpama/lighthouse/internal/events"
	reqid "github.com/hanpama/lighthouse/internal/reqid"
)

const tracerName = "lighthouse"

// Setup exports traces to the OTLP gRPC endpoint and turns the events of bus
// into spans. If endpoint is empty, no telemetry is configured.
func Setup(ctx context.Context, bus *eventbus.Bus, endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)
	Register(bus, tp.Tracer(tracerName))
	return tp.Shutdown, nil
}

// Register subscribes span handlers for HTTP requests, GraphQL operations,
// subscriber registrations and broadcasts to bus.
func Register(bus *eventbus.Bus, tracer trace.Tracer) {
	s := &subscriber{tracer: tracer}
	s.register(bus)
}

type subscriber struct {
	tracer         trace.Tracer
	httpSpans      sync.Map // rid -> trace.Span
	gqlSpans       sync.Map // rid -> trace.Span
	broadcastSpans sync.Map // broadcastKey -> trace.Span
}

type broadcastKey struct {
	rid   string
	field string
	topic string
}

// parent returns ctx carrying the innermost open span of the request.
func (s *subscriber) parent(ctx context.Context, rid string) context.Context {
	if v, ok := s.gqlSpans.Load(rid); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	if v, ok := s.httpSpans.Load(rid); ok {
		return trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	return ctx
}

func (s *subscriber) register(bus *eventbus.Bus) {
	eventbus.On(bus, func(ctx context.Context, e events.RequestStart) {
		_, span := s.tracer.Start(ctx, "http.request")
		span.SetAttributes(
			semconv.HTTPMethodKey.String(e.Method),
			attribute.String("http.target", e.Path),
			attribute.String("request.id", e.RequestID),
		)
		s.httpSpans.Store(e.RequestID, span)
	})

	eventbus.On(bus, func(_ context.Context, e events.RequestFinish) {
		v, ok := s.httpSpans.LoadAndDelete(e.RequestID)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
		span.End()
	})

	eventbus.On(bus, func(ctx context.Context, e events.OperationStart) {
		_, span := s.tracer.Start(s.parent(ctx, e.RequestID), "graphql.operation")
		span.SetAttributes(
			attribute.String("graphql.operation.name", e.OperationName),
			attribute.String("graphql.operation.type", e.OperationType),
		)
		s.gqlSpans.Store(e.RequestID, span)
	})

	eventbus.On(bus, func(_ context.Context, e events.OperationFinish) {
		v, ok := s.gqlSpans.LoadAndDelete(e.RequestID)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(attribute.Int("graphql.error_count", len(e.Errors)))
		if len(e.Channels) > 0 {
			span.SetAttributes(attribute.StringSlice("subscription.channels", e.Channels))
		}
		span.End()
	})

	eventbus.On(bus, func(_ context.Context, e events.SubscriberRegistered) {
		v, ok := s.gqlSpans.Load(e.RequestID)
		if !ok {
			return
		}
		v.(trace.Span).AddEvent("subscriber.registered", trace.WithAttributes(
			attribute.String("subscription.channel", e.Channel),
			attribute.String("subscription.topic", e.Topic),
			attribute.String("subscription.field", e.FieldName),
		))
	})

	eventbus.On(bus, func(ctx context.Context, e events.BroadcastStart) {
		rid, _ := reqid.FromContext(ctx)
		_, span := s.tracer.Start(s.parent(ctx, rid), "subscription.broadcast")
		span.SetAttributes(
			attribute.String("subscription.field", e.FieldName),
			attribute.String("subscription.topic", e.Topic),
			attribute.Int("subscription.subscribers", e.Subscribers),
		)
		s.broadcastSpans.Store(broadcastKey{rid, e.FieldName, e.Topic}, span)
	})

	eventbus.On(bus, func(ctx context.Context, e events.BroadcastFinish) {
		rid, _ := reqid.FromContext(ctx)
		v, ok := s.broadcastSpans.LoadAndDelete(broadcastKey{rid, e.FieldName, e.Topic})
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(attribute.Int("subscription.delivered", e.Delivered))
		if e.Err != nil {
			span.RecordError(e.Err)
			span.SetStatus(codes.Error, e.Err.Error())
		}
		span.End()
	})
}
