package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"

	"github.com/hanpama/lambdaql/internal/eventbus"
	"github.com/hanpama/lambdaql/internal/events"
	"github.com/hanpama/lambdaql/internal/reqid"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithInsecure()))
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

	sub := &subscriber{tracer: otel.Tracer("lambdaql")}
	sub.register()

	return tp.Shutdown, nil
}

type subscriber struct {
	tracer        trace.Tracer
	evalSpans     sync.Map // rid + field key -> trace.Span
	upstreamSpans sync.Map // rid + request key -> trace.Span
}

func (s *subscriber) register() {
	eventbus.Subscribe(func(ctx context.Context, e events.EvalStart) {
		rid, _ := reqid.FromContext(ctx)
		_, span := s.tracer.Start(ctx, "field.evaluate")
		span.SetAttributes(
			attribute.String("graphql.object", e.Object),
			attribute.String("graphql.field", e.Field),
		)
		s.evalSpans.Store(rid+"/"+e.Object+"."+e.Field, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.EvalFinish) {
		rid, _ := reqid.FromContext(ctx)
		v, ok := s.evalSpans.LoadAndDelete(rid + "/" + e.Object + "." + e.Field)
		if !ok {
			return
		}
		span := v.(trace.Span)
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.UpstreamStart) {
		rid, _ := reqid.FromContext(ctx)
		_, span := s.tracer.Start(ctx, "upstream.request")
		span.SetAttributes(
			semconv.HTTPMethodKey.String(e.Method),
			attribute.String("http.url", e.URL),
		)
		s.upstreamSpans.Store(rid+"/"+e.Method+" "+e.URL, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.UpstreamFinish) {
		rid, _ := reqid.FromContext(ctx)
		v, ok := s.upstreamSpans.LoadAndDelete(rid + "/" + e.Method + " " + e.URL)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	})
}
