package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpansAreExported(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	exp := tracetest.NewInMemoryExporter()
	shutdown, err := InitWithExporter(context.Background(), exp, "test")
	if err != nil {
		t.Fatal(err)
	}

	ctx, parent := Start(context.Background(), "pipeline.run")
	_, child := Start(ctx, "driver.sweep", attribute.Int("conditions", 2))
	End(child, errors.New("boom"))
	End(parent, nil)

	spans := exp.GetSpans()
	if err := shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}

	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range spans.Snapshots() {
		byName[s.Name()] = s
	}
	sweep, run := byName["driver.sweep"], byName["pipeline.run"]
	if sweep == nil || run == nil {
		t.Fatalf("missing spans: %v", byName)
	}
	if sweep.Parent().SpanID() != run.SpanContext().SpanID() {
		t.Error("driver span is not a child of the pipeline span")
	}
	if sweep.Status().Code != codes.Error {
		t.Errorf("failed span status = %v, want Error", sweep.Status().Code)
	}
	if run.Status().Code != codes.Ok {
		t.Errorf("ok span status = %v, want Ok", run.Status().Code)
	}
}
