package tracing

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestSetupWithoutEndpoint(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown, err := Setup(context.Background(), Config{ServiceName: "hrms-lite"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatal("Setup replaced the global provider with no endpoint")
	}
}

func TestProviderSampling(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  int
	}{
		{"all", 1, 1},
		{"above one", 5, 1},
		{"none", 0, 0},
		{"negative", -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			exporter := tracetest.NewInMemoryExporter()
			provider, err := newProvider(ctx, Config{
				ServiceName: "hrms-lite",
				Version:     "1.2.3",
				Environment: "test",
				StoreDriver: "memory",
				SampleRatio: tt.ratio,
			}, exporter)
			if err != nil {
				t.Fatalf("newProvider: %v", err)
			}
			defer provider.Shutdown(ctx)

			_, span := provider.Tracer("test").Start(ctx, "AttendanceService.Mark")
			span.End()
			if err := provider.ForceFlush(ctx); err != nil {
				t.Fatalf("ForceFlush: %v", err)
			}

			spans := exporter.GetSpans()
			if len(spans) != tt.want {
				t.Fatalf("exported %d spans, want %d", len(spans), tt.want)
			}
			if tt.want == 0 {
				return
			}

			attrs := spans[0].Resource.Set()
			for key, want := range map[attribute.Key]string{
				semconv.ServiceNameKey:    "hrms-lite",
				semconv.ServiceVersionKey: "1.2.3",
				StoreDriverKey:            "memory",
			} {
				got, ok := attrs.Value(key)
				if !ok || got.AsString() != want {
					t.Errorf("resource %s = %q (%v), want %q", key, got.AsString(), ok, want)
				}
			}
		})
	}
}
