package otelx

import (
	"context"
	"testing"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_SAMPLING_RATIO", "2")

	cfg := ConfigFromEnv("availability-service")
	if cfg.Enabled {
		t.Fatal("expected tracing disabled")
	}
	if cfg.OTLPEndpoint != "collector:4317" {
		t.Fatalf("endpoint = %q", cfg.OTLPEndpoint)
	}
	if cfg.SampleRatio != 1 {
		t.Fatalf("out of range ratio should fall back to 1, got %v", cfg.SampleRatio)
	}
}

func TestSetupDisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false, ServiceName: "test"})
	if err != nil {
		t.Fatal(err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	tp, _ := TraceContextStrings(context.Background())
	if tp != "" {
		t.Fatalf("no span in context, got traceparent %q", tp)
	}
}
