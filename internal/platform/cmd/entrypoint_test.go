package cmd

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunWithTelemetryRejectsMissingInputs(t *testing.T) {
	if err := RunWithTelemetry(nil, "", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected missing service error")
	}
	if err := RunWithTelemetry(nil, ServiceOracle, nil); err == nil {
		t.Fatal("expected missing run function error")
	}
}

func TestRunWithTelemetryRunsAndReturnsError(t *testing.T) {
	t.Setenv("ORACLES_OTEL_ENDPOINT", "")
	want := errors.New("run failed")
	called := false
	err := RunWithTelemetryAndOptions(context.Background(), ServiceMCP, RunOptions{ShutdownTimeout: time.Second}, func(context.Context) error {
		called = true
		return want
	})
	if !called {
		t.Fatal("expected run function to be called")
	}
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}
