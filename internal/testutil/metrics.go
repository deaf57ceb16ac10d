package testutil

import (
	"context"
	"testing"

	"github.com/preston-bernstein/nba-live-service/internal/metrics"
)

// NewTelemetryRecorder returns a recorder backed by real OpenTelemetry
// instruments and a Prometheus registry. The meter provider is shut down when
// the test ends.
func NewTelemetryRecorder(t *testing.T) *metrics.Recorder {
	t.Helper()
	rec, _, shutdown, err := metrics.Setup(context.Background(), metrics.TelemetryConfig{
		Enabled:     true,
		ServiceName: "nba-live-service-test",
	})
	if err != nil {
		t.Fatalf("metrics setup: %v", err)
	}
	t.Cleanup(func() { _ = shutdown(context.Background()) })
	return rec
}
