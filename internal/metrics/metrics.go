// Package metrics wires a small set of OpenTelemetry instruments around the
// transition handler and tool dispatcher, mirroring the spirit of the
// teacher's internal/rpc/metrics.go (RecordRequest/RecordError counters)
// with the ecosystem's own SDK instead of a hand-rolled counter map.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Recorder records transition outcomes and tool-handler latency. The zero
// value is not usable; construct with New.
type Recorder struct {
	provider    *sdkmetric.MeterProvider
	transitions metric.Int64Counter
	toolLatency metric.Float64Histogram
}

// New builds a Recorder. When debug is false the meter provider uses a
// manual reader that nothing ever collects from, matching spec.md's
// instruction that metrics only export under LOG_LEVEL=debug.
func New(debug bool) (*Recorder, error) {
	var opts []sdkmetric.Option
	if debug {
		exporter, err := stdoutmetric.New(stdoutmetric.WithoutTimestamps())
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)))
	} else {
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewManualReader()))
	}
	provider := sdkmetric.NewMeterProvider(opts...)
	meter := provider.Meter("task-orchestrator")

	transitions, err := meter.Int64Counter("transitions_total",
		metric.WithDescription("role transitions by trigger and result"))
	if err != nil {
		return nil, err
	}
	toolLatency, err := meter.Float64Histogram("tool_handler_latency_seconds",
		metric.WithDescription("tool handler latency in seconds"))
	if err != nil {
		return nil, err
	}

	return &Recorder{provider: provider, transitions: transitions, toolLatency: toolLatency}, nil
}

// RecordTransition counts one transition attempt, successful or not.
func (r *Recorder) RecordTransition(ctx context.Context, trigger string, result string) {
	if r == nil {
		return
	}
	r.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.String("result", result),
	))
}

// RecordToolLatency records how long a tool handler took to run.
func (r *Recorder) RecordToolLatency(ctx context.Context, tool string, d time.Duration) {
	if r == nil {
		return
	}
	r.toolLatency.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("tool", tool)))
}

// Shutdown flushes and releases the underlying meter provider.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.provider.Shutdown(ctx)
}
