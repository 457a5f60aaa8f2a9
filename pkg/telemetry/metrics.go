package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// TickMetrics holds the layer's OTEL instruments.
type TickMetrics struct {
	// tickCounter counts completed ticks.
	tickCounter metric.Int64Counter

	// requestCounter counts batched agent requests.
	requestCounter metric.Int64Counter

	// batchSize records the manifest size per tick.
	batchSize metric.Int64Histogram

	// tickLatency records end-to-end tick duration in milliseconds.
	tickLatency metric.Float64Histogram

	// errorCounter counts failed ticks by error code.
	errorCounter metric.Int64Counter
}

// NewTickMetrics creates the instruments on the global meter provider.
func NewTickMetrics() (*TickMetrics, error) {
	meter := otel.Meter("tickbatch/brain")

	tickCounter, err := meter.Int64Counter(
		"tickbatch.ticks.total",
		metric.WithDescription("Completed inference ticks"),
	)
	if err != nil {
		return nil, err
	}

	requestCounter, err := meter.Int64Counter(
		"tickbatch.requests.total",
		metric.WithDescription("Agent requests batched through the layer"),
	)
	if err != nil {
		return nil, err
	}

	batchSize, err := meter.Int64Histogram(
		"tickbatch.batch.size",
		metric.WithDescription("Manifest size per tick"),
	)
	if err != nil {
		return nil, err
	}

	tickLatency, err := meter.Float64Histogram(
		"tickbatch.tick.latency",
		metric.WithDescription("Tick duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	errorCounter, err := meter.Int64Counter(
		"tickbatch.ticks.failed",
		metric.WithDescription("Failed ticks by error code"),
	)
	if err != nil {
		return nil, err
	}

	return &TickMetrics{
		tickCounter:    tickCounter,
		requestCounter: requestCounter,
		batchSize:      batchSize,
		tickLatency:    tickLatency,
		errorCounter:   errorCounter,
	}, nil
}

// RecordTick records one successful tick.
func (m *TickMetrics) RecordTick(ctx context.Context, batch int, elapsed time.Duration) {
	m.tickCounter.Add(ctx, 1)
	m.requestCounter.Add(ctx, int64(batch))
	m.batchSize.Record(ctx, int64(batch))
	m.tickLatency.Record(ctx, float64(elapsed.Microseconds())/1000)
}

// RecordError counts one failed tick under its taxonomy code.
func (m *TickMetrics) RecordError(ctx context.Context, code string) {
	m.errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}
