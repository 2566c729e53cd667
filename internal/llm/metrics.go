package llm

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const genMeterName = "github.com/SaketSinghRajput/honeycomb/internal/llm"

var (
	genLatencyHistogram  metric.Float64Histogram
	genCostHistogram     metric.Float64Histogram
	genMetricsOnce       sync.Once
	genMetricsRegistered bool
)

func initGenMetrics() {
	meter := otel.Meter(genMeterName)
	var err error
	genLatencyHistogram, err = meter.Float64Histogram(
		"honeycomb.generation.latency",
		metric.WithDescription("Wall time in seconds per reply generation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return
	}
	genCostHistogram, err = meter.Float64Histogram(
		"honeycomb.generation.cost",
		metric.WithDescription("Estimated cost in EUR per reply generation"),
		metric.WithUnit("eur"),
	)
	if err != nil {
		return
	}
	genMetricsRegistered = true
}

// RecordGenerationMetrics records latency and estimated cost after a
// generation attempt. The fallback attribute marks turns that fell back
// to the canned reply because the backend failed.
func RecordGenerationMetrics(ctx context.Context, seconds, costEUR float64, provider, model string, fallback bool) {
	genMetricsOnce.Do(initGenMetrics)
	if !genMetricsRegistered {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
		attribute.Bool("fallback", fallback),
	)
	genLatencyHistogram.Record(ctx, seconds, attrs)
	genCostHistogram.Record(ctx, costEUR, attrs)
}
