package callback

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/SaketSinghRajput/honeycomb/internal/callback")

var (
	deliveriesTotal  metric.Int64Counter
	deliveryFailures metric.Int64Counter
)

func init() {
	var err error
	deliveriesTotal, err = meter.Int64Counter("callback.deliveries.total",
		metric.WithDescription("Callback payloads delivered successfully"))
	if err != nil {
		deliveriesTotal, _ = meter.Int64Counter("callback.deliveries.total.fallback")
	}

	deliveryFailures, err = meter.Int64Counter("callback.deliveries.failed",
		metric.WithDescription("Callback delivery attempts that failed"))
	if err != nil {
		deliveryFailures, _ = meter.Int64Counter("callback.deliveries.failed.fallback")
	}
}
