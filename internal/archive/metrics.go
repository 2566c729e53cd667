package archive

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/SaketSinghRajput/honeycomb/internal/archive")

var (
	reportsArchived  metric.Int64Counter
	reportsDelivered metric.Int64Counter
)

func init() {
	var err error
	reportsArchived, err = meter.Int64Counter("archive.reports.recorded",
		metric.WithDescription("Report payloads written to the archive"))
	if err != nil {
		reportsArchived, _ = meter.Int64Counter("archive.reports.recorded.fallback")
	}

	reportsDelivered, err = meter.Int64Counter("archive.reports.delivered",
		metric.WithDescription("Archived reports acknowledged by the callback endpoint"))
	if err != nil {
		reportsDelivered, _ = meter.Int64Counter("archive.reports.delivered.fallback")
	}
}
