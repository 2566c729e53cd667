package engage

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/SaketSinghRajput/honeycomb/internal/engage")

var (
	turnsProcessed metric.Int64Counter
	sessionsClosed metric.Int64Counter
)

func init() {
	var err error
	turnsProcessed, err = meter.Int64Counter("engage.turns.total",
		metric.WithDescription("Conversation turns processed"))
	if err != nil {
		turnsProcessed, _ = meter.Int64Counter("engage.turns.total.fallback")
	}

	sessionsClosed, err = meter.Int64Counter("engage.terminations.total",
		metric.WithDescription("Sessions that reached a terminated state"))
	if err != nil {
		sessionsClosed, _ = meter.Int64Counter("engage.terminations.total.fallback")
	}
}
