package session

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/SaketSinghRajput/honeycomb/internal/session")

var (
	sessionsCreated metric.Int64Counter
	sessionsSwept   metric.Int64Counter
	activeGauge     metric.Int64Gauge
)

func init() {
	var err error
	sessionsCreated, err = meter.Int64Counter("honeycomb.sessions.created",
		metric.WithDescription("Total honeypot sessions created"))
	if err != nil {
		sessionsCreated, _ = meter.Int64Counter("honeycomb.sessions.created.fallback")
	}

	sessionsSwept, err = meter.Int64Counter("honeycomb.sessions.swept",
		metric.WithDescription("Sessions removed by expiry sweeps"))
	if err != nil {
		sessionsSwept, _ = meter.Int64Counter("honeycomb.sessions.swept.fallback")
	}

	activeGauge, err = meter.Int64Gauge("honeycomb.sessions.active",
		metric.WithDescription("Current number of live sessions"))
	if err != nil {
		activeGauge, _ = meter.Int64Gauge("honeycomb.sessions.active.fallback")
	}
}
