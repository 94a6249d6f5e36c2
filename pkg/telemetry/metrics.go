package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/darianrosebrook/agent-resilience-go/pkg/chaos"
	"github.com/darianrosebrook/agent-resilience-go/pkg/log"
)

// Metrics carries the harness instruments. Observe is fed from the driver
// sampling loops with the harness metrics snapshot.
type Metrics struct {
	eventsTriggered metric.Int64Counter
	activeEvents    metric.Int64Gauge
	failureRate     metric.Float64Gauge
	recoverySeconds metric.Float64Gauge
	lastTriggered   int
}

// NewMetrics registers the harness instruments on the global meter provider
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(TracerName)

	eventsTriggered, err := meter.Int64Counter("resilience_events_triggered_total",
		metric.WithDescription("Chaos events injected by the harness"))
	if err != nil {
		return nil, err
	}
	activeEvents, err := meter.Int64Gauge("resilience_active_events",
		metric.WithDescription("Chaos events currently awaiting recovery"))
	if err != nil {
		return nil, err
	}
	failureRate, err := meter.Float64Gauge("resilience_failure_rate",
		metric.WithDescription("Share of failure events in the harness history"))
	if err != nil {
		return nil, err
	}
	recoverySeconds, err := meter.Float64Gauge("resilience_recovery_seconds",
		metric.WithDescription("Mean seconds between injection and recovery"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		eventsTriggered: eventsTriggered,
		activeEvents:    activeEvents,
		failureRate:     failureRate,
		recoverySeconds: recoverySeconds,
	}, nil
}

// Observe pushes a harness metrics snapshot into the instruments
func (m *Metrics) Observe(ctx context.Context, snapshot chaos.Metrics) {
	if m == nil {
		return
	}
	delta := snapshot.EventsTriggered - m.lastTriggered
	// a snapshot from a fresh harness re-bases the counter window
	if delta < 0 {
		delta = snapshot.EventsTriggered
	}
	if delta > 0 {
		m.eventsTriggered.Add(ctx, int64(delta))
	}
	m.lastTriggered = snapshot.EventsTriggered

	m.activeEvents.Record(ctx, int64(snapshot.ActiveEvents))
	m.failureRate.Record(ctx, snapshot.FailureRate)
	m.recoverySeconds.Record(ctx, snapshot.AverageRecoveryTime.Seconds())
}

// ServeMetrics exposes the prometheus scrape endpoint in the background
func ServeMetrics(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Infof("[Metrics]: Serving prometheus metrics on :%v/metrics", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics listener stopped, err: %v", err)
		}
	}()
}
