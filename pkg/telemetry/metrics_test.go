package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/agent-resilience-go/pkg/chaos"
)

func TestNewMetrics(t *testing.T) {
	metrics, err := NewMetrics()
	require.NoError(t, err)
	require.NotNil(t, metrics)
}

func TestObserveTracksCounterWindow(t *testing.T) {
	metrics, err := NewMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	metrics.Observe(ctx, chaos.Metrics{EventsTriggered: 5, ActiveEvents: 2, FailureRate: 0.4, AverageRecoveryTime: 3 * time.Second})
	require.Equal(t, 5, metrics.lastTriggered)

	metrics.Observe(ctx, chaos.Metrics{EventsTriggered: 8})
	require.Equal(t, 8, metrics.lastTriggered)

	// a lower count means a fresh harness, the window re-bases instead of going negative
	metrics.Observe(ctx, chaos.Metrics{EventsTriggered: 3})
	require.Equal(t, 3, metrics.lastTriggered)
}

func TestObserveNilReceiver(t *testing.T) {
	var metrics *Metrics
	require.NotPanics(t, func() {
		metrics.Observe(context.Background(), chaos.Metrics{EventsTriggered: 1})
	})
}
