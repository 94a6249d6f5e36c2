package status

import (
	"context"
	"sync"
	"time"

	"github.com/darianrosebrook/agent-resilience-go/pkg/chaos"
	"github.com/darianrosebrook/agent-resilience-go/pkg/clients"
	"github.com/darianrosebrook/agent-resilience-go/pkg/events"
	"github.com/darianrosebrook/agent-resilience-go/pkg/log"
	"github.com/darianrosebrook/agent-resilience-go/pkg/math"
	"github.com/darianrosebrook/agent-resilience-go/pkg/utils/retry"
)

// HealthUpdater propagates harness failures to the worker registry. On a
// failure notification naming a worker it marks the worker unhealthy with a
// severity-derived load factor, on the matching recovery it restores the
// worker to healthy. Registry errors are logged and swallowed, health
// propagation is best-effort and never aborts a run.
type HealthUpdater struct {
	registry clients.WorkerRegistry
	sub      *events.Subscription
	retries  uint
	wait     time.Duration
	wg       sync.WaitGroup
	// affected tracks the workers degraded per event id so a recovery
	// restores every worker of a multi-target injection
	affected map[string][]string
}

// NewHealthUpdater subscribes to the failure and recovery notifications on
// the bus. Call Start to begin consuming them.
func NewHealthUpdater(registry clients.WorkerRegistry, bus *events.Bus) *HealthUpdater {
	return &HealthUpdater{
		registry: registry,
		sub: bus.Subscribe(64,
			events.ReasonChaosEvent,
			events.ReasonWorkerFailure,
			events.ReasonNetworkDegradation,
			events.ReasonResourceExhaustion,
			events.ReasonRecovery,
		),
		retries:  3,
		wait:     200 * time.Millisecond,
		affected: make(map[string][]string),
	}
}

// Start consumes notifications until the context is cancelled or the
// subscription is closed.
func (u *HealthUpdater) Start(ctx context.Context) {
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case notification, ok := <-u.sub.Events():
				if !ok {
					return
				}
				u.handle(ctx, notification)
			}
		}
	}()
}

// Stop closes the subscription and waits for the consumer to drain.
func (u *HealthUpdater) Stop() {
	u.sub.Close()
	u.wg.Wait()
}

func (u *HealthUpdater) handle(ctx context.Context, notification events.Notification) {
	switch notification.Reason {
	case events.ReasonRecovery:
		u.restore(ctx, notification)
	default:
		u.degrade(ctx, notification)
	}
}

func (u *HealthUpdater) degrade(ctx context.Context, notification events.Notification) {
	workers := targetWorkers(notification.Fields)
	if len(workers) == 0 {
		return
	}
	if eventID, ok := notification.Fields["eventId"].(string); ok && eventID != "" {
		u.affected[eventID] = workers
	}
	load := loadFactor(notification.Fields)
	for _, workerID := range workers {
		u.update(ctx, workerID, clients.HealthStatusUnhealthy, load)
	}
}

func (u *HealthUpdater) restore(ctx context.Context, notification events.Notification) {
	originalID, _ := notification.Fields["originalEventId"].(string)
	workers := u.affected[originalID]
	delete(u.affected, originalID)
	if len(workers) == 0 {
		workers = targetWorkers(notification.Fields)
	}
	for _, workerID := range workers {
		u.update(ctx, workerID, clients.HealthStatusHealthy, 0)
	}
}

func (u *HealthUpdater) update(ctx context.Context, workerID string, status clients.HealthStatus, loadFactor float64) {
	if err := retry.
		Times(u.retries).
		Wait(u.wait).
		Try(func(attempt uint) error {
			return u.registry.UpdateHealth(ctx, workerID, status, loadFactor)
		}); err != nil {
		log.Errorf("[Status]: Unable to mark worker %v as %v, err: %v", workerID, status, err)
	}
}

// targetWorkers extracts the workers named by a notification, preferring the
// multi-target list over the single worker field.
func targetWorkers(fields map[string]interface{}) []string {
	switch ids := fields["workerIds"].(type) {
	case []string:
		workers := make([]string, len(ids))
		copy(workers, ids)
		return workers
	case []interface{}:
		workers := make([]string, 0, len(ids))
		for _, id := range ids {
			if workerID, ok := id.(string); ok {
				workers = append(workers, workerID)
			}
		}
		return workers
	}
	if workerID, ok := fields["workerId"].(string); ok && workerID != "" {
		return []string{workerID}
	}
	return nil
}

// loadFactor derives the registry load factor from a notification, the
// explicit degradation level wins over the severity mapping.
func loadFactor(fields map[string]interface{}) float64 {
	if level, ok := fields["degradationLevel"].(float64); ok {
		return math.Clamp(level, 0, 1)
	}
	severity, _ := fields["severity"].(string)
	return chaos.DegradationLevel(chaos.Severity(severity))
}
