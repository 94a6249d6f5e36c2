package events

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/darianrosebrook/agent-resilience-go/pkg/log"
)

const (
	// ReasonScenarioAdded is emitted when a scenario enters the registry
	ReasonScenarioAdded string = "ScenarioAdded"
	// ReasonScenarioRemoved is emitted when a scenario leaves the registry
	ReasonScenarioRemoved string = "ScenarioRemoved"
	// ReasonHarnessEnabled is emitted when chaos injection starts
	ReasonHarnessEnabled string = "HarnessEnabled"
	// ReasonHarnessDisabled is emitted when chaos injection stops
	ReasonHarnessDisabled string = "HarnessDisabled"
	// ReasonSeedReset is emitted when the harness generator is reseeded
	ReasonSeedReset string = "SeedReset"
	// ReasonWorkerFailure is emitted for manual worker failure injections
	ReasonWorkerFailure string = "WorkerFailure"
	// ReasonNetworkDegradation is emitted for manual network degradation injections
	ReasonNetworkDegradation string = "NetworkDegradation"
	// ReasonResourceExhaustion is emitted for manual resource exhaustion injections
	ReasonResourceExhaustion string = "ResourceExhaustion"
	// ReasonChaosEvent is emitted for tick-generated scenario events
	ReasonChaosEvent string = "ChaosEvent"
	// ReasonRecovery is emitted when an injected failure recovers
	ReasonRecovery string = "Recovery"
	// ReasonEventsCleared is emitted when the harness history is wiped
	ReasonEventsCleared string = "EventsCleared"
)

// Notification is a single typed event on the bus.
type Notification struct {
	ID             string                 `json:"id"`
	Kind           string                 `json:"kind"`
	Reason         string                 `json:"reason"`
	Message        string                 `json:"message"`
	Resource       string                 `json:"resource"`
	ResourceUID    string                 `json:"resourceUID"`
	Type           string                 `json:"type"`
	Count          int                    `json:"count"`
	FirstTimestamp time.Time              `json:"firstTimestamp"`
	LastTimestamp  time.Time              `json:"lastTimestamp"`
	Fields         map[string]interface{} `json:"fields,omitempty"`
}

// Subscription is a single consumer of the bus.
type Subscription struct {
	bus     *Bus
	ch      chan Notification
	reasons map[string]struct{}
}

// Events returns the channel notifications are delivered on. The channel
// is closed when the subscription or the bus is closed.
func (s *Subscription) Events() <-chan Notification {
	return s.ch
}

// Close removes the subscription from the bus and closes its channel.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
}

func (s *Subscription) wants(reason string) bool {
	if len(s.reasons) == 0 {
		return true
	}
	_, ok := s.reasons[reason]
	return ok
}

// Bus fans notifications out to subscribers. Publishing never blocks:
// a subscriber that cannot keep up loses the notification and the drop
// is logged.
type Bus struct {
	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	seen    map[string]*Notification
	dropped uint64
	closed  bool
}

// NewBus returns an empty bus ready for subscriptions.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[*Subscription]struct{}),
		seen: make(map[string]*Notification),
	}
}

// Subscribe registers a consumer with the given channel buffer. With no
// reasons every notification is delivered, otherwise only the named ones.
func (b *Bus) Subscribe(buffer int, reasons ...string) *Subscription {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &Subscription{
		bus:     b,
		ch:      make(chan Notification, buffer),
		reasons: make(map[string]struct{}),
	}
	for _, r := range reasons {
		sub.reasons[r] = struct{}{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
}

// Publish delivers the notification to every matching subscriber without
// blocking the caller.
func (b *Bus) Publish(notification Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	for sub := range b.subs {
		if !sub.wants(notification.Reason) {
			continue
		}
		select {
		case sub.ch <- notification:
		default:
			b.dropped++
			log.WarnWithValues("[Events]: Dropped notification for slow subscriber", logrus.Fields{
				"Reason":   notification.Reason,
				"Resource": notification.Resource,
			})
		}
	}
}

// Dropped returns the number of notifications lost to slow subscribers.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close shuts the bus down, closing every subscriber channel. Further
// publishes are discarded.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub.ch)
	}
	b.seen = make(map[string]*Notification)
}
