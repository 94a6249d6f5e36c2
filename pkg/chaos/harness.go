package chaos

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
	"github.com/darianrosebrook/agent-resilience-go/pkg/events"
	"github.com/darianrosebrook/agent-resilience-go/pkg/log"
	"github.com/darianrosebrook/agent-resilience-go/pkg/random"
)

// SnapshotProvider supplies the orchestrator state evaluated on one tick.
type SnapshotProvider func(ctx context.Context) SystemSnapshot

// HarnessConfig carries the knobs for a harness instance.
type HarnessConfig struct {
	EngineName   string
	Seed         int64
	TickInterval time.Duration
	Snapshot     SnapshotProvider
	Bus          *events.Bus
}

// Harness injects deterministic chaos events into the orchestrator under
// test. All draws come from a single seeded generator, so a run with the
// same seed, scenarios and tick sequence reproduces the same events.
type Harness struct {
	mu           sync.Mutex
	gen          *random.Generator
	bus          *events.Bus
	snapshot     SnapshotProvider
	tickInterval time.Duration
	engineName   string

	scenarios map[string]Scenario
	order     []string

	enabled bool
	stop    chan struct{}
	wg      sync.WaitGroup

	events            []Event
	active            map[string]Event
	pending           map[string]time.Time
	recoveryDurations []time.Duration
	workersAffected   map[string]struct{}
	triggered         int
	seq               int

	queue *recoveryQueue
}

// NewHarness returns a disabled harness with an empty scenario registry.
func NewHarness(config HarnessConfig) *Harness {
	if config.TickInterval <= 0 {
		config.TickInterval = 5 * time.Second
	}
	if config.Snapshot == nil {
		config.Snapshot = func(ctx context.Context) SystemSnapshot {
			return SystemSnapshot{}
		}
	}
	return &Harness{
		gen:             random.NewGenerator(config.Seed),
		bus:             config.Bus,
		snapshot:        config.Snapshot,
		tickInterval:    config.TickInterval,
		engineName:      config.EngineName,
		scenarios:       make(map[string]Scenario),
		active:          make(map[string]Event),
		pending:         make(map[string]time.Time),
		workersAffected: make(map[string]struct{}),
		queue:           newRecoveryQueue(),
	}
}

// AddScenario validates and registers the scenario. Registering an id twice
// is a configuration error, remove the old one first.
func (h *Harness) AddScenario(scenario Scenario) error {
	if err := scenario.Validate(); err != nil {
		return err
	}

	h.mu.Lock()
	if _, exists := h.scenarios[scenario.ID]; exists {
		h.mu.Unlock()
		return cerrors.Error{
			ErrorCode: cerrors.ErrorTypeScenarioConfiguration,
			Target:    scenario.ID,
			Reason:    "scenario id already registered",
		}
	}
	h.order = append(h.order, scenario.ID)
	h.scenarios[scenario.ID] = scenario
	h.mu.Unlock()

	log.InfoWithValues("[Chaos]: Registered scenario", logrus.Fields{
		"ID":        scenario.ID,
		"EventType": scenario.EventType,
		"Weight":    scenario.Weight,
	})
	h.publishLifecycle(events.ReasonScenarioAdded, "Normal", "scenario "+scenario.ID+" registered", map[string]interface{}{
		"scenarioId": scenario.ID,
	})
	return nil
}

// RemoveScenario drops the scenario from the registry. Removing an absent
// id is a no-op returning false.
func (h *Harness) RemoveScenario(id string) bool {
	h.mu.Lock()
	if _, exists := h.scenarios[id]; !exists {
		h.mu.Unlock()
		return false
	}
	delete(h.scenarios, id)
	for i, known := range h.order {
		if known == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	h.mu.Unlock()

	h.publishLifecycle(events.ReasonScenarioRemoved, "Normal", "scenario "+id+" removed", map[string]interface{}{
		"scenarioId": id,
	})
	return true
}

// Scenarios returns the registered scenarios in registration order.
func (h *Harness) Scenarios() []Scenario {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := make([]Scenario, 0, len(h.order))
	for _, id := range h.order {
		list = append(list, h.scenarios[id])
	}
	return list
}

// Enable starts the periodic tick. Enabling an enabled harness is a no-op.
// The tick loop stops when the context is cancelled or Disable is called.
func (h *Harness) Enable(ctx context.Context) {
	h.mu.Lock()
	if h.enabled {
		h.mu.Unlock()
		return
	}
	h.enabled = true
	h.stop = make(chan struct{})
	stop := h.stop
	h.mu.Unlock()

	h.wg.Add(1)
	go h.loop(ctx, stop)

	log.Infof("[Chaos]: Harness enabled with tick interval of %v", h.tickInterval)
	h.publishLifecycle(events.ReasonHarnessEnabled, "Normal", "chaos injection enabled", nil)
}

// Disable stops the tick, cancels every pending recovery and clears the
// active event set. The event history survives for result computation.
func (h *Harness) Disable() {
	h.mu.Lock()
	if !h.enabled {
		h.mu.Unlock()
		return
	}
	h.enabled = false
	close(h.stop)
	h.mu.Unlock()

	h.wg.Wait()
	h.queue.CancelAll()

	h.mu.Lock()
	cleared := len(h.active)
	h.active = make(map[string]Event)
	h.pending = make(map[string]time.Time)
	h.mu.Unlock()

	log.Infof("[Chaos]: Harness disabled, cleared %v active events", cleared)
	h.publishLifecycle(events.ReasonHarnessDisabled, "Normal", "chaos injection disabled", map[string]interface{}{
		"clearedEvents": cleared,
	})
}

// Enabled reports whether the tick loop is running.
func (h *Harness) Enabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enabled
}

func (h *Harness) loop(ctx context.Context, stop chan struct{}) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			h.Tick(ctx)
		}
	}
}

// Tick evaluates the scenario registry against a fresh snapshot and injects
// at most one event. Exported so drivers and tests can step the harness
// deterministically.
func (h *Harness) Tick(ctx context.Context) {
	h.mu.Lock()
	if !h.enabled {
		h.mu.Unlock()
		return
	}
	provider := h.snapshot
	interval := h.tickInterval
	h.mu.Unlock()

	snapshotCtx, cancel := context.WithTimeout(ctx, interval)
	snapshot := provider(snapshotCtx)
	cancel()

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.enabled {
		return
	}
	h.generateLocked(snapshot)
}

// GenerateDeterministicEvent runs one tick body against the given snapshot
// regardless of the enabled state and returns the emitted event, or nil
// when no scenario applied. Meant for stepping the harness in tests.
func (h *Harness) GenerateDeterministicEvent(snapshot SystemSnapshot) *Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.generateLocked(snapshot)
}

// generateLocked performs the weighted choice among applicable scenarios
// and registers the resulting event. Draw order is fixed: selection,
// severity, then target worker when the scenario names any.
func (h *Harness) generateLocked(snapshot SystemSnapshot) *Event {
	var applicable []Scenario
	for _, id := range h.order {
		if scenario := h.scenarios[id]; scenario.Applicable(snapshot) {
			applicable = append(applicable, scenario)
		}
	}
	if len(applicable) == 0 {
		return nil
	}

	totalWeight := 0.0
	for _, scenario := range applicable {
		totalWeight += scenario.Weight
	}

	r := h.gen.Next() * totalWeight
	selected := applicable[len(applicable)-1]
	cumulative := 0.0
	for _, scenario := range applicable {
		cumulative += scenario.Weight
		if cumulative >= r {
			selected = scenario
			break
		}
	}

	severity := SeverityFromDraw(h.gen.Next())
	workerID := ""
	if len(selected.TargetWorkers) > 0 {
		workerID = selected.TargetWorkers[h.gen.NextInt(len(selected.TargetWorkers))]
	}

	event := Event{
		ID:         h.nextIDLocked(),
		ScenarioID: selected.ID,
		Type:       selected.EventType,
		Severity:   severity,
		WorkerID:   workerID,
		Capability: selected.Capability,
		Timestamp:  time.Now(),
		Metadata: map[string]interface{}{
			"scenarioName": selected.Name,
		},
	}
	h.registerLocked(event)

	if selected.RecoveryDelay > 0 {
		eventID := event.ID
		h.queue.Schedule(eventID, selected.RecoveryDelay, func() {
			h.recover(eventID)
		})
	}

	log.InfoWithValues("[Chaos]: Injected scenario event", logrus.Fields{
		"Event":    event.ID,
		"Scenario": selected.ID,
		"Type":     event.Type,
		"Severity": event.Severity,
		"Worker":   workerID,
	})
	h.publishEvent(events.ReasonChaosEvent, "Warning", "chaos event from scenario "+selected.ID, event)
	return &event
}

// SimulateWorkerFailure injects a failure for the worker immediately,
// bypassing condition evaluation. Severity is drawn from the generator.
func (h *Harness) SimulateWorkerFailure(workerID string, kind FailureKind) Event {
	h.mu.Lock()
	event := Event{
		ID:         h.nextIDLocked(),
		ScenarioID: ScenarioManual,
		Type:       EventFailure,
		Severity:   SeverityFromDraw(h.gen.Next()),
		WorkerID:   workerID,
		Timestamp:  time.Now(),
		Metadata: map[string]interface{}{
			"failureKind": string(kind),
		},
	}
	h.registerLocked(event)
	h.mu.Unlock()

	log.Infof("[Injection]: Worker %v failure injected (%v, severity %v)", workerID, kind, event.Severity)
	h.publishEvent(events.ReasonWorkerFailure, "Warning", "worker "+workerID+" failure injected", event)
	return event
}

// SimulateNetworkDegradation injects a network issue affecting the given
// workers at the level mapped from the severity grade.
func (h *Harness) SimulateNetworkDegradation(workerIDs []string, severity Severity) Event {
	level := DegradationLevel(severity)

	h.mu.Lock()
	event := Event{
		ID:         h.nextIDLocked(),
		ScenarioID: ScenarioManual,
		Type:       EventNetworkIssue,
		Severity:   severity,
		Timestamp:  time.Now(),
		Metadata: map[string]interface{}{
			"workerIds":        append([]string(nil), workerIDs...),
			"degradationLevel": level,
		},
	}
	// first target doubles as the event's worker for health propagation
	if len(workerIDs) > 0 {
		event.WorkerID = workerIDs[0]
	}
	h.registerLocked(event)
	for _, id := range workerIDs {
		h.workersAffected[id] = struct{}{}
	}
	h.mu.Unlock()

	log.Infof("[Injection]: Network degradation injected on %v workers (level %v)", len(workerIDs), level)
	h.publishEvent(events.ReasonNetworkDegradation, "Warning", "network degradation injected", event)
	return event
}

// SimulateResourceExhaustion injects an exhausted resource, optionally
// scoped to a single worker. Severity is drawn from the generator.
func (h *Harness) SimulateResourceExhaustion(resourceType ResourceType, workerID string) Event {
	h.mu.Lock()
	event := Event{
		ID:           h.nextIDLocked(),
		ScenarioID:   ScenarioManual,
		Type:         EventResourceExhaustion,
		Severity:     SeverityFromDraw(h.gen.Next()),
		WorkerID:     workerID,
		ResourceType: resourceType,
		Timestamp:    time.Now(),
		Metadata: map[string]interface{}{
			"resourceType": string(resourceType),
		},
	}
	h.registerLocked(event)
	h.mu.Unlock()

	log.Infof("[Injection]: Resource exhaustion injected (%v, worker %q)", resourceType, workerID)
	h.publishEvent(events.ReasonResourceExhaustion, "Warning", "resource "+string(resourceType)+" exhausted", event)
	return event
}

// recover clears the event from the active set and emits the matching
// recovery event. It is idempotent: a recovery for an event already
// cleared, e.g. by Disable, does nothing.
func (h *Harness) recover(originalID string) {
	h.mu.Lock()
	original, ok := h.active[originalID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.active, originalID)

	now := time.Now()
	if injectedAt, tracked := h.pending[originalID]; tracked {
		h.recoveryDurations = append(h.recoveryDurations, now.Sub(injectedAt))
		delete(h.pending, originalID)
	}

	recovery := Event{
		ID:              h.nextIDLocked(),
		ScenarioID:      original.ScenarioID,
		Type:            EventRecovery,
		Severity:        original.Severity,
		WorkerID:        original.WorkerID,
		Capability:      original.Capability,
		ResourceType:    original.ResourceType,
		Timestamp:       now,
		OriginalEventID: originalID,
	}
	h.events = append(h.events, recovery)
	h.mu.Unlock()

	log.Infof("[Recovery]: Event %v recovered", originalID)
	h.publishEvent(events.ReasonRecovery, "Normal", "event "+originalID+" recovered", recovery)
}

// registerLocked appends the event to the history and marks it active.
func (h *Harness) registerLocked(event Event) {
	h.events = append(h.events, event)
	h.active[event.ID] = event
	h.pending[event.ID] = event.Timestamp
	h.triggered++
	if event.WorkerID != "" {
		h.workersAffected[event.WorkerID] = struct{}{}
	}
}

// Events returns a copy of the full event history, recoveries included.
func (h *Harness) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

// GetActiveEvents returns the events still waiting for recovery, in
// emission order.
func (h *Harness) GetActiveEvents() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := make([]Event, 0, len(h.active))
	for _, event := range h.events {
		if _, ok := h.active[event.ID]; ok {
			list = append(list, event)
		}
	}
	return list
}

// ClearAllEvents cancels every pending recovery and wipes the history and
// the active set. The triggered counter, the scenario registry and the
// generator state are untouched.
func (h *Harness) ClearAllEvents() {
	h.queue.CancelAll()

	h.mu.Lock()
	h.events = nil
	h.active = make(map[string]Event)
	h.pending = make(map[string]time.Time)
	h.recoveryDurations = nil
	h.workersAffected = make(map[string]struct{})
	h.mu.Unlock()

	h.publishLifecycle(events.ReasonEventsCleared, "Normal", "event history cleared", nil)
}

// ResetSeed reseeds the generator so a subsequent run reproduces the same
// draw sequence.
func (h *Harness) ResetSeed(seed int64) {
	h.mu.Lock()
	h.gen.Reset(seed)
	h.mu.Unlock()

	log.Infof("[Chaos]: Generator reseeded to %v", seed)
	h.publishLifecycle(events.ReasonSeedReset, "Normal", "generator reseeded", map[string]interface{}{
		"seed": seed,
	})
}

// Seed returns the seed of the last reset.
func (h *Harness) Seed() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gen.Seed()
}

// GetMetrics computes the current counters from the recorded history and
// the running counters. EventsTriggered never decreases within a run, a
// ClearAllEvents only resets the derived values.
func (h *Harness) GetMetrics() Metrics {
	h.mu.Lock()
	defer h.mu.Unlock()

	activeScenarios := make(map[string]struct{})
	for _, event := range h.active {
		activeScenarios[event.ScenarioID] = struct{}{}
	}

	var averageRecovery time.Duration
	if len(h.recoveryDurations) > 0 {
		var total time.Duration
		for _, d := range h.recoveryDurations {
			total += d
		}
		averageRecovery = total / time.Duration(len(h.recoveryDurations))
	}

	return Metrics{
		TotalScenarios:      len(h.scenarios),
		ActiveScenarios:     len(activeScenarios),
		EventsTriggered:     h.triggered,
		ActiveEvents:        len(h.active),
		WorkersAffected:     len(h.workersAffected),
		AverageRecoveryTime: averageRecovery,
		FailureRate:         FailureRateOf(h.events),
	}
}

func (h *Harness) nextIDLocked() string {
	h.seq++
	return "evt-" + strconv.Itoa(h.seq)
}

func (h *Harness) publishEvent(reason, eventType, message string, event Event) {
	if h.bus == nil {
		return
	}

	fields := map[string]interface{}{
		"eventId":    event.ID,
		"scenarioId": event.ScenarioID,
		"eventType":  string(event.Type),
		"severity":   string(event.Severity),
	}
	if event.WorkerID != "" {
		fields["workerId"] = event.WorkerID
	}
	if event.Capability != "" {
		fields["capability"] = event.Capability
	}
	if event.ResourceType != "" {
		fields["resourceType"] = event.ResourceType
	}
	if event.OriginalEventID != "" {
		fields["originalEventId"] = event.OriginalEventID
	}
	for key, value := range event.Metadata {
		fields[key] = value
	}

	now := time.Now()
	h.bus.Publish(events.Notification{
		ID:             event.ID,
		Kind:           "Harness",
		Reason:         reason,
		Message:        message,
		Resource:       h.engineName,
		Type:           eventType,
		Count:          1,
		FirstTimestamp: now,
		LastTimestamp:  now,
		Fields:         fields,
	})
}

func (h *Harness) publishLifecycle(reason, eventType, message string, fields map[string]interface{}) {
	if h.bus == nil {
		return
	}

	now := time.Now()
	h.bus.Publish(events.Notification{
		ID:             uuid.New().String(),
		Kind:           "Harness",
		Reason:         reason,
		Message:        message,
		Resource:       h.engineName,
		Type:           eventType,
		Count:          1,
		FirstTimestamp: now,
		LastTimestamp:  now,
		Fields:         fields,
	})
}
