package chaos

import (
	"context"
	"testing"
	"time"

	"github.com/darianrosebrook/agent-resilience-go/pkg/events"
)

func testScenario(id string, weight float64) Scenario {
	return Scenario{
		ID:        id,
		Name:      id,
		EventType: EventFailure,
		Weight:    weight,
	}
}

func newTestHarness(seed int64) *Harness {
	return NewHarness(HarnessConfig{
		EngineName:   "harness-test",
		Seed:         seed,
		TickInterval: time.Hour,
	})
}

func addScenarios(t *testing.T, harness *Harness, scenarios ...Scenario) {
	t.Helper()
	for _, scenario := range scenarios {
		if err := harness.AddScenario(scenario); err != nil {
			t.Fatalf("unable to register scenario %v: %v", scenario.ID, err)
		}
	}
}

func TestTick_WeightedSelectionIsDeterministic(t *testing.T) {
	harness := newTestHarness(12345)
	addScenarios(t, harness, testScenario("scn-a", 0.3), testScenario("scn-b", 0.7))

	ctx := context.Background()
	harness.Enable(ctx)
	defer harness.Disable()

	harness.Tick(ctx)
	harness.Tick(ctx)

	recorded := harness.Events()
	if len(recorded) != 2 {
		t.Fatalf("expected 2 events, got %v", len(recorded))
	}
	if recorded[0].ScenarioID != "scn-a" || recorded[0].Severity != SeverityLow {
		t.Errorf("first tick: expected scn-a with low severity, got %v with %v severity", recorded[0].ScenarioID, recorded[0].Severity)
	}
	if recorded[1].ScenarioID != "scn-b" || recorded[1].Severity != SeverityMedium {
		t.Errorf("second tick: expected scn-b with medium severity, got %v with %v severity", recorded[1].ScenarioID, recorded[1].Severity)
	}
	if recorded[0].ID != "evt-1" || recorded[1].ID != "evt-2" {
		t.Errorf("expected sequential event ids, got %v and %v", recorded[0].ID, recorded[1].ID)
	}
}

func TestTick_WorkerDrawOnlyForTargetedScenarios(t *testing.T) {
	harness := newTestHarness(12345)
	scenario := testScenario("scn-target", 1.0)
	scenario.TargetWorkers = []string{"worker-0", "worker-1", "worker-2"}
	addScenarios(t, harness, scenario)

	ctx := context.Background()
	harness.Enable(ctx)
	defer harness.Disable()

	harness.Tick(ctx)

	recorded := harness.Events()
	if len(recorded) != 1 {
		t.Fatalf("expected 1 event, got %v", len(recorded))
	}
	if recorded[0].WorkerID != "worker-1" {
		t.Errorf("expected worker-1 from the third draw, got %v", recorded[0].WorkerID)
	}
}

func TestTick_ConditionsGateWithoutConsumingDraws(t *testing.T) {
	saturated := false
	harness := NewHarness(HarnessConfig{
		Seed:         12345,
		TickInterval: time.Hour,
		Snapshot: func(ctx context.Context) SystemSnapshot {
			if saturated {
				return SystemSnapshot{WorkerCount: 2}
			}
			return SystemSnapshot{}
		},
	})
	scenario := testScenario("scn-gated", 1.0)
	scenario.Conditions = []Condition{
		{Type: ConditionWorkerSaturation, Operator: OperatorGreaterThan, Value: 0},
	}
	addScenarios(t, harness, scenario)

	ctx := context.Background()
	harness.Enable(ctx)
	defer harness.Disable()

	harness.Tick(ctx)
	if count := len(harness.Events()); count != 0 {
		t.Fatalf("expected no event while gated, got %v", count)
	}

	saturated = true
	harness.Tick(ctx)

	recorded := harness.Events()
	if len(recorded) != 1 {
		t.Fatalf("expected 1 event once applicable, got %v", len(recorded))
	}
	if recorded[0].Severity != SeverityLow {
		t.Errorf("gated tick should not consume draws, expected low severity, got %v", recorded[0].Severity)
	}
}

func TestTick_DisabledHarnessDoesNothing(t *testing.T) {
	harness := newTestHarness(12345)
	addScenarios(t, harness, testScenario("scn-a", 1.0))

	harness.Tick(context.Background())

	if count := len(harness.Events()); count != 0 {
		t.Errorf("expected no events from a disabled harness, got %v", count)
	}
}

func TestGenerateDeterministicEvent(t *testing.T) {
	harness := newTestHarness(12345)
	scenario := testScenario("scn-gated", 1.0)
	scenario.Conditions = []Condition{
		{Type: ConditionWorkerSaturation, Operator: OperatorGreaterThan, Value: 0},
	}
	addScenarios(t, harness, scenario)

	if event := harness.GenerateDeterministicEvent(SystemSnapshot{}); event != nil {
		t.Fatalf("expected nil when no scenario applies, got %v", event.ID)
	}

	// works on a disabled harness
	event := harness.GenerateDeterministicEvent(SystemSnapshot{WorkerCount: 2})
	if event == nil {
		t.Fatalf("expected an event for a saturated snapshot")
	}
	if event.ScenarioID != "scn-gated" || event.Severity != SeverityLow {
		t.Errorf("expected scn-gated with low severity, got %v with %v severity", event.ScenarioID, event.Severity)
	}
	if count := len(harness.GetActiveEvents()); count != 1 {
		t.Errorf("expected the generated event to be active, got %v", count)
	}
}

func TestRecoveryEmitsRecoveryEvent(t *testing.T) {
	harness := newTestHarness(12345)
	scenario := testScenario("scn-recover", 1.0)
	scenario.RecoveryDelay = 20 * time.Millisecond
	addScenarios(t, harness, scenario)

	ctx := context.Background()
	harness.Enable(ctx)
	defer harness.Disable()

	harness.Tick(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for len(harness.Events()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	recorded := harness.Events()
	if len(recorded) != 2 {
		t.Fatalf("expected injection and recovery, got %v events", len(recorded))
	}
	recovery := recorded[1]
	if recovery.Type != EventRecovery {
		t.Errorf("expected recovery event, got %v", recovery.Type)
	}
	if recovery.OriginalEventID != recorded[0].ID {
		t.Errorf("expected recovery to reference %v, got %v", recorded[0].ID, recovery.OriginalEventID)
	}
	if recovery.Severity != recorded[0].Severity {
		t.Errorf("expected recovery to keep severity %v, got %v", recorded[0].Severity, recovery.Severity)
	}
	if count := len(harness.GetActiveEvents()); count != 0 {
		t.Errorf("expected no active events after recovery, got %v", count)
	}
	if metrics := harness.GetMetrics(); metrics.AverageRecoveryTime <= 0 {
		t.Errorf("expected positive average recovery time, got %v", metrics.AverageRecoveryTime)
	}
}

func TestDisableCancelsPendingRecoveries(t *testing.T) {
	harness := newTestHarness(12345)
	scenario := testScenario("scn-recover", 1.0)
	scenario.RecoveryDelay = 50 * time.Millisecond
	addScenarios(t, harness, scenario)

	ctx := context.Background()
	harness.Enable(ctx)
	harness.Tick(ctx)
	if count := len(harness.GetActiveEvents()); count != 1 {
		t.Fatalf("expected 1 active event, got %v", count)
	}

	harness.Disable()

	if count := len(harness.GetActiveEvents()); count != 0 {
		t.Errorf("expected disable to clear active events, got %v", count)
	}
	time.Sleep(100 * time.Millisecond)
	if count := len(harness.Events()); count != 1 {
		t.Errorf("expected no recovery after disable, got %v events", count)
	}
}

func TestEnableIsIdempotent(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	subscription := bus.Subscribe(8, events.ReasonHarnessEnabled)
	defer subscription.Close()

	harness := NewHarness(HarnessConfig{Seed: 1, TickInterval: time.Hour, Bus: bus})
	ctx := context.Background()
	harness.Enable(ctx)
	harness.Enable(ctx)
	defer harness.Disable()

	if !harness.Enabled() {
		t.Fatalf("expected harness to be enabled")
	}

	select {
	case <-subscription.Events():
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the enabled notification")
	}
	select {
	case notification := <-subscription.Events():
		t.Errorf("expected a single enabled notification, got a second one: %v", notification.Reason)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSimulateWorkerFailure(t *testing.T) {
	harness := newTestHarness(12345)

	event := harness.SimulateWorkerFailure("worker-7", FailureCrash)

	if event.ScenarioID != ScenarioManual {
		t.Errorf("expected manual scenario id, got %v", event.ScenarioID)
	}
	if event.Type != EventFailure {
		t.Errorf("expected failure event, got %v", event.Type)
	}
	if event.Severity != SeverityLow {
		t.Errorf("expected low severity from the first draw, got %v", event.Severity)
	}
	if event.WorkerID != "worker-7" {
		t.Errorf("expected worker-7, got %v", event.WorkerID)
	}
	if kind, ok := event.Metadata["failureKind"].(string); !ok || kind != "crash" {
		t.Errorf("expected failureKind crash, got %v", event.Metadata["failureKind"])
	}
	if count := len(harness.Events()); count != 1 {
		t.Errorf("manual injection should work on a disabled harness, got %v events", count)
	}
}

func TestSimulateNetworkDegradation(t *testing.T) {
	harness := newTestHarness(12345)

	event := harness.SimulateNetworkDegradation([]string{"worker-0", "worker-1"}, SeverityHigh)

	if event.Type != EventNetworkIssue {
		t.Errorf("expected network-issue event, got %v", event.Type)
	}
	if event.Severity != SeverityHigh {
		t.Errorf("expected the given severity, got %v", event.Severity)
	}
	if event.WorkerID != "worker-0" {
		t.Errorf("expected the first target as the event worker, got %v", event.WorkerID)
	}
	if level, ok := event.Metadata["degradationLevel"].(float64); !ok || level != 0.8 {
		t.Errorf("expected degradation level 0.8, got %v", event.Metadata["degradationLevel"])
	}
	if ids, ok := event.Metadata["workerIds"].([]string); !ok || len(ids) != 2 {
		t.Errorf("expected 2 worker ids in metadata, got %v", event.Metadata["workerIds"])
	}
	if metrics := harness.GetMetrics(); metrics.WorkersAffected != 2 {
		t.Errorf("expected 2 workers affected, got %v", metrics.WorkersAffected)
	}

	// The explicit severity consumes no draw, so the next injection still
	// sees the seed's first draw.
	failure := harness.SimulateWorkerFailure("worker-0", FailureHang)
	if failure.Severity != SeverityLow {
		t.Errorf("expected low severity from the first draw, got %v", failure.Severity)
	}
}

func TestSimulateResourceExhaustion(t *testing.T) {
	harness := newTestHarness(12345)

	event := harness.SimulateResourceExhaustion(ResourceMemory, "")

	if event.Type != EventResourceExhaustion {
		t.Errorf("expected resource-exhaustion event, got %v", event.Type)
	}
	if event.ResourceType != ResourceMemory {
		t.Errorf("expected memory resource, got %v", event.ResourceType)
	}
	if event.WorkerID != "" {
		t.Errorf("expected no worker scope, got %v", event.WorkerID)
	}
	if event.Severity != SeverityLow {
		t.Errorf("expected low severity from the first draw, got %v", event.Severity)
	}
}

func TestClearAllEventsCancelsRecoveries(t *testing.T) {
	harness := newTestHarness(12345)
	scenario := testScenario("scn-slow", 1.0)
	scenario.RecoveryDelay = 30 * time.Millisecond
	addScenarios(t, harness, scenario)

	ctx := context.Background()
	harness.Enable(ctx)
	defer harness.Disable()
	harness.Tick(ctx)
	if count := len(harness.GetActiveEvents()); count != 1 {
		t.Fatalf("expected 1 active event, got %v", count)
	}

	harness.ClearAllEvents()

	if count := len(harness.Events()); count != 0 {
		t.Errorf("expected empty history after clear, got %v", count)
	}
	if count := len(harness.GetActiveEvents()); count != 0 {
		t.Errorf("expected empty active set after clear, got %v", count)
	}
	metrics := harness.GetMetrics()
	if metrics.EventsTriggered != 1 {
		t.Errorf("expected the triggered counter to survive the clear, got %v", metrics.EventsTriggered)
	}
	if metrics.WorkersAffected != 0 {
		t.Errorf("expected zero workers affected after clear, got %v", metrics.WorkersAffected)
	}

	time.Sleep(80 * time.Millisecond)
	if count := len(harness.Events()); count != 0 {
		t.Errorf("expected no recovery after clear, got %v events", count)
	}

	harness.Tick(ctx)
	if metrics := harness.GetMetrics(); metrics.EventsTriggered != 2 {
		t.Errorf("expected the triggered counter to keep counting after clear, got %v", metrics.EventsTriggered)
	}
}

func TestResetSeedReproducesSequence(t *testing.T) {
	harness := newTestHarness(99)
	addScenarios(t, harness, testScenario("scn-a", 0.4), testScenario("scn-b", 0.6))

	ctx := context.Background()
	harness.Enable(ctx)
	defer harness.Disable()

	for i := 0; i < 5; i++ {
		harness.Tick(ctx)
	}
	first := harness.Events()

	harness.Disable()
	harness.ClearAllEvents()
	harness.ResetSeed(99)
	harness.Enable(ctx)
	for i := 0; i < 5; i++ {
		harness.Tick(ctx)
	}
	second := harness.Events()

	if len(first) != len(second) {
		t.Fatalf("expected %v events on replay, got %v", len(first), len(second))
	}
	for i := range first {
		if first[i].ScenarioID != second[i].ScenarioID || first[i].Severity != second[i].Severity {
			t.Errorf("replay diverged at event %v: %v/%v vs %v/%v", i, first[i].ScenarioID, first[i].Severity, second[i].ScenarioID, second[i].Severity)
		}
	}
	if harness.Seed() != 99 {
		t.Errorf("expected seed 99, got %v", harness.Seed())
	}
}

func TestAddScenarioRejectsInvalid(t *testing.T) {
	harness := newTestHarness(1)
	if err := harness.AddScenario(Scenario{}); err == nil {
		t.Errorf("expected validation error for an empty scenario")
	}
	if count := len(harness.Scenarios()); count != 0 {
		t.Errorf("expected empty registry, got %v scenarios", count)
	}
}

func TestScenarioRegistryOrder(t *testing.T) {
	harness := newTestHarness(1)
	addScenarios(t, harness, testScenario("scn-c", 0.1), testScenario("scn-a", 0.2), testScenario("scn-b", 0.3))

	if err := harness.AddScenario(testScenario("scn-a", 0.9)); err == nil {
		t.Errorf("expected a duplicate id to be rejected")
	}

	scenarios := harness.Scenarios()
	if len(scenarios) != 3 {
		t.Fatalf("expected 3 scenarios, got %v", len(scenarios))
	}
	expectedOrder := []string{"scn-c", "scn-a", "scn-b"}
	for i, id := range expectedOrder {
		if scenarios[i].ID != id {
			t.Errorf("expected %v at position %v, got %v", id, i, scenarios[i].ID)
		}
	}
	if scenarios[1].Weight != 0.2 {
		t.Errorf("expected the original weight 0.2 to survive, got %v", scenarios[1].Weight)
	}

	if !harness.RemoveScenario("scn-a") {
		t.Errorf("expected removal of a registered scenario to succeed")
	}
	if harness.RemoveScenario("scn-a") {
		t.Errorf("expected removal of an absent scenario to report false")
	}
	if count := len(harness.Scenarios()); count != 2 {
		t.Errorf("expected 2 scenarios after removal, got %v", count)
	}
}

func TestHarnessPublishesOnBus(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	subscription := bus.Subscribe(8, events.ReasonChaosEvent)
	defer subscription.Close()

	harness := NewHarness(HarnessConfig{
		EngineName:   "chaos-engine",
		Seed:         12345,
		TickInterval: time.Hour,
		Bus:          bus,
	})
	addScenarios(t, harness, testScenario("scn-a", 1.0))

	ctx := context.Background()
	harness.Enable(ctx)
	defer harness.Disable()
	harness.Tick(ctx)

	select {
	case notification, ok := <-subscription.Events():
		if !ok {
			t.Fatalf("subscription closed before delivery")
		}
		if notification.Kind != "Harness" {
			t.Errorf("expected Harness kind, got %v", notification.Kind)
		}
		if notification.Resource != "chaos-engine" {
			t.Errorf("expected chaos-engine resource, got %v", notification.Resource)
		}
		if notification.Fields["scenarioId"] != "scn-a" {
			t.Errorf("expected scenarioId scn-a, got %v", notification.Fields["scenarioId"])
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the chaos notification")
	}
}

func TestMetricsCountsDistinctScenarios(t *testing.T) {
	harness := newTestHarness(12345)
	addScenarios(t, harness, testScenario("scn-a", 0.3), testScenario("scn-b", 0.7))

	ctx := context.Background()
	harness.Enable(ctx)
	defer harness.Disable()
	harness.Tick(ctx)
	harness.Tick(ctx)

	metrics := harness.GetMetrics()
	if metrics.TotalScenarios != 2 {
		t.Errorf("expected 2 total scenarios, got %v", metrics.TotalScenarios)
	}
	if metrics.ActiveScenarios != 2 {
		t.Errorf("expected 2 active scenarios, got %v", metrics.ActiveScenarios)
	}
	if metrics.EventsTriggered != 2 {
		t.Errorf("expected 2 events triggered, got %v", metrics.EventsTriggered)
	}
	if metrics.ActiveEvents != 2 {
		t.Errorf("expected 2 active events, got %v", metrics.ActiveEvents)
	}
	if metrics.FailureRate != 1.0 {
		t.Errorf("expected failure rate 1.0, got %v", metrics.FailureRate)
	}
}
