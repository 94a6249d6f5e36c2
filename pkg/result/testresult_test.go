package result

import (
	"testing"

	"github.com/darianrosebrook/agent-resilience-go/pkg/chaos"
)

func TestGetTestResultsSummary(t *testing.T) {
	store := NewStore()

	if summary := store.GetTestResultsSummary(); summary.TestsRun != 0 || summary.MeanFailureRate != 0 {
		t.Errorf("expected an empty summary, got %+v", summary)
	}

	store.RecordTestResult(TestResult{Name: "worker-failure", Success: true, EventsTriggered: 5, FailureRate: 0.25})
	store.RecordTestResult(TestResult{Name: "cascading-failure", Success: false, EventsTriggered: 3, FailureRate: 0.75})

	summary := store.GetTestResultsSummary()
	if summary.TestsRun != 2 {
		t.Errorf("expected 2 tests run, got %v", summary.TestsRun)
	}
	if summary.Passed != 1 || summary.Failed != 1 {
		t.Errorf("expected 1 passed and 1 failed, got %v and %v", summary.Passed, summary.Failed)
	}
	if summary.TotalEvents != 8 {
		t.Errorf("expected 8 total events, got %v", summary.TotalEvents)
	}
	if summary.MeanFailureRate != 0.5 {
		t.Errorf("expected mean failure rate 0.5, got %v", summary.MeanFailureRate)
	}

	if results := store.TestResults(); len(results) != 2 || results[0].Name != "worker-failure" {
		t.Errorf("expected recording order to be preserved, got %+v", results)
	}
}

func TestScenarioBreakdown(t *testing.T) {
	history := []chaos.Event{
		{ID: "evt-1", ScenarioID: "worker-failure", Type: chaos.EventFailure},
		{ID: "evt-2", ScenarioID: "network-degradation", Type: chaos.EventNetworkIssue},
		{ID: "evt-3", ScenarioID: "worker-failure", Type: chaos.EventRecovery, OriginalEventID: "evt-1"},
	}

	stats := ScenarioBreakdown(history)
	if len(stats) != 2 {
		t.Fatalf("expected stats for 2 scenarios, got %v", len(stats))
	}
	if stats["worker-failure"] != (ScenarioStats{Triggered: 1, Recovered: 1, Failed: 1}) {
		t.Errorf("unexpected worker-failure stats: %+v", stats["worker-failure"])
	}
	if stats["network-degradation"] != (ScenarioStats{Triggered: 1}) {
		t.Errorf("unexpected network-degradation stats: %+v", stats["network-degradation"])
	}
}
