package types

import (
	"testing"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
)

func TestGetTargetWorkers_ExplicitList(t *testing.T) {
	// Test that an explicit list wins over the worker count
	workers := GetTargetWorkers("worker-0,worker-3", 5)

	if len(workers) != 2 {
		t.Errorf("Expected 2 workers, got %d", len(workers))
	}

	if workers[0] != "worker-0" {
		t.Errorf("Expected 'worker-0', got '%s'", workers[0])
	}

	if workers[1] != "worker-3" {
		t.Errorf("Expected 'worker-3', got '%s'", workers[1])
	}
}

func TestGetTargetWorkers_TrimsWhitespace(t *testing.T) {
	workers := GetTargetWorkers(" worker-0 , worker-1 ", 0)

	if len(workers) != 2 {
		t.Errorf("Expected 2 workers, got %d", len(workers))
	}

	for i, w := range []string{"worker-0", "worker-1"} {
		if workers[i] != w {
			t.Errorf("Expected '%s', got '%s'", w, workers[i])
		}
	}
}

func TestGetTargetWorkers_DerivedFromCount(t *testing.T) {
	// Test that worker-N names are derived when the list is empty
	workers := GetTargetWorkers("", 3)

	if len(workers) != 3 {
		t.Errorf("Expected 3 workers, got %d", len(workers))
	}

	expected := []string{"worker-0", "worker-1", "worker-2"}
	for i, w := range expected {
		if workers[i] != w {
			t.Errorf("Expected '%s', got '%s'", w, workers[i])
		}
	}
}

func TestGetTargetWorkers_EmptyListAndZeroCount(t *testing.T) {
	workers := GetTargetWorkers("", 0)

	if len(workers) != 0 {
		t.Errorf("Expected no workers, got %d", len(workers))
	}
}

func TestSetResultAttributes_WithEngineName(t *testing.T) {
	resultDetails := ResultDetails{}
	chaosDetails := ChaosDetails{
		EngineName:     "resilience-engine",
		ExperimentName: "worker-failure",
	}

	SetResultAttributes(&resultDetails, chaosDetails)

	if resultDetails.Name != "resilience-engine-worker-failure" {
		t.Errorf("Expected result name 'resilience-engine-worker-failure', got '%s'", resultDetails.Name)
	}

	if resultDetails.Verdict != ResultVerdictAwaited {
		t.Errorf("Expected verdict '%s', got '%s'", ResultVerdictAwaited, resultDetails.Verdict)
	}

	if resultDetails.Phase != ResultPhaseRunning {
		t.Errorf("Expected phase '%s', got '%s'", ResultPhaseRunning, resultDetails.Phase)
	}
}

func TestSetResultAttributes_WithInstanceID(t *testing.T) {
	resultDetails := ResultDetails{}
	chaosDetails := ChaosDetails{
		ExperimentName: "network-degradation",
		InstanceID:     "42",
	}

	SetResultAttributes(&resultDetails, chaosDetails)

	if resultDetails.Name != "network-degradation-42" {
		t.Errorf("Expected result name 'network-degradation-42', got '%s'", resultDetails.Name)
	}
}

func TestSetResultAfterCompletion(t *testing.T) {
	resultDetails := ResultDetails{}

	SetResultAfterCompletion(&resultDetails, ResultVerdictFailed, ResultPhaseCompleted, "chaos injection failed", cerrors.ErrorTypeChaosInject)

	if resultDetails.Verdict != ResultVerdictFailed {
		t.Errorf("Expected verdict '%s', got '%s'", ResultVerdictFailed, resultDetails.Verdict)
	}

	if resultDetails.Phase != ResultPhaseCompleted {
		t.Errorf("Expected phase '%s', got '%s'", ResultPhaseCompleted, resultDetails.Phase)
	}

	if resultDetails.FailStep != "chaos injection failed" {
		t.Errorf("Expected fail step to be set, got '%s'", resultDetails.FailStep)
	}

	if resultDetails.ErrorCode != cerrors.ErrorTypeChaosInject {
		t.Errorf("Expected error code '%s', got '%s'", cerrors.ErrorTypeChaosInject, resultDetails.ErrorCode)
	}
}

func TestGetChaosResultVerdictEvent(t *testing.T) {
	reason, eventType := GetChaosResultVerdictEvent(ResultVerdictPassed)
	if reason != PassVerdict || eventType != "Normal" {
		t.Errorf("Expected (Pass, Normal), got (%s, %s)", reason, eventType)
	}

	reason, eventType = GetChaosResultVerdictEvent(ResultVerdictFailed)
	if reason != FailVerdict || eventType != "Warning" {
		t.Errorf("Expected (Fail, Warning), got (%s, %s)", reason, eventType)
	}

	reason, eventType = GetChaosResultVerdictEvent(ResultVerdictStopped)
	if reason != StoppedVerdict || eventType != "Warning" {
		t.Errorf("Expected (Stopped, Warning), got (%s, %s)", reason, eventType)
	}
}

func TestGetenv(t *testing.T) {
	t.Setenv("RESILIENCE_TEST_KEY", "configured")

	if got := Getenv("RESILIENCE_TEST_KEY", "fallback"); got != "configured" {
		t.Errorf("Expected 'configured', got '%s'", got)
	}

	if got := Getenv("RESILIENCE_TEST_KEY_UNSET", "fallback"); got != "fallback" {
		t.Errorf("Expected 'fallback', got '%s'", got)
	}
}
