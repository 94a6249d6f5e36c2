package chaos

import (
	"testing"
	"time"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
)

func TestSeverityFromDraw(t *testing.T) {
	tests := []struct {
		draw     float64
		severity Severity
	}{
		{0.0, SeverityLow},
		{0.49, SeverityLow},
		{0.5, SeverityMedium},
		{0.79, SeverityMedium},
		{0.8, SeverityHigh},
		{0.94, SeverityHigh},
		{0.95, SeverityCritical},
		{0.999, SeverityCritical},
	}
	for _, tc := range tests {
		if actual := SeverityFromDraw(tc.draw); actual != tc.severity {
			t.Errorf("draw %v: expected severity %v, got %v", tc.draw, tc.severity, actual)
		}
	}
}

func TestDegradationLevel(t *testing.T) {
	tests := []struct {
		severity Severity
		level    float64
	}{
		{SeverityLow, 0.2},
		{SeverityMedium, 0.5},
		{SeverityHigh, 0.8},
		{SeverityCritical, 0.8},
		{Severity("unknown"), 0.5},
	}
	for _, tc := range tests {
		if actual := DegradationLevel(tc.severity); actual != tc.level {
			t.Errorf("severity %v: expected level %v, got %v", tc.severity, tc.level, actual)
		}
	}
}

func TestConditionEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		condition Condition
		snapshot  SystemSnapshot
		expected  bool
	}{
		{
			name:      "worker saturation above threshold",
			condition: Condition{Type: ConditionWorkerSaturation, Operator: OperatorGreaterThan, Value: 0},
			snapshot:  SystemSnapshot{WorkerCount: 2},
			expected:  true,
		},
		{
			name:      "worker saturation at threshold",
			condition: Condition{Type: ConditionWorkerSaturation, Operator: OperatorGreaterThan, Value: 0},
			snapshot:  SystemSnapshot{WorkerCount: 0},
			expected:  false,
		},
		{
			name:      "task load below limit",
			condition: Condition{Type: ConditionTaskLoad, Operator: OperatorLessThan, Value: 0.5},
			snapshot:  SystemSnapshot{TaskLoad: 0.25},
			expected:  true,
		},
		{
			name:      "time of day equality",
			condition: Condition{Type: ConditionTimeOfDay, Operator: OperatorEqual, Value: 12},
			snapshot:  SystemSnapshot{TimeOfDay: 12},
			expected:  true,
		},
		{
			name:      "resource usage at inclusive bound",
			condition: Condition{Type: ConditionResourceUsage, Operator: OperatorGreaterOrEqual, Value: 0.5},
			snapshot:  SystemSnapshot{SystemLoad: 0.5},
			expected:  true,
		},
		{
			name:      "resource usage above upper bound",
			condition: Condition{Type: ConditionResourceUsage, Operator: OperatorLessOrEqual, Value: 0.5},
			snapshot:  SystemSnapshot{SystemLoad: 0.75},
			expected:  false,
		},
		{
			name:      "unknown condition type",
			condition: Condition{Type: ConditionType("moon-phase"), Operator: OperatorGreaterThan, Value: 0},
			snapshot:  SystemSnapshot{WorkerCount: 5},
			expected:  false,
		},
		{
			name:      "unknown operator",
			condition: Condition{Type: ConditionWorkerSaturation, Operator: ComparisonOperator("!="), Value: 0},
			snapshot:  SystemSnapshot{WorkerCount: 5},
			expected:  false,
		},
	}
	for _, tc := range tests {
		if actual := tc.condition.Evaluate(tc.snapshot); actual != tc.expected {
			t.Errorf("%v: expected %v, got %v", tc.name, tc.expected, actual)
		}
	}
}

func TestScenarioApplicable_NoConditions(t *testing.T) {
	scenario := Scenario{ID: "scn-1", Name: "always", EventType: EventFailure}
	if !scenario.Applicable(SystemSnapshot{}) {
		t.Errorf("scenario without conditions should always be applicable")
	}
}

func TestScenarioApplicable_AllConditionsMustHold(t *testing.T) {
	scenario := Scenario{
		ID:        "scn-1",
		Name:      "gated",
		EventType: EventFailure,
		Conditions: []Condition{
			{Type: ConditionWorkerSaturation, Operator: OperatorGreaterThan, Value: 0},
			{Type: ConditionResourceUsage, Operator: OperatorGreaterThan, Value: 0.7},
		},
	}

	if scenario.Applicable(SystemSnapshot{WorkerCount: 3, SystemLoad: 0.5}) {
		t.Errorf("scenario should not apply when one condition fails")
	}
	if !scenario.Applicable(SystemSnapshot{WorkerCount: 3, SystemLoad: 0.8}) {
		t.Errorf("scenario should apply when every condition holds")
	}
}

func TestScenarioValidate(t *testing.T) {
	valid := Scenario{
		ID:            "scn-1",
		Name:          "valid",
		EventType:     EventNetworkIssue,
		Weight:        0.5,
		RecoveryDelay: 5 * time.Second,
		Conditions: []Condition{
			{Type: ConditionTaskLoad, Operator: OperatorGreaterThan, Value: 0.1},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid scenario, got error: %v", err)
	}

	tests := []struct {
		name     string
		scenario Scenario
	}{
		{
			name:     "missing id",
			scenario: Scenario{Name: "n", EventType: EventFailure},
		},
		{
			name:     "missing name",
			scenario: Scenario{ID: "scn-1", EventType: EventFailure},
		},
		{
			name:     "negative weight",
			scenario: Scenario{ID: "scn-1", Name: "n", EventType: EventFailure, Weight: -0.1},
		},
		{
			name:     "negative recovery delay",
			scenario: Scenario{ID: "scn-1", Name: "n", EventType: EventFailure, RecoveryDelay: -time.Second},
		},
		{
			name:     "recovery is not injectable",
			scenario: Scenario{ID: "scn-1", Name: "n", EventType: EventRecovery},
		},
		{
			name: "unknown condition type",
			scenario: Scenario{ID: "scn-1", Name: "n", EventType: EventFailure, Conditions: []Condition{
				{Type: ConditionType("moon-phase"), Operator: OperatorGreaterThan, Value: 1},
			}},
		},
		{
			name: "unknown operator",
			scenario: Scenario{ID: "scn-1", Name: "n", EventType: EventFailure, Conditions: []Condition{
				{Type: ConditionTaskLoad, Operator: ComparisonOperator("!="), Value: 1},
			}},
		},
	}
	for _, tc := range tests {
		err := tc.scenario.Validate()
		if err == nil {
			t.Errorf("%v: expected validation error", tc.name)
			continue
		}
		if errorType := cerrors.GetErrorType(err); errorType != cerrors.ErrorTypeScenarioConfiguration {
			t.Errorf("%v: expected error type %v, got %v", tc.name, cerrors.ErrorTypeScenarioConfiguration, errorType)
		}
	}
}

func TestFailureRateOf(t *testing.T) {
	if actual := FailureRateOf(nil); actual != 0 {
		t.Errorf("expected zero failure rate for empty history, got %v", actual)
	}

	history := []Event{
		{ID: "evt-1", Type: EventFailure},
		{ID: "evt-2", Type: EventNetworkIssue},
		{ID: "evt-3", Type: EventFailure},
		{ID: "evt-4", Type: EventRecovery},
	}
	if actual := FailureRateOf(history); actual != 0.5 {
		t.Errorf("expected failure rate 0.5, got %v", actual)
	}
}
