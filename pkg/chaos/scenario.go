package chaos

import (
	"fmt"
	"time"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
)

// EventType classifies an injected chaos event.
type EventType string

const (
	// EventFailure is a hard worker failure
	EventFailure EventType = "failure"
	// EventDegradation is a partial loss of capability
	EventDegradation EventType = "degradation"
	// EventNetworkIssue is a network-level disruption
	EventNetworkIssue EventType = "network-issue"
	// EventResourceExhaustion is a depleted resource
	EventResourceExhaustion EventType = "resource-exhaustion"
	// EventRecovery marks a previously injected event as recovered
	EventRecovery EventType = "recovery"
)

// Severity grades an injected event.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityFromDraw buckets a uniform draw into a severity grade.
func SeverityFromDraw(draw float64) Severity {
	switch {
	case draw < 0.5:
		return SeverityLow
	case draw < 0.8:
		return SeverityMedium
	case draw < 0.95:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// DegradationLevel maps a severity grade to the numeric degradation level
// carried by network events.
func DegradationLevel(severity Severity) float64 {
	switch severity {
	case SeverityLow:
		return 0.2
	case SeverityMedium:
		return 0.5
	case SeverityHigh, SeverityCritical:
		return 0.8
	default:
		return 0.5
	}
}

// ConditionType names the snapshot field a condition evaluates against.
type ConditionType string

const (
	// ConditionWorkerSaturation compares against the worker count
	ConditionWorkerSaturation ConditionType = "worker-saturation"
	// ConditionTaskLoad compares against the task load
	ConditionTaskLoad ConditionType = "task-load"
	// ConditionTimeOfDay compares against the hour of day
	ConditionTimeOfDay ConditionType = "time-of-day"
	// ConditionResourceUsage compares against the system load
	ConditionResourceUsage ConditionType = "resource-usage"
)

// ComparisonOperator is the comparison a condition applies.
type ComparisonOperator string

const (
	OperatorGreaterThan    ComparisonOperator = ">"
	OperatorLessThan       ComparisonOperator = "<"
	OperatorEqual          ComparisonOperator = "="
	OperatorGreaterOrEqual ComparisonOperator = ">="
	OperatorLessOrEqual    ComparisonOperator = "<="
)

// SystemSnapshot is the orchestrator state a tick evaluates conditions against.
type SystemSnapshot struct {
	WorkerCount int     `json:"workerCount"`
	TaskLoad    float64 `json:"taskLoad"`
	TimeOfDay   float64 `json:"timeOfDay"`
	SystemLoad  float64 `json:"systemLoad"`
}

// Condition is a single comparison against one snapshot field.
type Condition struct {
	Type     ConditionType      `yaml:"type" json:"type"`
	Operator ComparisonOperator `yaml:"operator" json:"operator"`
	Value    float64            `yaml:"value" json:"value"`
}

// Evaluate reports whether the condition holds for the snapshot.
func (c Condition) Evaluate(snapshot SystemSnapshot) bool {
	var observed float64
	switch c.Type {
	case ConditionWorkerSaturation:
		observed = float64(snapshot.WorkerCount)
	case ConditionTaskLoad:
		observed = snapshot.TaskLoad
	case ConditionTimeOfDay:
		observed = snapshot.TimeOfDay
	case ConditionResourceUsage:
		observed = snapshot.SystemLoad
	default:
		return false
	}

	switch c.Operator {
	case OperatorGreaterThan:
		return observed > c.Value
	case OperatorLessThan:
		return observed < c.Value
	case OperatorEqual:
		return observed == c.Value
	case OperatorGreaterOrEqual:
		return observed >= c.Value
	case OperatorLessOrEqual:
		return observed <= c.Value
	default:
		return false
	}
}

// Scenario is a registered fault pattern. Weight steers the weighted choice
// among applicable scenarios on each tick, it is not an independent trigger
// probability.
type Scenario struct {
	ID            string        `yaml:"id" json:"id"`
	Name          string        `yaml:"name" json:"name"`
	Description   string        `yaml:"description,omitempty" json:"description,omitempty"`
	EventType     EventType     `yaml:"eventType" json:"eventType"`
	Weight        float64       `yaml:"weight" json:"weight"`
	Duration      time.Duration `yaml:"-" json:"duration"`
	RecoveryDelay time.Duration `yaml:"-" json:"recoveryDelay"`
	TargetWorkers []string      `yaml:"targetWorkers,omitempty" json:"targetWorkers,omitempty"`
	Capability    string        `yaml:"capability,omitempty" json:"capability,omitempty"`
	Conditions    []Condition   `yaml:"conditions,omitempty" json:"conditions,omitempty"`
}

// Applicable reports whether every condition holds. A scenario without
// conditions is always applicable.
func (s Scenario) Applicable(snapshot SystemSnapshot) bool {
	for _, condition := range s.Conditions {
		if !condition.Evaluate(snapshot) {
			return false
		}
	}
	return true
}

// Validate rejects scenarios the harness cannot schedule.
func (s Scenario) Validate() error {
	if s.ID == "" {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeScenarioConfiguration, Reason: "scenario id is required"}
	}
	if s.Name == "" {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeScenarioConfiguration, Target: s.ID, Reason: "scenario name is required"}
	}
	if s.Weight < 0 {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeScenarioConfiguration, Target: s.ID, Reason: fmt.Sprintf("negative weight %v", s.Weight)}
	}
	if s.RecoveryDelay < 0 {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeScenarioConfiguration, Target: s.ID, Reason: fmt.Sprintf("negative recovery delay %v", s.RecoveryDelay)}
	}
	switch s.EventType {
	case EventFailure, EventDegradation, EventNetworkIssue, EventResourceExhaustion:
	default:
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeScenarioConfiguration, Target: s.ID, Reason: fmt.Sprintf("unknown event type %q", s.EventType)}
	}
	for _, condition := range s.Conditions {
		switch condition.Type {
		case ConditionWorkerSaturation, ConditionTaskLoad, ConditionTimeOfDay, ConditionResourceUsage:
		default:
			return cerrors.Error{ErrorCode: cerrors.ErrorTypeScenarioConfiguration, Target: s.ID, Reason: fmt.Sprintf("unknown condition type %q", condition.Type)}
		}
		switch condition.Operator {
		case OperatorGreaterThan, OperatorLessThan, OperatorEqual, OperatorGreaterOrEqual, OperatorLessOrEqual:
		default:
			return cerrors.Error{ErrorCode: cerrors.ErrorTypeScenarioConfiguration, Target: s.ID, Reason: fmt.Sprintf("unknown operator %q", condition.Operator)}
		}
	}
	return nil
}
