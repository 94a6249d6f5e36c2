package chaos

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
)

// ScenarioSpec is the YAML form of a catalog entry. Durations are whole
// seconds so catalogs stay editable by hand.
type ScenarioSpec struct {
	ID                   string      `yaml:"id"`
	Name                 string      `yaml:"name"`
	Description          string      `yaml:"description,omitempty"`
	EventType            EventType   `yaml:"eventType"`
	Weight               float64     `yaml:"weight"`
	DurationSeconds      int         `yaml:"durationSeconds,omitempty"`
	RecoveryDelaySeconds int         `yaml:"recoveryDelaySeconds,omitempty"`
	TargetWorkers        []string    `yaml:"targetWorkers,omitempty"`
	Capability           string      `yaml:"capability,omitempty"`
	Conditions           []Condition `yaml:"conditions,omitempty"`
}

// CatalogSpec is the top level document of a scenario catalog file.
type CatalogSpec struct {
	Scenarios []ScenarioSpec `yaml:"scenarios"`
}

// Scenario converts the spec into its runtime form.
func (s ScenarioSpec) Scenario() Scenario {
	return Scenario{
		ID:            s.ID,
		Name:          s.Name,
		Description:   s.Description,
		EventType:     s.EventType,
		Weight:        s.Weight,
		Duration:      time.Duration(s.DurationSeconds) * time.Second,
		RecoveryDelay: time.Duration(s.RecoveryDelaySeconds) * time.Second,
		TargetWorkers: s.TargetWorkers,
		Capability:    s.Capability,
		Conditions:    s.Conditions,
	}
}

// LoadCatalog reads and validates a scenario catalog from the YAML file.
func LoadCatalog(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeScenarioConfiguration, Reason: fmt.Sprintf("unable to read scenario catalog: %v", err)}
	}

	catalog := CatalogSpec{}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeScenarioConfiguration, Reason: fmt.Sprintf("unable to parse scenario catalog: %v", err)}
	}

	scenarios := make([]Scenario, 0, len(catalog.Scenarios))
	for _, spec := range catalog.Scenarios {
		scenario := spec.Scenario()
		if err := scenario.Validate(); err != nil {
			return nil, err
		}
		scenarios = append(scenarios, scenario)
	}
	return scenarios, nil
}

// DefaultScenarios returns the built-in catalog used when no catalog file
// is supplied.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{
			ID:            "worker-failure",
			Name:          "Worker Failure",
			Description:   "a busy worker crashes mid task",
			EventType:     EventFailure,
			Weight:        0.3,
			Duration:      30 * time.Second,
			RecoveryDelay: 10 * time.Second,
			Conditions: []Condition{
				{Type: ConditionWorkerSaturation, Operator: OperatorGreaterThan, Value: 0},
			},
		},
		{
			ID:            "network-degradation",
			Name:          "Network Degradation",
			Description:   "collaborator links degrade under task load",
			EventType:     EventNetworkIssue,
			Weight:        0.25,
			Duration:      45 * time.Second,
			RecoveryDelay: 15 * time.Second,
			Conditions: []Condition{
				{Type: ConditionTaskLoad, Operator: OperatorGreaterThan, Value: 0.3},
			},
		},
		{
			ID:            "resource-exhaustion",
			Name:          "Resource Exhaustion",
			Description:   "memory pressure on a loaded orchestrator",
			EventType:     EventResourceExhaustion,
			Weight:        0.2,
			Duration:      60 * time.Second,
			RecoveryDelay: 20 * time.Second,
			Conditions: []Condition{
				{Type: ConditionResourceUsage, Operator: OperatorGreaterOrEqual, Value: 0.5},
			},
		},
		{
			ID:            "cascading-failure",
			Name:          "Cascading Failure",
			Description:   "saturated workers fail while resources run hot",
			EventType:     EventFailure,
			Weight:        0.1,
			Duration:      90 * time.Second,
			RecoveryDelay: 30 * time.Second,
			Conditions: []Condition{
				{Type: ConditionWorkerSaturation, Operator: OperatorGreaterOrEqual, Value: 3},
				{Type: ConditionResourceUsage, Operator: OperatorGreaterThan, Value: 0.7},
			},
		},
	}
}
