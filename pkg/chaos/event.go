package chaos

import "time"

// ScenarioManual is the scenario id stamped on manually injected events.
const ScenarioManual = "manual"

// FailureKind names the failure mode of a manual worker-failure injection.
type FailureKind string

const (
	FailureCrash    FailureKind = "crash"
	FailureHang     FailureKind = "hang"
	FailureOverload FailureKind = "overload"
)

// ResourceType names the resource a manual exhaustion injection depletes.
type ResourceType string

const (
	ResourceCPU         ResourceType = "cpu"
	ResourceMemory      ResourceType = "memory"
	ResourceDisk        ResourceType = "disk"
	ResourceConnections ResourceType = "connections"
)

// Event is a single injected fault or its recovery.
type Event struct {
	ID              string                 `json:"id"`
	ScenarioID      string                 `json:"scenarioId"`
	Type            EventType              `json:"type"`
	Severity        Severity               `json:"severity"`
	WorkerID        string                 `json:"workerId,omitempty"`
	Capability      string                 `json:"capability,omitempty"`
	ResourceType    ResourceType           `json:"resourceType,omitempty"`
	Timestamp       time.Time              `json:"timestamp"`
	OriginalEventID string                 `json:"originalEventId,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}
