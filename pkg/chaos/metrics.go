package chaos

import "time"

// Metrics is a point-in-time view of harness activity. AverageRecoveryTime
// is the measured mean between each injection and its recovery event,
// FailureRate is the share of failure-typed events in the history.
type Metrics struct {
	TotalScenarios      int           `json:"totalScenarios"`
	ActiveScenarios     int           `json:"activeScenarios"`
	EventsTriggered     int           `json:"eventsTriggered"`
	ActiveEvents        int           `json:"activeEvents"`
	WorkersAffected     int           `json:"workersAffected"`
	AverageRecoveryTime time.Duration `json:"averageRecoveryTime"`
	FailureRate         float64       `json:"failureRate"`
}

// FailureRateOf computes the failure share of an event list.
func FailureRateOf(events []Event) float64 {
	if len(events) == 0 {
		return 0
	}
	failures := 0
	for _, event := range events {
		if event.Type == EventFailure {
			failures++
		}
	}
	return float64(failures) / float64(len(events))
}
