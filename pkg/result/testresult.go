package result

import (
	"time"

	"github.com/darianrosebrook/agent-resilience-go/pkg/chaos"
)

// ScenarioStats breaks one suite run down by scenario id.
type ScenarioStats struct {
	Triggered int `json:"triggered"`
	Recovered int `json:"recovered"`
	Failed    int `json:"failed"`
}

// TestResult is the outcome of one named suite run. Events carries the full
// harness history of the run, recoveries included.
type TestResult struct {
	Name            string                   `json:"name"`
	Success         bool                     `json:"success"`
	Seed            int64                    `json:"seed"`
	Duration        time.Duration            `json:"duration"`
	Events          []chaos.Event            `json:"events,omitempty"`
	Metrics         chaos.Metrics            `json:"metrics"`
	EventsTriggered int                      `json:"eventsTriggered"`
	EventsRecovered int                      `json:"eventsRecovered"`
	WorkersAffected int                      `json:"workersAffected"`
	FailureRate     float64                  `json:"failureRate"`
	Scenarios       map[string]ScenarioStats `json:"scenarios,omitempty"`
	Error           string                   `json:"error,omitempty"`
	StartedAt       time.Time                `json:"startedAt"`
}

// TestResultsSummary aggregates every suite run recorded so far.
type TestResultsSummary struct {
	TestsRun        int     `json:"testsRun"`
	Passed          int     `json:"passed"`
	Failed          int     `json:"failed"`
	TotalEvents     int     `json:"totalEvents"`
	MeanFailureRate float64 `json:"meanFailureRate"`
}

// RecordTestResult appends a suite run outcome to the store.
func (s *Store) RecordTestResult(result TestResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tests = append(s.tests, result)
}

// TestResults returns the recorded suite runs in recording order.
func (s *Store) TestResults() []TestResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TestResult(nil), s.tests...)
}

// GetTestResultsSummary totals the recorded suite runs.
func (s *Store) GetTestResultsSummary() TestResultsSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := TestResultsSummary{TestsRun: len(s.tests)}
	rateSum := 0.0
	for _, test := range s.tests {
		if test.Success {
			summary.Passed++
		} else {
			summary.Failed++
		}
		summary.TotalEvents += test.EventsTriggered
		rateSum += test.FailureRate
	}
	if summary.TestsRun > 0 {
		summary.MeanFailureRate = rateSum / float64(summary.TestsRun)
	}
	return summary
}

// ScenarioBreakdown folds an event history into per-scenario stats.
// Recovery events count toward the scenario that emitted the original.
func ScenarioBreakdown(events []chaos.Event) map[string]ScenarioStats {
	stats := make(map[string]ScenarioStats)
	for _, event := range events {
		entry := stats[event.ScenarioID]
		switch event.Type {
		case chaos.EventRecovery:
			entry.Recovered++
		case chaos.EventFailure:
			entry.Triggered++
			entry.Failed++
		default:
			entry.Triggered++
		}
		stats[event.ScenarioID] = entry
	}
	return stats
}
