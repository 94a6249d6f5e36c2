package lib

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
	"github.com/darianrosebrook/agent-resilience-go/pkg/chaos"
	"github.com/darianrosebrook/agent-resilience-go/pkg/clients"
	"github.com/darianrosebrook/agent-resilience-go/pkg/events"
	experimentTypes "github.com/darianrosebrook/agent-resilience-go/pkg/orchestrator/types"
	"github.com/darianrosebrook/agent-resilience-go/pkg/result"
	"github.com/darianrosebrook/agent-resilience-go/pkg/types"
)

type fakeRegistry struct {
	mu        sync.Mutex
	unhealthy []string
	healthy   []string
}

func (r *fakeRegistry) UpdateHealth(ctx context.Context, workerID string, status clients.HealthStatus, loadFactor float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if status == clients.HealthStatusUnhealthy {
		r.unhealthy = append(r.unhealthy, workerID)
	} else {
		r.healthy = append(r.healthy, workerID)
	}
	return nil
}

func (r *fakeRegistry) unhealthyCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.unhealthy)
}

func suiteDetails() *experimentTypes.ExperimentDetails {
	return &experimentTypes.ExperimentDetails{
		ExperimentName:       "worker-failure",
		ChaosDuration:        0,
		TickInterval:         100,
		SamplePeriod:         1,
		Seed:                 12345,
		TargetWorkers:        []string{"worker-0", "worker-1", "worker-2"},
		FailureCount:         3,
		FailureInterval:      "0",
		FailureRateThreshold: 0.8,
	}
}

func suiteClients(registry clients.WorkerRegistry) clients.ClientSets {
	return clients.ClientSets{
		Registry: registry,
		Bus:      events.NewBus(),
		Results:  result.NewStore(),
	}
}

func TestRunWorkerFailureTestInjectsManualFailures(t *testing.T) {
	registry := &fakeRegistry{}
	cs := suiteClients(registry)
	details := suiteDetails()
	chaosDetails := &types.ChaosDetails{}

	testResult, err := RunWorkerFailureTest(context.Background(), details, cs, &types.ResultDetails{}, &types.EventDetails{}, chaosDetails, nil)
	require.NoError(t, err)

	require.Equal(t, 3, testResult.EventsTriggered)
	require.Equal(t, 3, testResult.WorkersAffected)
	require.Equal(t, 1.0, testResult.FailureRate)
	require.False(t, testResult.Success)
	require.Equal(t, 3, testResult.Scenarios[chaos.ScenarioManual].Failed)

	// every manual failure must have reached the registry
	require.GreaterOrEqual(t, registry.unhealthyCalls(), 3)

	// the targets must be tracked and reverted once the run completes
	require.Len(t, chaosDetails.Targets, 3)
	for _, target := range chaosDetails.Targets {
		require.Equal(t, "worker", target.Kind)
		require.Equal(t, "reverted", target.ChaosStatus)
	}

	recorded := cs.Results.TestResults()
	require.Len(t, recorded, 1)
	require.Equal(t, "worker-failure", recorded[0].Name)
}

func TestRunWorkerFailureTestWithoutTargets(t *testing.T) {
	details := suiteDetails()
	details.TargetWorkers = nil

	_, err := RunWorkerFailureTest(context.Background(), details, suiteClients(&fakeRegistry{}), &types.ResultDetails{}, &types.EventDetails{}, &types.ChaosDetails{}, nil)
	require.Error(t, err)
	require.Equal(t, cerrors.ErrorTypeTargetSelection, cerrors.GetErrorType(err))
}

func TestRunChaosTestTickGeneratesEvents(t *testing.T) {
	details := suiteDetails()
	details.ExperimentName = "network-degradation"
	details.ChaosDuration = 1
	details.TickInterval = 50
	cs := suiteClients(&fakeRegistry{})

	scenarios, err := LoadScenarioSet(details, "network-degradation")
	require.NoError(t, err)

	testResult, err := RunChaosTest(context.Background(), "network-degradation", scenarios, nil, details, cs, &types.ResultDetails{}, &types.EventDetails{}, &types.ChaosDetails{}, nil)
	require.NoError(t, err)

	require.Greater(t, testResult.EventsTriggered, 0)
	require.Greater(t, testResult.Scenarios["network-degradation"].Triggered, 0)
	// network issues are not failure typed, the run stays below the threshold
	require.True(t, testResult.Success)
	require.Equal(t, 0.0, testResult.FailureRate)
}

func TestRunChaosTestHonorsCancellation(t *testing.T) {
	details := suiteDetails()
	details.ChaosDuration = 5
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scenarios, err := LoadScenarioSet(details, "network-degradation")
	require.NoError(t, err)

	_, err = RunChaosTest(ctx, "network-degradation", scenarios, nil, details, suiteClients(&fakeRegistry{}), &types.ResultDetails{}, &types.EventDetails{}, &types.ChaosDetails{}, nil)
	require.Error(t, err)
	require.Equal(t, cerrors.ErrorTypeExperimentAborted, cerrors.GetErrorType(err))
}

func TestLoadScenarioSetSubsetAndTargets(t *testing.T) {
	details := suiteDetails()

	scenarios, err := LoadScenarioSet(details, "worker-failure", "cascading-failure")
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	require.Equal(t, "worker-failure", scenarios[0].ID)
	require.Equal(t, "cascading-failure", scenarios[1].ID)
	for _, scenario := range scenarios {
		require.Equal(t, details.TargetWorkers, scenario.TargetWorkers)
	}

	_, err = LoadScenarioSet(details, "no-such-scenario")
	require.Error(t, err)
	require.Equal(t, cerrors.ErrorTypeScenarioConfiguration, cerrors.GetErrorType(err))
}

func TestLoadScenarioSetFromCatalogFile(t *testing.T) {
	catalog := `scenarios:
  - id: latency-spike
    name: Latency Spike
    eventType: degradation
    weight: 0.4
    recoveryDelaySeconds: 5
`
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o644))

	details := suiteDetails()
	details.ScenarioFile = path

	scenarios, err := LoadScenarioSet(details, "latency-spike")
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	require.Equal(t, details.TargetWorkers, scenarios[0].TargetWorkers)

	// the file replaces the built-in catalog entirely
	_, err = LoadScenarioSet(details, "worker-failure")
	require.Error(t, err)
}

func TestRunComprehensiveResilienceTestRunOrder(t *testing.T) {
	details := suiteDetails()
	details.ExperimentName = "comprehensive-resilience"
	cs := suiteClients(&fakeRegistry{})

	results, err := RunComprehensiveResilienceTest(context.Background(), details, cs, &types.ResultDetails{}, &types.EventDetails{}, &types.ChaosDetails{}, nil)
	require.NoError(t, err)
	require.Len(t, results, 5)

	names := make([]string, 0, len(results))
	for _, testResult := range results {
		names = append(names, testResult.Name)
	}
	require.Equal(t, []string{
		"worker-failure",
		"network-degradation",
		"resource-exhaustion",
		"cascading-failure",
		"comprehensive-resilience",
	}, names)

	// with a zero duration only the manual worker failures generate events,
	// so that leg fails its threshold and the rest pass trivially
	require.False(t, results[0].Success)
	summary := cs.Results.GetTestResultsSummary()
	require.Equal(t, 5, summary.TestsRun)
	require.Equal(t, 4, summary.Passed)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 3, summary.TotalEvents)
	require.InDelta(t, 0.2, summary.MeanFailureRate, 1e-9)
}
