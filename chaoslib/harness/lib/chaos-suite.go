package lib

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/palantir/stacktrace"
	"github.com/sirupsen/logrus"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
	"github.com/darianrosebrook/agent-resilience-go/pkg/chaos"
	"github.com/darianrosebrook/agent-resilience-go/pkg/clients"
	"github.com/darianrosebrook/agent-resilience-go/pkg/events"
	"github.com/darianrosebrook/agent-resilience-go/pkg/log"
	"github.com/darianrosebrook/agent-resilience-go/pkg/math"
	experimentTypes "github.com/darianrosebrook/agent-resilience-go/pkg/orchestrator/types"
	"github.com/darianrosebrook/agent-resilience-go/pkg/probe"
	"github.com/darianrosebrook/agent-resilience-go/pkg/result"
	"github.com/darianrosebrook/agent-resilience-go/pkg/status"
	"github.com/darianrosebrook/agent-resilience-go/pkg/telemetry"
	"github.com/darianrosebrook/agent-resilience-go/pkg/types"
	"github.com/darianrosebrook/agent-resilience-go/pkg/utils/common"
	"github.com/darianrosebrook/agent-resilience-go/pkg/utils/stringutils"
)

// InjectionPlan applies manual fault injections after the harness is enabled
// and before the sampling loop starts.
type InjectionPlan func(ctx context.Context, harness *chaos.Harness, experimentsDetails *experimentTypes.ExperimentDetails, chaosDetails *types.ChaosDetails) error

// the harness of the run in flight, kept so an abort can revert it
var (
	activeMutex   sync.Mutex
	activeHarness *chaos.Harness
)

func setActiveHarness(harness *chaos.Harness) {
	activeMutex.Lock()
	activeHarness = harness
	activeMutex.Unlock()
}

// LoadScenarioSet resolves the scenario subset a pattern runs with. The
// catalog file wins over the built-in set when one is configured, unknown
// ids fail fast. Scenarios that pin no targets get the run's target workers.
func LoadScenarioSet(experimentsDetails *experimentTypes.ExperimentDetails, ids ...string) ([]chaos.Scenario, error) {
	catalog := chaos.DefaultScenarios()
	if experimentsDetails.ScenarioFile != "" {
		loaded, err := chaos.LoadCatalog(experimentsDetails.ScenarioFile)
		if err != nil {
			return nil, stacktrace.Propagate(err, "could not load the scenario catalog")
		}
		catalog = loaded
	}

	if len(ids) == 0 {
		return stampTargets(catalog, experimentsDetails.TargetWorkers), nil
	}

	byID := make(map[string]chaos.Scenario, len(catalog))
	for _, scenario := range catalog {
		byID[scenario.ID] = scenario
	}
	scenarios := make([]chaos.Scenario, 0, len(ids))
	for _, id := range ids {
		scenario, ok := byID[id]
		if !ok {
			return nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeScenarioConfiguration, Target: id, Reason: "scenario not present in the catalog"}
		}
		scenarios = append(scenarios, scenario)
	}
	return stampTargets(scenarios, experimentsDetails.TargetWorkers), nil
}

func stampTargets(scenarios []chaos.Scenario, workers []string) []chaos.Scenario {
	for i := range scenarios {
		if len(scenarios[i].TargetWorkers) == 0 {
			scenarios[i].TargetWorkers = workers
		}
	}
	return scenarios
}

// NewSuiteHarness builds a fresh seeded harness for one pattern run and
// registers the given scenarios on it. Every run gets its own harness so the
// draw sequence always starts from the configured seed.
func NewSuiteHarness(experimentsDetails *experimentTypes.ExperimentDetails, scenarios []chaos.Scenario, clients clients.ClientSets) (*chaos.Harness, error) {
	harness := chaos.NewHarness(chaos.HarnessConfig{
		EngineName:   experimentsDetails.EngineName,
		Seed:         experimentsDetails.Seed,
		TickInterval: time.Duration(experimentsDetails.TickInterval) * time.Millisecond,
		Snapshot:     rampSnapshot(experimentsDetails),
		Bus:          clients.Bus,
	})
	for _, scenario := range scenarios {
		if err := harness.AddScenario(scenario); err != nil {
			return nil, stacktrace.Propagate(err, "could not register the %v scenario", scenario.ID)
		}
	}
	return harness, nil
}

// rampSnapshot replays a load ramp across the chaos duration. Early ticks
// see a lightly loaded orchestrator and late ticks a saturated one, so the
// differently conditioned scenarios become applicable at different phases
// of the same run.
func rampSnapshot(experimentsDetails *experimentTypes.ExperimentDetails) chaos.SnapshotProvider {
	start := time.Now()
	total := float64(experimentsDetails.ChaosDuration)

	return func(ctx context.Context) chaos.SystemSnapshot {
		progress := 1.0
		if total > 0 {
			progress = math.Clamp(time.Since(start).Seconds()/total, 0, 1)
		}
		return chaos.SystemSnapshot{
			WorkerCount: len(experimentsDetails.TargetWorkers),
			TaskLoad:    0.2 + 0.8*progress,
			TimeOfDay:   float64(time.Now().Hour()) / 24,
			SystemLoad:  0.3 + 0.7*progress,
		}
	}
}

// RunChaosTest drives one named chaos pattern end to end: it enables a fresh
// harness with the given scenario set, applies the manual injection plan when
// one is given, then keeps sampling the harness metrics until the chaos
// duration elapses. The suite record lands in the result store.
func RunChaosTest(ctx context.Context, testName string, scenarios []chaos.Scenario, plan InjectionPlan, experimentsDetails *experimentTypes.ExperimentDetails, clients clients.ClientSets, resultDetails *types.ResultDetails, eventsDetails *types.EventDetails, chaosDetails *types.ChaosDetails, inject chan os.Signal) (result.TestResult, error) {
	ctx, span := telemetry.StartTracing(ctx, "RunChaosTest")
	defer span.End()

	select {
	case <-inject:
		// stopping the chaos execution, if abort signal received
		os.Exit(0)
	default:
		harness, err := NewSuiteHarness(experimentsDetails, scenarios, clients)
		if err != nil {
			return result.TestResult{}, stacktrace.Propagate(err, "could not build the chaos harness")
		}
		setActiveHarness(harness)
		defer setActiveHarness(nil)

		meters, err := telemetry.NewMetrics()
		if err != nil {
			log.Errorf("Unable to register the chaos meters, err: %v", err)
		}

		if clients.Registry != nil && clients.Bus != nil {
			updater := status.NewHealthUpdater(clients.Registry, clients.Bus)
			updater.Start(ctx)
			defer updater.Stop()
		}

		log.InfoWithValues("[Chaos]: Starting the "+testName+" chaos test", logrus.Fields{
			"Seed":           experimentsDetails.Seed,
			"Duration":       experimentsDetails.ChaosDuration,
			"Tick Interval":  experimentsDetails.TickInterval,
			"Scenarios":      len(scenarios),
			"Target Workers": len(experimentsDetails.TargetWorkers),
		})

		if experimentsDetails.EngineName != "" {
			msg := "Injecting " + experimentsDetails.ExperimentName + " chaos on workers " + stringutils.FormatWorkerIDs(experimentsDetails.TargetWorkers)
			types.SetEngineEventAttributes(eventsDetails, types.ChaosInject, msg, "Normal", chaosDetails)
			events.GenerateEvents(eventsDetails, clients.Bus, chaosDetails, "ChaosEngine")
		}

		//ChaosStartTimeStamp contains the start timestamp, when the chaos injection begin
		ChaosStartTimeStamp := time.Now()

		harness.Enable(ctx)
		defer harness.Disable()

		for _, workerID := range experimentsDetails.TargetWorkers {
			common.SetTargets(workerID, "injected", "worker", chaosDetails)
		}

		if plan != nil {
			if err := plan(ctx, harness, experimentsDetails, chaosDetails); err != nil {
				return result.TestResult{}, stacktrace.Propagate(err, "could not apply the injection plan")
			}
		}

		// run the probes during chaos
		if len(resultDetails.ProbeDetails) != 0 {
			if err := probe.RunProbes(ctx, chaosDetails, clients, resultDetails, "DuringChaos", eventsDetails); err != nil {
				return result.TestResult{}, stacktrace.Propagate(err, "failed to run probes")
			}
		}

		duration := int(time.Since(ChaosStartTimeStamp).Seconds())

		for duration < experimentsDetails.ChaosDuration {

			select {
			case <-ctx.Done():
				return result.TestResult{}, cerrors.Error{ErrorCode: cerrors.ErrorTypeExperimentAborted, Target: testName, Reason: "chaos test run canceled"}
			case <-time.After(time.Duration(experimentsDetails.SamplePeriod) * time.Second):
			}

			metrics := harness.GetMetrics()
			log.InfoWithValues("[Chaos]: Sampled the harness metrics", logrus.Fields{
				"Events Triggered": metrics.EventsTriggered,
				"Active Events":    metrics.ActiveEvents,
				"Workers Affected": metrics.WorkersAffected,
				"Failure Rate":     fmt.Sprintf("%.3f", metrics.FailureRate),
			})
			meters.Observe(ctx, metrics)

			duration = int(time.Since(ChaosStartTimeStamp).Seconds())
		}

		harness.Disable()

		for _, workerID := range experimentsDetails.TargetWorkers {
			common.SetTargets(workerID, "reverted", "worker", chaosDetails)
		}

		testResult := foldTestResult(testName, harness, ChaosStartTimeStamp, experimentsDetails)
		if clients.Results != nil {
			clients.Results.RecordTestResult(testResult)
		}
		meters.Observe(ctx, harness.GetMetrics())

		log.InfoWithValues("[Chaos]: The "+testName+" chaos test completed", logrus.Fields{
			"Success":          testResult.Success,
			"Events Triggered": testResult.EventsTriggered,
			"Events Recovered": testResult.EventsRecovered,
			"Workers Affected": testResult.WorkersAffected,
			"Failure Rate":     fmt.Sprintf("%.3f", testResult.FailureRate),
		})
		return testResult, nil
	}
	return result.TestResult{}, nil
}

// foldTestResult folds the harness state of a finished run into the suite
// record.
func foldTestResult(testName string, harness *chaos.Harness, startedAt time.Time, experimentsDetails *experimentTypes.ExperimentDetails) result.TestResult {
	metrics := harness.GetMetrics()
	history := harness.Events()

	recovered := 0
	for _, event := range history {
		if event.Type == chaos.EventRecovery {
			recovered++
		}
	}

	return result.TestResult{
		Name:            testName,
		Success:         metrics.FailureRate <= experimentsDetails.FailureRateThreshold,
		Seed:            experimentsDetails.Seed,
		Duration:        time.Since(startedAt),
		Events:          history,
		Metrics:         metrics,
		EventsTriggered: metrics.EventsTriggered,
		EventsRecovered: recovered,
		WorkersAffected: metrics.WorkersAffected,
		FailureRate:     metrics.FailureRate,
		Scenarios:       result.ScenarioBreakdown(history),
		StartedAt:       startedAt,
	}
}

// AbortWatcher will be watching for the abort signal and revert the chaos
func AbortWatcher(experimentsDetails *experimentTypes.ExperimentDetails, abort chan os.Signal) {

	<-abort

	log.Infof("[Abort]: The %v experiment received an abort signal", experimentsDetails.ExperimentName)
	log.Info("[Abort]: Chaos Revert Started")
	activeMutex.Lock()
	harness := activeHarness
	activeMutex.Unlock()
	if harness != nil {
		harness.Disable()
		log.Info("[Abort]: Harness tick stopped and pending recoveries canceled")
	}
	log.Info("[Abort]: Chaos Revert Completed")
	os.Exit(1)
}

// SetChaosTunables will set up a random value within a given range of values
// If the value is not provided in range it'll set up the initial provided value.
func SetChaosTunables(experimentsDetails *experimentTypes.ExperimentDetails) {
	experimentsDetails.TargetWorkerPercentage = common.ValidateRange(experimentsDetails.TargetWorkerPercentage)
}
