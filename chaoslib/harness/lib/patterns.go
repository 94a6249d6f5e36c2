package lib

import (
	"context"
	"os"
	"strconv"

	"github.com/palantir/stacktrace"
	"github.com/sirupsen/logrus"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
	"github.com/darianrosebrook/agent-resilience-go/pkg/chaos"
	"github.com/darianrosebrook/agent-resilience-go/pkg/clients"
	"github.com/darianrosebrook/agent-resilience-go/pkg/log"
	experimentTypes "github.com/darianrosebrook/agent-resilience-go/pkg/orchestrator/types"
	"github.com/darianrosebrook/agent-resilience-go/pkg/result"
	"github.com/darianrosebrook/agent-resilience-go/pkg/types"
	"github.com/darianrosebrook/agent-resilience-go/pkg/utils/common"
)

// RunWorkerFailureTest injects the configured count of manual worker
// failures on a rotating target subset, then leaves the harness tick running
// for the chaos duration.
func RunWorkerFailureTest(ctx context.Context, experimentsDetails *experimentTypes.ExperimentDetails, clients clients.ClientSets, resultDetails *types.ResultDetails, eventsDetails *types.EventDetails, chaosDetails *types.ChaosDetails, inject chan os.Signal) (result.TestResult, error) {

	if len(experimentsDetails.TargetWorkers) == 0 {
		return result.TestResult{}, cerrors.Error{ErrorCode: cerrors.ErrorTypeTargetSelection, Reason: "no target workers found to fail"}
	}

	scenarios, err := LoadScenarioSet(experimentsDetails, "worker-failure")
	if err != nil {
		return result.TestResult{}, stacktrace.Propagate(err, "could not resolve the scenario set")
	}
	return RunChaosTest(ctx, "worker-failure", scenarios, injectWorkerFailures, experimentsDetails, clients, resultDetails, eventsDetails, chaosDetails, inject)
}

// injectWorkerFailures rotates the manual failures across the target workers
// with the configured interval between injections.
func injectWorkerFailures(ctx context.Context, harness *chaos.Harness, experimentsDetails *experimentTypes.ExperimentDetails, chaosDetails *types.ChaosDetails) error {
	kinds := []chaos.FailureKind{chaos.FailureCrash, chaos.FailureHang, chaos.FailureOverload}

	for i := 0; i < experimentsDetails.FailureCount; i++ {

		select {
		case <-ctx.Done():
			return cerrors.Error{ErrorCode: cerrors.ErrorTypeExperimentAborted, Reason: "worker failure injection canceled"}
		default:
		}

		workerID := experimentsDetails.TargetWorkers[i%len(experimentsDetails.TargetWorkers)]
		kind := kinds[i%len(kinds)]
		event := harness.SimulateWorkerFailure(workerID, kind)
		log.InfoWithValues("[Inject]: Injecting a worker failure", logrus.Fields{
			"Event ID":  event.ID,
			"Worker ID": workerID,
			"Kind":      string(kind),
			"Severity":  string(event.Severity),
		})

		if i != experimentsDetails.FailureCount-1 {
			switch chaosDetails.Randomness {
			case true:
				if err := common.RandomInterval(experimentsDetails.FailureInterval); err != nil {
					return stacktrace.Propagate(err, "could not get random failure interval")
				}
			default:
				log.Infof("[Wait]: Waiting for the %vs failure interval", experimentsDetails.FailureInterval)
				waitTime, _ := strconv.Atoi(experimentsDetails.FailureInterval)
				common.WaitForDuration(waitTime)
			}
		}
	}
	return nil
}

// RunNetworkDegradationTest preloads the network degradation scenario and
// relies on the harness tick to generate events.
func RunNetworkDegradationTest(ctx context.Context, experimentsDetails *experimentTypes.ExperimentDetails, clients clients.ClientSets, resultDetails *types.ResultDetails, eventsDetails *types.EventDetails, chaosDetails *types.ChaosDetails, inject chan os.Signal) (result.TestResult, error) {
	scenarios, err := LoadScenarioSet(experimentsDetails, "network-degradation")
	if err != nil {
		return result.TestResult{}, stacktrace.Propagate(err, "could not resolve the scenario set")
	}
	return RunChaosTest(ctx, "network-degradation", scenarios, nil, experimentsDetails, clients, resultDetails, eventsDetails, chaosDetails, inject)
}

// RunResourceExhaustionTest preloads the resource exhaustion scenario and
// relies on the harness tick to generate events.
func RunResourceExhaustionTest(ctx context.Context, experimentsDetails *experimentTypes.ExperimentDetails, clients clients.ClientSets, resultDetails *types.ResultDetails, eventsDetails *types.EventDetails, chaosDetails *types.ChaosDetails, inject chan os.Signal) (result.TestResult, error) {
	scenarios, err := LoadScenarioSet(experimentsDetails, "resource-exhaustion")
	if err != nil {
		return result.TestResult{}, stacktrace.Propagate(err, "could not resolve the scenario set")
	}
	return RunChaosTest(ctx, "resource-exhaustion", scenarios, nil, experimentsDetails, clients, resultDetails, eventsDetails, chaosDetails, inject)
}

// RunCascadingFailureTest preloads the cascading failure scenario and relies
// on the harness tick to generate events once the load conditions hold.
func RunCascadingFailureTest(ctx context.Context, experimentsDetails *experimentTypes.ExperimentDetails, clients clients.ClientSets, resultDetails *types.ResultDetails, eventsDetails *types.EventDetails, chaosDetails *types.ChaosDetails, inject chan os.Signal) (result.TestResult, error) {
	scenarios, err := LoadScenarioSet(experimentsDetails, "cascading-failure")
	if err != nil {
		return result.TestResult{}, stacktrace.Propagate(err, "could not resolve the scenario set")
	}
	return RunChaosTest(ctx, "cascading-failure", scenarios, nil, experimentsDetails, clients, resultDetails, eventsDetails, chaosDetails, inject)
}

// patternRun is the signature shared by the single pattern runs.
type patternRun func(context.Context, *experimentTypes.ExperimentDetails, clients.ClientSets, *types.ResultDetails, *types.EventDetails, *types.ChaosDetails, chan os.Signal) (result.TestResult, error)

// RunComprehensiveResilienceTest runs every chaos pattern back to back with a
// pause between runs, then one combined run with the full scenario set. Every
// run records its own suite result, the returned slice keeps the run order.
func RunComprehensiveResilienceTest(ctx context.Context, experimentsDetails *experimentTypes.ExperimentDetails, clients clients.ClientSets, resultDetails *types.ResultDetails, eventsDetails *types.EventDetails, chaosDetails *types.ChaosDetails, inject chan os.Signal) ([]result.TestResult, error) {

	patterns := []struct {
		name string
		run  patternRun
	}{
		{"worker-failure", RunWorkerFailureTest},
		{"network-degradation", RunNetworkDegradationTest},
		{"resource-exhaustion", RunResourceExhaustionTest},
		{"cascading-failure", RunCascadingFailureTest},
	}

	results := make([]result.TestResult, 0, len(patterns)+1)
	for _, pattern := range patterns {
		log.Infof("[Chaos]: Running the %v pattern of the comprehensive suite", pattern.name)
		testResult, err := pattern.run(ctx, experimentsDetails, clients, resultDetails, eventsDetails, chaosDetails, inject)
		if err != nil {
			return results, stacktrace.Propagate(err, "the %v pattern failed", pattern.name)
		}
		results = append(results, testResult)

		log.Infof("[Wait]: Waiting %vs before the next pattern", experimentsDetails.Delay)
		common.WaitForDuration(experimentsDetails.Delay)
	}

	log.Info("[Chaos]: Running the combined pattern with the full scenario set")
	scenarios, err := LoadScenarioSet(experimentsDetails)
	if err != nil {
		return results, stacktrace.Propagate(err, "could not resolve the scenario set")
	}
	combined, err := RunChaosTest(ctx, "comprehensive-resilience", scenarios, nil, experimentsDetails, clients, resultDetails, eventsDetails, chaosDetails, inject)
	if err != nil {
		return results, stacktrace.Propagate(err, "the combined pattern failed")
	}
	return append(results, combined), nil
}
