package lib

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/palantir/stacktrace"
	"github.com/sirupsen/logrus"

	suite "github.com/darianrosebrook/agent-resilience-go/chaoslib/harness/lib"
	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
	"github.com/darianrosebrook/agent-resilience-go/pkg/clients"
	"github.com/darianrosebrook/agent-resilience-go/pkg/log"
	experimentTypes "github.com/darianrosebrook/agent-resilience-go/pkg/orchestrator/types"
	"github.com/darianrosebrook/agent-resilience-go/pkg/telemetry"
	"github.com/darianrosebrook/agent-resilience-go/pkg/types"
	"github.com/darianrosebrook/agent-resilience-go/pkg/utils/common"
)

var inject, abort chan os.Signal

// PrepareComprehensiveResilience runs every chaos pattern and the combined
// run, failing the experiment when any of them exceeds the failure rate
// threshold.
func PrepareComprehensiveResilience(ctx context.Context, experimentsDetails *experimentTypes.ExperimentDetails, clients clients.ClientSets, resultDetails *types.ResultDetails, eventsDetails *types.EventDetails, chaosDetails *types.ChaosDetails) error {
	ctx, span := telemetry.StartTracing(ctx, "PrepareComprehensiveResilience")
	defer span.End()

	//Set up the tunables if provided in range
	suite.SetChaosTunables(experimentsDetails)

	// inject channel is used to transmit signal notifications.
	inject = make(chan os.Signal, 1)
	// Catch and relay certain signal(s) to inject channel.
	signal.Notify(inject, os.Interrupt, syscall.SIGTERM)

	// abort channel is used to transmit signal notifications.
	abort = make(chan os.Signal, 1)
	// Catch and relay certain signal(s) to abort channel.
	signal.Notify(abort, os.Interrupt, syscall.SIGTERM)

	//Waiting for the ramp time before chaos injection
	if experimentsDetails.RampTime != 0 {
		log.Infof("[Ramp]: Waiting for the %vs ramp time before injecting chaos", experimentsDetails.RampTime)
		common.WaitForDuration(experimentsDetails.RampTime)
	}

	// watching for the abort signal and revert the chaos
	go suite.AbortWatcher(experimentsDetails, abort)

	targetWorkerPerc, _ := strconv.Atoi(experimentsDetails.TargetWorkerPercentage)
	if targetWorkerPerc < 100 && len(experimentsDetails.TargetWorkers) > 0 {
		experimentsDetails.TargetWorkers = common.FilterBasedOnPercentage(targetWorkerPerc, experimentsDetails.TargetWorkers)
		log.Infof("[Chaos]: Number of workers targeted: %v", len(experimentsDetails.TargetWorkers))
	}

	results, err := suite.RunComprehensiveResilienceTest(ctx, experimentsDetails, clients, resultDetails, eventsDetails, chaosDetails, inject)
	if err != nil {
		return stacktrace.Propagate(err, "could not run the comprehensive resilience suite")
	}

	var failed []string
	for _, testResult := range results {
		log.InfoWithValues("[Chaos]: Pattern outcome", logrus.Fields{
			"Pattern":          testResult.Name,
			"Success":          testResult.Success,
			"Events Triggered": testResult.EventsTriggered,
			"Failure Rate":     fmt.Sprintf("%.3f", testResult.FailureRate),
		})
		if !testResult.Success {
			failed = append(failed, testResult.Name)
		}
	}
	if len(failed) != 0 {
		return cerrors.Error{
			ErrorCode: cerrors.ErrorTypeChaosInject,
			Target:    strings.Join(failed, ","),
			Reason:    fmt.Sprintf("%v of %v patterns exceeded the failure rate threshold", len(failed), len(results)),
		}
	}

	//Waiting for the ramp time after chaos injection
	if experimentsDetails.RampTime != 0 {
		log.Infof("[Ramp]: Waiting for the %vs ramp time after injecting chaos", experimentsDetails.RampTime)
		common.WaitForDuration(experimentsDetails.RampTime)
	}
	return nil
}
