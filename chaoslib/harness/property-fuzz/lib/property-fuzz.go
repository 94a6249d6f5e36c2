package lib

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/palantir/stacktrace"
	"github.com/sirupsen/logrus"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
	"github.com/darianrosebrook/agent-resilience-go/pkg/clients"
	"github.com/darianrosebrook/agent-resilience-go/pkg/events"
	experimentTypes "github.com/darianrosebrook/agent-resilience-go/pkg/intake/types"
	"github.com/darianrosebrook/agent-resilience-go/pkg/log"
	"github.com/darianrosebrook/agent-resilience-go/pkg/probe"
	"github.com/darianrosebrook/agent-resilience-go/pkg/properties"
	"github.com/darianrosebrook/agent-resilience-go/pkg/telemetry"
	"github.com/darianrosebrook/agent-resilience-go/pkg/types"
	"github.com/darianrosebrook/agent-resilience-go/pkg/utils/common"
)

var abort chan os.Signal

// PreparePropertyFuzz runs the full property catalog against the intake
// boundary. A failed iteration anywhere in the catalog fails the experiment.
func PreparePropertyFuzz(ctx context.Context, experimentsDetails *experimentTypes.ExperimentDetails, clients clients.ClientSets, resultDetails *types.ResultDetails, eventsDetails *types.EventDetails, chaosDetails *types.ChaosDetails) error {
	ctx, span := telemetry.StartTracing(ctx, "PreparePropertyFuzz")
	defer span.End()

	// abort channel is used to transmit signal notifications.
	abort = make(chan os.Signal, 1)
	// Catch and relay certain signal(s) to abort channel.
	signal.Notify(abort, os.Interrupt, syscall.SIGTERM)

	//Waiting for the ramp time before the property run
	if experimentsDetails.RampTime != 0 {
		log.Infof("[Ramp]: Waiting for the %vs ramp time before the property run", experimentsDetails.RampTime)
		common.WaitForDuration(experimentsDetails.RampTime)
	}

	// an abort signal cancels the sweep, the runner keeps the partial results
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-abort
		log.Info("[Abort]: Canceling the remaining property iterations")
		cancel()
	}()

	if experimentsDetails.EngineName != "" {
		msg := "Injecting " + experimentsDetails.ExperimentName + " fuzz on the intake boundary"
		types.SetEngineEventAttributes(eventsDetails, types.ChaosInject, msg, "Normal", chaosDetails)
		events.GenerateEvents(eventsDetails, clients.Bus, chaosDetails, "ChaosEngine")
	}

	// run the probes during chaos
	if len(resultDetails.ProbeDetails) != 0 {
		if err := probe.RunProbes(ctx, chaosDetails, clients, resultDetails, "DuringChaos", eventsDetails); err != nil {
			return stacktrace.Propagate(err, "failed to run probes")
		}
	}

	runner := properties.NewRunner(properties.Config{
		BaseSeed:         experimentsDetails.BaseSeed,
		MaxIterations:    experimentsDetails.MaxIterations,
		FailureThreshold: experimentsDetails.FailureThreshold,
		MaxPayloadBytes:  experimentsDetails.MaxPayloadBytes,
		MaxObjectDepth:   experimentsDetails.MaxObjectDepth,
	}, clients)

	results, err := runner.RunAllPropertyTests(ctx)
	if err != nil {
		return stacktrace.Propagate(err, "could not run the property suite")
	}

	summary := runner.GetTestSummary()
	log.InfoWithValues("[Fuzz]: The property suite completed", logrus.Fields{
		"Properties":         summary.Properties,
		"Iterations":         summary.Iterations,
		"Failures":           summary.Failures,
		"Success Percentage": fmt.Sprintf("%.2f", summary.SuccessPercentage),
	})

	var failed []string
	for _, propertyResult := range results {
		if propertyResult.Failed > 0 {
			failed = append(failed, propertyResult.PropertyName)
		}
	}
	if len(failed) != 0 {
		return cerrors.Error{
			ErrorCode: cerrors.ErrorTypeGeneric,
			Target:    strings.Join(failed, ","),
			Reason:    fmt.Sprintf("%v of %v properties recorded failures", len(failed), len(results)),
		}
	}

	//Waiting for the ramp time after the property run
	if experimentsDetails.RampTime != 0 {
		log.Infof("[Ramp]: Waiting for the %vs ramp time after the property run", experimentsDetails.RampTime)
		common.WaitForDuration(experimentsDetails.RampTime)
	}
	return nil
}
