package experiment

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	harnessLIB "github.com/darianrosebrook/agent-resilience-go/chaoslib/harness/property-fuzz/lib"
	"github.com/darianrosebrook/agent-resilience-go/pkg/clients"
	"github.com/darianrosebrook/agent-resilience-go/pkg/events"
	experimentEnv "github.com/darianrosebrook/agent-resilience-go/pkg/intake/environment"
	experimentTypes "github.com/darianrosebrook/agent-resilience-go/pkg/intake/types"
	"github.com/darianrosebrook/agent-resilience-go/pkg/log"
	"github.com/darianrosebrook/agent-resilience-go/pkg/probe"
	"github.com/darianrosebrook/agent-resilience-go/pkg/result"
	"github.com/darianrosebrook/agent-resilience-go/pkg/status"
	"github.com/darianrosebrook/agent-resilience-go/pkg/types"
	"github.com/darianrosebrook/agent-resilience-go/pkg/utils/common"
)

// PropertyFuzz runs the property suite against the task intake boundary
func PropertyFuzz(ctx context.Context, clients clients.ClientSets) {
	span := trace.SpanFromContext(ctx)

	experimentsDetails := experimentTypes.ExperimentDetails{}
	resultDetails := types.ResultDetails{}
	eventsDetails := types.EventDetails{}
	chaosDetails := types.ChaosDetails{}

	//Fetching all the ENV passed from the runner
	log.Infof("[PreReq]: Getting the ENV for the %v experiment", os.Getenv("EXPERIMENT_NAME"))
	experimentEnv.GetENV(&experimentsDetails, "property-fuzz")

	// Initialize the chaos attributes
	types.InitialiseChaosVariables(&chaosDetails)

	// Initialize Chaos Result Parameters
	types.SetResultAttributes(&resultDetails, chaosDetails)

	// Load the probe definitions. Bail out upon error, as we haven't entered exp business logic yet
	if err := probe.InitializeProbesInChaosResultDetails(&chaosDetails, &resultDetails); err != nil {
		log.Errorf("Unable to initialize the probes: %v", err)
		span.SetStatus(codes.Error, "Unable to initialize the probes")
		span.RecordError(err)
		return
	}

	//Updating the chaos result in the beginning of experiment
	log.Infof("[PreReq]: Updating the chaos result of %v experiment (SOT)", experimentsDetails.ExperimentName)
	if err := result.ChaosResult(&chaosDetails, clients.Results, &resultDetails, "SOT"); err != nil {
		log.Errorf("Unable to create the chaosresult: %v", err)
		result.RecordAfterFailure(&chaosDetails, &resultDetails, err, clients.Results, clients.Bus, &eventsDetails)
		span.SetStatus(codes.Error, "Unable to create the chaosresult")
		span.RecordError(err)
		return
	}

	// Set the chaos result uid
	result.SetResultUID(&resultDetails, clients.Results, &chaosDetails)

	// generating the event in chaosresult to marked the verdict as awaited
	msg := "experiment: " + experimentsDetails.ExperimentName + ", Result: Awaited"
	types.SetResultEventAttributes(&eventsDetails, types.AwaitedVerdict, msg, "Normal", &resultDetails)
	if eventErr := events.GenerateEvents(&eventsDetails, clients.Bus, &chaosDetails, "ChaosResult"); eventErr != nil {
		log.Errorf("Failed to create %v event inside chaosresult", types.AwaitedVerdict)
	}
	// Calling AbortWatcher go routine, it will continuously watch for the abort signal and generate the required events and result
	go common.AbortWatcherWithoutExit(experimentsDetails.ExperimentName, clients, &resultDetails, &chaosDetails, &eventsDetails)

	//DISPLAY THE EXPERIMENT INFORMATION
	log.InfoWithValues("The experiment information is as follows", logrus.Fields{
		"Base Seed":         experimentsDetails.BaseSeed,
		"Max Iterations":    experimentsDetails.MaxIterations,
		"Failure Threshold": experimentsDetails.FailureThreshold,
		"Max Payload Bytes": experimentsDetails.MaxPayloadBytes,
		"Max Object Depth":  experimentsDetails.MaxObjectDepth,
	})

	if experimentsDetails.EngineName != "" {
		// marking AUT as running, as we already checked the status of application under test
		msg := common.GetStatusMessage(chaosDetails.DefaultHealthCheck, "AUT: Running", "")

		// run the probes in the pre-chaos check
		if len(resultDetails.ProbeDetails) != 0 {

			if err := probe.RunProbes(ctx, &chaosDetails, clients, &resultDetails, "PreChaos", &eventsDetails); err != nil {
				log.Errorf("Probe Failed: %v", err)
				msg = common.GetStatusMessage(chaosDetails.DefaultHealthCheck, "AUT: Running", "Unsuccessful")
				types.SetEngineEventAttributes(&eventsDetails, types.PreChaosCheck, msg, "Warning", &chaosDetails)
				if eventErr := events.GenerateEvents(&eventsDetails, clients.Bus, &chaosDetails, "ChaosEngine"); eventErr != nil {
					log.Errorf("Failed to create %v event inside chaosengine", types.PreChaosCheck)
				}
				result.RecordAfterFailure(&chaosDetails, &resultDetails, err, clients.Results, clients.Bus, &eventsDetails)
				span.SetStatus(codes.Error, "Probe Failed")
				span.RecordError(err)
				return
			}
			msg = common.GetStatusMessage(chaosDetails.DefaultHealthCheck, "AUT: Running", "Successful")
		}
		// generating the events for the pre-chaos check
		types.SetEngineEventAttributes(&eventsDetails, types.PreChaosCheck, msg, "Normal", &chaosDetails)
		if eventErr := events.GenerateEvents(&eventsDetails, clients.Bus, &chaosDetails, "ChaosEngine"); eventErr != nil {
			log.Errorf("Failed to create %v event inside chaosengine", types.PreChaosCheck)
		}
	}

	if chaosDetails.DefaultHealthCheck {
		//Verify that the collaborator services are ready (pre chaos)
		if err := status.CheckCollaborators(ctx, experimentsDetails.Timeout, experimentsDetails.Delay, clients); err != nil {
			log.Errorf("Collaborator readiness check failed: %v", err)
			result.RecordAfterFailure(&chaosDetails, &resultDetails, err, clients.Results, clients.Bus, &eventsDetails)
			span.SetStatus(codes.Error, "Collaborator readiness check failed")
			span.RecordError(err)
			return
		}
		log.Info("[Status]: Collaborator services are ready")
	}

	chaosDetails.Phase = types.ChaosInjectPhase

	if err := harnessLIB.PreparePropertyFuzz(ctx, &experimentsDetails, clients, &resultDetails, &eventsDetails, &chaosDetails); err != nil {
		log.Errorf("Property suite failed: %v", err)
		result.RecordAfterFailure(&chaosDetails, &resultDetails, err, clients.Results, clients.Bus, &eventsDetails)
		span.SetStatus(codes.Error, "Property suite failed")
		span.RecordError(err)
		return
	}

	log.Infof("[Confirmation]: %v suite has completed successfully", experimentsDetails.ExperimentName)
	resultDetails.Verdict = types.ResultVerdictPassed

	chaosDetails.Phase = types.PostChaosPhase

	if chaosDetails.DefaultHealthCheck {
		//Verify that the collaborator services are ready (post chaos)
		if err := status.CheckCollaborators(ctx, experimentsDetails.Timeout, experimentsDetails.Delay, clients); err != nil {
			log.Errorf("Collaborator readiness check failed: %v", err)
			result.RecordAfterFailure(&chaosDetails, &resultDetails, err, clients.Results, clients.Bus, &eventsDetails)
			span.SetStatus(codes.Error, "Collaborator readiness check failed")
			span.RecordError(err)
			return
		}
		log.Info("[Status]: Collaborator services are ready (post chaos)")
	}

	if experimentsDetails.EngineName != "" {
		// marking AUT as running, as we already checked the status of application under test
		msg := common.GetStatusMessage(chaosDetails.DefaultHealthCheck, "AUT: Running", "")

		// run the probes in the post-chaos check
		if len(resultDetails.ProbeDetails) != 0 {
			if err := probe.RunProbes(ctx, &chaosDetails, clients, &resultDetails, "PostChaos", &eventsDetails); err != nil {
				log.Errorf("Probes Failed: %v", err)
				msg = common.GetStatusMessage(chaosDetails.DefaultHealthCheck, "AUT: Running", "Unsuccessful")
				types.SetEngineEventAttributes(&eventsDetails, types.PostChaosCheck, msg, "Warning", &chaosDetails)
				if eventErr := events.GenerateEvents(&eventsDetails, clients.Bus, &chaosDetails, "ChaosEngine"); eventErr != nil {
					log.Errorf("Failed to create %v event inside chaosengine", types.PostChaosCheck)
				}
				result.RecordAfterFailure(&chaosDetails, &resultDetails, err, clients.Results, clients.Bus, &eventsDetails)
				span.SetStatus(codes.Error, "Probes Failed")
				span.RecordError(err)
				return
			}
			msg = common.GetStatusMessage(chaosDetails.DefaultHealthCheck, "AUT: Running", "Successful")
		}

		// generating post chaos event
		types.SetEngineEventAttributes(&eventsDetails, types.PostChaosCheck, msg, "Normal", &chaosDetails)
		if eventErr := events.GenerateEvents(&eventsDetails, clients.Bus, &chaosDetails, "ChaosEngine"); eventErr != nil {
			log.Errorf("Failed to create %v event inside chaosengine", types.PostChaosCheck)
		}
	}

	//Updating the chaosResult in the end of experiment
	log.Infof("[The End]: Updating the chaos result of %v experiment (EOT)", experimentsDetails.ExperimentName)
	if err := result.ChaosResult(&chaosDetails, clients.Results, &resultDetails, "EOT"); err != nil {
		log.Errorf("Unable to update the chaosresult:  %v", err)
		span.SetStatus(codes.Error, "Unable to Update the Chaos Result")
		span.RecordError(err)
		return
	}

	// generating the event in chaosresult to marked the verdict as pass/fail
	msg = "experiment: " + experimentsDetails.ExperimentName + ", Result: " + string(resultDetails.Verdict)
	reason, eventType := types.GetChaosResultVerdictEvent(resultDetails.Verdict)
	types.SetResultEventAttributes(&eventsDetails, reason, msg, eventType, &resultDetails)
	if eventErr := events.GenerateEvents(&eventsDetails, clients.Bus, &chaosDetails, "ChaosResult"); eventErr != nil {
		log.Errorf("Failed to create %v event inside chaosresult", reason)
	}
	if experimentsDetails.EngineName != "" {
		msg := experimentsDetails.ExperimentName + " experiment has been " + string(resultDetails.Verdict) + "ed"
		types.SetEngineEventAttributes(&eventsDetails, types.Summary, msg, "Normal", &chaosDetails)
		if eventErr := events.GenerateEvents(&eventsDetails, clients.Bus, &chaosDetails, "ChaosEngine"); eventErr != nil {
			log.Errorf("Failed to create %v event inside chaosengine", types.Summary)
		}
	}
}
