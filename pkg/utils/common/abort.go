package common

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
	"github.com/darianrosebrook/agent-resilience-go/pkg/clients"
	"github.com/darianrosebrook/agent-resilience-go/pkg/events"
	"github.com/darianrosebrook/agent-resilience-go/pkg/log"
	"github.com/darianrosebrook/agent-resilience-go/pkg/result"
	"github.com/darianrosebrook/agent-resilience-go/pkg/types"
)

// AbortWatcher continuously watch for the abort signals
// it will update the chaosresult w/ failed step and create an abort event, if it received an abort signal during chaos
func AbortWatcher(expname string, clients clients.ClientSets, resultDetails *types.ResultDetails, chaosDetails *types.ChaosDetails, eventsDetails *types.EventDetails) {
	AbortWatcherWithoutExit(expname, clients, resultDetails, chaosDetails, eventsDetails)
	os.Exit(1)
}

// AbortWatcherWithoutExit continuously watch for the abort signals
func AbortWatcherWithoutExit(expname string, clients clients.ClientSets, resultDetails *types.ResultDetails, chaosDetails *types.ChaosDetails, eventsDetails *types.EventDetails) {

	// signChan channel is used to transmit signal notifications.
	signChan := make(chan os.Signal, 1)
	// Catch and relay certain signal(s) to signChan channel.
	signal.Notify(signChan, os.Interrupt, syscall.SIGTERM)

loop:
	for {
		select {
		case <-signChan:
			log.Info("[Chaos]: Chaos Experiment Abortion started because of terminated signal received")
			// updating the chaosresult after stopped
			failStep := "Chaos injection stopped!"
			types.SetResultAfterCompletion(resultDetails, types.ResultVerdictStopped, types.ResultPhaseStopped, failStep, cerrors.ErrorTypeExperimentAborted)
			if err := result.ChaosResult(chaosDetails, clients.Results, resultDetails, "EOT"); err != nil {
				log.Errorf("failed to update the chaosresult, err: %v", err)
			}

			// generating summary event in chaosengine
			msg := expname + " experiment has been aborted"
			types.SetEngineEventAttributes(eventsDetails, types.Summary, msg, "Warning", chaosDetails)
			if err := events.GenerateEvents(eventsDetails, clients.Bus, chaosDetails, "ChaosEngine"); err != nil {
				log.Errorf("failed to create %v event inside abort watcher", types.Summary)
			}

			// generating summary event in chaosresult
			types.SetResultEventAttributes(eventsDetails, types.StoppedVerdict, msg, "Warning", resultDetails)
			if err := events.GenerateEvents(eventsDetails, clients.Bus, chaosDetails, "ChaosResult"); err != nil {
				log.Errorf("failed to create %v event inside abort watcher", types.StoppedVerdict)
			}
			break loop
		}
	}
}
