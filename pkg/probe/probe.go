package probe

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/kyokomi/emoji"
	"github.com/palantir/stacktrace"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
	"github.com/darianrosebrook/agent-resilience-go/pkg/clients"
	"github.com/darianrosebrook/agent-resilience-go/pkg/log"
	"github.com/darianrosebrook/agent-resilience-go/pkg/types"
	"github.com/darianrosebrook/agent-resilience-go/pkg/utils/common"
	"github.com/darianrosebrook/agent-resilience-go/pkg/utils/stringutils"
)

// probeSpec is the document shape of the PROBE_FILE yaml
type probeSpec struct {
	Probes []types.ProbeAttributes `yaml:"probes"`
}

// InitializeProbesInChaosResultDetails loads the probe specs from the
// PROBE_FILE yaml, parses their run property durations and seeds the awaited
// probe statuses into the chaos result
func InitializeProbesInChaosResultDetails(chaosDetails *types.ChaosDetails, resultDetails *types.ResultDetails) error {

	path := os.Getenv("PROBE_FILE")
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeGeneric, Target: path, Reason: fmt.Sprintf("unable to read the probe file: %v", err)}
	}
	spec := probeSpec{}
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeGeneric, Target: path, Reason: fmt.Sprintf("unable to parse the probe file: %v", err)}
	}

	probeDetails := []*types.ProbeDetails{}
	for _, probe := range spec.Probes {
		if err := validateProbe(probe); err != nil {
			return err
		}
		timeouts, err := parseProbeTimeouts(probe)
		if err != nil {
			return err
		}
		probeDetails = append(probeDetails, &types.ProbeDetails{
			Name:     probe.Name,
			Type:     probe.Type,
			Mode:     probe.Mode,
			RunID:    stringutils.GetRunID(),
			Status:   types.ProbeStatus{Verdict: types.ProbeVerdictAwaited},
			Timeouts: timeouts,
		})
	}

	chaosDetails.Probes = spec.Probes
	resultDetails.ProbeDetails = probeDetails
	return nil
}

// RunProbes contains the steps to trigger the probes for the given phase
func RunProbes(ctx context.Context, chaosDetails *types.ChaosDetails, clients clients.ClientSets, resultDetails *types.ResultDetails, phase string, eventsDetails *types.EventDetails) error {

	for _, probe := range chaosDetails.Probes {
		switch probe.Type {
		case "httpProbe":
			if err := PrepareHTTPProbe(ctx, probe, chaosDetails, resultDetails, phase); err != nil {
				return err
			}
		default:
			return cerrors.Error{ErrorCode: cerrors.ErrorTypeGeneric, Target: probe.Name, Reason: fmt.Sprintf("No supported probe type found, type: %v", probe.Type)}
		}
	}
	return nil
}

func validateProbe(probe types.ProbeAttributes) error {
	switch {
	case probe.Name == "":
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeGeneric, Reason: "probe name is required"}
	case probe.Type != "httpProbe":
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeGeneric, Target: probe.Name, Reason: fmt.Sprintf("No supported probe type found, type: %v", probe.Type)}
	case probe.HTTPProbeInputs.URL == "":
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeGeneric, Target: probe.Name, Reason: "URL is required for the http probe"}
	case probe.HTTPProbeInputs.Method.Get == nil && probe.HTTPProbeInputs.Method.Post == nil:
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeGeneric, Target: probe.Name, Reason: "Any one of get or post method is required for the http probe"}
	case probe.RunProperties.ProbeTimeout == "":
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeGeneric, Target: probe.Name, Reason: "probeTimeout is required for the http probe"}
	}
	if !common.Contains(probe.Mode, []string{"SOT", "EOT", "Edge", "Continuous", "OnChaos"}) {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeGeneric, Target: probe.Name, Reason: fmt.Sprintf("mode '%s' not supported in the probe", probe.Mode)}
	}
	return nil
}

// parseProbeTimeouts converts the run property strings into durations, a bare
// integer is treated as seconds
func parseProbeTimeouts(probe types.ProbeAttributes) (types.ProbeTimeouts, error) {
	timeouts := types.ProbeTimeouts{}
	fields := []struct {
		name  string
		value string
		out   *time.Duration
	}{
		{"probeTimeout", probe.RunProperties.ProbeTimeout, &timeouts.ProbeTimeout},
		{"interval", probe.RunProperties.Interval, &timeouts.Interval},
		{"probePollingInterval", probe.RunProperties.ProbePollingInterval, &timeouts.ProbePollingInterval},
		{"initialDelay", probe.RunProperties.InitialDelay, &timeouts.InitialDelay},
		{"evaluationTimeout", probe.RunProperties.EvaluationTimeout, &timeouts.EvaluationTimeout},
	}
	for _, field := range fields {
		if field.value == "" {
			continue
		}
		duration, err := time.ParseDuration(field.value)
		if err != nil {
			seconds, convErr := strconv.Atoi(field.value)
			if convErr != nil {
				return timeouts, cerrors.Error{ErrorCode: cerrors.ErrorTypeGeneric, Target: probe.Name, Reason: fmt.Sprintf("invalid %v duration '%v'", field.name, field.value)}
			}
			duration = time.Duration(seconds) * time.Second
		}
		*field.out = duration
	}
	return timeouts, nil
}

// probeTimeouts returns the parsed timeouts recorded for the probe
func probeTimeouts(probeName string, resultDetails *types.ResultDetails) types.ProbeTimeouts {
	for _, probe := range resultDetails.ProbeDetails {
		if probe.Name == probeName {
			return probe.Timeouts
		}
	}
	return types.ProbeTimeouts{}
}

// getAttempts derives the effective retry count, the attempt count supersedes
// the legacy retry count
func getAttempts(attempt, retry int) uint {
	if attempt == 0 && retry == 0 {
		return 1
	}
	if attempt > 0 {
		return uint(attempt)
	}
	return uint(retry)
}

// markedVerdictInEnd marks the verdict of the probe in the chaosresult
func markedVerdictInEnd(err error, resultDetails *types.ResultDetails, probe types.ProbeAttributes, phase string) error {
	probeVerdict := types.ProbeVerdictPassed
	var description string
	if err != nil {
		probeVerdict = types.ProbeVerdictFailed
		description = getDescription(err)
	}

	switch probeVerdict {
	case types.ProbeVerdictPassed:
		log.InfoWithValues("[Probe]: "+probe.Name+" probe has been Passed "+emoji.Sprint(":thumbsup:"), logrus.Fields{
			"ProbeName":     probe.Name,
			"ProbeType":     probe.Type,
			"ProbeInstance": phase,
			"ProbeStatus":   probeVerdict,
		})
		// counting the passed probes to derive the probe success percentage
		resultDetails.PassedProbeCount++
	default:
		log.ErrorWithValues("[Probe]: "+probe.Name+" probe has been Failed "+emoji.Sprint(":thumbsdown:"), logrus.Fields{
			"ProbeName":     probe.Name,
			"ProbeType":     probe.Type,
			"ProbeInstance": phase,
			"ProbeStatus":   probeVerdict,
		})
	}

	setProbeVerdict(resultDetails, probeVerdict, probe, description)
	return err
}

// setProbeVerdict mark the verdict of the probe in the chaosresult
func setProbeVerdict(resultDetails *types.ResultDetails, verdict types.ProbeVerdict, probe types.ProbeAttributes, description string) {
	for index, probes := range resultDetails.ProbeDetails {
		if probes.Name == probe.Name && probes.Type == probe.Type {
			// an edge probe that failed pre-chaos stays failed
			if probe.Mode == "Edge" && probes.Status.Verdict == types.ProbeVerdictFailed {
				return
			}
			resultDetails.ProbeDetails[index].Status.Verdict = verdict
			resultDetails.ProbeDetails[index].Status.Description = description
			resultDetails.ProbeDetails[index].HasProbeCompletedOnce = true
			return
		}
	}
}

// SetProbeVerdictAfterFailure mark the verdict of all the failed/unrun probes as N/A
func SetProbeVerdictAfterFailure(resultDetails *types.ResultDetails) {
	for index := range resultDetails.ProbeDetails {
		if resultDetails.ProbeDetails[index].Status.Verdict == types.ProbeVerdictAwaited {
			resultDetails.ProbeDetails[index].Status.Verdict = types.ProbeVerdictNA
			resultDetails.ProbeDetails[index].Status.Description = "Either probe is not executed or not evaluated"
		}
	}
}

func getDescription(err error) string {
	rootCause := stacktrace.RootCause(err)
	if cErr, ok := rootCause.(cerrors.Error); ok {
		return cErr.Reason
	}
	return rootCause.Error()
}

// getAndIncrementRunCount return the run count for the specified probe
func getAndIncrementRunCount(resultDetails *types.ResultDetails, probeName string) int {
	for index, probe := range resultDetails.ProbeDetails {
		if probeName == probe.Name {
			resultDetails.ProbeDetails[index].RunCount++
			return resultDetails.ProbeDetails[index].RunCount
		}
	}
	return 0
}

// continuousErrMu guards the failure handoff between a continuous probe
// goroutine and the post-chaos check
var continuousErrMu sync.Mutex

// checkForErrorInContinuousProbe surfaces the error recorded by a continuous
// probe goroutine, if any
func checkForErrorInContinuousProbe(resultDetails *types.ResultDetails, probeName string) error {
	continuousErrMu.Lock()
	defer continuousErrMu.Unlock()
	for index, probe := range resultDetails.ProbeDetails {
		if probe.Name == probeName {
			return resultDetails.ProbeDetails[index].IsProbeFailedWithError
		}
	}
	return nil
}

// recordContinuousError stores the error encountered by a continuous probe so
// the post-chaos phase can surface it
func recordContinuousError(resultDetails *types.ResultDetails, probeName string, err error) {
	continuousErrMu.Lock()
	defer continuousErrMu.Unlock()
	for index := range resultDetails.ProbeDetails {
		if resultDetails.ProbeDetails[index].Name == probeName {
			resultDetails.ProbeDetails[index].IsProbeFailedWithError = err
			return
		}
	}
}
