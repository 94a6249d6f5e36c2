package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
	"github.com/darianrosebrook/agent-resilience-go/pkg/log"
	"github.com/darianrosebrook/agent-resilience-go/pkg/math"
	cmp "github.com/darianrosebrook/agent-resilience-go/pkg/probe/comparator"
	"github.com/darianrosebrook/agent-resilience-go/pkg/types"
	"github.com/darianrosebrook/agent-resilience-go/pkg/utils/retry"
)

// PrepareHTTPProbe contains the steps to prepare the http probe
// http probe can be used to add the probe which will send a request to given url and match the status code
func PrepareHTTPProbe(ctx context.Context, probe types.ProbeAttributes, chaosDetails *types.ChaosDetails, resultDetails *types.ResultDetails, phase string) error {

	switch phase {
	case "PreChaos":
		if err := PreChaosHTTPProbe(ctx, probe, resultDetails, chaosDetails); err != nil {
			return err
		}
	case "PostChaos":
		if err := PostChaosHTTPProbe(ctx, probe, resultDetails, chaosDetails); err != nil {
			return err
		}
	case "DuringChaos":
		OnChaosHTTPProbe(ctx, probe, resultDetails, chaosDetails)
	default:
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeGeneric, Target: probe.Name, Reason: fmt.Sprintf("phase '%s' not supported in the http probe", phase)}
	}
	return nil
}

// TriggerHTTPProbe run the http probe command
func TriggerHTTPProbe(ctx context.Context, probe types.ProbeAttributes, resultDetails *types.ResultDetails) error {

	// collaborator endpoints are referenced as ${REGISTRY_ENDPOINT} style vars
	url := os.ExpandEnv(probe.HTTPProbeInputs.URL)
	timeouts := probeTimeouts(probe.Name, resultDetails)

	// initialize simple http client with default attributes
	client := &http.Client{Timeout: timeouts.ProbeTimeout}
	// impose properties to http client with cert check disabled
	if probe.HTTPProbeInputs.InsecureSkipVerify {
		transCfg := &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
		client = &http.Client{Transport: transCfg, Timeout: timeouts.ProbeTimeout}
	}

	switch getHTTPMethodType(probe.HTTPProbeInputs.Method) {
	case "Get":
		log.InfoWithValues("[Probe]: HTTP get method informations", logrus.Fields{
			"Name":         probe.Name,
			"URL":          url,
			"Criteria":     probe.HTTPProbeInputs.Method.Get.Criteria,
			"ResponseCode": probe.HTTPProbeInputs.Method.Get.ResponseCode,
		})
		if err := httpGet(ctx, probe, client, url, resultDetails); err != nil {
			return err
		}
	case "Post":
		log.InfoWithValues("[Probe]: HTTP Post method informations", logrus.Fields{
			"Name":         probe.Name,
			"URL":          url,
			"Body":         probe.HTTPProbeInputs.Method.Post.Body,
			"ContentType":  probe.HTTPProbeInputs.Method.Post.ContentType,
			"ResponseCode": probe.HTTPProbeInputs.Method.Post.ResponseCode,
		})
		if err := httpPost(ctx, probe, client, url, resultDetails); err != nil {
			return err
		}
	}
	return nil
}

// it fetch the http method type
// it supports Get and Post methods
func getHTTPMethodType(httpMethod types.HTTPMethod) string {
	if httpMethod.Get != nil {
		return "Get"
	}
	return "Post"
}

// httpGet send the http Get request to the given URL and verify the response code to follow the specified criteria
func httpGet(ctx context.Context, probe types.ProbeAttributes, client *http.Client, url string, resultDetails *types.ResultDetails) error {
	timeouts := probeTimeouts(probe.Name, resultDetails)
	// it will retry for some retry count, in each iterations of try it contains following things
	// it contains a timeout per iteration of retry. if the timeout expires without success then it will go to next try
	// for a timeout, it will run the command, if it fails wait for the interval and again execute the command until timeout expires
	return retry.Times(getAttempts(probe.RunProperties.Attempt, probe.RunProperties.Retry)).
		Timeout(timeouts.ProbeTimeout).
		Wait(timeouts.Interval).
		TryWithTimeout(func(attempt uint) error {
			request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return cerrors.Error{ErrorCode: cerrors.ErrorTypeHTTPProbe, Target: probe.Name, Reason: err.Error()}
			}
			// getting the response from the given url
			response, err := client.Do(request)
			if err != nil {
				return cerrors.Error{ErrorCode: cerrors.ErrorTypeHTTPProbe, Target: probe.Name, Reason: err.Error()}
			}
			defer response.Body.Close()
			io.Copy(io.Discard, response.Body)

			code := strconv.Itoa(response.StatusCode)
			rc := getAndIncrementRunCount(resultDetails, probe.Name)

			// comparing the response code with the expected criteria
			if err = cmp.RunCount(rc).
				FirstValue(code).
				SecondValue(probe.HTTPProbeInputs.Method.Get.ResponseCode).
				Criteria(probe.HTTPProbeInputs.Method.Get.Criteria).
				ProbeName(probe.Name).
				CompareInt(cerrors.ErrorTypeHTTPProbe); err != nil {
				log.Errorf("The %v http probe get method has Failed, err: %v", probe.Name, err)
				return err
			}
			return nil
		})
}

// httpPost send the http post request to the given URL
func httpPost(ctx context.Context, probe types.ProbeAttributes, client *http.Client, url string, resultDetails *types.ResultDetails) error {
	timeouts := probeTimeouts(probe.Name, resultDetails)
	// it will retry for some retry count, in each iterations of try it contains following things
	// it contains a timeout per iteration of retry. if the timeout expires without success then it will go to next try
	// for a timeout, it will run the command, if it fails wait for the interval and again execute the command until timeout expires
	return retry.Times(getAttempts(probe.RunProperties.Attempt, probe.RunProperties.Retry)).
		Timeout(timeouts.ProbeTimeout).
		Wait(timeouts.Interval).
		TryWithTimeout(func(attempt uint) error {
			request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(probe.HTTPProbeInputs.Method.Post.Body))
			if err != nil {
				return cerrors.Error{ErrorCode: cerrors.ErrorTypeHTTPProbe, Target: probe.Name, Reason: err.Error()}
			}
			request.Header.Set("Content-Type", probe.HTTPProbeInputs.Method.Post.ContentType)
			response, err := client.Do(request)
			if err != nil {
				return cerrors.Error{ErrorCode: cerrors.ErrorTypeHTTPProbe, Target: probe.Name, Reason: err.Error()}
			}
			defer response.Body.Close()
			io.Copy(io.Discard, response.Body)

			code := strconv.Itoa(response.StatusCode)
			rc := getAndIncrementRunCount(resultDetails, probe.Name)

			// comparing the response code with the expected criteria
			if err = cmp.RunCount(rc).
				FirstValue(code).
				SecondValue(probe.HTTPProbeInputs.Method.Post.ResponseCode).
				Criteria(probe.HTTPProbeInputs.Method.Post.Criteria).
				ProbeName(probe.Name).
				CompareInt(cerrors.ErrorTypeHTTPProbe); err != nil {
				log.Errorf("The %v http probe post method has Failed, err: %v", probe.Name, err)
				return err
			}
			return nil
		})
}

// TriggerContinuousHTTPProbe trigger the continuous http probes
func TriggerContinuousHTTPProbe(ctx context.Context, probe types.ProbeAttributes, chaosresult *types.ResultDetails) {

	timeouts := probeTimeouts(probe.Name, chaosresult)
	waitForInitialDelay(ctx, timeouts.InitialDelay)

	// it trigger the http probe for the entire duration of chaos and it fails, if any error encounter
	// the recorded failure is sticky, the post-chaos phase surfaces it
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		default:
			if err := TriggerHTTPProbe(ctx, probe, chaosresult); err != nil {
				recordContinuousError(chaosresult, probe.Name, err)
				log.Errorf("The %v http probe has been Failed, err: %v", probe.Name, err)
				if probe.RunProperties.StopOnFailure {
					break loop
				}
			}
			// waiting for the probe polling interval
			select {
			case <-ctx.Done():
				break loop
			case <-time.After(timeouts.ProbePollingInterval):
			}
		}
	}
}

// PreChaosHTTPProbe trigger the http probe for prechaos phase
func PreChaosHTTPProbe(ctx context.Context, probe types.ProbeAttributes, resultDetails *types.ResultDetails, chaosDetails *types.ChaosDetails) error {

	switch probe.Mode {
	case "SOT", "Edge":
		//DISPLAY THE HTTP PROBE INFO
		log.InfoWithValues("[Probe]: The http probe information is as follows", logrus.Fields{
			"Name":           probe.Name,
			"URL":            probe.HTTPProbeInputs.URL,
			"Run Properties": probe.RunProperties,
			"Mode":           probe.Mode,
			"Phase":          "PreChaos",
		})

		timeouts := probeTimeouts(probe.Name, resultDetails)
		waitForInitialDelay(ctx, timeouts.InitialDelay)

		// trigger the http probe and mark the verdict
		// it will update the status of all the unrun probes as well
		if err := markedVerdictInEnd(TriggerHTTPProbe(ctx, probe, resultDetails), resultDetails, probe, "PreChaos"); err != nil {
			return err
		}
	case "Continuous":
		//DISPLAY THE HTTP PROBE INFO
		log.InfoWithValues("[Probe]: The http probe information is as follows", logrus.Fields{
			"Name":           probe.Name,
			"URL":            probe.HTTPProbeInputs.URL,
			"Run Properties": probe.RunProperties,
			"Mode":           probe.Mode,
			"Phase":          "PreChaos",
		})
		go TriggerContinuousHTTPProbe(ctx, probe, resultDetails)
	}
	return nil
}

// PostChaosHTTPProbe trigger the http probe for postchaos phase
func PostChaosHTTPProbe(ctx context.Context, probe types.ProbeAttributes, resultDetails *types.ResultDetails, chaosDetails *types.ChaosDetails) error {

	switch probe.Mode {
	case "EOT", "Edge":
		//DISPLAY THE HTTP PROBE INFO
		log.InfoWithValues("[Probe]: The http probe information is as follows", logrus.Fields{
			"Name":           probe.Name,
			"URL":            probe.HTTPProbeInputs.URL,
			"Run Properties": probe.RunProperties,
			"Mode":           probe.Mode,
			"Phase":          "PostChaos",
		})

		timeouts := probeTimeouts(probe.Name, resultDetails)
		waitForInitialDelay(ctx, timeouts.InitialDelay)

		// trigger the http probe and mark the verdict
		if err := markedVerdictInEnd(TriggerHTTPProbe(ctx, probe, resultDetails), resultDetails, probe, "PostChaos"); err != nil {
			return err
		}
	case "Continuous", "OnChaos":
		// it will check for the error, It will detect the error if any error encountered in probe during chaos
		// failing the probe, if the success condition doesn't met after the retry & timeout combinations
		if err := markedVerdictInEnd(checkForErrorInContinuousProbe(resultDetails, probe.Name), resultDetails, probe, "PostChaos"); err != nil {
			return err
		}
	}
	return nil
}

// TriggerOnChaosHTTPProbe trigger the onchaos http probes
func TriggerOnChaosHTTPProbe(ctx context.Context, probe types.ProbeAttributes, chaosresult *types.ResultDetails, duration int) {

	timeouts := probeTimeouts(probe.Name, chaosresult)
	if timeouts.InitialDelay != 0 {
		waitForInitialDelay(ctx, timeouts.InitialDelay)
		duration = math.Maximum(0, duration-int(timeouts.InitialDelay.Seconds()))
	}

	endTime := time.After(time.Duration(duration) * time.Second)

	// it trigger the http probe for the entire duration of chaos and it fails, if any error encounter
	// it marked the error for the probes, if any
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-endTime:
			log.Infof("[Chaos]: Time is up for the %v probe", probe.Name)
			break loop
		default:
			if err := TriggerHTTPProbe(ctx, probe, chaosresult); err != nil {
				recordContinuousError(chaosresult, probe.Name, err)
				log.Errorf("The %v http probe has been Failed, err: %v", probe.Name, err)
				if probe.RunProperties.StopOnFailure {
					break loop
				}
			}
			// waiting for the probe polling interval
			select {
			case <-ctx.Done():
				break loop
			case <-time.After(timeouts.ProbePollingInterval):
			}
		}
	}
}

// OnChaosHTTPProbe trigger the http probe for DuringChaos phase
func OnChaosHTTPProbe(ctx context.Context, probe types.ProbeAttributes, resultDetails *types.ResultDetails, chaosDetails *types.ChaosDetails) {

	switch probe.Mode {
	case "OnChaos":
		//DISPLAY THE HTTP PROBE INFO
		log.InfoWithValues("[Probe]: The http probe information is as follows", logrus.Fields{
			"Name":           probe.Name,
			"URL":            probe.HTTPProbeInputs.URL,
			"Run Properties": probe.RunProperties,
			"Mode":           probe.Mode,
			"Phase":          "DuringChaos",
		})
		go TriggerOnChaosHTTPProbe(ctx, probe, resultDetails, chaosDetails.ChaosDuration)
	}
}

// waitForInitialDelay waits before the probe execution
func waitForInitialDelay(ctx context.Context, delay time.Duration) {
	if delay == 0 {
		return
	}
	log.Infof("[Wait]: Waiting for %v before probe execution", delay)
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}
