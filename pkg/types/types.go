package types

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
)

const (
	// PreChaosCheck initial stage of experiment check for collaborator health before chaos injection
	PreChaosCheck string = "PreChaosCheck"
	// PostChaosCheck pre-final stage of experiment check for collaborator health after chaos injection
	PostChaosCheck string = "PostChaosCheck"
	// Summary final stage of experiment update the verdict
	Summary string = "Summary"
	// ChaosInject this stage refer to the main chaos injection
	ChaosInject string = "ChaosInject"
	// ChaosRecovery marks the recovery of an injected failure
	ChaosRecovery string = "ChaosRecovery"
	// AwaitedVerdict marked the start of test
	AwaitedVerdict string = "Awaited"
	// PassVerdict marked the verdict as passed in the end of experiment
	PassVerdict string = "Pass"
	// FailVerdict marked the verdict as failed in the end of experiment
	FailVerdict string = "Fail"
	// StoppedVerdict marked the verdict as stopped when experiment aborted
	StoppedVerdict string = "Stopped"
)

// ExperimentPhase is the phase of the run, used to stamp error codes
type ExperimentPhase string

const (
	// PreChaosPhase refer to the pre-chaos checks
	PreChaosPhase ExperimentPhase = "PreChaos"
	// PostChaosPhase refer to the post-chaos checks
	PostChaosPhase ExperimentPhase = "PostChaos"
	// ChaosInjectPhase refer to the chaos injection
	ChaosInjectPhase ExperimentPhase = "ChaosInject"
)

// ResultVerdict of the experiment run
type ResultVerdict string

// ResultPhase of the experiment run
type ResultPhase string

const (
	// ResultVerdictAwaited is the verdict until the run completes
	ResultVerdictAwaited ResultVerdict = "Awaited"
	// ResultVerdictPassed is the verdict of a successful run
	ResultVerdictPassed ResultVerdict = "Pass"
	// ResultVerdictFailed is the verdict of a failed run
	ResultVerdictFailed ResultVerdict = "Fail"
	// ResultVerdictStopped is the verdict of an aborted run
	ResultVerdictStopped ResultVerdict = "Stopped"

	// ResultPhaseRunning marks an in-progress run
	ResultPhaseRunning ResultPhase = "Running"
	// ResultPhaseCompleted marks a completed run
	ResultPhaseCompleted ResultPhase = "Completed"
	// ResultPhaseStopped marks an aborted run
	ResultPhaseStopped ResultPhase = "Stopped"
)

// ProbeVerdict of an individual probe
type ProbeVerdict string

const (
	ProbeVerdictPassed  ProbeVerdict = "Passed"
	ProbeVerdictFailed  ProbeVerdict = "Failed"
	ProbeVerdictAwaited ProbeVerdict = "Awaited"
	ProbeVerdictNA      ProbeVerdict = "N/A"
)

// ResultDetails is for collecting all the chaos-result-related details
type ResultDetails struct {
	Name             string
	Verdict          ResultVerdict
	ErrorCode        cerrors.ErrorType
	FailStep         string
	Phase            ResultPhase
	ResultUID        string
	ProbeDetails     []*ProbeDetails
	PassedProbeCount int
	ProbeArtifacts   map[string]ProbeArtifact
}

// ProbeArtifact contains the probe artifacts
type ProbeArtifact struct {
	ProbeArtifacts RegisterDetails
}

// RegisterDetails contains the output of the corresponding probe
type RegisterDetails struct {
	Register string
}

// ProbeDetails is for collecting all the probe details
type ProbeDetails struct {
	Name                   string
	Type                   string
	Mode                   string
	Status                 ProbeStatus
	IsProbeFailedWithError error
	Failed                 bool
	HasProbeCompletedOnce  bool
	RunID                  string
	RunCount               int
	Stop                   bool
	Timeouts               ProbeTimeouts
}

// ProbeStatus carries the verdict and its description for a single probe
type ProbeStatus struct {
	Verdict     ProbeVerdict `json:"verdict"`
	Description string       `json:"description,omitempty"`
}

// ProbeTimeouts carries the parsed duration fields of a probe
type ProbeTimeouts struct {
	ProbeTimeout         time.Duration
	Interval             time.Duration
	ProbePollingInterval time.Duration
	InitialDelay         time.Duration
	EvaluationTimeout    time.Duration
}

// EventDetails is for collecting all the events-related details
type EventDetails struct {
	Message      string
	Reason       string
	ResourceName string
	ResourceUID  string
	Type         string
}

// TargetDetails tracks the chaos status of a single target
type TargetDetails struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	ChaosStatus string `json:"chaosStatus"`
}

// ChaosDetails is for collecting all the global variables
type ChaosDetails struct {
	ChaosUID           string
	EngineName         string
	InstanceID         string
	ExperimentName     string
	Timeout            int
	Delay              int
	ChaosDuration      int
	Randomness         bool
	Phase              ExperimentPhase
	DefaultHealthCheck bool
	Targets            []TargetDetails
	Probes             []ProbeAttributes
}

// ProbeAttributes holds the definition of a single probe, loaded from the probe file
type ProbeAttributes struct {
	Name            string          `yaml:"name"`
	Type            string          `yaml:"type"`
	Mode            string          `yaml:"mode"`
	HTTPProbeInputs HTTPProbeInputs `yaml:"httpProbe/inputs"`
	RunProperties   RunProperty     `yaml:"runProperties"`
}

// HTTPProbeInputs contains the http probe inputs
type HTTPProbeInputs struct {
	URL                string     `yaml:"url"`
	InsecureSkipVerify bool       `yaml:"insecureSkipVerify"`
	Method             HTTPMethod `yaml:"method"`
}

// HTTPMethod define the http method details
type HTTPMethod struct {
	Get  *GetMethod  `yaml:"get,omitempty"`
	Post *PostMethod `yaml:"post,omitempty"`
}

// GetMethod define the http get method
type GetMethod struct {
	Criteria     string `yaml:"criteria"`
	ResponseCode string `yaml:"responseCode"`
}

// PostMethod define the http post method
type PostMethod struct {
	ContentType  string `yaml:"contentType"`
	Body         string `yaml:"body"`
	Criteria     string `yaml:"criteria"`
	ResponseCode string `yaml:"responseCode"`
}

// RunProperty contains timeout, retry and interval of the probe
type RunProperty struct {
	ProbeTimeout         string `yaml:"probeTimeout"`
	Interval             string `yaml:"interval"`
	Retry                int    `yaml:"retry"`
	Attempt              int    `yaml:"attempt"`
	ProbePollingInterval string `yaml:"probePollingInterval"`
	InitialDelay         string `yaml:"initialDelay"`
	EvaluationTimeout    string `yaml:"evaluationTimeout"`
	StopOnFailure        bool   `yaml:"stopOnFailure"`
}

// Getenv fetch the env and set the default value, if any
func Getenv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	return value
}

//InitialiseChaosVariables initialise all the global variables
func InitialiseChaosVariables(chaosDetails *ChaosDetails) {
	chaosDetails.ChaosUID = Getenv("CHAOS_UID", uuid.New().String())
	chaosDetails.EngineName = Getenv("RESILIENCE_ENGINE", "")
	chaosDetails.InstanceID = Getenv("INSTANCE_ID", "")
	chaosDetails.ExperimentName = Getenv("EXPERIMENT_NAME", "")
	chaosDetails.ChaosDuration, _ = strconv.Atoi(Getenv("TOTAL_CHAOS_DURATION", "30"))
	chaosDetails.Timeout, _ = strconv.Atoi(Getenv("STATUS_CHECK_TIMEOUT", "180"))
	chaosDetails.Delay, _ = strconv.Atoi(Getenv("STATUS_CHECK_DELAY", "2"))
	chaosDetails.Randomness, _ = strconv.ParseBool(Getenv("RANDOMNESS", "false"))
	chaosDetails.DefaultHealthCheck, _ = strconv.ParseBool(Getenv("DEFAULT_HEALTH_CHECK", "true"))
	chaosDetails.Phase = PreChaosPhase
	chaosDetails.Targets = []TargetDetails{}
}

//SetResultAttributes initialise all the chaos result ENV
func SetResultAttributes(resultDetails *ResultDetails, chaosDetails ChaosDetails) {
	resultDetails.Verdict = ResultVerdictAwaited
	resultDetails.Phase = ResultPhaseRunning
	resultDetails.FailStep = "N/A"
	resultDetails.PassedProbeCount = 0
	if chaosDetails.EngineName != "" {
		resultDetails.Name = chaosDetails.EngineName + "-" + chaosDetails.ExperimentName
	} else {
		resultDetails.Name = chaosDetails.ExperimentName
	}

	if chaosDetails.InstanceID != "" {
		resultDetails.Name = resultDetails.Name + "-" + chaosDetails.InstanceID
	}
}

//SetResultAfterCompletion set all the chaos result ENV in the EOT
func SetResultAfterCompletion(resultDetails *ResultDetails, verdict ResultVerdict, phase ResultPhase, failStep string, errorCode cerrors.ErrorType) {
	resultDetails.Verdict = verdict
	resultDetails.Phase = phase
	resultDetails.FailStep = failStep
	resultDetails.ErrorCode = errorCode
}

//SetEngineEventAttributes initialise attributes for event generation in chaos engine
func SetEngineEventAttributes(eventsDetails *EventDetails, Reason, Message, Type string, chaosDetails *ChaosDetails) {

	eventsDetails.Reason = Reason
	eventsDetails.Message = Message
	eventsDetails.ResourceName = chaosDetails.EngineName
	eventsDetails.ResourceUID = chaosDetails.ChaosUID
	eventsDetails.Type = Type

}

//SetResultEventAttributes initialise attributes for event generation in chaos result
func SetResultEventAttributes(eventsDetails *EventDetails, Reason, Message, Type string, resultDetails *ResultDetails) {

	eventsDetails.Reason = Reason
	eventsDetails.Message = Message
	eventsDetails.ResourceName = resultDetails.Name
	eventsDetails.ResourceUID = resultDetails.ResultUID
	eventsDetails.Type = Type
}

// GetChaosResultVerdictEvent returns the event reason and type for the given verdict
func GetChaosResultVerdictEvent(verdict ResultVerdict) (string, string) {
	switch verdict {
	case ResultVerdictPassed:
		return PassVerdict, "Normal"
	case ResultVerdictStopped:
		return StoppedVerdict, "Warning"
	default:
		return FailVerdict, "Warning"
	}
}

// GetTargetWorkers parses the TARGET_WORKERS env into worker ids,
// deriving worker-N names from the worker count when the list is empty
func GetTargetWorkers(targetWorkers string, workerCount int) []string {
	if strings.TrimSpace(targetWorkers) != "" {
		ids := strings.Split(targetWorkers, ",")
		for i := range ids {
			ids[i] = strings.TrimSpace(ids[i])
		}
		return ids
	}
	var ids []string
	for i := 0; i < workerCount; i++ {
		ids = append(ids, "worker-"+strconv.Itoa(i))
	}
	return ids
}
