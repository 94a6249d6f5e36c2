package types

// ExperimentDetails is for collecting all the experiment-related details
type ExperimentDetails struct {
	ExperimentName         string
	EngineName             string
	InstanceID             string
	RampTime               int
	ChaosDuration          int
	TickInterval           int // milliseconds
	SamplePeriod           int
	Seed                   int64
	ScenarioFile           string
	TargetWorkers          []string
	TargetWorkerPercentage string
	FailureCount           int
	FailureInterval        string // seconds, accepts a single value or a lower-upper range
	FailureRateThreshold   float64
	Timeout                int
	Delay                  int
}
