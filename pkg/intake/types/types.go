package types

// ExperimentDetails is for collecting all the property-suite details
type ExperimentDetails struct {
	ExperimentName   string
	EngineName       string
	InstanceID       string
	RampTime         int
	BaseSeed         int64
	MaxIterations    int
	FailureThreshold int
	MaxPayloadBytes  int
	MaxObjectDepth   int
	Timeout          int
	Delay            int
}
