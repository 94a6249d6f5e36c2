package environment

import (
	"strconv"

	experimentTypes "github.com/darianrosebrook/agent-resilience-go/pkg/intake/types"
	"github.com/darianrosebrook/agent-resilience-go/pkg/types"
)

// GetENV fetches all the env variables from the experiment runner
func GetENV(experimentDetails *experimentTypes.ExperimentDetails, expName string) {
	experimentDetails.ExperimentName = types.Getenv("EXPERIMENT_NAME", expName)
	experimentDetails.EngineName = types.Getenv("RESILIENCE_ENGINE", "")
	experimentDetails.InstanceID = types.Getenv("INSTANCE_ID", "")
	experimentDetails.RampTime, _ = strconv.Atoi(types.Getenv("RAMP_TIME", "0"))
	experimentDetails.Delay, _ = strconv.Atoi(types.Getenv("STATUS_CHECK_DELAY", "2"))
	experimentDetails.Timeout, _ = strconv.Atoi(types.Getenv("STATUS_CHECK_TIMEOUT", "180"))
	experimentDetails.BaseSeed, _ = strconv.ParseInt(types.Getenv("BASE_SEED", "12345"), 10, 64)
	experimentDetails.MaxIterations, _ = strconv.Atoi(types.Getenv("MAX_ITERATIONS", "100"))
	experimentDetails.FailureThreshold, _ = strconv.Atoi(types.Getenv("FAILURE_THRESHOLD", "10"))
	experimentDetails.MaxPayloadBytes, _ = strconv.Atoi(types.Getenv("MAX_PAYLOAD_BYTES", "1048576"))
	experimentDetails.MaxObjectDepth, _ = strconv.Atoi(types.Getenv("MAX_OBJECT_DEPTH", "10"))
}
