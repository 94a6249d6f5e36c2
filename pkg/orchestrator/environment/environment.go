package environment

import (
	"strconv"

	experimentTypes "github.com/darianrosebrook/agent-resilience-go/pkg/orchestrator/types"
	"github.com/darianrosebrook/agent-resilience-go/pkg/types"
)

// GetENV fetches all the env variables from the experiment runner
func GetENV(experimentDetails *experimentTypes.ExperimentDetails, expName string) {
	experimentDetails.ExperimentName = types.Getenv("EXPERIMENT_NAME", expName)
	experimentDetails.EngineName = types.Getenv("RESILIENCE_ENGINE", "")
	experimentDetails.InstanceID = types.Getenv("INSTANCE_ID", "")
	experimentDetails.ChaosDuration, _ = strconv.Atoi(types.Getenv("TOTAL_CHAOS_DURATION", "30"))
	experimentDetails.RampTime, _ = strconv.Atoi(types.Getenv("RAMP_TIME", "0"))
	experimentDetails.Delay, _ = strconv.Atoi(types.Getenv("STATUS_CHECK_DELAY", "2"))
	experimentDetails.Timeout, _ = strconv.Atoi(types.Getenv("STATUS_CHECK_TIMEOUT", "180"))
	experimentDetails.Seed, _ = strconv.ParseInt(types.Getenv("SEED", "12345"), 10, 64)
	experimentDetails.TickInterval, _ = strconv.Atoi(types.Getenv("TICK_INTERVAL_MS", "100"))
	experimentDetails.SamplePeriod, _ = strconv.Atoi(types.Getenv("SAMPLE_PERIOD", "5"))
	experimentDetails.ScenarioFile = types.Getenv("SCENARIO_FILE", "")
	workerCount, _ := strconv.Atoi(types.Getenv("WORKER_COUNT", "3"))
	experimentDetails.TargetWorkers = types.GetTargetWorkers(types.Getenv("TARGET_WORKERS", ""), workerCount)
	experimentDetails.TargetWorkerPercentage = types.Getenv("TARGET_WORKER_PERCENTAGE", "100")
	experimentDetails.FailureRateThreshold, _ = strconv.ParseFloat(types.Getenv("FAILURE_RATE_THRESHOLD", "0.8"), 64)
	switch expName {
	case "worker-failure", "comprehensive-resilience":
		experimentDetails.FailureCount, _ = strconv.Atoi(types.Getenv("FAILURE_COUNT", "3"))
		experimentDetails.FailureInterval = types.Getenv("FAILURE_INTERVAL", "2")
	}
}
