package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	propertyFuzz "github.com/darianrosebrook/agent-resilience-go/experiments/intake/property-fuzz/experiment"
	cascadingFailure "github.com/darianrosebrook/agent-resilience-go/experiments/orchestrator/cascading-failure/experiment"
	comprehensiveResilience "github.com/darianrosebrook/agent-resilience-go/experiments/orchestrator/comprehensive-resilience/experiment"
	networkDegradation "github.com/darianrosebrook/agent-resilience-go/experiments/orchestrator/network-degradation/experiment"
	resourceExhaustion "github.com/darianrosebrook/agent-resilience-go/experiments/orchestrator/resource-exhaustion/experiment"
	workerFailure "github.com/darianrosebrook/agent-resilience-go/experiments/orchestrator/worker-failure/experiment"

	"github.com/darianrosebrook/agent-resilience-go/pkg/clients"
	"github.com/darianrosebrook/agent-resilience-go/pkg/events"
	"github.com/darianrosebrook/agent-resilience-go/pkg/log"
	"github.com/darianrosebrook/agent-resilience-go/pkg/telemetry"
)

// version is stamped at build time via -ldflags "-X main.version=..."
var version = "dev"

var experimentNames = []string{
	"worker-failure",
	"network-degradation",
	"resource-exhaustion",
	"cascading-failure",
	"comprehensive-resilience",
	"property-fuzz",
}

func init() {
	// Log as JSON instead of the default ASCII formatter.
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:          true,
		DisableSorting:         true,
		DisableLevelTruncation: true,
	})
}

func main() {

	ctx := context.Background()
	var otelShutdown func(context.Context) error
	var experimentName string

	var run = &cobra.Command{
		Use:   "run [flags]",
		Short: "Run a resilience experiment",
		Long:  "Run the named resilience experiment against the orchestrator collaborators",
		Args:  cobra.MaximumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			runExperiment(ctx, experimentName)
		},
	}
	run.Flags().StringVarP(&experimentName, "name", "n", "worker-failure", "name of the resilience experiment")

	var list = &cobra.Command{
		Use:   "list",
		Short: "List the available experiments",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range experimentNames {
				fmt.Println(name)
			}
		},
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the runner version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	var rootCmd = &cobra.Command{
		Use: "experiment",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Set up observability.
			if otelExporterEndpoint := os.Getenv(telemetry.OTELExporterOTLPEndpoint); otelExporterEndpoint != "" {
				shutdown, err := telemetry.InitOTelSDK(ctx, otelExporterEndpoint)
				if err != nil {
					log.Errorf("Failed to initialize OTel SDK: %v", err)
					return
				}
				otelShutdown = shutdown
				if os.Getenv(telemetry.TraceParent) != "" {
					ctx = telemetry.GetTraceParentContext()
				}
			}
			if port := os.Getenv("METRICS_PORT"); port != "" {
				telemetry.ServeMetrics(port)
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if otelShutdown != nil {
				if err := otelShutdown(ctx); err != nil {
					log.Errorf("Failed to shutdown OTel SDK: %v", err)
				}
			}
		},
	}
	rootCmd.AddCommand(run, list, versionCmd)
	rootCmd.Execute()
}

func runExperiment(ctx context.Context, experimentName string) {
	clients := clients.ClientSets{}

	// Generate the collaborator clients from the configured endpoints
	if err := clients.GenerateClientSetFromEndpoints(); err != nil {
		log.Errorf("Unable to create the collaborator clients, err: %v", err)
		return
	}

	// mirror the run's event stream into the log
	recorder := events.NewRecorder(clients.Bus)
	defer recorder.Stop()

	ctx, span := telemetry.StartTracing(ctx, "ExecuteExperiment")
	defer span.End()

	log.Infof("Experiment Name: %v", experimentName)

	// invoke the corresponding experiment based on the (-n) flag
	switch experimentName {
	case "worker-failure":
		workerFailure.WorkerFailure(ctx, clients)
	case "network-degradation":
		networkDegradation.NetworkDegradation(ctx, clients)
	case "resource-exhaustion":
		resourceExhaustion.ResourceExhaustion(ctx, clients)
	case "cascading-failure":
		cascadingFailure.CascadingFailure(ctx, clients)
	case "comprehensive-resilience":
		comprehensiveResilience.ComprehensiveResilience(ctx, clients)
	case "property-fuzz":
		propertyFuzz.PropertyFuzz(ctx, clients)
	default:
		log.Errorf("Unsupported -n %v, please provide a valid experiment name", experimentName)
	}
}
