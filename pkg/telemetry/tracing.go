package telemetry

import (
	"context"
	"encoding/json"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/darianrosebrook/agent-resilience-go/pkg/log"
)

const (
	TracerName  = "github.com/darianrosebrook/agent-resilience-go"
	TraceParent = "TRACE_PARENT"
)

// StartTracing opens a span under the experiment tracer and returns the
// context carrying it
func StartTracing(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, spanName)
}

// GetTraceParentContext rebuilds the propagated span context handed over by
// the platform through the TRACE_PARENT env
func GetTraceParentContext() context.Context {
	traceParent := os.Getenv(TraceParent)

	pro := otel.GetTextMapPropagator()
	carrier := make(map[string]string)
	if err := json.Unmarshal([]byte(traceParent), &carrier); err != nil {
		log.Fatal(err.Error())
	}

	return pro.Extract(context.Background(), propagation.MapCarrier(carrier))
}
