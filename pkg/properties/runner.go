package properties

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
	"github.com/darianrosebrook/agent-resilience-go/pkg/clients"
	"github.com/darianrosebrook/agent-resilience-go/pkg/log"
	"github.com/darianrosebrook/agent-resilience-go/pkg/random"
)

// Failure records one failed iteration with the seed that reproduces it.
type Failure struct {
	Iteration int    `json:"iteration"`
	Seed      int64  `json:"seed"`
	Reason    string `json:"reason"`
}

// PropertyTestResult is the outcome of one property's iterations.
type PropertyTestResult struct {
	PropertyName  string        `json:"propertyName"`
	Iterations    int           `json:"iterations"`
	Passed        int           `json:"passed"`
	Failed        int           `json:"failed"`
	Failures      []Failure     `json:"failures,omitempty"`
	ExecutionTime time.Duration `json:"executionTime"`
	Seed          int64         `json:"seed"`
}

// TestSummary aggregates every property run recorded so far.
type TestSummary struct {
	Properties        int     `json:"properties"`
	Iterations        int     `json:"iterations"`
	Failures          int     `json:"failures"`
	SuccessPercentage float64 `json:"successPercentage"`
}

// Runner drives the property catalog against the intake boundary.
// Iterations are sequential on purpose: every input is derived from
// BaseSeed plus the iteration index and nothing else, so one run is
// reproducible from its base seed.
type Runner struct {
	clients clients.ClientSets
	cfg     Config

	mu      sync.Mutex
	results []PropertyTestResult
}

// NewRunner returns a runner over the given collaborators.
func NewRunner(cfg Config, clients clients.ClientSets) *Runner {
	return &Runner{clients: clients, cfg: cfg.withDefaults()}
}

// RunPropertyTest runs one property by name.
func (r *Runner) RunPropertyTest(ctx context.Context, name string) (PropertyTestResult, error) {
	property, ok := Lookup(name)
	if !ok {
		return PropertyTestResult{}, cerrors.Error{
			ErrorCode: cerrors.ErrorTypeUnknownProperty,
			Target:    name,
			Reason:    "no property registered under this name",
		}
	}
	return r.run(ctx, property)
}

// RunAllPropertyTests runs the catalog in its fixed order. A canceled
// context stops the sweep and returns the results gathered so far.
func (r *Runner) RunAllPropertyTests(ctx context.Context) ([]PropertyTestResult, error) {
	results := make([]PropertyTestResult, 0, len(catalog))
	for _, property := range catalog {
		result, err := r.run(ctx, property)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (r *Runner) run(ctx context.Context, property Property) (PropertyTestResult, error) {
	start := time.Now()
	result := PropertyTestResult{PropertyName: property.Name, Seed: r.cfg.BaseSeed}

	log.Infof("[Property]: Running the %v property for up to %v iterations", property.Name, r.cfg.MaxIterations)

	for i := 0; i < r.cfg.MaxIterations; i++ {
		select {
		case <-ctx.Done():
			result.ExecutionTime = time.Since(start)
			r.record(result)
			return result, cerrors.Error{
				ErrorCode: cerrors.ErrorTypeExperimentAborted,
				Target:    property.Name,
				Reason:    "property run canceled",
			}
		default:
		}

		fuzzer := random.NewFuzzer(r.cfg.BaseSeed+int64(i), r.cfg.MaxObjectDepth)
		request := property.Generate(fuzzer, r.cfg)
		evaluation := r.evaluate(ctx, property, request)

		result.Iterations++
		passed, reason := property.Classify(evaluation)
		if passed {
			result.Passed++
			continue
		}

		result.Failed++
		result.Failures = append(result.Failures, Failure{
			Iteration: i,
			Seed:      r.cfg.BaseSeed + int64(i),
			Reason:    reason,
		})
		if result.Failed >= r.cfg.FailureThreshold {
			log.Warnf("[Property]: Stopping the %v property early, %v failures accumulated", property.Name, result.Failed)
			break
		}
	}

	result.ExecutionTime = time.Since(start)
	r.record(result)

	log.InfoWithValues("[Property]: The "+property.Name+" property has completed", logrus.Fields{
		"Iterations": result.Iterations,
		"Passed":     result.Passed,
		"Failed":     result.Failed,
	})
	return result, nil
}

// evaluate submits the request and, for detector backed properties, asks
// the injection detector for its verdict on the serialized payload. A
// detector outage never decides the iteration on its own.
func (r *Runner) evaluate(ctx context.Context, property Property, request clients.IntakeRequest) Evaluation {
	evaluation := Evaluation{}
	evaluation.Decision, evaluation.Err = r.clients.Intake.Process(ctx, request)

	if property.UseDetector && r.clients.Detector != nil {
		detection, err := r.clients.Detector.Detect(ctx, serialize(request.Payload))
		if err != nil {
			log.Warnf("[Property]: Unable to consult the injection detector, err: %v", err)
		} else {
			evaluation.Detection = detection
		}
	}
	return evaluation
}

func (r *Runner) record(result PropertyTestResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

// Results returns the recorded property runs in recording order.
func (r *Runner) Results() []PropertyTestResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PropertyTestResult(nil), r.results...)
}

// GetTestSummary totals the recorded property runs.
func (r *Runner) GetTestSummary() TestSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	summary := TestSummary{Properties: len(r.results)}
	for _, result := range r.results {
		summary.Iterations += result.Iterations
		summary.Failures += result.Failed
	}
	if summary.Iterations > 0 {
		summary.SuccessPercentage = float64(summary.Iterations-summary.Failures) / float64(summary.Iterations) * 100
	} else {
		summary.SuccessPercentage = 100
	}
	return summary
}

// serialize renders a payload for the injection detector. Cyclic payloads
// cannot marshal, formatting them would recurse, so only the type is kept.
func serialize(payload interface{}) string {
	if text, ok := payload.(string); ok {
		return text
	}
	content, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("unserializable payload: %T", payload)
	}
	return string(content)
}
