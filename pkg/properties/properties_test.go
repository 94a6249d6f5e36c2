package properties

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
	"github.com/darianrosebrook/agent-resilience-go/pkg/clients"
	"github.com/darianrosebrook/agent-resilience-go/pkg/random"
)

// memoryBoundary enforces the intake rules in process: no binary, no
// oversized or malformed documents, bounded nesting, policy screening.
// Cyclic payloads fail serialization and surface as errors.
type memoryBoundary struct {
	maxBytes  int
	maxDepth  int
	acceptAll bool

	mu       sync.Mutex
	accepted int
	rejected int
}

func newMemoryBoundary(maxBytes, maxDepth int) *memoryBoundary {
	return &memoryBoundary{maxBytes: maxBytes, maxDepth: maxDepth}
}

func (m *memoryBoundary) Process(ctx context.Context, request clients.IntakeRequest) (clients.IntakeDecision, error) {
	if m.acceptAll {
		return m.decide(clients.DecisionAccepted, "")
	}
	if request.Payload == nil {
		return m.decide(clients.DecisionRejected, "empty payload")
	}
	if _, ok := request.Payload.([]byte); ok {
		return m.decide(clients.DecisionRejected, "binary payloads are not accepted")
	}
	serialized, err := json.Marshal(request.Payload)
	if err != nil {
		return clients.IntakeDecision{}, cerrors.Error{
			ErrorCode: cerrors.ErrorTypeCollaborator,
			Target:    "intake boundary",
			Reason:    err.Error(),
		}
	}
	if len(serialized) > m.maxBytes {
		return m.decide(clients.DecisionRejected, "payload exceeds the size limit")
	}
	if text, ok := request.Payload.(string); ok {
		if looksLikeDocument(text) && !json.Valid([]byte(text)) {
			return m.decide(clients.DecisionRejected, "malformed document")
		}
	}
	if depthOf(request.Payload) > m.maxDepth {
		return m.decide(clients.DecisionRejected, "nesting depth exceeds the limit")
	}
	if violation := policyViolation(request.Payload); violation != "" {
		return m.decide(clients.DecisionRejected, violation)
	}
	return m.decide(clients.DecisionAccepted, "")
}

func (m *memoryBoundary) decide(status clients.DecisionStatus, reason string) (clients.IntakeDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status == clients.DecisionAccepted {
		m.accepted++
	} else {
		m.rejected++
	}
	return clients.IntakeDecision{Status: status, Reason: reason}, nil
}

func looksLikeDocument(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, `"`)
}

func depthOf(value interface{}) int {
	switch typed := value.(type) {
	case map[string]interface{}:
		deepest := 0
		for _, nested := range typed {
			if depth := depthOf(nested); depth > deepest {
				deepest = depth
			}
		}
		return deepest + 1
	case []interface{}:
		deepest := 0
		for _, nested := range typed {
			if depth := depthOf(nested); depth > deepest {
				deepest = depth
			}
		}
		return deepest + 1
	default:
		return 0
	}
}

func policyViolation(payload interface{}) string {
	fields, ok := payload.(map[string]interface{})
	if !ok {
		return ""
	}
	if override, ok := fields["priorityOverride"].(bool); ok && override {
		return "priority escalation is not allowed"
	}
	if repeat, ok := fields["repeat"].(int); ok && repeat > 1000 {
		return "repeat count exceeds the rate limit"
	}
	if description, ok := fields["description"].(string); ok && strings.Contains(description, "exhaust") {
		return "task description requests resource exhaustion"
	}
	return ""
}

// memoryDetector flags serialized content carrying a known attack marker.
type memoryDetector struct {
	patterns []string
}

func newMemoryDetector() *memoryDetector {
	return &memoryDetector{patterns: []string{
		"ignore all previous",
		"you are now",
		"credentials",
		"rm -rf",
		"drop table",
	}}
}

func (d *memoryDetector) Detect(ctx context.Context, serialized string) (clients.Detection, error) {
	lowered := strings.ToLower(serialized)
	for _, pattern := range d.patterns {
		if strings.Contains(lowered, pattern) {
			return clients.Detection{IsDetected: true, Patterns: []string{pattern}, Confidence: 0.9}, nil
		}
	}
	return clients.Detection{}, nil
}

// testMaxBytes sits above anything the bounded valid generator can emit
// and well below the oversized generator's floor.
const (
	testMaxBytes = 4096
	testMaxDepth = 4
)

func testConfig(iterations int) Config {
	return Config{
		BaseSeed:        12345,
		MaxIterations:   iterations,
		MaxPayloadBytes: testMaxBytes,
		MaxObjectDepth:  testMaxDepth,
	}
}

func newTestRunner(cfg Config, boundary clients.IntakeBoundary) *Runner {
	return NewRunner(cfg, clients.ClientSets{Intake: boundary, Detector: newMemoryDetector()})
}

func TestValidPayloadsAlwaysAccepted(t *testing.T) {
	boundary := newMemoryBoundary(testMaxBytes, testMaxDepth)
	runner := newTestRunner(testConfig(50), boundary)

	result, err := runner.RunPropertyTest(context.Background(), "valid-payloads-processed")
	require.NoError(t, err)
	assert.Equal(t, 50, result.Iterations)
	assert.Equal(t, 50, result.Passed)
	assert.Zero(t, result.Failed)
	assert.Empty(t, result.Failures)
}

func TestMalformedPayloadsNeverAccepted(t *testing.T) {
	boundary := newMemoryBoundary(testMaxBytes, testMaxDepth)
	runner := newTestRunner(testConfig(50), boundary)

	result, err := runner.RunPropertyTest(context.Background(), "malformed-payloads-rejected")
	require.NoError(t, err)
	assert.Equal(t, 50, result.Iterations)
	assert.Equal(t, 50, result.Passed)
	assert.Zero(t, boundary.accepted)
}

func TestRunAllPropertyTests(t *testing.T) {
	boundary := newMemoryBoundary(testMaxBytes, testMaxDepth)
	runner := newTestRunner(testConfig(12), boundary)

	results, err := runner.RunAllPropertyTests(context.Background())
	require.NoError(t, err)
	require.Len(t, results, len(Catalog()))

	for i, property := range Catalog() {
		assert.Equal(t, property.Name, results[i].PropertyName)
		assert.Equalf(t, 12, results[i].Iterations, "property %v ran short", property.Name)
		assert.Zerof(t, results[i].Failed, "property %v failed: %+v", property.Name, results[i].Failures)
	}

	summary := runner.GetTestSummary()
	assert.Equal(t, len(Catalog()), summary.Properties)
	assert.Equal(t, 12*len(Catalog()), summary.Iterations)
	assert.Zero(t, summary.Failures)
	assert.Equal(t, 100.0, summary.SuccessPercentage)
}

func TestRunPropertyTestUnknownName(t *testing.T) {
	runner := newTestRunner(testConfig(5), newMemoryBoundary(testMaxBytes, testMaxDepth))

	_, err := runner.RunPropertyTest(context.Background(), "payloads-always-polite")
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrorTypeUnknownProperty, cerrors.GetErrorType(err))
}

func TestEarlyExitAtFailureThreshold(t *testing.T) {
	// an accept-everything boundary violates every rejection property
	boundary := newMemoryBoundary(testMaxBytes, testMaxDepth)
	boundary.acceptAll = true
	runner := newTestRunner(testConfig(100), boundary)

	result, err := runner.RunPropertyTest(context.Background(), "malformed-payloads-rejected")
	require.NoError(t, err)
	assert.Equal(t, 10, result.Iterations)
	assert.Equal(t, 10, result.Failed)
	assert.Len(t, result.Failures, 10)
	assert.Equal(t, 0, result.Failures[0].Iteration)
	assert.Equal(t, int64(12345), result.Failures[0].Seed)
}

func TestRunHonorsCancellation(t *testing.T) {
	runner := newTestRunner(testConfig(100), newMemoryBoundary(testMaxBytes, testMaxDepth))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := runner.RunPropertyTest(ctx, "valid-payloads-processed")
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrorTypeExperimentAborted, cerrors.GetErrorType(err))
	assert.Zero(t, result.Iterations)
}

func TestInjectionBlockedByDetectorAlone(t *testing.T) {
	// the boundary waves attacks through, only the detector stands
	boundary := newMemoryBoundary(testMaxBytes, testMaxDepth)
	runner := newTestRunner(testConfig(len(attackPayloads)*4), boundary)

	result, err := runner.RunPropertyTest(context.Background(), "injection-payloads-blocked")
	require.NoError(t, err)
	assert.Zero(t, result.Failed)
	assert.Positive(t, boundary.accepted)
}

func TestCircularPayloadsRejectedViaError(t *testing.T) {
	boundary := newMemoryBoundary(testMaxBytes, testMaxDepth)
	runner := newTestRunner(testConfig(10), boundary)

	result, err := runner.RunPropertyTest(context.Background(), "circular-payloads-rejected")
	require.NoError(t, err)
	assert.Equal(t, 10, result.Passed)
	assert.Zero(t, boundary.accepted)
	assert.Zero(t, boundary.rejected)
}

func TestRunsAreReproducible(t *testing.T) {
	first := newTestRunner(testConfig(20), newMemoryBoundary(testMaxBytes, testMaxDepth))
	second := newTestRunner(testConfig(20), newMemoryBoundary(testMaxBytes, testMaxDepth))

	ctx := context.Background()
	firstResults, err := first.RunAllPropertyTests(ctx)
	require.NoError(t, err)
	secondResults, err := second.RunAllPropertyTests(ctx)
	require.NoError(t, err)

	require.Len(t, secondResults, len(firstResults))
	for i := range firstResults {
		assert.Equal(t, firstResults[i].PropertyName, secondResults[i].PropertyName)
		assert.Equal(t, firstResults[i].Passed, secondResults[i].Passed)
		assert.Equal(t, firstResults[i].Failures, secondResults[i].Failures)
	}
}

func TestSummaryCountsFailures(t *testing.T) {
	boundary := newMemoryBoundary(testMaxBytes, testMaxDepth)
	boundary.acceptAll = true
	runner := newTestRunner(testConfig(30), boundary)

	_, err := runner.RunPropertyTest(context.Background(), "binary-payloads-rejected")
	require.NoError(t, err)
	_, err = runner.RunPropertyTest(context.Background(), "unicode-payloads-handled")
	require.NoError(t, err)

	summary := runner.GetTestSummary()
	assert.Equal(t, 2, summary.Properties)
	assert.Equal(t, 10+30, summary.Iterations)
	assert.Equal(t, 10, summary.Failures)
	assert.InDelta(t, float64(30)/float64(40)*100, summary.SuccessPercentage, 0.001)
}

func TestGeneratedInputsMatchTheirRules(t *testing.T) {
	cfg := testConfig(1)

	t.Run("oversized length", func(t *testing.T) {
		fuzzer := random.NewFuzzer(7, cfg.MaxObjectDepth)
		request := generateOversized(fuzzer, cfg)
		payload := request.Payload.(string)
		assert.GreaterOrEqual(t, len(payload), cfg.MaxPayloadBytes+1000)
		assert.Less(t, len(payload), cfg.MaxPayloadBytes+10000)
	})

	t.Run("binary length", func(t *testing.T) {
		fuzzer := random.NewFuzzer(7, cfg.MaxObjectDepth)
		request := generateBinary(fuzzer, cfg)
		raw := request.Payload.([]byte)
		assert.GreaterOrEqual(t, len(raw), 100)
		assert.Less(t, len(raw), 1000)
	})

	t.Run("nesting depth", func(t *testing.T) {
		fuzzer := random.NewFuzzer(7, cfg.MaxObjectDepth)
		request := generateDeeplyNested(fuzzer, cfg)
		depth := depthOf(request.Payload)
		assert.Greater(t, depth, cfg.MaxObjectDepth)
		assert.LessOrEqual(t, depth, cfg.MaxObjectDepth+10)
	})

	t.Run("circular reference", func(t *testing.T) {
		fuzzer := random.NewFuzzer(7, cfg.MaxObjectDepth)
		request := generateCircular(fuzzer, cfg)
		payload := request.Payload.(map[string]interface{})
		_, err := json.Marshal(payload)
		require.Error(t, err)
	})
}
