package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
	"github.com/darianrosebrook/agent-resilience-go/pkg/events"
	"github.com/darianrosebrook/agent-resilience-go/pkg/result"
)

var defaultTimeout = 30 * time.Second

// ClientSets is a collection of collaborator clients and run-scoped sinks
// needed by the experiments.
type ClientSets struct {
	Registry WorkerRegistry
	Intake   IntakeBoundary
	Detector InjectionDetector
	Bus      *events.Bus
	Results  *result.Store
}

// GenerateClientSetFromEndpoints wires the collaborator clients from the
// REGISTRY_ENDPOINT, INTAKE_ENDPOINT and DETECTOR_ENDPOINT variables and
// initializes the run-scoped bus and result store.
func (clientSets *ClientSets) GenerateClientSetFromEndpoints() error {
	registryEndpoint := os.Getenv("REGISTRY_ENDPOINT")
	intakeEndpoint := os.Getenv("INTAKE_ENDPOINT")
	detectorEndpoint := os.Getenv("DETECTOR_ENDPOINT")
	if registryEndpoint == "" || intakeEndpoint == "" || detectorEndpoint == "" {
		return errors.Errorf("collaborator endpoints are not fully configured, registry: %q, intake: %q, detector: %q",
			registryEndpoint, intakeEndpoint, detectorEndpoint)
	}

	httpClient := &http.Client{Timeout: defaultTimeout}
	clientSets.Registry = NewHTTPRegistry(registryEndpoint, httpClient)
	clientSets.Intake = NewHTTPIntake(intakeEndpoint, httpClient)
	clientSets.Detector = NewHTTPDetector(detectorEndpoint, httpClient)
	clientSets.Bus = events.NewBus()
	clientSets.Results = result.NewStore()
	return nil
}

// postJSON sends the body to the url and returns the status code and raw
// response body. Transport failures come back as collaborator errors.
func postJSON(ctx context.Context, client *http.Client, url string, body interface{}) (int, []byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeGeneric, Reason: fmt.Sprintf("unable to serialize request body: %v", err)}
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeCollaborator, Target: url, Reason: err.Error()}
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return 0, nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeCollaborator, Target: url, Reason: err.Error()}
	}
	defer response.Body.Close()

	content, err := io.ReadAll(response.Body)
	if err != nil {
		return response.StatusCode, nil, cerrors.Error{ErrorCode: cerrors.ErrorTypeCollaborator, Target: url, Reason: fmt.Sprintf("unable to read response body: %v", err)}
	}
	return response.StatusCode, content, nil
}

// checkHealth probes a collaborator health endpoint, any 2xx response counts as ready
func checkHealth(ctx context.Context, client *http.Client, url string) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeCollaborator, Target: url, Reason: err.Error()}
	}

	response, err := client.Do(request)
	if err != nil {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeCollaborator, Target: url, Reason: err.Error()}
	}
	defer response.Body.Close()
	io.Copy(io.Discard, response.Body)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeCollaborator, Target: url, Reason: fmt.Sprintf("health probe returned status code %d", response.StatusCode)}
	}
	return nil
}
