package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
)

// HealthStatus is the health grade reported to the worker registry.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// WorkerRegistry propagates worker health to the orchestrator under test.
type WorkerRegistry interface {
	UpdateHealth(ctx context.Context, workerID string, status HealthStatus, loadFactor float64) error
}

// HTTPRegistry talks to the worker registry over its REST surface.
type HTTPRegistry struct {
	endpoint string
	client   *http.Client
}

// NewHTTPRegistry returns a registry client for the endpoint. A nil http
// client falls back to the shared default timeout.
func NewHTTPRegistry(endpoint string, client *http.Client) *HTTPRegistry {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPRegistry{endpoint: endpoint, client: client}
}

type healthUpdate struct {
	Status     HealthStatus `json:"status"`
	LoadFactor float64      `json:"loadFactor"`
}

// UpdateHealth reports the worker's health grade and load factor.
func (r *HTTPRegistry) UpdateHealth(ctx context.Context, workerID string, status HealthStatus, loadFactor float64) error {
	url := fmt.Sprintf("%s/workers/%s/health", r.endpoint, workerID)
	code, _, err := postJSON(ctx, r.client, url, healthUpdate{Status: status, LoadFactor: loadFactor})
	if err != nil {
		return err
	}
	if code < 200 || code >= 300 {
		return cerrors.Error{
			ErrorCode: cerrors.ErrorTypeCollaborator,
			Target:    fmt.Sprintf("{workerId: %s, endpoint: %s}", workerID, r.endpoint),
			Reason:    fmt.Sprintf("unexpected status code %d from worker registry", code),
		}
	}
	return nil
}

// Ready probes the registry health endpoint
func (r *HTTPRegistry) Ready(ctx context.Context) error {
	return checkHealth(ctx, r.client, r.endpoint+"/health")
}
