package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
)

// Detection is the injection detector's verdict on serialized content.
type Detection struct {
	IsDetected bool     `json:"isDetected"`
	Patterns   []string `json:"patterns,omitempty"`
	Confidence float64  `json:"confidence"`
}

// InjectionDetector scans serialized payloads for attack patterns.
type InjectionDetector interface {
	Detect(ctx context.Context, serialized string) (Detection, error)
}

// HTTPDetector talks to the injection detector over its REST surface.
type HTTPDetector struct {
	endpoint string
	client   *http.Client
}

// NewHTTPDetector returns a detector client for the endpoint. A nil http
// client falls back to the shared default timeout.
func NewHTTPDetector(endpoint string, client *http.Client) *HTTPDetector {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPDetector{endpoint: endpoint, client: client}
}

type detectRequest struct {
	Content string `json:"content"`
}

// Detect submits the serialized content for pattern analysis.
func (d *HTTPDetector) Detect(ctx context.Context, serialized string) (Detection, error) {
	code, content, err := postJSON(ctx, d.client, d.endpoint+"/detect", detectRequest{Content: serialized})
	if err != nil {
		return Detection{}, err
	}
	if code < 200 || code >= 300 {
		return Detection{}, cerrors.Error{
			ErrorCode: cerrors.ErrorTypeCollaborator,
			Target:    d.endpoint,
			Reason:    fmt.Sprintf("unexpected status code %d from injection detector", code),
		}
	}

	detection := Detection{}
	if err := json.Unmarshal(content, &detection); err != nil {
		return Detection{}, cerrors.Error{
			ErrorCode: cerrors.ErrorTypeCollaborator,
			Target:    d.endpoint,
			Reason:    fmt.Sprintf("unable to decode detection: %v", err),
		}
	}
	return detection, nil
}

// Ready probes the detector health endpoint
func (d *HTTPDetector) Ready(ctx context.Context) error {
	return checkHealth(ctx, d.client, d.endpoint+"/health")
}
