package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
)

// DecisionStatus is the intake boundary's answer for one payload.
type DecisionStatus string

const (
	DecisionAccepted DecisionStatus = "accepted"
	DecisionRejected DecisionStatus = "rejected"
)

// IntakeMetadata describes how a payload entered the platform.
type IntakeMetadata struct {
	ContentType  string `json:"contentType,omitempty"`
	Encoding     string `json:"encoding,omitempty"`
	PriorityHint string `json:"priorityHint,omitempty"`
	Surface      string `json:"surface,omitempty"`
}

// IntakeRequest is a payload submitted to the intake boundary.
type IntakeRequest struct {
	Payload  interface{}    `json:"payload"`
	Metadata IntakeMetadata `json:"metadata"`
}

// IntakeDecision is the boundary's verdict on a request.
type IntakeDecision struct {
	Status DecisionStatus `json:"status"`
	Reason string         `json:"reason,omitempty"`
}

// IntakeBoundary validates payloads before they reach the task pipeline.
// The policy enforcer sits behind the boundary and is never called
// directly.
type IntakeBoundary interface {
	Process(ctx context.Context, request IntakeRequest) (IntakeDecision, error)
}

// HTTPIntake talks to the intake boundary over its REST surface.
type HTTPIntake struct {
	endpoint string
	client   *http.Client
}

// NewHTTPIntake returns an intake client for the endpoint. A nil http
// client falls back to the shared default timeout.
func NewHTTPIntake(endpoint string, client *http.Client) *HTTPIntake {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPIntake{endpoint: endpoint, client: client}
}

// Process submits the request and returns the boundary's decision. A
// 400-class answer carrying a decision body is a rejection, not an error.
func (b *HTTPIntake) Process(ctx context.Context, request IntakeRequest) (IntakeDecision, error) {
	code, content, err := postJSON(ctx, b.client, b.endpoint+"/process", request)
	if err != nil {
		return IntakeDecision{}, err
	}

	decision := IntakeDecision{}
	if code >= 200 && code < 300 {
		if err := json.Unmarshal(content, &decision); err != nil {
			return IntakeDecision{}, cerrors.Error{
				ErrorCode: cerrors.ErrorTypeCollaborator,
				Target:    b.endpoint,
				Reason:    fmt.Sprintf("unable to decode intake decision: %v", err),
			}
		}
		return decision, nil
	}

	if code >= 400 && code < 500 {
		if err := json.Unmarshal(content, &decision); err == nil && decision.Status != "" {
			return decision, nil
		}
	}
	return IntakeDecision{}, cerrors.Error{
		ErrorCode: cerrors.ErrorTypeCollaborator,
		Target:    b.endpoint,
		Reason:    fmt.Sprintf("unexpected status code %d from intake boundary", code),
	}
}

// Ready probes the intake boundary health endpoint
func (b *HTTPIntake) Ready(ctx context.Context) error {
	return checkHealth(ctx, b.client, b.endpoint+"/health")
}
