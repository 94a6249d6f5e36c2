package status

import (
	"context"
	"time"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
	"github.com/darianrosebrook/agent-resilience-go/pkg/clients"
	"github.com/darianrosebrook/agent-resilience-go/pkg/log"
	"github.com/darianrosebrook/agent-resilience-go/pkg/utils/retry"
)

// ReadinessChecker is implemented by collaborator clients that expose a
// health endpoint. Clients without one are skipped by CheckCollaborators.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// CheckCollaborators checks the status of the collaborator services
// it probes every wired collaborator until it reports ready or the timeout expires
func CheckCollaborators(ctx context.Context, timeout, delay int, clients clients.ClientSets) error {

	collaborators := []struct {
		name   string
		client interface{}
	}{
		{"worker registry", clients.Registry},
		{"intake boundary", clients.Intake},
		{"injection detector", clients.Detector},
	}

	for _, collaborator := range collaborators {
		checker, ok := collaborator.client.(ReadinessChecker)
		if !ok {
			log.Infof("[Status]: The %v exposes no readiness probe, skipping the status check", collaborator.name)
			continue
		}
		log.Infof("[Status]: Checking whether the %v is ready", collaborator.name)
		if err := retry.
			Times(uint(timeout / delay)).
			Wait(time.Duration(delay) * time.Second).
			Try(func(attempt uint) error {
				return checker.Ready(ctx)
			}); err != nil {
			return cerrors.Error{ErrorCode: cerrors.ErrorTypeStatusChecks, Target: collaborator.name, Reason: err.Error()}
		}
	}
	return nil
}
