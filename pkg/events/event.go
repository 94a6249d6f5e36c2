package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
	"github.com/darianrosebrook/agent-resilience-go/pkg/types"
)

//CreateEvents create the events
func CreateEvents(eventsDetails *types.EventDetails, bus *Bus, chaosDetails *types.ChaosDetails, kind string) error {
	if bus == nil {
		return cerrors.Error{
			ErrorCode: cerrors.ErrorTypeGeneric,
			Reason:    "no notification bus configured",
			Target:    eventsDetails.Reason,
		}
	}

	now := time.Now()
	notification := Notification{
		ID:             uuid.New().String(),
		Kind:           kind,
		Reason:         eventsDetails.Reason,
		Message:        eventsDetails.Message,
		Resource:       eventsDetails.ResourceName,
		ResourceUID:    eventsDetails.ResourceUID,
		Type:           eventsDetails.Type,
		Count:          1,
		FirstTimestamp: now,
		LastTimestamp:  now,
		Fields: map[string]interface{}{
			"experiment": chaosDetails.ExperimentName,
		},
	}

	bus.mu.Lock()
	bus.seen[eventKey(kind, eventsDetails)] = &notification
	bus.mu.Unlock()

	bus.Publish(notification)
	return nil
}

//GenerateEvents update the events
func GenerateEvents(eventsDetails *types.EventDetails, bus *Bus, chaosDetails *types.ChaosDetails, kind string) error {
	switch kind {
	case "ChaosEngine", "ChaosResult":
	default:
		return cerrors.Error{
			ErrorCode: cerrors.ErrorTypeGeneric,
			Reason:    "unknown notification kind " + kind,
			Target:    eventsDetails.Reason,
		}
	}

	if bus == nil {
		return cerrors.Error{
			ErrorCode: cerrors.ErrorTypeGeneric,
			Reason:    "no notification bus configured",
			Target:    eventsDetails.Reason,
		}
	}

	bus.mu.Lock()
	existing, ok := bus.seen[eventKey(kind, eventsDetails)]
	if !ok {
		bus.mu.Unlock()
		return CreateEvents(eventsDetails, bus, chaosDetails, kind)
	}

	existing.Count = existing.Count + 1
	existing.LastTimestamp = time.Now()
	existing.Message = eventsDetails.Message
	existing.Type = eventsDetails.Type
	snapshot := *existing
	bus.mu.Unlock()

	bus.Publish(snapshot)
	return nil
}

func eventKey(kind string, eventsDetails *types.EventDetails) string {
	return kind + "/" + eventsDetails.Reason + "/" + eventsDetails.ResourceUID
}
