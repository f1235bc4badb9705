package event

import (
	"changeportal/bizerror"
	"changeportal/domain"

	"github.com/fundwit/go-commons/types"
)

type EventType string

const (
	TransitionSucceeded EventType = "TRANSITION_SUCCEEDED"
	TransitionFailed    EventType = "TRANSITION_FAILED"
	SideEffectDetected  EventType = "SIDE_EFFECT_DETECTED"
	SideEffectTimedOut  EventType = "SIDE_EFFECT_TIMED_OUT"
)

// EventRecord is an outcome of a coordinator action, published to the bus for page controllers.
type EventRecord struct {
	ID   types.ID  `json:"id"`
	Type EventType `json:"type"`

	ObjectID string        `json:"objectId"`
	Kind     domain.Kind   `json:"kind"`
	From     domain.Status `json:"from,omitempty"`
	To       domain.Status `json:"to,omitempty"`

	Reason     bizerror.Reason `json:"reason,omitempty"`
	Message    string          `json:"message,omitempty"`
	SideEffect string          `json:"sideEffect,omitempty"`

	// redacted object, absent on failures
	Object *domain.ManagedObject `json:"object,omitempty"`

	Timestamp types.Timestamp `json:"timestamp"`
}
