// Package events defines the domain events exchanged between modules over the
// in-process event bus.
package events

import "callops_backend/platform/events"

// Bus re-exports the platform bus interface so modules depend on one package.
type Bus = events.Bus

// EventCallProcessed is the bus name of the CallProcessed event.
const EventCallProcessed = "call.processed"

// CallProcessed is published after the fan-out orchestrator has persisted a
// call record. Subscribers handle follow-up work such as recording archival.
type CallProcessed struct {
	events.BaseEvent
	CallID       string
	RecordingURL string
}

// EventName returns the event type identifier.
func (CallProcessed) EventName() string { return EventCallProcessed }

// NewCallProcessed creates a CallProcessed event.
func NewCallProcessed(callID, recordingURL string) CallProcessed {
	return CallProcessed{
		BaseEvent:    events.NewBaseEvent(),
		CallID:       callID,
		RecordingURL: recordingURL,
	}
}
