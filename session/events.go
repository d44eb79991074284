package session

import (
	"github.com/quillflow/agent-core/patch"
	"github.com/quillflow/agent-core/protocol"
	"github.com/quillflow/agent-core/transcript"
)

// Status is the terminal state of a session.
type Status string

const (
	// StatusCompleted means the stream ended with session_end.
	StatusCompleted Status = "completed"
	// StatusCancelled means cooperative cancellation pre-empted the stream.
	StatusCancelled Status = "cancelled"
	// StatusFailed means the upstream source errored or closed unexpectedly.
	StatusFailed Status = "failed"
)

// EventType discriminates between session event kinds.
type EventType int

const (
	// EventTypeDelta fires for each incremental transcript change.
	EventTypeDelta EventType = iota
	// EventTypePatch fires when a document update has been resolved.
	EventTypePatch
	// EventTypeStatus fires once, as the session reaches a terminal state.
	EventTypeStatus
)

// Event is the interface for all session events.
type Event interface {
	Type() EventType
}

// DeltaEvent carries an incremental transcript change.
type DeltaEvent struct {
	Delta transcript.Delta
}

// Type returns the event type.
func (e DeltaEvent) Type() EventType { return EventTypeDelta }

// PatchEvent carries the outcome of one document update, with a diff
// preview on success.
type PatchEvent struct {
	Response protocol.UpdateResponse
	Preview  []patch.Hunk
}

// Type returns the event type.
func (e PatchEvent) Type() EventType { return EventTypePatch }

// StatusEvent reports the session's terminal status.
type StatusEvent struct {
	Status Status
	Err    error
}

// Type returns the event type.
func (e StatusEvent) Type() EventType { return EventTypeStatus }

// PatchOutcome pairs an update response with its diff preview in the
// final session outcome.
type PatchOutcome struct {
	Response protocol.UpdateResponse
	Preview  []patch.Hunk
}

// Outcome is the final result of one session.
type Outcome struct {
	Status       Status
	Err          error
	Transcript   []transcript.Turn
	Patches      []PatchOutcome
	Issues       []transcript.Issue
	DocumentText string
}
