// Package session orchestrates one agent request end-to-end: it ties a
// cancellation token, a transcript accumulator, and the patch engine to
// a single upstream frame stream, emitting incremental events for the
// UI as they occur.
package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/quillflow/agent-core/cancel"
	"github.com/quillflow/agent-core/patch"
	"github.com/quillflow/agent-core/protocol"
	"github.com/quillflow/agent-core/transcript"
)

// Sentinel errors for terminal session failures.
var (
	// ErrStreamClosed means the upstream closed before session_end.
	ErrStreamClosed = errors.New("event stream closed before session_end")
	// ErrAlreadyRan means Run was called twice on the same session.
	ErrAlreadyRan = errors.New("session already ran")
)

// FrameSource is the upstream event stream feeding a session. Frames()
// yields frames in arrival order and is closed when the source is
// exhausted; Err() reports the terminal source error, if any, once
// Frames() has closed.
type FrameSource interface {
	Frames() <-chan protocol.Frame
	Err() error
}

// Session runs one request. Create with New, consume Events from
// another goroutine, and call Run exactly once with the frame source.
type Session struct {
	registry *cancel.Registry
	token    *cancel.Token
	config   Config
	acc      *transcript.Accumulator
	events   chan Event

	currentText string
	patches     []PatchOutcome
	ran         bool
}

// New creates a session: it obtains a cancellation token from the
// registry (superseding any in-flight operation under the same request
// id) and seeds the accumulator with prior history.
func New(registry *cancel.Registry, opts ...Option) *Session {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.RequestID == "" {
		config.RequestID = uuid.NewString()
	}

	s := &Session{
		registry:    registry,
		token:       registry.Create(config.RequestID),
		config:      config,
		acc:         transcript.NewAccumulator(),
		events:      make(chan Event, config.EventBufferSize),
		currentText: config.DocumentText,
	}

	s.acc.Seed(config.History)
	if config.UserText != "" {
		s.acc.AddUserTurn(transcript.UserTurn{
			Text:        config.UserText,
			Attachments: config.Attachments,
		})
	}

	return s
}

// ID returns the request id this session runs under.
func (s *Session) ID() string { return s.config.RequestID }

// Events returns a read-only channel of session events. It is closed
// when the session reaches a terminal state.
func (s *Session) Events() <-chan Event { return s.events }

// Run consumes the frame stream to completion and returns the outcome.
// Cancellation is observed cooperatively at the top of each iteration;
// a terminal frame that has been fully processed before cancellation is
// observed still completes the session.
func (s *Session) Run(ctx context.Context, source FrameSource) *Outcome {
	if s.ran {
		return &Outcome{Status: StatusFailed, Err: ErrAlreadyRan}
	}
	s.ran = true

	defer close(s.events)
	defer s.registry.Release(s.token)

	frames := source.Frames()
	for {
		if s.token.Cancelled() {
			return s.finalize(StatusCancelled, nil)
		}

		select {
		case <-ctx.Done():
			return s.finalize(StatusCancelled, ctx.Err())
		case <-s.token.Done():
			return s.finalize(StatusCancelled, nil)
		case frame, ok := <-frames:
			if !ok {
				if err := source.Err(); err != nil {
					return s.finalize(StatusFailed, err)
				}
				return s.finalize(StatusFailed, ErrStreamClosed)
			}
			if frame == nil {
				continue // already skipped at the parse boundary
			}

			if delta := s.acc.Apply(frame); !delta.Empty() {
				s.emit(DeltaEvent{Delta: delta})
			}

			switch f := frame.(type) {
			case protocol.ToolResultsFrame:
				s.resolveUpdates(f)
			case protocol.SessionEndFrame:
				return s.finalize(StatusCompleted, nil)
			}
		}
	}
}

// resolveUpdates routes document-update payloads carried by tool
// results through the patch engine. Malformed payloads are logged and
// skipped; a single bad result never aborts the session.
func (s *Session) resolveUpdates(frame protocol.ToolResultsFrame) {
	for _, res := range frame.Results {
		content := []byte(res.Content)
		if !protocol.IsUpdatePayload(content) {
			continue
		}

		req, err := protocol.ParseUpdateRequest(content)
		if err != nil {
			slog.Warn("dropping malformed update payload",
				"request_id", s.config.RequestID, "tool_call_id", res.ToolCallID, "error", err)
			continue
		}
		s.applyUpdate(req)
	}
}

func (s *Session) applyUpdate(req protocol.UpdateRequest) {
	resp := protocol.UpdateResponse{
		RequestID:  s.config.RequestID,
		DocumentID: req.DocumentID,
		UpdateType: req.UpdateType,
	}

	preq, err := patch.FromUpdateRequest(req)
	if err != nil {
		slog.Warn("dropping invalid update request",
			"request_id", s.config.RequestID, "update_type", req.UpdateType, "error", err)
		return
	}

	outcome := PatchOutcome{}
	newText, err := patch.Apply(s.currentText, preq)
	if err != nil {
		if pe, ok := patch.AsError(err); ok {
			resp.Error = &protocol.UpdateError{Kind: string(pe.Kind), Message: pe.Message}
		} else {
			resp.Error = &protocol.UpdateError{Kind: "internal", Message: err.Error()}
		}
	} else {
		resp.Success = true
		resp.NewText = newText
		outcome.Preview = patch.Preview(s.currentText, newText)
		s.currentText = newText
	}

	outcome.Response = resp
	s.patches = append(s.patches, outcome)
	s.emit(PatchEvent{Response: resp, Preview: outcome.Preview})
}

func (s *Session) finalize(status Status, err error) *Outcome {
	s.acc.Close()
	s.emit(StatusEvent{Status: status, Err: err})
	return &Outcome{
		Status:       status,
		Err:          err,
		Transcript:   s.acc.Turns(),
		Patches:      s.patches,
		Issues:       s.acc.Issues(),
		DocumentText: s.currentText,
	}
}

// emit sends an event without ever blocking frame processing. A full
// sink drops the event; the final Outcome remains authoritative.
func (s *Session) emit(event Event) {
	select {
	case s.events <- event:
	default:
		slog.Warn("dropping session event, sink full",
			"request_id", s.config.RequestID, "event_type", event.Type())
	}
}
