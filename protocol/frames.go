package protocol

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// FrameKind discriminates between event frame kinds.
type FrameKind string

const (
	FrameKindModelStart      FrameKind = "model_start"
	FrameKindModelTextDelta  FrameKind = "model_text_delta"
	FrameKindModelCallsFinal FrameKind = "model_calls_final"
	FrameKindToolResults     FrameKind = "tool_results"
	FrameKindSessionEnd      FrameKind = "session_end"
)

// Frame is the interface for all event frames pushed by the model-invocation layer.
type Frame interface {
	Kind() FrameKind
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// ToolResult is the outcome of executing one tool call.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
}

// ModelStartFrame marks the beginning of a model response.
type ModelStartFrame struct {
	Type FrameKind `json:"kind"`
}

// Kind returns the frame kind.
func (f ModelStartFrame) Kind() FrameKind { return FrameKindModelStart }

// ModelTextDeltaFrame carries an incremental chunk of assistant text.
type ModelTextDeltaFrame struct {
	Type FrameKind `json:"kind"`
	Text string    `json:"text"`
}

// Kind returns the frame kind.
func (f ModelTextDeltaFrame) Kind() FrameKind { return FrameKindModelTextDelta }

// ModelCallsFinalFrame carries the fully-parsed tool calls of the current
// assistant message. The same call id may be re-announced across frames;
// consumers merge by id.
type ModelCallsFinalFrame struct {
	Type  FrameKind  `json:"kind"`
	Calls []ToolCall `json:"calls"`
}

// Kind returns the frame kind.
func (f ModelCallsFinalFrame) Kind() FrameKind { return FrameKindModelCallsFinal }

// ToolResultsFrame carries tool execution outcomes echoed back into the stream.
type ToolResultsFrame struct {
	Type    FrameKind    `json:"kind"`
	Results []ToolResult `json:"results"`
}

// Kind returns the frame kind.
func (f ToolResultsFrame) Kind() FrameKind { return FrameKindToolResults }

// SessionEndFrame terminates the stream for one session.
type SessionEndFrame struct {
	Type FrameKind `json:"kind"`
}

// Kind returns the frame kind.
func (f SessionEndFrame) Kind() FrameKind { return FrameKindSessionEnd }

// ParseFrame parses a single JSON frame.
//
// Unknown kinds return (nil, nil) after a logged warning — forward
// compatibility means a new frame kind must never abort a session.
// Malformed JSON returns an error; the caller drops the frame.
func ParseFrame(data []byte) (Frame, error) {
	var base struct {
		Kind FrameKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}

	switch base.Kind {
	case FrameKindModelStart:
		var f ModelStartFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return f, nil
	case FrameKindModelTextDelta:
		var f ModelTextDeltaFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return f, nil
	case FrameKindModelCallsFinal:
		var f ModelCallsFinalFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return f, nil
	case FrameKindToolResults:
		var f ToolResultsFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return f, nil
	case FrameKindSessionEnd:
		var f SessionEndFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return f, nil
	default:
		slog.Warn("skipping unknown frame kind", "kind", base.Kind)
		return nil, nil
	}
}
