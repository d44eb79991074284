// Package transcript folds an ordered stream of event frames into a
// conversation history. The fold is deterministic, performs no
// reordering, and after every frame yields a cheap incremental delta
// for progressive UI rendering.
package transcript

import (
	"log/slog"

	"github.com/quillflow/agent-core/protocol"
)

// IssueKindDanglingToolReference marks a tool result whose tool_call_id
// matched no call in any assistant turn.
const IssueKindDanglingToolReference = "dangling_tool_reference"

// Issue is a recorded data-integrity anomaly. Issues never abort the
// session; they exist so callers can surface them after the fact.
type Issue struct {
	Kind       string `json:"kind"`
	ToolCallID string `json:"tool_call_id,omitempty"`
	Detail     string `json:"detail"`
}

// Delta is the incremental change produced by folding one frame:
// the new text suffix, newly-appended tool calls, and newly-appended
// turns. Consumers render it without re-serializing the transcript.
type Delta struct {
	Text      string              `json:"text,omitempty"`
	ToolCalls []protocol.ToolCall `json:"tool_calls,omitempty"`
	Turns     []Turn              `json:"-"`
	Final     bool                `json:"final,omitempty"`
}

// Empty reports whether the delta carries no change.
func (d Delta) Empty() bool {
	return d.Text == "" && len(d.ToolCalls) == 0 && len(d.Turns) == 0 && !d.Final
}

// Accumulator folds event frames into an ordered turn list. One
// accumulator serves exactly one session; it is not safe for concurrent
// use — frames for a session are consumed strictly sequentially.
type Accumulator struct {
	turns  []Turn
	open   *AssistantTurn
	closed bool
	issues []Issue
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Seed establishes baseline state from prior conversation turns without
// producing deltas. Open assistant turns from history are closed — only
// the live session may mutate its last assistant turn.
func (a *Accumulator) Seed(turns []Turn) {
	for _, t := range turns {
		if at, ok := t.(*AssistantTurn); ok {
			at.close()
		}
		a.turns = append(a.turns, t)
	}
}

// AddUserTurn appends a user turn, e.g. the request that opened the session.
func (a *Accumulator) AddUserTurn(t UserTurn) {
	a.turns = append(a.turns, t)
}

// Apply folds one frame and returns the incremental delta. Frames
// arriving after the session has closed are dropped with a warning.
// A nil frame (already-skipped unknown kind) yields an empty delta.
func (a *Accumulator) Apply(frame protocol.Frame) Delta {
	if frame == nil {
		return Delta{}
	}
	if a.closed {
		slog.Warn("dropping frame after session end", "kind", frame.Kind())
		return Delta{}
	}

	switch f := frame.(type) {
	case protocol.ModelStartFrame:
		return a.applyModelStart()
	case protocol.ModelTextDeltaFrame:
		return a.applyTextDelta(f)
	case protocol.ModelCallsFinalFrame:
		return a.applyCallsFinal(f)
	case protocol.ToolResultsFrame:
		return a.applyToolResults(f)
	case protocol.SessionEndFrame:
		a.Close()
		return Delta{Final: true}
	default:
		slog.Warn("dropping frame of unknown type", "kind", frame.Kind())
		return Delta{}
	}
}

func (a *Accumulator) applyModelStart() Delta {
	if a.open != nil {
		return Delta{}
	}
	return Delta{Turns: []Turn{a.openAssistantTurn()}}
}

func (a *Accumulator) applyTextDelta(f protocol.ModelTextDeltaFrame) Delta {
	var d Delta
	if a.open == nil {
		// Defensive: a delta before model_start still opens a turn.
		d.Turns = append(d.Turns, a.openAssistantTurn())
	}
	a.open.appendText(f.Text)
	d.Text = f.Text
	return d
}

func (a *Accumulator) applyCallsFinal(f protocol.ModelCallsFinalFrame) Delta {
	var d Delta
	if a.open == nil {
		d.Turns = append(d.Turns, a.openAssistantTurn())
	}
	for _, call := range f.Calls {
		if call.ID == "" {
			slog.Warn("dropping tool call without id", "name", call.Name)
			continue
		}
		if a.open.addCall(call) {
			d.ToolCalls = append(d.ToolCalls, call)
		}
	}
	return d
}

func (a *Accumulator) applyToolResults(f protocol.ToolResultsFrame) Delta {
	var d Delta
	for _, res := range f.Results {
		turn := ToolResultTurn{
			ToolCallID: res.ToolCallID,
			Name:       res.Name,
			Content:    res.Content,
			Args:       map[string]interface{}{},
		}
		if call, ok := a.findCall(res.ToolCallID); ok {
			turn.Args = call.Args
		} else {
			a.issues = append(a.issues, Issue{
				Kind:       IssueKindDanglingToolReference,
				ToolCallID: res.ToolCallID,
				Detail:     "tool result references unknown tool call",
			})
			slog.Warn("tool result references unknown tool call", "tool_call_id", res.ToolCallID, "name", res.Name)
		}
		a.turns = append(a.turns, turn)
		d.Turns = append(d.Turns, turn)
	}
	return d
}

// findCall locates a tool call by id, searching the open turn first and
// then earlier assistant turns, most recent first.
func (a *Accumulator) findCall(id string) (protocol.ToolCall, bool) {
	if a.open != nil {
		if call, ok := a.open.call(id); ok {
			return call, true
		}
	}
	for i := len(a.turns) - 1; i >= 0; i-- {
		at, ok := a.turns[i].(*AssistantTurn)
		if !ok || at == a.open {
			continue
		}
		if call, ok := at.call(id); ok {
			return call, true
		}
	}
	return protocol.ToolCall{}, false
}

func (a *Accumulator) openAssistantTurn() *AssistantTurn {
	a.open = newOpenAssistantTurn()
	a.turns = append(a.turns, a.open)
	return a.open
}

// Close finalizes the transcript: the open assistant turn (if any) is
// closed and no further mutation is permitted.
func (a *Accumulator) Close() {
	if a.open != nil {
		a.open.close()
		a.open = nil
	}
	a.closed = true
}

// Closed reports whether the session has ended.
func (a *Accumulator) Closed() bool { return a.closed }

// Turns returns the transcript so far. The returned slice is a copy;
// assistant turns are shared references and must not be mutated by the
// caller.
func (a *Accumulator) Turns() []Turn {
	out := make([]Turn, len(a.turns))
	copy(out, a.turns)
	return out
}

// Issues returns the data-integrity anomalies recorded during the fold.
func (a *Accumulator) Issues() []Issue {
	out := make([]Issue, len(a.issues))
	copy(out, a.issues)
	return out
}
