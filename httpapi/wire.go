package httpapi

import (
	"github.com/quillflow/agent-core/patch"
	"github.com/quillflow/agent-core/protocol"
	"github.com/quillflow/agent-core/session"
)

// wireDelta is the WebSocket shape of an incremental transcript change.
type wireDelta struct {
	Type      string              `json:"type"`
	Text      string              `json:"text,omitempty"`
	ToolCalls []protocol.ToolCall `json:"tool_calls,omitempty"`
	Final     bool                `json:"final,omitempty"`
}

// wirePatch is the WebSocket shape of a resolved document update.
type wirePatch struct {
	Type     string                  `json:"type"`
	Response protocol.UpdateResponse `json:"response"`
	Preview  []patch.Hunk            `json:"preview,omitempty"`
}

// wireStatus is the WebSocket shape of the terminal session status.
type wireStatus struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// wireEvent converts a session event into its WebSocket message.
func wireEvent(event session.Event) (interface{}, bool) {
	switch e := event.(type) {
	case session.DeltaEvent:
		return wireDelta{
			Type:      "delta",
			Text:      e.Delta.Text,
			ToolCalls: e.Delta.ToolCalls,
			Final:     e.Delta.Final,
		}, true
	case session.PatchEvent:
		return wirePatch{Type: "patch", Response: e.Response, Preview: e.Preview}, true
	case session.StatusEvent:
		msg := wireStatus{Type: "status", Status: string(e.Status)}
		if e.Err != nil {
			msg.Error = e.Err.Error()
		}
		return msg, true
	default:
		return nil, false
	}
}
