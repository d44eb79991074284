package transcript

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/quillflow/agent-core/protocol"
)

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is the interface for all conversation turns.
type Turn interface {
	Role() Role
}

// Attachment is a file excerpt attached to a user turn.
type Attachment struct {
	Name    string `json:"name"`
	Excerpt string `json:"excerpt"`
}

// UserTurn is a literal user message, optionally with attached excerpts.
type UserTurn struct {
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Role returns the turn role.
func (t UserTurn) Role() Role { return RoleUser }

// AssistantTurn is an incrementally-built assistant message: a text
// buffer plus an ordered list of tool calls, both of which may grow
// while the turn is still streaming. Once closed it is immutable.
type AssistantTurn struct {
	text  string
	calls *orderedmap.OrderedMap[string, protocol.ToolCall]
	open  bool
}

// NewAssistantTurn constructs a closed assistant turn, e.g. for history
// replay. Duplicate call ids keep the first occurrence.
func NewAssistantTurn(text string, calls []protocol.ToolCall) *AssistantTurn {
	t := newOpenAssistantTurn()
	t.text = text
	for _, c := range calls {
		t.addCall(c)
	}
	t.open = false
	return t
}

func newOpenAssistantTurn() *AssistantTurn {
	return &AssistantTurn{
		calls: orderedmap.New[string, protocol.ToolCall](),
		open:  true,
	}
}

// Role returns the turn role.
func (t *AssistantTurn) Role() Role { return RoleAssistant }

// Text returns the accumulated assistant text.
func (t *AssistantTurn) Text() string { return t.text }

// Open reports whether the turn is still streaming.
func (t *AssistantTurn) Open() bool { return t.open }

// ToolCalls returns the tool calls in arrival order.
func (t *AssistantTurn) ToolCalls() []protocol.ToolCall {
	out := make([]protocol.ToolCall, 0, t.calls.Len())
	for pair := t.calls.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

func (t *AssistantTurn) appendText(chunk string) {
	t.text += chunk
}

// addCall appends the call unless its id is already present. Existing
// entries are left untouched so a re-announced id never clobbers a
// previously captured call. Returns true when the call was appended.
func (t *AssistantTurn) addCall(c protocol.ToolCall) bool {
	if _, exists := t.calls.Get(c.ID); exists {
		return false
	}
	t.calls.Set(c.ID, c)
	return true
}

func (t *AssistantTurn) call(id string) (protocol.ToolCall, bool) {
	return t.calls.Get(id)
}

func (t *AssistantTurn) close() {
	t.open = false
}

// ToolResultTurn records one tool execution outcome. Args are copied
// from the tool call the result references; a dangling reference leaves
// them empty.
type ToolResultTurn struct {
	ToolCallID string                 `json:"tool_call_id"`
	Name       string                 `json:"name"`
	Content    string                 `json:"content"`
	Args       map[string]interface{} `json:"args,omitempty"`
}

// Role returns the turn role.
func (t ToolResultTurn) Role() Role { return RoleTool }
