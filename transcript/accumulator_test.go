package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillflow/agent-core/protocol"
)

func TestAccumulator_TextOrdering(t *testing.T) {
	acc := NewAccumulator()

	acc.Apply(protocol.ModelStartFrame{})
	d1 := acc.Apply(protocol.ModelTextDeltaFrame{Text: "Hi"})
	d2 := acc.Apply(protocol.ModelTextDeltaFrame{Text: " there"})
	final := acc.Apply(protocol.SessionEndFrame{})

	assert.Equal(t, "Hi", d1.Text)
	assert.Equal(t, " there", d2.Text)
	assert.True(t, final.Final)

	turns := acc.Turns()
	require.Len(t, turns, 1)
	at, ok := turns[0].(*AssistantTurn)
	require.True(t, ok)
	assert.Equal(t, "Hi there", at.Text())
	assert.Empty(t, at.ToolCalls())
	assert.False(t, at.Open())
}

func TestAccumulator_DuplicateToolCallMerge(t *testing.T) {
	acc := NewAccumulator()
	acc.Apply(protocol.ModelStartFrame{})

	call := protocol.ToolCall{ID: "a", Name: "update_document", Args: map[string]interface{}{"documentId": "d1"}}
	d1 := acc.Apply(protocol.ModelCallsFinalFrame{Calls: []protocol.ToolCall{call}})
	assert.Len(t, d1.ToolCalls, 1)

	// Re-announcing the same id must not duplicate or overwrite.
	clobber := protocol.ToolCall{ID: "a", Name: "update_document", Args: map[string]interface{}{"documentId": "other"}}
	d2 := acc.Apply(protocol.ModelCallsFinalFrame{Calls: []protocol.ToolCall{clobber}})
	assert.Empty(t, d2.ToolCalls)

	turns := acc.Turns()
	require.Len(t, turns, 1)
	calls := turns[0].(*AssistantTurn).ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "a", calls[0].ID)
	assert.Equal(t, "d1", calls[0].Args["documentId"])
}

func TestAccumulator_DefensiveOpenTurn(t *testing.T) {
	acc := NewAccumulator()

	// Text delta before model_start still opens an assistant turn.
	d := acc.Apply(protocol.ModelTextDeltaFrame{Text: "hello"})
	assert.Equal(t, "hello", d.Text)
	require.Len(t, d.Turns, 1)

	turns := acc.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, "hello", turns[0].(*AssistantTurn).Text())
}

func TestAccumulator_ToolResultCopiesArgs(t *testing.T) {
	acc := NewAccumulator()
	acc.Apply(protocol.ModelStartFrame{})
	acc.Apply(protocol.ModelCallsFinalFrame{Calls: []protocol.ToolCall{
		{ID: "t1", Name: "update_document", Args: map[string]interface{}{"documentId": "d1"}},
	}})

	d := acc.Apply(protocol.ToolResultsFrame{Results: []protocol.ToolResult{
		{ToolCallID: "t1", Name: "update_document", Content: "ok"},
	}})
	require.Len(t, d.Turns, 1)

	turns := acc.Turns()
	require.Len(t, turns, 2)
	tr, ok := turns[1].(ToolResultTurn)
	require.True(t, ok)
	assert.Equal(t, "t1", tr.ToolCallID)
	assert.Equal(t, "ok", tr.Content)
	assert.Equal(t, "d1", tr.Args["documentId"])
	assert.Empty(t, acc.Issues())
}

func TestAccumulator_DanglingToolReference(t *testing.T) {
	acc := NewAccumulator()
	acc.Apply(protocol.ModelStartFrame{})

	d := acc.Apply(protocol.ToolResultsFrame{Results: []protocol.ToolResult{
		{ToolCallID: "ghost", Name: "update_document", Content: "ok"},
	}})

	// Turn is still appended with empty args; the anomaly is recorded.
	require.Len(t, d.Turns, 1)
	tr := d.Turns[0].(ToolResultTurn)
	assert.Empty(t, tr.Args)

	issues := acc.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, IssueKindDanglingToolReference, issues[0].Kind)
	assert.Equal(t, "ghost", issues[0].ToolCallID)
}

func TestAccumulator_ToolResultFindsEarlierTurn(t *testing.T) {
	acc := NewAccumulator()

	// The call lives in a seeded (closed) assistant turn; the result
	// arrives in the live session and must still resolve its args.
	prior := NewAssistantTurn("working on it", []protocol.ToolCall{
		{ID: "t1", Name: "update_document", Args: map[string]interface{}{"documentId": "d1"}},
	})
	acc.Seed([]Turn{prior})

	d := acc.Apply(protocol.ToolResultsFrame{Results: []protocol.ToolResult{
		{ToolCallID: "t1", Name: "update_document", Content: "done"},
	}})

	require.Len(t, d.Turns, 1)
	tr := d.Turns[0].(ToolResultTurn)
	assert.Equal(t, "d1", tr.Args["documentId"])
	assert.Empty(t, acc.Issues())
}

func TestAccumulator_SeedDoesNotEmitDeltas(t *testing.T) {
	acc := NewAccumulator()
	prior := NewAssistantTurn("earlier answer", nil)
	acc.Seed([]Turn{UserTurn{Text: "earlier question"}, prior})

	turns := acc.Turns()
	require.Len(t, turns, 2)
	assert.False(t, prior.Open())

	// New frames open a fresh turn rather than mutating history.
	acc.Apply(protocol.ModelStartFrame{})
	acc.Apply(protocol.ModelTextDeltaFrame{Text: "new"})
	turns = acc.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, "earlier answer", turns[1].(*AssistantTurn).Text())
	assert.Equal(t, "new", turns[2].(*AssistantTurn).Text())
}

func TestAccumulator_FramesAfterCloseDropped(t *testing.T) {
	acc := NewAccumulator()
	acc.Apply(protocol.ModelStartFrame{})
	acc.Apply(protocol.SessionEndFrame{})

	d := acc.Apply(protocol.ModelTextDeltaFrame{Text: "late"})
	assert.True(t, d.Empty())
	require.Len(t, acc.Turns(), 1)
	assert.Equal(t, "", acc.Turns()[0].(*AssistantTurn).Text())
}

func TestDelta_Empty(t *testing.T) {
	assert.True(t, Delta{}.Empty())
	assert.False(t, Delta{Text: "x"}.Empty())
	assert.False(t, Delta{Final: true}.Empty())
}
