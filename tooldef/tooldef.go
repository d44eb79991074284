// Package tooldef declares the tools the model may invoke during a
// session, with JSON schemas generated from Go structs so the schema
// and the parsing code can never drift apart.
package tooldef

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// ToolNameUpdateDocument is the tool the model calls to propose a
// document edit. Its results carry the update payload the session
// coordinator routes to the patch engine.
const ToolNameUpdateDocument = "update_document"

// UpdateDocumentParams is the argument shape of the update_document tool.
type UpdateDocumentParams struct {
	UpdateType   string `json:"updateType" jsonschema:"required,enum=exact_block_replace,enum=search_replace,enum=range_replace,description=Kind of edit to perform"`
	DocumentID   string `json:"documentId" jsonschema:"required,description=Identifier of the document being edited"`
	SearchBlock  string `json:"searchBlock,omitempty" jsonschema:"description=Verbatim block to locate (exact_block_replace)"`
	ReplaceBlock string `json:"replaceBlock,omitempty" jsonschema:"description=Replacement for the located block (exact_block_replace)"`
	SearchText   string `json:"searchText,omitempty" jsonschema:"description=Literal text to search for (search_replace)"`
	ReplaceText  string `json:"replaceText,omitempty" jsonschema:"description=Replacement text (search_replace and range_replace)"`
	StartOffset  int    `json:"startOffset,omitempty" jsonschema:"description=Start character offset (range_replace)"`
	EndOffset    int    `json:"endOffset,omitempty" jsonschema:"description=End character offset exclusive (range_replace)"`
}

// Definition describes one tool for registration with the model provider.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// UpdateDocumentTool returns the update_document tool definition.
func UpdateDocumentTool() Definition {
	return Definition{
		Name: ToolNameUpdateDocument,
		Description: "Propose an edit to the current document. Use exact_block_replace for " +
			"multi-line rewrites, search_replace for textual substitutions, and " +
			"range_replace for character-offset edits.",
		InputSchema: generateSchema[UpdateDocumentParams](),
	}
}

// generateSchema uses reflection to create a JSON schema from a Go
// struct type, honoring jsonschema struct tags.
func generateSchema[T any]() json.RawMessage {
	reflector := &jsonschema.Reflector{
		DoNotReference: true, // Inline all definitions instead of using $ref
		ExpandedStruct: true, // Don't use $ref for struct types
	}

	var zero T
	schema := reflector.Reflect(zero)

	bytes, err := json.Marshal(schema)
	if err != nil {
		// Unreachable for well-formed struct types.
		panic(fmt.Sprintf("failed to generate schema for type %T: %v", zero, err))
	}

	return json.RawMessage(bytes)
}
