package protocol

import (
	"encoding/json"
	"fmt"
)

// UpdateType discriminates between document update kinds.
type UpdateType string

const (
	UpdateTypeExactBlockReplace UpdateType = "exact_block_replace"
	UpdateTypeSearchReplace     UpdateType = "search_replace"
	UpdateTypeRangeReplace      UpdateType = "range_replace"
)

// UpdateRequest is the document-update payload produced by the model's
// update_document tool. Exactly one variant's fields are populated,
// selected by UpdateType.
type UpdateRequest struct {
	UpdateType UpdateType `json:"updateType"`
	DocumentID string     `json:"documentId"`

	// exact_block_replace
	SearchBlock  string `json:"searchBlock,omitempty"`
	ReplaceBlock string `json:"replaceBlock,omitempty"`

	// search_replace
	SearchText  string `json:"searchText,omitempty"`
	ReplaceText string `json:"replaceText,omitempty"`
	MatchAll    *bool  `json:"matchAll,omitempty"`

	// range_replace (shares ReplaceText)
	StartOffset int `json:"startOffset,omitempty"`
	EndOffset   int `json:"endOffset,omitempty"`
}

// UpdateError is the structured failure half of an UpdateResponse.
type UpdateError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// UpdateResponse reports the outcome of applying one UpdateRequest.
type UpdateResponse struct {
	RequestID  string       `json:"requestId"`
	DocumentID string       `json:"documentId"`
	UpdateType UpdateType   `json:"updateType"`
	Success    bool         `json:"success"`
	NewText    string       `json:"newText,omitempty"`
	Error      *UpdateError `json:"error,omitempty"`
}

// ParseUpdateRequest parses and validates a document-update payload.
// Payloads whose updateType is outside the closed set are rejected —
// the shape is validated at the boundary, never trusted downstream.
func ParseUpdateRequest(data []byte) (UpdateRequest, error) {
	var req UpdateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return UpdateRequest{}, fmt.Errorf("parse update request: %w", err)
	}

	switch req.UpdateType {
	case UpdateTypeExactBlockReplace, UpdateTypeSearchReplace, UpdateTypeRangeReplace:
		return req, nil
	default:
		return UpdateRequest{}, fmt.Errorf("unknown updateType %q", req.UpdateType)
	}
}

// IsUpdatePayload reports whether data looks like an UpdateRequest,
// i.e. a JSON object carrying an updateType field. Tool results that
// are plain text or unrelated JSON return false.
func IsUpdatePayload(data []byte) bool {
	var probe struct {
		UpdateType *string `json:"updateType"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	return probe.UpdateType != nil
}
