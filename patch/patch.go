// Package patch applies document-update requests to a text snapshot.
// Application is a pure function: it either returns the full new text
// or a structured error with the original text untouched — never a
// partial result.
package patch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/quillflow/agent-core/protocol"
)

// ErrorKind discriminates between patch validation failures.
type ErrorKind string

const (
	KindBlockNotFound    ErrorKind = "block_not_found"
	KindTextNotFound     ErrorKind = "text_not_found"
	KindRangeOutOfBounds ErrorKind = "range_out_of_bounds"
)

// Error is a patch validation failure surfaced to the caller as a
// structured result.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// AsError unwraps a patch *Error from err.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// Request is the interface for all patch request variants.
type Request interface {
	Type() protocol.UpdateType
}

// ExactBlockReplace replaces the first verbatim occurrence of
// SearchBlock. Multiple identical blocks are deliberately ambiguous:
// the engine always takes the first match and never guesses intent.
type ExactBlockReplace struct {
	SearchBlock  string
	ReplaceBlock string
}

// Type returns the update type.
func (ExactBlockReplace) Type() protocol.UpdateType { return protocol.UpdateTypeExactBlockReplace }

// SearchReplace is a literal (not regex) substring replacement. With
// MatchAll set, every occurrence is replaced, subject to the heading
// collision heuristic; otherwise only the first.
type SearchReplace struct {
	SearchText  string
	ReplaceText string
	MatchAll    bool
}

// Type returns the update type.
func (SearchReplace) Type() protocol.UpdateType { return protocol.UpdateTypeSearchReplace }

// RangeReplace splices ReplaceText into [StartOffset, EndOffset).
// Offsets index the snapshot supplied at request time, not any live
// editor model.
type RangeReplace struct {
	StartOffset int
	EndOffset   int
	ReplaceText string
}

// Type returns the update type.
func (RangeReplace) Type() protocol.UpdateType { return protocol.UpdateTypeRangeReplace }

// FromUpdateRequest converts a validated wire payload into a Request.
// The wire matchAll flag defaults to true when absent.
func FromUpdateRequest(req protocol.UpdateRequest) (Request, error) {
	switch req.UpdateType {
	case protocol.UpdateTypeExactBlockReplace:
		if req.SearchBlock == "" {
			return nil, fmt.Errorf("exact_block_replace: searchBlock is required")
		}
		return ExactBlockReplace{SearchBlock: req.SearchBlock, ReplaceBlock: req.ReplaceBlock}, nil
	case protocol.UpdateTypeSearchReplace:
		if req.SearchText == "" {
			return nil, fmt.Errorf("search_replace: searchText is required")
		}
		matchAll := true
		if req.MatchAll != nil {
			matchAll = *req.MatchAll
		}
		return SearchReplace{SearchText: req.SearchText, ReplaceText: req.ReplaceText, MatchAll: matchAll}, nil
	case protocol.UpdateTypeRangeReplace:
		return RangeReplace{StartOffset: req.StartOffset, EndOffset: req.EndOffset, ReplaceText: req.ReplaceText}, nil
	default:
		return nil, fmt.Errorf("unknown update type %q", req.UpdateType)
	}
}

// Apply evaluates req against current and returns the new text.
// Deterministic for identical inputs; current is never mutated.
func Apply(current string, req Request) (string, error) {
	switch r := req.(type) {
	case ExactBlockReplace:
		return applyExactBlock(current, r)
	case SearchReplace:
		return applySearchReplace(current, r)
	case RangeReplace:
		return applyRangeReplace(current, r)
	default:
		return "", fmt.Errorf("unsupported request type %T", req)
	}
}

func applyExactBlock(current string, r ExactBlockReplace) (string, error) {
	idx := strings.Index(current, r.SearchBlock)
	if idx < 0 {
		return "", &Error{
			Kind:    KindBlockNotFound,
			Message: fmt.Sprintf("search block (%d chars) not found in document", len(r.SearchBlock)),
		}
	}
	// First occurrence only, exact, case- and whitespace-sensitive.
	return current[:idx] + r.ReplaceBlock + current[idx+len(r.SearchBlock):], nil
}

func applySearchReplace(current string, r SearchReplace) (string, error) {
	matches := matchOffsets(current, r.SearchText)
	if len(matches) == 0 {
		return "", &Error{
			Kind:    KindTextNotFound,
			Message: fmt.Sprintf("search text %q not found in document", r.SearchText),
		}
	}

	// Heading collision heuristic: deleting a markdown heading that
	// appears more than once keeps the first occurrence and removes
	// only the duplicates. Deleting every section that shares a
	// heading is almost never what the caller meant.
	if isMarkdownHeading(r.SearchText) && len(matches) > 1 && r.ReplaceText == "" {
		return replaceAt(current, r.SearchText, r.ReplaceText, matches[1:]), nil
	}

	if !r.MatchAll {
		return replaceAt(current, r.SearchText, r.ReplaceText, matches[:1]), nil
	}
	return strings.ReplaceAll(current, r.SearchText, r.ReplaceText), nil
}

func applyRangeReplace(current string, r RangeReplace) (string, error) {
	if r.StartOffset < 0 || r.StartOffset > r.EndOffset || r.EndOffset > len(current) {
		return "", &Error{
			Kind:    KindRangeOutOfBounds,
			Message: fmt.Sprintf("range [%d, %d) invalid for document of %d chars", r.StartOffset, r.EndOffset, len(current)),
		}
	}
	return current[:r.StartOffset] + r.ReplaceText + current[r.EndOffset:], nil
}

// matchOffsets collects the start offsets of all non-overlapping
// occurrences of search in s.
func matchOffsets(s, search string) []int {
	if search == "" {
		return nil
	}
	var offsets []int
	from := 0
	for {
		idx := strings.Index(s[from:], search)
		if idx < 0 {
			return offsets
		}
		offsets = append(offsets, from+idx)
		from += idx + len(search)
	}
}

// replaceAt replaces occurrences of search starting at the given
// offsets, which must be ascending match offsets in s.
func replaceAt(s, search, replace string, offsets []int) string {
	var b strings.Builder
	b.Grow(len(s))
	prev := 0
	for _, off := range offsets {
		b.WriteString(s[prev:off])
		b.WriteString(replace)
		prev = off + len(search)
	}
	b.WriteString(s[prev:])
	return b.String()
}

// isMarkdownHeading reports whether s is a markdown heading: one or
// more '#' characters followed by whitespace.
func isMarkdownHeading(s string) bool {
	i := 0
	for i < len(s) && s[i] == '#' {
		i++
	}
	if i == 0 || i >= len(s) {
		return false
	}
	return s[i] == ' ' || s[i] == '\t'
}
