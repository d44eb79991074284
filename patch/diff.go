package patch

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineKind classifies one line of a diff preview.
type LineKind string

const (
	LineContext LineKind = "context"
	LineAdded   LineKind = "added"
	LineRemoved LineKind = "removed"
)

// Line is a single line of a diff preview. Line numbers are 1-based;
// OldLine is zero for added lines and NewLine is zero for removed ones.
type Line struct {
	Kind    LineKind `json:"kind"`
	Text    string   `json:"text"`
	OldLine int      `json:"old_line,omitempty"`
	NewLine int      `json:"new_line,omitempty"`
}

// Hunk groups a contiguous run of changed lines with surrounding context.
type Hunk struct {
	Lines []Line `json:"lines"`
}

// contextLines is the number of unchanged lines kept on each side of a
// change when grouping hunks.
const contextLines = 2

// Preview computes a line-level diff between two document versions,
// suitable for showing a proposed or applied patch in the UI.
func Preview(before, after string) []Hunk {
	if before == after {
		return nil
	}

	dmp := diffmatchpatch.New()
	beforeChars, afterChars, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(beforeChars, afterChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	lines := flattenDiffs(diffs)
	return groupHunks(lines)
}

func flattenDiffs(diffs []diffmatchpatch.Diff) []Line {
	var lines []Line
	oldLine, newLine := 1, 1
	for _, d := range diffs {
		chunk := strings.Split(d.Text, "\n")
		if len(chunk) > 0 && chunk[len(chunk)-1] == "" {
			chunk = chunk[:len(chunk)-1]
		}
		for _, text := range chunk {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				lines = append(lines, Line{Kind: LineContext, Text: text, OldLine: oldLine, NewLine: newLine})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				lines = append(lines, Line{Kind: LineRemoved, Text: text, OldLine: oldLine})
				oldLine++
			case diffmatchpatch.DiffInsert:
				lines = append(lines, Line{Kind: LineAdded, Text: text, NewLine: newLine})
				newLine++
			}
		}
	}
	return lines
}

// groupHunks splits the flat line list into hunks, keeping at most
// contextLines unchanged lines on either side of each changed run.
// Changed runs whose context windows touch are merged into one hunk.
func groupHunks(lines []Line) []Hunk {
	type span struct{ start, end int } // [start, end)
	var spans []span
	for i, line := range lines {
		if line.Kind == LineContext {
			continue
		}
		start := i - contextLines
		if start < 0 {
			start = 0
		}
		end := i + contextLines + 1
		if end > len(lines) {
			end = len(lines)
		}
		if n := len(spans); n > 0 && start <= spans[n-1].end {
			spans[n-1].end = end
		} else {
			spans = append(spans, span{start: start, end: end})
		}
	}

	hunks := make([]Hunk, 0, len(spans))
	for _, sp := range spans {
		hunk := Hunk{Lines: make([]Line, sp.end-sp.start)}
		copy(hunk.Lines, lines[sp.start:sp.end])
		hunks = append(hunks, hunk)
	}
	return hunks
}
