// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package chunker splits large inputs into boundary-aware segments, drives
// per-segment requests through the execution layer, and synthesizes all
// segment results into one unified explanation.
package chunker

import "strings"

const (
	// MaxSegmentLines caps the lines carried by one segment.
	MaxSegmentLines = 200

	// boundarySearchWindow is how far back from a provisional segment end
	// the splitter looks for a semantically likely break.
	boundarySearchWindow = 30

	// OverlapLines is the length of the continuity context attached to
	// every segment after the first.
	OverlapLines = 15
)

// Segment is a bounded, non-overlapping slice of the input, the unit of
// independent backend processing. Line numbers are 1-based and inclusive.
// ContextPrefix is a delimited excerpt of the lines immediately preceding
// StartLine, carried for continuity only; it never overlaps Content ranges.
type Segment struct {
	StartLine     int
	EndLine       int
	Content       string
	ContextPrefix string
}

// declPrefixes marks lines that open a new top-level declaration across the
// languages niko commonly explains. A break lands just before such a line.
var declPrefixes = []string{
	"fn ",
	"pub fn ",
	"pub(crate) fn ",
	"def ",
	"func ",
	"class ",
	"function ",
	"const ",
	"let ",
	"var ",
	"type ",
	"struct ",
	"impl ",
	"trait ",
	"interface ",
	"package ",
	"module ",
	"export ",
}

// closingTokens are lines that, alone, end a block; a break lands just
// after them.
func isClosingToken(line string) bool {
	return line == "}" || line == "};" || line == "end"
}

func isDeclStart(line string) bool {
	for _, p := range declPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// splitLines normalizes code into lines the way terminals show them: a
// single trailing newline does not create a phantom empty last line.
func splitLines(code string) []string {
	if code == "" {
		return nil
	}
	code = strings.TrimSuffix(code, "\n")
	if code == "" {
		return nil
	}
	return strings.Split(code, "\n")
}

// Split carves code into segments of at most MaxSegmentLines lines,
// preferring semantically likely boundaries. Segments cover the whole input
// contiguously with no gaps or overlaps; every segment after the first
// carries a ContextPrefix of up to OverlapLines preceding lines.
//
// Splitting is deterministic: the same input always yields the same
// boundaries.
func Split(code string) []Segment {
	lines := splitLines(code)
	total := len(lines)
	if total == 0 {
		return nil
	}

	if total <= MaxSegmentLines {
		return []Segment{{
			StartLine: 1,
			EndLine:   total,
			Content:   strings.Join(lines, "\n"),
		}}
	}

	var segments []Segment
	start := 0
	for start < total {
		end := min(start+MaxSegmentLines, total)

		if end < total {
			end = findBreak(lines, start, end)
		}
		// Guarantee forward progress whatever the search found.
		if end <= start {
			end = min(start+MaxSegmentLines, total)
		}

		seg := Segment{
			StartLine: start + 1,
			EndLine:   end,
			Content:   strings.Join(lines[start:end], "\n"),
		}
		if start > 0 {
			ctxStart := max(start-OverlapLines, 0)
			seg.ContextPrefix = strings.Join(lines[ctxStart:start], "\n")
		}
		segments = append(segments, seg)
		start = end
	}
	return segments
}

// findBreak searches backward from the provisional end, within the last
// boundarySearchWindow lines, for the best break point in priority order:
// blank line (break after), closing-block token (break after), top-level
// declaration opener (break before). Falls back to the provisional end.
func findBreak(lines []string, start, end int) int {
	searchStart := max(end-boundarySearchWindow, start)
	for i := end - 1; i >= searchStart; i-- {
		line := strings.TrimSpace(lines[i])

		if line == "" {
			return i + 1
		}
		if isClosingToken(line) {
			return i + 1
		}
		if isDeclStart(line) {
			return i
		}
	}
	return end
}
