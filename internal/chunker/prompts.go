// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chunker

import (
	"fmt"
	"strings"
)

// segmentSystemPrompt frames one segment request. It is parameterized by the
// segment's position so the backend knows it is seeing part of a larger
// whole and should not invent a global conclusion.
func segmentSystemPrompt(index, total int) string {
	return fmt.Sprintf(`You are a senior engineer explaining code to a colleague.
You are looking at part %d of %d of a larger input. Explain what this part
does: its purpose, key logic, and anything notable or risky. Be concise and
concrete. Do not summarize the whole program; other parts are handled
separately.`, index, total)
}

// segmentUserPrompt renders the segment payload. The continuity context, when
// present, is clearly delimited so the backend can read it without analyzing it.
func segmentUserPrompt(seg Segment) string {
	var b strings.Builder
	if seg.ContextPrefix != "" {
		b.WriteString("--- context from the previous part (for continuity only, do not analyze) ---\n")
		b.WriteString(seg.ContextPrefix)
		b.WriteString("\n--- end context ---\n\n")
	}
	fmt.Fprintf(&b, "Lines %d-%d:\n\n```\n%s\n```", seg.StartLine, seg.EndLine, seg.Content)
	return b.String()
}

const synthesisSystemPrompt = `You are a senior engineer. You are given
per-part explanations of a single larger input, in order. Produce one unified
explanation of the whole.

Respond in exactly this format:

## Summary
<a cohesive summary of what the entire input does, how the parts fit
together, and anything notable or risky>

## Follow-up
1. <a question the reader is likely to ask next>
2. <another question>
3. <another question>

Give between 3 and 5 follow-up questions. Do not add other sections.`

// synthesisUserPrompt concatenates every segment explanation, labeled by its
// line range, into the synthesis payload, prefixed with the totals so the
// backend knows the full extent of what it is summarizing.
func synthesisUserPrompt(totalLines int, results []SegmentResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The input has %d total lines, explained in %d parts:\n\n",
		totalLines, len(results))
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Part %d (lines %d-%d):\n%s", i+1, r.StartLine, r.EndLine, r.Explanation)
	}
	return b.String()
}

const singleSystemPrompt = `You are a senior engineer explaining code to a
colleague. Explain what this input does: its purpose, key logic, and anything
notable or risky. Be concise and concrete.`

func singleUserPrompt(seg Segment) string {
	return fmt.Sprintf("Lines %d-%d:\n\n```\n%s\n```", seg.StartLine, seg.EndLine, seg.Content)
}

const followUpSystemPrompt = `You are a senior engineer. You are given an
explanation of some code. Suggest the questions the reader is most likely to
ask next.

Respond with a numbered list only:

1. <question>
2. <question>
3. <question>

Give between 3 and 5 questions. No other text.`
