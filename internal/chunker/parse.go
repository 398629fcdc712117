// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chunker

import "strings"

// parseSynthesis extracts the summary and follow-up questions from a
// synthesis response. Backends deviate from the requested format often
// enough that this is lenient: it accepts both markdown headings and bold
// labels, and when no summary section is found the entire raw response
// becomes the summary so nothing the backend said is lost.
func parseSynthesis(raw string) (summary string, followUps []string) {
	var summaryLines []string
	section := ""

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case isSummaryHeading(trimmed):
			section = "summary"
			continue
		case isFollowUpHeading(trimmed):
			section = "followup"
			continue
		}

		switch section {
		case "summary":
			summaryLines = append(summaryLines, line)
		case "followup":
			if q, ok := parseNumberedLine(trimmed); ok {
				followUps = append(followUps, q)
			}
		}
	}

	summary = strings.TrimSpace(strings.Join(summaryLines, "\n"))
	if summary == "" {
		summary = strings.TrimSpace(raw)
	}
	return summary, followUps
}

// isHeadingLine accepts markdown "##"/"#" headings and "**label**" bold
// labels.
func isHeadingLine(line string) bool {
	return strings.HasPrefix(line, "#") || strings.HasPrefix(line, "**")
}

func isSummaryHeading(line string) bool {
	return isHeadingLine(line) && strings.Contains(line, "Summary")
}

func isFollowUpHeading(line string) bool {
	return isHeadingLine(line) &&
		(strings.Contains(line, "Follow-up") || strings.Contains(line, "Questions"))
}

// parseNumberedLine recognizes "1. question" through "5. question" and
// returns the question text.
func parseNumberedLine(line string) (string, bool) {
	if len(line) < 2 || line[0] < '1' || line[0] > '5' || line[1] != '.' {
		return "", false
	}
	q := strings.TrimSpace(line[2:])
	return q, q != ""
}

// parseFollowUps reads a bare numbered list, used for the single-segment
// follow-up request.
func parseFollowUps(raw string) []string {
	var qs []string
	for _, line := range strings.Split(raw, "\n") {
		if q, ok := parseNumberedLine(strings.TrimSpace(line)); ok {
			qs = append(qs, q)
		}
	}
	return qs
}
