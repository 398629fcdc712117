// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package budget estimates token counts for prompt sizing. It prefers the
// tiktoken cl100k encoding and falls back to a word-count approximation when
// the encoder cannot be constructed.
package budget

import (
	"github.com/tiktoken-go/tokenizer"
)

// Default output-token budgets per request kind.
const (
	// SegmentTokens is the per-segment explanation cap.
	SegmentTokens = 1024
	// SynthesisTokens caps the combined summary pass.
	SynthesisTokens = 2048
	// FollowUpTokens covers the cheap questions-only pass.
	FollowUpTokens = 512
	// CommandTokens covers single-command generation.
	CommandTokens = 256
	// MinResponseTokens is the floor below which a sized budget never drops.
	MinResponseTokens = 256
)

// Estimator counts tokens in text content.
type Estimator struct {
	codec tokenizer.Codec
}

// NewEstimator returns an Estimator backed by the cl100k tokenizer, or the
// word-count approximation when the encoding is unavailable.
func NewEstimator() *Estimator {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return &Estimator{}
	}
	return &Estimator{codec: codec}
}

// Estimate returns the token count for content. Exact with the tokenizer;
// otherwise words * 1.3, the usual subword ratio.
func (e *Estimator) Estimate(content string) int {
	if content == "" {
		return 0
	}
	if e.codec != nil {
		if ids, _, err := e.codec.Encode(content); err == nil {
			return len(ids)
		}
	}
	return simpleEstimate(content)
}

// Budget sizes an output budget from the estimated size of the input:
// roughly one output token per input token, clamped to [floor, limit]. A
// nil Estimator yields the limit.
func (e *Estimator) Budget(content string, floor, limit int) int {
	if e == nil {
		return limit
	}
	n := e.Estimate(content)
	if n < floor {
		return floor
	}
	if n > limit {
		return limit
	}
	return n
}

// simpleEstimate approximates tokens as words * 1.3.
func simpleEstimate(content string) int {
	words := countWords(content)
	return int(float64(words) * 1.3)
}

func countWords(content string) int {
	count := 0
	inWord := false
	for _, r := range content {
		isSpace := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if isSpace {
			inWord = false
		} else if !inWord {
			count++
			inWord = true
		}
	}
	return count
}
