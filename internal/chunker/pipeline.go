// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chunker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/nikoshell/niko/internal/budget"
	"github.com/nikoshell/niko/internal/provider"
	"github.com/nikoshell/niko/internal/runtime"
)

// SegmentResult pairs a segment's line range with its explanation.
type SegmentResult struct {
	StartLine   int
	EndLine     int
	Explanation string
}

// Result is the outcome of explaining one input end to end. When Explain
// returns an error mid-run, Result still carries every segment explained so
// far, so the caller can show partial progress instead of discarding it.
type Result struct {
	TotalLines        int
	TotalSegments     int
	SegmentResults    []SegmentResult
	Summary           string
	FollowUpQuestions []string
	Elapsed           time.Duration
}

// Options tunes one Explain run.
type Options struct {
	// Stream requests token streaming for segment explanations. Synthesis
	// is always a blocking request regardless.
	Stream bool

	// OnSegmentStart, when set, fires before each segment request.
	OnSegmentStart func(index, total int, seg Segment)

	// OnToken receives streamed tokens when Stream is set and the backend
	// streams natively.
	OnToken func(token string)
}

// Pipeline runs the segment, synthesis, and follow-up requests for large
// inputs through a shared retry runner.
type Pipeline struct {
	Runner    *runtime.Runner
	Estimator *budget.Estimator
}

// NewPipeline returns a Pipeline on a default runner.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Runner:    runtime.NewRunner(),
		Estimator: budget.NewEstimator(),
	}
}

// Explain splits code, explains every segment in order, and synthesizes the
// results into a unified summary with follow-up questions. Segments are
// processed sequentially; a failed segment aborts the run and the partial
// Result is returned alongside the error.
func (pl *Pipeline) Explain(ctx context.Context, p provider.Provider, code string, opts Options) (*Result, error) {
	start := time.Now()
	reqID := uuid.NewString()[:8]
	logger := log.WithFields(log.Fields{"request_id": reqID, "provider": p.Identifier()})

	segments := Split(code)
	res := &Result{
		TotalLines:    len(splitLines(code)),
		TotalSegments: len(segments),
	}
	if len(segments) == 0 {
		res.Elapsed = time.Since(start)
		return res, nil
	}

	logger.Infof("explaining %d lines in %d segment(s)", res.TotalLines, res.TotalSegments)
	if pl.Estimator != nil && log.IsLevelEnabled(log.DebugLevel) {
		logger.Debugf("input is roughly %d tokens", pl.Estimator.Estimate(code))
	}

	for i, seg := range segments {
		if opts.OnSegmentStart != nil {
			opts.OnSegmentStart(i+1, len(segments), seg)
		}
		logger.Debugf("segment %d/%d: lines %d-%d", i+1, len(segments), seg.StartLine, seg.EndLine)

		req := runtime.Request{
			SystemPrompt: segmentSystemPrompt(i+1, len(segments)),
			UserPrompt:   segmentUserPrompt(seg),
		}
		if len(segments) == 1 {
			req.SystemPrompt = singleSystemPrompt
			req.UserPrompt = singleUserPrompt(seg)
		}
		// A short segment does not need the full response budget.
		req.MaxTokens = pl.Estimator.Budget(req.UserPrompt, budget.MinResponseTokens, budget.SegmentTokens)

		var text string
		var err error
		if opts.Stream {
			text, err = pl.Runner.RunStreaming(ctx, p, req, opts.OnToken)
		} else {
			text, err = pl.Runner.RunWithRetry(ctx, p, req)
		}
		if err != nil {
			res.Elapsed = time.Since(start)
			return res, fmt.Errorf("segment %d/%d (lines %d-%d): %w",
				i+1, len(segments), seg.StartLine, seg.EndLine, err)
		}

		res.SegmentResults = append(res.SegmentResults, SegmentResult{
			StartLine:   seg.StartLine,
			EndLine:     seg.EndLine,
			Explanation: text,
		})
	}

	if len(segments) == 1 {
		// A single segment already is the whole explanation; only the
		// follow-up questions need another request.
		res.Summary = res.SegmentResults[0].Explanation
		followUps, err := pl.Runner.RunWithRetry(ctx, p, runtime.Request{
			SystemPrompt: followUpSystemPrompt,
			UserPrompt:   res.Summary,
			MaxTokens:    budget.FollowUpTokens,
		})
		if err != nil {
			res.Elapsed = time.Since(start)
			return res, fmt.Errorf("follow-up questions: %w", err)
		}
		res.FollowUpQuestions = parseFollowUps(followUps)
		res.Elapsed = time.Since(start)
		return res, nil
	}

	logger.Debugf("synthesizing %d segment results", len(res.SegmentResults))
	synthUser := synthesisUserPrompt(res.TotalLines, res.SegmentResults)
	raw, err := pl.Runner.RunWithRetry(ctx, p, runtime.Request{
		SystemPrompt: synthesisSystemPrompt,
		UserPrompt:   synthUser,
		MaxTokens:    pl.Estimator.Budget(synthUser, budget.FollowUpTokens, budget.SynthesisTokens),
	})
	if err != nil {
		res.Elapsed = time.Since(start)
		return res, fmt.Errorf("synthesis: %w", err)
	}

	res.Summary, res.FollowUpQuestions = parseSynthesis(raw)
	res.Elapsed = time.Since(start)
	logger.Infof("explained %d lines in %s", res.TotalLines, res.Elapsed.Round(time.Millisecond))
	return res, nil
}
