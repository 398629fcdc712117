// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package runtime is the resilient request-execution layer between callers
// and backend adapters. It adds failure classification, bounded exponential
// backoff retry, and a streaming policy that falls back to the blocking path
// when a stream dies before producing anything useful.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nikoshell/niko/internal/provider"
)

// Request carries one generation request through the execution layer.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
}

// Runner executes requests against a Provider with retry and backoff.
// The zero value is not usable; construct with NewRunner.
type Runner struct {
	// MaxRetries bounds retry attempts after the first try.
	MaxRetries int
	// BaseDelay is the wait before the first retry; it doubles per attempt.
	BaseDelay time.Duration
	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration
}

// NewRunner returns a Runner with the production retry schedule:
// up to 3 retries, 500ms base delay doubling to an 8s cap.
func NewRunner() *Runner {
	return &Runner{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   8 * time.Second,
	}
}

// retryableStatus holds the server-side transient status codes.
var retryableStatus = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// retryableSignatures are the message fragments that mark a failure as
// transient when no structured status is attached.
var retryableSignatures = []string{
	"connection",
	"timeout",
	"timed out",
	"reset by peer",
	"broken pipe",
	"eof",
	"dns",
	"resolve",
	"rate limit",
	"too many requests",
	"model is loading",
	"model loading",
	"429",
	"500",
	"502",
	"503",
	"504",
}

// statusCoder is implemented by adapter errors that carry the upstream
// HTTP status.
type statusCoder interface {
	StatusCode() int
}

// IsRetryable classifies a failure as transient. Errors carrying an HTTP
// status are classified by code; everything else by textual signature.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		return retryableStatus[sc.StatusCode()]
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range retryableSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// retryDelay computes the wait before retry attempt k (0-indexed):
// min(base * 2^k, cap) plus 10% jitter.
func (r *Runner) retryDelay(attempt int) time.Duration {
	delay := r.BaseDelay << attempt
	if delay > r.MaxDelay || delay <= 0 {
		delay = r.MaxDelay
	}
	return delay + delay/10
}

// RunOnce performs a single attempt with no retry. A syntactically
// successful call with an empty trimmed payload fails.
func (r *Runner) RunOnce(ctx context.Context, p provider.Provider, req Request) (string, error) {
	out, err := p.Generate(ctx, req.SystemPrompt, req.UserPrompt, req.MaxTokens)
	if err != nil {
		return "", err
	}
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return "", fmt.Errorf("%s returned empty response", p.Identifier())
	}
	return trimmed, nil
}

// RunWithRetry performs up to 1+MaxRetries blocking attempts. Retryable
// failures and empty payloads wait out the backoff schedule; terminal
// failures return immediately. Exhaustion surfaces the last observed
// failure, or a dedicated empty-response error when every attempt "succeeded"
// with nothing in it.
func (r *Runner) RunWithRetry(ctx context.Context, p provider.Provider, req Request) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		out, err := p.Generate(ctx, req.SystemPrompt, req.UserPrompt, req.MaxTokens)
		if err == nil {
			trimmed := strings.TrimSpace(out)
			if trimmed != "" {
				return trimmed, nil
			}
			if attempt < r.MaxRetries {
				delay := r.retryDelay(attempt)
				log.Warnf("empty response from %s, retrying in %.1fs (%d/%d)", p.Identifier(), delay.Seconds(), attempt+1, r.MaxRetries)
				if err := r.sleep(ctx, delay); err != nil {
					return "", err
				}
				continue
			}
			return "", fmt.Errorf("%s returned empty response after %d attempts", p.Identifier(), r.MaxRetries+1)
		}

		if attempt < r.MaxRetries && IsRetryable(err) {
			delay := r.retryDelay(attempt)
			log.Warnf("%s, retrying in %.1fs (%d/%d)", summarizeError(err), delay.Seconds(), attempt+1, r.MaxRetries)
			lastErr = err
			if err := r.sleep(ctx, delay); err != nil {
				return "", err
			}
			continue
		}
		return "", err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("all retry attempts exhausted")
	}
	return "", lastErr
}

// RunStreaming attempts the provider's native streaming path once. When the
// attempt fails with a retryable classification it falls back to the
// blocking retry path; terminal failures propagate untouched. The returned
// text is always non-empty trimmed output, whichever path produced it.
func (r *Runner) RunStreaming(ctx context.Context, p provider.Provider, req Request, onToken func(string)) (string, error) {
	if onToken == nil {
		onToken = func(string) {}
	}
	out, err := p.GenerateStream(ctx, req.SystemPrompt, req.UserPrompt, req.MaxTokens, onToken)
	if err != nil {
		if IsRetryable(err) {
			log.Warnf("stream failed (%s), falling back to blocking path", summarizeError(err))
			return r.RunWithRetry(ctx, p, req)
		}
		return "", err
	}

	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return "", fmt.Errorf("%s returned empty response", p.Identifier())
	}
	return trimmed, nil
}

// sleep blocks the calling flow for the backoff delay, aborting early when
// the context is cancelled.
func (r *Runner) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// summarizeError shortens long upstream errors for log lines.
func summarizeError(err error) string {
	msg := err.Error()
	if len(msg) > 80 {
		msg = msg[:77] + "..."
	}
	return msg
}
