// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikoshell/niko/internal/provider"
)

// fakeProvider scripts a sequence of Generate outcomes and records calls.
type fakeProvider struct {
	generateCalls int
	streamCalls   int

	// results is consumed one entry per Generate call; the last entry
	// repeats once exhausted.
	results []fakeResult

	// streamTokens are delivered on GenerateStream unless streamErr is set.
	streamTokens []string
	streamErr    error
}

type fakeResult struct {
	out string
	err error
}

func (f *fakeProvider) Identifier() string { return "fake" }
func (f *fakeProvider) IsAvailable() bool  { return true }

func (f *fakeProvider) Generate(_ context.Context, _, _ string, _ int) (string, error) {
	i := f.generateCalls
	f.generateCalls++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i].out, f.results[i].err
}

func (f *fakeProvider) GenerateStream(ctx context.Context, system, user string, maxTokens int, onToken func(string)) (string, error) {
	f.streamCalls++
	if f.streamErr != nil {
		return "", f.streamErr
	}
	var acc strings.Builder
	for _, tok := range f.streamTokens {
		onToken(tok)
		acc.WriteString(tok)
	}
	return acc.String(), nil
}

func (f *fakeProvider) ListModels(context.Context) ([]provider.ModelInfo, error) { return nil, nil }

type fakeStatusErr struct{ code int }

func (e fakeStatusErr) Error() string   { return fmt.Sprintf("upstream status %d", e.code) }
func (e fakeStatusErr) StatusCode() int { return e.code }

func testRunner() *Runner {
	return &Runner{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func TestRunWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	p := &fakeProvider{results: []fakeResult{
		{err: errors.New("connection reset by peer")},
		{err: errors.New("request timed out")},
		{out: "recovered"},
	}}

	out, err := testRunner().RunWithRetry(context.Background(), p, Request{MaxTokens: 16})
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, 3, p.generateCalls, "two failures plus the success make exactly 3 attempts")
}

func TestRunWithRetry_TerminalErrorCalledOnce(t *testing.T) {
	terminal := errors.New("invalid api key")
	p := &fakeProvider{results: []fakeResult{{err: terminal}}}

	_, err := testRunner().RunWithRetry(context.Background(), p, Request{})
	require.ErrorIs(t, err, terminal)
	assert.Equal(t, 1, p.generateCalls, "terminal failures must not be retried")
}

func TestRunWithRetry_ExhaustionSurfacesLastFailure(t *testing.T) {
	p := &fakeProvider{results: []fakeResult{
		{err: errors.New("connection refused: first")},
		{err: errors.New("connection refused: second")},
		{err: errors.New("connection refused: third")},
		{err: errors.New("connection refused: last")},
	}}

	_, err := testRunner().RunWithRetry(context.Background(), p, Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "last", "the last observed failure must surface")
	assert.Equal(t, 4, p.generateCalls)
}

func TestRunWithRetry_EmptyResponseRetriedThenNamed(t *testing.T) {
	p := &fakeProvider{results: []fakeResult{{out: "   "}}}

	_, err := testRunner().RunWithRetry(context.Background(), p, Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response after 4 attempts")
	assert.Equal(t, 4, p.generateCalls, "empty successes consume the full retry budget")
}

func TestRunWithRetry_RetryableStatusCodes(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		p := &fakeProvider{results: []fakeResult{
			{err: fakeStatusErr{code: code}},
			{out: "ok"},
		}}
		out, err := testRunner().RunWithRetry(context.Background(), p, Request{})
		require.NoError(t, err, "status %d should be retryable", code)
		assert.Equal(t, "ok", out)
		assert.Equal(t, 2, p.generateCalls)
	}
}

func TestRunWithRetry_TerminalStatusCode(t *testing.T) {
	// 404 carries "resolve"-free text but the structured code decides anyway.
	p := &fakeProvider{results: []fakeResult{{err: fakeStatusErr{code: 404}}}}
	_, err := testRunner().RunWithRetry(context.Background(), p, Request{})
	require.Error(t, err)
	assert.Equal(t, 1, p.generateCalls)
}

func TestRunOnce(t *testing.T) {
	p := &fakeProvider{results: []fakeResult{{out: "  text  "}}}
	out, err := testRunner().RunOnce(context.Background(), p, Request{})
	require.NoError(t, err)
	assert.Equal(t, "text", out)

	p = &fakeProvider{results: []fakeResult{{out: ""}}}
	_, err = testRunner().RunOnce(context.Background(), p, Request{})
	require.Error(t, err)
	assert.Equal(t, 1, p.generateCalls, "RunOnce never retries")
}

func TestRunStreaming_TextEqualsTokenConcatenation(t *testing.T) {
	p := &fakeProvider{streamTokens: []string{"a", "b ", "c"}}

	var delivered strings.Builder
	out, err := testRunner().RunStreaming(context.Background(), p, Request{}, func(tok string) {
		delivered.WriteString(tok)
	})
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(delivered.String()), out)
	assert.Equal(t, 0, p.generateCalls, "no blocking fallback on success")
}

func TestRunStreaming_RetryableFailureFallsBack(t *testing.T) {
	p := &fakeProvider{
		streamErr: errors.New("connection reset by peer"),
		results:   []fakeResult{{out: "from blocking path"}},
	}

	out, err := testRunner().RunStreaming(context.Background(), p, Request{}, func(string) {})
	require.NoError(t, err)
	assert.Equal(t, "from blocking path", out)
	assert.Equal(t, 1, p.streamCalls, "streaming is attempted exactly once")
	assert.Equal(t, 1, p.generateCalls)
}

func TestRunStreaming_TerminalFailureNoFallback(t *testing.T) {
	terminal := errors.New("invalid api key")
	p := &fakeProvider{streamErr: terminal}

	_, err := testRunner().RunStreaming(context.Background(), p, Request{}, func(string) {})
	require.ErrorIs(t, err, terminal)
	assert.Equal(t, 0, p.generateCalls, "terminal stream failures are not downgraded to blocking")
}

func TestIsRetryable(t *testing.T) {
	retryable := []string{
		"connection refused",
		"dial tcp: lookup api.example.com: no such host, dns failure",
		"request timed out",
		"broken pipe",
		"unexpected EOF",
		"rate limit exceeded",
		"too many requests",
		"model is loading, try again",
	}
	for _, msg := range retryable {
		assert.True(t, IsRetryable(errors.New(msg)), "%q should be retryable", msg)
	}

	terminal := []string{
		"invalid api key",
		"model not found",
		"quota exhausted for this billing period",
	}
	for _, msg := range terminal {
		assert.False(t, IsRetryable(errors.New(msg)), "%q should be terminal", msg)
	}

	assert.False(t, IsRetryable(nil))
}

func TestRetryDelay_NeverExceedsCap(t *testing.T) {
	r := NewRunner()
	for attempt := 0; attempt < 10; attempt++ {
		d := r.retryDelay(attempt)
		assert.LessOrEqual(t, d, r.MaxDelay+r.MaxDelay/10, "attempt %d", attempt)
		assert.Positive(t, d)
	}
	// Exponential ramp below the cap: 550ms, 1.1s, 2.2s.
	assert.Equal(t, 550*time.Millisecond, r.retryDelay(0))
	assert.Equal(t, 1100*time.Millisecond, r.retryDelay(1))
	assert.Equal(t, 2200*time.Millisecond, r.retryDelay(2))
}

func TestRunWithRetry_ContextCancelledDuringBackoff(t *testing.T) {
	p := &fakeProvider{results: []fakeResult{{err: errors.New("connection refused")}}}
	r := &Runner{MaxRetries: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := r.RunWithRetry(ctx, p, Request{})
	require.ErrorIs(t, err, context.Canceled)
}
