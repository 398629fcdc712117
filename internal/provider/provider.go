// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package provider implements the backend adapters that talk to LLM
// providers. Every adapter exposes the same capability contract regardless
// of the wire protocol behind it: blocking generation, token-streamed
// generation, availability probing and model listing. Kinds form a closed
// set dispatched through one factory; adding a backend means adding a kind.
package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nikoshell/niko/internal/config"
)

// Provider is the uniform capability contract over one backend.
//
// GenerateStream must return exactly the concatenation, in order, of every
// token passed to onToken. Backends without native incremental delivery may
// satisfy this by forwarding the blocking result to onToken once.
type Provider interface {
	// Identifier returns the configured provider name.
	Identifier() string

	// IsAvailable reports whether the backend is reachable/configured well
	// enough to attempt a request. It never performs generation.
	IsAvailable() bool

	// Generate performs one blocking completion.
	Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)

	// GenerateStream performs one completion, delivering incremental tokens
	// to onToken on the calling flow of control before returning the
	// accumulated text.
	GenerateStream(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, onToken func(string)) (string, error)

	// ListModels fetches the models this backend can serve.
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// ModelInfo describes one model available on a backend.
type ModelInfo struct {
	ID            string
	Name          string
	SizeBytes     int64
	ParamBillions float64
}

// String renders the model with whichever size hint is known.
func (m ModelInfo) String() string {
	if m.SizeBytes > 0 {
		return fmt.Sprintf("%s (%.1f GB)", m.Name, float64(m.SizeBytes)/(1<<30))
	}
	if m.ParamBillions > 0 {
		return fmt.Sprintf("%s (~%.0fB params)", m.Name, m.ParamBillions)
	}
	return m.Name
}

// FromConfig constructs the adapter for a named provider entry. An unknown
// or empty kind is a hard configuration error surfaced before any network
// activity.
func FromConfig(name string, pcfg config.ProviderConfig) (Provider, error) {
	switch pcfg.Kind {
	case "ollama":
		baseURL := pcfg.BaseURL
		if baseURL == "" {
			baseURL = "http://127.0.0.1:11434"
		}
		return NewOllamaAdapter(baseURL, pcfg.Model, pcfg.Options), nil
	case "openai_compat":
		return NewOpenAICompatAdapter(name, pcfg.APIKey, pcfg.BaseURL, pcfg.Model), nil
	case "anthropic":
		baseURL := pcfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.anthropic.com"
		}
		return NewClaudeAdapter(pcfg.APIKey, baseURL, pcfg.Model), nil
	case "":
		return nil, fmt.Errorf("provider %q has no kind set; run 'niko set %s kind <kind>'", name, name)
	default:
		return nil, fmt.Errorf("unknown provider kind %q (supported: ollama, openai_compat, anthropic)", pcfg.Kind)
	}
}

// statusErr carries an upstream HTTP status alongside the response body so
// the execution layer can classify retryability without string matching on
// the code alone.
type statusErr struct {
	code int
	msg  string
}

func (e statusErr) Error() string {
	if e.msg != "" {
		return fmt.Sprintf("status %d: %s", e.code, e.msg)
	}
	return fmt.Sprintf("status %d", e.code)
}

func (e statusErr) StatusCode() int { return e.code }

// EstimateParamBillions guesses a model's parameter count in billions from
// tokens in its name ("qwen2.5-coder:7b" -> 7) or, failing that, from its
// on-disk size assuming Q4-style quantisation.
func EstimateParamBillions(modelName string, sizeBytes int64) float64 {
	lower := strings.ToLower(modelName)
	for _, token := range strings.FieldsFunc(lower, func(r rune) bool {
		return r == ':' || r == '-' || r == '_' || r == '.'
	}) {
		numStr, ok := strings.CutSuffix(token, "b")
		if !ok {
			continue
		}
		if n, err := strconv.ParseFloat(numStr, 64); err == nil {
			return n
		}
	}
	if sizeBytes > 0 {
		return float64(sizeBytes) / (0.5 * 1e9)
	}
	return 0
}

const defaultHTTPTimeout = 5 * time.Minute

// truncationReason reports whether a finish/stop reason means the backend
// hit its output-length cap. Truncation is a warning, never an error.
func truncationReason(reason string) bool {
	return reason == "length" || reason == "max_tokens"
}
