// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package provider

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikoshell/niko/internal/config"
)

func TestFromConfig_Kinds(t *testing.T) {
	cases := []struct {
		kind string
		want string
	}{
		{"ollama", "ollama"},
		{"openai_compat", "myprovider"},
		{"anthropic", "claude"},
	}
	for _, tc := range cases {
		p, err := FromConfig("myprovider", config.ProviderConfig{Kind: tc.kind, Model: "m"})
		require.NoError(t, err, "kind %s", tc.kind)
		assert.Equal(t, tc.want, p.Identifier())
	}
}

func TestFromConfig_EmptyKind(t *testing.T) {
	_, err := FromConfig("broken", config.ProviderConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no kind set")
}

func TestFromConfig_UnknownKind(t *testing.T) {
	_, err := FromConfig("broken", config.ProviderConfig{Kind: "carrier-pigeon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider kind")
}

func TestEstimateParamBillions(t *testing.T) {
	assert.Equal(t, 7.0, EstimateParamBillions("qwen2.5-coder:7b", 0))
	assert.Equal(t, 1.0, EstimateParamBillions("llama3.2_1b", 0))
	assert.Equal(t, 14.0, EstimateParamBillions("model-14b-instruct", 0))
	// Size fallback assumes ~0.5 GB per billion params.
	assert.InDelta(t, 1.0, EstimateParamBillions("unknown-model", 500_000_000), 1e-9)
	assert.Equal(t, 0.0, EstimateParamBillions("unknown-model", 0))
}

func TestModelInfo_String(t *testing.T) {
	assert.Equal(t, "m (2.0 GB)", ModelInfo{Name: "m", SizeBytes: 2 << 30}.String())
	assert.Equal(t, "m (~7B params)", ModelInfo{Name: "m", ParamBillions: 7}.String())
	assert.Equal(t, "m", ModelInfo{Name: "m"}.String())
}

func TestValidate_MissingFields(t *testing.T) {
	ctx := context.Background()

	_, err := NewOpenAICompatAdapter("openai", "", "https://example.invalid", "gpt-4o").Generate(ctx, "s", "u", 16)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")

	_, err = NewOpenAICompatAdapter("openai", "sk-x", "https://example.invalid", "").Generate(ctx, "s", "u", 16)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model")

	_, err = NewClaudeAdapter("", "https://example.invalid", "claude-3-5-haiku").Generate(ctx, "s", "u", 16)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")

	_, err = NewOllamaAdapter("http://127.0.0.1:11434", "", nil).Generate(ctx, "s", "u", 16)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model")
}

func TestValidate_FailsBeforeNetwork(t *testing.T) {
	// The base URL does not resolve; reaching the network would fail loudly
	// with a transport error rather than the configuration message.
	a := NewOpenAICompatAdapter("openai", "", "http://doesnotexist.invalid", "")
	_, err := a.Generate(context.Background(), "s", "u", 16)
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "doesnotexist"), "validation must run before any network call")
}
