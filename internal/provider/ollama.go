// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package provider

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// OllamaAdapter provides integration with a locally running Ollama daemon.
// It communicates over HTTP with the Ollama API (default: http://127.0.0.1:11434).
// Streaming uses Ollama's newline-delimited JSON chat protocol.
type OllamaAdapter struct {
	baseURL string
	model   string
	options map[string]string
	client  *http.Client
}

// NewOllamaAdapter creates an adapter for the Ollama daemon at baseURL.
func NewOllamaAdapter(baseURL, model string, options map[string]string) *OllamaAdapter {
	return &OllamaAdapter{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		options: options,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
}

func (a *OllamaAdapter) Identifier() string { return "ollama" }

// IsAvailable probes the daemon's tags endpoint with a short timeout.
func (a *OllamaAdapter) IsAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (a *OllamaAdapter) validate() error {
	if a.model == "" {
		return fmt.Errorf("no model selected for ollama; run 'niko set ollama model <name>'")
	}
	return nil
}

// buildChatPayload assembles the /api/chat request body. Config options are
// injected under the Ollama "options" object, with numeric strings coerced.
func (a *OllamaAdapter) buildChatPayload(systemPrompt, userPrompt string, maxTokens int, stream bool) ([]byte, error) {
	body := []byte(`{}`)
	var err error
	body, err = sjson.SetBytes(body, "model", a.model)
	if err != nil {
		return nil, fmt.Errorf("ollama: failed to build request: %w", err)
	}
	body, _ = sjson.SetBytes(body, "messages", []map[string]string{
		{"role": "system", "content": systemPrompt},
		{"role": "user", "content": userPrompt},
	})
	body, _ = sjson.SetBytes(body, "stream", stream)
	body, _ = sjson.SetBytes(body, "options.temperature", 0.1)
	body, _ = sjson.SetBytes(body, "options.num_predict", maxTokens)

	for k, v := range a.options {
		if f, errParse := strconv.ParseFloat(v, 64); errParse == nil {
			body, _ = sjson.SetBytes(body, "options."+k, f)
			continue
		}
		body, _ = sjson.SetBytes(body, "options."+k, v)
	}
	return body, nil
}

func (a *OllamaAdapter) postChat(ctx context.Context, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ollama: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, statusErr{code: resp.StatusCode, msg: "ollama: " + strings.TrimSpace(string(body))}
	}
	return resp, nil
}

// Generate performs one blocking chat completion against the daemon.
func (a *OllamaAdapter) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if err := a.validate(); err != nil {
		return "", err
	}

	payload, err := a.buildChatPayload(systemPrompt, userPrompt, maxTokens, false)
	if err != nil {
		return "", err
	}
	log.Debugf("ollama request: %d bytes, model=%s", len(payload), a.model)

	resp, err := a.postChat(ctx, payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ollama: failed to read response: %w", err)
	}

	parsed := gjson.ParseBytes(body)
	if errMsg := parsed.Get("error").String(); errMsg != "" {
		return "", fmt.Errorf("ollama error: %s", errMsg)
	}
	content := parsed.Get("message.content")
	if !content.Exists() {
		return "", fmt.Errorf("ollama returned no message content")
	}
	if parsed.Get("done_reason").String() == "length" {
		log.Warn("ollama response truncated (hit output token limit)")
	}
	return strings.TrimSpace(content.String()), nil
}

// GenerateStream performs a chat completion with Ollama's ndjson streaming,
// delivering each content fragment to onToken in order.
func (a *OllamaAdapter) GenerateStream(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, onToken func(string)) (string, error) {
	if err := a.validate(); err != nil {
		return "", err
	}

	payload, err := a.buildChatPayload(systemPrompt, userPrompt, maxTokens, true)
	if err != nil {
		return "", err
	}

	resp, err := a.postChat(ctx, payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var accumulated strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(nil, 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		chunk := gjson.ParseBytes(line)
		if errMsg := chunk.Get("error").String(); errMsg != "" {
			if accumulated.Len() == 0 {
				return "", fmt.Errorf("ollama error: %s", errMsg)
			}
			break
		}
		if token := chunk.Get("message.content").String(); token != "" {
			onToken(token)
			accumulated.WriteString(token)
		}
		if chunk.Get("done").Bool() {
			if chunk.Get("done_reason").String() == "length" {
				log.Warn("ollama response truncated (hit output token limit)")
			}
			break
		}
	}
	if errScan := scanner.Err(); errScan != nil && accumulated.Len() == 0 {
		return "", fmt.Errorf("ollama stream read error: %w", errScan)
	}

	result := strings.TrimSpace(accumulated.String())
	if result == "" {
		return "", fmt.Errorf("ollama returned empty streaming response")
	}
	return result, nil
}

// ListModels fetches the locally installed models from /api/tags.
func (a *OllamaAdapter) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("ollama: failed to create request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ollama at %s (start it with 'ollama serve'): %w", a.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, statusErr{code: resp.StatusCode, msg: "ollama: " + strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ollama: failed to read tags response: %w", err)
	}

	var models []ModelInfo
	for _, m := range gjson.GetBytes(body, "models").Array() {
		name := m.Get("name").String()
		size := m.Get("size").Int()
		models = append(models, ModelInfo{
			ID:            name,
			Name:          name,
			SizeBytes:     size,
			ParamBillions: EstimateParamBillions(name, size),
		})
	}
	return models, nil
}
