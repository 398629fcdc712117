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
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const anthropicVersion = "2023-06-01"

// ClaudeAdapter implements the capability contract over the Anthropic
// Messages API. Streaming uses the labeled SSE event protocol where only
// content_block_delta events carry text and message_stop ends the stream.
type ClaudeAdapter struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewClaudeAdapter creates an adapter for the Anthropic API.
func NewClaudeAdapter(apiKey, baseURL, model string) *ClaudeAdapter {
	return &ClaudeAdapter{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
}

func (a *ClaudeAdapter) Identifier() string { return "claude" }

func (a *ClaudeAdapter) IsAvailable() bool { return a.apiKey != "" }

func (a *ClaudeAdapter) validate() error {
	if a.apiKey == "" {
		return fmt.Errorf("api key not configured for claude; run 'niko set claude api-key <key>'")
	}
	if a.model == "" {
		return fmt.Errorf("no model selected for claude; run 'niko set claude model <name>'")
	}
	return nil
}

func (a *ClaudeAdapter) buildPayload(systemPrompt, userPrompt string, maxTokens int, stream bool) []byte {
	body := []byte(`{}`)
	body, _ = sjson.SetBytes(body, "model", a.model)
	body, _ = sjson.SetBytes(body, "max_tokens", maxTokens)
	body, _ = sjson.SetBytes(body, "system", systemPrompt)
	body, _ = sjson.SetBytes(body, "messages", []map[string]string{
		{"role": "user", "content": userPrompt},
	})
	body, _ = sjson.SetBytes(body, "temperature", 0.1)
	if stream {
		body, _ = sjson.SetBytes(body, "stream", true)
	}
	return body
}

func (a *ClaudeAdapter) post(ctx context.Context, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("claude: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call claude API: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		msg := strings.TrimSpace(string(body))
		if apiMsg := gjson.GetBytes(body, "error.message").String(); apiMsg != "" {
			msg = gjson.GetBytes(body, "error.type").String() + ": " + apiMsg
		}
		return nil, statusErr{code: resp.StatusCode, msg: "claude: " + msg}
	}
	return resp, nil
}

// Generate performs one blocking Messages API call. Text content blocks are
// joined in order; a max_tokens stop reason logs a warning only.
func (a *ClaudeAdapter) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if err := a.validate(); err != nil {
		return "", err
	}

	resp, err := a.post(ctx, a.buildPayload(systemPrompt, userPrompt, maxTokens, false))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("claude: failed to read response: %w", err)
	}

	parsed := gjson.ParseBytes(body)
	if errMsg := parsed.Get("error.message").String(); errMsg != "" {
		return "", fmt.Errorf("claude API error: %s", errMsg)
	}
	if parsed.Get("stop_reason").String() == "max_tokens" {
		log.Warn("claude response truncated (hit max_tokens)")
	}

	var parts []string
	for _, block := range parsed.Get("content").Array() {
		if text := block.Get("text").String(); text != "" {
			parts = append(parts, text)
		}
	}
	result := strings.TrimSpace(strings.Join(parts, "\n"))
	if result == "" {
		return "", fmt.Errorf("claude returned empty response")
	}
	return result, nil
}

// GenerateStream performs a Messages API call with SSE streaming. Only
// content_block_delta events with text_delta payloads carry tokens;
// message_delta may report truncation and message_stop ends the stream.
func (a *ClaudeAdapter) GenerateStream(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, onToken func(string)) (string, error) {
	if err := a.validate(); err != nil {
		return "", err
	}

	resp, err := a.post(ctx, a.buildPayload(systemPrompt, userPrompt, maxTokens, true))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var accumulated strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(nil, 1<<20)
scan:
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		event := gjson.Parse(data)
		switch event.Get("type").String() {
		case "content_block_delta":
			delta := event.Get("delta")
			if delta.Get("type").String() != "text_delta" {
				continue
			}
			if token := delta.Get("text").String(); token != "" {
				onToken(token)
				accumulated.WriteString(token)
			}
		case "message_delta":
			if event.Get("delta.stop_reason").String() == "max_tokens" {
				log.Warn("claude response truncated (hit max_tokens)")
			}
		case "message_stop":
			break scan
		}
		// ping, message_start, content_block_start etc. are skipped.
	}
	if errScan := scanner.Err(); errScan != nil && accumulated.Len() == 0 {
		return "", fmt.Errorf("claude stream read error: %w", errScan)
	}

	result := strings.TrimSpace(accumulated.String())
	if result == "" {
		return "", fmt.Errorf("claude returned empty streaming response")
	}
	return result, nil
}

// ListModels fetches the model catalog, falling back to a static list of
// current models when the endpoint is unreachable.
func (a *ClaudeAdapter) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("api key required to list claude models; run 'niko set claude api-key <key>'")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1/models", nil)
	if err != nil {
		return nil, fmt.Errorf("claude: failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		if resp != nil {
			resp.Body.Close()
		}
		return fallbackClaudeModels(), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("claude: failed to read models response: %w", err)
	}

	var models []ModelInfo
	for _, m := range gjson.GetBytes(body, "data").Array() {
		id := m.Get("id").String()
		name := m.Get("display_name").String()
		if name == "" {
			name = id
		}
		models = append(models, ModelInfo{
			ID:            id,
			Name:          name,
			ParamBillions: EstimateParamBillions(id, 0),
		})
	}
	return models, nil
}

func fallbackClaudeModels() []ModelInfo {
	return []ModelInfo{
		{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4"},
		{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku"},
		{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet"},
		{ID: "claude-3-opus-20240229", Name: "Claude 3 Opus"},
	}
}
