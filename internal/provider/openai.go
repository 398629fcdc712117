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

// OpenAICompatAdapter implements the capability contract over the OpenAI
// chat-completions wire format. It covers every provider speaking that
// dialect (OpenAI, DeepSeek, Groq, Together, Mistral, OpenRouter, ...);
// the provider name is only used in error messages.
type OpenAICompatAdapter struct {
	name    string
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewOpenAICompatAdapter creates an adapter bound to one named provider.
func NewOpenAICompatAdapter(name, apiKey, baseURL, model string) *OpenAICompatAdapter {
	return &OpenAICompatAdapter{
		name:    name,
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
}

func (a *OpenAICompatAdapter) Identifier() string { return a.name }

func (a *OpenAICompatAdapter) IsAvailable() bool { return a.apiKey != "" }

func (a *OpenAICompatAdapter) validate() error {
	if a.apiKey == "" {
		return fmt.Errorf("api key not configured for %q; run 'niko set %s api-key <key>'", a.name, a.name)
	}
	if a.model == "" {
		return fmt.Errorf("no model selected for %q; run 'niko set %s model <name>'", a.name, a.name)
	}
	return nil
}

func (a *OpenAICompatAdapter) buildPayload(systemPrompt, userPrompt string, maxTokens int, stream bool) []byte {
	body := []byte(`{}`)
	body, _ = sjson.SetBytes(body, "model", a.model)
	body, _ = sjson.SetBytes(body, "messages", []map[string]string{
		{"role": "system", "content": systemPrompt},
		{"role": "user", "content": userPrompt},
	})
	body, _ = sjson.SetBytes(body, "temperature", 0.1)
	body, _ = sjson.SetBytes(body, "max_tokens", maxTokens)
	if stream {
		body, _ = sjson.SetBytes(body, "stream", true)
	}
	return body
}

func (a *OpenAICompatAdapter) post(ctx context.Context, payload []byte, stream bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", a.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s API: %w", a.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, statusErr{code: resp.StatusCode, msg: a.name + ": " + strings.TrimSpace(string(body))}
	}
	return resp, nil
}

// Generate performs one blocking chat completion.
func (a *OpenAICompatAdapter) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if err := a.validate(); err != nil {
		return "", err
	}

	resp, err := a.post(ctx, a.buildPayload(systemPrompt, userPrompt, maxTokens, false), false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: failed to read response: %w", a.name, err)
	}

	parsed := gjson.ParseBytes(body)
	if errMsg := parsed.Get("error.message").String(); errMsg != "" {
		return "", fmt.Errorf("%s API error: %s", a.name, errMsg)
	}
	choice := parsed.Get("choices.0")
	if !choice.Exists() {
		return "", fmt.Errorf("%s returned no choices", a.name)
	}
	if truncationReason(choice.Get("finish_reason").String()) {
		log.Warnf("%s response truncated (hit max_tokens)", a.name)
	}
	result := strings.TrimSpace(choice.Get("message.content").String())
	if result == "" {
		return "", fmt.Errorf("%s returned empty response", a.name)
	}
	return result, nil
}

// GenerateStream performs a chat completion over the provider's SSE stream.
// Each "data:" line carrying a content delta is forwarded to onToken; the
// "[DONE]" sentinel ends the stream.
func (a *OpenAICompatAdapter) GenerateStream(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, onToken func(string)) (string, error) {
	if err := a.validate(); err != nil {
		return "", err
	}

	resp, err := a.post(ctx, a.buildPayload(systemPrompt, userPrompt, maxTokens, true), true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var accumulated strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(nil, 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		if data == "[DONE]" {
			break
		}
		for _, choice := range gjson.Get(data, "choices").Array() {
			if token := choice.Get("delta.content").String(); token != "" {
				onToken(token)
				accumulated.WriteString(token)
			}
			if truncationReason(choice.Get("finish_reason").String()) {
				log.Warnf("%s response truncated (hit max_tokens)", a.name)
			}
		}
	}
	if errScan := scanner.Err(); errScan != nil && accumulated.Len() == 0 {
		return "", fmt.Errorf("%s stream read error: %w", a.name, errScan)
	}

	result := strings.TrimSpace(accumulated.String())
	if result == "" {
		return "", fmt.Errorf("%s returned empty streaming response", a.name)
	}
	return result, nil
}

// ListModels fetches the provider's model catalog from /models.
func (a *OpenAICompatAdapter) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("api key required to list models for %q; run 'niko set %s api-key <key>'", a.name, a.name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", a.name, err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch models from %s: %w", a.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, statusErr{code: resp.StatusCode, msg: a.name + ": " + strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read models response: %w", a.name, err)
	}

	var models []ModelInfo
	for _, m := range gjson.GetBytes(body, "data").Array() {
		id := m.Get("id").String()
		models = append(models, ModelInfo{
			ID:            id,
			Name:          id,
			ParamBillions: EstimateParamBillions(id, 0),
		})
	}
	return models, nil
}
