// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestClaude_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		body, _ := io.ReadAll(r.Body)
		parsed := gjson.ParseBytes(body)
		assert.Equal(t, "system text", parsed.Get("system").String())
		assert.Equal(t, "user", parsed.Get("messages.0.role").String())

		fmt.Fprint(w, `{"content":[{"type":"text","text":"first"},{"type":"text","text":"second"}],"stop_reason":"end_turn"}`)
	}))
	defer srv.Close()

	a := NewClaudeAdapter("sk-ant-test", srv.URL, "claude-3-5-haiku-20241022")
	out, err := a.Generate(context.Background(), "system text", "hello", 128)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", out)
}

func TestClaude_GenerateEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content":[],"stop_reason":"end_turn"}`)
	}))
	defer srv.Close()

	a := NewClaudeAdapter("sk-ant-test", srv.URL, "m")
	_, err := a.Generate(context.Background(), "s", "u", 64)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestClaude_GenerateStatusErrorWithAPIMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"max_tokens required"}}`)
	}))
	defer srv.Close()

	a := NewClaudeAdapter("sk-ant-test", srv.URL, "m")
	_, err := a.Generate(context.Background(), "s", "u", 64)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_request_error")
	assert.Contains(t, err.Error(), "max_tokens required")
}

func TestClaude_GenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "event: message_start\n")
		fmt.Fprint(w, "data: {\"type\":\"message_start\"}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"str\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"ping\"}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"eamed\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"message_delta\",\"delta\":{\"stop_reason\":\"end_turn\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"message_stop\"}\n\n")
	}))
	defer srv.Close()

	a := NewClaudeAdapter("sk-ant-test", srv.URL, "m")
	var tokens []string
	out, err := a.GenerateStream(context.Background(), "s", "u", 64, func(tok string) {
		tokens = append(tokens, tok)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"str", "eamed"}, tokens)
	assert.Equal(t, "streamed", out)
}

func TestClaude_GenerateStreamIgnoresNonTextDeltas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"input_json_delta\",\"partial_json\":\"{}\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"only this\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"message_stop\"}\n\n")
	}))
	defer srv.Close()

	a := NewClaudeAdapter("sk-ant-test", srv.URL, "m")
	out, err := a.GenerateStream(context.Background(), "s", "u", 64, func(string) {})
	require.NoError(t, err)
	assert.Equal(t, "only this", out)
}

func TestClaude_ListModelsFallback(t *testing.T) {
	// Endpoint unreachable: the adapter falls back to its static catalog.
	a := NewClaudeAdapter("sk-ant-test", "http://127.0.0.1:1", "m")
	models, err := a.ListModels(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, models)
}
