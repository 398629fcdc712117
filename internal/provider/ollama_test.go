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

func TestOllama_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		parsed := gjson.ParseBytes(body)
		assert.Equal(t, "llama3.2:3b", parsed.Get("model").String())
		assert.False(t, parsed.Get("stream").Bool())
		assert.Equal(t, int64(512), parsed.Get("options.num_predict").Int())
		assert.Equal(t, "system says", parsed.Get("messages.0.content").String())

		fmt.Fprint(w, `{"model":"llama3.2:3b","message":{"role":"assistant","content":"  ls -la  "},"done":true}`)
	}))
	defer srv.Close()

	a := NewOllamaAdapter(srv.URL, "llama3.2:3b", nil)
	out, err := a.Generate(context.Background(), "system says", "list files", 512)
	require.NoError(t, err)
	assert.Equal(t, "ls -la", out)
}

func TestOllama_GenerateOptionsInjected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, 0.7, gjson.GetBytes(body, "options.top_p").Float())
		fmt.Fprint(w, `{"message":{"content":"ok"},"done":true}`)
	}))
	defer srv.Close()

	a := NewOllamaAdapter(srv.URL, "m", map[string]string{"top_p": "0.7"})
	_, err := a.Generate(context.Background(), "s", "u", 64)
	require.NoError(t, err)
}

func TestOllama_GenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"content":"hel"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":"lo "},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":"world"},"done":true}`)
	}))
	defer srv.Close()

	a := NewOllamaAdapter(srv.URL, "m", nil)
	var tokens []string
	out, err := a.GenerateStream(context.Background(), "s", "u", 64, func(tok string) {
		tokens = append(tokens, tok)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hel", "lo ", "world"}, tokens)
	assert.Equal(t, "hello world", out)
}

func TestOllama_GenerateStreamEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"content":""},"done":true}`)
	}))
	defer srv.Close()

	a := NewOllamaAdapter(srv.URL, "m", nil)
	_, err := a.GenerateStream(context.Background(), "s", "u", 64, func(string) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestOllama_GenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model is loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := NewOllamaAdapter(srv.URL, "m", nil)
	_, err := a.Generate(context.Background(), "s", "u", 64)
	require.Error(t, err)

	var sc interface{ StatusCode() int }
	require.ErrorAs(t, err, &sc)
	assert.Equal(t, http.StatusServiceUnavailable, sc.StatusCode())
}

func TestOllama_ListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		fmt.Fprint(w, `{"models":[{"name":"qwen2.5-coder:7b","size":4500000000},{"name":"llama3.2:1b","size":1300000000}]}`)
	}))
	defer srv.Close()

	a := NewOllamaAdapter(srv.URL, "", nil)
	models, err := a.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "qwen2.5-coder:7b", models[0].ID)
	assert.Equal(t, 7.0, models[0].ParamBillions)
	assert.Equal(t, int64(4500000000), models[0].SizeBytes)
}

func TestOllama_IsAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"models":[]}`)
	}))
	a := NewOllamaAdapter(srv.URL, "m", nil)
	assert.True(t, a.IsAvailable())

	srv.Close()
	assert.False(t, a.IsAvailable())
}
