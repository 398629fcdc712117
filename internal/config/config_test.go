// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_CreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ActiveProvider != "ollama" {
		t.Errorf("default active provider should be ollama, got %q", cfg.ActiveProvider)
	}
	if _, ok := cfg.Providers["ollama"]; !ok {
		t.Error("default config should preconfigure ollama")
	}
	if !cfg.Safety.RequireConfirmDangerous {
		t.Error("dangerous-command confirmation should default to on")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Load should persist the default config: %v", err)
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.SetProviderField("openai", "kind", "openai_compat")
	cfg.SetProviderField("openai", "api-key", "sk-test")
	cfg.SetProviderField("openai", "model", "gpt-4o-mini")
	cfg.SetProviderField("openai", "temperature", "0.2")
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	p := loaded.Providers["openai"]
	if p.Kind != "openai_compat" || p.APIKey != "sk-test" || p.Model != "gpt-4o-mini" {
		t.Errorf("round trip lost provider fields: %+v", p)
	}
	if p.Options["temperature"] != "0.2" {
		t.Errorf("unknown field should land in options, got %+v", p.Options)
	}
}

func TestLoad_EnvOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.SetProviderField("openai", "kind", "openai_compat")
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Providers["openai"].APIKey != "sk-from-env" {
		t.Errorf("env overlay should fill empty api key, got %q", loaded.Providers["openai"].APIKey)
	}
}

func TestLoad_EnvOverlayDoesNotClobber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.SetProviderField("openai", "kind", "openai_compat")
	cfg.SetProviderField("openai", "api-key", "sk-explicit")
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Providers["openai"].APIKey != "sk-explicit" {
		t.Error("env overlay must not replace a configured api key")
	}
}

func TestSetActiveProvider_Unknown(t *testing.T) {
	cfg := Default()
	if err := cfg.SetActiveProvider("nope"); err == nil {
		t.Error("switching to an unconfigured provider should fail")
	}
}
