// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikoshell/niko/internal/config"
)

func testApp(t *testing.T) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	app := NewApp(cfg, cfgPath, false)
	app.stdout = &stdout
	app.stderr = &stderr
	return app, &stdout, &stderr
}

func TestRun_NoArgsPrintsUsage(t *testing.T) {
	app, _, stderr := testApp(t)
	assert.Equal(t, 2, app.Run(nil))
	assert.Contains(t, stderr.String(), "Usage:")
}

func TestRun_UnknownCommand(t *testing.T) {
	app, _, stderr := testApp(t)
	assert.Equal(t, 2, app.Run([]string{"bogus"}))
	assert.Contains(t, stderr.String(), "unknown command")
}

func TestRun_Version(t *testing.T) {
	app, stdout, _ := testApp(t)
	assert.Equal(t, 0, app.Run([]string{"version"}))
	assert.Contains(t, stdout.String(), "niko")
}

func TestSetAndUse_PersistAcrossLoads(t *testing.T) {
	app, stdout, _ := testApp(t)

	require.Equal(t, 0, app.Run([]string{"set", "openai", "api-key", "sk-test"}))
	require.Equal(t, 0, app.Run([]string{"set", "openai", "model", "gpt-4o-mini"}))
	require.Equal(t, 0, app.Run([]string{"use", "openai"}))
	assert.Contains(t, stdout.String(), "active provider: openai")

	reloaded, err := config.Load(app.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "openai", reloaded.ActiveProvider)
	assert.Equal(t, "gpt-4o-mini", reloaded.Providers["openai"].Model)
	assert.Equal(t, "openai_compat", reloaded.Providers["openai"].Kind,
		"well-known provider picks up its template kind")
}

func TestUse_UnknownProviderFails(t *testing.T) {
	app, _, stderr := testApp(t)
	assert.Equal(t, 1, app.Run([]string{"use", "nope"}))
	assert.Contains(t, stderr.String(), "not configured")
}

func TestCmd_RequiresQuery(t *testing.T) {
	app, _, _ := testApp(t)
	assert.Equal(t, 1, app.Run([]string{"cmd"}))
}

func TestDeclinedMessage(t *testing.T) {
	msg, declined := declinedMessage(`echo "Declined: destructive request"`)
	assert.True(t, declined)
	assert.Equal(t, "Declined: destructive request", msg)

	msg, declined = declinedMessage("Please specify: which directory?")
	assert.True(t, declined)
	assert.Equal(t, "Please specify: which directory?", msg)

	_, declined = declinedMessage("ls -la")
	assert.False(t, declined)
}
