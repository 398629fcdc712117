// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package prompt

import (
	goruntime "runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGatherContext_NeverEmpty(t *testing.T) {
	ctx := GatherContext()
	assert.Equal(t, goruntime.GOOS, ctx.OS)
	assert.Equal(t, goruntime.GOARCH, ctx.Arch)
	assert.NotEmpty(t, ctx.Shell)
	assert.NotEmpty(t, ctx.WorkingDir)
}

func TestCmdSystemPrompt_ContainsContext(t *testing.T) {
	ctx := SystemContext{
		OS:             "linux",
		Arch:           "amd64",
		Shell:          "zsh",
		WorkingDir:     "/srv/app",
		AvailableTools: []string{"git", "docker"},
	}
	p := CmdSystemPrompt(ctx, "")
	assert.Contains(t, p, "OS: linux")
	assert.Contains(t, p, "Shell: zsh")
	assert.Contains(t, p, "Current directory: /srv/app")
	assert.Contains(t, p, "git, docker")
	assert.Contains(t, p, "Output ONLY the command")
}

func TestCmdSystemPrompt_ExtraSectionBeforeExamples(t *testing.T) {
	p := CmdSystemPrompt(SystemContext{}, "\n\nWORKSPACE CONTEXT:\n--- a.go ---\nsnippet")
	assert.Contains(t, p, "WORKSPACE CONTEXT")
	assert.Less(t, strings.Index(p, "WORKSPACE CONTEXT"), strings.Index(p, "EXAMPLES:"),
		"context must come before the few-shot examples")
}
