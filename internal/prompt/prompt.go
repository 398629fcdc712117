// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package prompt gathers local system context and renders the system prompts
// for command generation and command explanation.
package prompt

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
)

// SystemContext describes the machine a generated command will run on.
type SystemContext struct {
	OS             string
	Arch           string
	Shell          string
	WorkingDir     string
	AvailableTools []string
}

// knownTools is the probe list for context gathering; only tools actually on
// PATH end up in the prompt.
var knownTools = []string{
	"git", "gh", "svn",
	"docker", "docker-compose", "podman", "kubectl", "helm", "k9s", "minikube",
	"npm", "yarn", "pnpm", "bun", "pip", "pip3", "pipenv", "poetry",
	"go", "cargo", "brew", "apt", "dnf", "pacman",
	"python", "python3", "node", "deno", "ruby", "php", "java",
	"make", "cmake", "mvn", "gradle",
	"terraform", "ansible", "aws", "gcloud", "az", "flyctl", "vercel",
	"psql", "mysql", "mongo", "redis-cli", "sqlite3",
	"curl", "wget", "ssh", "scp", "rsync", "nc", "lsof",
	"jq", "yq", "fzf", "rg", "fd", "awk", "sed", "grep",
	"tar", "zip", "unzip", "gzip",
	"htop", "top", "ps", "df", "du",
	"ffmpeg", "convert",
}

// GatherContext probes the local environment. It never fails; unknown fields
// degrade to placeholders.
func GatherContext() SystemContext {
	wd, err := os.Getwd()
	if err != nil {
		wd = "unknown"
	}
	return SystemContext{
		OS:             goruntime.GOOS,
		Arch:           goruntime.GOARCH,
		Shell:          detectShell(),
		WorkingDir:     wd,
		AvailableTools: detectTools(),
	}
}

func detectShell() string {
	if goruntime.GOOS == "windows" {
		if _, err := exec.LookPath("pwsh"); err == nil {
			return "powershell"
		}
		return "cmd"
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return filepath.Base(sh)
	}
	return "sh"
}

func detectTools() []string {
	var found []string
	for _, tool := range knownTools {
		if _, err := exec.LookPath(tool); err == nil {
			found = append(found, tool)
		}
	}
	return found
}

// CmdSystemPrompt renders the system prompt for natural-language-to-command
// generation. The few-shot examples keep small local models from wrapping
// the command in prose. extra, when non-empty, is inserted between the
// system info and the examples (workspace snippets and the like).
func CmdSystemPrompt(ctx SystemContext, extra string) string {
	return fmt.Sprintf(`You are a helpful shell command generator. Output ONLY the command, nothing else.

SYSTEM INFO:
- OS: %s
- Architecture: %s
- Shell: %s
- Current directory: %s
- Available tools: %s%s

EXAMPLES:
"list files" → ls -la
"disk usage" → du -sh *
"how do i run ollama" → ollama serve
"how to start docker" → systemctl start docker
"run nginx" → nginx
"start redis" → redis-server
"run python script" → python script.py
"find py files" → find . -name "*.py"
"remove txt files" → rm *.txt
"git status" → git status
"ping google" → ping -c 4 google.com
"check memory" → free -h
"list processes" → ps aux

Command:`,
		ctx.OS, ctx.Arch, ctx.Shell, ctx.WorkingDir,
		strings.Join(ctx.AvailableTools, ", "), extra)
}

// CmdExplainPrompt renders the system prompt for explaining a known command
// or tool in command mode.
func CmdExplainPrompt() string {
	return `You are a helpful shell command expert. The user will ask about a command or tool.
Provide a clear, concise explanation including:
1. What the command does
2. Common flags and options
3. Usage examples
4. Any safety considerations

Format with markdown. Be practical and concise.`
}
