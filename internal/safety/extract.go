// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package safety

import (
	"os/exec"
	"regexp"
	"strings"
)

var (
	codeBlockRe  = regexp.MustCompile("```(?:bash|sh|shell|zsh|cmd|powershell)?\\s*\n([\\s\\S]*?)\n```")
	inlineCodeRe = regexp.MustCompile("`([^`]+)`")
)

// ExtractCommand pulls a clean shell command out of a model response.
// Backends ignore the "command only" instruction often enough that this
// peels off labels, code fences, and prompt markers before giving up and
// returning the first plausible line.
func ExtractCommand(response string) string {
	response = strings.TrimSpace(response)

	for _, prefix := range []string{"Command:", "command:", "CMD:", "cmd:", "$ ", "> "} {
		if rest, ok := strings.CutPrefix(response, prefix); ok {
			response = strings.TrimSpace(rest)
		}
	}

	if m := codeBlockRe.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := inlineCodeRe.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, marker := range []string{"$ ", "> ", "# "} {
			if rest, ok := strings.CutPrefix(line, marker); ok {
				line = strings.TrimSpace(rest)
			}
		}
		if line != "" {
			return line
		}
	}
	return response
}

// FirstTool returns the program name a command line invokes, looking through
// sudo/env/nohup/time wrappers. Empty when the command starts with a
// subshell, substitution, or path.
func FirstTool(command string) string {
	command = strings.TrimSpace(command)
	if strings.HasPrefix(command, "(") || strings.HasPrefix(command, "$") {
		return ""
	}

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return ""
	}

	first := parts[0]
	if strings.HasPrefix(first, "/") || strings.HasPrefix(first, "./") || strings.HasPrefix(first, "../") {
		return ""
	}

	switch first {
	case "sudo", "env", "nohup", "time":
		if len(parts) > 1 {
			next := parts[1]
			if !isShellOperator(next) && !strings.HasPrefix(next, "-") {
				return FirstTool(strings.Join(parts[1:], " "))
			}
		}
	}
	return first
}

func isShellOperator(s string) bool {
	switch s {
	case "|", "||", "&&", ">", ">>", "<", "<<", "2>", "2>>", "&>", "&>>", "1>", "1>>":
		return true
	}
	return false
}

// shellBuiltins are always "available" without a PATH lookup.
var shellBuiltins = map[string]bool{
	"echo": true, "cd": true, "pwd": true, "export": true, "source": true,
	"alias": true, "exit": true, "return": true, "set": true, "unset": true,
	"read": true, "eval": true, "exec": true, "trap": true, "wait": true,
	"kill": true, "test": true, "[": true, "[[": true, "if": true,
	"for": true, "while": true, "case": true, "function": true, "time": true,
}

// IsToolAvailable reports whether tool resolves as a builtin or on PATH.
func IsToolAvailable(tool string) bool {
	if tool == "" || shellBuiltins[tool] {
		return true
	}
	_, err := exec.LookPath(tool)
	return err == nil
}
