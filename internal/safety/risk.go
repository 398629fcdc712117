// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package safety classifies shell commands by risk before the user runs
// them. Built-in pattern tables cover the common destructive shapes; users
// can extend them with their own rules file.
package safety

import (
	"regexp"
	"strings"
)

// RiskLevel orders commands from harmless to destructive.
type RiskLevel int

const (
	Safe RiskLevel = iota
	Moderate
	Dangerous
	Critical
)

func (r RiskLevel) String() string {
	switch r {
	case Safe:
		return "safe"
	case Moderate:
		return "moderate"
	case Dangerous:
		return "dangerous"
	case Critical:
		return "critical"
	}
	return "unknown"
}

// Description is the one-line warning shown next to the level.
func (r RiskLevel) Description() string {
	switch r {
	case Safe:
		return "Read-only command, safe to execute"
	case Moderate:
		return "May modify files or state"
	case Dangerous:
		return "Could cause data loss or system changes"
	case Critical:
		return "EXTREMELY DANGEROUS — could destroy data or system"
	}
	return ""
}

// safePrefixes are commands (or command+subcommand pairs) that only read.
var safePrefixes = []string{
	"ls", "ll", "la", "dir", "pwd", "cd", "cat", "less", "more", "head",
	"tail", "grep", "rg", "ag", "ack", "find", "fd", "locate", "echo",
	"printf", "date", "cal", "whoami", "id", "who", "w", "uname",
	"hostname", "env", "printenv", "which", "whereis", "type", "man",
	"help", "info", "wc", "sort", "uniq", "cut", "tr", "diff", "cmp",
	"file", "stat", "df", "du", "free", "top", "htop", "ps", "pgrep",
	"uptime", "lscpu", "lsmem", "ping", "host", "dig", "nslookup",
	"curl", "wget", "http",
	"git status", "git log", "git diff", "git branch", "git remote",
	"docker ps", "docker images", "docker logs",
	"kubectl get", "kubectl describe", "kubectl logs",
	"npm list", "npm outdated", "npm view",
	"pip list", "pip show",
	"go list", "go version", "go env",
	"cargo --version", "rustc --version",
	"node --version", "python --version",
}

var moderatePatterns = compile(
	`^git\s+(add|commit|stash|checkout|switch|merge)`,
	`^docker\s+(build|run|exec|start|stop)`,
	`^kubectl\s+(apply|create|delete|edit)`,
	`^npm\s+(install|update|uninstall)`,
	`^pip\s+(install|uninstall)`,
	`^go\s+(build|install|get|mod)`,
	`^cargo\s+(build|install|add|remove)`,
	`^mkdir`,
	`^touch`,
	`^cp\s`,
	`^mv\s`,
	`^ln\s`,
)

var dangerousPatterns = compile(
	`^rm\s`,
	`^rmdir`,
	`^git\s+(reset|rebase|push|force)`,
	`--force`,
	`--hard`,
	`-rf\s`,
	`^docker\s+(rm|rmi|prune|system\s+prune)`,
	`^kubectl\s+delete`,
	`^chmod`,
	`^chown`,
	`^sudo`,
	`^su\s`,
	`^kill`,
	`^pkill`,
	`^killall`,
	`>\s*[^|]`,
	`>>`,
)

var criticalPatterns = compile(
	`rm\s+(-rf?|--recursive).*(\/|~|\$HOME|\*|\.\.\/)`,
	`rm\s+-rf?\s+\/`,
	`rm\s+-rf?\s+\*`,
	`dd\s+if=`,
	`mkfs`,
	`fdisk`,
	`parted`,
	`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;`,
	`>\s*\/dev\/(s|h|v)d`,
	`chmod\s+(-R\s+)?777\s+\/`,
	`chown\s+-R.*\s+\/`,
	`wget.*\|\s*(ba)?sh`,
	`curl.*\|\s*(ba)?sh`,
	`\|\s*sh\s*$`,
	`\|\s*bash\s*$`,
)

func compile(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		res = append(res, regexp.MustCompile(p))
	}
	return res
}

// Classifier assesses commands against the built-in tables, the configured
// blocked list, and any user rules.
type Classifier struct {
	blocked []string
	rules   []compiledRule
}

// NewClassifier builds a Classifier from the blocked-command list and an
// optional user rules file. An empty rulesFile skips user rules.
func NewClassifier(blocked []string, rulesFile string) (*Classifier, error) {
	c := &Classifier{blocked: blocked}
	if rulesFile != "" {
		rules, err := loadRules(rulesFile)
		if err != nil {
			return nil, err
		}
		c.rules = rules
	}
	return c, nil
}

// AssessRisk classifies command. Blocked commands and user Critical rules
// take precedence; unmatched commands default to Moderate, never Safe.
func (c *Classifier) AssessRisk(command string) RiskLevel {
	command = strings.TrimSpace(command)

	for _, b := range c.blocked {
		if b != "" && strings.Contains(command, b) {
			return Critical
		}
	}

	if lvl, ok := c.matchRules(command); ok {
		return lvl
	}

	for _, re := range criticalPatterns {
		if re.MatchString(command) {
			return Critical
		}
	}
	for _, re := range dangerousPatterns {
		if re.MatchString(command) {
			return Dangerous
		}
	}
	for _, re := range moderatePatterns {
		if re.MatchString(command) {
			return Moderate
		}
	}
	for _, safe := range safePrefixes {
		if strings.HasPrefix(command, safe) {
			return Safe
		}
	}
	return Moderate
}

// IsBlocked reports whether command matches the configured blocked list.
func (c *Classifier) IsBlocked(command string) bool {
	for _, b := range c.blocked {
		if b != "" && strings.Contains(command, b) {
			return true
		}
	}
	return false
}
