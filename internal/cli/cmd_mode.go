// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nikoshell/niko/internal/budget"
	"github.com/nikoshell/niko/internal/prompt"
	"github.com/nikoshell/niko/internal/provider"
	"github.com/nikoshell/niko/internal/runtime"
	"github.com/nikoshell/niko/internal/safety"
)

// runCmd turns a natural-language request into a shell command.
func (a *App) runCmd(args []string) error {
	fs := flag.NewFlagSet("cmd", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	providerName := fs.String("p", "", "provider override")
	if err := fs.Parse(args); err != nil {
		return err
	}

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		return fmt.Errorf("please provide a request, e.g. niko cmd \"find all large files\"")
	}

	name, pcfg, err := a.cfg.Provider(*providerName)
	if err != nil {
		return err
	}
	p, err := provider.FromConfig(name, pcfg)
	if err != nil {
		return err
	}
	if !p.IsAvailable() {
		fmt.Fprintf(a.stderr, "provider '%s' is not ready\n  run: niko set %s model <name>\n", name, name)
		return nil
	}

	sysCtx := prompt.GatherContext()
	if a.verbose {
		log.Debugf("provider=%s shell=%s tools=%d", name, sysCtx.Shell, len(sysCtx.AvailableTools))
	}

	systemPrompt := prompt.CmdSystemPrompt(sysCtx,
		workspaceContext(a.openWorkspace(sysCtx.WorkingDir), query))

	start := time.Now()
	response, err := runtime.NewRunner().RunWithRetry(context.Background(), p, runtime.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   query,
		MaxTokens:    budget.CommandTokens,
	})
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	if a.verbose {
		log.Debugf("response time: %s", time.Since(start).Round(time.Millisecond))
	}

	command := safety.ExtractCommand(response)
	if command == "" {
		fmt.Fprintln(a.stderr, "could not generate a command — try being more specific")
		return nil
	}
	if msg, declined := declinedMessage(command); declined {
		fmt.Fprintln(a.stderr, msg)
		return nil
	}

	if tool := safety.FirstTool(command); tool != "" && !safety.IsToolAvailable(tool) {
		fmt.Fprintf(a.stderr, "  '%s' not found — install it first\n", tool)
	}

	fmt.Fprintln(a.stdout, command)

	classifier, err := safety.NewClassifier(a.cfg.Safety.BlockedCommands, a.cfg.Safety.RulesFile)
	if err != nil {
		return fmt.Errorf("load safety rules: %w", err)
	}
	switch risk := classifier.AssessRisk(command); risk {
	case safety.Critical:
		fmt.Fprintf(a.stderr, "\n⚠ %s\n", risk.Description())
	case safety.Dangerous:
		fmt.Fprintln(a.stderr, "\n⚠ Review before running")
	}
	return nil
}

// declinedMessage unwraps the refusal shapes backends produce instead of a
// command.
func declinedMessage(command string) (string, bool) {
	for _, prefix := range []string{"Declined:", "Please specify:"} {
		if strings.HasPrefix(command, prefix) {
			return command, true
		}
		quoted := "echo \"" + prefix
		if strings.HasPrefix(command, quoted) {
			msg := strings.TrimPrefix(command, "echo \"")
			return strings.TrimSuffix(msg, "\""), true
		}
	}
	return "", false
}
