// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"context"
	"flag"
	"fmt"
	"sort"
	"time"

	"github.com/nikoshell/niko/internal/config"
	"github.com/nikoshell/niko/internal/provider"
)

// runModels lists the models a provider offers, flagging local models that
// likely exceed this machine's memory.
func (a *App) runModels(args []string) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	providerName := fs.String("p", "", "provider override")
	if err := fs.Parse(args); err != nil {
		return err
	}

	name, pcfg, err := a.cfg.Provider(*providerName)
	if err != nil {
		return err
	}
	p, err := provider.FromConfig(name, pcfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	models, err := p.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models for %s: %w", name, err)
	}
	if len(models) == 0 {
		fmt.Fprintf(a.stderr, "no models available from '%s'\n", name)
		return nil
	}

	if ram := provider.SystemRAMGB(); ram > 0 && pcfg.Kind == "ollama" {
		fmt.Fprintf(a.stderr, "%dGB RAM — up to ~%dB parameters locally\n\n",
			ram, provider.MaxModelParamsForRAM())
	}
	for _, m := range models {
		marker := " "
		if m.ID == pcfg.Model {
			marker = "*"
		}
		warn := ""
		if pcfg.Kind == "ollama" && !provider.ModelFitsInRAM(m.ParamBillions) {
			warn = "  (may exceed RAM)"
		}
		fmt.Fprintf(a.stdout, "%s %s%s\n", marker, m, warn)
	}
	return nil
}

// runProviders prints every configured provider and its readiness.
func (a *App) runProviders(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("providers takes no arguments")
	}

	names := make([]string, 0, len(a.cfg.Providers))
	for name := range a.cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pcfg := a.cfg.Providers[name]
		marker := " "
		if name == a.cfg.ActiveProvider {
			marker = "*"
		}
		status := "ready"
		if p, err := provider.FromConfig(name, pcfg); err != nil {
			status = err.Error()
		} else if !p.IsAvailable() {
			status = "not reachable"
		}
		model := pcfg.Model
		if model == "" {
			model = "(no model)"
		}
		fmt.Fprintf(a.stdout, "%s %-12s %-16s %s\n", marker, name, model, status)
	}
	return nil
}

// runSet updates one provider field and persists the config.
func (a *App) runSet(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: niko set <provider> <field> <value>")
	}
	providerName, field, value := args[0], args[1], args[2]

	if _, ok := a.cfg.Providers[providerName]; !ok {
		if tmpl, ok := config.TemplateFor(providerName); ok {
			a.cfg.Providers[providerName] = tmpl
			fmt.Fprintf(a.stderr, "created provider '%s' from its template\n", providerName)
		}
	}
	a.cfg.SetProviderField(providerName, field, value)
	if err := config.Save(a.cfg, a.cfgPath); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s.%s updated\n", providerName, field)
	return nil
}

// runUse switches the active provider and persists the config.
func (a *App) runUse(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: niko use <provider>")
	}
	if err := a.cfg.SetActiveProvider(args[0]); err != nil {
		return err
	}
	if err := config.Save(a.cfg, a.cfgPath); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "active provider: %s\n", args[0])
	return nil
}
