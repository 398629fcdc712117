// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cli implements the niko subcommands on top of the provider,
// runtime, and chunker packages.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/nikoshell/niko/internal/buildinfo"
	"github.com/nikoshell/niko/internal/config"
)

const usageText = `niko — natural language for your terminal

Usage:
  niko cmd "<request>"          generate a shell command
  niko explain -f <file>        explain a file (use -f - for stdin)
  niko explain "<command>"      explain a command or tool
  niko models [-p provider]     list models for a provider
  niko providers                list configured providers
  niko set <provider> <field> <value>
  niko use <provider>           switch the active provider
  niko index [-root d] [-watch] rebuild the workspace file index
  niko version                  print build information

Global flags (before the subcommand):
  -config <path>   config file (default ~/.niko/config.yaml)
  -v               verbose logging
`

// App carries the loaded configuration through subcommand handlers.
type App struct {
	cfg     *config.Config
	cfgPath string
	verbose bool

	stdout io.Writer
	stderr io.Writer
}

// NewApp wires an App around a loaded config.
func NewApp(cfg *config.Config, cfgPath string, verbose bool) *App {
	return &App{
		cfg:     cfg,
		cfgPath: cfgPath,
		verbose: verbose,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
}

// Run dispatches a subcommand and returns the process exit code.
func (a *App) Run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(a.stderr, usageText)
		return 2
	}

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "cmd":
		err = a.runCmd(rest)
	case "explain":
		err = a.runExplain(rest)
	case "models":
		err = a.runModels(rest)
	case "providers":
		err = a.runProviders(rest)
	case "set":
		err = a.runSet(rest)
	case "use":
		err = a.runUse(rest)
	case "index":
		err = a.runIndex(rest)
	case "version":
		fmt.Fprintf(a.stdout, "niko %s (commit %s, built %s)\n",
			buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)
	case "help", "-h", "--help":
		fmt.Fprint(a.stdout, usageText)
	default:
		fmt.Fprintf(a.stderr, "unknown command %q\n\n%s", cmd, usageText)
		return 2
	}

	if err != nil {
		if err == flag.ErrHelp {
			return 2
		}
		fmt.Fprintf(a.stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

