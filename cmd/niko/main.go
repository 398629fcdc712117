// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the niko command line entry point. niko turns
// natural-language requests into shell commands and explanations, backed by
// interchangeable local or remote model providers.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/nikoshell/niko/internal/buildinfo"
	"github.com/nikoshell/niko/internal/cli"
	"github.com/nikoshell/niko/internal/config"
	"github.com/nikoshell/niko/internal/logging"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	// A local .env quietly augments the environment; absence is fine.
	_ = godotenv.Load()

	configPath := flag.String("config", config.DefaultPath(), "config file path")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	logging.SetVerbose(*verbose)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := logging.ConfigureLogOutput(cfg.LoggingToFile, config.Dir()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	if cfg.UI.Verbose && !*verbose {
		logging.SetVerbose(true)
	}
	log.Debugf("niko %s starting, config %s", buildinfo.Version, *configPath)

	app := cli.NewApp(cfg, *configPath, *verbose || cfg.UI.Verbose)
	os.Exit(app.Run(flag.Args()))
}
