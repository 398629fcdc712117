// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/nikoshell/niko/internal/workspace"
)

const (
	snippetCount    = 2
	snippetMaxChars = 600
)

// cachePath keeps the index cache next to the config file.
func (a *App) cachePath() string {
	return filepath.Join(filepath.Dir(a.cfgPath), "index.json")
}

// openWorkspace builds (or incrementally refreshes) the index over root,
// seeded from the on-disk cache when one exists.
func (a *App) openWorkspace(root string) *workspace.Index {
	ix := workspace.New(root)
	if err := ix.LoadCache(a.cachePath()); err != nil {
		log.Debugf("no usable index cache: %v", err)
	}
	ix.Refresh()
	if err := ix.SaveCache(a.cachePath()); err != nil {
		log.Warnf("could not save index cache: %v", err)
	}
	return ix
}

// workspaceContext renders retrieval hits for query as a prompt section, or
// "" when nothing in the workspace relates to it.
func workspaceContext(ix *workspace.Index, query string) string {
	snips := ix.Retrieve(query, snippetCount, snippetMaxChars)
	if len(snips) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nWORKSPACE CONTEXT (files near the user that may be relevant):\n")
	for _, s := range snips {
		fmt.Fprintf(&b, "--- %s ---\n%s\n", s.Path, s.Content)
	}
	return b.String()
}

// runIndex rebuilds the workspace index, and with -watch keeps it fresh
// until interrupted.
func (a *App) runIndex(args []string) error {
	fs := flag.NewFlagSet("index", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	root := fs.String("root", ".", "directory to index")
	watch := fs.Bool("watch", false, "keep refreshing the index as files change")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ix := a.openWorkspace(*root)
	indexed, skipped := ix.Stats()
	fmt.Fprintf(a.stdout, "indexed %d file(s), skipped %d\n", indexed, skipped)

	if !*watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	fmt.Fprintln(a.stderr, "watching for changes, ctrl-c to stop")
	err := ix.Watch(ctx)
	if saveErr := ix.SaveCache(a.cachePath()); saveErr != nil {
		log.Warnf("could not save index cache: %v", saveErr)
	}
	if err == context.Canceled {
		return nil
	}
	return err
}
