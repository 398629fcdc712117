// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// refreshDebounce coalesces bursts of filesystem events into one rebuild.
const refreshDebounce = 500 * time.Millisecond

// Watch refreshes the index whenever files beneath the root change. It
// blocks until ctx is cancelled; run it in its own goroutine.
func (ix *Index) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	addTree := func(root string) {
		filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if ignoredDirs[strings.ToLower(d.Name())] {
					return filepath.SkipDir
				}
				if err := watcher.Add(path); err != nil {
					log.Debugf("watch %s: %v", path, err)
				}
			}
			return nil
		})
	}
	addTree(ix.root)

	debounce := time.NewTimer(refreshDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					addTree(ev.Name)
				}
			}
			debounce.Reset(refreshDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("workspace watcher: %v", err)
		case <-debounce.C:
			ix.Refresh()
		}
	}
}
