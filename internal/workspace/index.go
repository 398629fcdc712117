// Copyright 2026 The niko Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package workspace maintains a term-overlap index of the files around the
// user, used to pull relevant snippets into prompts. It is a collaborator of
// the explanation pipeline, never a dependency of it.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/nikoshell/niko/internal/util"
)

const (
	defaultMaxFiles     = 500
	defaultMaxFileBytes = 256 * 1024
	minTermLength       = 3
)

type indexedFile struct {
	Path         string          `json:"path"`
	Content      string          `json:"content"`
	Terms        map[string]bool `json:"terms"`
	ModifiedUnix int64           `json:"modified_unix"`
	Size         int64           `json:"size"`
}

// Index is a rebuildable term index over the text files beneath a root.
// All methods are safe for concurrent use.
type Index struct {
	mu   sync.RWMutex
	root string

	entries      []indexedFile
	indexedFiles int
	skippedFiles int
	builtUnix    int64

	maxFiles     int
	maxFileBytes int64
}

// Snippet is one retrieval hit: a relative path and a (possibly truncated)
// slice of its content.
type Snippet struct {
	Path    string
	Content string
}

// New returns an empty index over root. Call Refresh (or LoadCache) before
// querying.
func New(root string) *Index {
	return &Index{
		root:         root,
		maxFiles:     defaultMaxFiles,
		maxFileBytes: defaultMaxFileBytes,
	}
}

// Stats reports how many files the last build indexed and skipped.
func (ix *Index) Stats() (indexed, skipped int) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.indexedFiles, ix.skippedFiles
}

// Refresh rebuilds the index, reusing entries whose size and mtime have not
// changed so unchanged files are not re-read.
func (ix *Index) Refresh() {
	ix.mu.RLock()
	existing := make(map[string]indexedFile, len(ix.entries))
	for _, e := range ix.entries {
		existing[e.Path] = e
	}
	ix.mu.RUnlock()

	var entries []indexedFile
	skipped := 0
	for _, cand := range collectCandidates(ix.root, ix.maxFiles, ix.maxFileBytes, &skipped) {
		if len(entries) >= ix.maxFiles {
			break
		}
		if old, ok := existing[cand.rel]; ok &&
			old.ModifiedUnix == cand.modifiedUnix && old.Size == cand.size {
			entries = append(entries, old)
			continue
		}

		raw, err := os.ReadFile(cand.path)
		if err != nil {
			skipped++
			continue
		}
		content := string(raw)
		entries = append(entries, indexedFile{
			Path:         cand.rel,
			Content:      content,
			Terms:        extractTerms(content),
			ModifiedUnix: cand.modifiedUnix,
			Size:         cand.size,
		})
	}

	ix.mu.Lock()
	ix.entries = entries
	ix.indexedFiles = len(entries)
	ix.skippedFiles = skipped
	ix.builtUnix = time.Now().Unix()
	ix.mu.Unlock()
}

// cacheFile is the serialized index shape.
type cacheFile struct {
	Root         string        `json:"root"`
	Entries      []indexedFile `json:"entries"`
	IndexedFiles int           `json:"indexed_files"`
	SkippedFiles int           `json:"skipped_files"`
	BuiltUnix    int64         `json:"built_unix"`
}

// LoadCache restores a previously saved index so the first Refresh after
// startup can be incremental.
func (ix *Index) LoadCache(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read index cache: %w", err)
	}
	var cf cacheFile
	if err := json.Unmarshal(raw, &cf); err != nil {
		return fmt.Errorf("parse index cache %s: %w", path, err)
	}

	ix.mu.Lock()
	ix.entries = cf.Entries
	ix.indexedFiles = cf.IndexedFiles
	ix.skippedFiles = cf.SkippedFiles
	ix.builtUnix = cf.BuiltUnix
	ix.mu.Unlock()
	return nil
}

// SaveCache writes the current index to path, creating parent directories.
func (ix *Index) SaveCache(path string) error {
	ix.mu.RLock()
	cf := cacheFile{
		Root:         ix.root,
		Entries:      ix.entries,
		IndexedFiles: ix.indexedFiles,
		SkippedFiles: ix.skippedFiles,
		BuiltUnix:    ix.builtUnix,
	}
	ix.mu.RUnlock()

	raw, err := json.Marshal(cf)
	if err != nil {
		return fmt.Errorf("encode index cache: %w", err)
	}
	if err := util.AtomicWrite(path, raw, 0o644); err != nil {
		return fmt.Errorf("write index cache: %w", err)
	}
	return nil
}

// Search returns up to topK relative paths matching query: path substring
// matches first, term-overlap matches as fallback.
func (ix *Index) Search(query string, topK int) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	q := strings.ToLower(query)
	var out []string
	for _, e := range ix.entries {
		if strings.Contains(strings.ToLower(e.Path), q) {
			out = append(out, e.Path)
			if len(out) >= topK {
				return out
			}
		}
	}
	if len(out) > 0 {
		return out
	}

	for _, hit := range ix.score(extractTerms(query), topK) {
		out = append(out, hit.Path)
	}
	return out
}

// Retrieve returns the topK highest-overlap files for query, each truncated
// to maxChars of content.
func (ix *Index) Retrieve(query string, topK, maxChars int) []Snippet {
	queryTerms := extractTerms(query)
	if len(queryTerms) == 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []Snippet
	for _, hit := range ix.score(queryTerms, topK) {
		content := hit.Content
		if len(content) > maxChars {
			end := maxChars
			// Back off to a rune boundary.
			for end > 0 && content[end]&0xC0 == 0x80 {
				end--
			}
			content = content[:end] + "\n[...truncated]"
		}
		out = append(out, Snippet{Path: hit.Path, Content: content})
	}
	return out
}

// score ranks entries by term overlap, descending, ties broken by path for a
// deterministic order. Caller holds at least a read lock.
func (ix *Index) score(queryTerms map[string]bool, topK int) []indexedFile {
	type scored struct {
		overlap int
		entry   indexedFile
	}
	var hits []scored
	for _, e := range ix.entries {
		overlap := 0
		for t := range queryTerms {
			if e.Terms[t] {
				overlap++
			}
		}
		if overlap > 0 {
			hits = append(hits, scored{overlap, e})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].overlap != hits[j].overlap {
			return hits[i].overlap > hits[j].overlap
		}
		return hits[i].entry.Path < hits[j].entry.Path
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	out := make([]indexedFile, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.entry)
	}
	return out
}

type candidate struct {
	path         string
	rel          string
	modifiedUnix int64
	size         int64
}

var ignoredDirs = map[string]bool{
	".git": true, "target": true, "node_modules": true, ".venv": true,
	"venv": true, ".idea": true, ".vscode": true, "dist": true, "build": true,
}

var textExtensions = map[string]bool{
	".rs": true, ".py": true, ".js": true, ".ts": true, ".tsx": true,
	".jsx": true, ".java": true, ".go": true, ".c": true, ".h": true,
	".cpp": true, ".hpp": true, ".cs": true, ".rb": true, ".php": true,
	".sh": true, ".zsh": true, ".toml": true, ".yaml": true, ".yml": true,
	".json": true, ".md": true, ".txt": true, ".sql": true, ".html": true,
	".css": true, ".scss": true,
}

func looksLikeTextFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == "" || textExtensions[ext]
}

func collectCandidates(root string, maxFiles int, maxFileBytes int64, skipped *int) []candidate {
	var out []candidate
	stack := []string{root}

	for len(stack) > 0 && len(out) < maxFiles {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		items, err := os.ReadDir(dir)
		if err != nil {
			*skipped++
			continue
		}
		for _, item := range items {
			path := filepath.Join(dir, item.Name())
			if item.IsDir() {
				if !ignoredDirs[strings.ToLower(item.Name())] {
					stack = append(stack, path)
				}
				continue
			}
			if len(out) >= maxFiles || !item.Type().IsRegular() || !looksLikeTextFile(path) {
				*skipped++
				continue
			}
			info, err := item.Info()
			if err != nil || info.Size() > maxFileBytes {
				*skipped++
				continue
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				rel = path
			}
			out = append(out, candidate{
				path:         path,
				rel:          rel,
				modifiedUnix: info.ModTime().Unix(),
				size:         info.Size(),
			})
		}
	}
	return out
}

// extractTerms lowercases and splits on non-word runes, keeping tokens of at
// least minTermLength characters.
func extractTerms(input string) map[string]bool {
	terms := make(map[string]bool)
	var buf strings.Builder
	flush := func() {
		if buf.Len() >= minTermLength {
			terms[buf.String()] = true
		}
		buf.Reset()
	}
	for _, ch := range input {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9', ch == '_':
			buf.WriteRune(ch)
		case ch >= 'A' && ch <= 'Z':
			buf.WriteRune(ch + ('a' - 'A'))
		default:
			flush()
		}
	}
	flush()
	return terms
}
