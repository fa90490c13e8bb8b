// Package publish writes a build's files into the output directory.
//
// Every file is first written as <name>.tmp next to its target. Only when all
// temporaries are on disk are they renamed into place, with index.html last,
// so a static host never serves a page whose charts are missing.
package publish

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Index is the page file name. It is always renamed into place last.
const Index = "index.html"

// ErrBadName is returned for file names that are empty, contain a path
// separator, or try to escape the output directory.
var ErrBadName = errors.New("publish: invalid file name")

// File is one output file.
type File struct {
	Name string
	Data []byte
}

// Publisher writes files into Dir.
type Publisher struct {
	dir    string
	logger *slog.Logger
}

// New creates a Publisher for dir. The directory is created on first publish.
func New(dir string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{dir: dir, logger: logger}
}

// Dir returns the output directory.
func (p *Publisher) Dir() string { return p.dir }

// Publish writes files atomically. If any temporary cannot be written,
// nothing in the output directory changes.
func (p *Publisher) Publish(files []File) error {
	if len(files) == 0 {
		return nil
	}
	ordered := make([]File, len(files))
	copy(ordered, files)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Name != Index && ordered[j].Name == Index
	})

	seen := make(map[string]bool, len(ordered))
	targets := make([]string, len(ordered))
	for i, f := range ordered {
		target, err := safePath(p.dir, f.Name)
		if err != nil {
			return err
		}
		if seen[target] {
			return fmt.Errorf("publish: duplicate file %q", f.Name)
		}
		seen[target] = true
		targets[i] = target
	}

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("publish: mkdir %s: %w", p.dir, err)
	}

	var written []string
	cleanup := func() {
		for _, tmp := range written {
			os.Remove(tmp)
		}
	}
	for i, f := range ordered {
		tmp := targets[i] + ".tmp"
		if err := os.WriteFile(tmp, f.Data, 0o644); err != nil {
			cleanup()
			return fmt.Errorf("publish: write tmp %s: %w", f.Name, err)
		}
		written = append(written, tmp)
	}

	for i, target := range targets {
		if err := os.Rename(written[i], target); err != nil {
			cleanup()
			return fmt.Errorf("publish: rename %s: %w", ordered[i].Name, err)
		}
		written[i] = ""
	}

	p.logger.Info("publish: files written", "dir", p.dir, "files", len(ordered))
	return nil
}

// safePath joins base and name, refusing anything that is not a plain file
// name directly under base.
func safePath(base, name string) (string, error) {
	if name == "" || name == "." || strings.Contains(name, "..") ||
		strings.ContainsAny(name, `/\`) || strings.HasSuffix(name, ".tmp") {
		return "", fmt.Errorf("%w: %q", ErrBadName, name)
	}
	cleaned := filepath.Join(base, name)
	if filepath.Dir(cleaned) != filepath.Clean(base) {
		return "", fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return cleaned, nil
}
