// Package scaffold seeds the user's templates directory with the bundled
// theme templates.
package scaffold

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

//go:embed templates
var templates embed.FS

// WriteResult tracks scaffold output for summary display.
type WriteResult struct {
	Path    string
	Created bool // true=written, false=skipped (file already existed)
}

// Names returns the bundled template file names in sorted order.
func Names() []string {
	entries, err := fs.ReadDir(templates, "templates")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// Template returns the content of a bundled template.
func Template(name string) ([]byte, error) {
	content, err := templates.ReadFile("templates/" + name)
	if err != nil {
		return nil, fmt.Errorf("read bundled template %s: %w", name, err)
	}
	return content, nil
}

// SeedTemplates copies the bundled templates into dir. Without force it only
// does so when dir is empty, so a user who has curated their own templates
// is left alone; with force every bundled file is rewritten.
func SeedTemplates(dir string, force bool) ([]WriteResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create templates dir: %w", err)
	}

	if !force {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read templates dir: %w", err)
		}
		if len(entries) > 0 {
			return nil, nil
		}
	}

	var results []WriteResult
	for _, name := range Names() {
		content, err := Template(name)
		if err != nil {
			return results, err
		}
		dest := filepath.Join(dir, name)
		written, err := writeFile(dest, content, force)
		if err != nil {
			return results, fmt.Errorf("write %s: %w", name, err)
		}
		results = append(results, WriteResult{Path: dest, Created: written})
	}
	return results, nil
}

// writeFile writes content to path. If force is false and the file exists, skip.
// Returns true if the file was actually written, false if skipped.
func writeFile(path string, content []byte, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return false, nil // skip existing
		}
	}
	return true, os.WriteFile(path, content, 0o644)
}
