// Package wallpaper locates the current wallpaper through the desktop shell's
// config file and extracts a seed color from it.
package wallpaper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoWallpaper is returned when no usable wallpaper path can be found.
var ErrNoWallpaper = errors.New("no wallpaper found")

var (
	imagePathRe    = regexp.MustCompile(`(?i)\.(png|jpe?g|bmp|webp|tiff?)$`)
	wallpaperKeyRe = regexp.MustCompile(`(?i)wallpaper`)
)

// FindPath reads the shell config at configPath and returns the absolute path
// of the first existing wallpaper image it names. Keys containing "wallpaper"
// are searched before any other value. The config may be JSON or YAML.
func FindPath(configPath, home string) (string, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s does not exist", ErrNoWallpaper, configPath)
		}
		return "", fmt.Errorf("read wallpaper config: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("%w: parse %s: %v", ErrNoWallpaper, configPath, err)
	}

	candidate, ok := findImage(&doc)
	if !ok {
		return "", fmt.Errorf("%w in %s", ErrNoWallpaper, configPath)
	}

	p := resolveCandidate(candidate, filepath.Dir(configPath), home)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNoWallpaper, p, err)
	}
	return p, nil
}

// findImage walks n depth first and returns the first string that looks like
// an image path.
func findImage(n *yaml.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			if s, ok := findImage(c); ok {
				return s, true
			}
		}
	case yaml.MappingNode:
		// Content alternates key, value.
		for i := 0; i+1 < len(n.Content); i += 2 {
			if wallpaperKeyRe.MatchString(n.Content[i].Value) {
				if s, ok := findImage(n.Content[i+1]); ok {
					return s, true
				}
			}
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			if s, ok := findImage(n.Content[i+1]); ok {
				return s, true
			}
		}
	case yaml.AliasNode:
		return findImage(n.Alias)
	case yaml.ScalarNode:
		if n.ShortTag() == "!!str" && imagePathRe.MatchString(n.Value) {
			return n.Value, true
		}
	}
	return "", false
}

func resolveCandidate(p, dir, home string) string {
	switch {
	case p == "~":
		p = home
	case strings.HasPrefix(p, "~/"):
		p = filepath.Join(home, p[2:])
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	return filepath.Clean(p)
}
