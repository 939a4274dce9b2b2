// Package check audits a monothematic setup without changing anything.
package check

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kastheco/monothematic/config"
	"github.com/kastheco/monothematic/internal/wallpaper"
	"github.com/kastheco/monothematic/recolor"
)

// ItemStatus represents the state of a single audited item.
type ItemStatus int

const (
	StatusOK      ItemStatus = iota // present and usable
	StatusWarn                      // usable, but probably not what the user wants
	StatusMissing                   // does not exist
	StatusBroken                    // exists but cannot be used
)

func (s ItemStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarn:
		return "warn"
	case StatusMissing:
		return "missing"
	case StatusBroken:
		return "broken"
	default:
		return "unknown"
	}
}

// Item is one audited file or setting.
type Item struct {
	Label  string
	Path   string
	Status ItemStatus
	Detail string // e.g. literal count, error message
}

// TemplateResult holds audit results for one mapping.
type TemplateResult struct {
	Name        string
	Source      Item
	Destination Item
	Literals    int
}

// AuditResult is the complete output of monothematic check.
type AuditResult struct {
	ConfigFile string // "" when running on defaults
	Wallpaper  []Item
	Templates  []TemplateResult
}

// Audit inspects the wallpaper source and every template mapping of cfg.
func Audit(cfg config.Config, paths config.Paths) *AuditResult {
	res := &AuditResult{ConfigFile: config.ConfigFilePath(paths)}
	res.Wallpaper = auditWallpaper(cfg, paths.Home)
	for _, m := range cfg.Mappings {
		res.Templates = append(res.Templates, auditMapping(m))
	}
	return res
}

func auditWallpaper(cfg config.Config, home string) []Item {
	cfgItem := Item{Label: "wallpaper config", Path: cfg.WallpaperConfig}
	if _, err := os.Stat(cfg.WallpaperConfig); err != nil {
		cfgItem.Status = statusFor(err)
		cfgItem.Detail = err.Error()
		return []Item{cfgItem}
	}

	imgItem := Item{Label: "wallpaper"}
	p, err := wallpaper.FindPath(cfg.WallpaperConfig, home)
	if err != nil {
		imgItem.Status = StatusMissing
		imgItem.Detail = err.Error()
	} else {
		imgItem.Path = p
	}
	return []Item{cfgItem, imgItem}
}

func auditMapping(m config.Mapping) TemplateResult {
	tr := TemplateResult{
		Name:        m.Name,
		Source:      Item{Label: "source", Path: m.Source},
		Destination: Item{Label: "destination", Path: m.Destination},
	}

	data, err := os.ReadFile(m.Source)
	switch {
	case err != nil:
		tr.Source.Status = statusFor(err)
		tr.Source.Detail = err.Error()
	default:
		tr.Literals = len(recolor.Scan(string(data)))
		tr.Source.Detail = fmt.Sprintf("%d color literals", tr.Literals)
		if tr.Literals == 0 {
			tr.Source.Status = StatusWarn
		}
	}

	dir := filepath.Dir(m.Destination)
	info, err := os.Stat(dir)
	switch {
	case err != nil && errors.Is(err, os.ErrNotExist):
		tr.Destination.Status = StatusWarn
		tr.Destination.Detail = dir + " will be created"
	case err != nil:
		tr.Destination.Status = StatusBroken
		tr.Destination.Detail = err.Error()
	case !info.IsDir():
		tr.Destination.Status = StatusBroken
		tr.Destination.Detail = dir + " is not a directory"
	}
	return tr
}

func statusFor(err error) ItemStatus {
	if errors.Is(err, os.ErrNotExist) {
		return StatusMissing
	}
	return StatusBroken
}

// Summary returns (ok, total) counts across all checks. Warnings count as ok.
func (r *AuditResult) Summary() (int, int) {
	ok, total := 0, 0
	count := func(it Item) {
		total++
		if it.Status == StatusOK || it.Status == StatusWarn {
			ok++
		}
	}
	for _, it := range r.Wallpaper {
		count(it)
	}
	for _, t := range r.Templates {
		count(t.Source)
		count(t.Destination)
	}
	return ok, total
}
