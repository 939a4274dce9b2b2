package runstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MaxRuns is how many runs state.json keeps.
const MaxRuns = 20

const stateFile = "state.json"

// TemplateResult is one mapping's outcome within a run.
type TemplateResult struct {
	Name         string `json:"name"`
	Destination  string `json:"destination"`
	Replacements int    `json:"replacements"`
	Skipped      bool   `json:"skipped,omitempty"`
}

// RunEntry is one run in state.json.
type RunEntry struct {
	ID         string           `json:"id"`
	Status     string           `json:"status"`
	Wallpaper  string           `json:"wallpaper,omitempty"`
	Seed       string           `json:"seed,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at,omitempty"`
	Error      string           `json:"error,omitempty"`
	Templates  []TemplateResult `json:"templates,omitempty"`
}

// Duration is how long the run took, or zero if it never finished.
func (e RunEntry) Duration() time.Duration {
	if e.FinishedAt.IsZero() {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// RunState holds recent runs, newest first, and the directory they were
// loaded from.
type RunState struct {
	Dir  string
	Runs []RunEntry
}

// Load reads state.json from dir. Returns empty state if file missing.
func Load(dir string) (*RunState, error) {
	path := filepath.Join(dir, stateFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &RunState{Dir: dir}, nil
		}
		return nil, fmt.Errorf("read run state: %w", err)
	}

	var runs []RunEntry
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, fmt.Errorf("parse run state: %w", err)
	}
	return &RunState{Dir: dir, Runs: runs}, nil
}

// Record prepends entry, drops runs past MaxRuns, and persists to disk.
// An entry with an ID already present replaces it in place.
func (rs *RunState) Record(entry RunEntry) error {
	for i, r := range rs.Runs {
		if r.ID == entry.ID {
			rs.Runs[i] = entry
			return rs.save()
		}
	}

	rs.Runs = append([]RunEntry{entry}, rs.Runs...)
	if len(rs.Runs) > MaxRuns {
		rs.Runs = rs.Runs[:MaxRuns]
	}
	return rs.save()
}

// Last returns the most recent run.
func (rs *RunState) Last() (RunEntry, bool) {
	if len(rs.Runs) == 0 {
		return RunEntry{}, false
	}
	return rs.Runs[0], true
}

// LastWithStatus returns the most recent run in the given status.
func (rs *RunState) LastWithStatus(status string) (RunEntry, bool) {
	for _, r := range rs.Runs {
		if r.Status == status {
			return r, true
		}
	}
	return RunEntry{}, false
}

func (rs *RunState) save() error {
	data, err := json.MarshalIndent(rs.Runs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run state: %w", err)
	}

	if err := os.MkdirAll(rs.Dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	path := filepath.Join(rs.Dir, stateFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write run state: %w", err)
	}

	return nil
}
