// Package app orchestrates theme runs: wallpaper to seed to palette to
// recolored templates on disk, once or in response to file changes.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kastheco/monothematic/config"
	"github.com/kastheco/monothematic/config/runfsm"
	"github.com/kastheco/monothematic/config/runstate"
	"github.com/kastheco/monothematic/config/schemestore"
	"github.com/kastheco/monothematic/internal/wallpaper"
	"github.com/kastheco/monothematic/log"
	"github.com/kastheco/monothematic/palette"
	"github.com/kastheco/monothematic/recolor"
)

// ErrSuperseded is returned by a run abandoned in favor of a newer trigger.
var ErrSuperseded = errors.New("run superseded by a newer trigger")

const renderConcurrency = 4

// TemplateOutcome is the result of one mapping within a run.
type TemplateOutcome struct {
	Name         string
	Source       string
	Destination  string
	Replacements int
	Skipped      bool   // source template does not exist
	Content      string // rendered output, empty when skipped
}

// Outcome describes a completed (or dry) run.
type Outcome struct {
	RunID      string
	Wallpaper  string
	Seed       palette.Color
	CachedSeed bool
	Palette    palette.Palette
	Templates  []TemplateOutcome
	DryRun     bool
}

// Runner executes theme runs for one configuration. Runs are serialized; a
// run that is overtaken by a newer trigger before it commits is abandoned
// with ErrSuperseded and writes nothing.
type Runner struct {
	cfg   config.Config
	paths config.Paths
	seeds *config.SeedCache
	store schemestore.Store

	mu  sync.Mutex    // held for the whole run
	gen atomic.Uint64 // bumped on every trigger

	newID func() string
	now   func() time.Time

	afterRender func() // called between render and commit
}

// runnerOption adjusts a Runner at construction.
type runnerOption func(*Runner)

// NewRunner creates a runner for cfg. Seeds are cached in the config dir.
func NewRunner(cfg config.Config, paths config.Paths) *Runner {
	return newRunner(cfg, paths)
}

func newRunner(cfg config.Config, paths config.Paths, opts ...runnerOption) *Runner {
	seeds := config.NewSeedCache(paths.ConfigDir)
	if err := seeds.Load(); err != nil {
		log.Warn("runner", "ignoring unreadable seed cache: %v", err)
		seeds = config.NewSeedCache(paths.ConfigDir)
	}
	r := &Runner{
		cfg:   cfg,
		paths: paths,
		seeds: seeds,
		newID: func() string { return uuid.New().String() },
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetStore attaches a scheme store that every successful run publishes to.
func (r *Runner) SetStore(s schemestore.Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store = s
}

// Config returns the runner's configuration.
func (r *Runner) Config() config.Config {
	return r.cfg
}

// RunOnce performs a full run and commits the scheme file and every rendered
// template.
func (r *Runner) RunOnce(ctx context.Context) (*Outcome, error) {
	return r.run(ctx, false)
}

// RenderOnly performs a run without writing anything: no scheme file, no
// templates, no run history, no seed cache.
func (r *Runner) RenderOnly(ctx context.Context) (*Outcome, error) {
	return r.run(ctx, true)
}

func (r *Runner) superseded(gen uint64) bool {
	return r.gen.Load() != gen
}

func (r *Runner) run(ctx context.Context, dryRun bool) (_ *Outcome, err error) {
	gen := r.gen.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()

	started := r.now()
	stateDir := r.paths.ConfigDir
	if dryRun {
		stateDir = ""
	}
	runID := r.newID()
	fsm := runfsm.NewWithClock(stateDir, runID, r.now)
	out := &Outcome{RunID: runID, DryRun: dryRun}

	defer func() {
		status := fsm.Status()
		switch {
		case errors.Is(err, ErrSuperseded):
			if terr := fsm.Transition(runfsm.Supersede); terr != nil {
				log.Error("runner", terr, "record superseded run")
			}
			log.Info("runner", "run %s superseded", runID)
		case err != nil:
			if terr := fsm.TransitionFailed(err); terr != nil {
				log.Error("runner", terr, "record failed run")
			}
			log.Error("runner", err, "run %s failed during %s", runID, status)
		}
		if !dryRun {
			MetricRuns.WithLabelValues(string(fsm.Status())).Inc()
			MetricRunDuration.Observe(r.now().Sub(started).Seconds())
		}
	}()

	if err := fsm.Transition(runfsm.Resolve); err != nil {
		return nil, err
	}
	if r.superseded(gen) {
		return nil, ErrSuperseded
	}

	wall, err := wallpaper.FindPath(r.cfg.WallpaperConfig, r.paths.Home)
	if err != nil {
		return nil, err
	}
	out.Wallpaper = wall
	seed, cached, err := r.seedFor(ctx, wall, dryRun)
	if err != nil {
		return nil, err
	}
	out.Seed, out.CachedSeed = seed, cached
	log.Debug("runner", "seed %s from %s (cached=%t)", seed.CSS(), wall, cached)

	if err := fsm.Transition(runfsm.Generate); err != nil {
		return nil, err
	}
	if r.superseded(gen) {
		return nil, ErrSuperseded
	}
	out.Palette = palette.Generate(seed)
	scheme, err := out.Palette.EncodeScheme()
	if err != nil {
		return nil, fmt.Errorf("encode scheme: %w", err)
	}

	if err := fsm.Transition(runfsm.Render); err != nil {
		return nil, err
	}
	if r.superseded(gen) {
		return nil, ErrSuperseded
	}
	out.Templates, err = r.render(ctx, out.Palette)
	if err != nil {
		return nil, err
	}
	if r.afterRender != nil {
		r.afterRender()
	}
	if r.superseded(gen) {
		return nil, ErrSuperseded
	}

	fsm.Annotate(func(e *runstate.RunEntry) {
		e.Wallpaper = wall
		e.Seed = seed.CSS()
		for _, t := range out.Templates {
			e.Templates = append(e.Templates, runstate.TemplateResult{
				Name:         t.Name,
				Destination:  t.Destination,
				Replacements: t.Replacements,
				Skipped:      t.Skipped,
			})
		}
	})

	if dryRun {
		return out, nil
	}

	if err := fsm.Transition(runfsm.Commit); err != nil {
		return nil, err
	}
	if err := r.commit(scheme, out.Templates); err != nil {
		return nil, err
	}
	if err := fsm.Transition(runfsm.Finish); err != nil {
		log.Error("runner", err, "record run %s", out.RunID)
	}

	if r.store != nil {
		r.store.Publish(out.Palette)
	}
	for _, t := range out.Templates {
		if !t.Skipped {
			MetricReplacements.WithLabelValues(t.Name).Add(float64(t.Replacements))
		}
	}
	MetricLastSuccess.Set(float64(r.now().Unix()))
	log.Info("runner", "run %s applied seed %s to %d templates", out.RunID, seed.Hex(), countApplied(out.Templates))
	return out, nil
}

// seedFor returns the dominant color of the wallpaper, from the seed cache
// when the image is unchanged.
func (r *Runner) seedFor(ctx context.Context, path string, dryRun bool) (palette.Color, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return palette.Color{}, false, fmt.Errorf("stat wallpaper: %w", err)
	}
	method := r.cfg.Extraction
	if seed, ok := r.seeds.Lookup(path, info, method); ok {
		MetricSeedCache.WithLabelValues("hit").Inc()
		return seed, true, nil
	}
	MetricSeedCache.WithLabelValues("miss").Inc()

	seed, err := wallpaper.Extract(ctx, path, method)
	if err != nil {
		return palette.Color{}, false, err
	}
	if !dryRun {
		r.seeds.Remember(path, info, method, seed)
		if err := r.seeds.Save(); err != nil {
			log.Warn("runner", "could not save seed cache: %v", err)
		}
	}
	return seed, false, nil
}

// render recolors every mapping's source in memory. A missing source is
// skipped with a warning; any other read failure fails the run.
func (r *Runner) render(ctx context.Context, p palette.Palette) ([]TemplateOutcome, error) {
	results := make([]TemplateOutcome, len(r.cfg.Mappings))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(renderConcurrency)

	for i, m := range r.cfg.Mappings {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := TemplateOutcome{Name: m.Name, Source: m.Source, Destination: m.Destination}
			data, err := os.ReadFile(m.Source)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					log.Warn("runner", "template %s: source %s does not exist, skipping", m.Name, m.Source)
					res.Skipped = true
					results[i] = res
					return nil
				}
				return fmt.Errorf("read template %s: %w", m.Name, err)
			}
			applied := recolor.Apply(string(data), p)
			res.Replacements = len(applied.Replacements)
			res.Content = applied.Text
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// commit stages the scheme file and every rendered template as temp files
// next to their destinations, then renames them into place, scheme first. A
// failed write removes every staged file and leaves all destinations as they
// were.
func (r *Runner) commit(scheme []byte, templates []TemplateOutcome) error {
	type staged struct{ tmp, dest, name string }
	var files []staged
	cleanup := func() {
		for _, f := range files {
			os.Remove(f.tmp)
		}
	}

	tmp, err := stageFile(r.cfg.SchemeFile, scheme)
	if err != nil {
		return fmt.Errorf("write scheme: %w", err)
	}
	files = append(files, staged{tmp: tmp, dest: r.cfg.SchemeFile, name: "scheme"})

	for _, t := range templates {
		if t.Skipped {
			continue
		}
		tmp, err := stageFile(t.Destination, []byte(t.Content))
		if err != nil {
			cleanup()
			return fmt.Errorf("write template %s: %w", t.Name, err)
		}
		files = append(files, staged{tmp: tmp, dest: t.Destination, name: t.Name})
	}

	for i, f := range files {
		if err := os.Rename(f.tmp, f.dest); err != nil {
			files = files[i:]
			cleanup()
			return fmt.Errorf("install %s: %w", f.name, err)
		}
		log.Debug("runner", "wrote %s", f.dest)
	}
	return nil
}

func countApplied(ts []TemplateOutcome) int {
	n := 0
	for _, t := range ts {
		if !t.Skipped {
			n++
		}
	}
	return n
}

// writeFileAtomic replaces path with data via a temp file in the same
// directory, creating parent directories as needed. An existing file keeps
// its mode.
func writeFileAtomic(path string, data []byte) error {
	tmpPath, err := stageFile(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// stageFile writes data to a temp file beside path and returns its name. The
// temp file carries the mode of an existing file at path, else 0644.
func stageFile(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	return tmpPath, nil
}

// LastRuns returns recent run history, newest first.
func LastRuns(paths config.Paths) ([]runstate.RunEntry, error) {
	rs, err := runstate.Load(paths.ConfigDir)
	if err != nil {
		return nil, err
	}
	return rs.Runs, nil
}
