package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kastheco/monothematic/log"
)

// WatchHooks receive watch progress. Hooks are never called concurrently.
type WatchHooks struct {
	Triggered func(reason string)   // a run is about to start
	Finished  func(*Outcome, error) // a run ended
}

// Watch runs once, then reruns whenever the wallpaper config or a template
// changes, until ctx is done. Bursts of events within the configured debounce
// window trigger a single run. notify, if non-nil, receives every run result.
// Run errors are logged and do not stop the watch.
func Watch(ctx context.Context, r *Runner, notify func(*Outcome, error)) error {
	return WatchHooked(ctx, r, WatchHooks{Finished: notify})
}

// WatchHooked is Watch reporting both the start and the end of every run.
func WatchHooked(ctx context.Context, r *Runner, hooks WatchHooks) error {
	cfg := r.Config()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch directories, not files: editors and shells replace files by
	// rename, which drops a watch on the file itself. Until the wallpaper
	// config's directory exists, its nearest existing ancestor is watched.
	wallDir := filepath.Clean(filepath.Dir(cfg.WallpaperConfig))
	watched := nearestExisting(wallDir)
	if err := watcher.Add(watched); err != nil {
		return fmt.Errorf("watch %s: %w", watched, err)
	}
	if watched != wallDir {
		log.Warn("watch", "%s does not exist yet, watching %s until it appears", wallDir, watched)
	}
	if info, err := os.Stat(cfg.TemplatesDir); err == nil && info.IsDir() {
		if err := watcher.Add(cfg.TemplatesDir); err != nil {
			return fmt.Errorf("watch %s: %w", cfg.TemplatesDir, err)
		}
	}
	log.Info("watch", "watching %s for changes", cfg.WallpaperConfig)

	var (
		wg       sync.WaitGroup
		notifyMu sync.Mutex // one hook call at a time
	)
	defer wg.Wait()
	trigger := func(reason string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Debug("watch", "run triggered by %s", reason)
			if hooks.Triggered != nil {
				notifyMu.Lock()
				hooks.Triggered(reason)
				notifyMu.Unlock()
			}
			out, err := r.RunOnce(ctx)
			if err != nil && !errors.Is(err, ErrSuperseded) && ctx.Err() == nil {
				log.Error("watch", err, "run failed; waiting for the next change")
			}
			if hooks.Finished != nil {
				notifyMu.Lock()
				hooks.Finished(out, err)
				notifyMu.Unlock()
			}
		}()
	}

	trigger("startup")

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	pending := ""
	schedule := func(reason string) {
		MetricWatchEvents.Inc()
		pending = reason
		timer.Reset(cfg.Debounce())
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if watched != wallDir && ev.Has(fsnotify.Create) && isAncestor(ev.Name, wallDir) {
				next := nearestExisting(wallDir)
				if next != watched {
					if err := watcher.Add(next); err != nil {
						log.Error("watch", err, "watch %s", next)
						continue
					}
					if watched != filepath.Clean(cfg.TemplatesDir) {
						watcher.Remove(watched)
					}
					watched = next
					log.Debug("watch", "now watching %s", watched)
				}
				// The config may have been written before the new watch
				// was in place.
				if watched == wallDir {
					if _, err := os.Stat(cfg.WallpaperConfig); err == nil {
						schedule(cfg.WallpaperConfig)
					}
				}
				continue
			}
			if !relevant(ev, cfg.WallpaperConfig, cfg.TemplatesDir) {
				continue
			}
			schedule(ev.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("watch", err, "watcher error")

		case <-timer.C:
			trigger(pending)
			pending = ""
		}
	}
}

// relevant reports whether ev should trigger a run: any change to the
// wallpaper config file, or to a file in the templates dir. Pure chmods are
// ignored.
func relevant(ev fsnotify.Event, wallpaperConfig, templatesDir string) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Clean(ev.Name)
	if name == filepath.Clean(wallpaperConfig) {
		return true
	}
	return templatesDir != "" && filepath.Dir(name) == filepath.Clean(templatesDir)
}

// nearestExisting returns dir if it is an existing directory, else its
// closest existing ancestor.
func nearestExisting(dir string) string {
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

// isAncestor reports whether dir is path or one of its parents.
func isAncestor(dir, path string) bool {
	dir = filepath.Clean(dir)
	return dir == path || strings.HasPrefix(path, dir+string(filepath.Separator))
}
