package app

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kastheco/monothematic/config"
	"github.com/kastheco/monothematic/config/runstate"
	"github.com/kastheco/monothematic/config/schemestore"
	"github.com/kastheco/monothematic/internal/scaffold"
	"github.com/kastheco/monothematic/internal/wallpaper"
	"github.com/kastheco/monothematic/palette"
	"github.com/kastheco/monothematic/recolor"
)

type testEnv struct {
	paths     config.Paths
	cfg       config.Config
	wallpaper string
	outDir    string
}

func writeSolidPNG(t *testing.T, path string, size int, c color.NRGBA) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

// newTestEnv lays out a home dir with a wallpaper, a shell config pointing at
// it, the bundled templates and a config whose outputs land under home/out.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	paths := config.DefaultPaths(home)

	wall := filepath.Join(home, "Pictures", "wall.png")
	writeSolidPNG(t, wall, 8, color.NRGBA{R: 40, G: 90, B: 160, A: 255})

	shellCfg := filepath.Join(home, ".config", "Noctalia", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(shellCfg), 0o755))
	require.NoError(t, os.WriteFile(shellCfg, []byte(`{"wallpaper": {"current": "~/Pictures/wall.png"}}`), 0o644))

	_, err := scaffold.SeedTemplates(paths.TemplatesDir, false)
	require.NoError(t, err)

	out := filepath.Join(home, "out")
	cfg := config.Config{
		WallpaperConfig: shellCfg,
		TemplatesDir:    paths.TemplatesDir,
		OutputDir:       paths.OutputDir,
		SchemeFile:      paths.SchemeFile,
		Extraction:      config.ExtractHistogram,
		DebounceMS:      20,
	}
	for _, name := range []string{"gtk3.css", "niri.conf"} {
		cfg.Mappings = append(cfg.Mappings, config.Mapping{
			Name:        name,
			Source:      filepath.Join(paths.TemplatesDir, name),
			Destination: filepath.Join(out, name),
		})
	}
	return &testEnv{paths: paths, cfg: cfg, wallpaper: wall, outDir: out}
}

// withAfterRender installs fn between rendering and commit.
func withAfterRender(fn func()) runnerOption {
	return func(r *Runner) { r.afterRender = fn }
}

func (e *testEnv) runner() *Runner {
	return NewRunner(e.cfg, e.paths)
}

func loadRuns(t *testing.T, e *testEnv) []runstate.RunEntry {
	t.Helper()
	runs, err := LastRuns(e.paths)
	require.NoError(t, err)
	return runs
}

func TestRunOnce_CommitsSchemeAndTemplates(t *testing.T) {
	env := newTestEnv(t)
	doneBefore := testutil.ToFloat64(MetricRuns.WithLabelValues("done"))

	out, err := env.runner().RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, env.wallpaper, out.Wallpaper)
	assert.False(t, out.CachedSeed)
	assert.NotEmpty(t, out.RunID)

	scheme, err := os.ReadFile(env.cfg.SchemeFile)
	require.NoError(t, err)
	want, err := out.Palette.EncodeScheme()
	require.NoError(t, err)
	assert.Equal(t, string(want), string(scheme))

	require.Len(t, out.Templates, 2)
	for _, tmpl := range out.Templates {
		src, err := os.ReadFile(tmpl.Source)
		require.NoError(t, err)
		got, err := os.ReadFile(tmpl.Destination)
		require.NoError(t, err)
		assert.Equal(t, recolor.Recolor(string(src), out.Palette), string(got))
		assert.Equal(t, len(recolor.Scan(string(src))), tmpl.Replacements)
		assert.Greater(t, tmpl.Replacements, 0)
	}

	runs := loadRuns(t, env)
	require.Len(t, runs, 1)
	assert.Equal(t, out.RunID, runs[0].ID)
	assert.Equal(t, "done", runs[0].Status)
	assert.Equal(t, out.Seed.CSS(), runs[0].Seed)
	assert.Len(t, runs[0].Templates, 2)

	assert.Equal(t, doneBefore+1, testutil.ToFloat64(MetricRuns.WithLabelValues("done")))
}

func TestRunOnce_SeedCacheHitOnSecondRun(t *testing.T) {
	env := newTestEnv(t)

	first, err := env.runner().RunOnce(context.Background())
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(env.paths.ConfigDir, "seed-cache.json"))
	require.NoError(t, err)

	// A fresh runner loads the cache from disk.
	second, err := env.runner().RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, second.CachedSeed)
	assert.Equal(t, first.Seed.Hex(), second.Seed.Hex())

	// Changing the image invalidates the entry.
	writeSolidPNG(t, env.wallpaper, 64, color.NRGBA{R: 200, G: 60, B: 30, A: 255})
	third, err := env.runner().RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, third.CachedSeed)
	assert.NotEqual(t, first.Seed.Hex(), third.Seed.Hex())
}

func TestRunOnce_MissingTemplateSkipped(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Mappings = append(env.cfg.Mappings, config.Mapping{
		Name:        "kitty",
		Source:      filepath.Join(env.paths.TemplatesDir, "kitty.conf"),
		Destination: filepath.Join(env.outDir, "kitty.conf"),
	})

	out, err := env.runner().RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Templates, 3)
	assert.True(t, out.Templates[2].Skipped)
	assert.Equal(t, "kitty", out.Templates[2].Name)

	_, err = os.Stat(filepath.Join(env.outDir, "kitty.conf"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(env.outDir, "gtk3.css"))
	assert.NoError(t, err)
}

func TestRunOnce_NoWallpaperFailsWithoutWriting(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.Remove(env.wallpaper))

	_, err := env.runner().RunOnce(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, wallpaper.ErrNoWallpaper))

	_, statErr := os.Stat(env.cfg.SchemeFile)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(env.outDir)
	assert.True(t, os.IsNotExist(statErr))

	runs := loadRuns(t, env)
	require.Len(t, runs, 1)
	assert.Equal(t, "failed", runs[0].Status)
	assert.Contains(t, runs[0].Error, "no wallpaper found")
}

func TestRunOnce_UnreadableTemplateFails(t *testing.T) {
	env := newTestEnv(t)
	// A directory where a file is expected cannot be read.
	env.cfg.Mappings[0].Source = env.paths.TemplatesDir

	_, err := env.runner().RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read template gtk3.css")

	_, statErr := os.Stat(env.cfg.SchemeFile)
	assert.True(t, os.IsNotExist(statErr), "nothing is written when a render fails")
}

func TestRenderOnly_WritesNothing(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.runner().RenderOnly(context.Background())
	require.NoError(t, err)
	assert.True(t, out.DryRun)
	require.Len(t, out.Templates, 2)
	assert.NotEmpty(t, out.Templates[0].Content)

	for _, p := range []string{
		env.cfg.SchemeFile,
		env.outDir,
		filepath.Join(env.paths.ConfigDir, "state.json"),
		filepath.Join(env.paths.ConfigDir, "seed-cache.json"),
	} {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), p)
	}
}

func TestRunOnce_SupersededWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	var r *Runner
	bumped := false
	r = newRunner(env.cfg, env.paths, withAfterRender(func() {
		// A trigger lands while the first run is rendering.
		if !bumped {
			bumped = true
			r.gen.Add(1)
		}
	}))

	_, err := r.RunOnce(context.Background())
	require.ErrorIs(t, err, ErrSuperseded)

	_, statErr := os.Stat(env.cfg.SchemeFile)
	assert.True(t, os.IsNotExist(statErr))

	runs := loadRuns(t, env)
	require.Len(t, runs, 1)
	assert.Equal(t, "superseded", runs[0].Status)

	// The next trigger runs normally.
	_, err = r.RunOnce(context.Background())
	require.NoError(t, err)
}

func TestRunOnce_PublishesToStore(t *testing.T) {
	env := newTestEnv(t)
	store := schemestore.NewMemoryStore()
	r := env.runner()
	r.SetStore(store)

	out, err := r.RunOnce(context.Background())
	require.NoError(t, err)

	got, err := store.Scheme()
	require.NoError(t, err)
	assert.Equal(t, out.Palette, got)
}

func TestRunOnce_SchemeFileParses(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.runner().RunOnce(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(env.cfg.SchemeFile)
	require.NoError(t, err)
	var raw map[string]map[string]string
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Len(t, raw, len(out.Palette.Flatten()))

	parsed, err := palette.ParseScheme(data)
	require.NoError(t, err)
	assert.Equal(t, out.Palette.Flatten()[0].Hex, parsed.Flatten()[0].Hex)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a", "b", "theme.conf")

	require.NoError(t, writeFileAtomic(p, []byte("one")))
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	require.NoError(t, os.Chmod(p, 0o600))
	require.NoError(t, writeFileAtomic(p, []byte("two")))
	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(p))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestRunOnce_FailedWriteLeavesEverythingInPlace(t *testing.T) {
	env := newTestEnv(t)

	// The second mapping's destination sits under a regular file, so staging
	// it fails after the scheme and the first template were staged.
	blocker := filepath.Join(env.outDir, "blocker")
	require.NoError(t, os.MkdirAll(env.outDir, 0o755))
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	env.cfg.Mappings[1].Destination = filepath.Join(blocker, "niri.conf")

	_, err := env.runner().RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "niri.conf")

	_, statErr := os.Stat(env.cfg.SchemeFile)
	assert.True(t, os.IsNotExist(statErr), "scheme must not be installed")
	_, statErr = os.Stat(env.cfg.Mappings[0].Destination)
	assert.True(t, os.IsNotExist(statErr), "first template must not be installed")

	for _, dir := range []string{env.paths.ConfigDir, env.outDir} {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".tmp-", "staged file left in %s", dir)
		}
	}

	runs := loadRuns(t, env)
	require.Len(t, runs, 1)
	assert.Equal(t, "failed", runs[0].Status)
}
