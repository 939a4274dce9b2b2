package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks the override variables so the host environment cannot leak
// into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func testPaths(t *testing.T) Paths {
	t.Helper()
	home := t.TempDir()
	return DefaultPaths(home)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	paths := testPaths(t)

	cfg, err := Load(paths)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(paths.Home, ".config", "Noctalia", "config.json"), cfg.WallpaperConfig)
	assert.Equal(t, ExtractHistogram, cfg.Extraction)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 250, cfg.DebounceMS)
	require.Len(t, cfg.Mappings, 4)

	niri := cfg.Mappings[1]
	assert.Equal(t, "niri", niri.Name)
	assert.Equal(t, filepath.Join(paths.TemplatesDir, "niri.conf"), niri.Source)
	assert.Equal(t, filepath.Join(paths.Home, ".config", "niri", "theme.conf"), niri.Destination)
}

func TestLoad_TOMLOverlay(t *testing.T) {
	clearEnv(t)
	paths := testPaths(t)
	require.NoError(t, os.MkdirAll(paths.ConfigDir, 0o755))
	require.NoError(t, os.WriteFile(paths.ConfigFile, []byte(`
wallpaper_config = "~/wall.json"
extraction = "kmeans"

[[mappings]]
name = "kitty"
source = "kitty.conf"
destination = "kitty/theme.conf"
`), 0o644))

	cfg, err := Load(paths)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.Home, "wall.json"), cfg.WallpaperConfig)
	assert.Equal(t, ExtractKMeans, cfg.Extraction)
	assert.Equal(t, "info", cfg.LogLevel, "unset fields keep defaults")
	require.Len(t, cfg.Mappings, 1)
	assert.Equal(t, filepath.Join(paths.TemplatesDir, "kitty.conf"), cfg.Mappings[0].Source)
	assert.Equal(t, filepath.Join(paths.OutputDir, "kitty", "theme.conf"), cfg.Mappings[0].Destination)
}

func TestLoad_YAMLConfig(t *testing.T) {
	clearEnv(t)
	paths := testPaths(t)
	require.NoError(t, os.MkdirAll(paths.ConfigDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(paths.ConfigDir, "config.yaml"), []byte("log_level: debug\ndebounce_ms: 40\n"), 0o644))

	assert.Equal(t, filepath.Join(paths.ConfigDir, "config.yaml"), ConfigFilePath(paths))
	cfg, err := Load(paths)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 40, cfg.DebounceMS)
}

func TestLoad_MalformedIsError(t *testing.T) {
	clearEnv(t)
	paths := testPaths(t)
	require.NoError(t, os.MkdirAll(paths.ConfigDir, 0o755))
	require.NoError(t, os.WriteFile(paths.ConfigFile, []byte("extraction = ["), 0o644))

	_, err := Load(paths)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	paths := testPaths(t)
	require.NoError(t, os.MkdirAll(paths.ConfigDir, 0o755))
	require.NoError(t, os.WriteFile(paths.ConfigFile, []byte(`
extraction = "median"
debounce_ms = -5

[[mappings]]
name = "a"
source = "a.css"

[[mappings]]
name = "a"
source = "b.css"
destination = "b.css"
`), 0o644))

	_, err := Load(paths)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `unknown extraction method "median"`)
	assert.Contains(t, msg, "debounce_ms must not be negative")
	assert.Contains(t, msg, "mapping a: destination is required")
	assert.Contains(t, msg, "mapping a: duplicate name")
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	paths := testPaths(t)
	require.NoError(t, os.MkdirAll(paths.ConfigDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(paths.ConfigDir, ".env"), []byte(
		"MONOTHEMATIC_EXTRACTION=kmeans\nMONOTHEMATIC_DEBOUNCE_MS=900\nMONOTHEMATIC_LOG_LEVEL=warn\n"), 0o644))
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvWallpaperConfig, "/srv/wall.json")

	cfg, err := Load(paths)
	require.NoError(t, err)
	assert.Equal(t, ExtractKMeans, cfg.Extraction)
	assert.Equal(t, 900, cfg.DebounceMS)
	assert.Equal(t, "debug", cfg.LogLevel, "process env wins over .env")
	assert.Equal(t, "/srv/wall.json", cfg.WallpaperConfig)
}

func TestEnvOverrides_BadDebounceIgnored(t *testing.T) {
	cfg := EnvOverrides{EnvDebounceMS: "soon"}.Apply(Config{DebounceMS: 10})
	assert.Equal(t, 10, cfg.DebounceMS)
}

func TestEnsureUserConfig(t *testing.T) {
	clearEnv(t)
	paths := testPaths(t)

	wrote, err := EnsureUserConfig(paths)
	require.NoError(t, err)
	assert.True(t, wrote)

	data, err := os.ReadFile(paths.ConfigFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "wallpaper_config")

	wrote, err = EnsureUserConfig(paths)
	require.NoError(t, err)
	assert.False(t, wrote, "existing config is left alone")

	cfg, err := Load(paths)
	require.NoError(t, err)
	assert.Len(t, cfg.Mappings, 4)
}

func TestExpandPath(t *testing.T) {
	t.Setenv("MONO_TEST_DIR", "/data")
	assert.Equal(t, "/home/u", ExpandPath("~", "/home/u"))
	assert.Equal(t, "/home/u/a/b", ExpandPath("~/a/b", "/home/u"))
	assert.Equal(t, "/data/x", ExpandPath("$MONO_TEST_DIR/x", "/home/u"))
	assert.Equal(t, "rel/x", ExpandPath("rel/x", "/home/u"))
	assert.Equal(t, "", ExpandPath("", "/home/u"))
}
