package cmd

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kastheco/monothematic/config"
	"github.com/kastheco/monothematic/config/schemestore"
	"github.com/kastheco/monothematic/palette"
	"github.com/kastheco/monothematic/recolor"
)

// fakeHome points the CLI at a temporary home directory with no env
// overrides.
func fakeHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	orig := config.UserHomeDir
	config.UserHomeDir = func() (string, error) { return home, nil }
	t.Cleanup(func() { config.UserHomeDir = orig })
	for _, k := range []string{config.EnvWallpaperConfig, config.EnvLogLevel, config.EnvExtraction, config.EnvDebounceMS} {
		t.Setenv(k, "")
	}
	return home
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"init", "run", "watch", "serve", "palette", "recolor", "check", "status"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestServeCmd_DefaultFlags(t *testing.T) {
	cmd := NewServeCmd(&rootOptions{})
	assert.Contains(t, cmd.UseLine(), "serve")
	port, _ := cmd.Flags().GetInt("port")
	assert.Equal(t, 7433, port)
	bind, _ := cmd.Flags().GetString("bind")
	assert.Equal(t, "127.0.0.1", bind)
}

func TestPaletteCmd_SeedJSON(t *testing.T) {
	fakeHome(t)
	out, err := execute(t, "", "palette", "--seed", "oklch(0.6 0.12 250)", "--format", "json")
	require.NoError(t, err)

	want, err := palette.Generate(palette.New(0.6, 0.12, 250)).EncodeScheme()
	require.NoError(t, err)
	assert.Equal(t, string(want), out)
}

func TestPaletteCmd_List(t *testing.T) {
	fakeHome(t)
	out, err := execute(t, "", "palette", "--seed", "#3366cc", "-f", "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	flat := palette.Generate(mustDecode(t, "#3366cc")).Flatten()
	require.Len(t, lines, len(flat))
	assert.True(t, strings.HasPrefix(lines[0], "base-98"))
	assert.Contains(t, lines[len(lines)-1], flat[len(flat)-1].Hex)
}

func TestPaletteCmd_Errors(t *testing.T) {
	fakeHome(t)

	_, err := execute(t, "", "palette", "--seed", "not-a-color")
	assert.ErrorContains(t, err, "invalid seed color")

	_, err = execute(t, "", "palette", "--seed", "#fff", "--format", "yaml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = execute(t, "", "palette", "--seed", "#fff", "--image", "x.png")
	assert.Error(t, err)
}

func TestRecolorCmd_SeedFromStdin(t *testing.T) {
	fakeHome(t)
	in := "bg: #ffffff; fg: oklch(0.2 0.1 40);\n"
	out, err := execute(t, in, "recolor", "--seed", "#3366cc")
	require.NoError(t, err)
	assert.Equal(t, recolor.Recolor(in, palette.Generate(mustDecode(t, "#3366cc"))), out)
}

func TestRecolorCmd_SchemeFile(t *testing.T) {
	fakeHome(t)
	p := palette.Generate(palette.New(0.5, 0.2, 20))
	data, err := p.EncodeScheme()
	require.NoError(t, err)

	dir := t.TempDir()
	scheme := filepath.Join(dir, "colors.json")
	require.NoError(t, os.WriteFile(scheme, data, 0o644))
	src := filepath.Join(dir, "theme.css")
	require.NoError(t, os.WriteFile(src, []byte("a { color: #123; }"), 0o644))

	out, err := execute(t, "", "recolor", "--scheme", scheme, src)
	require.NoError(t, err)
	assert.Equal(t, recolor.Recolor("a { color: #123; }", p), out)
}

func TestRecolorCmd_Server(t *testing.T) {
	fakeHome(t)
	seed := palette.New(0.55, 0.15, 160)
	_, srv := schemestore.NewTestServer(t, seed)

	in := "#000 #808080 #fff"
	out, err := execute(t, in, "recolor", "--server", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, recolor.Recolor(in, palette.Generate(seed)), out)
}

func TestRecolorCmd_MissingScheme(t *testing.T) {
	fakeHome(t)
	_, err := execute(t, "#fff", "recolor", "--config-dir", t.TempDir())
	assert.ErrorContains(t, err, "read scheme")
}

func TestInitRunStatus(t *testing.T) {
	home := fakeHome(t)
	cfgDir := filepath.Join(home, "cfg")

	out, err := execute(t, "", "init", "--config-dir", cfgDir)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(cfgDir, "config.toml"))
	assert.FileExists(t, filepath.Join(cfgDir, "templates", "gtk4.css"))

	// Second init leaves the curated templates dir alone.
	out, err = execute(t, "", "init", "--config-dir", cfgDir)
	require.NoError(t, err)
	assert.Contains(t, out, "templates left alone")

	writeWallpaper(t, home)

	out, err = execute(t, "", "run", "--config-dir", cfgDir, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "would write")
	assert.NoFileExists(t, filepath.Join(cfgDir, "colors.json"))

	out, err = execute(t, "", "run", "--config-dir", cfgDir)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(home, ".config", "gtk-4.0", "gtk.css"))
	assert.FileExists(t, filepath.Join(cfgDir, "colors.json"))
	assert.FileExists(t, filepath.Join(home, ".config", "niri", "theme.conf"))

	out, err = execute(t, "", "status", "--config-dir", cfgDir)
	require.NoError(t, err)
	assert.Contains(t, out, "done")
	assert.Contains(t, out, filepath.Join(home, "wall.png"))

	out, err = execute(t, "", "check", "--config-dir", cfgDir)
	require.NoError(t, err)
	assert.Contains(t, out, "checks passed")
}

func TestStatusCmd_NoRuns(t *testing.T) {
	fakeHome(t)
	out, err := execute(t, "", "status", "--config-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "no runs recorded yet")
}

func TestCheckCmd_ReportsFailures(t *testing.T) {
	fakeHome(t)
	out, err := execute(t, "", "check", "--config-dir", t.TempDir())
	assert.ErrorContains(t, err, "checks failed")
	assert.Contains(t, out, "wallpaper")
}

func mustDecode(t *testing.T, s string) palette.Color {
	t.Helper()
	c, ok := palette.Decode(s)
	require.True(t, ok, s)
	return c
}

// writeWallpaper creates a solid image and a Noctalia config pointing at it
// in the default location under home.
func writeWallpaper(t *testing.T, home string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.NRGBA{R: 40, G: 90, B: 160, A: 255})
		}
	}
	f, err := os.Create(filepath.Join(home, "wall.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	dir := filepath.Join(home, ".config", "Noctalia")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"wallpaper": {"path": "~/wall.png"}}`), 0o644))
}

func TestWatchCmd_TUIFlag(t *testing.T) {
	cmd := NewWatchCmd(&rootOptions{})
	tui, err := cmd.Flags().GetBool("tui")
	require.NoError(t, err)
	assert.False(t, tui)
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, isTerminal(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f), "a regular file is not a terminal")
}
