package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	appDir         = "monothematic"
	configFileName = "config.toml"
)

// alternate config file names, tried in order when config.toml is absent.
var yamlConfigNames = []string{"config.yaml", "config.yml"}

// Extraction methods for the wallpaper seed color.
const (
	ExtractHistogram = "histogram"
	ExtractKMeans    = "kmeans"
)

const defaultDebounceMS = 250

// Paths holds the on-disk locations used by monothematic.
type Paths struct {
	Home         string
	ConfigDir    string
	ConfigFile   string
	TemplatesDir string
	OutputDir    string
	SchemeFile   string
}

// DefaultPaths returns the standard locations under home/.config/monothematic.
func DefaultPaths(home string) Paths {
	return WithConfigDir(home, filepath.Join(home, ".config", appDir))
}

// WithConfigDir returns paths rooted at dir instead of the default config dir.
func WithConfigDir(home, dir string) Paths {
	return Paths{
		Home:         home,
		ConfigDir:    dir,
		ConfigFile:   filepath.Join(dir, configFileName),
		TemplatesDir: filepath.Join(dir, "templates"),
		OutputDir:    filepath.Join(dir, "themes"),
		SchemeFile:   filepath.Join(dir, "colors.json"),
	}
}

// Mapping pairs a template with the file its recolored output is written to.
// A relative Source resolves against the templates dir, a relative
// Destination against the output dir.
type Mapping struct {
	Name        string `toml:"name" yaml:"name"`
	Source      string `toml:"source" yaml:"source"`
	Destination string `toml:"destination" yaml:"destination"`
}

// Config is the user configuration.
type Config struct {
	WallpaperConfig string    `toml:"wallpaper_config" yaml:"wallpaper_config"`
	TemplatesDir    string    `toml:"templates_dir" yaml:"templates_dir"`
	OutputDir       string    `toml:"output_dir" yaml:"output_dir"`
	SchemeFile      string    `toml:"scheme_file" yaml:"scheme_file"`
	Extraction      string    `toml:"extraction" yaml:"extraction"`
	LogLevel        string    `toml:"log_level" yaml:"log_level"`
	DebounceMS      int       `toml:"debounce_ms" yaml:"debounce_ms"`
	Mappings        []Mapping `toml:"mappings" yaml:"mappings"`
}

// Default returns the built-in configuration for paths.
func Default(paths Paths) Config {
	return Config{
		WallpaperConfig: "~/.config/Noctalia/config.json",
		TemplatesDir:    paths.TemplatesDir,
		OutputDir:       paths.OutputDir,
		SchemeFile:      paths.SchemeFile,
		Extraction:      ExtractHistogram,
		LogLevel:        "info",
		DebounceMS:      defaultDebounceMS,
		Mappings: []Mapping{
			{Name: "noctalia", Source: "noctalia-theme.json", Destination: "~/.config/Noctalia/theme.json"},
			{Name: "niri", Source: "niri.conf", Destination: "~/.config/niri/theme.conf"},
			{Name: "gtk3", Source: "gtk3.css", Destination: "~/.config/gtk-3.0/gtk.css"},
			{Name: "gtk4", Source: "gtk4.css", Destination: "~/.config/gtk-4.0/gtk.css"},
		},
	}
}

// Debounce returns the watcher debounce interval.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// Validate checks the configuration for values a run cannot work with.
func (c Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.WallpaperConfig) == "" {
		errs = append(errs, "wallpaper_config is required")
	}
	switch c.Extraction {
	case ExtractHistogram, ExtractKMeans:
	default:
		errs = append(errs, fmt.Sprintf("unknown extraction method %q (want %s or %s)", c.Extraction, ExtractHistogram, ExtractKMeans))
	}
	if c.DebounceMS < 0 {
		errs = append(errs, "debounce_ms must not be negative")
	}

	seen := make(map[string]bool, len(c.Mappings))
	for i, m := range c.Mappings {
		label := m.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
			errs = append(errs, fmt.Sprintf("mapping %s: name is required", label))
		} else if seen[m.Name] {
			errs = append(errs, fmt.Sprintf("mapping %s: duplicate name", label))
		}
		seen[m.Name] = true
		if m.Source == "" {
			errs = append(errs, fmt.Sprintf("mapping %s: source is required", label))
		}
		if m.Destination == "" {
			errs = append(errs, fmt.Sprintf("mapping %s: destination is required", label))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Load reads the user configuration layered over the defaults, applies
// environment overrides and resolves every path. A missing config file is not
// an error.
func Load(paths Paths) (Config, error) {
	cfg := Default(paths)

	file, path, err := readConfigFile(paths)
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		cfg = mergeConfigs(cfg, file)
	}

	env, err := LoadEnv(paths.ConfigDir)
	if err != nil {
		return Config{}, err
	}
	cfg = env.Apply(cfg)

	cfg = cfg.resolve(paths.Home)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ConfigFilePath returns the config file Load would read, or "" if none exists.
func ConfigFilePath(paths Paths) string {
	candidates := []string{paths.ConfigFile}
	for _, name := range yamlConfigNames {
		candidates = append(candidates, filepath.Join(paths.ConfigDir, name))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func readConfigFile(paths Paths) (Config, string, error) {
	path := ConfigFilePath(paths)
	if path == "" {
		return Config{}, "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, "", fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if filepath.Ext(path) == ".toml" {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, "", fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, path, nil
}

// mergeConfigs lays overlay on top of base. Empty overlay fields keep the
// base value; a non-empty mapping list replaces the base list.
func mergeConfigs(base, overlay Config) Config {
	merged := base
	if overlay.WallpaperConfig != "" {
		merged.WallpaperConfig = overlay.WallpaperConfig
	}
	if overlay.TemplatesDir != "" {
		merged.TemplatesDir = overlay.TemplatesDir
	}
	if overlay.OutputDir != "" {
		merged.OutputDir = overlay.OutputDir
	}
	if overlay.SchemeFile != "" {
		merged.SchemeFile = overlay.SchemeFile
	}
	if overlay.Extraction != "" {
		merged.Extraction = overlay.Extraction
	}
	if overlay.LogLevel != "" {
		merged.LogLevel = overlay.LogLevel
	}
	if overlay.DebounceMS != 0 {
		merged.DebounceMS = overlay.DebounceMS
	}
	if len(overlay.Mappings) > 0 {
		merged.Mappings = append([]Mapping(nil), overlay.Mappings...)
	}
	return merged
}

// resolve expands ~ and environment variables and anchors relative mapping
// paths.
func (c Config) resolve(home string) Config {
	out := c
	out.WallpaperConfig = ExpandPath(c.WallpaperConfig, home)
	out.TemplatesDir = ExpandPath(c.TemplatesDir, home)
	out.OutputDir = ExpandPath(c.OutputDir, home)
	out.SchemeFile = ExpandPath(c.SchemeFile, home)

	out.Mappings = make([]Mapping, len(c.Mappings))
	for i, m := range c.Mappings {
		m.Source = anchor(ExpandPath(m.Source, home), out.TemplatesDir)
		m.Destination = anchor(ExpandPath(m.Destination, home), out.OutputDir)
		out.Mappings[i] = m
	}
	return out
}

// ExpandPath expands a leading ~ to home and any $VAR references.
func ExpandPath(p, home string) string {
	if p == "" {
		return p
	}
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") {
		p = filepath.Join(home, p[2:])
	}
	return os.ExpandEnv(p)
}

func anchor(p, dir string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// EnsureUserConfig creates the config dir and writes the default config.toml
// when no config file exists yet. It reports whether a file was written.
func EnsureUserConfig(paths Paths) (bool, error) {
	if err := os.MkdirAll(paths.ConfigDir, 0o755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	if ConfigFilePath(paths) != "" {
		return false, nil
	}

	data, err := toml.Marshal(Default(paths))
	if err != nil {
		return false, fmt.Errorf("marshal default config: %w", err)
	}
	header := "# monothematic configuration\n# Paths may use ~ and $VARS. Relative mapping sources resolve against\n# templates_dir, relative destinations against output_dir.\n\n"
	if err := os.WriteFile(paths.ConfigFile, append([]byte(header), data...), 0o644); err != nil {
		return false, fmt.Errorf("write default config: %w", err)
	}
	return true, nil
}

// ErrNoHome is returned when the home directory cannot be determined.
var ErrNoHome = errors.New("cannot determine home directory")

// UserHomeDir is os.UserHomeDir wrapped with ErrNoHome; a variable so tests
// can replace it.
var UserHomeDir = func() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", fmt.Errorf("%w: %v", ErrNoHome, err)
	}
	return home, nil
}
