package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const envFileName = ".env"

// Environment variables that override config file values.
const (
	EnvWallpaperConfig = "MONOTHEMATIC_WALLPAPER_CONFIG"
	EnvLogLevel        = "MONOTHEMATIC_LOG_LEVEL"
	EnvExtraction      = "MONOTHEMATIC_EXTRACTION"
	EnvDebounceMS      = "MONOTHEMATIC_DEBOUNCE_MS"
)

var envKeys = []string{EnvWallpaperConfig, EnvLogLevel, EnvExtraction, EnvDebounceMS}

// EnvOverrides holds override values gathered from the optional .env file in
// the config dir and the process environment. The process environment wins.
type EnvOverrides map[string]string

// LoadEnv collects overrides. A missing .env file is not an error.
func LoadEnv(configDir string) (EnvOverrides, error) {
	out := make(EnvOverrides)

	if configDir != "" {
		vals, err := godotenv.Read(filepath.Join(configDir, envFileName))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read env file: %w", err)
		}
		for _, k := range envKeys {
			if v, ok := vals[k]; ok {
				out[k] = v
			}
		}
	}

	for _, k := range envKeys {
		if v, ok := os.LookupEnv(k); ok {
			out[k] = v
		}
	}
	return out, nil
}

// Apply returns cfg with the overrides applied. Blank values and an
// unparseable debounce are ignored.
func (e EnvOverrides) Apply(cfg Config) Config {
	if v := strings.TrimSpace(e[EnvWallpaperConfig]); v != "" {
		cfg.WallpaperConfig = v
	}
	if v := strings.TrimSpace(e[EnvLogLevel]); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(e[EnvExtraction]); v != "" {
		cfg.Extraction = strings.ToLower(v)
	}
	if v := strings.TrimSpace(e[EnvDebounceMS]); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.DebounceMS = ms
		}
	}
	return cfg
}
