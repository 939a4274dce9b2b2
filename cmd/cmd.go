// Package cmd holds the monothematic command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kastheco/monothematic/config"
	"github.com/kastheco/monothematic/log"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configDir string
	logLevel  string
}

// session is what a subcommand works with once flags, config and logging
// have been resolved.
type session struct {
	paths config.Paths
	cfg   config.Config
	level log.Level
}

// resolvePaths returns the config locations, honouring --config-dir.
func (o *rootOptions) resolvePaths() (config.Paths, error) {
	home, err := config.UserHomeDir()
	if err != nil {
		return config.Paths{}, err
	}
	if o.configDir != "" {
		return config.WithConfigDir(home, config.ExpandPath(o.configDir, home)), nil
	}
	return config.DefaultPaths(home), nil
}

// load resolves paths, reads the config and starts logging to stderr.
func (o *rootOptions) load() (*session, error) {
	paths, err := o.resolvePaths()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(paths)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log.Initialize(lvl, os.Stderr)
	return &session{paths: paths, cfg: cfg, level: lvl}, nil
}

// NewRootCmd returns the root cobra command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "monothematic",
		Short:         "monothematic - derive a desktop color scheme from your wallpaper",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Close()
		},
	}
	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "config directory (default ~/.config/monothematic)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")

	root.AddCommand(
		NewInitCmd(opts),
		NewRunCmd(opts),
		NewWatchCmd(opts),
		NewServeCmd(opts),
		NewPaletteCmd(opts),
		NewRecolorCmd(opts),
		NewCheckCmd(opts),
		NewStatusCmd(opts),
	)
	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorText("error: %v", err))
		os.Exit(1)
	}
}
