package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kastheco/monothematic/app"
	"github.com/kastheco/monothematic/config"
	"github.com/kastheco/monothematic/internal/scaffold"
	"github.com/kastheco/monothematic/log"
	"github.com/kastheco/monothematic/ui"
)

// NewInitCmd returns `monothematic init`.
func NewInitCmd(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "write the default config and seed the templates directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := opts.resolvePaths()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			created, err := config.EnsureUserConfig(paths)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(out, "%s %s\n", successText("created"), paths.ConfigFile)
			} else {
				fmt.Fprintf(out, "%s %s\n", mutedText("exists "), config.ConfigFilePath(paths))
			}

			s, err := opts.load()
			if err != nil {
				return err
			}
			results, err := scaffold.SeedTemplates(s.cfg.TemplatesDir, force)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintf(out, "%s %s is not empty, templates left alone (use --force to overwrite)\n",
					mutedText("skipped"), s.cfg.TemplatesDir)
			}
			for _, r := range results {
				if r.Created {
					fmt.Fprintf(out, "%s %s\n", successText("created"), r.Path)
				} else {
					fmt.Fprintf(out, "%s %s\n", mutedText("exists "), r.Path)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite bundled templates even if the directory has files")
	return cmd
}

// NewRunCmd returns `monothematic run`.
func NewRunCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "derive a scheme from the current wallpaper and recolor every template once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.load()
			if err != nil {
				return err
			}
			runner := app.NewRunner(s.cfg, s.paths)

			var outcome *app.Outcome
			if dryRun {
				outcome, err = runner.RenderOnly(cmd.Context())
			} else {
				outcome, err = runner.RunOnce(cmd.Context())
			}
			if err != nil {
				return err
			}
			printOutcome(cmd.OutOrStdout(), outcome, s.cfg.SchemeFile)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "render in memory and report, writing nothing")
	return cmd
}

// NewWatchCmd returns `monothematic watch`.
func NewWatchCmd(opts *rootOptions) *cobra.Command {
	var tui bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "rerun whenever the wallpaper config or a template changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			runner := app.NewRunner(s.cfg, s.paths)
			if tui {
				if isTerminal(out) {
					return runLiveWatch(ctx, s, runner, out)
				}
				log.Warn("watch", "--tui needs a terminal, printing plain lines")
			}
			return app.Watch(ctx, runner, func(o *app.Outcome, err error) {
				if err == nil {
					printOutcome(out, o, s.cfg.SchemeFile)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&tui, "tui", false, "show a live view instead of printing each run")
	return cmd
}

// liveLogFile receives log output while the live view owns the terminal.
const liveLogFile = "watch.log"

// runLiveWatch drives the watcher from a bubbletea program. Quitting the
// program stops the watch; the watch ending quits the program.
func runLiveWatch(ctx context.Context, s *session, runner *app.Runner, out io.Writer) error {
	logPath := filepath.Join(s.paths.ConfigDir, liveLogFile)
	if err := os.MkdirAll(s.paths.ConfigDir, 0o755); err != nil {
		return err
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	log.Initialize(s.level, logFile)
	defer log.Initialize(s.level, os.Stderr)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(ui.NewLiveModel(cancel), tea.WithOutput(out), tea.WithAltScreen())

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- app.WatchHooked(ctx, runner, app.WatchHooks{
			Triggered: func(reason string) { p.Send(ui.RunStartedMsg{Reason: reason}) },
			Finished:  func(o *app.Outcome, err error) { p.Send(ui.RunFinishedMsg{Outcome: o, Err: err}) },
		})
		p.Quit()
	}()

	// A signal ends the program the same way as pressing q.
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, runErr := p.Run()
	cancel()
	if err := <-watchErr; err != nil {
		return err
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewStatusCmd returns `monothematic status`.
func NewStatusCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "show recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := opts.resolvePaths()
			if err != nil {
				return err
			}
			runs, err := app.LastRuns(paths)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, mutedText("no runs recorded yet"))
				return nil
			}
			if limit > 0 && len(runs) > limit {
				runs = runs[:limit]
			}
			for _, r := range runs {
				status := successText("%-10s", r.Status)
				if r.Status != "done" {
					status = warnText("%-10s", r.Status)
				}
				fmt.Fprintf(out, "%s %s  %s  %s\n", status,
					r.StartedAt.Local().Format(time.DateTime),
					mutedText("%8s", r.Duration().Round(time.Millisecond)),
					r.ID)
				if r.Seed != "" {
					fmt.Fprintf(out, "  seed %s from %s\n", r.Seed, r.Wallpaper)
				}
				if r.Error != "" {
					fmt.Fprintf(out, "  %s\n", errorText("%s", r.Error))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "number of runs to show (0 for all)")
	return cmd
}

func printOutcome(w io.Writer, o *app.Outcome, schemeFile string) {
	source := "extracted"
	if o.CachedSeed {
		source = "cached"
	}
	fmt.Fprintf(w, "%s %s\n", headingText("wallpaper"), o.Wallpaper)
	fmt.Fprintf(w, "%s %s %s\n", headingText("seed     "), o.Seed.CSS(), mutedText("(%s)", source))

	verb := "wrote"
	if o.DryRun {
		verb = "would write"
	}
	fmt.Fprintf(w, "%s %s\n", successText("%s", verb), schemeFile)
	for _, t := range o.Templates {
		if t.Skipped {
			fmt.Fprintf(w, "%s %s %s\n", warnText("skipped"), t.Name, mutedText("(no template at %s)", t.Source))
			continue
		}
		fmt.Fprintf(w, "%s %s %s\n", successText("%s", verb), t.Destination, mutedText("(%d colors)", t.Replacements))
	}
	log.Debug("cmd", "run %s reported", o.RunID)
}
