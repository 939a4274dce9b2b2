package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kastheco/monothematic/app"
	"github.com/kastheco/monothematic/config/schemestore"
	"github.com/kastheco/monothematic/log"
	"github.com/kastheco/monothematic/palette"
)

// NewServeCmd returns the `monothematic serve` cobra command.
// It serves the current scheme over HTTP, optionally keeping it fresh by
// watching the wallpaper at the same time.
func NewServeCmd(opts *rootOptions) *cobra.Command {
	var (
		port  int
		bind  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start the scheme HTTP server",
		Long:  "Start an HTTP server that exposes the current color scheme, single colors and text recoloring over a REST API.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.load()
			if err != nil {
				return err
			}

			store := schemestore.NewMemoryStore()
			if err := publishSchemeFile(store, s.cfg.SchemeFile); err != nil {
				log.Warn("serve", "not serving %s: %v", s.cfg.SchemeFile, err)
			}

			addr := fmt.Sprintf("%s:%d", bind, port)
			srv := &http.Server{
				Addr:              addr,
				Handler:           schemestore.NewHandler(store),
				ReadHeaderTimeout: 10 * time.Second,
			}

			fmt.Fprintf(cmd.OutOrStdout(), "scheme server listening on http://%s (scheme: %s)\n", addr, s.cfg.SchemeFile)

			// Graceful shutdown on SIGINT/SIGTERM.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 2)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			watchDone := make(chan struct{})
			if watch {
				runner := app.NewRunner(s.cfg, s.paths)
				runner.SetStore(store)
				go func() {
					defer close(watchDone)
					if err := app.Watch(ctx, runner, nil); err != nil {
						errCh <- err
					}
				}()
			} else {
				close(watchDone)
			}

			var runErr error
			select {
			case runErr = <-errCh:
				stop()
			case <-ctx.Done():
				fmt.Fprintln(cmd.OutOrStdout(), "\nshutting down...")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
				runErr = err
			}
			<-watchDone
			return runErr
		},
	}

	cmd.Flags().IntVar(&port, "port", 7433, "port to listen on")
	cmd.Flags().StringVar(&bind, "bind", "127.0.0.1", "address to bind to")
	cmd.Flags().BoolVar(&watch, "watch", false, "also watch the wallpaper and publish every new scheme")

	return cmd
}

// publishSchemeFile loads an existing scheme file into store. A missing file
// leaves the store empty.
func publishSchemeFile(store schemestore.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	p, err := palette.ParseScheme(data)
	if err != nil {
		return err
	}
	store.Publish(p)
	return nil
}
