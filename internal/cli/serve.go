package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-overrides/internal/config"
	"github.com/goliatone/go-overrides/pkg/httpapi"
	"github.com/spf13/cobra"
)

func newServeCommand(opts *RootOptions) *cobra.Command {
	var (
		addr  string
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the toolbar and presets over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *App) error {
				if addr == "" {
					addr = app.Config.Server.Addr
				}
				if cmd.Flags().Changed("watch") {
					app.Config.Server.WatchOptions = watch
				}
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				return serve(ctx, app, addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-register the options file when it changes (default server.watch_options)")
	return cmd
}

func serve(ctx context.Context, app *App, addr string) error {
	apiOpts := []httpapi.Option{
		httpapi.WithPresets(app.Presets),
		httpapi.WithLogger(app.Logger),
	}
	if publisher, err := app.OpenPublisher(ctx); err != nil {
		app.Logger.Warn("overridectl: preset publishing disabled", "error", err)
	} else {
		apiOpts = append(apiOpts, httpapi.WithPublisher(publisher))
	}
	if app.Config.Server.Metrics {
		apiOpts = append(apiOpts, httpapi.WithMetrics(app.Metrics))
	}
	if origins := app.Config.Server.AllowedOrigins; len(origins) > 0 {
		apiOpts = append(apiOpts, httpapi.WithAllowedOrigins(origins...))
	}
	if app.Config.Server.WatchOptions && app.Config.OptionsFile != "" {
		watcher, err := config.NewOptionsWatcher(app.Config.OptionsFile, app.Toolbar, config.WithWatchLogger(app.Logger))
		if err != nil {
			app.Logger.Warn("overridectl: options watch disabled", "error", err)
		} else {
			go func() { _ = watcher.Run(ctx) }()
		}
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           httpapi.New(app.Toolbar, apiOpts...).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		app.Logger.Info("overridectl: listening", "addr", addr)
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return WrapExitError(ExitCommandError, "serve", err)
	case <-ctx.Done():
	}

	timeout := app.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	app.Logger.Info("overridectl: shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown", err)
	}
	return nil
}
