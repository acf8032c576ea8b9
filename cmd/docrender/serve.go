package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/docrender/pkg/server"
)

const shutdownTimeout = 15 * time.Second

func serveCmd(g *globals) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rendered pages over HTTP",
		Long: `Serve rendered pages over HTTP.

The query string selects the page: option names the component, Itemid the
active menu item, tmpl and file the page template.

Examples:
  docrender serve
  docrender serve --addr=:9090
  docrender serve -c site.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr: cfg.Server.Addr,
				Handler: server.New(server.Config{
					Options:       a.opts,
					Template:      cfg.Templates.Default,
					File:          cfg.Templates.File,
					RenderTimeout: cfg.Server.RenderTimeout,
					Compress:      cfg.Server.Compress,
					Metrics:       a.metrics,
					MetricsPath:   cfg.Metrics.Path,
					Logger:        logger,
				}),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()
			logger.Info("serving", "addr", cfg.Server.Addr, "templates", cfg.Templates.Dir, "config", cfg.Path())

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from server.addr)")

	return cmd
}
