package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/sadopc/taskboard/internal/server"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(o *options) *cobra.Command {
	var (
		host   string
		port   string
		noSeed bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the task REST API",
		Long: `Serve the task REST API under /api.

An empty database is seeded with generated tasks first unless --no-seed is
given. The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			httpEnv := o.env.HTTPEnv
			if cmd.Flags().Changed("host") {
				httpEnv.HTTPHost = host
			}
			if cmd.Flags().Changed("port") {
				httpEnv.HTTPPort = port
			}

			st, err := o.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if !noSeed {
				gen := o.generator(0, true)
				n, err := st.SeedIfEmpty(ctx, "generator", gen.GenerateDataset)
				if err != nil {
					return err
				}
				if n > 0 {
					o.logger.InfoContext(ctx, "seeded empty database", "tasks", n)
				}
			}

			srv := server.New(&httpEnv, o.logger, st, server.WithExportPrefix(o.prefs.ExportPrefix))

			var serveErr error
			wg := conc.NewWaitGroup()
			wg.Go(func() {
				defer stop()
				if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr = err
				}
			})
			wg.Go(func() {
				<-ctx.Done()
				o.logger.Info("shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					o.logger.Error("server shutdown failed", "error", err)
				}
			})
			wg.Wait()
			return serveErr
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides TASKBOARD_HTTP_HOST)")
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides TASKBOARD_HTTP_PORT)")
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "do not seed an empty database")
	return cmd
}
