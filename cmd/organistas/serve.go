package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	httptransport "github.com/souzalinux78/gestao-organista/internal/http"
)

func newServeCmd(c *cli) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Inicia a API HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if port <= 0 {
				port = c.cfg.HTTPPort
			}
			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           a.handler(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			return serve(ctx, server, c)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "porta HTTP (padrão: ORGANISTAS_HTTP_PORT)")
	return cmd
}

func (a *app) handler() http.Handler {
	loc := a.cfg.Timezone
	return httptransport.NewRouter(httptransport.RouterConfig{
		Cycles:    httptransport.NewCycleHandler(a.cycles, a.logger),
		Rotation:  httptransport.NewRotationHandler(a.rotation, loc, a.logger),
		Schedules: httptransport.NewScheduleHandler(a.schedules, loc, a.logger),
		Dashboard: httptransport.NewDashboardHandler(a.dashboard, loc, a.logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(a.logger),
			httptransport.Recoverer(a.logger),
		},
	})
}

func serve(ctx context.Context, server *http.Server, c *cli) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	c.logger.Info("organistas API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("servidor HTTP: %w", err)
	}
	c.logger.Info("organistas API stopped")
	return nil
}
