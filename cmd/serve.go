package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"facility-finder/handlers"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var port string
	var schedule string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. With a refresh schedule (flag or REFRESH_SCHEDULE)
stale place data is refreshed in the background.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, schedule)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port (overrides PORT)")
	cmd.Flags().StringVar(&schedule, "refresh-schedule", "", "Cron spec for the enrichment refresh (overrides REFRESH_SCHEDULE)")

	return cmd
}

func runServe(ctx context.Context, port, schedule string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openPipeline(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if err := a.store.EnsureIndexes(ctx); err != nil {
		a.logger.Warn("[serve] ensure indexes: %v", err)
	}

	if schedule == "" {
		schedule = a.cfg.RefreshSchedule
	}
	if schedule != "" {
		if err := a.refresher.Start(schedule); err != nil {
			return err
		}
	}

	if port == "" {
		port = a.cfg.Port
	}
	if a.cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handlers.NewFacilityHandler(a.search, a.logger)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handlers.NewRouter(h, a.store, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("[serve] listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("[serve] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
