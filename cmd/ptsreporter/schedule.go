package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/app"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/scheduler"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/server"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the report on the configured cron schedule",
	RunE:  runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		return fmt.Errorf("creating app: %w", err)
	}
	defer a.Close()

	sched, err := scheduler.New(ctx, cfg.Schedule.Cron, a.Location(), a.RunOnce, log)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	var srv *server.Server
	if cfg.Metrics.Enabled {
		srv = server.NewServer(server.Config{
			Addr:        cfg.Metrics.Addr,
			MetricsPath: cfg.Metrics.Path,
			APIKey:      cfg.Metrics.APIKey,
		}, server.Dependencies{
			Metrics: a.Metrics(),
			Runs:    sched,
			History: a.History(),
		}, log)

		go func() {
			if err := srv.Start(); err != nil {
				log.Error("server error", zap.Error(err))
			}
		}()
	}

	sched.Start()
	log.Info("waiting for scheduled runs",
		zap.String("cron", cfg.Schedule.Cron),
		zap.String("timezone", a.Location().String()),
	)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()
	sched.Stop()

	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 30*time.Second)
		defer done()
		return srv.Shutdown(shutdownCtx)
	}
	return nil
}
