package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/app"
)

var errRunFailed = errors.New("run failed")

var (
	runMinVolume int64
	runTopN      int
	runDryRun    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, analyze and report the PTS ranking once",
	RunE:  runOnce,
}

func init() {
	runCmd.Flags().Int64Var(&runMinVolume, "min-volume", 0, "minimum PTS volume (overrides config)")
	runCmd.Flags().IntVar(&runTopN, "top-n", 0, "number of stocks to report (overrides config)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "print the report instead of sending it")
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if cmd.Flags().Changed("min-volume") {
		cfg.Ranking.MinVolume = runMinVolume
	}
	if cmd.Flags().Changed("top-n") {
		cfg.Ranking.TopN = runTopN
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, app.Options{DryRun: runDryRun, Out: os.Stdout})
	if err != nil {
		return fmt.Errorf("creating app: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("closing app", zap.Error(err))
		}
	}()

	log.Info("starting run",
		zap.Int64("min_volume", cfg.Ranking.MinVolume),
		zap.Int("top_n", cfg.Ranking.TopN),
		zap.Bool("dry_run", runDryRun),
	)
	if !a.RunOnce(ctx) {
		return errRunFailed
	}
	return nil
}
