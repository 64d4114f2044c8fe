package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/app"
)

var reanalyzeDays int

var reanalyzeCmd = &cobra.Command{
	Use:   "reanalyze",
	Short: "Re-run the earnings analysis over stored reports",
	Long: `reanalyze walks the stored reports of the last --days days, fetches
their disclosures again and fills in the earnings analysis for records that
were reported without one.`,
	RunE: runReanalyze,
}

func init() {
	reanalyzeCmd.Flags().IntVar(&reanalyzeDays, "days", 7, "number of days to revisit")
	rootCmd.AddCommand(reanalyzeCmd)
}

func runReanalyze(cmd *cobra.Command, args []string) error {
	if reanalyzeDays < 1 {
		return fmt.Errorf("--days must be at least 1, got %d", reanalyzeDays)
	}
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		return fmt.Errorf("creating app: %w", err)
	}
	defer a.Close()

	res, err := a.Reanalyze(ctx, reanalyzeDays)
	if err != nil {
		return fmt.Errorf("reanalyze: %w", err)
	}
	log.Info("reanalyze complete",
		zap.Int("analyzed", res.Analyzed),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
	fmt.Fprintf(os.Stdout, "analyzed=%d skipped=%d failed=%d\n", res.Analyzed, res.Skipped, res.Failed)
	return nil
}
