package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/config"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/logger"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "ptsreporter",
	Short: "PTS after-hours ranking reporter",
	Long: `ptsreporter fetches the after-hours (PTS) price increase ranking,
enriches the top movers with news, company and disclosure context,
explains each move and delivers the report to the configured channels.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

// setup loads the config and builds the logger shared by every command.
func setup() (*config.Config, *zap.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	opts := logger.Options{Development: cfg.Log.Development, Level: cfg.Log.Level}
	if debug {
		opts = logger.Options{Development: true, Level: "debug"}
	}
	log, err := logger.New(opts)
	if err != nil {
		return nil, nil, err
	}
	if cfgFile == "" {
		log.Warn("no config file specified, using defaults and environment")
	}
	return cfg, log, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
