package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Alias1177/trapfade/internal/config"
)

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(lvl)
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "backtest",
		Short: "Manipulation-fade backtester for leveraged crypto futures",
		Long: `backtest replays OHLCV candles through a bank of trap-pattern detectors,
opens leveraged positions that fade the trap and reports performance.

Candles come from DATA_FILE (csv/json), DATA_URL (exchange klines endpoint)
or a seeded synthetic generator. Settings are read from the environment and
.env, and may be overridden with flags.`,
		SilenceUsage: true,
	}

	root.AddCommand(newRunCmd(cfg))
	root.AddCommand(newCompareCmd(cfg))
	root.AddCommand(newGenerateCmd(cfg))
	root.AddCommand(newPresetsCmd())
	return root
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg.LogLevel)

	if err := newRootCmd(cfg).Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
