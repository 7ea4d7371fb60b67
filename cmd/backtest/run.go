package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Alias1177/trapfade/internal/anomaly"
	"github.com/Alias1177/trapfade/internal/composer"
	"github.com/Alias1177/trapfade/internal/config"
	"github.com/Alias1177/trapfade/internal/datasource"
	"github.com/Alias1177/trapfade/internal/metrics"
	"github.com/Alias1177/trapfade/internal/scoring"
	"github.com/Alias1177/trapfade/internal/trading/backtest"
	"github.com/Alias1177/trapfade/models"
)

// dataFlags selects and shapes the candle source shared by run and compare.
type dataFlags struct {
	file     string
	url      string
	symbol   string
	interval string
	limit    int
	seed     int64
	count    int
	days     int
}

func (d *dataFlags) register(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().StringVar(&d.file, "data", cfg.DataFile, "Candle file (.csv or .json)")
	cmd.Flags().StringVar(&d.url, "url", cfg.DataURL, "Klines endpoint, e.g. https://fapi.binance.com/fapi/v1/klines")
	cmd.Flags().StringVar(&d.symbol, "symbol", cfg.Symbol, "Symbol for --url")
	cmd.Flags().StringVar(&d.interval, "interval", cfg.Interval, "Candle interval")
	cmd.Flags().IntVar(&d.limit, "limit", 1000, "Candles requested from --url")
	cmd.Flags().Int64Var(&d.seed, "seed", cfg.Seed, "Generator seed when no data source is set")
	cmd.Flags().IntVar(&d.count, "candles", 2000, "Generated candles when no data source is set")
	cmd.Flags().IntVar(&d.days, "days", 0, "Size --limit and --candles to cover this many days of --interval")
}

// sized applies --days to the candle count and the request limit.
func (d *dataFlags) sized() error {
	if d.days <= 0 {
		return nil
	}
	n := models.CandlesForDays(d.interval, d.days)
	if n == 0 {
		return fmt.Errorf("cannot size %d days of %q candles", d.days, d.interval)
	}
	d.count, d.limit = n, n
	return nil
}

func (d *dataFlags) source(cfg *config.Config) (models.CandleSource, error) {
	if err := d.sized(); err != nil {
		return nil, err
	}

	switch {
	case d.file != "":
		return datasource.FileSource{Path: d.file}, nil
	case d.url != "":
		return datasource.NewHTTPSource(d.url, d.symbol, d.interval, d.limit, datasource.ClientOptions{
			Timeout:        time.Duration(cfg.RequestTimeout) * time.Second,
			RequestsPerSec: cfg.RequestsPerSec,
		}), nil
	}

	interval, err := models.IntervalDuration(d.interval)
	if err != nil {
		return nil, err
	}
	gen := datasource.DefaultGeneratorConfig()
	gen.Count = d.count
	gen.Interval = interval
	return datasource.NewGenerator(gen, rand.New(rand.NewSource(d.seed))), nil
}

func (d *dataFlags) load(ctx context.Context, cfg *config.Config) ([]models.Candle, error) {
	src, err := d.source(cfg)
	if err != nil {
		return nil, err
	}
	candles, err := src.Candles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candles: %w", err)
	}
	log.Info().Int("candles", len(candles)).
		Time("from", candles[0].Time()).
		Time("to", candles[len(candles)-1].Time()).
		Msg("Candles loaded")
	return candles, nil
}

func loadStrategy(cfg *config.Config, file, preset string) (*config.StrategyConfig, error) {
	var (
		strategy *config.StrategyConfig
		err      error
	)
	if file != "" {
		strategy, err = config.LoadStrategy(file)
	} else {
		strategy, err = config.Preset(preset)
	}
	if err != nil {
		return nil, err
	}

	if cfg.InitialCapital > 0 {
		strategy.InitialCapital = cfg.InitialCapital
	}
	return strategy, strategy.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newRunCmd(cfg *config.Config) *cobra.Command {
	var (
		data        dataFlags
		strategy    string
		preset      string
		priorFile   string
		output      string
		metricsAddr string
		objective   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one backtest and write the results as JSON",
		Long: `Run one backtest and write the results as JSON.

Examples:
  backtest run --preset tiered --seed 7
  backtest run --data btc_5m.csv --strategy my_strategy.yaml --output out.json
  backtest run --url https://fapi.binance.com/fapi/v1/klines --symbol ETHUSDT --interval 15m
  backtest run --metrics-addr :9102 --output -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			strat, err := loadStrategy(cfg, strategy, preset)
			if err != nil {
				return err
			}
			obj, err := scoring.ByName(objective)
			if err != nil {
				return err
			}
			candles, err := data.load(ctx, cfg)
			if err != nil {
				return err
			}

			opts := []backtest.Option{}
			if priorFile != "" {
				prior, err := composer.LoadPrior(priorFile, strat.Adaptation.PriorMinSamples)
				if err != nil {
					return err
				}
				opts = append(opts, backtest.WithPrior(prior))
			}
			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				recorder, err := metrics.NewRecorder(reg)
				if err != nil {
					return fmt.Errorf("register metrics: %w", err)
				}
				srv, err := metrics.Serve(metricsAddr, reg)
				if err != nil {
					return err
				}
				defer srv.Shutdown(context.Background())
				log.Info().Str("addr", srv.Addr).Msg("Serving metrics")
				opts = append(opts, backtest.WithMetrics(recorder))
			}

			engine, err := backtest.NewEngine(strat, opts...)
			if err != nil {
				return err
			}
			results, err := engine.Run(ctx, candles)
			if err != nil {
				return err
			}
			results.RunID = uuid.NewString()

			perf := results.OverallPerformance
			loss := scoring.Loss(obj, scoring.FromResults(perf))
			log.Info().
				Str("run_id", results.RunID).
				Str("strategy", strat.Name).
				Int("trades", perf.TotalTrades).
				Float64("win_rate", perf.WinRate).
				Float64("total_return", perf.TotalReturn).
				Float64("max_drawdown", perf.MaxDrawdown).
				Float64("sharpe", perf.SharpeRatio).
				Int("manipulation_events", len(results.ManipulationEvents)).
				Interface("events_by_type", anomaly.CountByType(results.ManipulationEvents)).
				Str("objective", objective).
				Float64("loss", loss).
				Msg("Backtest summary")
			if results.Halted {
				log.Warn().Str("reason", results.HaltReason).Msg("Run halted early")
			}

			return writeResults(output, results, cfg.PrettyOutput)
		},
	}

	data.register(cmd, cfg)
	cmd.Flags().StringVar(&strategy, "strategy", cfg.StrategyFile, "Strategy YAML file; overrides --preset")
	cmd.Flags().StringVar(&preset, "preset", cfg.StrategyPreset, "Built-in strategy preset")
	cmd.Flags().StringVar(&priorFile, "prior", cfg.PriorFile, "Experience prior JSON")
	cmd.Flags().StringVar(&output, "output", cfg.OutputFile, "Results file, - for stdout")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", cfg.MetricsAddr, "Expose prometheus metrics on this address")
	cmd.Flags().StringVar(&objective, "objective", "balanced", objectiveUsage("Scoring objective for the summary"))
	return cmd
}

func objectiveUsage(prefix string) string {
	return fmt.Sprintf("%s (%s)", prefix, strings.Join(scoring.Names(), ", "))
}

func writeResults(path string, results *models.Results, pretty bool) error {
	if path == "" || path == "-" {
		return encodeResults(os.Stdout, results, pretty)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := encodeResults(file, results, pretty); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	log.Info().Str("path", path).Msg("Results written")
	return nil
}

func encodeResults(w io.Writer, results *models.Results, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}

type ranked struct {
	preset  string
	results *models.Results
	loss    float64
}

func newCompareCmd(cfg *config.Config) *cobra.Command {
	var (
		data      dataFlags
		objective string
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run every preset on the same candles and rank them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			obj, err := scoring.ByName(objective)
			if err != nil {
				return err
			}
			candles, err := data.load(ctx, cfg)
			if err != nil {
				return err
			}

			var rows []ranked
			for _, name := range config.Presets() {
				strat, err := loadStrategy(cfg, "", name)
				if err != nil {
					return err
				}
				engine, err := backtest.NewEngine(strat)
				if err != nil {
					return err
				}
				results, err := engine.Run(ctx, candles)
				if err != nil {
					return fmt.Errorf("preset %s: %w", name, err)
				}
				rows = append(rows, ranked{
					preset:  name,
					results: results,
					loss:    scoring.Loss(obj, scoring.FromResults(results.OverallPerformance)),
				})
			}

			sort.SliceStable(rows, func(i, j int) bool { return rows[i].loss < rows[j].loss })
			return printRanking(cmd.OutOrStdout(), rows)
		},
	}

	data.register(cmd, cfg)
	cmd.Flags().StringVar(&objective, "objective", "balanced", objectiveUsage("Objective to rank by"))
	return cmd
}

func printRanking(out io.Writer, rows []ranked) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tTRADES\tWIN RATE\tRETURN\tMAX DD\tSHARPE\tHALTED\tLOSS")
	for _, r := range rows {
		p := r.results.OverallPerformance
		fmt.Fprintf(w, "%s\t%d\t%.1f%%\t%.2f%%\t%.2f%%\t%.2f\t%t\t%.4f\n",
			r.preset, p.TotalTrades, p.WinRate*100, p.TotalReturn*100, p.MaxDrawdown*100,
			p.SharpeRatio, r.results.Halted, r.loss)
	}
	return w.Flush()
}
