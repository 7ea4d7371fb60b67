// Package metrics exposes backtest activity as prometheus series.
package metrics

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Recorder counts engine events. The zero value is not usable; use NewRecorder.
type Recorder struct {
	PositionsOpened *prometheus.CounterVec
	TradesClosed    *prometheus.CounterVec
	RiskRejections  *prometheus.CounterVec
	Halts           prometheus.Counter
	Capital         prometheus.Gauge
	Drawdown        prometheus.Gauge
}

// NewRecorder creates the series and registers them on reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		PositionsOpened: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "backtest_positions_opened_total", Help: "Positions opened"},
			[]string{"strategy", "side"},
		),
		TradesClosed: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "backtest_trades_closed_total", Help: "Trade records produced by closes"},
			[]string{"strategy", "reason"},
		),
		RiskRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "backtest_risk_rejections_total", Help: "Opens refused by the risk gate"},
			[]string{"reason"},
		),
		Halts: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "backtest_halts_total", Help: "Runs stopped by the drawdown breaker"},
		),
		Capital: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "backtest_capital", Help: "Current capital"},
		),
		Drawdown: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "backtest_drawdown", Help: "Current drawdown from peak"},
		),
	}

	for _, c := range []prometheus.Collector{
		r.PositionsOpened, r.TradesClosed, r.RiskRejections, r.Halts, r.Capital, r.Drawdown,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) PositionOpened(strategy, side string) {
	r.PositionsOpened.WithLabelValues(strategy, side).Inc()
}

func (r *Recorder) TradeClosed(strategy, reason string) {
	r.TradesClosed.WithLabelValues(strategy, reason).Inc()
}

func (r *Recorder) Rejected(reason string) {
	r.RiskRejections.WithLabelValues(reason).Inc()
}

func (r *Recorder) Halted() {
	r.Halts.Inc()
}

func (r *Recorder) Equity(capital, drawdown float64) {
	r.Capital.Set(capital)
	r.Drawdown.Set(drawdown)
}

// Serve binds addr and exposes gatherer on /metrics in the background.
// Bind errors are returned; later serve errors are logged.
func Serve(addr string, gatherer prometheus.Gatherer) (*http.Server, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: l.Addr().String(), Handler: mux}

	go func() {
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", srv.Addr).Msg("Metrics server stopped")
		}
	}()
	return srv, nil
}
