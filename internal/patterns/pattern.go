// Package patterns implements the detector bank: independent heuristics that look at a
// candle window around an index and report an optional directional detection.
package patterns

import (
	"fmt"

	"github.com/Alias1177/trapfade/internal/config"
	"github.com/Alias1177/trapfade/models"
)

// maxConfidence caps every detector's confidence.
const maxConfidence = 0.95

// Detector is one pattern heuristic.
//
// Detect must be pure: it may read candles before index (Lookback) and, for
// confirmation, candles after it (Forward). Look-ahead is deliberate; these labels
// only exist for backtests.
type Detector interface {
	Name() string
	Lookback() int
	Forward() int
	Detect(candles []models.Candle, index int) models.DetectionResult
}

// Candidate is a fired detection tagged with the detector that produced it.
type Candidate struct {
	Strategy string
	Result   models.DetectionResult
}

// New builds a detector by name.
func New(name string, cfg config.DetectorConfig) (Detector, error) {
	switch name {
	case config.DetectorFakeBreakout:
		return NewFakeBreakout(cfg.FakeBreakout), nil
	case config.DetectorWickHunt:
		return NewWickHunt(cfg.WickHunt), nil
	case config.DetectorLiquidationHunt:
		return NewLiquidationHunt(cfg.LiquidationHunt), nil
	case config.DetectorWashTrading:
		return NewWashTrading(cfg.WashTrading), nil
	case config.DetectorTrendFollowing:
		return NewTrendFollowing(cfg.TrendFollowing), nil
	case config.DetectorMeanReversion:
		return NewMeanReversion(cfg.MeanReversion), nil
	case config.DetectorMomentum:
		return NewMomentum(cfg.Momentum), nil
	case config.DetectorForecast:
		return NewForecast(cfg.Forecast), nil
	}
	return nil, fmt.Errorf("unknown detector %q", name)
}

// Bank runs a fixed, ordered set of detectors.
type Bank struct {
	detectors []Detector
}

// NewBank builds the enabled detectors in configured order.
func NewBank(cfg *config.StrategyConfig) (*Bank, error) {
	detectors := make([]Detector, 0, len(cfg.EnabledDetectors))
	for _, name := range cfg.EnabledDetectors {
		d, err := New(name, cfg.Detectors)
		if err != nil {
			return nil, err
		}
		detectors = append(detectors, d)
	}
	return NewBankFrom(detectors...), nil
}

// NewBankFrom wraps an explicit detector list; order is the tie-break order.
func NewBankFrom(detectors ...Detector) *Bank {
	return &Bank{detectors: detectors}
}

// Evaluate returns every detection that fired at index, in registration order.
func (b *Bank) Evaluate(candles []models.Candle, index int) []Candidate {
	var out []Candidate
	for _, d := range b.detectors {
		res := d.Detect(candles, index)
		if !res.Detected {
			continue
		}
		out = append(out, Candidate{Strategy: d.Name(), Result: res})
	}
	return out
}

// Lookback is the longest history any detector needs.
func (b *Bank) Lookback() int {
	max := 0
	for _, d := range b.detectors {
		if d.Lookback() > max {
			max = d.Lookback()
		}
	}
	return max
}

// Forward is the longest confirmation window any detector needs.
func (b *Bank) Forward() int {
	max := 0
	for _, d := range b.detectors {
		if d.Forward() > max {
			max = d.Forward()
		}
	}
	return max
}

// Names lists the detectors in order.
func (b *Bank) Names() []string {
	names := make([]string, len(b.detectors))
	for i, d := range b.detectors {
		names[i] = d.Name()
	}
	return names
}

// inBounds reports whether index has the history and confirmation bars a detector needs.
func inBounds(candles []models.Candle, index, lookback, forward int) bool {
	return index >= lookback && index >= 0 && index+forward < len(candles)
}

// referenceStats summarizes the lookback bars preceding index.
func referenceStats(candles []models.Candle, index, lookback int) (high, low, avgVolume float64) {
	window := candles[index-lookback : index]
	high = window[0].High
	low = window[0].Low
	var volume float64
	for _, c := range window {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
		volume += c.Volume
	}
	return high, low, volume / float64(len(window))
}

// volumeRatio guards zero average volume with a neutral ratio of 1.
func volumeRatio(volume, average float64) float64 {
	if average <= 0 {
		return 1
	}
	return volume / average
}

// saturate returns v/scale capped at 1, 0 for a non-positive scale.
func saturate(v, scale float64) float64 {
	if scale <= 0 {
		return 0
	}
	r := v / scale
	if r > 1 {
		return 1
	}
	if r < 0 {
		return 0
	}
	return r
}

func clipConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > maxConfidence {
		return maxConfidence
	}
	return v
}

var none = models.DetectionResult{}
