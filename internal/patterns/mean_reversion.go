package patterns

import (
	"math"

	"github.com/Alias1177/trapfade/internal/config"
	"github.com/Alias1177/trapfade/internal/indicators"
	"github.com/Alias1177/trapfade/models"
)

// MeanReversion fires on an RSI extreme paired with a stretched deviation from the SMA.
// Closing outside the Bollinger band adds confidence.
type MeanReversion struct {
	cfg config.MeanReversionConfig
}

func NewMeanReversion(cfg config.MeanReversionConfig) *MeanReversion {
	return &MeanReversion{cfg: cfg}
}

func (d *MeanReversion) Name() string { return config.DetectorMeanReversion }

func (d *MeanReversion) Lookback() int {
	if d.cfg.RSIPeriod+1 > d.cfg.SMAPeriod {
		return d.cfg.RSIPeriod + 1
	}
	return d.cfg.SMAPeriod
}

func (d *MeanReversion) Forward() int { return 0 }

func (d *MeanReversion) Detect(candles []models.Candle, index int) models.DetectionResult {
	cfg := d.cfg
	if cfg.RSIPeriod <= 0 || cfg.SMAPeriod <= 0 {
		return none
	}
	lookback := d.Lookback()
	if !inBounds(candles, index, lookback, 0) {
		return none
	}

	closes := indicators.Closes(candles[index-lookback+1 : index+1])
	price := closes[len(closes)-1]

	rsi := indicators.CalculateRSI(closes, cfg.RSIPeriod)
	sma := indicators.CalculateSMA(closes, cfg.SMAPeriod)
	if sma <= 0 {
		return none
	}
	volatility := indicators.CalculateVolatility(closes[len(closes)-cfg.SMAPeriod:])
	deviation := (price - sma) / sma
	band := cfg.BandMultiplier * volatility
	bands := indicators.CalculateBollingerBands(closes, cfg.SMAPeriod)

	var dir models.Direction
	var extremity float64
	var outside bool
	switch {
	case rsi <= cfg.Oversold && deviation < -band:
		dir = models.Long
		extremity = saturate(cfg.Oversold-rsi, cfg.Oversold)
		outside = price < bands.Lower
	case rsi >= cfg.Overbought && deviation > band:
		dir = models.Short
		extremity = saturate(rsi-cfg.Overbought, 100-cfg.Overbought)
		outside = price > bands.Upper
	default:
		return none
	}

	stretch := 1.0
	if band > 0 {
		stretch = saturate(math.Abs(deviation), 2*band)
	}
	confidence := 0.4 + 0.3*extremity + 0.15*stretch
	if outside {
		confidence += 0.1
	}

	return models.DetectionResult{
		Detected:   true,
		Direction:  dir,
		Confidence: clipConfidence(confidence),
		Type:       models.PatternMeanReversion,
		Magnitude:  math.Abs(deviation),
		Price:      price,
	}
}
