package models

import (
	"time"
)

// Candle represents a single OHLCV bar. Timestamp is Unix milliseconds.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Time returns the candle open time in UTC.
func (c Candle) Time() time.Time {
	return time.UnixMilli(c.Timestamp).UTC()
}

// Range is the high-low excursion of the bar.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Body is the absolute open-close distance.
func (c Candle) Body() float64 {
	if c.Close > c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// UpperWick is the part of the range above the body.
func (c Candle) UpperWick() float64 {
	top := c.Open
	if c.Close > top {
		top = c.Close
	}
	return c.High - top
}

// LowerWick is the part of the range below the body.
func (c Candle) LowerWick() float64 {
	bottom := c.Open
	if c.Close < bottom {
		bottom = c.Close
	}
	return bottom - c.Low
}

// Direction is the side a signal or position takes.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Sign returns +1 for LONG and -1 for SHORT.
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// Opposite returns the other side.
func (d Direction) Opposite() Direction {
	if d == Short {
		return Long
	}
	return Short
}

// Pattern types emitted by the detector bank
const (
	PatternFakeBreakout    = "FAKE_BREAKOUT"
	PatternWickHunt        = "WICK_HUNT"
	PatternLiquidationHunt = "LIQUIDATION_HUNT"
	PatternWashTrading     = "WASH_TRADING"
	PatternTrendFollowing  = "TREND_FOLLOWING"
	PatternMeanReversion   = "MEAN_REVERSION"
	PatternMomentum        = "MOMENTUM"
	PatternForecast        = "FORECAST"
)

// DetectionResult is the output of a single detector call for one bar.
type DetectionResult struct {
	Detected    bool      `json:"detected"`
	Direction   Direction `json:"direction,omitempty"`
	Confidence  float64   `json:"confidence"`
	Type        string    `json:"type,omitempty"`
	Magnitude   float64   `json:"magnitude"`              // breakout size, spike size, deviation...
	WickRatio   float64   `json:"wick_ratio,omitempty"`   // wick / range of the candidate bar
	BodyRatio   float64   `json:"body_ratio,omitempty"`   // body / range of the candidate bar
	VolumeRatio float64   `json:"volume_ratio,omitempty"` // candidate volume / reference average
	Price       float64   `json:"price,omitempty"`        // reference price at detection
}

// IsManipulation reports whether the result is one of the trap patterns.
func (r DetectionResult) IsManipulation() bool {
	switch r.Type {
	case PatternFakeBreakout, PatternWickHunt, PatternLiquidationHunt, PatternWashTrading:
		return true
	}
	return false
}

// Signal is the composer's pick for the current bar.
type Signal struct {
	DetectionResult
	Strategy string  `json:"strategy"`
	Weight   float64 `json:"weight"`
	Score    float64 `json:"score"`
}

// Regime buckets used by the composer
const (
	RegimeTrending = "TRENDING"
	RegimeSideways = "SIDEWAYS"
	RegimeVolatile = "VOLATILE"
	RegimeUnknown  = "UNKNOWN"
)

// MarketRegime represents the current market conditions
type MarketRegime struct {
	Type       string  `json:"type"`       // TRENDING, SIDEWAYS, VOLATILE, UNKNOWN
	Trend      float64 `json:"trend"`      // short-horizon slope proxy
	Volatility float64 `json:"volatility"` // stdev of returns over the window
	Strength   float64 `json:"strength"`   // 0-1
}
