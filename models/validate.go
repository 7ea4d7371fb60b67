package models

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoCandles is returned for an empty sequence.
	ErrNoCandles = errors.New("no candles")
	// ErrInvalidCandle wraps every per-candle validation failure.
	ErrInvalidCandle = errors.New("invalid candle")
)

// ValidateCandles checks a sequence is well-formed before it reaches the loop.
func ValidateCandles(candles []Candle) error {
	if len(candles) == 0 {
		return ErrNoCandles
	}
	for i, c := range candles {
		if err := validateCandle(c); err != nil {
			return fmt.Errorf("%w at index %d (ts=%d): %v", ErrInvalidCandle, i, c.Timestamp, err)
		}
		if i > 0 && c.Timestamp <= candles[i-1].Timestamp {
			return fmt.Errorf("%w at index %d: timestamp %d not after %d",
				ErrInvalidCandle, i, c.Timestamp, candles[i-1].Timestamp)
		}
	}
	return nil
}

func validateCandle(c Candle) error {
	fields := [...]struct {
		name  string
		value float64
	}{{"open", c.Open}, {"high", c.High}, {"low", c.Low}, {"close", c.Close}, {"volume", c.Volume}}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s is not finite", f.name)
		}
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return errors.New("prices must be positive")
	}
	if c.Volume < 0 {
		return errors.New("volume must not be negative")
	}
	if c.High < c.Low {
		return fmt.Errorf("high %.8f below low %.8f", c.High, c.Low)
	}
	if c.Open > c.High || c.Open < c.Low || c.Close > c.High || c.Close < c.Low {
		return errors.New("open/close outside high-low range")
	}
	return nil
}
