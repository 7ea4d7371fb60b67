package models

import (
	"fmt"
	"time"
)

const msPerDay = int64(24 * time.Hour / time.Millisecond)

// DayIndex returns the UTC calendar day number of a millisecond timestamp.
func DayIndex(ts int64) int64 {
	if ts < 0 {
		return (ts - msPerDay + 1) / msPerDay
	}
	return ts / msPerDay
}

// SpanDays returns the number of days covered by the sequence.
func SpanDays(candles []Candle) float64 {
	if len(candles) < 2 {
		return 0
	}
	return float64(candles[len(candles)-1].Timestamp-candles[0].Timestamp) / float64(msPerDay)
}

// IntervalDuration parses exchange-style interval names.
func IntervalDuration(interval string) (time.Duration, error) {
	switch interval {
	case "1m", "1min":
		return time.Minute, nil
	case "3m", "3min":
		return 3 * time.Minute, nil
	case "5m", "5min":
		return 5 * time.Minute, nil
	case "15m", "15min":
		return 15 * time.Minute, nil
	case "30m", "30min":
		return 30 * time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "2h":
		return 2 * time.Hour, nil
	case "4h":
		return 4 * time.Hour, nil
	case "8h":
		return 8 * time.Hour, nil
	case "1d", "1day":
		return 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("unsupported interval %q", interval)
}

// CandlesForDays estimates how many candles cover the given number of days.
func CandlesForDays(interval string, days int) int {
	d, err := IntervalDuration(interval)
	if err != nil || days <= 0 {
		return 0
	}
	perDay := int(24 * time.Hour / d)
	if perDay < 1 {
		perDay = 1
	}
	// Add a buffer for warm-up bars
	return int(float64(perDay) * float64(days) * 1.1)
}
