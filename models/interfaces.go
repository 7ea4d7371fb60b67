package models

import "context"

// CandleSource supplies an ordered candle sequence before a run starts.
type CandleSource interface {
	Candles(ctx context.Context) ([]Candle, error)
}
