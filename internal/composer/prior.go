package composer

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
)

// StrategyExperience is the recorded history of one strategy.
type StrategyExperience struct {
	Trades  int     `json:"trades"`
	WinRate float64 `json:"win_rate"`
}

// ExperiencePrior biases strategy scores with results learned from earlier runs.
// It is read once at startup and never written by the engine.
type ExperiencePrior struct {
	Strategies map[string]StrategyExperience `json:"strategies"`
	MinSamples int                           `json:"-"`
}

// LoadPrior reads a prior from a JSON file.
func LoadPrior(path string, minSamples int) (*ExperiencePrior, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open prior: %w", err)
	}
	defer file.Close()

	return ParsePrior(file, minSamples)
}

// ParsePrior decodes a prior from r.
func ParsePrior(r io.Reader, minSamples int) (*ExperiencePrior, error) {
	var prior ExperiencePrior
	if err := json.NewDecoder(r).Decode(&prior); err != nil {
		return nil, fmt.Errorf("decode prior: %w", err)
	}
	for name, exp := range prior.Strategies {
		if exp.Trades < 0 || exp.WinRate < 0 || exp.WinRate > 1 {
			return nil, fmt.Errorf("prior for %q is out of range", name)
		}
	}
	prior.MinSamples = minSamples
	return &prior, nil
}

// Multiplier maps a strategy's historical win rate into [0.5, 1.5].
// Strategies with too little history, and a nil prior, get 1.
func (p *ExperiencePrior) Multiplier(strategy string) float64 {
	if p == nil {
		return 1
	}
	exp, ok := p.Strategies[strategy]
	if !ok || exp.Trades < p.MinSamples {
		return 1
	}
	return math.Max(0.5, math.Min(1.5, 0.5+exp.WinRate))
}
