// Package anomaly classifies market regimes and turns fired trap-pattern detections into
// manipulation events for the run report.
package anomaly

import (
	"math"

	"github.com/Alias1177/trapfade/internal/patterns"
	"github.com/Alias1177/trapfade/models"
)

// Severity buckets
const (
	SeverityLow    = "LOW"
	SeverityMedium = "MEDIUM"
	SeverityHigh   = "HIGH"
)

// Score folds confidence, volume and move size into a 0-1 anomaly score.
func Score(res models.DetectionResult) float64 {
	score := res.Confidence

	// Volume spike
	if res.VolumeRatio > 3.0 {
		score += 0.1
	}

	// Large move
	if res.Magnitude > 0.02 {
		score += 0.05
	}

	return math.Min(score, 1.0)
}

// Severity maps an anomaly score to a bucket.
func Severity(score float64) string {
	switch {
	case score >= 0.8:
		return SeverityHigh
	case score >= 0.65:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Events converts the manipulation detections among candidates into events at index.
// Non-trap detections are ignored.
func Events(candle models.Candle, index int, candidates []patterns.Candidate) []models.ManipulationEvent {
	var events []models.ManipulationEvent
	for _, c := range candidates {
		if !c.Result.IsManipulation() {
			continue
		}
		events = append(events, models.ManipulationEvent{
			Timestamp:   candle.Timestamp,
			Index:       index,
			Type:        c.Result.Type,
			Direction:   c.Result.Direction,
			Confidence:  c.Result.Confidence,
			Price:       candle.Close,
			VolumeRatio: c.Result.VolumeRatio,
			Severity:    Severity(Score(c.Result)),
		})
	}
	return events
}

// CountByType tallies events per pattern type.
func CountByType(events []models.ManipulationEvent) map[string]int {
	counts := make(map[string]int)
	for _, e := range events {
		counts[e.Type]++
	}
	return counts
}
