package tracker

import (
	"sort"
	"time"

	"github.com/ogulcanaydogan/usagewatch/pkg/model"
)

// ResetDropThreshold is how far, in percentage points, short-window
// utilization must fall before a window reset is declared. The previous
// reading must also have been above this value.
const ResetDropThreshold = 20.0

// Evaluate decides which notifications a new reading triggers and returns the
// state to persist. It never mutates its inputs; now is only used to stamp a
// detected reset.
//
// Reset detection runs first, so a reset and a still-high reading in the same
// poll re-open every threshold and can fire them again immediately.
func Evaluate(reading model.UsageReading, state model.State, cfg model.AlertConfig, now time.Time) ([]model.Event, model.State) {
	thresholds := cfg.NormalizedThresholds()
	current := reading.ShortWindow().Utilization
	last := state.LastUtilization

	next := state.Clone()
	alerted := make(map[float64]bool, len(thresholds))
	for _, t := range thresholds {
		if state.Alerted(t) {
			alerted[t] = true
		}
	}

	var events []model.Event

	if last > ResetDropThreshold && current < last-ResetDropThreshold {
		events = append(events, model.Event{Kind: model.EventWindowReset})
		alerted = make(map[float64]bool, len(thresholds))
		resetAt := now.UTC()
		next.LastResetAt = &resetAt
	}

	for _, t := range thresholds {
		if current >= t && !alerted[t] {
			events = append(events, model.Event{Kind: model.EventThresholdCrossed, Threshold: t})
			alerted[t] = true
		}
	}

	next.LastUtilization = current
	next.AlertsSent = make([]float64, 0, len(alerted))
	for t := range alerted {
		next.AlertsSent = append(next.AlertsSent, t)
	}
	sort.Float64s(next.AlertsSent)

	return events, next
}
