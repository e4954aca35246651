package tracker

import "github.com/ogulcanaydogan/usagewatch/pkg/model"

// Re-export types from model package for convenience.
type (
	UsageReading = model.UsageReading
	Snapshot     = model.Snapshot
	State        = model.State
	AlertConfig  = model.AlertConfig
	Event        = model.Event
)

// Re-export constants.
const (
	EventWindowReset      = model.EventWindowReset
	EventThresholdCrossed = model.EventThresholdCrossed
)
