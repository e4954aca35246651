package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/ogulcanaydogan/usagewatch/pkg/model"
)

// MaxHistoryRecords bounds the history: seven days of five-minute polls.
const MaxHistoryRecords = 2016

// HistoryStore persists the full snapshot list.
type HistoryStore interface {
	LoadHistory(ctx context.Context) ([]model.Snapshot, error)
	SaveHistory(ctx context.Context, history []model.Snapshot) error
}

// HistoryLog appends snapshots to a size-bounded history.
type HistoryLog struct {
	store HistoryStore
	max   int
	now   func() time.Time
	size  int
}

// NewHistoryLog creates a history log capped at MaxHistoryRecords.
func NewHistoryLog(store HistoryStore) *HistoryLog {
	return &HistoryLog{
		store: store,
		max:   MaxHistoryRecords,
		now:   time.Now,
	}
}

// Append records the reading and rewrites the stored history, dropping the
// oldest entries beyond the cap.
func (h *HistoryLog) Append(ctx context.Context, reading model.UsageReading) (model.Snapshot, error) {
	history, err := h.store.LoadHistory(ctx)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("load history: %w", err)
	}

	snapshot := model.NewSnapshot(h.now(), reading)
	history = Truncate(append(history, snapshot), h.max)

	if err := h.store.SaveHistory(ctx, history); err != nil {
		return model.Snapshot{}, fmt.Errorf("save history: %w", err)
	}
	h.size = len(history)
	return snapshot, nil
}

// Len returns the history length after the last successful Append.
func (h *HistoryLog) Len() int { return h.size }

// Truncate keeps the last max entries of history.
func Truncate(history []model.Snapshot, max int) []model.Snapshot {
	if max <= 0 || len(history) <= max {
		return history
	}
	out := make([]model.Snapshot, max)
	copy(out, history[len(history)-max:])
	return out
}
