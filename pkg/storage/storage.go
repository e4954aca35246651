package storage

import (
	"context"

	"github.com/ogulcanaydogan/usagewatch/pkg/model"
)

// Storage persists alert state and usage history between runs.
type Storage interface {
	// LoadState returns the persisted state, or a fresh one if none exists.
	LoadState(ctx context.Context) (*model.State, error)

	// SaveState replaces the persisted state.
	SaveState(ctx context.Context, state *model.State) error

	// LoadHistory returns all snapshots in append order, or none.
	LoadHistory(ctx context.Context) ([]model.Snapshot, error)

	// SaveHistory replaces the persisted history.
	SaveHistory(ctx context.Context, history []model.Snapshot) error

	// Close releases resources.
	Close() error
}

func normalizeState(s *model.State) *model.State {
	if s == nil {
		return model.NewState()
	}
	if s.AlertsSent == nil {
		s.AlertsSent = []float64{}
	}
	return s
}
