package tracker_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ogulcanaydogan/usagewatch/pkg/model"
	"github.com/ogulcanaydogan/usagewatch/pkg/storage"
	"github.com/ogulcanaydogan/usagewatch/pkg/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryHistory struct {
	history []model.Snapshot
	saveErr error
	saves   int
}

func (m *memoryHistory) LoadHistory(context.Context) ([]model.Snapshot, error) {
	return append([]model.Snapshot(nil), m.history...), nil
}

func (m *memoryHistory) SaveHistory(_ context.Context, history []model.Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.history = append([]model.Snapshot(nil), history...)
	return nil
}

func snapshotsFrom(start time.Time, n int) []model.Snapshot {
	out := make([]model.Snapshot, n)
	for i := range out {
		out[i] = model.NewSnapshot(start.Add(time.Duration(i)*5*time.Minute), shortReading(float64(i%100)))
	}
	return out
}

func TestHistoryLog_Append(t *testing.T) {
	store := &memoryHistory{}
	log := tracker.NewHistoryLog(store)

	snap, err := log.Append(context.Background(), shortReading(33))
	require.NoError(t, err)

	assert.False(t, snap.Timestamp.IsZero())
	assert.Equal(t, time.UTC, snap.Timestamp.Location())
	assert.Equal(t, 33.0, snap.Windows[model.WindowFiveHour].Utilization)
	require.Len(t, store.history, 1)
	assert.Equal(t, 1, log.Len())
}

func TestHistoryLog_DropsOldestAtCap(t *testing.T) {
	start := time.Date(2025, 5, 25, 0, 0, 0, 0, time.UTC)
	store := &memoryHistory{history: snapshotsFrom(start, tracker.MaxHistoryRecords)}
	first, second := store.history[0], store.history[1]

	snap, err := tracker.NewHistoryLog(store).Append(context.Background(), shortReading(1))
	require.NoError(t, err)

	require.Len(t, store.history, tracker.MaxHistoryRecords)
	assert.False(t, store.history[0].Timestamp.Equal(first.Timestamp))
	assert.True(t, store.history[0].Timestamp.Equal(second.Timestamp))
	assert.True(t, store.history[len(store.history)-1].Timestamp.Equal(snap.Timestamp))
}

func TestHistoryLog_BoundAfterManyAppends(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFile(filepath.Join(dir, "state.json"), filepath.Join(dir, "usage-history.json"))
	require.NoError(t, err)

	start := time.Date(2025, 5, 25, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveHistory(context.Background(), snapshotsFrom(start, tracker.MaxHistoryRecords+10)))

	log := tracker.NewHistoryLog(store)
	var appended []model.Snapshot
	for i := 0; i < 5; i++ {
		snap, err := log.Append(context.Background(), shortReading(float64(i)))
		require.NoError(t, err)
		appended = append(appended, snap)
	}

	history, err := store.LoadHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, history, tracker.MaxHistoryRecords)
	for i := 1; i < len(history)-len(appended); i++ {
		assert.True(t, history[i].Timestamp.After(history[i-1].Timestamp), "entry %d out of order", i)
	}
	tail := history[len(history)-len(appended):]
	for i := range appended {
		assert.True(t, appended[i].Timestamp.Equal(tail[i].Timestamp))
	}
}

func TestHistoryLog_SaveFailure(t *testing.T) {
	store := &memoryHistory{saveErr: errors.New("disk full")}

	_, err := tracker.NewHistoryLog(store).Append(context.Background(), shortReading(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestTruncate(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	history := snapshotsFrom(start, 10)

	assert.Len(t, tracker.Truncate(history, 20), 10)
	assert.Len(t, tracker.Truncate(history, 0), 10)

	got := tracker.Truncate(history, 3)
	require.Len(t, got, 3)
	assert.True(t, got[0].Timestamp.Equal(history[7].Timestamp))
	assert.True(t, got[2].Timestamp.Equal(history[9].Timestamp))
}
