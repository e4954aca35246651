package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ogulcanaydogan/usagewatch/pkg/model"
	"github.com/ogulcanaydogan/usagewatch/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *storage.SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestFile(t *testing.T) *storage.File {
	t.Helper()
	dir := t.TempDir()
	f, err := storage.NewFile(filepath.Join(dir, "state.json"), filepath.Join(dir, "data", "usage-history.json"))
	require.NoError(t, err)
	return f
}

func backends(t *testing.T) map[string]storage.Storage {
	return map[string]storage.Storage{
		"sqlite": newTestDB(t),
		"file":   newTestFile(t),
	}
}

func TestStorage_StateDefaults(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			state, err := store.LoadState(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 0.0, state.LastUtilization)
			assert.NotNil(t, state.AlertsSent)
			assert.Empty(t, state.AlertsSent)
			assert.Nil(t, state.LastResetAt)
		})
	}
}

func TestStorage_StateRoundTrip(t *testing.T) {
	resetAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := &model.State{LastUtilization: 77.5, AlertsSent: []float64{50, 75}, LastResetAt: &resetAt}
			require.NoError(t, store.SaveState(ctx, want))

			got, err := store.LoadState(ctx)
			require.NoError(t, err)
			assert.Equal(t, 77.5, got.LastUtilization)
			assert.Equal(t, []float64{50, 75}, got.AlertsSent)
			require.NotNil(t, got.LastResetAt)
			assert.True(t, resetAt.Equal(*got.LastResetAt))
		})
	}
}

func TestStorage_HistoryRoundTrip(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			empty, err := store.LoadHistory(ctx)
			require.NoError(t, err)
			assert.Empty(t, empty)

			base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
			var history []model.Snapshot
			for i := 0; i < 3; i++ {
				history = append(history, model.NewSnapshot(base.Add(time.Duration(i)*5*time.Minute),
					model.NewUsageReading(map[string]model.Window{model.WindowFiveHour: {Utilization: float64(i * 10)}})))
			}
			require.NoError(t, store.SaveHistory(ctx, history))

			got, err := store.LoadHistory(ctx)
			require.NoError(t, err)
			require.Len(t, got, 3)
			for i := range got {
				assert.True(t, history[i].Timestamp.Equal(got[i].Timestamp))
				assert.Equal(t, float64(i*10), got[i].Windows[model.WindowFiveHour].Utilization)
			}
		})
	}
}

func TestFile_WritesOriginalLayout(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	store, err := storage.NewFile(statePath, filepath.Join(dir, "usage-history.json"))
	require.NoError(t, err)

	require.NoError(t, store.SaveState(context.Background(), &model.State{LastUtilization: 12}))

	data, err := os.ReadFile(statePath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"last_five_hour_util":12,"alerts_sent":[],"last_reset_at":null}`, string(data))
}

func TestFile_ReadsExistingStateFile(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(statePath,
		[]byte(`{"last_five_hour_util": 61.0, "alerts_sent": [50], "last_reset_at": "2025-06-01T07:00:00.123456+00:00"}`), 0o644))

	store, err := storage.NewFile(statePath, filepath.Join(dir, "usage-history.json"))
	require.NoError(t, err)

	state, err := store.LoadState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 61.0, state.LastUtilization)
	assert.Equal(t, []float64{50}, state.AlertsSent)
	require.NotNil(t, state.LastResetAt)
}

func TestFile_CorruptState(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(statePath, []byte(`{oops`), 0o644))

	store, err := storage.NewFile(statePath, filepath.Join(dir, "usage-history.json"))
	require.NoError(t, err)

	_, err = store.LoadState(context.Background())
	assert.Error(t, err)
}

func TestSQLite_MigrationIdempotency(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	db1, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, db1.SaveState(context.Background(), &model.State{LastUtilization: 33}))
	db1.Close()

	db2, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	defer db2.Close()

	state, err := db2.LoadState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 33.0, state.LastUtilization)
}
