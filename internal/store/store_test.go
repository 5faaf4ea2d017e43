package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/shadowzap/internal/model"
	"github.com/raysh454/shadowzap/internal/testutil"
)

func newSQLiteForTest(t *testing.T, capacity int) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "state", "shadowzap.db"), capacity, &testutil.DummyLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func historyStores(t *testing.T, capacity int) map[string]HistoryStore {
	return map[string]HistoryStore{
		"memory": NewMemoryHistoryStore(capacity),
		"sqlite": newSQLiteForTest(t, capacity),
	}
}

func rec(localID, taskID string, status model.ScanStatus) model.ScanRecord {
	return model.ScanRecord{LocalID: localID, TaskID: taskID, Status: status, TargetURL: "https://example.com"}
}

func TestHistory_EmptyList(t *testing.T) {
	for name, h := range historyStores(t, 0) {
		t.Run(name, func(t *testing.T) {
			list, err := h.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list)
			assert.Equal(t, DefaultHistoryCap, h.Cap())
		})
	}
}

func TestHistory_PrependsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	for name, h := range historyStores(t, 10) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, h.Upsert(ctx, rec("L1", "T1", model.StatusRunning)))
			require.NoError(t, h.Upsert(ctx, rec("L2", "T2", model.StatusRunning)))

			list, err := h.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "T2", list[0].TaskID)
			assert.Equal(t, "T1", list[1].TaskID)
		})
	}
}

func TestHistory_UpsertReplacesInPlace(t *testing.T) {
	ctx := context.Background()
	for name, h := range historyStores(t, 10) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, h.Upsert(ctx, rec("L1", "", model.StatusInitializing)))
			require.NoError(t, h.Upsert(ctx, rec("L2", "T2", model.StatusRunning)))

			// The optimistic L1 entry gets its task id.
			require.NoError(t, h.Upsert(ctx, rec("L1", "T1", model.StatusRunning)))
			// A later update matches on task id.
			done := rec("L1", "T1", model.StatusCompleted)
			done.FileIDs = map[string]string{"html": "F1"}
			require.NoError(t, h.Upsert(ctx, done))

			list, err := h.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "T2", list[0].TaskID)
			assert.Equal(t, "T1", list[1].TaskID)
			assert.Equal(t, model.StatusCompleted, list[1].Status)
			assert.Equal(t, map[string]string{"html": "F1"}, list[1].FileIDs)
		})
	}
}

func TestHistory_NeverExceedsCapOldestEvicted(t *testing.T) {
	ctx := context.Background()
	for name, h := range historyStores(t, 50) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 60; i++ {
				require.NoError(t, h.Upsert(ctx, rec(fmt.Sprintf("L%d", i), fmt.Sprintf("T%d", i), model.StatusRunning)))
			}
			list, err := h.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 50)
			assert.Equal(t, "T59", list[0].TaskID)
			assert.Equal(t, "T10", list[49].TaskID)
		})
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	mem := NewMemorySessionStore(clock)
	sq := newSQLiteForTest(t, 0)
	sq.now = clock

	for name, s := range map[string]SessionStore{"memory": mem, "sqlite": sq} {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, "S1", DefaultSessionTTL))
			id, ok, err := s.Get(ctx)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "S1", id)

			now = now.Add(DefaultSessionTTL)
			_, ok, err = s.Get(ctx)
			require.NoError(t, err)
			assert.False(t, ok, "session should expire after 30 days")

			now = now.Add(-DefaultSessionTTL)
			require.NoError(t, s.Clear(ctx))
			_, ok, _ = s.Get(ctx)
			assert.False(t, ok)
		})
	}
}

func TestSQLiteStore_ToleratesLegacyAndCorruptHistory(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteForTest(t, 0)

	// Older entries carried only a subset of fields.
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, 0)`,
		HistoryKey, `[{"target_url":"https://old.example","task_id":"OLD","status":"Completed","file_count":3}]`)
	require.NoError(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "OLD", list[0].TaskID)

	_, err = s.db.ExecContext(ctx, `UPDATE kv SET value = 'not json' WHERE key = ?`, HistoryKey)
	require.NoError(t, err)
	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	// And the store recovers on the next write.
	require.NoError(t, s.Upsert(ctx, rec("L1", "T1", model.StatusRunning)))
	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shadowzap.db")

	s, err := OpenSQLiteStore(path, 0, &testutil.DummyLogger{})
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, rec("L1", "T1", model.StatusCompleted)))
	require.NoError(t, s.Set(ctx, "S1", time.Hour))
	require.NoError(t, s.Close())

	s, err = OpenSQLiteStore(path, 0, &testutil.DummyLogger{})
	require.NoError(t, err)
	defer s.Close()

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	id, ok, err := s.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "S1", id)
}

func TestNewSQLiteStore_NilDB(t *testing.T) {
	var db *sql.DB
	_, err := NewSQLiteStore(db, 0, nil)
	assert.Error(t, err)
}

func TestFilterBySession(t *testing.T) {
	records := []model.ScanRecord{
		{TaskID: "T1", SessionID: "S1"},
		{TaskID: "T2", SessionID: "S2"},
		{TaskID: "T3", SessionID: "S1"},
	}
	assert.Len(t, FilterBySession(records, ""), 3)
	got := FilterBySession(records, "S1")
	require.Len(t, got, 2)
	assert.Equal(t, "T1", got[0].TaskID)
	assert.Equal(t, "T3", got[1].TaskID)
}
