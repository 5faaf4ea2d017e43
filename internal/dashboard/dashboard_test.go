package dashboard_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/shadowzap/internal/backend"
	"github.com/raysh454/shadowzap/internal/dashboard"
	"github.com/raysh454/shadowzap/internal/model"
	"github.com/raysh454/shadowzap/internal/store"
	"github.com/raysh454/shadowzap/internal/testutil"
)

var ctx = context.Background()

type fakeBackend struct {
	mu sync.Mutex

	dashboard *backend.DashboardResponse
	sessions  []model.SessionSummary
	files     []model.FileGroup
	bySession map[string]string
	statuses  map[string]model.ScanStatus

	sessionArgs []string
}

func (f *fakeBackend) Dashboard(_ context.Context, sessionID string) (*backend.DashboardResponse, error) {
	f.mu.Lock()
	f.sessionArgs = append(f.sessionArgs, sessionID)
	f.mu.Unlock()
	if f.dashboard == nil {
		return nil, backend.ErrUnavailable
	}
	return f.dashboard, nil
}

func (f *fakeBackend) Sessions(context.Context, string) ([]model.SessionSummary, error) {
	if f.sessions == nil {
		return nil, backend.ErrUnavailable
	}
	return append([]model.SessionSummary(nil), f.sessions...), nil
}

func (f *fakeBackend) SessionFiles(context.Context, string) ([]model.FileGroup, error) {
	if f.files == nil {
		return nil, backend.ErrUnavailable
	}
	return f.files, nil
}

func (f *fakeBackend) ScanBySession(_ context.Context, sessionID string) (*backend.ScanRef, error) {
	if id, ok := f.bySession[sessionID]; ok {
		return &backend.ScanRef{TaskID: id}, nil
	}
	return nil, backend.ErrUnavailable
}

func (f *fakeBackend) ScanStatus(_ context.Context, taskID, _ string) (*model.StatusResponse, error) {
	if st, ok := f.statuses[taskID]; ok {
		return &model.StatusResponse{Status: st}, nil
	}
	return nil, backend.ErrUnavailable
}

func newService(t *testing.T, api *fakeBackend, records ...model.ScanRecord) (*dashboard.Service, *store.MemorySessionStore) {
	t.Helper()
	sessions := store.NewMemorySessionStore(nil)
	history := store.NewMemoryHistoryStore(0)
	for i := len(records) - 1; i >= 0; i-- {
		require.NoError(t, history.Upsert(ctx, records[i]))
	}
	return dashboard.NewService(api, sessions, history, &testutil.DummyLogger{}), sessions
}

func TestStats_SanitizesBackendCounters(t *testing.T) {
	api := &fakeBackend{dashboard: &backend.DashboardResponse{
		TotalScans:            5,
		CompletedScans:        9,
		FailedScans:           3,
		EnhancedReports:       2,
		VulnerabilitiesByType: map[string]backend.LooseInt{"high": 4, "info": 1, "critical": 7},
		RecentTargets:         json.RawMessage(`["https://a", null, "", "https://b"]`),
		RecentSessions:        json.RawMessage(`[{"session_id":"S1","target_url":"https://a"},{"session_id":"S2"},null]`),
	}}
	svc, sessions := newService(t, api)
	require.NoError(t, sessions.Set(ctx, "S1", store.DefaultSessionTTL))

	st, err := svc.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, dashboard.SourceBackend, st.Source)
	assert.Equal(t, 5, st.TotalScans)
	assert.Equal(t, 5, st.CompletedScans)
	assert.Equal(t, 0, st.FailedScans)
	assert.Equal(t, dashboard.Vulnerabilities{High: 4, Info: 1}, st.VulnerabilitiesByType)
	assert.Equal(t, []string{"https://a", "https://b"}, st.RecentTargets)
	require.Len(t, st.RecentSessions, 1)
	assert.Equal(t, "S1", st.RecentSessions[0].SessionID)
	assert.Equal(t, []string{"S1"}, api.sessionArgs)
}

func TestStats_FailedClampedToRemainder(t *testing.T) {
	api := &fakeBackend{dashboard: &backend.DashboardResponse{TotalScans: 4, CompletedScans: 3, FailedScans: 5}}
	svc, _ := newService(t, api)

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.FailedScans)
	assert.Empty(t, st.RecentTargets)
}

func TestStats_LocalFallbackFiltersBySession(t *testing.T) {
	records := []model.ScanRecord{
		{LocalID: "1", SessionID: "S1", TargetURL: "https://a.example/", Status: model.StatusCompleted, ReportType: model.ReportEnhanced},
		{LocalID: "2", SessionID: "S1", TargetURL: "HTTPS://A.example", Status: model.StatusFailed},
		{LocalID: "3", SessionID: "S1", TargetURL: "https://b.example", Status: model.StatusRunning, ReportType: "ENHANCED"},
		{LocalID: "4", SessionID: "S2", TargetURL: "https://c.example", Status: model.StatusCompleted},
	}
	svc, sessions := newService(t, &fakeBackend{}, records...)
	require.NoError(t, sessions.Set(ctx, "S1", store.DefaultSessionTTL))

	st, err := svc.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, dashboard.SourceLocal, st.Source)
	assert.Equal(t, 3, st.TotalScans)
	assert.Equal(t, 1, st.CompletedScans)
	assert.Equal(t, 1, st.FailedScans)
	assert.Equal(t, 2, st.EnhancedReports)
	assert.Equal(t, []string{"https://a.example/", "https://b.example"}, st.RecentTargets)
}

func TestStats_LocalRecentTargetsCapped(t *testing.T) {
	var records []model.ScanRecord
	for _, host := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		records = append(records, model.ScanRecord{LocalID: host, TargetURL: "https://" + host + ".example"})
	}
	svc, _ := newService(t, &fakeBackend{}, records...)

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, st.TotalScans)
	assert.Len(t, st.RecentTargets, 5)
	assert.Equal(t, "https://a.example", st.RecentTargets[0])
}

func TestHistory_EnrichesAndSorts(t *testing.T) {
	api := &fakeBackend{
		sessions: []model.SessionSummary{
			{SessionID: "S1", Timestamp: "2026-01-01T10:00:00Z"},
			{SessionID: "S2", Timestamp: "2026-01-03T10:00:00Z", FileCount: 3},
			{SessionID: "S3", Timestamp: "2026-01-02T10:00:00Z", Status: model.StatusRunning},
			{SessionID: "S4", Timestamp: "garbage"},
		},
		bySession: map[string]string{"S1": "T1"},
		statuses:  map[string]model.ScanStatus{"T1": model.StatusFailed},
	}
	svc, _ := newService(t, api)

	h, err := svc.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, dashboard.SourceBackend, h.Source)
	require.Len(t, h.Entries, 4)

	order := []string{}
	for _, e := range h.Entries {
		order = append(order, e.SessionID)
	}
	assert.Equal(t, []string{"S2", "S3", "S1", "S4"}, order)

	assert.Equal(t, model.StatusCompleted, h.Entries[0].Status, "inferred from file count")
	assert.Equal(t, model.StatusRunning, h.Entries[1].Status)
	assert.Equal(t, "T1", h.Entries[2].TaskID)
	assert.Equal(t, model.StatusFailed, h.Entries[2].Status)
	assert.Equal(t, model.ScanStatus(""), h.Entries[3].Status)
}

func TestHistory_LocalFallback(t *testing.T) {
	records := []model.ScanRecord{
		{LocalID: "1", TaskID: "T1", SessionID: "S1", TargetURL: "https://a", Status: model.StatusCompleted, FileIDs: map[string]string{"html": "F", "xml": ""}},
		{LocalID: "2", SessionID: "S2", TargetURL: "https://b"},
	}
	svc, sessions := newService(t, &fakeBackend{}, records...)
	require.NoError(t, sessions.Set(ctx, "S1", store.DefaultSessionTTL))

	h, err := svc.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, dashboard.SourceLocal, h.Source)
	require.Len(t, h.Entries, 1)
	assert.Equal(t, "T1", h.Entries[0].TaskID)
	assert.Equal(t, 1, h.Entries[0].FileCount)
}

func TestHistory_EmptyLocal(t *testing.T) {
	svc, _ := newService(t, &fakeBackend{})

	h, err := svc.History(ctx)
	require.NoError(t, err)
	assert.NotNil(t, h.Entries)
	assert.Empty(t, h.Entries)
}

func TestSessionFiles_KeepsReportsOnly(t *testing.T) {
	api := &fakeBackend{files: []model.FileGroup{
		{Timestamp: "t1", Files: []model.StoredFile{
			{FileID: "1", Filename: "zap.html"},
			{FileID: "2", Filename: "zap.log"},
			{FileID: "3", Filename: "report.PDF"},
		}},
		{Timestamp: "t2", Files: []model.StoredFile{{FileID: "4", Filename: "trace.txt"}}},
	}}
	svc, _ := newService(t, api)

	groups, ok := svc.SessionFiles(ctx, "S1")
	require.True(t, ok)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Files, 2)
	assert.Equal(t, "html", groups[0].Files[0].Kind)
	assert.Equal(t, "HTML Report", groups[0].Files[0].Label)
	assert.Equal(t, "pdf", groups[0].Files[1].Kind)
}

func TestSessionFiles_Unavailable(t *testing.T) {
	svc, _ := newService(t, &fakeBackend{})

	groups, ok := svc.SessionFiles(ctx, "S1")
	assert.False(t, ok)
	assert.Empty(t, groups)
}
