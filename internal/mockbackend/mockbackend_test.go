package mockbackend_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/shadowzap/internal/backend"
	"github.com/raysh454/shadowzap/internal/dashboard"
	"github.com/raysh454/shadowzap/internal/mockbackend"
	"github.com/raysh454/shadowzap/internal/model"
	"github.com/raysh454/shadowzap/internal/reportsummary"
	"github.com/raysh454/shadowzap/internal/scheduler"
	"github.com/raysh454/shadowzap/internal/store"
	"github.com/raysh454/shadowzap/internal/testutil"
	"github.com/raysh454/shadowzap/internal/tracker"
	"github.com/raysh454/shadowzap/internal/webclient"
)

type stack struct {
	mock     *mockbackend.Server
	ts       *httptest.Server
	client   *backend.Client
	sessions *store.MemorySessionStore
	history  *store.MemoryHistoryStore
	sched    *scheduler.ManualScheduler
	tracker  *tracker.Tracker
}

func newStack(t *testing.T) *stack {
	t.Helper()
	logger := &testutil.DummyLogger{}
	mock := mockbackend.New(mockbackend.DefaultConfig(), logger)
	ts := httptest.NewServer(mock.Handler())
	t.Cleanup(ts.Close)

	web, err := webclient.NewNetHTTPClient(webclient.Config{}, logger, ts.Client())
	require.NoError(t, err)

	s := &stack{
		mock:     mock,
		ts:       ts,
		client:   backend.NewClient(backend.Config{BaseURL: ts.URL}, web, logger),
		sessions: store.NewMemorySessionStore(nil),
		history:  store.NewMemoryHistoryStore(0),
		sched:    scheduler.NewManualScheduler(),
	}
	s.tracker = tracker.New(tracker.Config{}, s.client, s.sessions, s.history, s.sched, logger)
	return s
}

func TestFullScanLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	var completions int
	s.tracker.Subscribe(func(ev tracker.Event) {
		if ev.Type == tracker.EventCompleted {
			completions++
		}
	})

	rec, err := s.tracker.Submit(ctx, model.ScanRequest{TargetURL: "https://example.com", ReportType: model.ReportEnhanced})
	require.NoError(t, err)
	require.NotEmpty(t, rec.TaskID)
	require.NotEmpty(t, rec.SessionID)
	assert.Equal(t, 1, s.mock.DashboardUpdates(rec.SessionID))

	require.NoError(t, s.tracker.StartAutoPoll(rec.TaskID, 0))
	for i := 0; i < 5; i++ {
		s.sched.Advance(tracker.DefaultPollInterval)
	}

	final := s.tracker.Current()
	assert.Equal(t, model.StatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.NotEmpty(t, final.FileIDs[model.FileHTML])
	assert.NotEmpty(t, final.FileIDs[model.FilePDFEnhanced])
	assert.NotEmpty(t, final.ReportID)
	assert.Equal(t, 1, completions)
	assert.Equal(t, 0, s.sched.Active())
	assert.Equal(t, 2, s.mock.DashboardUpdates(rec.SessionID))

	list, err := s.history.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.StatusCompleted, list[0].Status)

	file, err := s.client.DownloadFile(ctx, final.FileIDs[model.FileHTML])
	require.NoError(t, err)
	sum, err := reportsummary.Parse(bytes.NewReader(file.Body))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.High)
	assert.Equal(t, 2, sum.Medium)
	assert.Len(t, sum.Alerts, 5)

	for _, link := range s.client.ReportLinks(final) {
		resp, err := http.Get(link.URL)
		require.NoError(t, err, link.Label)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, link.Label)
	}
}

func TestRejectedSubmission(t *testing.T) {
	s := newStack(t)

	rec, err := s.tracker.Submit(context.Background(), model.ScanRequest{TargetURL: "https://reject.example"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, rec.Status)
	assert.Equal(t, "target rejected by scan policy", rec.Error)
}

func TestForcedFailure(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	rec, err := s.tracker.Submit(ctx, model.ScanRequest{TargetURL: "https://example.com"})
	require.NoError(t, err)

	resp, err := http.PostForm(s.ts.URL+"/mock/fail", url.Values{"task_id": {rec.TaskID}})
	require.NoError(t, err)
	_ = resp.Body.Close()

	got, err := s.tracker.Poll(ctx, rec.TaskID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Equal(t, "ZAP daemon terminated unexpectedly", got.Error)
}

func TestResumeAndDashboardViews(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	rec, err := s.tracker.Submit(ctx, model.ScanRequest{TargetURL: "https://example.com", ReportType: model.ReportNormal})
	require.NoError(t, err)
	s.tracker.Reset()

	resumed, err := s.tracker.Resume(ctx)
	require.NoError(t, err)
	require.NotNil(t, resumed)
	assert.Equal(t, rec.TaskID, resumed.TaskID)
	assert.Equal(t, 1, s.sched.Active())

	for i := 0; i < 3; i++ {
		_, _ = s.tracker.Poll(ctx, rec.TaskID)
	}
	require.True(t, s.tracker.Current().Terminal())

	svc := dashboard.NewService(s.client, s.sessions, s.history, &testutil.DummyLogger{})
	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, dashboard.SourceBackend, stats.Source)
	assert.Equal(t, 1, stats.TotalScans)
	assert.Equal(t, 1, stats.CompletedScans)
	assert.Equal(t, []string{"https://example.com"}, stats.RecentTargets)

	hist, err := svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, hist.Entries, 1)
	assert.Equal(t, model.StatusCompleted, hist.Entries[0].Status)

	groups, ok := svc.SessionFiles(ctx, rec.SessionID)
	require.True(t, ok)
	require.Len(t, groups, 1)
	for _, f := range groups[0].Files {
		assert.False(t, strings.HasSuffix(f.Filename, ".log"))
	}
}
