package tracker_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/raysh454/shadowzap/internal/backend"
	"github.com/raysh454/shadowzap/internal/model"
	"github.com/raysh454/shadowzap/internal/scheduler"
	"github.com/raysh454/shadowzap/internal/store"
	"github.com/raysh454/shadowzap/internal/testutil"
	"github.com/raysh454/shadowzap/internal/tracker"
)

type statusReply struct {
	resp *model.StatusResponse
	err  error
}

// fakeAPI answers from scripted replies. Status replies are consumed in
// order; the last one repeats.
type fakeAPI struct {
	mu sync.Mutex

	createResp *backend.CreateScanResponse
	createErr  error
	creates    []model.ScanRequest
	// createHook, when set, runs inside CreateScan before it answers.
	createHook func(ctx context.Context)

	statuses    []statusReply
	statusCalls []string
	// gate, when set, blocks ScanStatus until it is closed.
	gate    chan struct{}
	entered chan struct{}

	activeRef    *backend.ScanRef
	bySessionRef *backend.ScanRef

	dashboardUp bool
	updates     []backend.DashboardUpdate
}

func (f *fakeAPI) CreateScan(ctx context.Context, req model.ScanRequest) (*backend.CreateScanResponse, error) {
	if f.createHook != nil {
		f.createHook(ctx)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("create scan: %w: %w", backend.ErrUnavailable, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createResp, nil
}

func (f *fakeAPI) ScanStatus(_ context.Context, taskID, sessionID string) (*model.StatusResponse, error) {
	f.mu.Lock()
	f.statusCalls = append(f.statusCalls, taskID+"?"+sessionID)
	gate, entered := f.gate, f.entered
	var reply statusReply
	switch len(f.statuses) {
	case 0:
		reply = statusReply{err: backend.ErrUnavailable}
	case 1:
		reply = f.statuses[0]
	default:
		reply = f.statuses[0]
		f.statuses = f.statuses[1:]
	}
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return reply.resp, reply.err
}

func (f *fakeAPI) ActiveScan(context.Context, string) (*backend.ScanRef, error) {
	if f.activeRef == nil {
		return nil, fmt.Errorf("active scan: %w", backend.ErrUnavailable)
	}
	return f.activeRef, nil
}

func (f *fakeAPI) ScanBySession(context.Context, string) (*backend.ScanRef, error) {
	if f.bySessionRef == nil {
		return nil, fmt.Errorf("scan by session: %w", backend.ErrUnavailable)
	}
	return f.bySessionRef, nil
}

func (f *fakeAPI) DashboardAvailable(context.Context) bool { return f.dashboardUp }

func (f *fakeAPI) UpdateDashboard(_ context.Context, upd backend.DashboardUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, upd)
	return nil
}

func (f *fakeAPI) script(replies ...statusReply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = replies
}

func (f *fakeAPI) statusCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.statusCalls)
}

func replyStatus(status model.ScanStatus) statusReply {
	return statusReply{resp: &model.StatusResponse{Status: status}}
}

// recorder collects events.
type recorder struct {
	mu     sync.Mutex
	events []tracker.Event
}

func (r *recorder) observe(ev tracker.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []tracker.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tracker.Event(nil), r.events...)
}

func (r *recorder) count(typ tracker.EventType) int {
	n := 0
	for _, ev := range r.all() {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

type harness struct {
	api      *fakeAPI
	sessions *store.MemorySessionStore
	history  *store.MemoryHistoryStore
	sched    *scheduler.ManualScheduler
	logger   *testutil.DummyLogger
	events   *recorder
	tracker  *tracker.Tracker
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		api:     &fakeAPI{createResp: &backend.CreateScanResponse{TaskID: "T1", WebSessionID: "S1"}},
		history: store.NewMemoryHistoryStore(store.DefaultHistoryCap),
		sched:   scheduler.NewManualScheduler(),
		logger:  &testutil.DummyLogger{},
		events:  &recorder{},
		now:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	h.sessions = store.NewMemorySessionStore(func() time.Time { return h.now })
	ids := 0
	h.tracker = tracker.New(tracker.Config{}, h.api, h.sessions, h.history, h.sched, h.logger,
		tracker.WithClock(func() time.Time { return h.now }),
		tracker.WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("L%d", ids)
		}))
	h.tracker.Subscribe(h.events.observe)
	return h
}

func (h *harness) submit(t *testing.T) *model.ScanRecord {
	t.Helper()
	rec, err := h.tracker.Submit(context.Background(), model.ScanRequest{
		TargetURL:  "https://example.com",
		ScanType:   model.ScanBasic,
		ReportType: model.ReportEnhanced,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return rec
}
