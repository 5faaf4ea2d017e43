// Package tracker owns the client-side lifecycle of a scan: submission,
// status polling, reconciliation into the local history and the single
// completion notification.
package tracker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/shadowzap/internal/backend"
	"github.com/raysh454/shadowzap/internal/logging"
	"github.com/raysh454/shadowzap/internal/metrics"
	"github.com/raysh454/shadowzap/internal/model"
	"github.com/raysh454/shadowzap/internal/scheduler"
	"github.com/raysh454/shadowzap/internal/store"
)

const (
	DefaultPollInterval = 5 * time.Second

	msgStartFailed = "Error starting scan"
	msgScanFailed  = "Scan failed"
)

// ErrUnknownTask is returned for task ids the tracker is not following.
var ErrUnknownTask = errors.New("unknown task")

// Config tunes polling and session persistence.
type Config struct {
	PollInterval time.Duration
	SessionTTL   time.Duration
}

type Option func(*Tracker)

// WithMetrics records tracker activity on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithIDGenerator replaces the uuid source for local record ids.
func WithIDGenerator(fn func() string) Option {
	return func(t *Tracker) { t.newID = fn }
}

// WithContext sets the context auto-polls run under. It defaults to
// context.Background.
func WithContext(ctx context.Context) Option {
	return func(t *Tracker) { t.baseCtx = ctx }
}

// Tracker follows one scan at a time. It is safe for concurrent use;
// observers are called without the tracker lock held.
type Tracker struct {
	api      backend.API
	sessions store.SessionStore
	history  store.HistoryStore
	sched    scheduler.Scheduler
	logger   logging.Logger
	metrics  *metrics.Metrics

	pollInterval time.Duration
	sessionTTL   time.Duration
	now          func() time.Time
	newID        func() string
	baseCtx      context.Context

	mu sync.Mutex
	// current is the record being tracked, nil after Reset.
	current *model.ScanRecord
	// generation changes whenever the tracked scan is replaced. Results
	// carrying an older generation are discarded.
	generation uint64
	// inFlight maps a task id to the generation of its outstanding poll.
	inFlight map[string]uint64
	timers   map[string]scheduler.Token

	subs     []subscription
	nextSub  int
	pending  []Event
	draining bool
}

func New(cfg Config, api backend.API, sessions store.SessionStore, history store.HistoryStore,
	sched scheduler.Scheduler, logger logging.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		api:          api,
		sessions:     sessions,
		history:      history,
		sched:        sched,
		logger:       logger.With(logging.Field{Key: "component", Value: "tracker"}),
		pollInterval: cfg.PollInterval,
		sessionTTL:   cfg.SessionTTL,
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
		baseCtx:      context.Background(),
		inFlight:     make(map[string]uint64),
		timers:       make(map[string]scheduler.Token),
	}
	if t.pollInterval <= 0 {
		t.pollInterval = DefaultPollInterval
	}
	if t.sessionTTL <= 0 {
		t.sessionTTL = store.DefaultSessionTTL
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Submit validates req, records it optimistically as Initializing and asks
// the backend to start the scan. Backend failures do not produce an error:
// they leave a Failed record. Only invalid requests return an error, and
// those touch neither the network nor any state. Once validated, the
// submission no longer follows ctx cancellation; the backend client bounds
// each call with its own timeout.
func (t *Tracker) Submit(ctx context.Context, req model.ScanRequest) (*model.ScanRecord, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		t.metrics.Submission("invalid")
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)
	if req.SessionID == "" {
		req.SessionID = t.storedSession(ctx)
	}

	rec := model.NewRecord(t.newID(), req, t.now())

	t.mu.Lock()
	t.replaceCurrentLocked(rec)
	gen := t.generation
	snapshot := rec.Clone()
	t.enqueueLocked(EventStatus, rec)
	t.mu.Unlock()

	t.saveHistory(ctx, snapshot)
	t.flush()

	t.logger.Info("submitting scan",
		logging.Field{Key: "local_id", Value: rec.LocalID},
		logging.Field{Key: "target_url", Value: req.TargetURL},
		logging.Field{Key: "scan_type", Value: string(req.ScanType)})

	resp, err := t.api.CreateScan(ctx, req)
	if err == nil && resp.TaskID == "" {
		err = errors.New("create scan: response carried no task id")
	}

	t.mu.Lock()
	live := gen == t.generation
	if err != nil {
		rec.Status = model.StatusFailed
		rec.Progress = model.Progress(model.StatusFailed)
		rec.Error = msgStartFailed
		var rej *backend.RejectedError
		if errors.As(err, &rej) && rej.Detail != "" {
			rec.Error = rej.Detail
		}
		rec.Notified = true
		if live {
			t.enqueueLocked(EventFailed, rec)
		}
	} else {
		rec.TaskID = resp.TaskID
		if resp.WebSessionID != "" {
			rec.SessionID = resp.WebSessionID
		}
		if live {
			t.enqueueLocked(EventStatus, rec)
		}
	}
	snapshot = rec.Clone()
	t.mu.Unlock()

	if err != nil {
		var rej *backend.RejectedError
		if errors.As(err, &rej) {
			t.metrics.Submission("rejected")
		} else {
			t.metrics.Submission("unavailable")
		}
		t.metrics.Completion(string(model.StatusFailed))
		t.logger.Warn("scan submission failed",
			logging.Field{Key: "local_id", Value: rec.LocalID},
			logging.Field{Key: "reason", Value: snapshot.Error},
			logging.Err(err))
	} else {
		t.metrics.Submission("accepted")
		t.logger.Info("scan accepted",
			logging.Field{Key: "task_id", Value: snapshot.TaskID},
			logging.Field{Key: "session_id", Value: snapshot.SessionID})
		if live && resp.WebSessionID != "" {
			t.persistSession(ctx, resp.WebSessionID)
		}
	}

	t.saveHistory(ctx, snapshot)
	t.flush()

	if err == nil && live {
		t.notifyDashboard(ctx, backend.DashboardUpdate{
			SessionID: snapshot.SessionID,
			TaskID:    snapshot.TaskID,
			TargetURL: snapshot.TargetURL,
		})
	}
	return snapshot, nil
}

// Poll fetches the backend status of the tracked task and applies it. It
// never fails because of the backend: when no usable answer arrives the last
// known record is returned unchanged. A poll issued while another one for
// the same task is outstanding returns immediately.
func (t *Tracker) Poll(ctx context.Context, taskID string) (*model.ScanRecord, error) {
	t.mu.Lock()
	rec := t.trackedLocked(taskID)
	if rec == nil {
		t.mu.Unlock()
		return nil, ErrUnknownTask
	}
	if g, ok := t.inFlight[taskID]; ok && g == t.generation {
		snapshot := rec.Clone()
		t.mu.Unlock()
		t.metrics.Poll(metrics.PollSuppressed)
		return snapshot, nil
	}
	gen := t.generation
	t.inFlight[taskID] = gen
	sessionID := rec.SessionID
	t.mu.Unlock()

	if sessionID == "" {
		sessionID = t.storedSession(ctx)
	}

	st, err := t.api.ScanStatus(ctx, taskID, sessionID)

	t.mu.Lock()
	if g, ok := t.inFlight[taskID]; ok && g == gen {
		delete(t.inFlight, taskID)
	}
	if err != nil {
		snapshot := rec.Clone()
		t.mu.Unlock()
		t.metrics.Poll(metrics.PollUnavailable)
		t.logger.Debug("status not available yet",
			logging.Field{Key: "task_id", Value: taskID},
			logging.Err(err))
		return snapshot, nil
	}
	if gen != t.generation || t.current != rec {
		snapshot := rec.Clone()
		t.mu.Unlock()
		t.metrics.Poll(metrics.PollStale)
		t.logger.Debug("discarding stale poll result", logging.Field{Key: "task_id", Value: taskID})
		return snapshot, nil
	}

	res := t.applyLocked(rec, st)
	if res.terminal {
		t.stopAutoPollLocked(taskID)
	}
	snapshot := rec.Clone()
	active := len(t.timers)
	t.mu.Unlock()

	t.metrics.Poll(metrics.PollApplied)
	if st.WebSessionID != "" {
		t.persistSession(ctx, st.WebSessionID)
	}
	if res.changed {
		t.saveHistory(ctx, snapshot)
	}
	t.flush()

	if res.newSession {
		t.notifyDashboard(ctx, backend.DashboardUpdate{SessionID: snapshot.SessionID, TaskID: taskID})
	}
	if res.terminal {
		t.metrics.ActivePolls(active)
		t.metrics.Completion(string(snapshot.Status))
		t.logger.Info("scan finished",
			logging.Field{Key: "task_id", Value: taskID},
			logging.Field{Key: "status", Value: string(snapshot.Status)},
			logging.Field{Key: "files", Value: len(snapshot.FileIDs)})
		t.notifyDashboard(ctx, backend.DashboardUpdate{
			SessionID: snapshot.SessionID,
			TaskID:    taskID,
			Status:    snapshot.Status,
		})
	}
	return snapshot, nil
}

type applyResult struct {
	changed    bool
	newSession bool
	terminal   bool
}

// applyLocked merges a status response into rec and queues the resulting
// events. Any report file id forces Completed regardless of the reported
// status; this trusts the artifact over a possibly stale status field.
func (t *Tracker) applyLocked(rec *model.ScanRecord, st *model.StatusResponse) applyResult {
	var res applyResult

	if st.WebSessionID != "" && st.WebSessionID != rec.SessionID {
		rec.SessionID = st.WebSessionID
		res.changed, res.newSession = true, true
	}
	if st.ReportID != "" && st.ReportID != rec.ReportID {
		rec.ReportID = st.ReportID
		res.changed = true
	}
	if rt := model.ReportType(strings.ToLower(st.ReportType)); rt.Valid() && rt != rec.ReportType {
		rec.ReportType = rt
		res.changed = true
	}

	files := model.NonEmptyFileIDs(st.FileIDs)
	if rec.FileIDs == nil {
		rec.FileIDs = make(map[string]string, len(files))
	}
	for k, v := range files {
		if rec.FileIDs[k] != v {
			rec.FileIDs[k] = v
			res.changed = true
		}
	}

	if !rec.Terminal() {
		if st.Status != "" && st.Status != rec.Status {
			rec.Status = st.Status
			rec.Progress = model.Progress(st.Status)
			res.changed = true
		}
		switch {
		case len(files) > 0 && rec.Status != model.StatusCompleted:
			rec.Status = model.StatusCompleted
			rec.Progress = 100
			res.changed = true
		case bool(st.Completed) && !rec.Terminal():
			rec.Status = model.StatusCompleted
			rec.Progress = 100
			res.changed = true
		}
		if rec.Status == model.StatusFailed {
			rec.Error = st.Error
			if rec.Error == "" {
				rec.Error = msgScanFailed
			}
		} else {
			rec.Error = ""
		}
	}

	switch {
	case rec.Terminal() && !rec.Notified:
		rec.Notified = true
		res.terminal = true
		res.changed = true
		if rec.Status == model.StatusFailed {
			t.enqueueLocked(EventFailed, rec)
		} else {
			t.enqueueLocked(EventCompleted, rec)
		}
	case res.changed:
		t.enqueueLocked(EventStatus, rec)
	}
	return res
}

// StartAutoPoll polls taskID every interval until the record turns terminal
// or StopAutoPoll or Reset is called. Calling it again for the same task
// restarts the timer. A non-positive interval uses the configured default.
func (t *Tracker) StartAutoPoll(taskID string, interval time.Duration) error {
	if interval <= 0 {
		interval = t.pollInterval
	}

	t.mu.Lock()
	rec := t.trackedLocked(taskID)
	if rec == nil {
		t.mu.Unlock()
		return ErrUnknownTask
	}
	if rec.Terminal() {
		t.mu.Unlock()
		return nil
	}
	t.stopAutoPollLocked(taskID)
	t.timers[taskID] = t.sched.Schedule(func() { t.autoPoll(taskID) }, interval)
	active := len(t.timers)
	t.mu.Unlock()

	t.metrics.ActivePolls(active)
	t.logger.Debug("auto-poll started",
		logging.Field{Key: "task_id", Value: taskID},
		logging.Field{Key: "interval", Value: interval.String()})
	return nil
}

// StopAutoPoll cancels the timer for taskID, if any.
func (t *Tracker) StopAutoPoll(taskID string) {
	t.mu.Lock()
	t.stopAutoPollLocked(taskID)
	active := len(t.timers)
	t.mu.Unlock()
	t.metrics.ActivePolls(active)
}

func (t *Tracker) autoPoll(taskID string) {
	if _, err := t.Poll(t.baseCtx, taskID); err != nil {
		t.StopAutoPoll(taskID)
	}
}

func (t *Tracker) stopAutoPollLocked(taskID string) {
	if tok, ok := t.timers[taskID]; ok {
		t.sched.Cancel(tok)
		delete(t.timers, taskID)
	}
}

// Current returns a copy of the tracked record, or nil.
func (t *Tracker) Current() *model.ScanRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current.Clone()
}

// Record returns the tracked record for taskID, falling back to the local
// history.
func (t *Tracker) Record(ctx context.Context, taskID string) (*model.ScanRecord, error) {
	t.mu.Lock()
	if rec := t.trackedLocked(taskID); rec != nil {
		cp := rec.Clone()
		t.mu.Unlock()
		return cp, nil
	}
	t.mu.Unlock()

	if rec := t.fromHistory(ctx, taskID); rec != nil {
		return rec, nil
	}
	return nil, ErrUnknownTask
}

// Reset stops following the current scan. Pending timers are cancelled and
// outstanding polls are ignored when they resolve.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.replaceCurrentLocked(nil)
	t.mu.Unlock()
	t.metrics.ActivePolls(0)
}

// Resume picks up the scan the backend reports for the stored session, if
// any, and starts auto-polling it. It returns nil when there is nothing to
// resume.
func (t *Tracker) Resume(ctx context.Context) (*model.ScanRecord, error) {
	sessionID := t.storedSession(ctx)
	if sessionID == "" {
		return nil, nil
	}

	ref, err := t.api.ActiveScan(ctx, sessionID)
	if err != nil {
		ref, err = t.api.ScanBySession(ctx, sessionID)
	}
	if err != nil || ref == nil || ref.TaskID == "" {
		t.logger.Debug("no scan to resume", logging.Field{Key: "session_id", Value: sessionID})
		return nil, nil
	}

	rec := t.fromHistory(ctx, ref.TaskID)
	if rec == nil {
		rec = &model.ScanRecord{
			LocalID:    t.newID(),
			TaskID:     ref.TaskID,
			SessionID:  sessionID,
			TargetURL:  ref.TargetURL,
			ScanType:   ref.ScanType,
			ReportType: model.ReportType(strings.ToLower(ref.ReportType)),
			Status:     model.StatusInitializing,
			Timestamp:  ref.Timestamp,
			FileIDs:    map[string]string{},
		}
		if ref.Status != "" {
			rec.Status = ref.Status
		}
		if rec.Timestamp == "" {
			rec.Timestamp = t.now().UTC().Format(time.RFC3339)
		}
		rec.Progress = model.Progress(rec.Status)
	}
	if rec.Terminal() {
		rec.Notified = true
	}

	t.mu.Lock()
	t.replaceCurrentLocked(rec)
	t.enqueueLocked(EventStatus, rec)
	t.mu.Unlock()
	t.flush()

	t.logger.Info("resuming scan",
		logging.Field{Key: "task_id", Value: rec.TaskID},
		logging.Field{Key: "session_id", Value: sessionID})

	snapshot, err := t.Poll(ctx, rec.TaskID)
	if err != nil {
		return nil, err
	}
	if err := t.StartAutoPoll(rec.TaskID, 0); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// replaceCurrentLocked switches the tracked record, cancelling every timer
// and invalidating outstanding polls.
func (t *Tracker) replaceCurrentLocked(rec *model.ScanRecord) {
	for taskID := range t.timers {
		t.stopAutoPollLocked(taskID)
	}
	t.generation++
	t.current = rec
}

func (t *Tracker) trackedLocked(taskID string) *model.ScanRecord {
	if t.current == nil || taskID == "" || t.current.TaskID != taskID {
		return nil
	}
	return t.current
}

func (t *Tracker) fromHistory(ctx context.Context, taskID string) *model.ScanRecord {
	list, err := t.history.List(ctx)
	if err != nil {
		t.logger.Warn("failed to read history", logging.Err(err))
		return nil
	}
	for i := range list {
		if list[i].TaskID == taskID {
			return list[i].Clone()
		}
	}
	return nil
}

func (t *Tracker) saveHistory(ctx context.Context, rec *model.ScanRecord) {
	if err := t.history.Upsert(ctx, *rec); err != nil {
		t.logger.Warn("failed to save history",
			logging.Field{Key: "local_id", Value: rec.LocalID},
			logging.Err(err))
		return
	}
	if t.metrics != nil {
		if list, err := t.history.List(ctx); err == nil {
			t.metrics.HistorySize(len(list))
		}
	}
}

func (t *Tracker) storedSession(ctx context.Context) string {
	id, ok, err := t.sessions.Get(ctx)
	if err != nil {
		t.logger.Warn("failed to read session", logging.Err(err))
		return ""
	}
	if !ok {
		return ""
	}
	return id
}

func (t *Tracker) persistSession(ctx context.Context, id string) {
	if err := t.sessions.Set(ctx, id, t.sessionTTL); err != nil {
		t.logger.Warn("failed to persist session", logging.Field{Key: "session_id", Value: id}, logging.Err(err))
	}
}

// notifyDashboard is best effort. The update is only sent when the backend
// exposes a dashboard at all.
func (t *Tracker) notifyDashboard(ctx context.Context, upd backend.DashboardUpdate) {
	if upd.SessionID == "" {
		return
	}
	if !t.api.DashboardAvailable(ctx) {
		t.logger.Debug("dashboard not available, skipping update")
		return
	}
	if err := t.api.UpdateDashboard(ctx, upd); err != nil {
		t.logger.Debug("dashboard update failed", logging.Err(err))
	}
}
