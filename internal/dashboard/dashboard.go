// Package dashboard builds the summary, history and report-file views. Each
// view prefers the backend and falls back to the local history when the
// backend cannot answer.
package dashboard

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raysh454/shadowzap/internal/backend"
	"github.com/raysh454/shadowzap/internal/logging"
	"github.com/raysh454/shadowzap/internal/model"
	"github.com/raysh454/shadowzap/internal/store"
	"github.com/raysh454/shadowzap/internal/utils"
)

const (
	SourceBackend = "backend"
	SourceLocal   = "local"

	maxRecentTargets = 5
	enrichWorkers    = 4
)

// Backend is the subset of the backend client the views read from.
type Backend interface {
	Dashboard(ctx context.Context, sessionID string) (*backend.DashboardResponse, error)
	Sessions(ctx context.Context, sessionID string) ([]model.SessionSummary, error)
	SessionFiles(ctx context.Context, sessionID string) ([]model.FileGroup, error)
	ScanBySession(ctx context.Context, sessionID string) (*backend.ScanRef, error)
	ScanStatus(ctx context.Context, taskID, sessionID string) (*model.StatusResponse, error)
}

type Vulnerabilities struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
	Info   int `json:"info"`
}

type Stats struct {
	TotalScans            int                    `json:"totalScans"`
	CompletedScans        int                    `json:"completedScans"`
	FailedScans           int                    `json:"failedScans"`
	EnhancedReports       int                    `json:"enhancedReports"`
	VulnerabilitiesByType Vulnerabilities        `json:"vulnerabilitiesByType"`
	RecentTargets         []string               `json:"recentTargets"`
	RecentSessions        []model.SessionSummary `json:"recentSessions"`
	Source                string                 `json:"source"`
}

type History struct {
	Entries []model.SessionSummary `json:"entries"`
	Source  string                 `json:"source"`
}

type Service struct {
	api      Backend
	sessions store.SessionStore
	history  store.HistoryStore
	logger   logging.Logger
}

func NewService(api Backend, sessions store.SessionStore, history store.HistoryStore, logger logging.Logger) *Service {
	return &Service{
		api:      api,
		sessions: sessions,
		history:  history,
		logger:   logger.With(logging.Field{Key: "component", Value: "dashboard"}),
	}
}

// Stats returns the dashboard counters for the stored session.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	sessionID := s.sessionID(ctx)

	resp, err := s.api.Dashboard(ctx, sessionID)
	if err != nil {
		s.logger.Info("dashboard unavailable, using local history", logging.Err(err))
		return s.localStats(ctx, sessionID)
	}
	return sanitize(resp), nil
}

// sanitize clamps the backend counters so that completed and failed never
// exceed the total between them.
func sanitize(resp *backend.DashboardResponse) *Stats {
	total := max(int(resp.TotalScans), 0)
	completed := min(max(int(resp.CompletedScans), 0), total)
	failed := min(max(int(resp.FailedScans), 0), total-completed)

	st := &Stats{
		TotalScans:      total,
		CompletedScans:  completed,
		FailedScans:     failed,
		EnhancedReports: max(int(resp.EnhancedReports), 0),
		VulnerabilitiesByType: Vulnerabilities{
			High:   int(resp.VulnerabilitiesByType["high"]),
			Medium: int(resp.VulnerabilitiesByType["medium"]),
			Low:    int(resp.VulnerabilitiesByType["low"]),
			Info:   int(resp.VulnerabilitiesByType["info"]),
		},
		RecentTargets:  []string{},
		RecentSessions: []model.SessionSummary{},
		Source:         SourceBackend,
	}

	var targets []any
	if err := json.Unmarshal(resp.RecentTargets, &targets); err == nil {
		for _, t := range targets {
			if s, ok := t.(string); ok && s != "" {
				st.RecentTargets = append(st.RecentTargets, s)
			}
		}
	}

	var sessions []json.RawMessage
	if err := json.Unmarshal(resp.RecentSessions, &sessions); err == nil {
		for _, raw := range sessions {
			var sum model.SessionSummary
			if err := json.Unmarshal(raw, &sum); err != nil || sum.TargetURL == "" {
				continue
			}
			st.RecentSessions = append(st.RecentSessions, sum)
		}
	}
	return st
}

func (s *Service) localStats(ctx context.Context, sessionID string) (*Stats, error) {
	records, err := s.localRecords(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st := &Stats{
		TotalScans:     len(records),
		RecentTargets:  []string{},
		RecentSessions: []model.SessionSummary{},
		Source:         SourceLocal,
	}
	seen := make(map[string]bool)
	for _, r := range records {
		switch r.Status {
		case model.StatusCompleted:
			st.CompletedScans++
		case model.StatusFailed:
			st.FailedScans++
		}
		if strings.EqualFold(string(r.ReportType), string(model.ReportEnhanced)) {
			st.EnhancedReports++
		}
		if r.TargetURL == "" || len(st.RecentTargets) >= maxRecentTargets {
			continue
		}
		key, err := utils.Canonicalize(r.TargetURL, utils.CanonicalizeOptions{StripTrailingSlash: true})
		if err != nil {
			key = r.TargetURL
		}
		if !seen[key] {
			seen[key] = true
			st.RecentTargets = append(st.RecentTargets, r.TargetURL)
		}
	}
	return st, nil
}

// History lists the session's scans newest first. Sessions the backend lists
// without a status are enriched from scan-by-session and the task status, or
// marked Completed when they already have files.
func (s *Service) History(ctx context.Context) (*History, error) {
	sessionID := s.sessionID(ctx)

	entries, err := s.api.Sessions(ctx, sessionID)
	if err != nil {
		s.logger.Info("sessions unavailable, using local history", logging.Err(err))
		return s.localHistory(ctx, sessionID)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichWorkers)
	for i := range entries {
		entry := &entries[i]
		if entry.Status != "" {
			continue
		}
		g.Go(func() error {
			s.enrich(gctx, entry)
			return nil
		})
	}
	_ = g.Wait()

	sortNewestFirst(entries)
	if entries == nil {
		entries = []model.SessionSummary{}
	}
	return &History{Entries: entries, Source: SourceBackend}, nil
}

func (s *Service) enrich(ctx context.Context, entry *model.SessionSummary) {
	if entry.TaskID == "" {
		if ref, err := s.api.ScanBySession(ctx, entry.SessionID); err == nil && ref.TaskID != "" {
			entry.TaskID = ref.TaskID
		}
	}
	if entry.TaskID != "" {
		if st, err := s.api.ScanStatus(ctx, entry.TaskID, ""); err == nil && st.Status != "" {
			entry.Status = st.Status
			return
		}
	}
	if entry.FileCount > 0 {
		entry.Status = model.StatusCompleted
	}
}

func (s *Service) localHistory(ctx context.Context, sessionID string) (*History, error) {
	records, err := s.localRecords(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	entries := make([]model.SessionSummary, 0, len(records))
	for _, r := range records {
		entries = append(entries, model.SessionSummary{
			SessionID: r.SessionID,
			TaskID:    r.TaskID,
			TargetURL: r.TargetURL,
			ScanType:  r.ScanType,
			Status:    r.Status,
			Timestamp: r.Timestamp,
			FileCount: len(model.NonEmptyFileIDs(r.FileIDs)),
		})
	}
	return &History{Entries: entries, Source: SourceLocal}, nil
}

// SessionFiles lists the downloadable reports of a session. ok is false when
// the backend could not be asked.
func (s *Service) SessionFiles(ctx context.Context, sessionID string) (groups []model.FileGroup, ok bool) {
	raw, err := s.api.SessionFiles(ctx, sessionID)
	if err != nil {
		s.logger.Info("session files unavailable",
			logging.Field{Key: "session_id", Value: sessionID},
			logging.Err(err))
		return []model.FileGroup{}, false
	}
	return filterReports(raw), true
}

func filterReports(groups []model.FileGroup) []model.FileGroup {
	out := make([]model.FileGroup, 0, len(groups))
	for _, g := range groups {
		var files []model.StoredFile
		for _, f := range g.Files {
			kind := model.ReportKind(f.Filename)
			if kind == "" {
				continue
			}
			f.Kind = kind
			f.Label = model.ReportLabel(f.Filename)
			files = append(files, f)
		}
		if len(files) > 0 {
			out = append(out, model.FileGroup{Timestamp: g.Timestamp, Files: files})
		}
	}
	return out
}

func (s *Service) localRecords(ctx context.Context, sessionID string) ([]model.ScanRecord, error) {
	records, err := s.history.List(ctx)
	if err != nil {
		return nil, err
	}
	return store.FilterBySession(records, sessionID), nil
}

func (s *Service) sessionID(ctx context.Context) string {
	id, ok, err := s.sessions.Get(ctx)
	if err != nil {
		s.logger.Warn("failed to read session", logging.Err(err))
		return ""
	}
	if !ok {
		return ""
	}
	return id
}

func sortNewestFirst(entries []model.SessionSummary) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, aok := parseTimestamp(entries[i].Timestamp)
		b, bok := parseTimestamp(entries[j].Timestamp)
		switch {
		case aok && bok:
			return a.After(b)
		case aok != bok:
			return aok
		default:
			return entries[i].Timestamp > entries[j].Timestamp
		}
	})
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
