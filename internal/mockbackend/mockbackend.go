// Package mockbackend is an in-process stand-in for the scanning service. It
// speaks the same HTTP contract, advances each scan one state per status
// poll and serves ZAP-like report files once a scan completes.
package mockbackend

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/shadowzap/internal/logging"
	"github.com/raysh454/shadowzap/internal/model"
)

const msgReportFailed = "Report generation failed"

var lifecycle = []model.ScanStatus{
	model.StatusInitializing,
	model.StatusRunning,
	model.StatusProcessing,
	model.StatusCompleted,
}

type scan struct {
	TaskID       string
	SessionID    string
	TargetURL    string
	ScanType     string
	ReportType   string
	ReportFormat string
	Created      time.Time
	Status       model.ScanStatus
	Error        string
	ReportID     string
	FileIDs      map[string]string

	polls int
}

type storedFile struct {
	ID          string
	TaskID      string
	Filename    string
	ContentType string
	Body        []byte
	Uploaded    time.Time
}

// Server is the mock backend.
type Server struct {
	cfg    Config
	logger logging.Logger
	now    func() time.Time

	mu        sync.RWMutex
	scans     map[string]*scan
	order     []string
	files     map[string]*storedFile
	failNext  map[string]bool
	dashboard map[string]int // session id -> update-dashboard calls
}

func New(cfg Config, logger logging.Logger) *Server {
	if cfg.PollsPerStatus < 1 {
		cfg.PollsPerStatus = 1
	}
	return &Server{
		cfg:       cfg,
		logger:    logger.With(logging.Field{Key: "component", Value: "mockbackend"}),
		now:       time.Now,
		scans:     make(map[string]*scan),
		files:     make(map[string]*storedFile),
		failNext:  make(map[string]bool),
		dashboard: make(map[string]int),
	}
}

// Handler returns the routes of the backend contract plus the control panel.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /scan", s.createScanHandler)
	mux.HandleFunc("GET /scan/{taskID}", s.scanStatusHandler)
	mux.HandleFunc("GET /active-scan", s.activeScanHandler)
	mux.HandleFunc("GET /scan-by-session/{sessionID}", s.scanBySessionHandler)
	mux.HandleFunc("GET /sessions", s.sessionsHandler)
	mux.HandleFunc("GET /sessions/{sessionID}/files", s.sessionFilesHandler)
	mux.HandleFunc("GET /dashboard", s.dashboardHandler)
	mux.HandleFunc("POST /update-dashboard", s.updateDashboardHandler)
	mux.HandleFunc("GET /files/{fileID}", s.fileHandler)
	mux.HandleFunc("GET /session-reports/{sessionID}/{kind}", s.sessionReportHandler)
	mux.HandleFunc("GET /enhanced-html/{reportID}", s.enhancedHTMLHandler)

	// Control panel for steering scans by hand
	mux.HandleFunc("GET /mock/control", s.controlPanelHandler)
	mux.HandleFunc("POST /mock/fail", s.failHandler)
	mux.HandleFunc("POST /mock/reset", s.resetHandler)

	return mux
}

// Start listens on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.Info("mock backend starting",
		logging.Field{Key: "addr", Value: "http://localhost" + addr},
		logging.Field{Key: "control_panel", Value: "http://localhost" + addr + "/mock/control"})
	return http.ListenAndServe(addr, s.Handler())
}

// DashboardUpdates returns how often POST /update-dashboard was called for
// sessionID.
func (s *Server) DashboardUpdates(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dashboard[sessionID]
}

func (s *Server) createScanHandler(w http.ResponseWriter, r *http.Request) {
	var req model.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.TargetURL) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "target_url is required")
		return
	}
	if strings.Contains(req.TargetURL, "reject") {
		writeDetail(w, http.StatusBadRequest, "target rejected by scan policy")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	sc := &scan{
		TaskID:       uuid.New().String(),
		SessionID:    sessionID,
		TargetURL:    req.TargetURL,
		ScanType:     string(req.ScanType),
		ReportType:   string(req.ReportType),
		ReportFormat: req.ReportFormat,
		Created:      s.now().UTC(),
		Status:       model.StatusInitializing,
		FileIDs:      map[string]string{},
	}

	s.mu.Lock()
	s.scans[sc.TaskID] = sc
	s.order = append(s.order, sc.TaskID)
	s.mu.Unlock()

	s.logger.Info("scan created",
		logging.Field{Key: "task_id", Value: sc.TaskID},
		logging.Field{Key: "target_url", Value: sc.TargetURL})

	writeJSON(w, http.StatusOK, map[string]any{
		"task_id":        sc.TaskID,
		"web_session_id": sc.SessionID,
		"status":         sc.Status,
		"message":        "Scan started",
	})
}

func (s *Server) scanStatusHandler(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("taskID")

	s.mu.Lock()
	sc, ok := s.scans[taskID]
	if ok {
		s.advanceLocked(sc)
	}
	var body map[string]any
	if ok {
		body = statusBody(sc)
	}
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "scan not found")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func statusBody(sc *scan) map[string]any {
	body := map[string]any{
		"task_id":        sc.TaskID,
		"status":         sc.Status,
		"web_session_id": sc.SessionID,
		"report_type":    sc.ReportType,
		"completed":      sc.Status.IsTerminal(),
	}
	if len(sc.FileIDs) > 0 {
		body["gridfs_file_ids"] = sc.FileIDs
	}
	if sc.ReportID != "" {
		body["report_id"] = sc.ReportID
	}
	if sc.Error != "" {
		body["error"] = sc.Error
	}
	return body
}

// advanceLocked moves sc one poll further through its lifecycle.
func (s *Server) advanceLocked(sc *scan) {
	if sc.Status.IsTerminal() {
		return
	}
	if s.failNext[sc.TaskID] {
		delete(s.failNext, sc.TaskID)
		sc.Status = model.StatusFailed
		sc.Error = "ZAP daemon terminated unexpectedly"
		return
	}
	sc.polls++
	stage := sc.polls / s.cfg.PollsPerStatus
	if stage >= len(lifecycle)-1 {
		stage = len(lifecycle) - 1
	}
	sc.Status = lifecycle[stage]
	if sc.Status == model.StatusCompleted {
		if err := s.storeReportsLocked(sc); err != nil {
			s.logger.Error("storing reports", logging.Field{Key: "task_id", Value: sc.TaskID}, logging.Err(err))
			sc.Status = model.StatusFailed
			sc.Error = msgReportFailed
		}
	}
}

func (s *Server) activeScanHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")

	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		sc := s.scans[s.order[i]]
		if sc.SessionID == sessionID && !sc.Status.IsTerminal() {
			writeJSON(w, http.StatusOK, scanRef(sc))
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "no active scan")
}

func (s *Server) scanBySessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")

	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		sc := s.scans[s.order[i]]
		if sc.SessionID == sessionID {
			writeJSON(w, http.StatusOK, scanRef(sc))
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "no scan for session")
}

func scanRef(sc *scan) map[string]any {
	return map[string]any{
		"task_id":        sc.TaskID,
		"web_session_id": sc.SessionID,
		"target_url":     sc.TargetURL,
		"scan_type":      sc.ScanType,
		"report_type":    sc.ReportType,
		"status":         sc.Status,
		"timestamp":      sc.Created.Format(time.RFC3339),
	}
}

// sessionsHandler lists one entry per scan. Status is left out on purpose so
// clients have to enrich it.
func (s *Server) sessionsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")

	s.mu.RLock()
	out := make([]model.SessionSummary, 0, len(s.order))
	for _, id := range s.order {
		sc := s.scans[id]
		if sessionID != "" && sc.SessionID != sessionID {
			continue
		}
		out = append(out, model.SessionSummary{
			SessionID: sc.SessionID,
			TargetURL: sc.TargetURL,
			ScanType:  model.ScanType(sc.ScanType),
			Timestamp: sc.Created.Format(time.RFC3339),
			FileCount: len(sc.FileIDs),
		})
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) sessionFilesHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")

	s.mu.RLock()
	var groups []model.FileGroup
	for _, id := range s.order {
		sc := s.scans[id]
		if sc.SessionID != sessionID || len(sc.FileIDs) == 0 {
			continue
		}
		group := model.FileGroup{Timestamp: sc.Created.Format(time.RFC3339)}
		for _, fid := range sortedValues(sc.FileIDs) {
			f := s.files[fid]
			group.Files = append(group.Files, model.StoredFile{
				FileID:     f.ID,
				Filename:   f.Filename,
				UploadDate: f.Uploaded.Format(time.RFC3339),
			})
		}
		group.Files = append(group.Files, model.StoredFile{FileID: "log-" + sc.TaskID, Filename: "zap.log"})
		groups = append(groups, group)
	}
	s.mu.RUnlock()

	if groups == nil {
		groups = []model.FileGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")

	s.mu.RLock()
	var total, completed, failed, enhanced int
	vulns := map[string]int{"high": 0, "medium": 0, "low": 0, "info": 0}
	targets := []string{}
	seen := map[string]bool{}
	recent := []model.SessionSummary{}
	for i := len(s.order) - 1; i >= 0; i-- {
		sc := s.scans[s.order[i]]
		if sessionID != "" && sc.SessionID != sessionID {
			continue
		}
		total++
		switch sc.Status {
		case model.StatusCompleted:
			completed++
			for _, a := range sampleAlerts {
				vulns[a.bucket]++
			}
		case model.StatusFailed:
			failed++
		}
		if sc.ReportType == string(model.ReportEnhanced) {
			enhanced++
		}
		if !seen[sc.TargetURL] && len(targets) < 5 {
			seen[sc.TargetURL] = true
			targets = append(targets, sc.TargetURL)
		}
		if len(recent) < 5 {
			recent = append(recent, model.SessionSummary{
				SessionID: sc.SessionID,
				TaskID:    sc.TaskID,
				TargetURL: sc.TargetURL,
				Status:    sc.Status,
				Timestamp: sc.Created.Format(time.RFC3339),
			})
		}
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"totalScans":            total,
		"completedScans":        completed,
		"failedScans":           failed,
		"enhancedReports":       enhanced,
		"vulnerabilitiesByType": vulns,
		"recentTargets":         targets,
		"recentSessions":        recent,
	})
}

func (s *Server) updateDashboardHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SessionID == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "session_id is required")
		return
	}
	s.mu.Lock()
	s.dashboard[body.SessionID]++
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) fileHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	f, ok := s.files[r.PathValue("fileID")]
	s.mu.RUnlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "file not found")
		return
	}
	serveFile(w, f)
}

// sessionReportHandler serves the latest enhanced report of a session; kind
// is enhanced-html or enhanced-pdf.
func (s *Server) sessionReportHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, kind := r.PathValue("sessionID"), r.PathValue("kind")
	key := map[string]string{"enhanced-html": "html_enhanced", "enhanced-pdf": model.FilePDFEnhanced}[kind]
	if key == "" {
		writeDetail(w, http.StatusNotFound, "unknown report kind")
		return
	}

	s.mu.RLock()
	var f *storedFile
	for i := len(s.order) - 1; i >= 0 && f == nil; i-- {
		sc := s.scans[s.order[i]]
		if sc.SessionID == sessionID && sc.FileIDs[key] != "" {
			f = s.files[sc.FileIDs[key]]
		}
	}
	s.mu.RUnlock()

	if f == nil {
		writeDetail(w, http.StatusNotFound, "no enhanced report for session")
		return
	}
	serveFile(w, f)
}

func (s *Server) enhancedHTMLHandler(w http.ResponseWriter, r *http.Request) {
	reportID := r.PathValue("reportID")

	s.mu.RLock()
	var f *storedFile
	for _, sc := range s.scans {
		if sc.ReportID == reportID && sc.FileIDs["html_enhanced"] != "" {
			f = s.files[sc.FileIDs["html_enhanced"]]
			break
		}
	}
	s.mu.RUnlock()

	if f == nil {
		writeDetail(w, http.StatusNotFound, "report not found")
		return
	}
	serveFile(w, f)
}

// failHandler makes the next poll of task_id report Failed.
func (s *Server) failHandler(w http.ResponseWriter, r *http.Request) {
	taskID := r.FormValue("task_id")

	s.mu.Lock()
	_, ok := s.scans[taskID]
	if ok {
		s.failNext[taskID] = true
	}
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "scan not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "task_id": taskID})
}

// resetHandler forgets every scan and file.
func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.scans = make(map[string]*scan)
	s.order = nil
	s.files = make(map[string]*storedFile)
	s.failNext = make(map[string]bool)
	s.dashboard = make(map[string]int)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "All scans cleared"})
}

func (s *Server) controlPanelHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scans := make([]*scan, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		scans = append(scans, s.scans[s.order[i]])
	}
	tmpl := template.Must(template.New("control").Parse(controlPanelHTML))
	w.Header().Set("Content-Type", "text/html")
	_ = tmpl.Execute(w, struct {
		Scans []*scan
		Port  int
	}{Scans: scans, Port: s.cfg.Port})
}

func serveFile(w http.ResponseWriter, f *storedFile) {
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", f.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func sortedValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

const controlPanelHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Mock Backend Control Panel</title>
    <style>
        body { font-family: system-ui, -apple-system, sans-serif; max-width: 1200px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        h1 { color: #333; border-bottom: 2px solid #007bff; padding-bottom: 10px; }
        table { width: 100%; border-collapse: collapse; background: white; }
        td, th { padding: 8px; border-bottom: 1px solid #e9ecef; text-align: left; }
        .global-btn { padding: 10px 20px; border: none; border-radius: 4px; cursor: pointer; }
        .reset-btn { background: #dc3545; color: white; }
        .fail-btn { background: #ffc107; }
    </style>
</head>
<body>
    <h1>Mock Backend Control Panel</h1>
    <p><button class="global-btn reset-btn" onclick="post('/mock/reset', '')">Clear all scans</button></p>
    <table>
        <tr><th>Task</th><th>Session</th><th>Target</th><th>Status</th><th></th></tr>
        {{range .Scans}}
        <tr>
            <td>{{.TaskID}}</td>
            <td>{{.SessionID}}</td>
            <td>{{.TargetURL}}</td>
            <td>{{.Status}}</td>
            <td>{{if not .Status.IsTerminal}}<button class="global-btn fail-btn" onclick="post('/mock/fail', 'task_id={{.TaskID}}')">Fail next poll</button>{{end}}</td>
        </tr>
        {{end}}
    </table>
    <script>
        function post(path, body) {
            fetch(path, {
                method: 'POST',
                headers: {'Content-Type': 'application/x-www-form-urlencoded'},
                body: body
            }).then(() => location.reload());
        }
    </script>
</body>
</html>`
