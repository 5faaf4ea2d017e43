package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/raysh454/shadowzap/internal/backend"
	"github.com/raysh454/shadowzap/internal/dashboard"
	"github.com/raysh454/shadowzap/internal/logging"
	"github.com/raysh454/shadowzap/internal/metrics"
	"github.com/raysh454/shadowzap/internal/model"
	"github.com/raysh454/shadowzap/internal/reportsummary"
	"github.com/raysh454/shadowzap/internal/tracker"

	_ "github.com/raysh454/shadowzap/internal/server/docs" // swagger spec
)

const defaultEventBuffer = 32

// eventSnapshot is sent first on /ws/scans with the record being tracked.
const eventSnapshot tracker.EventType = "snapshot"

// Server is the HTTP + WebSocket API surface for shadowzap.
type Server struct {
	cfg       Config
	tracker   *tracker.Tracker
	api       *backend.Client
	dashboard *dashboard.Service
	metrics   *metrics.Metrics
	router    chi.Router
	upgrader  websocket.Upgrader
	logger    logging.Logger
}

// NewServer wires the API routes around an already constructed tracker and
// backend client. m may be nil, in which case /metrics is not served.
func NewServer(cfg Config, tr *tracker.Tracker, api *backend.Client, dash *dashboard.Service,
	m *metrics.Metrics, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewStdoutLogger("server")
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}

	r := chi.NewRouter()
	s := &Server{
		cfg:       cfg,
		tracker:   tr,
		api:       api,
		dashboard: dash,
		metrics:   m,
		router:    r,
		logger:    logger.With(logging.Field{Key: "component", Value: "server"}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: restrict to the configured front-end origin once one exists
				return true
			},
		},
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/api/scans", s.optionsHandler("POST"))
	r.Options("/api/scans/current", s.optionsHandler("GET, DELETE"))
	r.Options("/api/scans/{taskID}", s.optionsHandler("GET"))
	r.Options("/api/scans/{taskID}/refresh", s.optionsHandler("POST"))
	r.Options("/api/scans/{taskID}/reports", s.optionsHandler("GET"))
	r.Options("/api/scans/{taskID}/summary", s.optionsHandler("GET"))
	r.Options("/api/history", s.optionsHandler("GET"))
	r.Options("/api/dashboard", s.optionsHandler("GET"))
	r.Options("/api/sessions/{sessionID}/files", s.optionsHandler("GET"))
	r.Options("/api/files/{fileID}", s.optionsHandler("GET"))
	r.Options("/ws/scans", s.optionsHandler("GET"))

	// Scans
	r.Post("/api/scans", s.handleSubmitScan)
	r.Get("/api/scans/current", s.handleCurrentScan)
	r.Delete("/api/scans/current", s.handleResetScan)
	r.Get("/api/scans/{taskID}", s.handleGetScan)
	r.Post("/api/scans/{taskID}/refresh", s.handleRefreshScan)
	r.Get("/api/scans/{taskID}/reports", s.handleScanReports)
	r.Get("/api/scans/{taskID}/summary", s.handleScanSummary)

	// Views
	r.Get("/api/history", s.handleHistory)
	r.Get("/api/dashboard", s.handleDashboard)
	r.Get("/api/sessions/{sessionID}/files", s.handleSessionFiles)
	r.Get("/api/files/{fileID}", s.handleDownloadFile)

	// WebSocket for tracker events
	r.Get("/ws/scans", s.handleScansWS)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// --- HTTP handlers ---

// Scans

// handleSubmitScan godoc
// @Summary Submit a scan
// @Tags scans
// @Accept json
// @Produce json
// @Param request body SubmitScanRequest true "scan request"
// @Success 202 {object} model.ScanRecord
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} RejectedScanResponse
// @Router /api/scans [post]
func (s *Server) handleSubmitScan(w http.ResponseWriter, r *http.Request) {
	var body SubmitScanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("decoding submit scan body", logging.Err(err))
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	rec, err := s.tracker.Submit(r.Context(), body.toModel())
	if err != nil {
		s.logger.Warn("submitting scan", logging.Err(err))
		status := http.StatusInternalServerError
		if errors.Is(err, model.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	if rec.Status == model.StatusFailed {
		s.logger.Warn("scan rejected", logging.Field{Key: "target", Value: rec.TargetURL}, logging.Field{Key: "error", Value: rec.Error})
		writeJSON(w, http.StatusBadGateway, RejectedScanResponse{Error: rec.Error, Record: rec})
		return
	}

	if err := s.tracker.StartAutoPoll(rec.TaskID, s.cfg.PollInterval); err != nil {
		s.logger.Warn("starting auto-poll", logging.Field{Key: "task_id", Value: rec.TaskID}, logging.Err(err))
	}
	s.logger.Info("submitted scan", logging.Field{Key: "task_id", Value: rec.TaskID}, logging.Field{Key: "target", Value: rec.TargetURL})
	writeJSON(w, http.StatusAccepted, rec)
}

// handleCurrentScan godoc
// @Summary Get the tracked scan
// @Tags scans
// @Produce json
// @Success 200 {object} model.ScanRecord
// @Failure 404 {object} ErrorResponse
// @Router /api/scans/current [get]
func (s *Server) handleCurrentScan(w http.ResponseWriter, r *http.Request) {
	rec := s.tracker.Current()
	if rec == nil {
		writeError(w, http.StatusNotFound, "no scan is being tracked")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleResetScan godoc
// @Summary Stop tracking the current scan
// @Tags scans
// @Success 204
// @Router /api/scans/current [delete]
func (s *Server) handleResetScan(w http.ResponseWriter, r *http.Request) {
	s.tracker.Reset()
	s.logger.Info("reset tracked scan")
	writeJSON(w, http.StatusNoContent, nil)
}

// handleGetScan godoc
// @Summary Get a scan by task id
// @Tags scans
// @Produce json
// @Param taskID path string true "task id"
// @Success 200 {object} model.ScanRecord
// @Failure 404 {object} ErrorResponse
// @Router /api/scans/{taskID} [get]
func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleRefreshScan godoc
// @Summary Poll the backend once for a scan
// @Tags scans
// @Produce json
// @Param taskID path string true "task id"
// @Success 200 {object} model.ScanRecord
// @Failure 404 {object} ErrorResponse
// @Router /api/scans/{taskID}/refresh [post]
func (s *Server) handleRefreshScan(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	rec, err := s.tracker.Poll(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, tracker.ErrUnknownTask) {
			writeError(w, http.StatusNotFound, "scan is not being tracked")
			return
		}
		s.logger.Warn("refreshing scan", logging.Field{Key: "task_id", Value: taskID}, logging.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleScanReports godoc
// @Summary List report links for a scan
// @Tags reports
// @Produce json
// @Param taskID path string true "task id"
// @Success 200 {object} ReportsResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/scans/{taskID}/reports [get]
func (s *Server) handleScanReports(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	links := s.api.ReportLinks(rec)
	if links == nil {
		links = []model.ReportLink{}
	}
	writeJSON(w, http.StatusOK, ReportsResponse{TaskID: rec.TaskID, Links: links})
}

// handleScanSummary godoc
// @Summary Summarise the HTML report of a scan
// @Tags reports
// @Produce json
// @Param taskID path string true "task id"
// @Success 200 {object} reportsummary.Summary
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/scans/{taskID}/summary [get]
func (s *Server) handleScanSummary(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	fileID := rec.FileIDs[model.FileHTML]
	if fileID == "" {
		writeError(w, http.StatusConflict, "html report not available yet")
		return
	}

	file, err := s.api.DownloadFile(r.Context(), fileID)
	if err != nil {
		s.logger.Warn("downloading html report", logging.Field{Key: "file_id", Value: fileID}, logging.Err(err))
		writeError(w, http.StatusBadGateway, "report could not be downloaded")
		return
	}

	summary, err := reportsummary.Parse(bytes.NewReader(file.Body))
	if err != nil {
		s.logger.Warn("parsing html report", logging.Field{Key: "file_id", Value: fileID}, logging.Err(err))
		status := http.StatusInternalServerError
		if errors.Is(err, reportsummary.ErrNotReport) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Views

// handleHistory godoc
// @Summary Scan history for the current session
// @Tags views
// @Produce json
// @Success 200 {object} dashboard.History
// @Router /api/history [get]
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	h, err := s.dashboard.History(r.Context())
	if err != nil {
		s.logger.Warn("loading history", logging.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// handleDashboard godoc
// @Summary Dashboard statistics for the current session
// @Tags views
// @Produce json
// @Success 200 {object} dashboard.Stats
// @Router /api/dashboard [get]
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.dashboard.Stats(r.Context())
	if err != nil {
		s.logger.Warn("loading dashboard", logging.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleSessionFiles godoc
// @Summary Report files stored for a session
// @Tags views
// @Produce json
// @Param sessionID path string true "session id"
// @Success 200 {object} SessionFilesResponse
// @Router /api/sessions/{sessionID}/files [get]
func (s *Server) handleSessionFiles(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	groups, ok := s.dashboard.SessionFiles(r.Context(), sessionID)
	if groups == nil {
		groups = []model.FileGroup{}
	}
	writeJSON(w, http.StatusOK, SessionFilesResponse{SessionID: sessionID, Available: ok, Groups: groups})
}

// handleDownloadFile godoc
// @Summary Download a report file through the local API
// @Tags reports
// @Param fileID path string true "file id"
// @Success 200 {file} binary
// @Failure 502 {object} ErrorResponse
// @Router /api/files/{fileID} [get]
func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	file, err := s.api.DownloadFile(r.Context(), fileID)
	if err != nil {
		s.logger.Warn("downloading file", logging.Field{Key: "file_id", Value: fileID}, logging.Err(err))
		writeError(w, http.StatusBadGateway, "file could not be downloaded")
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	if file.Filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Body)
}

// lookup resolves the {taskID} path parameter, writing a 404 when the task
// is unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*model.ScanRecord, bool) {
	taskID := chi.URLParam(r, "taskID")
	rec, err := s.tracker.Record(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, tracker.ErrUnknownTask) {
			writeError(w, http.StatusNotFound, "scan not found")
		} else {
			s.logger.Warn("looking up scan", logging.Field{Key: "task_id", Value: taskID}, logging.Err(err))
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	return rec, true
}

// WebSockets

// handleScansWS streams tracker events. The tracked record, if any, is sent
// first as a snapshot event.
func (s *Server) handleScansWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Err(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := make(chan ScanEvent, s.cfg.EventBuffer)
	unsubscribe := s.tracker.Subscribe(func(ev tracker.Event) {
		select {
		case events <- ev:
		default:
			s.logger.Warn("dropping scan event for slow websocket client", logging.Field{Key: "type", Value: string(ev.Type)})
		}
	})
	defer unsubscribe()

	// The read loop only notices the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if cur := s.tracker.Current(); cur != nil {
		if err := conn.WriteJSON(ScanEvent{Type: eventSnapshot, Record: cur}); err != nil {
			return
		}
	}
	s.logger.Info("websocket client subscribed")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("websocket client gone")
			return
		case ev := <-events:
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
