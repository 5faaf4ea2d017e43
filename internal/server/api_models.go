package server

import (
	"github.com/raysh454/shadowzap/internal/model"
	"github.com/raysh454/shadowzap/internal/tracker"
)

// SubmitScanRequest is the payload accepted by POST /api/scans.
type SubmitScanRequest struct {
	TargetURL    string `json:"target_url" example:"https://example.com"`
	ScanType     string `json:"scan_type" example:"basic"`
	ReportType   string `json:"report_type" example:"enhanced"`
	ReportFormat string `json:"report_format" example:"pdf"`
	SessionID    string `json:"session_id,omitempty" example:"7b0c2f0e-3c1e-4e55-9d0b-1f3f0d4f3a11"`
}

func (r SubmitScanRequest) toModel() model.ScanRequest {
	return model.ScanRequest{
		TargetURL:    r.TargetURL,
		ScanType:     model.ScanType(r.ScanType),
		ReportType:   model.ReportType(r.ReportType),
		ReportFormat: r.ReportFormat,
		SessionID:    r.SessionID,
	}
}

// RejectedScanResponse is returned when the backend refused to start a scan.
// The failed record is still kept in the history.
type RejectedScanResponse struct {
	Error  string            `json:"error" example:"target rejected by scan policy"`
	Record *model.ScanRecord `json:"record"`
}

// ReportsResponse lists the report links available for a scan.
type ReportsResponse struct {
	TaskID string             `json:"task_id" example:"3f1c9a"`
	Links  []model.ReportLink `json:"links"`
}

// SessionFilesResponse lists the report files stored for a session.
// Available is false when the backend could not be reached.
type SessionFilesResponse struct {
	SessionID string            `json:"session_id"`
	Available bool              `json:"available"`
	Groups    []model.FileGroup `json:"groups"`
}

// ScanEvent is one message on the /ws/scans stream.
type ScanEvent = tracker.Event

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"not found"`
}
