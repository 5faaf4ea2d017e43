// Package backend is the HTTP client for the scanning service. Only the scan
// creation call reports a rejection to the caller; every other failure
// collapses into ErrUnavailable so callers can fall back to local data.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/raysh454/shadowzap/internal/model"
)

const (
	DefaultBaseURL = "http://127.0.0.1:8000"
	DefaultTimeout = 5 * time.Second
)

// ErrUnavailable covers transport errors, timeouts, 404 and 5xx responses and
// payloads that do not have the expected shape.
var ErrUnavailable = errors.New("backend unavailable")

// RejectedError is returned when the backend answers POST /scan with a
// non-2xx status.
type RejectedError struct {
	StatusCode int
	Detail     string
}

func (e *RejectedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("scan rejected with status %d", e.StatusCode)
	}
	return fmt.Sprintf("scan rejected with status %d: %s", e.StatusCode, e.Detail)
}

// API is the part of the backend the tracker drives.
type API interface {
	CreateScan(ctx context.Context, req model.ScanRequest) (*CreateScanResponse, error)
	ScanStatus(ctx context.Context, taskID, sessionID string) (*model.StatusResponse, error)
	ActiveScan(ctx context.Context, sessionID string) (*ScanRef, error)
	ScanBySession(ctx context.Context, sessionID string) (*ScanRef, error)
	DashboardAvailable(ctx context.Context) bool
	UpdateDashboard(ctx context.Context, update DashboardUpdate) error
}

// CreateScanResponse is the body of a successful POST /scan.
type CreateScanResponse struct {
	TaskID       string           `json:"task_id"`
	WebSessionID string           `json:"web_session_id,omitempty"`
	Status       model.ScanStatus `json:"status,omitempty"`
	Message      string           `json:"message,omitempty"`
}

// ScanRef points at a scan the backend associates with a session.
type ScanRef struct {
	TaskID       string           `json:"task_id"`
	WebSessionID string           `json:"web_session_id,omitempty"`
	TargetURL    string           `json:"target_url,omitempty"`
	ScanType     model.ScanType   `json:"scan_type,omitempty"`
	ReportType   string           `json:"report_type,omitempty"`
	Status       model.ScanStatus `json:"status,omitempty"`
	Timestamp    string           `json:"timestamp,omitempty"`
}

// DashboardUpdate is the body of POST /update-dashboard.
type DashboardUpdate struct {
	SessionID string           `json:"session_id"`
	TaskID    string           `json:"task_id,omitempty"`
	TargetURL string           `json:"target_url,omitempty"`
	Status    model.ScanStatus `json:"status,omitempty"`
}

// DashboardResponse is the body of GET /dashboard as sent. Counters may
// arrive as numbers, numeric strings or null; the list fields are kept raw
// and parsed leniently by the dashboard service.
type DashboardResponse struct {
	TotalScans            LooseInt            `json:"totalScans"`
	CompletedScans        LooseInt            `json:"completedScans"`
	FailedScans           LooseInt            `json:"failedScans"`
	EnhancedReports       LooseInt            `json:"enhancedReports"`
	VulnerabilitiesByType map[string]LooseInt `json:"vulnerabilitiesByType"`
	RecentTargets         json.RawMessage     `json:"recentTargets"`
	RecentSessions        json.RawMessage     `json:"recentSessions"`
}

// LooseInt decodes a JSON number, a numeric string or null. Anything that
// does not parse becomes 0.
type LooseInt int

func (n *LooseInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	s = strings.Trim(s, `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	if i, err := strconv.Atoi(s); err == nil {
		*n = LooseInt(i)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*n = LooseInt(int(f))
		return nil
	}
	*n = 0
	return nil
}

// File is a downloaded report artifact.
type File struct {
	Body        []byte
	ContentType string
	Filename    string
}

// decodeBody unmarshals a JSON body, treating empty and null bodies as
// malformed.
func decodeBody(body []byte, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return errors.New("empty body")
	}
	return json.Unmarshal(trimmed, out)
}

// rejectionDetail extracts {"detail": ...} from an error body. FastAPI sends
// either a string or a list of validation errors.
func rejectionDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	if string(payload.Detail) == "null" {
		return ""
	}
	return string(payload.Detail)
}
