package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raysh454/shadowzap/internal/utils"
)

// ErrInvalidRequest is returned for scan requests that fail local validation.
var ErrInvalidRequest = errors.New("invalid scan request")

// ScanType selects how much of the target the backend scans.
type ScanType string

const (
	ScanBasic  ScanType = "basic"
	ScanFull   ScanType = "full"
	ScanAPI    ScanType = "api_scan"
	ScanSpider ScanType = "spider_scan"
)

// Valid reports whether t is one of the scan types the backend accepts.
func (t ScanType) Valid() bool {
	switch t {
	case ScanBasic, ScanFull, ScanAPI, ScanSpider:
		return true
	}
	return false
}

// ReportType selects plain ZAP reports or the AI-enhanced variant.
type ReportType string

const (
	ReportNormal   ReportType = "normal"
	ReportEnhanced ReportType = "enhanced"
)

func (t ReportType) Valid() bool {
	return t == ReportNormal || t == ReportEnhanced
}

// ScanRequest is what the user submits to start a scan. It is not modified
// after Submit receives it.
type ScanRequest struct {
	TargetURL    string     `json:"target_url"`
	ScanType     ScanType   `json:"scan_type"`
	ReportType   ReportType `json:"report_type"`
	ReportFormat string     `json:"report_format"`
	SessionID    string     `json:"session_id,omitempty"`
}

// Normalize fills defaults the scan form would have preselected.
func (r ScanRequest) Normalize() ScanRequest {
	r.TargetURL = strings.TrimSpace(r.TargetURL)
	if r.ScanType == "" {
		r.ScanType = ScanBasic
	}
	if r.ReportType == "" {
		r.ReportType = ReportEnhanced
	}
	if r.ReportFormat == "" {
		r.ReportFormat = "pdf"
	}
	return r
}

// Validate checks the request without touching the network. Errors wrap
// ErrInvalidRequest.
func (r ScanRequest) Validate() error {
	if _, err := utils.ParseTargetURL(r.TargetURL); err != nil {
		return fmt.Errorf("%w: target url: %v", ErrInvalidRequest, err)
	}
	if !r.ScanType.Valid() {
		return fmt.Errorf("%w: unknown scan type %q", ErrInvalidRequest, r.ScanType)
	}
	if !r.ReportType.Valid() {
		return fmt.Errorf("%w: unknown report type %q", ErrInvalidRequest, r.ReportType)
	}
	return nil
}

// ScanRecord is the client-side view of one submitted scan. It is created
// optimistically at submission and updated as poll responses arrive.
type ScanRecord struct {
	// LocalID identifies the record before the backend has issued a task id.
	LocalID      string            `json:"local_id"`
	TaskID       string            `json:"task_id,omitempty"`
	SessionID    string            `json:"session_id,omitempty"`
	TargetURL    string            `json:"target_url"`
	ScanType     ScanType          `json:"scan_type"`
	ReportType   ReportType        `json:"report_type"`
	ReportFormat string            `json:"report_format"`
	Status       ScanStatus        `json:"status"`
	Progress     int               `json:"progress"`
	Timestamp    string            `json:"timestamp"`
	FileIDs      map[string]string `json:"fileIds,omitempty"`
	ReportID     string            `json:"report_id,omitempty"`
	Error        string            `json:"error,omitempty"`

	// Notified is set once the completion notification has been delivered.
	Notified bool `json:"notified,omitempty"`
}

// NewRecord builds the optimistic Initializing record for req.
func NewRecord(localID string, req ScanRequest, now time.Time) *ScanRecord {
	return &ScanRecord{
		LocalID:      localID,
		SessionID:    req.SessionID,
		TargetURL:    req.TargetURL,
		ScanType:     req.ScanType,
		ReportType:   req.ReportType,
		ReportFormat: req.ReportFormat,
		Status:       StatusInitializing,
		Progress:     Progress(StatusInitializing),
		Timestamp:    now.UTC().Format(time.RFC3339),
		FileIDs:      map[string]string{},
	}
}

// Key is the identity history entries are matched on: the task id once the
// backend issued one, the local id before that.
func (r *ScanRecord) Key() string {
	if r.TaskID != "" {
		return r.TaskID
	}
	return r.LocalID
}

// Terminal reports whether no further status change is expected.
func (r *ScanRecord) Terminal() bool {
	return r.Status.IsTerminal()
}

// HasFiles reports whether at least one non-empty report file id arrived.
func (r *ScanRecord) HasFiles() bool {
	return len(NonEmptyFileIDs(r.FileIDs)) > 0
}

// Clone returns a deep copy safe to hand to observers.
func (r *ScanRecord) Clone() *ScanRecord {
	if r == nil {
		return nil
	}
	cp := *r
	cp.FileIDs = make(map[string]string, len(r.FileIDs))
	for k, v := range r.FileIDs {
		cp.FileIDs[k] = v
	}
	return &cp
}

// NonEmptyFileIDs drops entries with an empty id.
func NonEmptyFileIDs(ids map[string]string) map[string]string {
	out := make(map[string]string, len(ids))
	for k, v := range ids {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out
}
