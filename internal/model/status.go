package model

import "strings"

// ScanStatus is the backend-reported lifecycle state of a scan. The five
// named values are the closed set the tracker reasons about; any other string
// the backend sends is kept verbatim.
type ScanStatus string

const (
	StatusInitializing ScanStatus = "Initializing"
	StatusRunning      ScanStatus = "Running"
	StatusProcessing   ScanStatus = "Processing"
	StatusCompleted    ScanStatus = "Completed"
	StatusFailed       ScanStatus = "Failed"
)

// IsTerminal is true for Completed and Failed.
func (s ScanStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Known reports whether s is one of the five lifecycle states.
func (s ScanStatus) Known() bool {
	switch s {
	case StatusInitializing, StatusRunning, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Progress maps a status to a display percentage. It is a UI heuristic only.
func Progress(s ScanStatus) int {
	switch s {
	case StatusInitializing:
		return 10
	case StatusRunning:
		return 50
	case StatusProcessing:
		return 75
	case StatusCompleted, StatusFailed:
		return 100
	default:
		return 25
	}
}

// StatusResponse is the body of GET /scan/{taskId}.
type StatusResponse struct {
	Status       ScanStatus        `json:"status"`
	FileIDs      map[string]string `json:"gridfs_file_ids,omitempty"`
	WebSessionID string            `json:"web_session_id,omitempty"`
	ReportID     string            `json:"report_id,omitempty"`
	ReportType   string            `json:"report_type,omitempty"`
	Error        string            `json:"error,omitempty"`
	Completed    LooseBool         `json:"completed,omitempty"`
}

// LooseBool decodes the completed flag. Only JSON true or the string "true"
// count as set; any other value reads as false instead of failing the whole
// status body.
type LooseBool bool

func (b *LooseBool) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if unquoted, ok := strings.CutPrefix(s, `"`); ok {
		s = strings.TrimSuffix(unquoted, `"`)
	}
	*b = LooseBool(strings.EqualFold(strings.TrimSpace(s), "true"))
	return nil
}
