package model

import "strings"

// ReportLink is one downloadable or viewable report for a scan.
type ReportLink struct {
	Label string `json:"label"`
	Kind  string `json:"kind"`
	URL   string `json:"url"`
}

// File id keys the backend uses in gridfs_file_ids.
const (
	FileHTML         = "html"
	FileJSON         = "json"
	FileXML          = "xml"
	FilePDFEnhanced  = "pdf_enhanced"
	FileJSONEnhanced = "json_enhanced"
	FileXMLEnhanced  = "xml_enhanced"
)

// ReportKind classifies a stored report by file extension. It returns ""
// for files that are not downloadable reports.
func ReportKind(filename string) string {
	lower := strings.ToLower(filename)
	for _, ext := range []string{"pdf", "html", "xml", "json"} {
		if strings.HasSuffix(lower, "."+ext) {
			return ext
		}
	}
	return ""
}

// ReportLabel is the human name shown next to a report file.
func ReportLabel(filename string) string {
	switch ReportKind(filename) {
	case "pdf":
		return "PDF Report"
	case "xml":
		return "XML Report"
	case "json":
		return "JSON Report"
	case "html":
		return "HTML Report"
	}
	return filename
}

// SessionSummary is one entry of GET /sessions.
type SessionSummary struct {
	SessionID string     `json:"session_id"`
	TaskID    string     `json:"task_id,omitempty"`
	TargetURL string     `json:"target_url,omitempty"`
	ScanType  ScanType   `json:"scan_type,omitempty"`
	Status    ScanStatus `json:"status,omitempty"`
	Timestamp string     `json:"timestamp,omitempty"`
	FileCount int        `json:"file_count"`
}

// StoredFile is a report artifact as listed by GET /sessions/{id}/files.
type StoredFile struct {
	FileID     string `json:"file_id"`
	Filename   string `json:"filename"`
	UploadDate string `json:"upload_date,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Label      string `json:"label,omitempty"`
}

// FileGroup is a set of files produced by one scan run.
type FileGroup struct {
	Timestamp string       `json:"timestamp,omitempty"`
	Files     []StoredFile `json:"files"`
}
