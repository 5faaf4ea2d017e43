package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/raysh454/shadowzap/internal/logging"
	"github.com/raysh454/shadowzap/internal/model"
	"github.com/raysh454/shadowzap/internal/utils"
	"github.com/raysh454/shadowzap/internal/webclient"
)

// Config holds the backend location and request budget.
type Config struct {
	BaseURL string `yaml:"base_url"`

	// Timeout bounds every JSON call. Zero means DefaultTimeout.
	Timeout time.Duration `yaml:"timeout"`
}

// Client talks to the scanning backend through a webclient.WebClient.
type Client struct {
	baseURL string
	timeout time.Duration
	web     webclient.WebClient
	logger  logging.Logger
}

var _ API = (*Client)(nil)

func NewClient(cfg Config, web webclient.WebClient, logger logging.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: base,
		timeout: timeout,
		web:     web,
		logger:  logger.With(logging.Field{Key: "component", Value: "backend"}),
	}
}

// BaseURL returns the backend root the client was configured with.
func (c *Client) BaseURL() string { return c.baseURL }

// CreateScan submits req via POST /scan.
func (c *Client) CreateScan(ctx context.Context, req model.ScanRequest) (*CreateScanResponse, error) {
	resp, err := c.send(ctx, http.MethodPost, c.url(nil, "scan"), req)
	if err != nil {
		c.logger.Warn("create scan failed", logging.Field{Key: "target_url", Value: req.TargetURL}, logging.Err(err))
		return nil, fmt.Errorf("create scan: %w: %w", ErrUnavailable, err)
	}
	if !resp.OK() {
		rej := &RejectedError{StatusCode: resp.StatusCode, Detail: rejectionDetail(resp.Body)}
		c.logger.Warn("create scan rejected",
			logging.Field{Key: "status_code", Value: resp.StatusCode},
			logging.Field{Key: "detail", Value: rej.Detail})
		return nil, rej
	}
	var out CreateScanResponse
	if err := decodeBody(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("create scan: malformed response: %w: %w", ErrUnavailable, err)
	}
	return &out, nil
}

// ScanStatus fetches GET /scan/{taskID}, scoped to sessionID when set.
func (c *Client) ScanStatus(ctx context.Context, taskID, sessionID string) (*model.StatusResponse, error) {
	var out model.StatusResponse
	if err := c.getJSON(ctx, "scan status", c.url(sessionQuery(sessionID), "scan", taskID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ActiveScan asks GET /active-scan?session_id= for the session's running scan.
func (c *Client) ActiveScan(ctx context.Context, sessionID string) (*ScanRef, error) {
	var out ScanRef
	if err := c.getJSON(ctx, "active scan", c.url(sessionQuery(sessionID), "active-scan"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ScanBySession looks up GET /scan-by-session/{sessionID}.
func (c *Client) ScanBySession(ctx context.Context, sessionID string) (*ScanRef, error) {
	var out ScanRef
	if err := c.getJSON(ctx, "scan by session", c.url(nil, "scan-by-session", sessionID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sessions lists GET /sessions, filtered by sessionID when set.
func (c *Client) Sessions(ctx context.Context, sessionID string) ([]model.SessionSummary, error) {
	var out []model.SessionSummary
	if err := c.getJSON(ctx, "sessions", c.url(sessionQuery(sessionID), "sessions"), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SessionFiles lists GET /sessions/{sessionID}/files.
func (c *Client) SessionFiles(ctx context.Context, sessionID string) ([]model.FileGroup, error) {
	var out []model.FileGroup
	if err := c.getJSON(ctx, "session files", c.url(nil, "sessions", sessionID, "files"), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Dashboard fetches GET /dashboard, filtered by sessionID when set.
func (c *Client) Dashboard(ctx context.Context, sessionID string) (*DashboardResponse, error) {
	var out DashboardResponse
	if err := c.getJSON(ctx, "dashboard", c.url(sessionQuery(sessionID), "dashboard"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DashboardAvailable checks GET /dashboard. Only a 404, a 5xx or a transport
// error count as absent.
func (c *Client) DashboardAvailable(ctx context.Context) bool {
	resp, err := c.send(ctx, http.MethodGet, c.url(nil, "dashboard"), nil)
	if err != nil {
		c.logger.Debug("dashboard check failed", logging.Err(err))
		return false
	}
	return resp.StatusCode != http.StatusNotFound && resp.StatusCode < 500
}

// UpdateDashboard posts to /update-dashboard.
func (c *Client) UpdateDashboard(ctx context.Context, update DashboardUpdate) error {
	resp, err := c.send(ctx, http.MethodPost, c.url(nil, "update-dashboard"), update)
	if err != nil {
		return fmt.Errorf("update dashboard: %w: %w", ErrUnavailable, err)
	}
	if !resp.OK() {
		return fmt.Errorf("update dashboard: status %d: %w", resp.StatusCode, ErrUnavailable)
	}
	return nil
}

// DownloadFile fetches GET /files/{fileID}.
func (c *Client) DownloadFile(ctx context.Context, fileID string) (*File, error) {
	resp, err := c.web.Do(ctx, &webclient.Request{Method: http.MethodGet, URL: c.FileURL(fileID)})
	if err != nil {
		return nil, fmt.Errorf("download file: %w: %w", ErrUnavailable, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("download file: status %d: %w", resp.StatusCode, ErrUnavailable)
	}
	f := &File{Body: resp.Body}
	if resp.Headers != nil {
		f.ContentType = resp.Headers.Get("Content-Type")
		if _, params, err := mime.ParseMediaType(resp.Headers.Get("Content-Disposition")); err == nil {
			f.Filename = params["filename"]
		}
	}
	if f.ContentType == "" {
		f.ContentType = http.DetectContentType(resp.Body)
	}
	return f, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, u string, out any) error {
	resp, err := c.send(ctx, http.MethodGet, u, nil)
	if err != nil {
		c.logger.Warn("backend call failed", logging.Field{Key: "endpoint", Value: endpoint}, logging.Err(err))
		return fmt.Errorf("%s: %w: %w", endpoint, ErrUnavailable, err)
	}
	if !resp.OK() {
		c.logger.Debug("backend call returned non-2xx",
			logging.Field{Key: "endpoint", Value: endpoint},
			logging.Field{Key: "status_code", Value: resp.StatusCode})
		return fmt.Errorf("%s: status %d: %w", endpoint, resp.StatusCode, ErrUnavailable)
	}
	if err := decodeBody(resp.Body, out); err != nil {
		c.logger.Warn("malformed backend response", logging.Field{Key: "endpoint", Value: endpoint}, logging.Err(err))
		return fmt.Errorf("%s: malformed response: %w: %w", endpoint, ErrUnavailable, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, u string, body any) (*webclient.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &webclient.Request{
		Method:  method,
		URL:     u,
		Headers: http.Header{"Accept": []string{"application/json"}},
	}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		req.Body = b
		req.Headers.Set("Content-Type", "application/json")
	}
	return c.web.Do(ctx, req)
}

func (c *Client) url(query url.Values, segments ...string) string {
	return utils.JoinURL(c.baseURL, query, segments...)
}

func sessionQuery(sessionID string) url.Values {
	if sessionID == "" {
		return nil
	}
	return url.Values{"session_id": []string{sessionID}}
}
