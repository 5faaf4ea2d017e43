package webclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raysh454/shadowzap/internal/logging"
	"github.com/raysh454/shadowzap/internal/webclient"
)

// noopLogger discards all log messages.
type noopLogger struct{}

func (n *noopLogger) Debug(msg string, fields ...logging.Field) {}
func (n *noopLogger) Info(msg string, fields ...logging.Field)  {}
func (n *noopLogger) Warn(msg string, fields ...logging.Field)  {}
func (n *noopLogger) Error(msg string, fields ...logging.Field) {}
func (n *noopLogger) With(fields ...logging.Field) logging.Logger {
	return n
}

// TestNewWebClient_DefaultBackend verifies that empty backend defaults to nethttp
func TestNewWebClient_DefaultBackend(t *testing.T) {
	t.Parallel()
	client, err := webclient.NewWebClient(webclient.Config{}, &noopLogger{})
	if err != nil {
		t.Fatalf("Failed to create default client: %v", err)
	}
	if client == nil {
		t.Fatal("client is nil")
	}
	defer client.Close()

	if _, ok := client.(*webclient.NetHTTPClient); !ok {
		t.Errorf("expected *NetHTTPClient, got %T", client)
	}
}

func TestNewWebClient_UnknownBackend(t *testing.T) {
	t.Parallel()
	_, err := webclient.NewWebClient(webclient.Config{Client: "carrier-pigeon"}, &noopLogger{})
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestRegisterBackend_CustomConstructor(t *testing.T) {
	called := false
	webclient.RegisterBackend("Custom-Test", func(cfg webclient.Config, logger logging.Logger) (webclient.WebClient, error) {
		called = true
		return webclient.NewNetHTTPClient(cfg, logger, nil)
	})

	client, err := webclient.NewWebClient(webclient.Config{Client: "custom-test"}, &noopLogger{})
	if err != nil {
		t.Fatalf("NewWebClient: %v", err)
	}
	defer client.Close()
	if !called {
		t.Error("expected custom constructor to be called")
	}

	found := false
	for _, name := range webclient.ListBackends() {
		if name == "custom-test" {
			found = true
		}
	}
	if !found {
		t.Errorf("custom backend missing from %v", webclient.ListBackends())
	}
}

func TestNetHTTPClient_KeepsCookiesBetweenRequests(t *testing.T) {
	t.Parallel()
	var sawCookie string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session_id"); err == nil {
			sawCookie = c.Value
		}
		http.SetCookie(w, &http.Cookie{Name: "session_id", Value: "S1", Path: "/"})
	}))
	defer ts.Close()

	client, err := webclient.NewNetHTTPClient(webclient.Config{}, &noopLogger{}, nil)
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	defer client.Close()

	for i := 0; i < 2; i++ {
		if _, err := client.Get(context.Background(), ts.URL); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if sawCookie != "S1" {
		t.Errorf("expected cookie on second request, got %q", sawCookie)
	}
}

func TestNetHTTPClient_RateLimitHonorsContext(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	client, err := webclient.NewNetHTTPClient(webclient.Config{RateLimit: 0.001, Burst: 1}, &noopLogger{}, ts.Client())
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	defer client.Close()

	// First request consumes the burst.
	if _, err := client.Get(context.Background(), ts.URL); err != nil {
		t.Fatalf("first Get: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := client.Get(ctx, ts.URL); err == nil {
		t.Fatal("expected rate limiter to give up before the deadline")
	}
}

func TestNetHTTPClient_SetsUserAgent(t *testing.T) {
	t.Parallel()
	var ua string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.UserAgent()
	}))
	defer ts.Close()

	client, _ := webclient.NewNetHTTPClient(webclient.Config{UserAgent: "shadowzap/test"}, &noopLogger{}, ts.Client())
	defer client.Close()

	if _, err := client.Get(context.Background(), ts.URL); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ua != "shadowzap/test" {
		t.Errorf("expected user agent, got %q", ua)
	}
}
