package utils

import (
	"errors"
	"net/url"
	"testing"
)

func TestParseTargetURL_Valid(t *testing.T) {
	u, err := ParseTargetURL("  https://example.com/login ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Host != "example.com" || u.Path != "/login" {
		t.Errorf("unexpected url: %v", u)
	}
}

func TestParseTargetURL_Rejects(t *testing.T) {
	cases := map[string]error{
		"":                  ErrEmptyURL,
		"example.com":       ErrMissingScheme,
		"not a url at all":  ErrMissingScheme,
		"https://":          ErrMissingHost,
		"ftp://example.com": nil,
		"http://[::1":       nil,
	}
	for raw, want := range cases {
		_, err := ParseTargetURL(raw)
		if err == nil {
			t.Errorf("%q: expected error", raw)
			continue
		}
		if want != nil && !errors.Is(err, want) {
			t.Errorf("%q: expected %v, got %v", raw, want, err)
		}
	}
}

func TestCanonicalize(t *testing.T) {
	opts := CanonicalizeOptions{StripTrailingSlash: true}
	tests := []struct {
		in, want string
	}{
		{"HTTP://Example.COM:80/a/b/", "http://example.com/a/b"},
		{"https://example.com:443", "https://example.com/"},
		{"https://example.com:8443/x#frag", "https://example.com:8443/x"},
		{"https://user:pw@example.com/?b=2&a=1", "https://example.com/?a=1&b=2"},
		{"https://bücher.example/", "https://xn--bcher-kva.example/"},
	}
	for _, tt := range tests {
		got, err := Canonicalize(tt.in, opts)
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalize_DefaultScheme(t *testing.T) {
	got, err := Canonicalize("example.com/path", CanonicalizeOptions{DefaultScheme: "https"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://example.com/path" {
		t.Errorf("got %q", got)
	}
}

func TestCanonicalize_EmptyURL_Error(t *testing.T) {
	if _, err := Canonicalize("   ", CanonicalizeOptions{}); !errors.Is(err, ErrEmptyURL) {
		t.Errorf("expected ErrEmptyURL, got %v", err)
	}
}

func TestJoinURL(t *testing.T) {
	got := JoinURL("http://127.0.0.1:8000/", url.Values{"session_id": {"S 1"}}, "scan", "T/1")
	want := "http://127.0.0.1:8000/scan/T%2F1?session_id=S+1"
	if got != want {
		t.Errorf("JoinURL = %q, want %q", got, want)
	}
	if got := JoinURL("http://h", nil); got != "http://h" {
		t.Errorf("JoinURL without segments = %q", got)
	}
}
