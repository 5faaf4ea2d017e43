package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/raysh454/shadowzap/internal/model"
)

func TestParseArgs_DefaultsToServe(t *testing.T) {
	args, err := ParseArgs(nil)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if args.Command != CommandServe {
		t.Errorf("expected serve, got %q", args.Command)
	}
}

func TestParseArgs_ServeFlagsWithoutCommand(t *testing.T) {
	args, err := ParseArgs([]string{"-addr", ":9090", "-store", "memory"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if args.Command != CommandServe || args.ListenAddr != ":9090" || args.Store != "memory" {
		t.Errorf("unexpected args %+v", args)
	}
}

func TestParseArgs_Scan(t *testing.T) {
	args, err := ParseArgs([]string{"scan", "-target", "https://example.com", "-scan-type", "full", "-interval", "2s"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if args.Command != CommandScan {
		t.Errorf("expected scan, got %q", args.Command)
	}
	if args.Target != "https://example.com" || args.ScanType != "full" {
		t.Errorf("unexpected args %+v", args)
	}
	if args.Interval != 2*time.Second {
		t.Errorf("expected 2s interval, got %s", args.Interval)
	}
}

func TestParseArgs_Errors(t *testing.T) {
	cases := map[string][]string{
		"scan without target": {"scan"},
		"unknown command":     {"crawl"},
		"bad store":           {"-store", "redis"},
		"negative interval":   {"-interval", "-1s"},
		"unknown flag":        {"-nope"},
		"stray argument":      {"serve", "-addr", ":1", "extra"},
	}
	for name, in := range cases {
		if _, err := ParseArgs(in); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestStatusLine(t *testing.T) {
	DisableColor()

	rec := &model.ScanRecord{TargetURL: "https://example.com", Status: model.StatusRunning, Progress: 50, TaskID: "T1"}
	if got, want := StatusLine(rec), "[ 50%] Running https://example.com (T1)"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	rec = &model.ScanRecord{TargetURL: "https://example.com", Status: model.StatusFailed, Progress: 100, Error: "boom"}
	if got := StatusLine(rec); !strings.Contains(got, "(pending)") || !strings.HasSuffix(got, "boom") {
		t.Errorf("unexpected line %q", got)
	}
}

func TestPrintReports(t *testing.T) {
	DisableColor()

	var buf bytes.Buffer
	PrintReports(&buf, nil)
	if !strings.Contains(buf.String(), "no reports available") {
		t.Errorf("unexpected output %q", buf.String())
	}

	buf.Reset()
	PrintReports(&buf, []model.ReportLink{{Label: "HTML Report", URL: "http://x/files/1"}})
	if !strings.Contains(buf.String(), "http://x/files/1") {
		t.Errorf("missing link in %q", buf.String())
	}
}
