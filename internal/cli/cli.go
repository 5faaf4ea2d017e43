package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"
)

// Commands understood by ParseArgs.
const (
	CommandServe = "serve"
	CommandScan  = "scan"
)

// CLIArgs are the command-line arguments for a single invocation. Zero values
// mean "use the configuration file or default".
type CLIArgs struct {
	// Command is serve (default) or scan.
	Command string

	// ConfigPath points at an optional YAML configuration file.
	ConfigPath string

	// ListenAddr overrides the API listen address for serve.
	ListenAddr string

	// BackendURL overrides the scanning backend base URL.
	BackendURL string

	// Store selects memory or sqlite persistence; DBPath is the sqlite file.
	Store  string
	DBPath string

	// Target, ScanType, ReportType and ReportFormat describe the scan to
	// submit with the scan command.
	Target       string
	ScanType     string
	ReportType   string
	ReportFormat string

	// Interval overrides the auto-poll interval.
	Interval time.Duration

	// LogLevel is debug, info, warn or error.
	LogLevel string

	// NoColor disables colored status output.
	NoColor bool

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// ParseArgs parses a slice of args and returns CLIArgs. Use in tests by passing
// arbitrary slices. The function is deterministic and does not read os.Args.
// The first argument may name the command; flags follow it.
func ParseArgs(args []string) (*CLIArgs, error) {
	out := &CLIArgs{Command: CommandServe, RawArgs: args}

	rest := args
	if len(rest) > 0 && !strings.HasPrefix(rest[0], "-") {
		out.Command = rest[0]
		rest = rest[1:]
	}
	if out.Command != CommandServe && out.Command != CommandScan {
		return nil, fmt.Errorf("unknown command %q: want %s or %s", out.Command, CommandServe, CommandScan)
	}

	fs := flag.NewFlagSet("shadowzap "+out.Command, flag.ContinueOnError)
	fs.StringVar(&out.ConfigPath, "config", "", "Path to a YAML configuration file")
	fs.StringVar(&out.ListenAddr, "addr", "", "API listen address (serve)")
	fs.StringVar(&out.BackendURL, "backend", "", "Scanning backend base URL")
	fs.StringVar(&out.Store, "store", "", "Persistence: memory|sqlite")
	fs.StringVar(&out.DBPath, "db", "", "SQLite database path")
	fs.StringVar(&out.Target, "target", "", "Target URL to scan (scan)")
	fs.StringVar(&out.ScanType, "scan-type", "", "Scan type: basic|full|api_scan|spider_scan")
	fs.StringVar(&out.ReportType, "report-type", "", "Report type: normal|enhanced")
	fs.StringVar(&out.ReportFormat, "report-format", "", "Report format requested from the backend")
	fs.DurationVar(&out.Interval, "interval", 0, "Status poll interval (0=use config)")
	fs.StringVar(&out.LogLevel, "log-level", "", "Log level: debug|info|warn|error")
	fs.BoolVar(&out.NoColor, "no-color", false, "Disable colored output")

	// Ensure Parse doesn't write to stdout/stderr in tests
	fs.SetOutput(io.Discard)

	if err := fs.Parse(rest); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if out.Command == CommandScan && strings.TrimSpace(out.Target) == "" {
		return nil, fmt.Errorf("missing required -target argument")
	}
	if out.Store != "" && out.Store != "memory" && out.Store != "sqlite" {
		return nil, fmt.Errorf("invalid -store %q: want memory or sqlite", out.Store)
	}
	if out.Interval < 0 {
		return nil, fmt.Errorf("invalid -interval %s", out.Interval)
	}

	return out, nil
}
