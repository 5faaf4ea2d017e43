package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/raysh454/shadowzap/internal/model"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
	red    = color.New(color.FgRed)
	gray   = color.New(color.FgHiBlack)
)

func colorFor(status model.ScanStatus) *color.Color {
	switch status {
	case model.StatusCompleted:
		return green
	case model.StatusFailed:
		return red
	case model.StatusRunning, model.StatusProcessing:
		return cyan
	case model.StatusInitializing:
		return yellow
	default:
		return gray
	}
}

// StatusLine renders one progress line for rec.
func StatusLine(rec *model.ScanRecord) string {
	task := rec.TaskID
	if task == "" {
		task = "pending"
	}
	line := fmt.Sprintf("[%3d%%] %s %s (%s)",
		rec.Progress, colorFor(rec.Status).Sprint(rec.Status), rec.TargetURL, gray.Sprint(task))
	if rec.Error != "" {
		line += " " + red.Sprint(rec.Error)
	}
	return line
}

// PrintStatus writes StatusLine(rec) to w.
func PrintStatus(w io.Writer, rec *model.ScanRecord) {
	_, _ = fmt.Fprintln(w, StatusLine(rec))
}

// PrintReports lists the report links of a finished scan.
func PrintReports(w io.Writer, links []model.ReportLink) {
	if len(links) == 0 {
		_, _ = fmt.Fprintln(w, gray.Sprint("no reports available"))
		return
	}
	for _, l := range links {
		_, _ = fmt.Fprintf(w, "  %-14s %s\n", green.Sprint(l.Label), l.URL)
	}
}

// DisableColor turns off ANSI output for every printer in this package.
func DisableColor() {
	color.NoColor = true
}
