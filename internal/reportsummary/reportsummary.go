// Package reportsummary extracts risk counts and alert names from a ZAP HTML
// report.
package reportsummary

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNotReport is returned when the document has neither a summary table nor
// alert sections.
var ErrNotReport = errors.New("not a ZAP html report")

const (
	RiskHigh          = "High"
	RiskMedium        = "Medium"
	RiskLow           = "Low"
	RiskInformational = "Informational"
)

type Alert struct {
	Name      string `json:"name"`
	Risk      string `json:"risk"`
	Instances int    `json:"instances,omitempty"`
}

type Summary struct {
	High          int     `json:"high"`
	Medium        int     `json:"medium"`
	Low           int     `json:"low"`
	Informational int     `json:"informational"`
	Alerts        []Alert `json:"alerts"`
}

// Total is the number of alerts across all risk levels.
func (s *Summary) Total() int {
	return s.High + s.Medium + s.Low + s.Informational
}

// Parse reads a ZAP "traditional" HTML report. Counts come from the summary
// table when present and are otherwise derived from the alert sections.
func Parse(r io.Reader) (*Summary, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	sum := &Summary{Alerts: []Alert{}}
	haveCounts := false

	doc.Find("table.summary tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		risk := normalizeRisk(cells.Eq(0).Text())
		n, err := strconv.Atoi(strings.TrimSpace(cells.Eq(1).Text()))
		if risk == "" || err != nil {
			return
		}
		sum.set(risk, n)
		haveCounts = true
	})

	doc.Find("table.results").Each(func(_ int, table *goquery.Selection) {
		headers := table.Find("tr").First().Find("th")
		if headers.Length() < 2 {
			return
		}
		alert := Alert{
			Risk: normalizeRisk(headers.Eq(0).Text()),
			Name: strings.TrimSpace(headers.Eq(1).Text()),
		}
		if alert.Name == "" {
			return
		}
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() >= 2 && strings.EqualFold(strings.TrimSpace(cells.Eq(0).Text()), "Instances") {
				alert.Instances, _ = strconv.Atoi(strings.TrimSpace(cells.Eq(1).Text()))
			}
		})
		sum.Alerts = append(sum.Alerts, alert)
	})

	if !haveCounts {
		if len(sum.Alerts) == 0 {
			return nil, ErrNotReport
		}
		for _, a := range sum.Alerts {
			sum.set(a.Risk, sum.get(a.Risk)+1)
		}
	}
	return sum, nil
}

func normalizeRisk(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "high"):
		return RiskHigh
	case strings.HasPrefix(s, "medium"):
		return RiskMedium
	case strings.HasPrefix(s, "low"):
		return RiskLow
	case strings.HasPrefix(s, "info"):
		return RiskInformational
	}
	return ""
}

func (s *Summary) set(risk string, n int) {
	switch risk {
	case RiskHigh:
		s.High = n
	case RiskMedium:
		s.Medium = n
	case RiskLow:
		s.Low = n
	case RiskInformational:
		s.Informational = n
	}
}

func (s *Summary) get(risk string) int {
	switch risk {
	case RiskHigh:
		return s.High
	case RiskMedium:
		return s.Medium
	case RiskLow:
		return s.Low
	case RiskInformational:
		return s.Informational
	}
	return 0
}
