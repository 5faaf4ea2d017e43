package mockbackend

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html/template"

	"github.com/google/uuid"

	"github.com/raysh454/shadowzap/internal/model"
)

type sampleAlert struct {
	Name      string
	Risk      string
	RiskCode  int
	Instances int
	bucket    string
}

// Every completed scan reports the same findings.
var sampleAlerts = []sampleAlert{
	{Name: "Cross Site Scripting (Reflected)", Risk: "High", RiskCode: 3, Instances: 2, bucket: "high"},
	{Name: "Content Security Policy (CSP) Header Not Set", Risk: "Medium", RiskCode: 2, Instances: 5, bucket: "medium"},
	{Name: "Missing Anti-clickjacking Header", Risk: "Medium", RiskCode: 2, Instances: 3, bucket: "medium"},
	{Name: "Server Leaks Version Information", Risk: "Low", RiskCode: 1, Instances: 7, bucket: "low"},
	{Name: "Information Disclosure - Suspicious Comments", Risk: "Informational", RiskCode: 0, Instances: 1, bucket: "info"},
}

func riskCounts() map[string]int {
	counts := map[string]int{"High": 0, "Medium": 0, "Low": 0, "Informational": 0}
	for _, a := range sampleAlerts {
		counts[a.Risk]++
	}
	return counts
}

// storeReportsLocked renders the report set for a completed scan and records
// the file ids on it. Nothing is stored when any report fails to render.
func (s *Server) storeReportsLocked(sc *scan) error {
	if len(sc.FileIDs) > 0 {
		return nil
	}
	html, err := renderHTML(sc, false)
	if err != nil {
		return err
	}
	js, err := renderJSON(sc)
	if err != nil {
		return err
	}
	x, err := renderXML(sc)
	if err != nil {
		return err
	}
	var enhancedHTML []byte
	if sc.ReportType == string(model.ReportEnhanced) {
		if enhancedHTML, err = renderHTML(sc, true); err != nil {
			return err
		}
	}

	s.addFileLocked(sc, model.FileHTML, "zap_report.html", "text/html", html)
	s.addFileLocked(sc, model.FileJSON, "zap_report.json", "application/json", js)
	s.addFileLocked(sc, model.FileXML, "zap_report.xml", "application/xml", x)

	if enhancedHTML != nil {
		sc.ReportID = uuid.New().String()
		s.addFileLocked(sc, "html_enhanced", "enhanced_report.html", "text/html", enhancedHTML)
		s.addFileLocked(sc, model.FilePDFEnhanced, "enhanced_report.pdf", "application/pdf", renderPDF(sc))
		s.addFileLocked(sc, model.FileJSONEnhanced, "enhanced_report.json", "application/json", js)
		s.addFileLocked(sc, model.FileXMLEnhanced, "enhanced_report.xml", "application/xml", x)
	}
	return nil
}

func (s *Server) addFileLocked(sc *scan, key, filename, contentType string, body []byte) {
	f := &storedFile{
		ID:          uuid.New().String(),
		TaskID:      sc.TaskID,
		Filename:    filename,
		ContentType: contentType,
		Body:        body,
		Uploaded:    s.now().UTC(),
	}
	s.files[f.ID] = f
	sc.FileIDs[key] = f.ID
}

var reportTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head><title>{{if .Enhanced}}Enhanced {{end}}ZAP Scanning Report</title></head>
<body>
<h1>{{if .Enhanced}}Enhanced {{end}}ZAP Scanning Report</h1>
<p>Site: {{.Target}}</p>
<h3>Summary of Alerts</h3>
<table class="summary">
  <tr><th width="45%" height="24">Risk Level</th><th width="55%" align="center">Number of Alerts</th></tr>
  {{range .Levels}}<tr><td class="risk-{{.Code}}"><div>{{.Name}}</div></td><td align="center"><div>{{.Count}}</div></td></tr>
  {{end}}
</table>
<h3>Alert Detail</h3>
{{range .Alerts}}<table class="results">
  <tr height="24"><th width="20%" class="risk-{{.RiskCode}}"><div>{{.Risk}}</div></th><th class="risk-{{.RiskCode}}">{{.Name}}</th></tr>
  <tr><td width="20%">Instances</td><td width="80%">{{.Instances}}</td></tr>
</table>
{{end}}
</body>
</html>`))

type riskLevel struct {
	Name  string
	Code  int
	Count int
}

func renderHTML(sc *scan, enhanced bool) ([]byte, error) {
	counts := riskCounts()
	data := struct {
		Target   string
		Enhanced bool
		Levels   []riskLevel
		Alerts   []sampleAlert
	}{
		Target:   sc.TargetURL,
		Enhanced: enhanced,
		Levels: []riskLevel{
			{"High", 3, counts["High"]},
			{"Medium", 2, counts["Medium"]},
			{"Low", 1, counts["Low"]},
			{"Informational", 0, counts["Informational"]},
		},
		Alerts: sampleAlerts,
	}
	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render html report: %w", err)
	}
	return buf.Bytes(), nil
}

func renderJSON(sc *scan) ([]byte, error) {
	type alert struct {
		Name      string `json:"name"`
		RiskCode  string `json:"riskcode"`
		RiskDesc  string `json:"riskdesc"`
		Instances int    `json:"count"`
	}
	alerts := make([]alert, 0, len(sampleAlerts))
	for _, a := range sampleAlerts {
		alerts = append(alerts, alert{Name: a.Name, RiskCode: fmt.Sprint(a.RiskCode), RiskDesc: a.Risk, Instances: a.Instances})
	}
	b, err := json.MarshalIndent(map[string]any{
		"@programName": "ZAP",
		"site": []map[string]any{{
			"@name":  sc.TargetURL,
			"alerts": alerts,
		}},
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render json report: %w", err)
	}
	return b, nil
}

func renderXML(sc *scan) ([]byte, error) {
	type alertItem struct {
		Name     string `xml:"alert"`
		RiskCode int    `xml:"riskcode"`
		RiskDesc string `xml:"riskdesc"`
		Count    int    `xml:"count"`
	}
	type site struct {
		Name   string      `xml:"name,attr"`
		Alerts []alertItem `xml:"alerts>alertitem"`
	}
	type report struct {
		XMLName     xml.Name `xml:"OWASPZAPReport"`
		ProgramName string   `xml:"programName,attr"`
		Site        site     `xml:"site"`
	}
	r := report{ProgramName: "ZAP", Site: site{Name: sc.TargetURL}}
	for _, a := range sampleAlerts {
		r.Site.Alerts = append(r.Site.Alerts, alertItem{Name: a.Name, RiskCode: a.RiskCode, RiskDesc: a.Risk, Count: a.Instances})
	}
	b, err := xml.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render xml report: %w", err)
	}
	return append([]byte(xml.Header), b...), nil
}

// renderPDF returns a placeholder with a PDF signature; nothing reads its
// contents.
func renderPDF(sc *scan) []byte {
	return []byte("%PDF-1.4\n% enhanced report for " + sc.TargetURL + "\n%%EOF\n")
}
