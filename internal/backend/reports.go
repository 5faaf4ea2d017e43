package backend

import "github.com/raysh454/shadowzap/internal/model"

// FileURL is where a stored report file is downloaded from.
func (c *Client) FileURL(fileID string) string {
	return c.url(nil, "files", fileID)
}

// SessionReportURL points at the latest enhanced report of a session; kind is
// "enhanced-html" or "enhanced-pdf".
func (c *Client) SessionReportURL(sessionID, kind string) string {
	return c.url(nil, "session-reports", sessionID, kind)
}

// EnhancedHTMLURL points at an enhanced HTML report by report id.
func (c *Client) EnhancedHTMLURL(reportID string) string {
	return c.url(nil, "enhanced-html", reportID)
}

// ReportLinks lists the report actions available for rec. Normal scans expose
// the plain ZAP files; enhanced scans expose the AI report through the
// session or report id and prefer the enhanced JSON and XML variants.
func (c *Client) ReportLinks(rec *model.ScanRecord) []model.ReportLink {
	if rec == nil {
		return nil
	}
	ids := model.NonEmptyFileIDs(rec.FileIDs)
	enhanced := rec.ReportType == model.ReportEnhanced
	var links []model.ReportLink

	if !enhanced && ids[model.FileHTML] != "" {
		links = append(links, model.ReportLink{Label: "HTML Report", Kind: "html", URL: c.FileURL(ids[model.FileHTML])})
	}

	if enhanced {
		if id := ids[model.FilePDFEnhanced]; id != "" {
			links = append(links, model.ReportLink{Label: "Enhanced PDF", Kind: "pdf", URL: c.FileURL(id)})
		}
		switch {
		case rec.SessionID != "":
			links = append(links,
				model.ReportLink{Label: "Enhanced HTML", Kind: "html", URL: c.SessionReportURL(rec.SessionID, "enhanced-html")},
				model.ReportLink{Label: "Download PDF", Kind: "pdf", URL: c.SessionReportURL(rec.SessionID, "enhanced-pdf")})
		case rec.ReportID != "":
			links = append(links, model.ReportLink{Label: "Enhanced HTML", Kind: "html", URL: c.EnhancedHTMLURL(rec.ReportID)})
			if id := ids[model.FilePDFEnhanced]; id != "" {
				links = append(links, model.ReportLink{Label: "Download PDF", Kind: "pdf", URL: c.FileURL(id)})
			}
		}
	}

	if id := ids[model.FileJSON]; id != "" {
		if enhanced && ids[model.FileJSONEnhanced] != "" {
			id = ids[model.FileJSONEnhanced]
		}
		links = append(links, model.ReportLink{Label: "JSON Report", Kind: "json", URL: c.FileURL(id)})
	}
	if id := ids[model.FileXML]; id != "" {
		if enhanced && ids[model.FileXMLEnhanced] != "" {
			id = ids[model.FileXMLEnhanced]
		}
		links = append(links, model.ReportLink{Label: "XML Report", Kind: "xml", URL: c.FileURL(id)})
	}
	return links
}
