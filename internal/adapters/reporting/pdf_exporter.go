package reporting

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/jung-kurt/gofpdf"
	"github.com/lcalzada-xor/netsentry/internal/core/domain"
)

// PDFExporter renders threat reports to PDF format
type PDFExporter struct{}

// NewPDFExporter creates a new PDF exporter instance
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ExportThreatReport generates a PDF from a threat report snapshot
func (e *PDFExporter) ExportThreatReport(report *domain.ThreatReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	// Header with title and generation time
	e.addHeader(pdf, report)

	// Statistics overview
	e.addStatistics(pdf, report)

	// Recent threats table
	e.addThreatTable(pdf, report)

	// Footer
	e.addFooter(pdf, report)

	// Output to bytes
	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return buf.Bytes(), nil
}

// addHeader adds the report header
func (e *PDFExporter) addHeader(pdf *gofpdf.Fpdf, report *domain.ThreatReport) {
	// Title
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(0, 51, 102) // Dark blue
	pdf.CellFormat(0, 15, "Network Threat Report", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	// Generation time and statistics window
	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	dateStr := fmt.Sprintf("Generated: %s", report.GeneratedAt.Format("2006-01-02 15:04"))
	pdf.CellFormat(0, 6, dateStr, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Statistics window: last 24 hours", "", 1, "L", false, 0, "")

	pdf.Ln(8)
}

// addStatistics adds the threat statistics grid
func (e *PDFExporter) addStatistics(pdf *gofpdf.Fpdf, report *domain.ThreatReport) {
	// Section title
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Threat Overview", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	stats := []struct {
		label string
		value string
		color []int
	}{
		{"Threats (24h)", fmt.Sprintf("%d", report.Stats.Total), []int{0, 102, 204}},
		{"Events logged", fmt.Sprintf("%d", report.TotalEvents), []int{0, 102, 204}},
		{"Traffic trend", report.Stats.Trend, []int{60, 60, 60}},
		{"Avg SYN/ACK ratio", fmt.Sprintf("%.4f", report.Stats.AvgSynAckRatio), []int{60, 60, 60}},
	}

	// Per-kind counts in a stable order
	kinds := make([]string, 0, len(report.Stats.ByKind))
	for kind := range report.Stats.ByKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		r, g, b := e.kindColor(domain.ThreatKind(kind))
		stats = append(stats, struct {
			label string
			value string
			color []int
		}{kind, fmt.Sprintf("%d", report.Stats.ByKind[kind]), []int{r, g, b}})
	}

	// Display in 2 columns
	colWidth := 85.0
	for i, stat := range stats {
		x := 20.0
		if i%2 == 1 {
			x = 105.0
		}

		pdf.SetXY(x, pdf.GetY())

		// Label
		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(50, 7, stat.label+":", "", 0, "L", false, 0, "")

		// Value
		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(stat.color[0], stat.color[1], stat.color[2])
		pdf.CellFormat(colWidth-50, 7, stat.value, "", 0, "R", false, 0, "")

		if i%2 == 1 {
			pdf.Ln(7)
		}
	}
	if len(stats)%2 == 1 {
		pdf.Ln(7)
	}

	// Top sources, one line per IP
	if len(report.Stats.TopSources) > 0 {
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 10)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(0, 7, "Top sources:", "", 1, "L", false, 0, "")

		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		for _, src := range report.Stats.TopSources {
			line := fmt.Sprintf("%s  (%d threats)", src.IP, src.Count)
			pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
		}
	}

	pdf.Ln(10)
}

// addThreatTable adds the recent threats table
func (e *PDFExporter) addThreatTable(pdf *gofpdf.Fpdf, report *domain.ThreatReport) {
	// Section title
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Recent Threats", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(report.Recent) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No threats recorded", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	// Table header
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)

	pdf.CellFormat(35, 8, "Time", "1", 0, "C", true, 0, "")
	pdf.CellFormat(32, 8, "Type", "1", 0, "L", true, 0, "")
	pdf.CellFormat(38, 8, "Source", "1", 0, "L", true, 0, "")
	pdf.CellFormat(38, 8, "Destination", "1", 0, "L", true, 0, "")
	pdf.CellFormat(27, 8, "Ports", "1", 1, "C", true, 0, "")

	// Table rows
	pdf.SetFont("Arial", "", 9)
	for _, threat := range report.Recent {
		if pdf.GetY() > 270 {
			pdf.AddPage()
		}

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(35, 7, threat.Timestamp.Format(domain.ThreatTimestampLayout), "1", 0, "C", false, 0, "")

		r, g, b := e.kindColor(threat.Kind)
		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(32, 7, string(threat.Kind), "1", 0, "L", false, 0, "")

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(38, 7, threat.SourceIP, "1", 0, "L", false, 0, "")
		pdf.CellFormat(38, 7, threat.DestinationIP, "1", 0, "L", false, 0, "")

		// Truncate port lists that do not fit the column
		portText := threat.Ports.Column()
		if len(portText) > 16 {
			portText = portText[:13] + "..."
		}
		pdf.CellFormat(27, 7, portText, "1", 1, "C", false, 0, "")
	}

	pdf.Ln(8)
}

// kindColor returns RGB color based on threat kind
func (e *PDFExporter) kindColor(kind domain.ThreatKind) (r, g, b int) {
	switch kind {
	case domain.ThreatDDoS, domain.ThreatSYNFlood, domain.ThreatMaliciousIP:
		return 220, 53, 69 // Red
	case domain.ThreatSQLInjection, domain.ThreatXSS:
		return 255, 149, 0 // Orange
	case domain.ThreatPortScan, domain.ThreatMaliciousDomain:
		return 255, 204, 0 // Yellow
	default:
		return 150, 150, 150 // Gray
	}
}

// addFooter adds the report footer
func (e *PDFExporter) addFooter(pdf *gofpdf.Fpdf, report *domain.ThreatReport) {
	// Move to bottom
	pdf.SetY(-20)

	// Separator line
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(3)

	// Footer text
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	footerText := fmt.Sprintf("Generated by netsentry | %d events logged", report.TotalEvents)
	pdf.CellFormat(0, 5, footerText, "", 1, "C", false, 0, "")
}
