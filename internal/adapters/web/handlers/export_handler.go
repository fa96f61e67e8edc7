package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/lcalzada-xor/netsentry/internal/adapters/reporting"
	"github.com/lcalzada-xor/netsentry/internal/core/domain"
	"github.com/lcalzada-xor/netsentry/internal/core/ports"
)

// reportRecentRows caps the recent-threats table in the PDF report.
const reportRecentRows = 25

// ExportHandler serves threat log exports
type ExportHandler struct {
	Log ports.EventLog
	PDF *reporting.PDFExporter
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(log ports.EventLog, pdf *reporting.PDFExporter) *ExportHandler {
	return &ExportHandler{
		Log: log,
		PDF: pdf,
	}
}

type jsonExport struct {
	ExportedAt   string               `json:"exported_at"`
	TotalThreats int                  `json:"total_threats"`
	Threats      []domain.ThreatEvent `json:"threats"`
}

// HandleExport renders the full threat log as JSON or as a PDF report.
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	threats, err := h.Log.ListThreats(0)
	if err != nil {
		slog.Error("export read", "error", err)
		http.Error(w, "Failed to load threats", http.StatusInternalServerError)
		return
	}

	switch format {
	case "pdf":
		h.exportPDF(w, threats)
	default:
		h.exportJSON(w, threats)
	}
}

func (h *ExportHandler) exportJSON(w http.ResponseWriter, threats []domain.ThreatEvent) {
	if threats == nil {
		threats = []domain.ThreatEvent{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=netsentry_threats.json")
	if err := json.NewEncoder(w).Encode(jsonExport{
		ExportedAt:   time.Now().UTC().Format(time.RFC3339),
		TotalThreats: len(threats),
		Threats:      threats,
	}); err != nil {
		slog.Error("JSON export", "error", err)
	}
}

func (h *ExportHandler) exportPDF(w http.ResponseWriter, threats []domain.ThreatEvent) {
	stats, err := h.Log.ThreatStatsSince(time.Now().Add(-24 * time.Hour))
	if err != nil {
		slog.Error("export stats", "error", err)
		http.Error(w, "Failed to aggregate statistics", http.StatusInternalServerError)
		return
	}

	// Newest rows first in the report table
	recent := make([]domain.ThreatEvent, 0, reportRecentRows)
	for i := len(threats) - 1; i >= 0 && len(recent) < reportRecentRows; i-- {
		recent = append(recent, threats[i])
	}

	report := &domain.ThreatReport{
		GeneratedAt: time.Now().UTC(),
		TotalEvents: int64(len(threats)),
		Stats:       stats,
		Recent:      recent,
	}

	data, err := h.PDF.ExportThreatReport(report)
	if err != nil {
		slog.Error("PDF export", "error", err)
		http.Error(w, "Failed to generate report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=netsentry_report.pdf")
	if _, err := w.Write(data); err != nil {
		slog.Error("PDF export write", "error", err)
	}
}
