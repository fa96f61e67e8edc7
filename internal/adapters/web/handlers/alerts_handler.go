package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
	"github.com/lcalzada-xor/netsentry/internal/core/ports"
)

// AlertsHandler serves alert history and its aggregates
type AlertsHandler struct {
	Log ports.EventLog
}

// NewAlertsHandler creates a new AlertsHandler
func NewAlertsHandler(log ports.EventLog) *AlertsHandler {
	return &AlertsHandler{Log: log}
}

// HandleList returns alert history, newest first. type narrows by kind, ip by
// source address; type wins when both are given. Unparseable limits fall back
// to the default page size.
func (h *AlertsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := ports.AlertFilter{
		Type: r.URL.Query().Get("type"),
		IP:   r.URL.Query().Get("ip"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}

	alerts, err := h.Log.ListAlerts(filter)
	if err != nil {
		slog.Error("alert list", "error", err)
		http.Error(w, "Failed to load alerts", http.StatusInternalServerError)
		return
	}
	if alerts == nil {
		alerts = []domain.AlertRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(alerts)
}

// HandleStats returns totals over the whole alert history.
func (h *AlertsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Log.AlertStats()
	if err != nil {
		slog.Error("alert stats", "error", err)
		http.Error(w, "Failed to aggregate alerts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
