package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
	"github.com/lcalzada-xor/netsentry/internal/core/ports"
)

// maxGeoAnnotations caps how many distinct source IPs one snapshot resolves.
const maxGeoAnnotations = 100

// ThreatsHandler serves the threat snapshot
type ThreatsHandler struct {
	Log ports.EventLog

	// Geo is nil when geolocation is disabled; the snapshot is then served
	// without location annotations.
	Geo ports.GeoResolver
}

// NewThreatsHandler creates a new ThreatsHandler
func NewThreatsHandler(log ports.EventLog, geo ports.GeoResolver) *ThreatsHandler {
	return &ThreatsHandler{
		Log: log,
		Geo: geo,
	}
}

// threatRecord is one snapshot row: the threat event plus its optional
// location annotation.
type threatRecord struct {
	ID            int64             `json:"id"`
	Timestamp     string            `json:"timestamp"`
	Kind          domain.ThreatKind `json:"threatType"`
	SourceIP      string            `json:"sourceIP"`
	DestinationIP string            `json:"destinationIP"`
	Ports         domain.PortSet    `json:"ports"`
	Meta          map[string]any    `json:"meta"`
	Geolocation   *domain.GeoInfo   `json:"geolocation,omitempty"`
}

// HandleList returns the full threat view, oldest first.
func (h *ThreatsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	threats, err := h.Log.ListThreats(0)
	if err != nil {
		slog.Error("threat snapshot", "error", err)
		http.Error(w, "Failed to load threats", http.StatusInternalServerError)
		return
	}

	locations := h.resolveLocations(r, threats)

	records := make([]threatRecord, 0, len(threats))
	for _, threat := range threats {
		records = append(records, threatRecord{
			ID:            threat.ID,
			Timestamp:     threat.Timestamp.Format(domain.ThreatTimestampLayout),
			Kind:          threat.Kind,
			SourceIP:      threat.SourceIP,
			DestinationIP: threat.DestinationIP,
			Ports:         threat.Ports,
			Meta:          threat.Meta,
			Geolocation:   locations[threat.SourceIP],
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// resolveLocations looks up the first maxGeoAnnotations distinct source IPs.
// A failed lookup leaves those records unannotated and is not retried within
// the request.
func (h *ThreatsHandler) resolveLocations(r *http.Request, threats []domain.ThreatEvent) map[string]*domain.GeoInfo {
	if h.Geo == nil {
		return nil
	}

	locations := make(map[string]*domain.GeoInfo)
	for _, threat := range threats {
		if threat.SourceIP == "" {
			continue
		}
		if _, seen := locations[threat.SourceIP]; seen {
			continue
		}
		if len(locations) >= maxGeoAnnotations {
			break
		}

		info, err := h.Geo.Lookup(r.Context(), threat.SourceIP)
		if err != nil {
			info = nil
		}
		locations[threat.SourceIP] = info
	}
	return locations
}
