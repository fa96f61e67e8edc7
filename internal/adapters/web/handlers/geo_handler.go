package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/lcalzada-xor/netsentry/internal/core/ports"
	"github.com/lcalzada-xor/netsentry/internal/geo"
)

// GeoHandler serves single-address geolocation lookups
type GeoHandler struct {
	Resolver ports.GeoResolver
}

// NewGeoHandler creates a new GeoHandler
func NewGeoHandler(resolver ports.GeoResolver) *GeoHandler {
	return &GeoHandler{Resolver: resolver}
}

// HandleLookup resolves the path IP. Unknown addresses map to 404, disabled
// lookups to 503.
func (h *GeoHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	ip := mux.Vars(r)["ip"]

	info, err := h.Resolver.Lookup(r.Context(), ip)
	switch {
	case errors.Is(err, geo.ErrDisabled):
		http.Error(w, "Geolocation disabled", http.StatusServiceUnavailable)
		return
	case errors.Is(err, geo.ErrUnknownIP):
		http.Error(w, "No location available", http.StatusNotFound)
		return
	case err != nil:
		slog.Error("geo lookup", "ip", ip, "error", err)
		http.Error(w, "Lookup failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}
