package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"github.com/lcalzada-xor/netsentry/internal/core/ports"
)

// HealthHandler reports pipeline liveness and data file status
type HealthHandler struct {
	Log     ports.EventLog
	LogFile string
	DBFile  string
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(log ports.EventLog, logFile, dbFile string) *HealthHandler {
	return &HealthHandler{
		Log:     log,
		LogFile: logFile,
		DBFile:  dbFile,
	}
}

type healthResponse struct {
	Status           string `json:"status"`
	LogFileExists    bool   `json:"logFileExists"`
	LogFileSize      int64  `json:"logFileSize"`
	DBFileExists     bool   `json:"dbFileExists"`
	DBFileSize       int64  `json:"dbFileSize"`
	PacketsProcessed int64  `json:"packetsProcessed"`
}

// HandleHealth reports the data files and the lifetime packet counter.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	resp.LogFileExists, resp.LogFileSize = fileStatus(h.LogFile)
	resp.DBFileExists, resp.DBFileSize = fileStatus(h.DBFile)

	// Best effort: a missing or unreadable counter reads as zero.
	if raw, err := h.Log.GetStat(ports.StatPacketCount); err == nil {
		if count, err := strconv.ParseInt(raw, 10, 64); err == nil {
			resp.PacketsProcessed = count
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func fileStatus(path string) (bool, int64) {
	info, err := os.Stat(path)
	if err != nil {
		return false, 0
	}
	return true, info.Size()
}
