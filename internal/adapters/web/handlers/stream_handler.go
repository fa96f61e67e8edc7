package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lcalzada-xor/netsentry/internal/core/services/stream"
)

// keepaliveInterval is how long the stream may stay quiet before a comment
// frame is written to hold the connection open.
const keepaliveInterval = 10 * time.Second

// StreamHandler serves the SSE threat tail
type StreamHandler struct {
	Hub *stream.Hub
}

// NewStreamHandler creates a new StreamHandler
func NewStreamHandler(hub *stream.Hub) *StreamHandler {
	return &StreamHandler{Hub: hub}
}

// HandleStream tails the threat log as server-sent events. Connections start
// at the current maximum id; since_id asks for a replay of everything after
// that id first.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	sinceID := int64(-1)
	if raw := r.URL.Query().Get("since_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			http.Error(w, "Invalid since_id", http.StatusBadRequest)
			return
		}
		sinceID = parsed
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	id, events := h.Hub.Subscribe(sinceID)
	defer h.Hub.Unsubscribe(id)

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				slog.Error("stream encode", "error", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
			keepalive.Reset(keepaliveInterval)
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}
