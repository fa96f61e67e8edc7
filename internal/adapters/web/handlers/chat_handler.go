package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lcalzada-xor/netsentry/internal/core/services/chat"
)

// ChatHandler serves the LLM assistant endpoint
type ChatHandler struct {
	// Service is nil when no API key is configured; requests then get 503.
	Service *chat.Service
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(service *chat.Service) *ChatHandler {
	return &ChatHandler{Service: service}
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// HandleChat answers a dashboard question grounded in the last day of threat
// statistics.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		http.Error(w, "Chat disabled", http.StatusServiceUnavailable)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	reply, err := h.Service.Reply(r.Context(), req.Message)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		http.Error(w, "Message must not be empty", http.StatusBadRequest)
		return
	case err != nil:
		slog.Error("chat reply", "error", err)
		http.Error(w, "Assistant unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(chatResponse{Reply: reply})
}
