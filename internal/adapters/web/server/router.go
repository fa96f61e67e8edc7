package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/lcalzada-xor/netsentry/internal/adapters/web/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(s *Server) http.Handler {
	root := http.NewServeMux()

	// Chat is the only endpoint worth abusing: one LLM call per request
	chatLimiter := middleware.NewRateLimiter(10, 1*time.Minute)
	limitChat := middleware.RateLimitMiddleware(chatLimiter)

	root.Handle("GET /api/threats", http.HandlerFunc(s.ThreatsHandler.HandleList))
	root.Handle("GET /api/threats/stream", http.HandlerFunc(s.StreamHandler.HandleStream))
	root.Handle("GET /api/threats/export", http.HandlerFunc(s.ExportHandler.HandleExport))
	root.Handle("GET /api/alerts", http.HandlerFunc(s.AlertsHandler.HandleList))
	root.Handle("GET /api/alerts/stats", http.HandlerFunc(s.AlertsHandler.HandleStats))
	root.Handle("GET /api/health", http.HandlerFunc(s.HealthHandler.HandleHealth))
	root.Handle("POST /api/chat", limitChat(http.HandlerFunc(s.ChatHandler.HandleChat)))

	// WebSocket endpoint
	root.Handle("GET /ws/threats", http.HandlerFunc(s.WSManager.HandleWebSocket))

	// The lookup route takes a path parameter; the rest of the API is fixed
	geoRouter := mux.NewRouter()
	geoRouter.HandleFunc("/api/geolocation/{ip}", s.GeoHandler.HandleLookup).Methods(http.MethodGet)
	root.Handle("/api/geolocation/", geoRouter)

	// Metrics endpoint
	root.Handle("GET /metrics", promhttp.Handler())

	return middleware.CORSMiddleware(root)
}
