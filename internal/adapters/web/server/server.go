package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/lcalzada-xor/netsentry/internal/adapters/reporting"
	"github.com/lcalzada-xor/netsentry/internal/adapters/web/handlers"
	websocket "github.com/lcalzada-xor/netsentry/internal/adapters/web/websocket"
	"github.com/lcalzada-xor/netsentry/internal/config"
	"github.com/lcalzada-xor/netsentry/internal/core/ports"
	"github.com/lcalzada-xor/netsentry/internal/core/services/chat"
	"github.com/lcalzada-xor/netsentry/internal/core/services/stream"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server handles HTTP and WebSocket connections.
type Server struct {
	Addr string

	WSManager      *websocket.WSManager
	ThreatsHandler *handlers.ThreatsHandler
	StreamHandler  *handlers.StreamHandler
	ExportHandler  *handlers.ExportHandler
	AlertsHandler  *handlers.AlertsHandler
	GeoHandler     *handlers.GeoHandler
	HealthHandler  *handlers.HealthHandler
	ChatHandler    *handlers.ChatHandler

	srv *http.Server
}

// NewServer wires the handler set. chatService may be nil (assistant
// disabled); the snapshot annotator is dropped when geolocation is off, while
// the lookup endpoint keeps the resolver so it can answer 503.
func NewServer(cfg *config.Config, eventLog ports.EventLog, hub *stream.Hub, resolver ports.GeoResolver, chatService *chat.Service) *Server {
	var annotator ports.GeoResolver
	if cfg.Geolocation.Enabled {
		annotator = resolver
	}

	return &Server{
		Addr: cfg.HTTPListen,

		WSManager:      websocket.NewWSManager(hub),
		ThreatsHandler: handlers.NewThreatsHandler(eventLog, annotator),
		StreamHandler:  handlers.NewStreamHandler(hub),
		ExportHandler:  handlers.NewExportHandler(eventLog, reporting.NewPDFExporter()),
		AlertsHandler:  handlers.NewAlertsHandler(eventLog),
		GeoHandler:     handlers.NewGeoHandler(resolver),
		HealthHandler:  handlers.NewHealthHandler(eventLog, cfg.Storage.LogFile, cfg.Storage.DBFile),
		ChatHandler:    handlers.NewChatHandler(chatService),
	}
}

// Run starts the websocket broadcaster and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.WSManager.Start(ctx)

	handler := SetupRoutes(s)

	// "netsentry-server" is the name of the operation (span)
	instrumentedHandler := otelhttp.NewHandler(handler, "netsentry-server")

	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           instrumentedHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown; streaming connections end when the hub closes
	// their subscriptions.
	go func() {
		<-ctx.Done()
		slog.Info("web server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("web server shutdown", "error", err)
		}
	}()

	slog.Info("web server listening", "addr", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
