package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/lcalzada-xor/netsentry/internal/adapters/capture"
	"github.com/lcalzada-xor/netsentry/internal/adapters/llm"
	"github.com/lcalzada-xor/netsentry/internal/adapters/notify"
	"github.com/lcalzada-xor/netsentry/internal/adapters/osint"
	"github.com/lcalzada-xor/netsentry/internal/adapters/storage"
	webserver "github.com/lcalzada-xor/netsentry/internal/adapters/web/server"
	"github.com/lcalzada-xor/netsentry/internal/config"
	"github.com/lcalzada-xor/netsentry/internal/core/domain"
	"github.com/lcalzada-xor/netsentry/internal/core/ports"
	"github.com/lcalzada-xor/netsentry/internal/core/services/alerting"
	"github.com/lcalzada-xor/netsentry/internal/core/services/chat"
	"github.com/lcalzada-xor/netsentry/internal/core/services/detect"
	"github.com/lcalzada-xor/netsentry/internal/core/services/intel"
	"github.com/lcalzada-xor/netsentry/internal/core/services/stream"
	"github.com/lcalzada-xor/netsentry/internal/geo"
	"github.com/lcalzada-xor/netsentry/internal/telemetry"
)

// intelCacheFile is the OSINT cache database, kept next to the event log.
const intelCacheFile = "osint_cache.db"

// Application holds the core components of the application. It acts as the
// facade for the entire system, orchestrating services and infrastructure.
type Application struct {
	Config *config.Config

	Store      *storage.Store
	Indicators *intel.Store
	Refresher  *intel.Refresher
	Resolver   *geo.Service
	Pipeline   *alerting.Pipeline
	Hub        *stream.Hub
	Engine     *detect.Engine
	Source     ports.PacketSource
	WebServer  *webserver.Server

	intelCache *osint.SQLiteCache
}

// New creates a new Application instance and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{Config: cfg}

	if err := app.bootstrap(); err != nil {
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}
	return app, nil
}

// bootstrap orchestrates the initialization sequence.
func (app *Application) bootstrap() error {
	telemetry.InitMetrics()

	if err := app.initStorage(); err != nil {
		return err
	}
	app.initIntel()
	app.initAlerting()

	// The hub snapshots its replay cursor at construction, so the legacy
	// import above must already be complete: imported rows are history, not
	// live events.
	app.Hub = stream.NewHub(app.Store)

	app.initEngine()
	app.initSource()
	app.initServers()
	return nil
}

// initStorage opens the event log and runs the one-time legacy CSV import.
func (app *Application) initStorage() error {
	if err := os.MkdirAll(filepath.Dir(app.Config.Storage.DBFile), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.Open(app.Config.Storage.DBFile)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	app.Store = store

	count, err := store.MigrateLegacyCSV(app.Config.Storage.LogFile)
	if err != nil {
		slog.Warn("legacy csv migration failed", "path", app.Config.Storage.LogFile, "error", err)
	} else if count > 0 {
		slog.Info("legacy csv imported", "path", app.Config.Storage.LogFile, "rows", count)
	}
	return nil
}

// initIntel wires the indicator store to its feeds and durable cache. A cache
// that fails to open degrades to feed-only operation.
func (app *Application) initIntel() {
	app.Indicators = intel.NewStore()

	fetcher := osint.NewFeedFetcher(app.Config.OSINT.FeodoTrackerURL, app.Config.OSINT.URLHausURL)

	cachePath := filepath.Join(filepath.Dir(app.Config.Storage.DBFile), intelCacheFile)
	cache, err := osint.NewSQLiteCache(cachePath)
	if err != nil {
		slog.Warn("osint cache unavailable, running feed-only", "path", cachePath, "error", err)
	} else {
		app.intelCache = cache
	}

	var indicatorCache ports.IndicatorCache
	if app.intelCache != nil {
		indicatorCache = app.intelCache
	}
	app.Refresher = intel.NewRefresher(app.Indicators, fetcher, indicatorCache, app.Config.OSINT.UpdateInterval())
}

// initAlerting builds the geolocation resolver, the mail notifier and the
// alert pipeline.
func (app *Application) initAlerting() {
	app.Resolver = geo.NewService(app.Config.Geolocation, nil)

	var notifier ports.AlertNotifier
	if app.Config.Alerts.Enabled {
		notifier = notify.NewMailer(
			app.Config.Alerts.SMTPServer,
			app.Config.Alerts.SMTPPort,
			app.Config.Alerts.SenderEmail,
			app.Config.Alerts.SenderPassword,
			app.Config.Alerts.RecipientEmails,
		)
	}

	app.Pipeline = alerting.NewPipeline(app.Store, app.Resolver, notifier, app.Config.Alerts.Throttle(), 0)
}

// initEngine assembles the detection engine. The sink fans emitted events to
// the alert pipeline and wakes the stream hub; both are non-blocking, so the
// capture path never waits on enrichment.
func (app *Application) initEngine() {
	thresholds := detect.Thresholds{
		DDoS:        app.Config.Detection.DDoSThreshold,
		PortScan:    app.Config.Detection.PortScanThreshold,
		SQLi:        app.Config.Detection.SQLInjectionThreshold,
		XSS:         app.Config.Detection.XSSThreshold,
		SYNFlood:    app.Config.Detection.SYNFloodThreshold,
		SynAckRatio: app.Config.Detection.SynAckRatioThreshold,
		Window:      app.Config.Detection.Window(),
	}

	sink := func(event domain.ThreatEvent) {
		app.Pipeline.Enqueue(event)
		app.Hub.Notify()
	}
	app.Engine = detect.NewEngine(thresholds, app.Indicators, app.Store, sink)
}

// initSource selects the packet source: live capture, or the replay generator
// in mock mode.
func (app *Application) initSource() {
	if app.Config.MockMode {
		slog.Info("mock mode active, replaying synthetic traffic")
		app.Source = capture.NewReplay()
		return
	}
	app.Source = capture.NewLive(app.Config.NetworkInterface)
}

// initServers wires the HTTP server and, when configured, the chat assistant.
func (app *Application) initServers() {
	var chatService *chat.Service
	if app.Config.Chat.Enabled && app.Config.Chat.APIKey != "" {
		model := llm.NewAnthropicModel(app.Config.Chat.Model, app.Config.Chat.APIKey)
		chatService = chat.NewService(app.Store, model)
	} else if app.Config.Chat.Enabled {
		slog.Warn("chat enabled but no API key set, endpoint will answer 503")
	}

	app.WebServer = webserver.NewServer(app.Config, app.Store, app.Hub, app.Resolver, chatService)
}

// Run starts the application components and manages their execution
// lifecycle. It blocks until ctx is cancelled or a component fails.
func (app *Application) Run(ctx context.Context) error {
	slog.Info("starting netsentry components")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	app.Refresher.Prime()

	var wg sync.WaitGroup

	// Background loops exit on cancellation without reporting errors.
	wg.Add(3)
	go func() { defer wg.Done(); app.Refresher.Run(runCtx) }()
	go func() { defer wg.Done(); app.Pipeline.Run(runCtx) }()
	go func() { defer wg.Done(); app.Hub.Run(runCtx) }()

	errChan := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("web server starting", "addr", app.Config.HTTPListen)
		if err := app.WebServer.Run(runCtx); err != nil {
			errChan <- fmt.Errorf("web server error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.Source.Run(runCtx, app.Engine.Process); err != nil {
			errChan <- fmt.Errorf("capture error: %w", err)
		}
	}()

	slog.Info("netsentry ready",
		"listen", app.Config.HTTPListen,
		"interface", app.Config.NetworkInterface,
		"mock", app.Config.MockMode,
	)

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("termination signal received")
	case runErr = <-errChan:
	}

	cancel()
	wg.Wait()

	app.cleanup()
	return runErr
}

// cleanup flushes pending state and releases resources, in dependency order.
func (app *Application) cleanup() {
	slog.Info("cleaning up resources")

	if app.Engine != nil {
		app.Engine.FlushPacketCount()
	}

	if received, dropped := app.Source.Stats(); received > 0 || dropped > 0 {
		slog.Info("capture totals", "received", received, "dropped", dropped)
	}

	if app.intelCache != nil {
		if err := app.intelCache.Close(); err != nil {
			slog.Warn("closing osint cache", "error", err)
		}
	}
	if app.Store != nil {
		if err := app.Store.Close(); err != nil {
			slog.Warn("closing event log", "error", err)
		}
	}
}
