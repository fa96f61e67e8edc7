package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
	"github.com/lcalzada-xor/netsentry/internal/core/ports"
	"github.com/lcalzada-xor/netsentry/internal/telemetry"
)

// defaultBuffer is the event queue depth between the capture path and the
// alert worker.
const defaultBuffer = 256

// Pipeline turns threat events into alert records: throttle per
// (source, kind), enrich with geolocation, persist, notify. The capture path
// only ever pays for a channel send.
type Pipeline struct {
	log      ports.EventLog
	resolver ports.GeoResolver
	notifier ports.AlertNotifier
	throttle time.Duration

	events chan domain.ThreatEvent

	mu        sync.Mutex
	lastAlert map[string]time.Time
}

// NewPipeline wires the alert worker. A nil resolver skips enrichment; a nil
// notifier skips delivery. A buffer of 0 means the default depth.
func NewPipeline(log ports.EventLog, resolver ports.GeoResolver, notifier ports.AlertNotifier, throttle time.Duration, buffer int) *Pipeline {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Pipeline{
		log:       log,
		resolver:  resolver,
		notifier:  notifier,
		throttle:  throttle,
		events:    make(chan domain.ThreatEvent, buffer),
		lastAlert: make(map[string]time.Time),
	}
}

// Enqueue hands an event to the worker without blocking. When the buffer is
// full the event is dropped and counted; the threat row is already durable
// at this point.
func (p *Pipeline) Enqueue(event domain.ThreatEvent) {
	select {
	case p.events <- event:
	default:
		telemetry.PipelineDropped.Inc()
		slog.Debug("alert pipeline full, event dropped", "kind", event.Kind, "src", event.SourceIP)
	}
}

// Run processes events until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-p.events:
			p.handle(ctx, event)
		}
	}
}

func (p *Pipeline) handle(ctx context.Context, event domain.ThreatEvent) {
	key := event.SourceIP + "|" + string(event.Kind)
	now := time.Now()

	// The throttle timestamp advances whenever an alert is recorded, not
	// only when delivery succeeds, so a flapping mail server cannot turn
	// one attack into an alert storm.
	p.mu.Lock()
	if last, ok := p.lastAlert[key]; ok && now.Sub(last) < p.throttle {
		p.mu.Unlock()
		telemetry.AlertsThrottled.WithLabelValues(string(event.Kind)).Inc()
		return
	}
	p.lastAlert[key] = now
	p.mu.Unlock()

	var geo *domain.GeoInfo
	if p.resolver != nil {
		info, err := p.resolver.Lookup(ctx, event.SourceIP)
		if err != nil {
			slog.Debug("geolocation lookup failed", "ip", event.SourceIP, "error", err)
		} else {
			geo = info
		}
	}

	record := domain.AlertRecord{
		Timestamp:     now.UTC(),
		Kind:          event.Kind,
		SourceIP:      event.SourceIP,
		DestinationIP: event.DestinationIP,
		Ports:         event.Ports,
		Message:       Message(event),
		Geolocation:   geo,
	}
	if err := p.log.AppendAlert(&record); err != nil {
		slog.Error("append alert", "type", record.Kind, "src", record.SourceIP, "error", err)
	}
	telemetry.AlertsEmitted.WithLabelValues(string(event.Kind)).Inc()

	if p.notifier != nil && p.notifier.Configured() {
		if err := p.notifier.Notify(ctx, record); err != nil {
			slog.Warn("alert notification failed", "type", record.Kind, "error", err)
		}
	}
}

// Message renders the human summary line for an event.
func Message(event domain.ThreatEvent) string {
	switch event.Kind {
	case domain.ThreatDDoS:
		return fmt.Sprintf("High traffic on port %s", event.Ports.Column())
	case domain.ThreatPortScan:
		return "Multiple ports accessed"
	case domain.ThreatSYNFlood:
		return "SYN flood suspected"
	case domain.ThreatSQLInjection:
		return "Repeated SQL patterns detected"
	case domain.ThreatXSS:
		return "Repeated XSS patterns detected"
	case domain.ThreatMaliciousIP:
		return "OSINT-listed IP detected"
	case domain.ThreatMaliciousDomain:
		return "OSINT-listed domain detected"
	default:
		return string(event.Kind) + " detected"
	}
}
