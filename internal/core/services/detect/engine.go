package detect

import (
	"log/slog"
	"sync"
	"time"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
	"github.com/lcalzada-xor/netsentry/internal/core/ports"
	"github.com/lcalzada-xor/netsentry/internal/telemetry"
)

// flushEvery is how many packets accumulate before the durable packet
// counter advances.
const flushEvery = 100

// sweepInterval is how often idle source state is evicted.
const sweepInterval = time.Minute

// Thresholds carries the detector tuning, one field per knob in the
// detection section of the config file.
type Thresholds struct {
	DDoS        int
	PortScan    int
	SQLi        int
	XSS         int
	SYNFlood    int
	SynAckRatio float64
	Window      time.Duration
}

// Sink receives every emitted threat event after persistence.
type Sink func(domain.ThreatEvent)

// Engine fans each decoded packet through the registered detectors, persists
// what they emit and forwards it to the sink.
type Engine struct {
	detectors []Detector
	log       ports.EventLog
	sink      Sink
	state     *stateTable

	mu        sync.Mutex
	packets   int64
	lastSweep time.Time
}

// NewEngine builds the detector registry. Evaluation order is fixed: the
// blocklist check runs first, the handshake detector last, so one packet can
// emit from several detectors in a stable order.
func NewEngine(th Thresholds, intel ports.IndicatorLookup, log ports.EventLog, sink Sink) *Engine {
	state := newStateTable()

	return &Engine{
		detectors: []Detector{
			&osintIPDetector{intel: intel},
			&ddosDetector{state: state, threshold: th.DDoS, window: th.Window},
			&portScanDetector{state: state, threshold: th.PortScan, window: th.Window},
			&webDetector{state: state, intel: intel, sqliThreshold: th.SQLi, xssThreshold: th.XSS},
			&synFloodDetector{state: state, threshold: th.SYNFlood, ratioLimit: th.SynAckRatio, window: th.Window},
		},
		log:       log,
		sink:      sink,
		state:     state,
		lastSweep: time.Now(),
	}
}

// Process runs one decoded packet through every detector. A panic inside a
// detector is recovered and the packet dropped, so malformed traffic cannot
// stop the capture loop.
func (e *Engine) Process(pkt domain.PacketInfo) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("detector panic, packet dropped", "panic", r, "src", pkt.SrcIP)
		}
	}()

	now := pkt.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	for _, det := range e.detectors {
		for _, event := range det.Inspect(pkt, now) {
			e.emit(event)
		}
	}

	e.tick(now)
}

// emit persists the event and hands it to the sink. A persistence failure is
// logged, never fatal: the alert path still sees the event.
func (e *Engine) emit(event domain.ThreatEvent) {
	telemetry.ThreatsDetected.WithLabelValues(string(event.Kind)).Inc()

	if err := e.log.AppendThreat(&event); err != nil {
		slog.Error("append threat", "kind", event.Kind, "src", event.SourceIP, "error", err)
	}
	if e.sink != nil {
		e.sink(event)
	}
}

// tick advances the packet counter, flushing every flushEvery packets, and
// sweeps idle source state on a coarse interval.
func (e *Engine) tick(now time.Time) {
	e.mu.Lock()
	e.packets++
	var flush int64
	if e.packets >= flushEvery {
		flush = e.packets
		e.packets = 0
	}
	var doSweep bool
	if now.Sub(e.lastSweep) >= sweepInterval {
		e.lastSweep = now
		doSweep = true
	}
	e.mu.Unlock()

	if flush > 0 {
		if err := e.log.AddToStat(ports.StatPacketCount, flush); err != nil {
			slog.Error("flush packet count", "error", err)
		}
	}
	if doSweep {
		e.state.sweep(now)
	}
}

// FlushPacketCount pushes the unflushed packet tally into the durable stat.
// Called once on shutdown.
func (e *Engine) FlushPacketCount() {
	e.mu.Lock()
	flush := e.packets
	e.packets = 0
	e.mu.Unlock()

	if flush == 0 {
		return
	}
	if err := e.log.AddToStat(ports.StatPacketCount, flush); err != nil {
		slog.Error("flush packet count", "error", err)
	}
}
