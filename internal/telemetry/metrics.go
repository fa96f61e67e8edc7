package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PacketsCaptured counts total packets delivered by the capture source
	PacketsCaptured = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netsentry",
			Name:      "packets_captured_total",
			Help:      "Total number of packets delivered by the capture source",
		},
		[]string{"interface"},
	)

	// PacketsDropped counts packets dropped before reaching the engine
	PacketsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netsentry",
			Name:      "packets_dropped_total",
			Help:      "Total number of packets dropped",
		},
		[]string{"interface", "reason"},
	)

	// ThreatsDetected counts threat events emitted by the detection engine
	ThreatsDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netsentry",
			Name:      "threats_detected_total",
			Help:      "Total number of threat events emitted, by kind",
		},
		[]string{"kind"},
	)

	// AlertsEmitted counts alerts that survived throttling
	AlertsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netsentry",
			Name:      "alerts_emitted_total",
			Help:      "Total number of alerts persisted after throttling",
		},
		[]string{"kind"},
	)

	// AlertsThrottled counts threats suppressed by the throttle table
	AlertsThrottled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netsentry",
			Name:      "alerts_throttled_total",
			Help:      "Total number of threats suppressed by alert throttling",
		},
		[]string{"kind"},
	)

	// PipelineDropped counts threats dropped because the pipeline buffer was full
	PipelineDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "netsentry",
			Name:      "pipeline_dropped_total",
			Help:      "Total number of threats dropped on alert pipeline overflow",
		},
	)

	// StreamSubscribers tracks currently connected tail-stream subscribers
	StreamSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "netsentry",
			Name:      "stream_subscribers",
			Help:      "Number of connected threat stream subscribers",
		},
	)

	// IndicatorCount tracks the size of the loaded OSINT sets
	IndicatorCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "netsentry",
			Name:      "osint_indicators",
			Help:      "Number of loaded OSINT indicators, by kind",
		},
		[]string{"kind"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry
// This function is idempotent and can be called multiple times safely
func InitMetrics() {
	once.Do(func() {
		// Register metrics, ignoring errors if already registered
		// This prevents panics when metrics are already in the registry
		prometheus.DefaultRegisterer.Register(PacketsCaptured)
		prometheus.DefaultRegisterer.Register(PacketsDropped)
		prometheus.DefaultRegisterer.Register(ThreatsDetected)
		prometheus.DefaultRegisterer.Register(AlertsEmitted)
		prometheus.DefaultRegisterer.Register(AlertsThrottled)
		prometheus.DefaultRegisterer.Register(PipelineDropped)
		prometheus.DefaultRegisterer.Register(StreamSubscribers)
		prometheus.DefaultRegisterer.Register(IndicatorCount)
	})
}
