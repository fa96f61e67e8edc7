package domain

import "math"

// Traffic trend labels produced by ThreatStats.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// SourceCount pairs a source IP with how many threats it produced.
type SourceCount struct {
	IP    string `json:"ip"`
	Count int64  `json:"count"`
}

// ThreatStats is an aggregated 24-hour snapshot of the event log, consumed by
// the chat assistant and the export report.
type ThreatStats struct {
	Total          int64            `json:"total"`
	ByKind         map[string]int64 `json:"by_kind"`
	TopSources     []SourceCount    `json:"top_sources"`
	Trend          string           `json:"trend"`
	AvgSynAckRatio float64          `json:"avg_syn_ack_ratio"`
}

// NewThreatStats initializes the snapshot with empty containers.
func NewThreatStats() ThreatStats {
	return ThreatStats{
		ByKind: make(map[string]int64),
		Trend:  TrendStable,
	}
}

// TrendBetween classifies the movement from previous to current average
// hourly counts. Changes within a ten percent band count as stable.
func TrendBetween(current, previous float64) string {
	if previous == 0 {
		if current > 0 {
			return TrendIncreasing
		}
		return TrendStable
	}
	delta := (current - previous) / previous
	switch {
	case delta > 0.10:
		return TrendIncreasing
	case delta < -0.10:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// AlertStats summarizes the alert history for the dashboard.
type AlertStats struct {
	Total     int64            `json:"total"`
	ByType    map[string]int64 `json:"by_type"`
	ByIP      map[string]int64 `json:"by_ip"`
	Recent24h int64            `json:"recent_24h"`
}

// NewAlertStats initializes the summary with empty maps to prevent nil access.
func NewAlertStats() AlertStats {
	return AlertStats{
		ByType: make(map[string]int64),
		ByIP:   make(map[string]int64),
	}
}

// RoundRatio trims a SYN/ACK ratio to four decimals for stable presentation.
func RoundRatio(r float64) float64 {
	return math.Round(r*10000) / 10000
}
