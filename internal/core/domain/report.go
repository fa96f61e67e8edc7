package domain

import "time"

// ThreatReport aggregates everything the exported PDF renders: a statistics
// snapshot over the last 24 hours plus the most recent events from the log.
type ThreatReport struct {
	GeneratedAt time.Time
	TotalEvents int64
	Stats       ThreatStats
	Recent      []ThreatEvent
}
