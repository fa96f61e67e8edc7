package ports

import (
	"time"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
)

// StatPacketCount is the stats-table key for the lifetime processed-packet
// counter. The detection engine flushes it in batches; the health endpoint
// reads it.
const StatPacketCount = "packet_count"

// AlertFilter narrows ListAlerts. Type wins when both Type and IP are set.
// A zero Limit means the default page size.
type AlertFilter struct {
	Type  string
	IP    string
	Limit int
}

// EventLog is the append-only persistence behind the pipeline: every detected
// threat, every surviving alert, and a small named-counter table.
type EventLog interface {
	// AppendThreat persists an event and fills in its assigned ID. Rows that
	// collide with the uniqueness index are swallowed so replays stay
	// idempotent.
	AppendThreat(event *domain.ThreatEvent) error

	// AppendAlert persists a throttling survivor and fills in its ID.
	AppendAlert(record *domain.AlertRecord) error

	// MaxThreatID returns the highest assigned threat ID, 0 when empty.
	MaxThreatID() (int64, error)

	// ThreatByID loads a single threat; missing IDs are an error.
	ThreatByID(id int64) (*domain.ThreatEvent, error)

	// ThreatsAfter returns up to limit threats with ID greater than id,
	// ordered by ID ascending.
	ThreatsAfter(id int64, limit int) ([]domain.ThreatEvent, error)

	// ListThreats returns the full threat view ordered by ID ascending.
	// A limit of 0 means no cap.
	ListThreats(limit int) ([]domain.ThreatEvent, error)

	// ListAlerts returns alert history, newest first.
	ListAlerts(filter AlertFilter) ([]domain.AlertRecord, error)

	// CountThreatsSince counts threats at or after the given instant.
	CountThreatsSince(since time.Time) (int64, error)

	// ThreatStatsSince aggregates the window starting at since: totals by
	// kind, top sources, hourly trend and average SYN/ACK ratio.
	ThreatStatsSince(since time.Time) (domain.ThreatStats, error)

	// AlertStats summarizes the alert history.
	AlertStats() (domain.AlertStats, error)

	// GetStat reads a named counter; missing keys are an error.
	GetStat(key string) (string, error)

	// SetStat upserts a named counter.
	SetStat(key, value string) error

	// AddToStat adds delta to a numeric counter, creating it at delta.
	AddToStat(key string, delta int64) error

	// Close releases the underlying database handle.
	Close() error
}
