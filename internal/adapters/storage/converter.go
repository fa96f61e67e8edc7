package storage

import (
	"encoding/json"
	"time"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
)

// toThreatModel converts a domain event to its database row.
func toThreatModel(e domain.ThreatEvent) ThreatModel {
	model := ThreatModel{
		ID:            e.ID,
		Timestamp:     e.Timestamp.Format(domain.ThreatTimestampLayout),
		ThreatType:    string(e.Kind),
		SourceIP:      e.SourceIP,
		DestinationIP: e.DestinationIP,
		Ports:         e.Ports.Column(),
	}
	if e.Meta != nil {
		if raw, err := json.Marshal(e.Meta); err == nil {
			meta := string(raw)
			model.Meta = &meta
		}
	}
	return model
}

// threatToDomain converts a database row back to a domain event.
func threatToDomain(m ThreatModel) domain.ThreatEvent {
	event := domain.ThreatEvent{
		ID:            m.ID,
		Kind:          domain.ThreatKind(m.ThreatType),
		SourceIP:      m.SourceIP,
		DestinationIP: m.DestinationIP,
		Ports:         domain.ParsePorts(m.Ports),
	}
	if ts, err := time.ParseInLocation(domain.ThreatTimestampLayout, m.Timestamp, time.Local); err == nil {
		event.Timestamp = ts
	}
	if m.Meta != nil {
		var meta map[string]any
		if err := json.Unmarshal([]byte(*m.Meta), &meta); err == nil {
			event.Meta = meta
		}
	}
	return event
}

// toAlertModel converts an alert record to its database row.
func toAlertModel(a domain.AlertRecord) AlertModel {
	model := AlertModel{
		ID:            a.ID,
		Timestamp:     a.Timestamp.UTC().Format(time.RFC3339),
		AlertType:     string(a.Kind),
		SourceIP:      a.SourceIP,
		DestinationIP: a.DestinationIP,
		Ports:         a.Ports.Column(),
		Message:       a.Message,
	}
	if a.Geolocation != nil {
		if raw, err := json.Marshal(a.Geolocation); err == nil {
			geo := string(raw)
			model.Geolocation = &geo
		}
	}
	return model
}

// alertToDomain converts a database row back to an alert record.
func alertToDomain(m AlertModel) domain.AlertRecord {
	record := domain.AlertRecord{
		ID:            m.ID,
		Kind:          domain.ThreatKind(m.AlertType),
		SourceIP:      m.SourceIP,
		DestinationIP: m.DestinationIP,
		Ports:         domain.ParsePorts(m.Ports),
		Message:       m.Message,
	}
	if ts, err := time.Parse(time.RFC3339, m.Timestamp); err == nil {
		record.Timestamp = ts
	}
	if m.Geolocation != nil {
		var geo domain.GeoInfo
		if err := json.Unmarshal([]byte(*m.Geolocation), &geo); err == nil {
			record.Geolocation = &geo
		}
	}
	return record
}
