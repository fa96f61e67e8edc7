package domain

import "time"

// AlertRecord is a threat that survived throttling: the notified form of a
// ThreatEvent, enriched with a human message and best-effort geolocation.
type AlertRecord struct {
	ID            int64      `json:"id"`
	Timestamp     time.Time  `json:"timestamp"`
	Kind          ThreatKind `json:"alert_type"`
	SourceIP      string     `json:"source_ip"`
	DestinationIP string     `json:"destination_ip"`
	Ports         PortSet    `json:"ports"`
	Message       string     `json:"message"`
	Geolocation   *GeoInfo   `json:"geolocation"`
}
