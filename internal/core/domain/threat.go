package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ThreatTimestampLayout is the second-precision layout threat timestamps are
// stored and served with.
const ThreatTimestampLayout = "2006-01-02 15:04:05"

// ThreatKind identifies the detector that produced a threat event.
type ThreatKind string

const (
	// ThreatDDoS flags high request volume against a single destination port.
	ThreatDDoS ThreatKind = "DDoS"
	// ThreatPortScan flags one source probing many distinct ports.
	ThreatPortScan ThreatKind = "PortScan"
	// ThreatSYNFlood flags an excess of SYNs over ACKs from one source.
	ThreatSYNFlood ThreatKind = "SYNFlood"
	// ThreatSQLInjection flags repeated SQL injection patterns in HTTP payloads.
	ThreatSQLInjection ThreatKind = "SQLInjection"
	// ThreatXSS flags repeated cross-site scripting patterns in HTTP payloads.
	ThreatXSS ThreatKind = "XSS"
	// ThreatMaliciousIP flags traffic from an OSINT-listed source address.
	ThreatMaliciousIP ThreatKind = "MaliciousIP"
	// ThreatMaliciousDomain flags HTTP requests for an OSINT-listed host.
	ThreatMaliciousDomain ThreatKind = "MaliciousDomain"
)

// ThreatEvent is the canonical record emitted by the detection engine and
// appended to the event log. IDs are assigned at persist time and increase
// monotonically.
type ThreatEvent struct {
	ID            int64
	Timestamp     time.Time
	Kind          ThreatKind
	SourceIP      string
	DestinationIP string
	Ports         PortSet
	// Meta carries detector evidence. Nil for rows migrated from legacy CSV.
	Meta map[string]any
}

// MarshalJSON serves the wire shape the dashboard consumes.
func (t ThreatEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID            int64          `json:"id"`
		Timestamp     string         `json:"timestamp"`
		Kind          ThreatKind     `json:"threatType"`
		SourceIP      string         `json:"sourceIP"`
		DestinationIP string         `json:"destinationIP"`
		Ports         PortSet        `json:"ports"`
		Meta          map[string]any `json:"meta"`
	}{
		ID:            t.ID,
		Timestamp:     t.Timestamp.Format(ThreatTimestampLayout),
		Kind:          t.Kind,
		SourceIP:      t.SourceIP,
		DestinationIP: t.DestinationIP,
		Ports:         t.Ports,
		Meta:          t.Meta,
	})
}

// PortSet is the ports field of a threat event: a single port, a list of
// ports, or a textual tag such as "HTTP". It round-trips through a single
// TEXT column (single port as its decimal form, list as a JSON array, tag
// verbatim) and marshals to JSON as number, array or string respectively.
type PortSet struct {
	port  *int
	ports []int
	tag   string
}

// SinglePort builds a PortSet holding one port.
func SinglePort(p int) PortSet {
	return PortSet{port: &p}
}

// PortList builds a PortSet holding an ordered list of ports.
func PortList(ps []int) PortSet {
	return PortSet{ports: ps}
}

// PortTag builds a PortSet holding a textual tag such as "HTTP" or "N/A".
func PortTag(tag string) PortSet {
	return PortSet{tag: tag}
}

// ParsePorts reconstructs a PortSet from its stored column text.
func ParsePorts(text string) PortSet {
	if p, err := strconv.Atoi(text); err == nil {
		return SinglePort(p)
	}
	var list []int
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		return PortList(list)
	}
	return PortTag(text)
}

// Column renders the set for storage in a TEXT column.
func (ps PortSet) Column() string {
	switch {
	case ps.port != nil:
		return strconv.Itoa(*ps.port)
	case ps.ports != nil:
		raw, err := json.Marshal(ps.ports)
		if err != nil {
			return "[]"
		}
		return string(raw)
	default:
		return ps.tag
	}
}

// String implements fmt.Stringer with the column rendering.
func (ps PortSet) String() string { return ps.Column() }

// MarshalJSON emits a number for a single port, an array for a list and a
// string for a tag.
func (ps PortSet) MarshalJSON() ([]byte, error) {
	switch {
	case ps.port != nil:
		return json.Marshal(*ps.port)
	case ps.ports != nil:
		return json.Marshal(ps.ports)
	default:
		return json.Marshal(ps.tag)
	}
}

// UnmarshalJSON accepts the three wire forms emitted by MarshalJSON.
func (ps *PortSet) UnmarshalJSON(data []byte) error {
	var single int
	if err := json.Unmarshal(data, &single); err == nil {
		*ps = SinglePort(single)
		return nil
	}
	var list []int
	if err := json.Unmarshal(data, &list); err == nil {
		*ps = PortList(list)
		return nil
	}
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		*ps = PortTag(tag)
		return nil
	}
	return fmt.Errorf("ports: unsupported JSON form %q", string(data))
}
