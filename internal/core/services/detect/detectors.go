package detect

import (
	"time"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
	"github.com/lcalzada-xor/netsentry/internal/core/ports"
)

// scanRatioFloor is the minimum unique/total ratio for port-scan traffic.
// Below it the port spread looks like ordinary fan-out, not a sweep.
const scanRatioFloor = 0.7

// Detector is one pluggable detection module. Inspect sees every decoded
// packet and returns the threats it finds; shared state lives behind the
// state table.
type Detector interface {
	Name() string
	Inspect(pkt domain.PacketInfo, now time.Time) []domain.ThreatEvent
}

// osintIPDetector flags traffic whose source address is on a loaded
// blocklist. Stateless: every packet from a listed source emits.
type osintIPDetector struct {
	intel ports.IndicatorLookup
}

func (d *osintIPDetector) Name() string { return "osint-ip" }

func (d *osintIPDetector) Inspect(pkt domain.PacketInfo, now time.Time) []domain.ThreatEvent {
	if !d.intel.ContainsIP(pkt.SrcIP) {
		return nil
	}

	portSet := domain.PortTag("N/A")
	if pkt.DstPort != nil {
		portSet = domain.SinglePort(*pkt.DstPort)
	}
	return []domain.ThreatEvent{{
		Timestamp:     now,
		Kind:          domain.ThreatMaliciousIP,
		SourceIP:      pkt.SrcIP,
		DestinationIP: pkt.DstIP,
		Ports:         portSet,
		Meta:          map[string]any{"osint": true},
	}}
}

// ddosDetector counts requests per (source, destination port) in a sliding
// window and fires when the count exceeds the threshold.
type ddosDetector struct {
	state     *stateTable
	threshold int
	window    time.Duration
}

func (d *ddosDetector) Name() string { return "ddos" }

func (d *ddosDetector) Inspect(pkt domain.PacketInfo, now time.Time) []domain.ThreatEvent {
	if pkt.DstPort == nil {
		return nil
	}
	port := *pkt.DstPort

	count := d.state.recordRequest(pkt.SrcIP, port, now, d.window)
	if count <= d.threshold {
		return nil
	}
	d.state.clearRequests(pkt.SrcIP, port)

	return []domain.ThreatEvent{{
		Timestamp:     now,
		Kind:          domain.ThreatDDoS,
		SourceIP:      pkt.SrcIP,
		DestinationIP: "N/A",
		Ports:         domain.SinglePort(port),
		Meta:          map[string]any{"window_count": count},
	}}
}

// portScanDetector watches the spread of destination ports per source. It
// fires when both the distinct-port count and the total exceed the threshold
// and most accesses hit distinct ports.
type portScanDetector struct {
	state     *stateTable
	threshold int
	window    time.Duration
}

func (d *portScanDetector) Name() string { return "portscan" }

func (d *portScanDetector) Inspect(pkt domain.PacketInfo, now time.Time) []domain.ThreatEvent {
	if pkt.DstPort == nil {
		return nil
	}

	unique, total := d.state.recordPort(pkt.SrcIP, *pkt.DstPort, now, d.window)
	ratio := 0.0
	if total > 0 {
		ratio = float64(len(unique)) / float64(total)
	}
	if len(unique) <= d.threshold || total <= d.threshold || ratio <= scanRatioFloor {
		return nil
	}
	d.state.clearPorts(pkt.SrcIP)

	return []domain.ThreatEvent{{
		Timestamp:     now,
		Kind:          domain.ThreatPortScan,
		SourceIP:      pkt.SrcIP,
		DestinationIP: "N/A",
		Ports:         domain.PortList(unique),
		Meta: map[string]any{
			"unique_ports": unique,
			"total_events": total,
			"ratio":        ratio,
		},
	}}
}

// synFloodDetector compares SYN and ACK volume per source. Many SYNs with
// few ACKs inside the window means handshakes are started but never
// completed.
type synFloodDetector struct {
	state      *stateTable
	threshold  int
	ratioLimit float64
	window     time.Duration
}

func (d *synFloodDetector) Name() string { return "synflood" }

func (d *synFloodDetector) Inspect(pkt domain.PacketInfo, now time.Time) []domain.ThreatEvent {
	if pkt.Protocol != "TCP" {
		return nil
	}

	syn, ack := d.state.recordSYNACK(pkt.SrcIP, pkt.IsSYN(), pkt.IsACK(), now, d.window)
	ratio := 1.0
	if syn > 0 {
		ratio = float64(ack) / float64(syn)
	}
	if syn <= d.threshold || ratio >= d.ratioLimit {
		return nil
	}
	d.state.clearSYNACK(pkt.SrcIP)

	portSet := domain.PortTag("N/A")
	if pkt.DstPort != nil {
		portSet = domain.SinglePort(*pkt.DstPort)
	}
	return []domain.ThreatEvent{{
		Timestamp:     now,
		Kind:          domain.ThreatSYNFlood,
		SourceIP:      pkt.SrcIP,
		DestinationIP: pkt.DstIP,
		Ports:         portSet,
		Meta: map[string]any{
			"syn_count": syn,
			"ack_count": ack,
			"ratio":     ratio,
		},
	}}
}
