package detect

import (
	"sync"
	"testing"
	"time"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
	"github.com/lcalzada-xor/netsentry/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memLog is an in-memory EventLog capturing what the engine persists.
type memLog struct {
	mu      sync.Mutex
	threats []domain.ThreatEvent
	stats   map[string]int64
}

func newMemLog() *memLog {
	return &memLog{stats: make(map[string]int64)}
}

func (m *memLog) AppendThreat(e *domain.ThreatEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.threats) + 1)
	m.threats = append(m.threats, *e)
	return nil
}

func (m *memLog) AppendAlert(*domain.AlertRecord) error { return nil }

func (m *memLog) MaxThreatID() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.threats)), nil
}

func (m *memLog) ThreatByID(int64) (*domain.ThreatEvent, error) { return nil, nil }

func (m *memLog) ThreatsAfter(int64, int) ([]domain.ThreatEvent, error) {
	return nil, nil
}

func (m *memLog) ListThreats(int) ([]domain.ThreatEvent, error) { return nil, nil }

func (m *memLog) ListAlerts(ports.AlertFilter) ([]domain.AlertRecord, error) {
	return nil, nil
}

func (m *memLog) CountThreatsSince(time.Time) (int64, error) { return 0, nil }

func (m *memLog) ThreatStatsSince(time.Time) (domain.ThreatStats, error) {
	return domain.ThreatStats{}, nil
}

func (m *memLog) AlertStats() (domain.AlertStats, error) { return domain.AlertStats{}, nil }

func (m *memLog) GetStat(string) (string, error) { return "", nil }

func (m *memLog) SetStat(string, string) error { return nil }

func (m *memLog) AddToStat(key string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[key] += delta
	return nil
}

func (m *memLog) Close() error { return nil }

func (m *memLog) kinds() []domain.ThreatKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ThreatKind, len(m.threats))
	for i, t := range m.threats {
		out[i] = t.Kind
	}
	return out
}

// fakeIntel is a fixed indicator lookup.
type fakeIntel struct {
	ips     map[string]bool
	domains map[string]bool
}

func (f *fakeIntel) ContainsIP(ip string) bool { return f.ips[ip] }

func (f *fakeIntel) ContainsDomain(host string) bool { return f.domains[host] }

func testThresholds() Thresholds {
	return Thresholds{
		DDoS:        300,
		PortScan:    10,
		SQLi:        3,
		XSS:         3,
		SYNFlood:    200,
		SynAckRatio: 0.1,
		Window:      10 * time.Second,
	}
}

func newTestEngine(th Thresholds, intel ports.IndicatorLookup) (*Engine, *memLog) {
	log := newMemLog()
	if intel == nil {
		intel = &fakeIntel{}
	}
	return NewEngine(th, intel, log, nil), log
}

func udpPacket(src string, port int, ts time.Time) domain.PacketInfo {
	p := port
	return domain.PacketInfo{
		Timestamp: ts,
		SrcIP:     src,
		DstIP:     "10.0.0.1",
		Protocol:  "UDP",
		DstPort:   &p,
	}
}

func tcpPacket(src, dst string, port int, flags uint8, ts time.Time) domain.PacketInfo {
	p := port
	f := flags
	return domain.PacketInfo{
		Timestamp: ts,
		SrcIP:     src,
		DstIP:     dst,
		Protocol:  "TCP",
		DstPort:   &p,
		TCPFlags:  &f,
	}
}

func httpPacket(src, payload string, ts time.Time) domain.PacketInfo {
	pkt := tcpPacket(src, "192.0.2.80", 80, domain.TCPFlagACK|0x08, ts)
	pkt.Payload = []byte(payload)
	pkt.HTTP = &domain.HTTPRequestInfo{Method: "GET", Path: "/", Host: "shop.example"}
	return pkt
}

func TestEngineDDoSBurst(t *testing.T) {
	engine, log := newTestEngine(testThresholds(), nil)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 300; i++ {
		engine.Process(udpPacket("198.51.100.7", 80, base))
	}
	assert.Empty(t, log.threats, "should stay quiet at the threshold")

	engine.Process(udpPacket("198.51.100.7", 80, base))
	require.Len(t, log.threats, 1)

	event := log.threats[0]
	assert.Equal(t, domain.ThreatDDoS, event.Kind)
	assert.Equal(t, "198.51.100.7", event.SourceIP)
	assert.Equal(t, "N/A", event.DestinationIP)
	assert.Equal(t, "80", event.Ports.Column())
	assert.Equal(t, 301, event.Meta["window_count"])

	// The window was cleared on fire, so the next packet starts over.
	engine.Process(udpPacket("198.51.100.7", 80, base))
	assert.Len(t, log.threats, 1)
}

func TestEngineDDoSWindowExpiry(t *testing.T) {
	engine, log := newTestEngine(testThresholds(), nil)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 300; i++ {
		engine.Process(udpPacket("198.51.100.7", 443, base))
	}
	// Eleven seconds later the burst has aged out; this packet counts 1.
	engine.Process(udpPacket("198.51.100.7", 443, base.Add(11*time.Second)))
	assert.Empty(t, log.threats)
}

func TestEnginePortSweep(t *testing.T) {
	th := testThresholds()
	th.PortScan = 20
	engine, log := newTestEngine(th, nil)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for port := 20; port <= 40; port++ {
		engine.Process(tcpPacket("203.0.113.5", "10.0.0.1", port, domain.TCPFlagSYN, base.Add(time.Duration(port-20)*50*time.Millisecond)))
	}

	require.Len(t, log.threats, 1)
	event := log.threats[0]
	assert.Equal(t, domain.ThreatPortScan, event.Kind)
	assert.Equal(t, "N/A", event.DestinationIP)

	unique, ok := event.Meta["unique_ports"].([]int)
	require.True(t, ok)
	assert.Len(t, unique, 21)
	assert.Equal(t, 20, unique[0])
	assert.Equal(t, 40, unique[20])
	assert.Equal(t, 21, event.Meta["total_events"])
	assert.InDelta(t, 1.0, event.Meta["ratio"], 1e-9)
}

func TestEnginePortSweepLowRatio(t *testing.T) {
	th := testThresholds()
	th.PortScan = 5
	engine, log := newTestEngine(th, nil)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Six distinct ports, each hammered three times before the next: the
	// unique count only passes the threshold once the ratio is already low,
	// so heavy fan-out to a few services stays quiet.
	for port := 8080; port < 8086; port++ {
		for round := 0; round < 3; round++ {
			engine.Process(udpPacket("203.0.113.6", port, base))
		}
	}
	assert.Empty(t, log.threats)
}

func TestEngineSYNFlood(t *testing.T) {
	engine, log := newTestEngine(testThresholds(), nil)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Ten completed handshakes first, then the flood. At the 201st SYN the
	// window holds 201 SYNs against 10 ACKs.
	for i := 0; i < 10; i++ {
		engine.Process(tcpPacket("198.51.100.9", "10.0.0.2", 443, domain.TCPFlagACK, base))
	}
	for i := 0; i < 201; i++ {
		engine.Process(tcpPacket("198.51.100.9", "10.0.0.2", 443, domain.TCPFlagSYN, base.Add(time.Duration(i)*10*time.Millisecond)))
	}

	require.Len(t, log.threats, 1)
	event := log.threats[0]
	assert.Equal(t, domain.ThreatSYNFlood, event.Kind)
	assert.Equal(t, "10.0.0.2", event.DestinationIP)
	assert.Equal(t, "443", event.Ports.Column())
	assert.Equal(t, 201, event.Meta["syn_count"])
	assert.Equal(t, 10, event.Meta["ack_count"])
	assert.InDelta(t, 10.0/201.0, event.Meta["ratio"], 1e-4)

	// Both windows were cleared; more ordinary traffic stays quiet.
	engine.Process(tcpPacket("198.51.100.9", "10.0.0.2", 443, domain.TCPFlagSYN, base.Add(3*time.Second)))
	assert.Len(t, log.threats, 1)
}

func TestEngineSYNFloodBalancedTraffic(t *testing.T) {
	engine, log := newTestEngine(testThresholds(), nil)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// SYNs matched by ACKs keep the ratio at 1.0.
	for i := 0; i < 250; i++ {
		engine.Process(tcpPacket("198.51.100.10", "10.0.0.2", 443, domain.TCPFlagSYN|domain.TCPFlagACK, base.Add(time.Duration(i)*time.Millisecond)))
	}
	assert.Empty(t, log.threats)
}

func TestEngineRepeatedSQLi(t *testing.T) {
	engine, log := newTestEngine(testThresholds(), nil)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	payload := "GET /products?id=1%20union%20select%20password%20from%20users HTTP/1.1\r\nHost: shop.example\r\n\r\n"

	engine.Process(httpPacket("192.0.2.5", payload, base))
	engine.Process(httpPacket("192.0.2.5", payload, base.Add(time.Second)))
	assert.Empty(t, log.threats, "two hits stay below the threshold")

	engine.Process(httpPacket("192.0.2.5", payload, base.Add(2*time.Second)))
	require.Len(t, log.threats, 1)

	event := log.threats[0]
	assert.Equal(t, domain.ThreatSQLInjection, event.Kind)
	assert.Equal(t, "Web Server", event.DestinationIP)
	assert.Equal(t, "HTTP", event.Ports.Column())
	assert.Equal(t, "SQLi", event.Meta["attack"])
	assert.Equal(t, "shop.example", event.Meta["http_host"])

	// The hit list was cleared, so the next request counts one again.
	engine.Process(httpPacket("192.0.2.5", payload, base.Add(3*time.Second)))
	assert.Len(t, log.threats, 1)
}

func TestEngineSQLiMultiPatternPayload(t *testing.T) {
	engine, log := newTestEngine(testThresholds(), nil)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Quote, union select and tautology in one request: three patterns,
	// three hits, fires on the first packet.
	payload := "GET /login?user=admin'%20union%20select%201%20or%201=1 HTTP/1.1\r\nHost: shop.example\r\n\r\n"
	engine.Process(httpPacket("192.0.2.6", payload, base))

	require.Len(t, log.threats, 1)
	assert.Equal(t, domain.ThreatSQLInjection, log.threats[0].Kind)
}

func TestEngineRepeatedXSS(t *testing.T) {
	engine, log := newTestEngine(testThresholds(), nil)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Script tag plus alert call: two hits per request, fires on the second.
	payload := "GET /search?q=%3Cscript%3Ealert(1)%3C/script%3E HTTP/1.1\r\nHost: shop.example\r\n\r\n"
	engine.Process(httpPacket("192.0.2.7", payload, base))
	assert.Empty(t, log.threats)

	engine.Process(httpPacket("192.0.2.7", payload, base.Add(time.Second)))
	require.Len(t, log.threats, 1)

	event := log.threats[0]
	assert.Equal(t, domain.ThreatXSS, event.Kind)
	assert.Equal(t, "XSS", event.Meta["attack"])
}

func TestEngineMaliciousDomain(t *testing.T) {
	intel := &fakeIntel{domains: map[string]bool{"evil.example": true}}
	engine, log := newTestEngine(testThresholds(), intel)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	payload := "GET / HTTP/1.1\r\nHost: EVIL.example\r\n\r\n"
	engine.Process(httpPacket("192.0.2.8", payload, base))

	require.Len(t, log.threats, 1)
	event := log.threats[0]
	assert.Equal(t, domain.ThreatMaliciousDomain, event.Kind)
	assert.Equal(t, "evil.example", event.DestinationIP)
	assert.Equal(t, "HTTP", event.Ports.Column())
	assert.Equal(t, "evil.example", event.Meta["domain"])
}

func TestEngineOSINTListedIP(t *testing.T) {
	intel := &fakeIntel{ips: map[string]bool{"203.0.113.66": true}}
	engine, log := newTestEngine(testThresholds(), intel)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	engine.Process(tcpPacket("203.0.113.66", "10.0.0.3", 22, domain.TCPFlagSYN, base))

	require.Len(t, log.threats, 1)
	event := log.threats[0]
	assert.Equal(t, domain.ThreatMaliciousIP, event.Kind)
	assert.Equal(t, "10.0.0.3", event.DestinationIP)
	assert.Equal(t, "22", event.Ports.Column())
	assert.Equal(t, true, event.Meta["osint"])

	// Stateless: the next packet from the same source emits again.
	engine.Process(tcpPacket("203.0.113.66", "10.0.0.3", 22, domain.TCPFlagSYN, base.Add(time.Second)))
	assert.Equal(t, []domain.ThreatKind{domain.ThreatMaliciousIP, domain.ThreatMaliciousIP}, log.kinds())
}

func TestEngineOSINTHitWithoutPort(t *testing.T) {
	intel := &fakeIntel{ips: map[string]bool{"203.0.113.66": true}}
	engine, log := newTestEngine(testThresholds(), intel)

	pkt := domain.PacketInfo{
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		SrcIP:     "203.0.113.66",
		DstIP:     "10.0.0.3",
		Protocol:  "ICMP",
	}
	engine.Process(pkt)

	require.Len(t, log.threats, 1)
	assert.Equal(t, "N/A", log.threats[0].Ports.Column())
}

func TestEnginePacketCounterFlush(t *testing.T) {
	engine, log := newTestEngine(testThresholds(), nil)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 250; i++ {
		engine.Process(udpPacket("198.51.100.20", 9999, base))
	}
	assert.Equal(t, int64(200), log.stats[ports.StatPacketCount])

	engine.FlushPacketCount()
	assert.Equal(t, int64(250), log.stats[ports.StatPacketCount])

	// Nothing pending: a second flush is a no-op.
	engine.FlushPacketCount()
	assert.Equal(t, int64(250), log.stats[ports.StatPacketCount])
}

func TestEngineSinkReceivesEvents(t *testing.T) {
	var got []domain.ThreatEvent
	log := newMemLog()
	intel := &fakeIntel{ips: map[string]bool{"203.0.113.66": true}}
	engine := NewEngine(testThresholds(), intel, log, func(e domain.ThreatEvent) {
		got = append(got, e)
	})

	engine.Process(tcpPacket("203.0.113.66", "10.0.0.3", 443, domain.TCPFlagSYN, time.Now()))

	require.Len(t, got, 1)
	assert.Equal(t, domain.ThreatMaliciousIP, got[0].Kind)
	assert.Equal(t, int64(1), got[0].ID, "sink sees the persisted ID")
}
