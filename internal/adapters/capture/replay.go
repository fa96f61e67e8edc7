package capture

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
	"github.com/lcalzada-xor/netsentry/internal/core/ports"
	"github.com/lcalzada-xor/netsentry/internal/telemetry"
)

// Replay synthesizes IPv4 traffic for demo runs and tests: steady background
// noise plus a rotating attack burst, so every detector has something to
// find without touching a real interface.
type Replay struct {
	received atomic.Uint64
}

var _ ports.PacketSource = (*Replay)(nil)

// NewReplay builds the synthetic source.
func NewReplay() *Replay { return &Replay{} }

var (
	replaySources = []string{"203.0.113.9", "198.51.100.7", "192.0.2.54", "203.0.113.77"}
	replayTarget  = "192.168.1.10"
	benignPorts   = []int{22, 53, 80, 443}
)

// Run emits traffic until the context is cancelled.
func (r *Replay) Run(ctx context.Context, handle func(domain.PacketInfo)) error {
	slog.Info("replay source started, synthesizing traffic")

	background := time.NewTicker(50 * time.Millisecond)
	defer background.Stop()
	burst := time.NewTicker(8 * time.Second)
	defer burst.Stop()

	attack := 0
	for {
		select {
		case <-ctx.Done():
			slog.Info("replay source stopping")
			return nil
		case <-background.C:
			r.emit(handle, r.benign())
		case <-burst.C:
			switch attack % 4 {
			case 0:
				r.ddosBurst(handle)
			case 1:
				r.portSweep(handle)
			case 2:
				r.synFlood(handle)
			case 3:
				r.webProbes(handle)
			}
			attack++
		}
	}
}

// Stats reports packets emitted; the synthetic source never drops.
func (r *Replay) Stats() (received, dropped uint64) {
	return r.received.Load(), 0
}

func (r *Replay) emit(handle func(domain.PacketInfo), pkt domain.PacketInfo) {
	r.received.Add(1)
	telemetry.PacketsCaptured.WithLabelValues("replay").Inc()
	handle(pkt)
}

func (r *Replay) benign() domain.PacketInfo {
	src := replaySources[rand.Intn(len(replaySources))]
	port := benignPorts[rand.Intn(len(benignPorts))]
	if rand.Float32() < 0.2 {
		return udpInfo(src, replayTarget, port)
	}
	return tcpInfo(src, replayTarget, port, domain.TCPFlagACK)
}

// ddosBurst hammers one port hard enough to cross the default threshold.
func (r *Replay) ddosBurst(handle func(domain.PacketInfo)) {
	src := replaySources[rand.Intn(len(replaySources))]
	slog.Info("replay burst", "attack", "ddos", "source", src)
	for i := 0; i < 350; i++ {
		r.emit(handle, tcpInfo(src, replayTarget, 80, domain.TCPFlagACK))
	}
}

// portSweep probes a run of distinct ports from one source.
func (r *Replay) portSweep(handle func(domain.PacketInfo)) {
	src := replaySources[rand.Intn(len(replaySources))]
	slog.Info("replay burst", "attack", "portscan", "source", src)
	for port := 1000; port < 1030; port++ {
		r.emit(handle, tcpInfo(src, replayTarget, port, domain.TCPFlagSYN))
	}
}

// synFlood sends SYNs with no matching ACKs.
func (r *Replay) synFlood(handle func(domain.PacketInfo)) {
	src := replaySources[rand.Intn(len(replaySources))]
	slog.Info("replay burst", "attack", "synflood", "source", src)
	for i := 0; i < 250; i++ {
		r.emit(handle, tcpInfo(src, replayTarget, 443, domain.TCPFlagSYN))
	}
}

// webProbes replays a short run of SQL injection requests.
func (r *Replay) webProbes(handle func(domain.PacketInfo)) {
	src := replaySources[rand.Intn(len(replaySources))]
	slog.Info("replay burst", "attack", "sqli", "source", src)
	for i := 0; i < 3; i++ {
		payload := fmt.Sprintf(
			"GET /search?q=admin%%27%%20OR%%201=1%%20--&n=%d HTTP/1.1\r\nHost: shop.example\r\n\r\n", i)
		pkt := tcpInfo(src, replayTarget, 80, domain.TCPFlagACK|0x08)
		pkt.Payload = []byte(payload)
		pkt.HTTP = &domain.HTTPRequestInfo{Method: "GET", Path: "/search", Host: "shop.example"}
		r.emit(handle, pkt)
	}
}

func tcpInfo(src, dst string, port int, flags uint8) domain.PacketInfo {
	ttl := 64
	length := 60
	return domain.PacketInfo{
		Timestamp: time.Now(),
		SrcIP:     src,
		DstIP:     dst,
		Protocol:  "TCP",
		DstPort:   &port,
		TCPFlags:  &flags,
		TTL:       &ttl,
		Length:    &length,
	}
}

func udpInfo(src, dst string, port int) domain.PacketInfo {
	ttl := 64
	length := 48
	return domain.PacketInfo{
		Timestamp: time.Now(),
		SrcIP:     src,
		DstIP:     dst,
		Protocol:  "UDP",
		DstPort:   &port,
		TTL:       &ttl,
		Length:    &length,
	}
}
