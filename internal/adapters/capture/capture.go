package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
	"github.com/lcalzada-xor/netsentry/internal/core/ports"
	"github.com/lcalzada-xor/netsentry/internal/telemetry"
)

const (
	snapLen = 65536

	// bpfFilter keeps the kernel from handing us anything but IP traffic.
	bpfFilter = "ip"
)

// Live captures packets from a network interface in promiscuous mode and
// hands the decoded form to the detection engine.
type Live struct {
	iface string

	received atomic.Uint64
	dropped  atomic.Uint64
}

var _ ports.PacketSource = (*Live)(nil)

// NewLive builds a source for the given interface. The handle is opened in
// Run, not here, so construction never needs privileges.
func NewLive(iface string) *Live {
	return &Live{iface: iface}
}

// Run opens the interface and pumps decoded packets into handle until the
// context is cancelled or the capture handle fails.
func (l *Live) Run(ctx context.Context, handle func(domain.PacketInfo)) error {
	h, err := pcap.OpenLive(l.iface, snapLen, true, pcap.BlockForever)
	if err != nil {
		return fmt.Errorf("open %s: %w", l.iface, err)
	}
	defer h.Close()

	if err := h.SetBPFFilter(bpfFilter); err != nil {
		return fmt.Errorf("bpf filter %q: %w", bpfFilter, err)
	}

	slog.Info("capture started", "interface", l.iface, "filter", bpfFilter)

	source := gopacket.NewPacketSource(h, h.LinkType())
	packets := source.Packets()

	for {
		select {
		case <-ctx.Done():
			slog.Info("capture stopping", "interface", l.iface)
			return nil
		case packet, ok := <-packets:
			if !ok {
				return fmt.Errorf("capture on %s: packet stream closed", l.iface)
			}
			l.process(packet, handle)
		}
	}
}

// process decodes one frame. The recover shields the capture loop from a
// malformed frame blowing up layer decoding.
func (l *Live) process(packet gopacket.Packet, handle func(domain.PacketInfo)) {
	defer func() {
		if r := recover(); r != nil {
			l.dropped.Add(1)
			telemetry.PacketsDropped.WithLabelValues(l.iface, "panic").Inc()
			slog.Error("packet decode panic", "recover", r)
		}
	}()

	l.received.Add(1)
	telemetry.PacketsCaptured.WithLabelValues(l.iface).Inc()

	info := Decode(packet)
	if info == nil {
		l.dropped.Add(1)
		telemetry.PacketsDropped.WithLabelValues(l.iface, "not_ip").Inc()
		return
	}
	handle(*info)
}

// Stats reports packets delivered and packets dropped by this source.
func (l *Live) Stats() (received, dropped uint64) {
	return l.received.Load(), l.dropped.Load()
}
