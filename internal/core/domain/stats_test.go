package domain

import "testing"

func TestTrendBetween(t *testing.T) {
	cases := []struct {
		name              string
		current, previous float64
		want              string
	}{
		{"both zero", 0, 0, TrendStable},
		{"from zero", 5, 0, TrendIncreasing},
		{"growing", 12, 10, TrendIncreasing},
		{"shrinking", 8, 10, TrendDecreasing},
		{"within band up", 10.5, 10, TrendStable},
		{"within band down", 9.5, 10, TrendStable},
		{"to zero", 0, 10, TrendDecreasing},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TrendBetween(tc.current, tc.previous); got != tc.want {
				t.Errorf("TrendBetween(%v, %v) = %q, want %q", tc.current, tc.previous, got, tc.want)
			}
		})
	}
}

func TestRoundRatio(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0.04975124378, 0.0498},
		{0.75, 0.75},
		{0, 0},
		{1.0 / 3.0, 0.3333},
	}

	for _, tc := range cases {
		if got := RoundRatio(tc.in); got != tc.want {
			t.Errorf("RoundRatio(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewThreatStatsInitialized(t *testing.T) {
	stats := NewThreatStats()
	if stats.ByKind == nil {
		t.Error("ByKind map should be allocated")
	}
	if stats.Trend != TrendStable {
		t.Errorf("Trend = %q, want stable", stats.Trend)
	}
}

func TestNewAlertStatsInitialized(t *testing.T) {
	stats := NewAlertStats()
	if stats.ByType == nil || stats.ByIP == nil {
		t.Error("maps should be allocated")
	}
}

func TestPacketFlagHelpers(t *testing.T) {
	syn := TCPFlagSYN
	synAck := TCPFlagSYN | TCPFlagACK

	pkt := PacketInfo{TCPFlags: &syn}
	if !pkt.IsSYN() || pkt.IsACK() {
		t.Errorf("SYN packet: IsSYN=%v IsACK=%v", pkt.IsSYN(), pkt.IsACK())
	}

	pkt.TCPFlags = &synAck
	if !pkt.IsSYN() || !pkt.IsACK() {
		t.Errorf("SYN+ACK packet: IsSYN=%v IsACK=%v", pkt.IsSYN(), pkt.IsACK())
	}

	bare := PacketInfo{}
	if bare.IsSYN() || bare.IsACK() || bare.HasPort() {
		t.Error("packet without TCP layer should report no flags and no port")
	}
}
