package domain

import "time"

// TCP flag bits the SYN-flood detector cares about.
const (
	TCPFlagSYN uint8 = 0x02
	TCPFlagACK uint8 = 0x10
)

// PacketInfo is the decoded form of one captured IP packet, the only shape
// the detection engine ever sees. Optional layers are pointers so the engine
// can tell "absent" from zero.
type PacketInfo struct {
	Timestamp time.Time
	SrcIP     string
	DstIP     string

	// Protocol is the transport name: "TCP", "UDP" or the raw IP protocol
	// name for anything else.
	Protocol string

	DstPort  *int
	TCPFlags *uint8
	TTL      *int
	Length   *int

	// Payload is the application-layer bytes, if any. It is inspected, never
	// stored.
	Payload []byte

	// HTTP is set when the payload looks like a plaintext HTTP request.
	HTTP *HTTPRequestInfo
}

// HTTPRequestInfo is the minimal request outline sniffed from a payload.
type HTTPRequestInfo struct {
	Method string
	Path   string
	Host   string
}

// HasPort reports whether the packet carries a destination port.
func (p *PacketInfo) HasPort() bool { return p.DstPort != nil }

// IsSYN reports whether the SYN bit is set on a TCP packet.
func (p *PacketInfo) IsSYN() bool {
	return p.TCPFlags != nil && *p.TCPFlags&TCPFlagSYN != 0
}

// IsACK reports whether the ACK bit is set on a TCP packet.
func (p *PacketInfo) IsACK() bool {
	return p.TCPFlags != nil && *p.TCPFlags&TCPFlagACK != 0
}
