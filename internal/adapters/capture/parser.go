package capture

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
)

// httpMethods are the request-line prefixes the payload sniffer recognizes.
var httpMethods = [][]byte{
	[]byte("GET "),
	[]byte("POST "),
	[]byte("PUT "),
	[]byte("DELETE "),
	[]byte("HEAD "),
	[]byte("OPTIONS "),
	[]byte("PATCH "),
}

// Decode flattens one captured frame into the engine's packet shape.
// Frames without an IPv4 layer return nil.
func Decode(packet gopacket.Packet) *domain.PacketInfo {
	ipLayer := packet.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return nil
	}
	ip, ok := ipLayer.(*layers.IPv4)
	if !ok {
		return nil
	}

	ttl := int(ip.TTL)
	length := int(ip.Length)
	info := &domain.PacketInfo{
		Timestamp: packet.Metadata().Timestamp,
		SrcIP:     ip.SrcIP.String(),
		DstIP:     ip.DstIP.String(),
		Protocol:  ip.Protocol.String(),
		TTL:       &ttl,
		Length:    &length,
	}

	if tcpLayer := packet.Layer(layers.LayerTypeTCP); tcpLayer != nil {
		tcp := tcpLayer.(*layers.TCP)
		info.Protocol = "TCP"
		port := int(tcp.DstPort)
		info.DstPort = &port
		flags := tcpFlagsByte(tcp)
		info.TCPFlags = &flags
	} else if udpLayer := packet.Layer(layers.LayerTypeUDP); udpLayer != nil {
		udp := udpLayer.(*layers.UDP)
		info.Protocol = "UDP"
		port := int(udp.DstPort)
		info.DstPort = &port
	}

	if app := packet.ApplicationLayer(); app != nil && len(app.Payload()) > 0 {
		info.Payload = app.Payload()
		info.HTTP = sniffHTTP(info.Payload)
	}
	return info
}

// tcpFlagsByte packs the decoded flag booleans back into the wire byte.
func tcpFlagsByte(tcp *layers.TCP) uint8 {
	var flags uint8
	if tcp.FIN {
		flags |= 0x01
	}
	if tcp.SYN {
		flags |= domain.TCPFlagSYN
	}
	if tcp.RST {
		flags |= 0x04
	}
	if tcp.PSH {
		flags |= 0x08
	}
	if tcp.ACK {
		flags |= domain.TCPFlagACK
	}
	if tcp.URG {
		flags |= 0x20
	}
	return flags
}

// sniffHTTP recognizes a plaintext HTTP request at the start of a payload:
// a known method, then " HTTP/" on the request line. Anything else is not
// treated as HTTP.
func sniffHTTP(payload []byte) *domain.HTTPRequestInfo {
	known := false
	for _, method := range httpMethods {
		if bytes.HasPrefix(payload, method) {
			known = true
			break
		}
	}
	if !known {
		return nil
	}

	line := payload
	if end := bytes.IndexByte(payload, '\n'); end >= 0 {
		line = payload[:end]
	}
	line = bytes.TrimRight(line, "\r")
	if !bytes.Contains(line, []byte(" HTTP/")) {
		return nil
	}
	fields := bytes.Fields(line)
	if len(fields) < 3 {
		return nil
	}

	info := &domain.HTTPRequestInfo{
		Method: string(fields[0]),
		Path:   string(fields[1]),
	}

	scanner := bufio.NewScanner(bytes.NewReader(payload))
	scanner.Scan() // request line
	for scanner.Scan() {
		header := strings.TrimRight(scanner.Text(), "\r")
		if header == "" {
			break
		}
		if name, value, ok := strings.Cut(header, ":"); ok && strings.EqualFold(name, "Host") {
			info.Host = strings.TrimSpace(value)
			break
		}
	}
	return info
}
