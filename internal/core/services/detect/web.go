package detect

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
	"github.com/lcalzada-xor/netsentry/internal/core/ports"
)

// Payload pattern sets, compiled once. Each pattern that matches a decoded
// payload appends one hit to the source's window, so a request tripping two
// patterns counts twice.
var (
	sqliPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(%27)|(')|(--)|(%23)|(#)`),
		regexp.MustCompile(`(?i)union\s+select`),
		regexp.MustCompile(`(?i)or\s+1=1`),
		regexp.MustCompile(`(?i)exec(\s|\+)+(s|x)p\w+`),
	}

	xssPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)onerror\s*=`),
		regexp.MustCompile(`(?i)onload\s*=`),
		regexp.MustCompile(`(?i)alert\s*\(`),
	}

	hostHeader = regexp.MustCompile(`(?i)\bHost:\s*([^\r\n]+)`)
)

// decodePayload URL-decodes the payload so encoded probes ("%27%20union")
// match the same patterns as plain ones. PathUnescape keeps '+' literal.
// Undecodable payloads are inspected raw.
func decodePayload(raw []byte) string {
	s := string(raw)
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

func countMatches(patterns []*regexp.Regexp, payload string) int {
	n := 0
	for _, pat := range patterns {
		if pat.MatchString(payload) {
			n++
		}
	}
	return n
}

// extractHost pulls the Host header out of a decoded payload, lowercased and
// trimmed. Empty when absent.
func extractHost(payload string) string {
	m := hostHeader.FindStringSubmatch(payload)
	if m == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(m[1]))
}

// webDetector inspects plaintext HTTP requests for injection patterns and
// OSINT-listed hosts.
type webDetector struct {
	state         *stateTable
	intel         ports.IndicatorLookup
	sqliThreshold int
	xssThreshold  int
}

func (d *webDetector) Name() string { return "web" }

func (d *webDetector) Inspect(pkt domain.PacketInfo, now time.Time) []domain.ThreatEvent {
	if pkt.Protocol != "TCP" || pkt.HTTP == nil || len(pkt.Payload) == 0 {
		return nil
	}
	payload := decodePayload(pkt.Payload)

	var events []domain.ThreatEvent

	if hits := countMatches(sqliPatterns, payload); hits > 0 {
		if count := d.state.recordSQLi(pkt.SrcIP, hits, now); count >= d.sqliThreshold {
			events = append(events, webEvent(pkt, now, domain.ThreatSQLInjection, "SQLi"))
			d.state.clearSQLi(pkt.SrcIP)
		}
	}

	if hits := countMatches(xssPatterns, payload); hits > 0 {
		if count := d.state.recordXSS(pkt.SrcIP, hits, now); count >= d.xssThreshold {
			events = append(events, webEvent(pkt, now, domain.ThreatXSS, "XSS"))
			d.state.clearXSS(pkt.SrcIP)
		}
	}

	if host := extractHost(payload); host != "" && d.intel.ContainsDomain(host) {
		events = append(events, domain.ThreatEvent{
			Timestamp:     now,
			Kind:          domain.ThreatMaliciousDomain,
			SourceIP:      pkt.SrcIP,
			DestinationIP: host,
			Ports:         domain.PortTag("HTTP"),
			Meta:          map[string]any{"domain": host},
		})
	}

	return events
}

func webEvent(pkt domain.PacketInfo, now time.Time, kind domain.ThreatKind, attack string) domain.ThreatEvent {
	return domain.ThreatEvent{
		Timestamp:     now,
		Kind:          kind,
		SourceIP:      pkt.SrcIP,
		DestinationIP: "Web Server",
		Ports:         domain.PortTag("HTTP"),
		Meta:          webMeta(pkt, attack),
	}
}

// webMeta is the packet evidence attached to web-attack threats.
func webMeta(pkt domain.PacketInfo, attack string) map[string]any {
	meta := map[string]any{
		"protocol": pkt.Protocol,
		"src_ip":   pkt.SrcIP,
		"dst_ip":   "Web Server",
		"port":     "HTTP",
		"attack":   attack,
	}
	if pkt.TTL != nil {
		meta["ttl"] = *pkt.TTL
	}
	if pkt.Length != nil {
		meta["len"] = *pkt.Length
	}
	if pkt.TCPFlags != nil {
		meta["tcp_flags"] = int(*pkt.TCPFlags)
	}
	if len(pkt.Payload) > 0 {
		meta["payload_len"] = len(pkt.Payload)
	}
	if pkt.HTTP != nil {
		if pkt.HTTP.Host != "" {
			meta["http_host"] = pkt.HTTP.Host
		}
		if pkt.HTTP.Path != "" {
			meta["http_path"] = pkt.HTTP.Path
		}
		if pkt.HTTP.Method != "" {
			meta["http_method"] = pkt.HTTP.Method
		}
	}
	return meta
}
