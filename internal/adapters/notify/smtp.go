package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
	"github.com/lcalzada-xor/netsentry/internal/core/ports"
)

// dialTimeout bounds the TCP connect when the caller's context carries no
// deadline of its own.
const dialTimeout = 10 * time.Second

// Mailer delivers alert emails over SMTP with STARTTLS and PLAIN auth, one
// message per alert.
type Mailer struct {
	host       string
	port       int
	sender     string
	password   string
	recipients []string
}

var _ ports.AlertNotifier = (*Mailer)(nil)

// NewMailer builds a mailer for the given server and credentials. Missing
// credentials are allowed; Configured reports them.
func NewMailer(host string, port int, sender, password string, recipients []string) *Mailer {
	return &Mailer{
		host:       host,
		port:       port,
		sender:     sender,
		password:   password,
		recipients: recipients,
	}
}

// Configured reports whether sender, password and at least one recipient are
// all present.
func (m *Mailer) Configured() bool {
	return m.sender != "" && m.password != "" && len(m.recipients) > 0
}

// Notify sends one alert email. The context deadline, when set, bounds the
// whole exchange.
func (m *Mailer) Notify(ctx context.Context, alert domain.AlertRecord) error {
	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))

	conn, err := (&net.Dialer{Timeout: dialTimeout}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if err := client.Auth(smtp.PlainAuth("", m.sender, m.password, m.host)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(m.sender); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range m.recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(buildMessage(m.sender, m.recipients, alert)); err != nil {
		w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp finish: %w", err)
	}
	return client.Quit()
}

// buildMessage renders the full RFC 5322 message with CRLF line endings.
func buildMessage(sender string, recipients []string, alert domain.AlertRecord) []byte {
	dest := alert.DestinationIP
	if dest == "" {
		dest = "N/A"
	}
	portText := alert.Ports.Column()
	if portText == "" {
		portText = "N/A"
	}

	lines := []string{
		"From: " + sender,
		"To: " + strings.Join(recipients, ", "),
		"Subject: Security Alert: " + string(alert.Kind),
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
		"",
		"Threat Detected: " + string(alert.Kind),
		"Source IP: " + alert.SourceIP,
		"Destination IP: " + dest,
		"Ports: " + portText,
		"Details: " + alert.Message,
		"Time: " + alert.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"),
	}

	if geo := alert.Geolocation; geo != nil {
		city, country := geo.City, geo.Country
		if city == "" {
			city = "Unknown"
		}
		if country == "" {
			country = "Unknown"
		}
		lines = append(lines, fmt.Sprintf("Location: %s, %s", city, country))
		if geo.ISP != "" {
			lines = append(lines, "ISP: "+geo.ISP)
		}
	}

	return []byte(strings.Join(lines, "\r\n") + "\r\n")
}
