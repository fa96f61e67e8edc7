package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
	"github.com/lcalzada-xor/netsentry/internal/core/ports"
)

const (
	// replyTimeout bounds one model round trip.
	replyTimeout = 60 * time.Second

	// statsWindow is how far back the prompt snapshot reaches.
	statsWindow = 24 * time.Hour
)

const systemPreamble = "You are a network security assistant embedded in a " +
	"live intrusion detection dashboard. Answer questions using the threat " +
	"snapshot provided with each message. Be concise and factual; when the " +
	"snapshot does not contain the answer, say so instead of guessing."

// ErrEmptyMessage rejects blank chat input before it reaches the model.
var ErrEmptyMessage = errors.New("chat: empty message")

// Service answers operator questions by pairing each message with a summary
// of the last day of the event log.
type Service struct {
	log   ports.EventLog
	model ports.ChatModel
}

// NewService wires the event log and the language model together.
func NewService(log ports.EventLog, model ports.ChatModel) *Service {
	return &Service{log: log, model: model}
}

// Reply builds the snapshot prompt for message and forwards it to the model.
func (s *Service) Reply(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	stats, err := s.log.ThreatStatsSince(time.Now().Add(-statsWindow))
	if err != nil {
		return "", fmt.Errorf("chat snapshot: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	reply, err := s.model.Generate(ctx, systemPreamble, buildPrompt(stats, message))
	if err != nil {
		return "", fmt.Errorf("chat model: %w", err)
	}
	return reply, nil
}

// buildPrompt renders the snapshot block followed by the operator's question.
// Kind counts are sorted so the prompt is stable for identical snapshots.
func buildPrompt(stats domain.ThreatStats, message string) string {
	var b strings.Builder
	b.WriteString("Threat snapshot, last 24 hours:\n")
	fmt.Fprintf(&b, "- Total threats: %d\n", stats.Total)

	if len(stats.ByKind) > 0 {
		kinds := make([]string, 0, len(stats.ByKind))
		for kind := range stats.ByKind {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		pairs := make([]string, 0, len(kinds))
		for _, kind := range kinds {
			pairs = append(pairs, fmt.Sprintf("%s=%d", kind, stats.ByKind[kind]))
		}
		fmt.Fprintf(&b, "- By kind: %s\n", strings.Join(pairs, ", "))
	}

	if len(stats.TopSources) > 0 {
		entries := make([]string, 0, len(stats.TopSources))
		for _, src := range stats.TopSources {
			entries = append(entries, fmt.Sprintf("%s (%d)", src.IP, src.Count))
		}
		fmt.Fprintf(&b, "- Top sources: %s\n", strings.Join(entries, ", "))
	}

	fmt.Fprintf(&b, "- Traffic trend: %s\n", stats.Trend)
	fmt.Fprintf(&b, "- Average SYN/ACK ratio: %.4f\n", stats.AvgSynAckRatio)

	b.WriteString("\nQuestion: ")
	b.WriteString(message)
	return b.String()
}
