package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
	"github.com/lcalzada-xor/netsentry/internal/core/ports"
)

type statsLog struct {
	ports.EventLog

	stats domain.ThreatStats
	err   error
}

func (l *statsLog) ThreatStatsSince(time.Time) (domain.ThreatStats, error) {
	return l.stats, l.err
}

type fakeModel struct {
	system   string
	prompt   string
	deadline bool
	reply    string
	err      error
}

func (m *fakeModel) Generate(ctx context.Context, system, prompt string) (string, error) {
	m.system = system
	m.prompt = prompt
	_, m.deadline = ctx.Deadline()
	return m.reply, m.err
}

func sampleStats() domain.ThreatStats {
	stats := domain.NewThreatStats()
	stats.Total = 42
	stats.ByKind["PortScan"] = 1
	stats.ByKind["DDoS"] = 2
	stats.TopSources = []domain.SourceCount{
		{IP: "203.0.113.9", Count: 17},
		{IP: "198.51.100.7", Count: 3},
	}
	stats.Trend = domain.TrendIncreasing
	stats.AvgSynAckRatio = 0.0498
	return stats
}

func TestReplyRejectsEmptyMessage(t *testing.T) {
	svc := NewService(&statsLog{}, &fakeModel{})

	_, err := svc.Reply(context.Background(), "   \n\t")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestReplyBuildsSnapshotPrompt(t *testing.T) {
	model := &fakeModel{reply: "traffic is trending up"}
	svc := NewService(&statsLog{stats: sampleStats()}, model)

	reply, err := svc.Reply(context.Background(), "what changed today?")
	require.NoError(t, err)
	assert.Equal(t, "traffic is trending up", reply)

	assert.Contains(t, model.system, "network security assistant")

	assert.Contains(t, model.prompt, "Total threats: 42")
	assert.Contains(t, model.prompt, "By kind: DDoS=2, PortScan=1")
	assert.Contains(t, model.prompt, "Top sources: 203.0.113.9 (17), 198.51.100.7 (3)")
	assert.Contains(t, model.prompt, "Traffic trend: increasing")
	assert.Contains(t, model.prompt, "Average SYN/ACK ratio: 0.0498")
	assert.True(t, strings.HasSuffix(model.prompt, "Question: what changed today?"))

	assert.True(t, model.deadline, "model call must carry a deadline")
}

func TestReplyOmitsEmptySections(t *testing.T) {
	model := &fakeModel{reply: "quiet day"}
	svc := NewService(&statsLog{stats: domain.NewThreatStats()}, model)

	_, err := svc.Reply(context.Background(), "anything going on?")
	require.NoError(t, err)

	assert.NotContains(t, model.prompt, "By kind:")
	assert.NotContains(t, model.prompt, "Top sources:")
	assert.Contains(t, model.prompt, "Total threats: 0")
	assert.Contains(t, model.prompt, "Traffic trend: stable")
}

func TestReplyPropagatesModelError(t *testing.T) {
	modelErr := errors.New("upstream unavailable")
	svc := NewService(&statsLog{stats: sampleStats()}, &fakeModel{err: modelErr})

	_, err := svc.Reply(context.Background(), "status?")
	assert.ErrorIs(t, err, modelErr)
}

func TestReplyPropagatesSnapshotError(t *testing.T) {
	logErr := errors.New("db locked")
	svc := NewService(&statsLog{err: logErr}, &fakeModel{})

	_, err := svc.Reply(context.Background(), "status?")
	assert.ErrorIs(t, err, logErr)
}
