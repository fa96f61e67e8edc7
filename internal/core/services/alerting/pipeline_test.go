package alerting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
	"github.com/lcalzada-xor/netsentry/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memAlertLog struct {
	mu        sync.Mutex
	alerts    []domain.AlertRecord
	appendErr error
}

func (m *memAlertLog) AppendAlert(r *domain.AlertRecord) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = int64(len(m.alerts) + 1)
	m.alerts = append(m.alerts, *r)
	return nil
}

func (m *memAlertLog) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alerts)
}

func (m *memAlertLog) AppendThreat(*domain.ThreatEvent) error { return nil }

func (m *memAlertLog) MaxThreatID() (int64, error) { return 0, nil }

func (m *memAlertLog) ThreatByID(int64) (*domain.ThreatEvent, error) { return nil, nil }

func (m *memAlertLog) ThreatsAfter(int64, int) ([]domain.ThreatEvent, error) {
	return nil, nil
}

func (m *memAlertLog) ListThreats(int) ([]domain.ThreatEvent, error) { return nil, nil }

func (m *memAlertLog) ListAlerts(ports.AlertFilter) ([]domain.AlertRecord, error) {
	return nil, nil
}

func (m *memAlertLog) CountThreatsSince(time.Time) (int64, error) { return 0, nil }

func (m *memAlertLog) ThreatStatsSince(time.Time) (domain.ThreatStats, error) {
	return domain.ThreatStats{}, nil
}

func (m *memAlertLog) AlertStats() (domain.AlertStats, error) { return domain.AlertStats{}, nil }

func (m *memAlertLog) GetStat(string) (string, error) { return "", nil }

func (m *memAlertLog) SetStat(string, string) error { return nil }

func (m *memAlertLog) AddToStat(string, int64) error { return nil }

func (m *memAlertLog) Close() error { return nil }

type fakeResolver struct {
	info *domain.GeoInfo
	err  error
}

func (f *fakeResolver) Lookup(ctx context.Context, ip string) (*domain.GeoInfo, error) {
	return f.info, f.err
}

type fakeNotifier struct {
	mu         sync.Mutex
	configured bool
	err        error
	sent       []domain.AlertRecord
}

func (f *fakeNotifier) Configured() bool { return f.configured }

func (f *fakeNotifier) Notify(ctx context.Context, alert domain.AlertRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, alert)
	return f.err
}

func ddosEvent(src string) domain.ThreatEvent {
	return domain.ThreatEvent{
		Timestamp:     time.Now(),
		Kind:          domain.ThreatDDoS,
		SourceIP:      src,
		DestinationIP: "N/A",
		Ports:         domain.SinglePort(80),
		Meta:          map[string]any{"window_count": 301},
	}
}

func TestPipelineRecordsAlert(t *testing.T) {
	log := &memAlertLog{}
	resolver := &fakeResolver{info: &domain.GeoInfo{Country: "Netherlands", City: "Amsterdam"}}
	notifier := &fakeNotifier{configured: true}
	p := NewPipeline(log, resolver, notifier, 5*time.Minute, 0)

	p.handle(context.Background(), ddosEvent("198.51.100.7"))

	require.Len(t, log.alerts, 1)
	alert := log.alerts[0]
	assert.Equal(t, domain.ThreatDDoS, alert.Kind)
	assert.Equal(t, "198.51.100.7", alert.SourceIP)
	assert.Equal(t, "High traffic on port 80", alert.Message)
	require.NotNil(t, alert.Geolocation)
	assert.Equal(t, "Amsterdam", alert.Geolocation.City)
	assert.Equal(t, time.UTC, alert.Timestamp.Location())

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(1), notifier.sent[0].ID, "notifier sees the persisted record")
}

func TestPipelineThrottlesRepeats(t *testing.T) {
	log := &memAlertLog{}
	p := NewPipeline(log, nil, nil, 5*time.Minute, 0)
	ctx := context.Background()

	p.handle(ctx, ddosEvent("198.51.100.7"))
	p.handle(ctx, ddosEvent("198.51.100.7"))
	assert.Equal(t, 1, log.count(), "repeat within the window is suppressed")

	// A different kind from the same source has its own throttle slot.
	scan := ddosEvent("198.51.100.7")
	scan.Kind = domain.ThreatPortScan
	p.handle(ctx, scan)
	assert.Equal(t, 2, log.count())

	// Same kind from a different source too.
	p.handle(ctx, ddosEvent("203.0.113.9"))
	assert.Equal(t, 3, log.count())

	// Once the window has passed the kind alerts again.
	p.mu.Lock()
	p.lastAlert["198.51.100.7|DDoS"] = time.Now().Add(-6 * time.Minute)
	p.mu.Unlock()
	p.handle(ctx, ddosEvent("198.51.100.7"))
	assert.Equal(t, 4, log.count())
}

func TestPipelineThrottleAdvancesOnDeliveryFailure(t *testing.T) {
	log := &memAlertLog{}
	notifier := &fakeNotifier{configured: true, err: errors.New("smtp down")}
	p := NewPipeline(log, nil, notifier, 5*time.Minute, 0)
	ctx := context.Background()

	p.handle(ctx, ddosEvent("198.51.100.7"))
	p.handle(ctx, ddosEvent("198.51.100.7"))

	assert.Equal(t, 1, log.count(), "failed delivery still throttles the repeat")
	assert.Len(t, notifier.sent, 1)
}

func TestPipelineGeoFailureStillRecords(t *testing.T) {
	log := &memAlertLog{}
	resolver := &fakeResolver{err: errors.New("provider unreachable")}
	p := NewPipeline(log, resolver, nil, 5*time.Minute, 0)

	p.handle(context.Background(), ddosEvent("198.51.100.7"))

	require.Len(t, log.alerts, 1)
	assert.Nil(t, log.alerts[0].Geolocation)
}

func TestPipelineSkipsUnconfiguredNotifier(t *testing.T) {
	log := &memAlertLog{}
	notifier := &fakeNotifier{configured: false}
	p := NewPipeline(log, nil, notifier, 5*time.Minute, 0)

	p.handle(context.Background(), ddosEvent("198.51.100.7"))

	assert.Equal(t, 1, log.count())
	assert.Empty(t, notifier.sent)
}

func TestPipelineEnqueueNeverBlocks(t *testing.T) {
	p := NewPipeline(&memAlertLog{}, nil, nil, time.Minute, 1)

	// No worker is draining: the second event overflows and is dropped.
	p.Enqueue(ddosEvent("198.51.100.7"))
	p.Enqueue(ddosEvent("198.51.100.8"))

	assert.Len(t, p.events, 1)
}

func TestPipelineRunProcessesQueue(t *testing.T) {
	log := &memAlertLog{}
	p := NewPipeline(log, nil, nil, time.Minute, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	p.Enqueue(ddosEvent("198.51.100.7"))
	require.Eventually(t, func() bool { return log.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}

func TestMessageByKind(t *testing.T) {
	cases := []struct {
		kind domain.ThreatKind
		want string
	}{
		{domain.ThreatPortScan, "Multiple ports accessed"},
		{domain.ThreatSYNFlood, "SYN flood suspected"},
		{domain.ThreatSQLInjection, "Repeated SQL patterns detected"},
		{domain.ThreatXSS, "Repeated XSS patterns detected"},
		{domain.ThreatMaliciousIP, "OSINT-listed IP detected"},
		{domain.ThreatMaliciousDomain, "OSINT-listed domain detected"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Message(domain.ThreatEvent{Kind: tc.kind}))
	}

	ddos := domain.ThreatEvent{Kind: domain.ThreatDDoS, Ports: domain.SinglePort(443)}
	assert.Equal(t, "High traffic on port 443", Message(ddos))
}
