package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lcalzada-xor/netsentry/internal/core/domain"
	"github.com/lcalzada-xor/netsentry/internal/core/ports"
	"github.com/lcalzada-xor/netsentry/internal/telemetry"
)

const (
	// pollInterval is how often the tail poller checks for new rows when no
	// writer has nudged it.
	pollInterval = time.Second

	// pollBatch caps one tail read.
	pollBatch = 500

	// subscriberBuffer is each subscriber's private queue. A consumer that
	// falls this far behind starts losing events rather than slowing the
	// poller.
	subscriberBuffer = 64
)

type subscriber struct {
	ch     chan domain.ThreatEvent
	lastID int64
}

// Hub tails the threat log and fans new rows out to any number of
// subscribers (SSE connections, the websocket bridge). One poller goroutine
// owns the cursor; subscribers only ever read their own channel.
type Hub struct {
	log  ports.EventLog
	poll time.Duration

	mu     sync.Mutex
	subs   map[string]*subscriber
	cursor int64

	wake chan struct{}
}

// NewHub creates a hub tailing the given log. The cursor starts at the
// current maximum id so existing rows are history, not a replay, for
// live-only subscribers.
func NewHub(log ports.EventLog) *Hub {
	h := &Hub{
		log:  log,
		poll: pollInterval,
		subs: make(map[string]*subscriber),
		wake: make(chan struct{}, 1),
	}
	maxID, err := log.MaxThreatID()
	if err != nil {
		slog.Error("stream cursor init", "error", err)
		return h
	}
	h.cursor = maxID
	return h
}

// Subscribe registers a consumer. sinceID < 0 means "live only": start at
// the current maximum. sinceID >= 0 replays history after that id first,
// capped at the subscriber buffer. Events on the returned channel have
// strictly increasing ids.
func (h *Hub) Subscribe(sinceID int64) (string, <-chan domain.ThreatEvent) {
	id := uuid.NewString()
	sub := &subscriber{ch: make(chan domain.ThreatEvent, subscriberBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()

	sub.lastID = h.cursor
	if sinceID >= 0 {
		sub.lastID = sinceID
		backlog, err := h.log.ThreatsAfter(sinceID, subscriberBuffer)
		if err != nil {
			slog.Error("stream backlog read", "since_id", sinceID, "error", err)
		}
		for _, event := range backlog {
			sub.ch <- event
			sub.lastID = event.ID
		}
	}

	h.subs[id] = sub
	telemetry.StreamSubscribers.Set(float64(len(h.subs)))
	return id, sub.ch
}

// Unsubscribe removes a consumer and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(sub.ch)
	telemetry.StreamSubscribers.Set(float64(len(h.subs)))
}

// Notify nudges the poller ahead of its next tick. Safe from any goroutine,
// never blocks.
func (h *Hub) Notify() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Run tails the log until ctx is cancelled, then closes every subscriber.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
		case <-h.wake:
		}
		h.dispatch()
	}
}

// dispatch reads rows past the cursor and offers each to every subscriber.
// A full subscriber buffer drops the event for that subscriber only.
func (h *Hub) dispatch() {
	h.mu.Lock()
	cursor := h.cursor
	h.mu.Unlock()

	events, err := h.log.ThreatsAfter(cursor, pollBatch)
	if err != nil {
		slog.Error("stream tail read", "after", cursor, "error", err)
		return
	}
	if len(events) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, event := range events {
		if event.ID > h.cursor {
			h.cursor = event.ID
		}
		for _, sub := range h.subs {
			if event.ID <= sub.lastID {
				continue
			}
			select {
			case sub.ch <- event:
			default:
			}
			sub.lastID = event.ID
		}
	}
}

// SubscriberCount reports the number of attached consumers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
	telemetry.StreamSubscribers.Set(0)
}
