package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lcalzada-xor/netsentry/internal/core/domain"
	"github.com/lcalzada-xor/netsentry/internal/core/services/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from arbitrary origins, matching the
	// wide-open CORS policy of the REST API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WSManager pushes live threat events to connected dashboard clients. It is
// one more subscriber on the stream hub: a slow websocket loses events from
// its hub buffer, never stalling other consumers.
type WSManager struct {
	Hub     *stream.Hub
	Clients map[*websocket.Conn]struct{}
	mu      sync.Mutex
}

func NewWSManager(hub *stream.Hub) *WSManager {
	return &WSManager{
		Hub:     hub,
		Clients: make(map[*websocket.Conn]struct{}),
	}
}

// Start subscribes to the threat feed and forwards until ctx is cancelled.
func (m *WSManager) Start(ctx context.Context) {
	go m.forward(ctx)
}

func (m *WSManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade", "error", err)
		return
	}

	m.mu.Lock()
	m.Clients[conn] = struct{}{}
	m.mu.Unlock()

	slog.Info("websocket connected", "remote", r.RemoteAddr)

	// Reader goroutine exists only to notice the disconnect.
	go func() {
		defer conn.Close()
		defer func() {
			m.mu.Lock()
			delete(m.Clients, conn)
			m.mu.Unlock()
			slog.Info("websocket disconnected", "remote", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (m *WSManager) forward(ctx context.Context) {
	id, events := m.Hub.Subscribe(-1)
	defer m.Hub.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case event, ok := <-events:
			if !ok {
				m.closeAll()
				return
			}
			m.BroadcastThreat(event)
		}
	}
}

// BroadcastThreat sends one threat event to all connected clients.
func (m *WSManager) BroadcastThreat(event domain.ThreatEvent) {
	m.broadcastMessage(WSMessage{
		Type:    "threat",
		Payload: event,
	})
}

func (m *WSManager) broadcastMessage(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal", "error", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.Clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(m.Clients, conn)
		}
	}
}

// ClientCount reports the number of connected dashboard clients.
func (m *WSManager) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Clients)
}

func (m *WSManager) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.Clients {
		conn.Close()
		delete(m.Clients, conn)
	}
}
