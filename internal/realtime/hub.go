package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/wonny/sectorwatch/internal/contracts"
	"github.com/wonny/sectorwatch/pkg/logger"
)

const (
	broadcastBuffer = 256
	clientBuffer    = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans update events out to websocket subscribers.
// Publish never blocks: events are dropped when the hub is behind,
// and a subscriber that falls behind is disconnected.
// ⭐ SSOT: 실시간 푸시는 이 Hub에서만
type Hub struct {
	logger *logger.Logger

	register   chan *client
	unregister chan *client
	broadcast  chan contracts.UpdateEvent
	done       chan struct{}

	mu      sync.RWMutex
	clients map[*client]struct{}

	dropped atomic.Int64
}

// NewHub creates a hub; call Run to start delivery
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		logger:     log.WithModule("realtime"),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan contracts.UpdateEvent, broadcastBuffer),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
	}
}

// Publish queues an event for all subscribers
func (h *Hub) Publish(event contracts.UpdateEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.dropped.Add(1)
		h.logger.WithField("type", string(event.Type)).Warn("Broadcast queue full, event dropped")
	}
}

// Dropped returns the number of events dropped at Publish
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run delivers events until ctx is cancelled, then closes all subscribers
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
			h.logger.WithField("clients", h.ClientCount()).Debug("Subscriber connected")

		case c := <-h.unregister:
			h.remove(c)

		case event := <-h.broadcast:
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.WithError(err).Error("Failed to encode event")
				continue
			}

			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- payload:
				default:
					// 느린 구독자는 끊음 (Hub 블록 방지)
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ServeWS upgrades the request and subscribes the connection
// GET /ws
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to upgrade websocket")
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, clientBuffer),
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}
