package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"go-apotek-pos/internal/events"

	"github.com/gofiber/contrib/websocket"
)

type Hub struct {
	Clients    map[*websocket.Conn]bool
	Register   chan *websocket.Conn
	Unregister chan *websocket.Conn
	Broadcast  chan []byte
	mutex      sync.Mutex
	log        *slog.Logger
	done       chan struct{}
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		Clients:    make(map[*websocket.Conn]bool),
		Register:   make(chan *websocket.Conn),
		Unregister: make(chan *websocket.Conn),
		Broadcast:  make(chan []byte, 64),
		log:        log,
		done:       make(chan struct{}),
	}
}

// Attach registers conn with the running hub. It reports false once the hub
// has stopped, so late upgrades do not block.
func (h *Hub) Attach(conn *websocket.Conn) bool {
	select {
	case h.Register <- conn:
		return true
	case <-h.done:
		return false
	}
}

// Detach removes conn; a stopped hub has already closed it.
func (h *Hub) Detach(conn *websocket.Conn) {
	select {
	case h.Unregister <- conn:
	case <-h.done:
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for conn := range h.Clients {
				conn.Close()
				delete(h.Clients, conn)
			}
			h.mutex.Unlock()
			return

		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = true
			h.log.Debug("ws client connected", "clients", len(h.Clients))
			h.mutex.Unlock()

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.Clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Publish queues evt for every connected dashboard. A full queue drops the
// event rather than stalling the request that produced it.
func (h *Hub) Publish(_ context.Context, topic string, evt events.Event) {
	msg, err := json.Marshal(struct {
		Topic string `json:"topic"`
		events.Event
	}{topic, evt})
	if err != nil {
		h.log.Warn("ws marshal event", "topic", topic, "err", err)
		return
	}
	select {
	case h.Broadcast <- msg:
	default:
		h.log.Warn("ws broadcast queue full, dropping event", "topic", topic)
	}
}
