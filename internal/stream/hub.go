package stream

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/rickgao/skyblock-data/internal/aggregate"
	"github.com/rickgao/skyblock-data/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans flush messages out to websocket clients.
type Hub struct {
	register   chan *client
	unregister chan *client
	subs       chan subscription
	broadcast  chan Message
	done       chan struct{}
	clients    map[*client]struct{}

	mu     sync.RWMutex
	latest map[string]Message // By series

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewHub creates a hub. m may be nil.
func NewHub(m *metrics.Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		subs:       make(chan subscription),
		broadcast:  make(chan Message, 16),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
		latest:     make(map[string]Message),
		logger:     logger,
		metrics:    m,
	}
}

// Run serves the hub until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for c := range h.clients {
			h.drop(c)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.connected(1)
			for _, msg := range h.snapshot() {
				if !h.deliver(c, msg) {
					break
				}
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}

		case sub := <-h.subs:
			c := sub.client
			if _, ok := h.clients[c]; !ok {
				continue
			}
			c.ids = sub.ids
			if !h.deliver(c, Message{Type: TypeSubscribed}) {
				continue
			}
			for _, msg := range h.snapshot() {
				if !h.deliver(c, msg) {
					break
				}
			}

		case msg := <-h.broadcast:
			h.mu.Lock()
			h.latest[msg.Series] = msg
			h.mu.Unlock()
			for c := range h.clients {
				h.deliver(c, msg)
			}
		}
	}
}

// HandleFlush publishes ev to clients. It is an aggregate.Subscriber and
// never blocks; a flush is dropped when the hub is backed up.
func (h *Hub) HandleFlush(ev aggregate.FlushEvent) {
	msg := FromFlush(ev)
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.logger.Warn("stream hub backed up, dropping flush", "series", msg.Series)
	}
}

// Latest returns the last message of series.
func (h *Hub) Latest(series string) (Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msg, ok := h.latest[series]
	return msg, ok
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "err", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan Message, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) subscribe(sub subscription) bool {
	select {
	case h.subs <- sub:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// deliver sends msg to c, disconnecting c when its buffer is full. It
// reports whether c is still connected.
func (h *Hub) deliver(c *client, msg Message) bool {
	if msg.Type == TypeFlush {
		var ok bool
		if msg, ok = msg.filter(c.ids); !ok {
			return true
		}
	}
	select {
	case c.send <- msg:
		return true
	default:
		h.logger.Warn("stream client too slow, disconnecting")
		if h.metrics != nil {
			h.metrics.RecordStreamDrop()
		}
		h.drop(c)
		return false
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.connected(-1)
}

func (h *Hub) connected(delta int32) {
	if h.metrics != nil {
		h.metrics.StreamConnected(delta)
	}
}

func (h *Hub) snapshot() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Message, 0, len(h.latest))
	for _, kind := range aggregate.EventKinds() {
		if msg, ok := h.latest[string(kind.Summary())]; ok {
			out = append(out, msg)
		}
	}
	return out
}
