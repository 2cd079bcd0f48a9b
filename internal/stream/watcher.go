package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrWatcherClosed is returned when dialling a closed Watcher.
var ErrWatcherClosed = errors.New("watcher closed")

// Watcher consumes a hub's feed from the client side.
type Watcher struct {
	url    string
	items  []string
	logger *slog.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	messages chan Message
	errs     chan error
	done     chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewWatcher creates a watcher for the hub at url, optionally narrowed to
// items.
func NewWatcher(url string, items []string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		url:      url,
		items:    items,
		logger:   logger,
		messages: make(chan Message, sendBuffer),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// Connect dials the hub and sends the subscription.
func (w *Watcher) Connect(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	w.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := http.Header{}
	header.Set("Accept", "application/json")

	conn, _, err := dialer.DialContext(ctx, w.url, header)
	if err != nil {
		return err
	}
	w.conn = conn

	// Hub pings keep the read deadline moving.
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		w.writeMu.Lock()
		defer w.writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	if len(w.items) > 0 {
		w.writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteJSON(Command{Command: "subscribe", Items: w.items})
		w.writeMu.Unlock()
		if err != nil {
			conn.Close()
			return err
		}
	}

	go w.readLoop()
	w.logger.Debug("watcher connected", "url", w.url, "items", len(w.items))
	return nil
}

// Messages returns decoded frames. It is closed when the connection ends.
func (w *Watcher) Messages() <-chan Message { return w.messages }

// Errors carries the error that ended the connection, if any.
func (w *Watcher) Errors() <-chan error { return w.errs }

// Close ends the connection.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	if w.conn == nil {
		return nil
	}
	w.writeMu.Lock()
	w.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	w.writeMu.Unlock()
	return w.conn.Close()
}

func (w *Watcher) readLoop() {
	defer close(w.messages)

	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					w.errs <- err
				}
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			w.logger.Warn("undecodable frame", "error", err)
			continue
		}

		select {
		case w.messages <- msg:
		case <-w.done:
			return
		default:
			w.logger.Warn("watcher buffer full, dropping message", "type", msg.Type)
		}
	}
}
