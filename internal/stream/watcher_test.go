package stream

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rickgao/skyblock-data/internal/aggregate"
)

func TestWatcher(t *testing.T) {
	hub := NewHub(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	defer srv.Close()

	w := NewWatcher("ws"+strings.TrimPrefix(srv.URL, "http"), []string{"HYPERION"}, nil)
	if err := w.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer w.Close()

	next := func() Message {
		select {
		case msg, ok := <-w.Messages():
			if !ok {
				t.Fatal("Messages() closed early")
			}
			return msg
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for message")
		}
		return Message{}
	}

	if msg := next(); msg.Type != TypeSubscribed {
		t.Fatalf("first message = %+v, want subscribed", msg)
	}

	hub.HandleFlush(testEvent(aggregate.LowestBINFlushed))
	msg := next()
	if len(msg.Items) != 1 || msg.Items[0].ItemID != "HYPERION" {
		t.Errorf("Items = %+v, want only HYPERION", msg.Items)
	}

	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := w.Connect(context.Background()); err != ErrWatcherClosed {
		t.Errorf("Connect() after Close = %v, want ErrWatcherClosed", err)
	}
}
