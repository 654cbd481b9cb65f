package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{}

// newWSServer starts a websocket server that runs handler for every
// accepted connection and returns its ws:// base URL.
func newWSServer(t *testing.T, handler func(conn *websocket.Conn, path string)) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		handler(conn, r.URL.Path)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestChannelDeliversMessages(t *testing.T) {
	wsBase := newWSServer(t, func(conn *websocket.Conn, path string) {
		if path != "/ws/device/AB12CD/" {
			t.Errorf("Unexpected path %q", path)
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"device_assigned","branch_id":"B1"}`))
		time.Sleep(100 * time.Millisecond)
	})

	messages := make(chan []byte, 1)
	ch, err := DialChannel(context.Background(), wsBase, "AB12CD",
		func(payload []byte) { messages <- payload },
		nil,
	)
	if err != nil {
		t.Fatalf("DialChannel failed: %v", err)
	}
	defer ch.Close()

	select {
	case payload := <-messages:
		if !strings.Contains(string(payload), "device_assigned") {
			t.Errorf("Unexpected payload: %s", payload)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestChannelCloseCallbackOnServerDrop(t *testing.T) {
	wsBase := newWSServer(t, func(conn *websocket.Conn, path string) {
		// Drop immediately
	})

	closed := make(chan error, 1)
	ch, err := DialChannel(context.Background(), wsBase, "AB12CD", nil,
		func(err error) { closed <- err },
	)
	if err != nil {
		t.Fatalf("DialChannel failed: %v", err)
	}
	defer ch.Close()

	select {
	case err := <-closed:
		if err == nil {
			t.Error("Expected a non-nil error for server-side drop")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for close callback")
	}
}

func TestChannelDeliberateClose(t *testing.T) {
	wsBase := newWSServer(t, func(conn *websocket.Conn, path string) {
		// Hold the connection open until the client closes
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	closed := make(chan error, 1)
	ch, err := DialChannel(context.Background(), wsBase, "AB12CD", nil,
		func(err error) { closed <- err },
	)
	if err != nil {
		t.Fatalf("DialChannel failed: %v", err)
	}

	if err := ch.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case err := <-closed:
		if err != nil {
			t.Errorf("Expected nil error for deliberate close, got %v", err)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for close callback")
	}

	// Close is idempotent
	if err := ch.Close(); err != nil {
		t.Errorf("Second Close returned %v", err)
	}
}

func TestDialChannelValidation(t *testing.T) {
	if _, err := DialChannel(context.Background(), "", "AB12CD", nil, nil); err == nil {
		t.Error("Expected error for empty ws base")
	}
	if _, err := DialChannel(context.Background(), "ws://localhost:9", "", nil, nil); err == nil {
		t.Error("Expected error for empty code")
	}
}
