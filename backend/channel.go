package backend

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Channel is one websocket connection to the per-device event stream.
// The channel is receive-only: the backend pushes JSON messages, the
// client sends nothing.
//
// A Channel does not reconnect itself. When the connection drops (for any
// reason, including a server-initiated close) the onClose callback fires
// exactly once and the channel is dead; the owner decides whether and
// when to dial a new one.
type Channel struct {
	conn   *websocket.Conn
	closed atomic.Bool
}

// DialChannel opens the websocket keyed by the activation code and starts
// a read loop. onMessage receives each raw inbound payload; onClose fires
// once when the read loop exits.
func DialChannel(ctx context.Context, wsBase, code string, onMessage func([]byte), onClose func(error)) (*Channel, error) {
	if wsBase == "" {
		return nil, fmt.Errorf("backend: websocket base URL is required")
	}
	if code == "" {
		return nil, fmt.Errorf("backend: activation code is required")
	}

	endpoint := fmt.Sprintf("%s/ws/device/%s/", strings.TrimRight(wsBase, "/"), url.PathEscape(code))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("backend: dial %s: %w", endpoint, err)
	}

	ch := &Channel{conn: conn}

	go ch.readLoop(onMessage, onClose)

	return ch, nil
}

func (ch *Channel) readLoop(onMessage func([]byte), onClose func(error)) {
	for {
		_, payload, err := ch.conn.ReadMessage()
		if err != nil {
			// Deliberate Close surfaces here too; report nil in that case
			// so the owner can tell shutdown from network loss.
			if ch.closed.Load() {
				err = nil
			}
			if onClose != nil {
				onClose(err)
			}
			return
		}
		if onMessage != nil {
			onMessage(payload)
		}
	}
}

// Close tears down the connection. Idempotent.
func (ch *Channel) Close() error {
	if !ch.closed.CompareAndSwap(false, true) {
		return nil
	}
	return ch.conn.Close()
}
