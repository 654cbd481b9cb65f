package devicelink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/santelizdev/loteria-tv/backend"
)

// API is the slice of the backend surface the session client consumes.
// *backend.Client satisfies it; tests substitute fakes.
type API interface {
	Register(ctx context.Context, deviceID string) (string, error)
	Status(ctx context.Context, code string) (backend.StatusReply, error)
	Heartbeat(ctx context.Context, deviceID, code string) error
	FetchResults(ctx context.Context, code, category, date string) (json.RawMessage, error)
}

// Store is the persisted key-value state the client reads at startup and
// writes on registration. *statestore.Store satisfies it.
type Store interface {
	Get(key string) (string, bool, error)
	Put(key, value string) error
}

// dialFunc opens one real-time channel. Swapped out in tests.
type dialFunc func(ctx context.Context, wsBase, code string, onMessage func([]byte), onClose func(error)) (io.Closer, error)

// Config carries the session client knobs. Zero intervals fall back to
// the production defaults.
type Config struct {
	// WSBase is the websocket base URL, e.g. "wss://api.example.com".
	WSBase string

	// ActivationCode, when non-empty, is an externally supplied code
	// (launch parameter). It always overrides and re-persists over any
	// previously stored code.
	ActivationCode string

	// HeartbeatInterval is the liveness signal cadence. Default 30s.
	HeartbeatInterval time.Duration

	// PollInterval is the redundancy result-fetch cadence. Default 60s.
	PollInterval time.Duration

	// ReconnectInitialDelay and ReconnectMaxDelay shape the websocket
	// backoff schedule. Defaults 1s and 15s.
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
}

func (c Config) withDefaults() Config {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 60 * time.Second
	}
	return c
}

// RegistrationError wraps a failed registration exchange. It is the only
// error that halts the boot sequence.
type RegistrationError struct {
	err error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("devicelink: registration failed: %v", e.err)
}

func (e *RegistrationError) Unwrap() error {
	return e.err
}

// channelEvent is the discriminated shape of inbound channel messages.
// Unknown types are dropped.
type channelEvent struct {
	Type     string           `json:"type"`
	BranchID backend.BranchID `json:"branch_id"`
}

const (
	eventDeviceAssigned = "device_assigned"
	eventBranchChanged  = "branch_changed"
)
