package devicelink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/santelizdev/loteria-tv/backend"
	"github.com/santelizdev/loteria-tv/devicelink/internal/backoff"
	"github.com/santelizdev/loteria-tv/eventbus"
	"github.com/santelizdev/loteria-tv/statestore"
)

// Client owns one logical device session: identity, activation code,
// real-time channel, heartbeat and result polling.
//
// All mutable state is guarded by mu. Guards are re-checked after every
// network round-trip: between issuing a call and its completion other
// timers may have run, so nothing assumes atomicity across a suspension
// point.
type Client struct {
	cfg   Config
	api   API
	store Store
	bus   eventbus.Bus
	dial  dialFunc

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu             sync.Mutex
	deviceID       string
	code           string
	active         bool
	branchID       string
	channel        io.Closer
	connecting     bool
	dialGen        uint64
	channelGen     uint64
	earlyClose     bool
	reconnectTimer *time.Timer
	retry          *backoff.Backoff
	loopsStarted   bool
	closed         bool

	wg sync.WaitGroup
}

// NewClient creates a session client with fail-fast validation.
func NewClient(cfg Config, api API, store Store, bus eventbus.Bus) (*Client, error) {
	if api == nil {
		return nil, fmt.Errorf("devicelink: backend API is required")
	}
	if store == nil {
		return nil, fmt.Errorf("devicelink: state store is required")
	}
	if bus == nil {
		return nil, fmt.Errorf("devicelink: event bus is required")
	}
	if cfg.WSBase == "" {
		return nil, fmt.Errorf("devicelink: websocket base URL is required")
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())

	return &Client{
		cfg:        cfg.withDefaults(),
		api:        api,
		store:      store,
		bus:        bus,
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		dial: func(ctx context.Context, wsBase, code string, onMessage func([]byte), onClose func(error)) (io.Closer, error) {
			channel, err := backend.DialChannel(ctx, wsBase, code, onMessage, onClose)
			if err != nil {
				return nil, err
			}
			return channel, nil
		},
		retry: &backoff.Backoff{
			InitialDelay: cfg.ReconnectInitialDelay,
			MaxDelay:     cfg.ReconnectMaxDelay,
		},
	}, nil
}

// EnsureIdentity returns the persisted device identity, generating and
// persisting a new one if absent. It never fails: storage errors are
// logged and the identity stays usable for the current run, and if the
// system's entropy source is unavailable a time-seeded identifier is
// generated instead.
func (c *Client) EnsureIdentity() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deviceID != "" {
		return c.deviceID
	}

	stored, ok, err := c.store.Get(statestore.KeyDeviceID)
	if err != nil {
		slog.Warn("devicelink: reading device identity failed", "error", err)
	}
	if ok && stored != "" {
		c.deviceID = stored
		return c.deviceID
	}

	id := newDeviceID()
	if err := c.store.Put(statestore.KeyDeviceID, id); err != nil {
		slog.Warn("devicelink: persisting device identity failed", "error", err)
	}
	c.deviceID = id

	slog.Info("devicelink: generated device identity", "device_id", id)
	return id
}

func newDeviceID() string {
	id, err := uuid.NewRandom()
	if err == nil {
		return id.String()
	}
	// Entropy source unavailable: fall back to a time-seeded identifier
	// that is still collision-resistant enough for a device fleet.
	return fmt.Sprintf("dev-%d-%06d", time.Now().UnixNano(), rand.Intn(1_000_000))
}

// EnsureActivationCode returns the activation code, resolving it in
// precedence order: an externally supplied code (which always overrides
// and re-persists over a stored one), the persisted code, and finally a
// registration exchange. A failed exchange returns *RegistrationError;
// the caller must not proceed to Connect without a code.
func (c *Client) EnsureActivationCode(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.code != "" {
		code := c.code
		c.mu.Unlock()
		return code, nil
	}

	if override := strings.TrimSpace(c.cfg.ActivationCode); override != "" {
		if err := c.store.Put(statestore.KeyActivationCode, override); err != nil {
			slog.Warn("devicelink: persisting supplied activation code failed", "error", err)
		}
		c.code = override
		c.mu.Unlock()
		slog.Info("devicelink: using supplied activation code")
		return override, nil
	}

	stored, ok, err := c.store.Get(statestore.KeyActivationCode)
	if err != nil {
		slog.Warn("devicelink: reading activation code failed", "error", err)
	}
	if ok && strings.TrimSpace(stored) != "" {
		c.code = strings.TrimSpace(stored)
		code := c.code
		c.mu.Unlock()
		return code, nil
	}
	c.mu.Unlock()

	deviceID := c.EnsureIdentity()

	code, err := c.api.Register(ctx, deviceID)
	if err != nil {
		return "", &RegistrationError{err: err}
	}

	// Re-check after the round-trip: a concurrent caller may have
	// resolved a code meanwhile.
	c.mu.Lock()
	if c.code == "" {
		c.code = code
		if err := c.store.Put(statestore.KeyActivationCode, code); err != nil {
			slog.Warn("devicelink: persisting activation code failed", "error", err)
		}
		slog.Info("devicelink: registered device", "device_id", deviceID)
	}
	code = c.code
	c.mu.Unlock()

	return code, nil
}

// Connect opens the real-time channel keyed by the activation code.
// A call while a channel is already open or connecting is a no-op, so at
// most one live channel exists. A dial failure is not a hard error; it
// schedules a backoff reconnect like any other channel loss.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.code == "" {
		c.mu.Unlock()
		slog.Warn("devicelink: connect without activation code ignored")
		return
	}
	if c.channel != nil || c.connecting {
		c.mu.Unlock()
		return
	}
	// Clear any pending retry; this call supersedes it.
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.connecting = true
	c.dialGen++
	c.earlyClose = false
	gen := c.dialGen
	code := c.code
	c.mu.Unlock()

	channel, err := c.dial(ctx, c.cfg.WSBase, code, c.handleMessage, func(closeErr error) {
		c.handleChannelClose(gen, closeErr)
	})

	c.mu.Lock()
	c.connecting = false
	if err != nil {
		c.mu.Unlock()
		slog.Warn("devicelink: channel dial failed", "error", err)
		c.scheduleReconnect()
		return
	}
	if c.closed {
		c.mu.Unlock()
		channel.Close()
		return
	}
	if c.earlyClose {
		// The read loop already died in the window between the dial
		// returning and this lock. onClose fired for a channel that was
		// never stored, so the reconnect is scheduled here; storing the
		// corpse would strand the session with no channel and no timer.
		c.earlyClose = false
		c.retry.Reset()
		c.mu.Unlock()
		channel.Close()
		slog.Warn("devicelink: channel closed before establishment, scheduling reconnect")
		c.scheduleReconnect()
		return
	}
	c.channel = channel
	c.channelGen = gen
	c.retry.Reset()
	c.mu.Unlock()

	slog.Info("devicelink: channel connected")
}

// scheduleReconnect arms the single backoff timer: 1s doubling to a 15s
// cap, reset to the start after any successful open. An already-pending
// timer is cleared first so repeated disconnects never leak timers.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}

	delay := c.retry.Next()
	slog.Info("devicelink: reconnect scheduled", "attempt", c.retry.Attempt(), "delay", delay)

	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.reconnectTimer = nil
		c.mu.Unlock()
		c.Connect(c.baseCtx)
	})
}

// handleChannelClose reacts to the read loop of one specific dial
// exiting. gen identifies that dial, so a close racing ahead of Connect
// (or trailing a channel that was already replaced) cannot clobber the
// live channel's state.
func (c *Client) handleChannelClose(gen uint64, err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.connecting && gen == c.dialGen {
		// The channel died before Connect stored it. Connect re-checks
		// this flag after the dial and owns the reconnect.
		c.earlyClose = true
		c.mu.Unlock()
		return
	}
	if gen != c.channelGen {
		// A close for a channel that is no longer the stored one.
		c.mu.Unlock()
		return
	}
	c.channel = nil
	c.mu.Unlock()

	slog.Warn("devicelink: channel closed, scheduling reconnect", "error", err)
	c.scheduleReconnect()
}

// handleMessage parses an inbound channel payload and dispatches it.
// Malformed payloads are logged and dropped, never fatal.
func (c *Client) handleMessage(payload []byte) {
	var ev channelEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		slog.Warn("devicelink: malformed channel payload", "error", err)
		return
	}
	c.handleEvent(ev, payload)
}

func (c *Client) handleEvent(ev channelEvent, raw []byte) {
	switch ev.Type {
	case eventDeviceAssigned:
		if ev.BranchID == "" {
			return
		}
		c.Activate(ev.BranchID.String())

	case eventBranchChanged:
		branchID := ev.BranchID.String()

		c.mu.Lock()
		if c.branchID == branchID {
			c.mu.Unlock()
			return
		}
		c.branchID = branchID
		c.mu.Unlock()

		slog.Info("devicelink: branch changed", "branch_id", branchID)
		c.bus.Publish(eventbus.Event{
			Type:    eventbus.EventBranchChanged,
			Payload: eventbus.BranchChanged{BranchID: branchID, Raw: json.RawMessage(raw)},
		})

	default:
		// Includes the server's ws_connected greeting.
		slog.Debug("devicelink: ignoring channel event", "type", ev.Type)
	}
}

// Activate is the single authoritative transition into the active state,
// reached from the real-time channel or the status fallback alike.
// Re-activation with the same branch is a no-op. The heartbeat and
// polling loops are started exactly once regardless of how many
// activations race.
func (c *Client) Activate(branchID string) {
	if branchID == "" {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.active && c.branchID == branchID {
		c.mu.Unlock()
		return
	}
	c.active = true
	c.branchID = branchID

	startLoops := !c.loopsStarted
	c.loopsStarted = true
	c.mu.Unlock()

	if startLoops {
		c.wg.Add(2)
		go c.heartbeatLoop()
		go c.pollLoop()
	}

	slog.Info("devicelink: activated", "branch_id", branchID)
	c.bus.Publish(eventbus.Event{
		Type:    eventbus.EventDeviceActivated,
		Payload: eventbus.DeviceActivated{BranchID: branchID},
	})

	// First fetch immediately; the polling loop covers the rest.
	go c.fetchResultsOnce()
}

// SyncStatusOnce is the point-in-time fallback for a missed assignment
// event. It activates an inactive session when the backend reports one,
// and never overrides a session that activated while the query was in
// flight.
func (c *Client) SyncStatusOnce(ctx context.Context) error {
	c.mu.Lock()
	code := c.code
	active := c.active
	c.mu.Unlock()

	if code == "" || active {
		return nil
	}

	reply, err := c.api.Status(ctx, code)
	if err != nil {
		return fmt.Errorf("devicelink: status sync: %w", err)
	}

	if !reply.IsActive || reply.BranchID == "" {
		return nil
	}

	// The status round-trip is a suspension point: the channel may have
	// activated the session meanwhile. Fallback data never overrides.
	c.mu.Lock()
	active = c.active
	c.mu.Unlock()
	if active {
		return nil
	}

	c.Activate(reply.BranchID.String())
	return nil
}

// heartbeatLoop proves device liveness at a fixed interval. Failures are
// logged and swallowed; the next tick simply tries again.
func (c *Client) heartbeatLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.baseCtx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			deviceID, code := c.deviceID, c.code
			c.mu.Unlock()

			if err := c.api.Heartbeat(c.baseCtx, deviceID, code); err != nil {
				slog.Warn("devicelink: heartbeat failed", "error", err)
			}
		}
	}
}

// pollLoop re-fetches current results at a fixed interval, a redundancy
// path independent of the push channel.
func (c *Client) pollLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.baseCtx.Done():
			return
		case <-ticker.C:
			c.fetchResultsOnce()
		}
	}
}

// fetchResultsOnce fetches the current triples rows and publishes them.
// A failure means no update this cycle, nothing more.
func (c *Client) fetchResultsOnce() {
	c.mu.Lock()
	code := c.code
	c.mu.Unlock()

	if code == "" {
		return
	}

	raw, err := c.api.FetchResults(c.baseCtx, code, backend.CategoryTriples, "")
	if err != nil {
		slog.Warn("devicelink: results fetch failed", "error", err)
		return
	}

	c.bus.Publish(eventbus.Event{
		Type:    eventbus.EventResultsUpdated,
		Payload: eventbus.ResultsUpdated{Category: backend.CategoryTriples, Raw: raw},
	})
}

// FetchResultsOnce triggers one immediate fetch outside the polling
// cadence, used by the boot sequence for a first render.
func (c *Client) FetchResultsOnce() {
	c.fetchResultsOnce()
}

// DeviceID returns the resolved device identity, empty before
// EnsureIdentity.
func (c *Client) DeviceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deviceID
}

// ActivationCode returns the resolved code, empty before
// EnsureActivationCode.
func (c *Client) ActivationCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code
}

// IsActive reports whether the session has activated.
func (c *Client) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// BranchID returns the assigned branch, empty while inactive.
func (c *Client) BranchID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.branchID
}

// Close tears the session down: pending reconnect cancelled, channel
// closed, background loops stopped. Idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	timer := c.reconnectTimer
	c.reconnectTimer = nil
	channel := c.channel
	c.channel = nil
	c.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if channel != nil {
		channel.Close()
	}

	c.baseCancel()
	c.wg.Wait()
}
