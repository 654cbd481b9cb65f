package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Result categories served by the backend.
const (
	CategoryTriples    = "triples"
	CategoryAnimalitos = "animalitos"
)

const (
	pathResults    = "/api/results/"
	pathAnimalitos = "/api/animalitos/"
	pathHeartbeat  = "/api/devices/heartbeat/"
	pathStatus     = "/api/devices/status/"
	pathRegister   = "/api/devices/register/"
)

// BranchID is a branch identifier as it appears on the wire. The backend
// emits it as a JSON number, null while unassigned, but older payloads
// carried strings; it decodes all three and is handled as a string from
// there on.
type BranchID string

func (b *BranchID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch {
	case s == "" || s == "null":
		*b = ""
	case s[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("backend: branch_id: %w", err)
		}
		*b = BranchID(strings.TrimSpace(v))
	default:
		var v json.Number
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("backend: branch_id: %w", err)
		}
		*b = BranchID(v.String())
	}
	return nil
}

func (b BranchID) String() string { return string(b) }

// StatusReply is the point-in-time device status reported by the backend.
// ClientLogoURL carries the owning client's branding image; empty when
// the device is unassigned or the client has no logo configured.
type StatusReply struct {
	IsActive      bool     `json:"is_active"`
	BranchID      BranchID `json:"branch_id"`
	ClientLogoURL string   `json:"client_logo_url"`
}

type registerReply struct {
	DeviceID       string `json:"device_id"`
	ActivationCode string `json:"activation_code"`
	Registered     bool   `json:"registered"`
}

// Client talks to the device-facing HTTP endpoints.
type Client struct {
	http *resty.Client
}

// NewClient creates a backend client for the given API base URL.
func NewClient(apiBase string, timeout time.Duration) (*Client, error) {
	if apiBase == "" {
		return nil, fmt.Errorf("backend: API base URL is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	http := resty.New().
		SetBaseURL(strings.TrimRight(apiBase, "/")).
		SetTimeout(timeout).
		SetHeader("Cache-Control", "no-store")

	return &Client{http: http}, nil
}

// Register exchanges the device id for an activation code.
//
// A non-2xx status or an empty activation_code in the reply is an error;
// the caller must not proceed without a code.
func (c *Client) Register(ctx context.Context, deviceID string) (string, error) {
	var reply registerReply

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"device_id": deviceID}).
		SetResult(&reply).
		Post(pathRegister)
	if err != nil {
		return "", fmt.Errorf("backend: register: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("backend: register failed: %s %s", resp.Status(), resp.String())
	}

	code := strings.TrimSpace(reply.ActivationCode)
	if code == "" {
		return "", fmt.Errorf("backend: register did not return activation_code")
	}

	return code, nil
}

// Status queries the current activation status for the code.
func (c *Client) Status(ctx context.Context, code string) (StatusReply, error) {
	var reply StatusReply

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("code", code).
		SetResult(&reply).
		Get(pathStatus)
	if err != nil {
		return StatusReply{}, fmt.Errorf("backend: status: %w", err)
	}
	if resp.IsError() {
		return StatusReply{}, fmt.Errorf("backend: status failed: %s", resp.Status())
	}

	return reply, nil
}

// Heartbeat proves device liveness. The reply body carries nothing the
// client needs; only transport or status failures are reported.
func (c *Client) Heartbeat(ctx context.Context, deviceID, code string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"device_id": deviceID, "code": code}).
		Post(pathHeartbeat)
	if err != nil {
		return fmt.Errorf("backend: heartbeat: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("backend: heartbeat failed: %s", resp.Status())
	}
	return nil
}

// FetchResults fetches raw result rows for a category. date is an ISO
// calendar date (YYYY-MM-DD) or empty for the backend's default day.
// The payload is returned unparsed; normalization happens at the caller.
func (c *Client) FetchResults(ctx context.Context, code, category, date string) (json.RawMessage, error) {
	var path string
	switch category {
	case CategoryTriples:
		path = pathResults
	case CategoryAnimalitos:
		path = pathAnimalitos
	default:
		return nil, fmt.Errorf("backend: unknown category %q", category)
	}

	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("code", code)
	if date != "" {
		req.SetQueryParam("date", date)
	}

	resp, err := req.Get(path)
	if err != nil {
		return nil, fmt.Errorf("backend: fetch %s: %w", category, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("backend: fetch %s failed: %s", category, resp.Status())
	}

	return json.RawMessage(resp.Body()), nil
}
