package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for every tunable knob. Endpoints have no default on purpose.
const (
	DefaultStatePath          = "loteria-tv.db"
	DefaultTriplesInterval    = 20 * time.Second
	DefaultAnimalitosInterval = 15 * time.Second
	DefaultHeartbeatInterval  = 30 * time.Second
	DefaultPollInterval       = 60 * time.Second
	DefaultLogLevel           = slog.LevelInfo
)

// Config is the resolved runtime configuration.
type Config struct {
	// APIBase is the HTTP backend base URL, e.g. "https://api.example.com".
	APIBase string

	// WSBase is the websocket base URL, e.g. "wss://api.example.com".
	WSBase string

	// StatePath is the SQLite state file location.
	StatePath string

	// ActivationCode, when set, overrides the persisted code. This is
	// the launch-parameter path used when provisioning a screen by hand.
	ActivationCode string

	// TriplesInterval and AnimalitosInterval are the rotation cadences.
	TriplesInterval    time.Duration
	AnimalitosInterval time.Duration

	// HeartbeatInterval and PollInterval drive the session client's
	// background loops.
	HeartbeatInterval time.Duration
	PollInterval      time.Duration

	// LogLevel is the slog threshold.
	LogLevel slog.Level
}

// Load reads the environment into a Config, consulting a .env file first
// when one exists. A missing .env is not an error; unset variables fall
// back to defaults.
func Load() (Config, error) {
	// Development convenience only. Real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg := Config{
		APIBase:            strings.TrimSpace(os.Getenv("LOTERIA_API_BASE")),
		WSBase:             strings.TrimSpace(os.Getenv("LOTERIA_WS_BASE")),
		StatePath:          envString("LOTERIA_STATE_PATH", DefaultStatePath),
		ActivationCode:     strings.TrimSpace(os.Getenv("LOTERIA_ACTIVATION_CODE")),
		TriplesInterval:    DefaultTriplesInterval,
		AnimalitosInterval: DefaultAnimalitosInterval,
		HeartbeatInterval:  DefaultHeartbeatInterval,
		PollInterval:       DefaultPollInterval,
		LogLevel:           DefaultLogLevel,
	}

	var err error
	if cfg.TriplesInterval, err = envDuration("LOTERIA_TRIPLES_INTERVAL", DefaultTriplesInterval); err != nil {
		return Config{}, err
	}
	if cfg.AnimalitosInterval, err = envDuration("LOTERIA_ANIMALITOS_INTERVAL", DefaultAnimalitosInterval); err != nil {
		return Config{}, err
	}
	if cfg.HeartbeatInterval, err = envDuration("LOTERIA_HEARTBEAT_INTERVAL", DefaultHeartbeatInterval); err != nil {
		return Config{}, err
	}
	if cfg.PollInterval, err = envDuration("LOTERIA_POLL_INTERVAL", DefaultPollInterval); err != nil {
		return Config{}, err
	}
	if cfg.LogLevel, err = envLogLevel("LOTERIA_LOG_LEVEL", DefaultLogLevel); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	if c.APIBase == "" {
		return fmt.Errorf("config: LOTERIA_API_BASE is required")
	}
	if err := checkURL("LOTERIA_API_BASE", c.APIBase, "http", "https"); err != nil {
		return err
	}

	if c.WSBase == "" {
		return fmt.Errorf("config: LOTERIA_WS_BASE is required")
	}
	if err := checkURL("LOTERIA_WS_BASE", c.WSBase, "ws", "wss"); err != nil {
		return err
	}

	if c.StatePath == "" {
		return fmt.Errorf("config: state path must not be empty")
	}

	for _, iv := range []struct {
		name  string
		value time.Duration
	}{
		{"LOTERIA_TRIPLES_INTERVAL", c.TriplesInterval},
		{"LOTERIA_ANIMALITOS_INTERVAL", c.AnimalitosInterval},
		{"LOTERIA_HEARTBEAT_INTERVAL", c.HeartbeatInterval},
		{"LOTERIA_POLL_INTERVAL", c.PollInterval},
	} {
		if iv.value <= 0 {
			return fmt.Errorf("config: %s must be positive, got %s", iv.name, iv.value)
		}
	}

	return nil
}

func checkURL(name, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config: %s: %w", name, err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			if u.Host == "" {
				return fmt.Errorf("config: %s has no host: %q", name, raw)
			}
			return nil
		}
	}
	return fmt.Errorf("config: %s must use %s scheme, got %q", name, strings.Join(schemes, "/"), raw)
}

func envString(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", name, err)
	}
	return d, nil
}

func envLogLevel(name string, fallback slog.Level) (slog.Level, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return 0, fmt.Errorf("config: %s: %w", name, err)
	}
	return level, nil
}
