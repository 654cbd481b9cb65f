package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/santelizdev/loteria-tv/backend"
	"github.com/santelizdev/loteria-tv/config"
	"github.com/santelizdev/loteria-tv/devicelink"
	"github.com/santelizdev/loteria-tv/eventbus"
	"github.com/santelizdev/loteria-tv/results"
	"github.com/santelizdev/loteria-tv/rotation"
	"github.com/santelizdev/loteria-tv/statestore"
)

func main() {
	activationCode := flag.String("code", "", "Activation code override (takes precedence over env and stored state)")
	reset := flag.Bool("reset", false, "Forget the stored activation code and register anew on boot")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("main: invalid configuration", "error", err)
		os.Exit(1)
	}
	if *activationCode != "" {
		cfg.ActivationCode = *activationCode
	}
	if *debug {
		cfg.LogLevel = slog.LevelDebug
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("main: invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("main: starting loteria-tv display",
		"api_base", cfg.APIBase,
		"ws_base", cfg.WSBase,
		"state_path", cfg.StatePath,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	store, err := statestore.Open(cfg.StatePath)
	if err != nil {
		slog.Error("main: opening state store failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Re-provisioning path: the identity stays, only the branch binding
	// is forgotten, so the backend issues a fresh code for this device.
	if *reset {
		if err := store.Delete(statestore.KeyActivationCode); err != nil {
			slog.Error("main: clearing stored activation code failed", "error", err)
			os.Exit(1)
		}
		slog.Info("main: stored activation code cleared")
	}

	api, err := backend.NewClient(cfg.APIBase, 0)
	if err != nil {
		slog.Error("main: creating backend client failed", "error", err)
		os.Exit(1)
	}

	bus := eventbus.New()
	defer bus.Close()

	client, err := devicelink.NewClient(devicelink.Config{
		WSBase:            cfg.WSBase,
		ActivationCode:    cfg.ActivationCode,
		HeartbeatInterval: cfg.HeartbeatInterval,
		PollInterval:      cfg.PollInterval,
	}, api, store, bus)
	if err != nil {
		slog.Error("main: creating session client failed", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	deviceID := client.EnsureIdentity()

	code, err := client.EnsureActivationCode(ctx)
	if err != nil {
		// The one boot-fatal error: without a code the display cannot
		// identify itself to the backend at all.
		var regErr *devicelink.RegistrationError
		if errors.As(err, &regErr) {
			slog.Error("main: device registration failed, cannot continue", "error", err)
		} else {
			slog.Error("main: resolving activation code failed", "error", err)
		}
		os.Exit(1)
	}
	slog.Info("main: device ready", "device_id", deviceID, "code", code)

	// Result flow: refresher and session client publish raw payloads,
	// the cache consumes them, the rotation reads the cache.
	cache := results.NewCache()
	cacheCh := make(chan eventbus.Event, 64)
	if err := bus.Subscribe("results-cache", cacheCh); err != nil {
		slog.Error("main: subscribing results cache failed", "error", err)
		os.Exit(1)
	}
	go cache.Run(cacheCh)

	refresher := results.NewRefresher(api, bus, code, cfg.PollInterval)

	display := newConsoleDisplay(cache, client.IsActive)

	scheduler, err := rotation.New(rotation.Config{
		TriplesInterval:    cfg.TriplesInterval,
		AnimalitosInterval: cfg.AnimalitosInterval,
	}, cacheSource{cache}, display, display)
	if err != nil {
		slog.Error("main: creating rotation scheduler failed", "error", err)
		os.Exit(1)
	}

	// Session changes re-point the board; a latest-only mailbox is enough
	// because only the newest assignment matters.
	sessionRx, err := bus.SubscribeLatest("session-watch")
	if err != nil {
		slog.Error("main: subscribing session watcher failed", "error", err)
		os.Exit(1)
	}
	go watchSession(ctx, sessionRx, scheduler)

	go logBusStats(ctx, bus)

	refresher.Start(ctx)
	defer refresher.Stop()

	scheduler.Start()
	defer scheduler.Stop()

	// Real-time channel first, then the point-in-time fallback for an
	// assignment that happened while this display was offline.
	client.Connect(ctx)
	if err := client.SyncStatusOnce(ctx); err != nil {
		slog.Warn("main: status sync failed", "error", err)
	}
	client.FetchResultsOnce()

	sig := <-sigChan
	slog.Info("main: received shutdown signal", "signal", sig)
	cancel()

	slog.Info("main: display stopped")
}

// watchSession restarts the rotation from the top of the cycle whenever
// the session is (re)assigned, so the board redraws immediately instead
// of waiting out the current interval. The mailbox coalesces bursts; an
// assignment overwritten by a later event is caught up at the next tick
// anyway, since the scheduler re-reads its source every advance.
func watchSession(ctx context.Context, rx eventbus.Receiver, scheduler *rotation.Scheduler) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-rx.Events():
			switch ev.Type {
			case eventbus.EventDeviceActivated, eventbus.EventBranchChanged:
				slog.Info("main: session changed, restarting rotation", "event", string(ev.Type))
				scheduler.Start()
			}
		}
	}
}

// logBusStats periodically reports event distribution health. Sustained
// drops on the cache subscriber mean the display is rendering stale rows.
func logBusStats(ctx context.Context, bus eventbus.Bus) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := bus.Stats()
			slog.Debug("main: event bus stats",
				"published", stats.TotalPublished,
				"sent", stats.TotalSent,
				"dropped", stats.TotalDropped,
				"drop_rate", eventbus.CalculateDropRate(stats),
				"cache_drop_rate", eventbus.CalculateSubscriberDropRate(stats, "results-cache"),
			)
		}
	}
}

// cacheSource adapts the results cache to the rotation's provider view.
type cacheSource struct {
	cache *results.Cache
}

func (s cacheSource) TriplesProviders(day results.Day) []string {
	return s.cache.DayProviders(backend.CategoryTriples, day)
}

func (s cacheSource) AnimalitosProviders() []string {
	return s.cache.CombinedProviders(backend.CategoryAnimalitos)
}
