package daemon

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/jfmyers9/scrobby/internal/metrics"
	"github.com/jfmyers9/scrobby/internal/music"
	"github.com/jfmyers9/scrobby/internal/scrobbler"
)

// Config holds daemon configuration
type Config struct {
	SessionKey string // Last.fm session key

	ActiveInterval time.Duration // Poll interval while a track is playing
	IdleInterval   time.Duration // Poll interval otherwise
	PollTimeout    time.Duration // Bound on one player read

	MaxThreshold time.Duration // Cap on the play time needed to scrobble
	RewindLimit  time.Duration // Positions below this can count as a replay

	DispatchTimeout time.Duration // Bound on one submission
	RetryInterval   time.Duration // Period between retry queue drains

	MetricsAddr string // Listen address for /metrics, empty disables
}

// Deps are the collaborators the daemon drives.
type Deps struct {
	Reader  music.Reader
	Remote  Remote
	Network Connectivity

	// Queue receives undeliverable scrobbles. Nil disables retries.
	Queue *scrobbler.Queue

	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// Daemon coordinates the poller, the dispatcher and the retry queue drain
type Daemon struct {
	config     Config
	deps       Deps
	tracker    *Tracker
	dispatcher *Dispatcher
	poller     *Poller
	logger     zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// New creates a new Daemon instance
func New(cfg Config, deps Deps, logger zerolog.Logger) (*Daemon, error) {
	if cfg.SessionKey == "" {
		return nil, errors.New("session key is required, run 'scrobby auth' first")
	}
	if deps.Reader == nil || deps.Remote == nil || deps.Network == nil {
		return nil, errors.New("daemon requires a reader, a remote client and a connectivity check")
	}

	tracker := NewTracker(TrackerConfig{
		MaxThreshold: cfg.MaxThreshold,
		RewindLimit:  cfg.RewindLimit,
	})

	dcfg := DispatcherConfig{
		Remote:     deps.Remote,
		Network:    deps.Network,
		SessionKey: cfg.SessionKey,
		Timeout:    cfg.DispatchTimeout,
		Metrics:    deps.Metrics,
	}
	// A nil *Queue must stay a nil interface.
	if deps.Queue != nil {
		dcfg.Queue = deps.Queue
	}
	dispatcher := NewDispatcher(dcfg, logger)

	poller := NewPoller(deps.Reader, tracker, dispatcher, PollerConfig{
		ActiveInterval: cfg.ActiveInterval,
		IdleInterval:   cfg.IdleInterval,
		Timeout:        cfg.PollTimeout,
		Metrics:        deps.Metrics,
	}, logger)

	return &Daemon{
		config:     cfg,
		deps:       deps,
		tracker:    tracker,
		dispatcher: dispatcher,
		poller:     poller,
		logger:     logger.With().Str("component", "daemon").Logger(),
	}, nil
}

// Run starts the daemon and blocks until shutdown signal received
func (d *Daemon) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Handle first signal gracefully, second signal forces exit
	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		d.logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		d.Stop()

		select {
		case <-sigChan:
			d.logger.Warn().Msg("Second shutdown signal received, forcing exit")
			os.Exit(1)
		case <-ctx.Done():
		}
	}()

	return d.RunContext(ctx)
}

// RunContext runs until ctx is cancelled or Stop is called. It returns once
// the poll loop and drain loop have exited and every in-flight submission
// has finished.
func (d *Daemon) RunContext(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.mu.Lock()
	d.cancel = cancel
	if d.stopped {
		cancel()
	}
	d.mu.Unlock()

	d.logger.Info().Msg("Starting daemon")

	var wg conc.WaitGroup

	wg.Go(func() {
		if err := d.poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error().Err(err).Msg("Poller error")
		}
	})

	if d.deps.Queue != nil {
		wg.Go(func() {
			d.deps.Queue.RunPeriodic(ctx, d.deps.Remote, d.config.SessionKey, d.config.RetryInterval)
		})
	} else {
		d.logger.Warn().Msg("Retry queue disabled, failed scrobbles will be dropped")
	}

	if d.config.MetricsAddr != "" && d.deps.Gatherer != nil {
		wg.Go(func() {
			if err := metrics.Serve(ctx, d.config.MetricsAddr, d.deps.Gatherer, d.logger); err != nil {
				d.logger.Error().Err(err).Msg("Metrics server error")
			}
		})
	}

	wg.Wait()

	d.logger.Info().Msg("Waiting for in-flight submissions")
	d.dispatcher.Wait()

	d.logger.Info().Msg("Daemon stopped")
	return nil
}

// Stop asks a running daemon to finish. It is safe to call more than once
// and before Run.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.cancel != nil {
		d.cancel()
	}
}
