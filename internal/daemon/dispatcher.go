package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/jfmyers9/scrobby/internal/metrics"
	"github.com/jfmyers9/scrobby/internal/scrobbler"
)

// Remote submits plays to the scrobbling service.
type Remote interface {
	SubmitNowPlaying(ctx context.Context, sessionKey string, t scrobbler.TrackInfo) (bool, error)
	SubmitScrobble(ctx context.Context, sessionKey string, t scrobbler.TrackInfo) (bool, error)
}

// Connectivity reports whether the service is reachable.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// Enqueuer stores a scrobble for a later retry.
type Enqueuer interface {
	Enqueue(ctx context.Context, t scrobbler.TrackInfo) error
}

// DefaultDispatchTimeout bounds one now playing or scrobble dispatch,
// including its connectivity check and any fallback to the retry queue.
const DefaultDispatchTimeout = time.Minute

// Dispatcher sends now playing notices and scrobbles in the background.
// Scrobbles that cannot be delivered go to the retry queue; now playing
// notices are dropped.
type Dispatcher struct {
	remote     Remote
	network    Connectivity
	queue      Enqueuer
	sessionKey string
	timeout    time.Duration
	logger     zerolog.Logger
	metrics    *metrics.Metrics

	wg conc.WaitGroup
}

// DispatcherConfig wires a Dispatcher. Queue may be nil, in which case
// undeliverable scrobbles are lost.
type DispatcherConfig struct {
	Remote     Remote
	Network    Connectivity
	Queue      Enqueuer
	SessionKey string
	Timeout    time.Duration
	Metrics    *metrics.Metrics
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg DispatcherConfig, logger zerolog.Logger) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultDispatchTimeout
	}

	return &Dispatcher{
		remote:     cfg.Remote,
		network:    cfg.Network,
		queue:      cfg.Queue,
		sessionKey: cfg.SessionKey,
		timeout:    cfg.Timeout,
		logger:     logger.With().Str("component", "dispatcher").Logger(),
		metrics:    cfg.Metrics,
	}
}

// NowPlaying announces t without blocking the caller.
func (d *Dispatcher) NowPlaying(ctx context.Context, t scrobbler.TrackInfo) {
	d.goDetached(ctx, "now-playing", func(ctx context.Context) {
		d.notifyNowPlaying(ctx, t)
	})
}

// Scrobble submits t without blocking the caller.
func (d *Dispatcher) Scrobble(ctx context.Context, t scrobbler.TrackInfo) {
	d.goDetached(ctx, "scrobble", func(ctx context.Context) {
		d.scrobble(ctx, t)
	})
}

// Wait blocks until every dispatch started so far has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// goDetached runs fn on its own goroutine with a context that survives
// cancellation of ctx, so shutdown lets in-flight submissions finish.
func (d *Dispatcher) goDetached(ctx context.Context, kind string, fn func(context.Context)) {
	ctx = context.WithoutCancel(ctx)

	d.wg.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		var pc panics.Catcher
		pc.Try(func() { fn(ctx) })

		if r := pc.Recovered(); r != nil {
			d.logger.Error().
				Str("kind", kind).
				Interface("panic", r.Value).
				Str("stack", string(r.Stack)).
				Msg("Dispatch panicked")
		}
	})
}

func (d *Dispatcher) notifyNowPlaying(ctx context.Context, t scrobbler.TrackInfo) {
	log := d.logger.With().Str("track", t.Track).Str("artist", t.Artist).Logger()

	if !d.network.Online(ctx) {
		log.Debug().Msg("Offline, skipping now playing")
		d.metrics.NowPlaying(metrics.NowPlayingOffline)
		return
	}

	accepted, err := d.remote.SubmitNowPlaying(ctx, d.sessionKey, t)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("Failed to update now playing")
		d.metrics.NowPlaying(metrics.NowPlayingFailed)
	case !accepted:
		log.Warn().Msg("Now playing update ignored")
		d.metrics.NowPlaying(metrics.NowPlayingRejected)
	default:
		log.Info().Msg("Updated now playing")
		d.metrics.NowPlaying(metrics.NowPlayingSent)
	}
}

func (d *Dispatcher) scrobble(ctx context.Context, t scrobbler.TrackInfo) {
	log := d.logger.With().Str("track", t.Track).Str("artist", t.Artist).Logger()

	if !d.network.Online(ctx) {
		log.Info().Msg("Offline, queueing scrobble")
		d.enqueue(ctx, t)
		return
	}

	accepted, err := d.remote.SubmitScrobble(ctx, d.sessionKey, t)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("Failed to scrobble, queueing for retry")
		d.enqueue(ctx, t)
	case !accepted:
		log.Warn().Msg("Scrobble not accepted, queueing for retry")
		d.metrics.Scrobble(metrics.ScrobbleRejected)
		d.enqueue(ctx, t)
	default:
		log.Info().Time("started", t.StartTime).Msg("Scrobbled")
		d.metrics.Scrobble(metrics.ScrobbleAccepted)
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, t scrobbler.TrackInfo) {
	if d.queue == nil {
		d.logger.Error().Str("track", t.Track).Str("artist", t.Artist).Msg("Retry queue disabled, scrobble lost")
		d.metrics.Scrobble(metrics.ScrobbleLost)
		return
	}

	if err := d.queue.Enqueue(ctx, t); err != nil {
		d.logger.Error().Err(err).Str("track", t.Track).Str("artist", t.Artist).Msg("Failed to queue scrobble, scrobble lost")
		d.metrics.Scrobble(metrics.ScrobbleLost)
		return
	}

	d.metrics.Scrobble(metrics.ScrobbleQueued)
}
