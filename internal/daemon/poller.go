package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/scrobby/internal/metrics"
	"github.com/jfmyers9/scrobby/internal/music"
)

// Poll cadence defaults.
const (
	DefaultActiveInterval = 10 * time.Second
	DefaultIdleInterval   = 30 * time.Second
	DefaultPollTimeout    = 10 * time.Second
)

// PollerConfig tunes the poll loop.
type PollerConfig struct {
	ActiveInterval time.Duration
	IdleInterval   time.Duration
	Timeout        time.Duration
	Metrics        *metrics.Metrics
}

// Poller reads the player on an adaptive cadence, feeds each snapshot to the
// tracker and dispatches what it decides.
type Poller struct {
	reader     music.Reader
	tracker    *Tracker
	dispatcher *Dispatcher

	active  time.Duration
	idle    time.Duration
	timeout time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewPoller creates a new Poller instance
func NewPoller(reader music.Reader, tracker *Tracker, dispatcher *Dispatcher, cfg PollerConfig, logger zerolog.Logger) *Poller {
	if cfg.ActiveInterval <= 0 {
		cfg.ActiveInterval = DefaultActiveInterval
	}
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = DefaultIdleInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultPollTimeout
	}

	return &Poller{
		reader:     reader,
		tracker:    tracker,
		dispatcher: dispatcher,
		active:     cfg.ActiveInterval,
		idle:       cfg.IdleInterval,
		timeout:    cfg.Timeout,
		metrics:    cfg.Metrics,
		logger:     logger.With().Str("component", "poller").Logger(),
	}
}

// Run polls until ctx is cancelled. A tick that has started always
// completes; cancellation is only observed between ticks.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info().
		Dur("active_interval", p.active).
		Dur("idle_interval", p.idle).
		Msg("Starting poller")

	for {
		state := p.Tick(ctx)

		interval := p.idle
		if state == StateActive {
			interval = p.active
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info().Msg("Poller stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Tick performs one poll. Reader failures count as inactive.
func (p *Poller) Tick(ctx context.Context) PlayerState {
	readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	snap, err := p.reader.Snapshot(readCtx)
	cancel()

	if err != nil {
		p.logger.Warn().Err(err).Msg("Error reading player state")
		p.metrics.Poll("error")
		return StateInactive
	}

	act := p.tracker.Observe(snap)

	if act.NowPlaying != nil {
		ev := p.logger.Info().
			Str("track", act.NowPlaying.Track).
			Str("artist", act.NowPlaying.Artist).
			Dur("position", snap.Position)
		if act.Rewound {
			ev.Msg("Track rewound")
		} else {
			ev.Msg("Track changed")
		}
		p.dispatcher.NowPlaying(ctx, *act.NowPlaying)
	}

	if act.Scrobble != nil {
		p.logger.Info().
			Str("track", act.Scrobble.Track).
			Str("artist", act.Scrobble.Artist).
			Dur("position", snap.Position).
			Msg("Scrobbling track")
		p.dispatcher.Scrobble(ctx, *act.Scrobble)
	}

	p.logger.Debug().
		Bool("running", snap.IsRunning).
		Bool("playing", snap.IsPlaying).
		Str("state", act.State.String()).
		Msg("Poll update")
	p.metrics.Poll(act.State.String())

	return act.State
}
