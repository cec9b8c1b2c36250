// Package metrics exposes scrobbling counters in the Prometheus format.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Now playing results.
const (
	NowPlayingSent     = "sent"
	NowPlayingRejected = "rejected"
	NowPlayingFailed   = "failed"
	NowPlayingOffline  = "offline"
)

// Scrobble outcomes.
const (
	ScrobbleAccepted = "accepted"
	ScrobbleRejected = "rejected"
	ScrobbleQueued   = "queued"
	ScrobbleLost     = "lost"
)

// Metrics holds the collectors registered for one daemon.
type Metrics struct {
	nowPlaying *prometheus.CounterVec
	scrobbles  *prometheus.CounterVec
	queueItems prometheus.Gauge
	drains     *prometheus.CounterVec
	polls      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		nowPlaying: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scrobby_now_playing_total",
			Help: "Now playing notifications by result",
		}, []string{"result"}),
		scrobbles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scrobby_scrobbles_total",
			Help: "Scrobble submissions by outcome",
		}, []string{"outcome"}),
		queueItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scrobby_retry_queue_items",
			Help: "Scrobbles waiting in the retry queue",
		}),
		drains: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scrobby_retry_drains_total",
			Help: "Retry queue drain runs by result",
		}, []string{"result"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scrobby_polls_total",
			Help: "Player polls by resulting state",
		}, []string{"state"}),
	}
	reg.MustRegister(m.nowPlaying, m.scrobbles, m.queueItems, m.drains, m.polls)
	return m
}

// NowPlaying counts a now playing notification.
func (m *Metrics) NowPlaying(result string) {
	if m == nil {
		return
	}
	m.nowPlaying.WithLabelValues(result).Inc()
}

// Scrobble counts a scrobble outcome.
func (m *Metrics) Scrobble(outcome string) {
	if m == nil {
		return
	}
	m.scrobbles.WithLabelValues(outcome).Inc()
}

// QueueItems sets the retry queue depth.
func (m *Metrics) QueueItems(n int) {
	if m == nil {
		return
	}
	m.queueItems.Set(float64(n))
}

// Drain counts a drain run.
func (m *Metrics) Drain(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.drains.WithLabelValues(result).Inc()
}

// Poll counts a poll tick by its resulting state.
func (m *Metrics) Poll(state string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(state).Inc()
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info().Str("addr", addr).Msg("Serving metrics")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
