package scrobbler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"

	"github.com/jfmyers9/scrobby/internal/metrics"
)

const (
	// DefaultItemDelay spaces submissions during a drain.
	DefaultItemDelay = time.Second

	// DefaultDrainInterval is the period between background drains.
	DefaultDrainInterval = 10 * time.Minute
)

// ErrQueueUnavailable is returned when the retry list cannot be loaded from
// its store.
var ErrQueueUnavailable = errors.New("retry queue unavailable")

// Submitter sends one scrobble to the remote service.
type Submitter interface {
	SubmitScrobble(ctx context.Context, sessionKey string, t TrackInfo) (bool, error)
}

// QueueConfig tunes a Queue. Zero values select defaults.
type QueueConfig struct {
	ItemDelay time.Duration
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// DrainResult summarizes one drain.
type DrainResult struct {
	Attempted int
	Succeeded int
	Remaining int
}

// Queue holds scrobbles that could not be delivered and retries them later.
//
// The in-memory list is loaded from the store on first use. Every enqueue
// and drain runs under one lock and writes its own rows back before
// releasing it. The store may be shared with another process, so a drain
// reloads it first and never resubmits items removed elsewhere.
type Queue struct {
	store     Store
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	itemDelay time.Duration
	now       func() time.Time

	mu     sync.Mutex
	items  []TrackInfo
	loaded bool
	lastID int64

	// unsaved holds ids queued in memory whose Add failed. unremoved holds
	// ids accepted remotely whose Remove failed.
	unsaved   map[string]bool
	unremoved map[string]bool
}

// NewQueue creates a queue over store.
func NewQueue(store Store, logger zerolog.Logger, cfg QueueConfig) *Queue {
	if cfg.ItemDelay <= 0 {
		cfg.ItemDelay = DefaultItemDelay
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Queue{
		store:     store,
		logger:    logger.With().Str("component", "retry-queue").Logger(),
		metrics:   cfg.Metrics,
		itemDelay: cfg.ItemDelay,
		now:       cfg.Now,
		unsaved:   make(map[string]bool),
		unremoved: make(map[string]bool),
	}
}

// Enqueue assigns t an id and appends it. Only a load failure is returned;
// a failed write is logged and the item stays queued in memory until a
// later drain stores or delivers it.
func (q *Queue) Enqueue(ctx context.Context, t TrackInfo) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.hydrate(ctx); err != nil {
		return err
	}

	t.ID = q.nextID()
	q.items = append(q.items, t)
	q.metrics.QueueItems(len(q.items))

	q.logger.Info().
		Str("id", t.ID).
		Str("track", t.Track).
		Str("artist", t.Artist).
		Int("pending", len(q.items)).
		Msg("Queued scrobble for retry")

	// The caller's deadline may have passed while waiting on a drain.
	if err := q.store.Add(context.WithoutCancel(ctx), t); err != nil {
		q.unsaved[t.ID] = true
		q.logger.Error().Err(err).
			Str("track", t.Track).
			Str("artist", t.Artist).
			Msg("Failed to persist retry queue, pending scrobbles will be lost on exit")
	}

	return nil
}

// Drain submits every queued item in order, pausing between attempts, and
// keeps only those that were not accepted. A failing item does not stop the
// drain. Cancelling ctx stops after the current item; progress so far is
// still persisted.
func (q *Queue) Drain(ctx context.Context, remote Submitter, sessionKey string) (DrainResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.reload(ctx); err != nil {
		return DrainResult{}, err
	}

	persistErr := q.persistPending(context.WithoutCancel(ctx))

	if len(q.items) == 0 {
		return DrainResult{}, persistErr
	}

	pending := make([]TrackInfo, len(q.items))
	copy(pending, q.items)

	var (
		result DrainResult
		errs   []error
	)
	if persistErr != nil {
		errs = append(errs, persistErr)
	}
	done := make(map[string]bool, len(pending))

	for i, item := range pending {
		if i > 0 && !sleep(ctx, q.itemDelay) {
			break
		}

		result.Attempted++
		accepted, err := remote.SubmitScrobble(ctx, sessionKey, item)
		if err != nil {
			q.logger.Warn().Err(err).
				Str("id", item.ID).
				Str("track", item.Track).
				Msg("Retry failed")
			continue
		}
		if !accepted {
			q.logger.Warn().
				Str("id", item.ID).
				Str("track", item.Track).
				Msg("Retry not accepted")
			continue
		}

		done[item.ID] = true
		result.Succeeded++
		q.metrics.Scrobble(metrics.ScrobbleAccepted)

		if err := q.forget(context.WithoutCancel(ctx), item.ID); err != nil {
			errs = append(errs, err)
		}
	}

	remaining := q.items[:0:0]
	for _, item := range q.items {
		if !done[item.ID] {
			remaining = append(remaining, item)
		}
	}
	q.items = remaining
	result.Remaining = len(remaining)
	q.metrics.QueueItems(len(remaining))

	q.logger.Info().
		Int("attempted", result.Attempted).
		Int("succeeded", result.Succeeded).
		Int("remaining", result.Remaining).
		Msg("Drained retry queue")

	if len(errs) > 0 {
		return result, fmt.Errorf("failed to persist retry queue: %w", errors.Join(errs...))
	}

	return result, nil
}

// Pending returns a copy of the queued items.
func (q *Queue) Pending(ctx context.Context) ([]TrackInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.hydrate(ctx); err != nil {
		return nil, err
	}

	items := make([]TrackInfo, len(q.items))
	copy(items, q.items)
	return items, nil
}

// Reset makes the next operation reload the store. Items that could not
// be written yet are kept.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.loaded = false
}

// RunPeriodic drains immediately and then every interval until ctx is done.
// A panicking drain is logged and does not stop the loop.
func (q *Queue) RunPeriodic(ctx context.Context, remote Submitter, sessionKey string, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultDrainInterval
	}

	q.logger.Info().Dur("interval", interval).Msg("Starting retry drain loop")

	for {
		q.drainOnce(ctx, remote, sessionKey)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			q.logger.Info().Msg("Retry drain loop stopped")
			return
		case <-timer.C:
		}
	}
}

func (q *Queue) drainOnce(ctx context.Context, remote Submitter, sessionKey string) {
	var pc panics.Catcher
	pc.Try(func() {
		_, err := q.Drain(ctx, remote, sessionKey)
		q.metrics.Drain(err)
		if err != nil {
			q.logger.Error().Err(err).Msg("Retry drain failed")
		}
	})

	if r := pc.Recovered(); r != nil {
		q.metrics.Drain(r.AsError())
		q.logger.Error().
			Interface("panic", r.Value).
			Str("stack", string(r.Stack)).
			Msg("Retry drain panicked")
	}
}

// hydrate loads the store once. Callers hold q.mu.
func (q *Queue) hydrate(ctx context.Context) error {
	if q.loaded {
		return nil
	}
	return q.reload(ctx)
}

// reload replaces the in-memory list with the stored one. Items whose Add
// failed are carried over and items whose Remove failed are left out, so
// neither a write failure nor another process touching the store leads to
// a loss or a second submission. Callers hold q.mu.
func (q *Queue) reload(ctx context.Context) error {
	stored, err := q.store.Load(ctx)
	if err != nil {
		q.logger.Error().Err(err).Msg("Failed to load retry queue")
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	items := make([]TrackInfo, 0, len(stored)+len(q.unsaved))
	seen := make(map[string]bool, len(stored))
	for _, item := range stored {
		seen[item.ID] = true
		if q.unremoved[item.ID] {
			continue
		}
		items = append(items, item)
	}
	for _, item := range q.items {
		if q.unsaved[item.ID] && !seen[item.ID] {
			items = append(items, item)
		}
	}

	for _, item := range items {
		if id, err := strconv.ParseInt(item.ID, 10, 64); err == nil && id > q.lastID {
			q.lastID = id
		}
	}

	first := !q.loaded
	q.items = items
	q.loaded = true
	q.metrics.QueueItems(len(items))

	if first && len(items) > 0 {
		q.logger.Info().Int("pending", len(items)).Msg("Loaded retry queue")
	}

	return nil
}

// persistPending retries writes that failed earlier. Callers hold q.mu.
func (q *Queue) persistPending(ctx context.Context) error {
	var errs []error

	if len(q.unremoved) > 0 {
		ids := make([]string, 0, len(q.unremoved))
		for id := range q.unremoved {
			ids = append(ids, id)
		}
		if err := q.store.Remove(ctx, ids...); err != nil {
			errs = append(errs, err)
		} else {
			clear(q.unremoved)
		}
	}

	for _, item := range q.items {
		if !q.unsaved[item.ID] {
			continue
		}
		if err := q.store.Add(ctx, item); err != nil {
			errs = append(errs, err)
			continue
		}
		delete(q.unsaved, item.ID)
	}

	if err := errors.Join(errs...); err != nil {
		q.logger.Error().Err(err).Msg("Failed to persist retry queue")
		return err
	}
	return nil
}

// forget removes a delivered item from the store. Callers hold q.mu.
func (q *Queue) forget(ctx context.Context, id string) error {
	if q.unsaved[id] {
		delete(q.unsaved, id)
		return nil
	}

	if err := q.store.Remove(ctx, id); err != nil {
		q.unremoved[id] = true
		q.logger.Error().Err(err).Str("id", id).Msg("Failed to remove delivered scrobble from retry queue")
		return err
	}
	return nil
}

// nextID returns the current time in milliseconds, bumped past the last id
// so ids stay unique and increasing. Callers hold q.mu.
func (q *Queue) nextID() string {
	id := q.now().UnixMilli()
	if id <= q.lastID {
		id = q.lastID + 1
	}
	q.lastID = id
	return strconv.FormatInt(id, 10)
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
