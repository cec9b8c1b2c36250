package daemon

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jfmyers9/scrobby/internal/music"
	"github.com/jfmyers9/scrobby/internal/scrobbler"
)

type fakeRemote struct {
	mu          sync.Mutex
	nowPlaying  []scrobbler.TrackInfo
	scrobbles   []scrobbler.TrackInfo
	ctxErrs     []error
	npErr       error
	scrobbleErr error
	reject      bool
	panicOn     string
}

func (r *fakeRemote) SubmitNowPlaying(ctx context.Context, sessionKey string, t scrobbler.TrackInfo) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panicOn == "now-playing" {
		panic("now playing exploded")
	}
	r.nowPlaying = append(r.nowPlaying, t)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	if r.npErr != nil {
		return false, r.npErr
	}
	return !r.reject, nil
}

func (r *fakeRemote) SubmitScrobble(ctx context.Context, sessionKey string, t scrobbler.TrackInfo) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panicOn == "scrobble" {
		panic("scrobble exploded")
	}
	r.scrobbles = append(r.scrobbles, t)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	if r.scrobbleErr != nil {
		return false, r.scrobbleErr
	}
	return !r.reject, nil
}

func (r *fakeRemote) counts() (nowPlaying, scrobbles int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nowPlaying), len(r.scrobbles)
}

func (r *fakeRemote) lastScrobble() scrobbler.TrackInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scrobbles[len(r.scrobbles)-1]
}

func (r *fakeRemote) lastNowPlaying() scrobbler.TrackInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nowPlaying[len(r.nowPlaying)-1]
}

type fakeNetwork struct {
	offline atomic.Bool
}

func (n *fakeNetwork) Online(ctx context.Context) bool {
	return !n.offline.Load()
}

type fakeQueue struct {
	mu    sync.Mutex
	items []scrobbler.TrackInfo
	err   error
}

func (q *fakeQueue) Enqueue(ctx context.Context, t scrobbler.TrackInfo) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.items = append(q.items, t)
	return nil
}

func (q *fakeQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func playing(track, artist string, duration, position time.Duration) music.Snapshot {
	return music.Snapshot{
		IsRunning: true,
		IsPlaying: true,
		Track:     track,
		Artist:    artist,
		Album:     "Album",
		Duration:  duration,
		Position:  position,
	}
}

var (
	paused  = music.Snapshot{IsRunning: true}
	stopped = music.Snapshot{}
)
