package daemon

import (
	"sync"
	"time"

	"github.com/jfmyers9/scrobby/internal/music"
	"github.com/jfmyers9/scrobby/internal/scrobbler"
)

// PlayerState is the outcome of one poll.
type PlayerState int

const (
	// StateInactive means there is nothing to track: the player is closed,
	// paused or could not be read.
	StateInactive PlayerState = iota
	// StateActive means a track is playing.
	StateActive
)

func (s PlayerState) String() string {
	if s == StateActive {
		return "active"
	}
	return "inactive"
}

// Action is what the tracker decided after observing one snapshot. Tracks
// are copies and safe to hand to other goroutines.
type Action struct {
	State      PlayerState
	NowPlaying *scrobbler.TrackInfo
	Scrobble   *scrobbler.TrackInfo
	Rewound    bool
}

// TrackerConfig tunes scrobble eligibility and rewind detection.
type TrackerConfig struct {
	MaxThreshold time.Duration
	RewindLimit  time.Duration
	Now          func() time.Time
}

// Tracker infers track transitions from successive player snapshots and
// decides when to announce and when to scrobble.
type Tracker struct {
	mu            sync.Mutex
	nowPlaying    *scrobbler.TrackInfo
	lastScrobbled *scrobbler.TrackInfo

	maxThreshold time.Duration
	rewindLimit  time.Duration
	now          func() time.Time
}

// NewTracker creates a Tracker with empty state.
func NewTracker(cfg TrackerConfig) *Tracker {
	if cfg.MaxThreshold <= 0 {
		cfg.MaxThreshold = scrobbler.MaxScrobbleThreshold
	}
	if cfg.RewindLimit <= 0 {
		cfg.RewindLimit = scrobbler.DefaultRewindLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Tracker{
		maxThreshold: cfg.MaxThreshold,
		rewindLimit:  cfg.RewindLimit,
		now:          cfg.Now,
	}
}

// Observe folds one snapshot into the state. Within a call the checks run
// in order: new track, rewind, eligibility.
func (t *Tracker) Observe(s music.Snapshot) Action {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !s.IsRunning {
		// The pending track is scrobbled on exit unless this play was
		// already scrobbled, which would count it twice.
		var act Action
		if t.nowPlaying != nil && !t.alreadyScrobbled(*t.nowPlaying) {
			track := *t.nowPlaying
			act.Scrobble = &track
		}
		t.nowPlaying = nil
		return act
	}

	if !s.IsPlaying {
		t.nowPlaying = nil
		return Action{}
	}

	act := Action{State: StateActive}
	now := t.now()

	if t.nowPlaying == nil || !t.nowPlaying.Same(s.Track, s.Artist) {
		t.nowPlaying = &scrobbler.TrackInfo{
			Track:     s.Track,
			Artist:    s.Artist,
			Album:     s.Album,
			StartTime: now.Add(-s.Position),
		}
		act.NowPlaying = t.snapshotNowPlaying()
	}

	if scrobbler.IsRewind(t.lastScrobbled, s.Track, s.Artist, s.Position, t.rewindLimit) {
		t.lastScrobbled = nil
		t.nowPlaying.StartTime = now.Add(-s.Position)
		act.NowPlaying = t.snapshotNowPlaying()
		act.Rewound = true
	}

	changed := t.lastScrobbled == nil || !t.lastScrobbled.Same(s.Track, s.Artist)
	if changed && scrobbler.ShouldScrobble(s.Duration, s.Position, t.maxThreshold) {
		act.Scrobble = t.snapshotNowPlaying()
		t.lastScrobbled = &scrobbler.TrackInfo{
			Track:    s.Track,
			Artist:   s.Artist,
			Album:    s.Album,
			Position: s.Position,
		}
	}

	return act
}

// State returns copies of the current and last scrobbled tracks.
func (t *Tracker) State() (nowPlaying, lastScrobbled *scrobbler.TrackInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.nowPlaying != nil {
		c := *t.nowPlaying
		nowPlaying = &c
	}
	if t.lastScrobbled != nil {
		c := *t.lastScrobbled
		lastScrobbled = &c
	}
	return nowPlaying, lastScrobbled
}

func (t *Tracker) snapshotNowPlaying() *scrobbler.TrackInfo {
	c := *t.nowPlaying
	return &c
}

func (t *Tracker) alreadyScrobbled(track scrobbler.TrackInfo) bool {
	return t.lastScrobbled != nil && t.lastScrobbled.Same(track.Track, track.Artist)
}
