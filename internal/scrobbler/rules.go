package scrobbler

import (
	"time"
)

// Last.fm scrobbling rules constants
const (
	// ScrobblePercentage is the fraction of a track that must be played (50%)
	ScrobblePercentage = 0.5

	// MaxScrobbleThreshold caps the play time required regardless of length
	MaxScrobbleThreshold = 4 * time.Minute

	// DefaultRewindLimit bounds how far into a track a rewind is still
	// treated as a replay.
	DefaultRewindLimit = 10000 * time.Second
)

// ScrobbleThreshold returns the position a track must pass before it is
// scrobbled: half its duration, capped at maxThreshold. A non-positive
// maxThreshold falls back to MaxScrobbleThreshold.
func ScrobbleThreshold(trackDuration, maxThreshold time.Duration) time.Duration {
	if maxThreshold <= 0 {
		maxThreshold = MaxScrobbleThreshold
	}

	threshold := time.Duration(float64(trackDuration) * ScrobblePercentage)
	if threshold > maxThreshold {
		threshold = maxThreshold
	}

	return threshold
}

// ShouldScrobble reports whether position is strictly past the threshold.
func ShouldScrobble(trackDuration, position, maxThreshold time.Duration) bool {
	return position > ScrobbleThreshold(trackDuration, maxThreshold)
}

// IsRewind reports whether the player jumped back to near the start of a
// track that was already scrobbled, which makes the replay count again.
func IsRewind(last *TrackInfo, track, artist string, position, limit time.Duration) bool {
	if last == nil || !last.Same(track, artist) {
		return false
	}
	if limit <= 0 {
		limit = DefaultRewindLimit
	}
	return position < last.Position && position < limit
}
