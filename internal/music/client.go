// Package music reads the playback state of a local media player.
package music

import (
	"context"
	"time"
)

// Snapshot is a point-in-time view of the media player. Track, Artist and
// Album are empty and Duration/Position are zero unless IsPlaying is true.
type Snapshot struct {
	IsRunning bool          // Player process is running
	IsPlaying bool          // Player is actively playing (not paused or stopped)
	Track     string        // Track name/title
	Artist    string        // Artist name
	Album     string        // Album name
	Duration  time.Duration // Total track duration
	Position  time.Duration // Current playback position
}

// Reader returns the current player snapshot. Implementations must not
// change player state; an error means the player could not be queried.
type Reader interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(ctx context.Context) (Snapshot, error)

// Snapshot calls f(ctx).
func (f ReaderFunc) Snapshot(ctx context.Context) (Snapshot, error) {
	return f(ctx)
}

// secondsToDuration converts seconds (as float) to time.Duration
func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
