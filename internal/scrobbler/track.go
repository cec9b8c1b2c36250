// Package scrobbler holds the scrobble domain: the track record that flows
// through dispatch, the Last.fm rules for when a play counts, the remote
// client adapter and the persistent retry queue.
package scrobbler

import "time"

// TrackInfo identifies a played track and, once scrobble-worthy, when it
// started and how far it had progressed.
//
// A zero StartTime means unknown; the scrobble is then stamped with the
// submission time. A zero Position means unknown.
type TrackInfo struct {
	// ID is assigned by the retry queue when the track is enqueued.
	ID string

	Track  string
	Artist string
	Album  string

	StartTime time.Time
	Position  time.Duration
}

// Same reports whether t refers to the given track by title and artist.
func (t TrackInfo) Same(track, artist string) bool {
	return t.Track == track && t.Artist == artist
}

// Timestamp returns the time a scrobble for t should carry.
func (t TrackInfo) Timestamp(now time.Time) time.Time {
	if t.StartTime.IsZero() {
		return now
	}
	return t.StartTime
}
