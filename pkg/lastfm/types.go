package lastfm

import "time"

// Track describes a track for scrobbling or now playing updates.
type Track struct {
	Artist      string // Required
	Track       string // Required
	Album       string
	AlbumArtist string
	Duration    int // seconds
	TrackNumber int
	MBTrackID   string
}

// Scrobble is a single play with the time it started.
type Scrobble struct {
	Track     Track
	Timestamp time.Time
}

// Token is the result of auth.getToken.
type Token struct {
	Token string
}

// Session is the result of auth.getSession.
type Session struct {
	Key        string
	Username   string
	Subscriber bool
}

// IgnoredMessage explains why Last.fm ignored a submission. Code 0 means
// it was not ignored.
type IgnoredMessage struct {
	Code int
	Text string
}

// NowPlayingResponse is the result of track.updateNowPlaying.
type NowPlayingResponse struct {
	Artist  string
	Track   string
	Album   string
	Ignored IgnoredMessage
}

// ScrobbleResult is the per-track part of a track.scrobble response.
type ScrobbleResult struct {
	Artist    string
	Track     string
	Album     string
	Timestamp int64
	Ignored   IgnoredMessage
}

// ScrobbleResponse is the result of track.scrobble.
type ScrobbleResponse struct {
	Accepted  int
	Ignored   int
	Scrobbles []ScrobbleResult
}
