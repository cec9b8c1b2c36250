package lastfm

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// MaxBatchSize is the most scrobbles Last.fm accepts in one request.
const MaxBatchSize = 50

// ScrobbleService submits plays and now playing notices.
type ScrobbleService struct {
	client *Client
}

// UpdateNowPlaying tells Last.fm that track has started playing. It does
// not count as a play.
func (s *ScrobbleService) UpdateNowPlaying(ctx context.Context, sessionKey string, track Track) (*NowPlayingResponse, error) {
	if err := validateTrack(track); err != nil {
		return nil, err
	}

	params := trackParams(track, "")
	inner, err := s.client.call(ctx, "track.updateNowPlaying", params, sessionKey, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Artist  string     `xml:"nowplaying>artist"`
		Track   string     `xml:"nowplaying>track"`
		Album   string     `xml:"nowplaying>album"`
		Ignored ignoredXML `xml:"nowplaying>ignoredMessage"`
	}
	if err := decodeInner(inner, &resp); err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse now playing response: %w", err)
	}

	return &NowPlayingResponse{
		Artist:  resp.Artist,
		Track:   resp.Track,
		Album:   resp.Album,
		Ignored: resp.Ignored.message(),
	}, nil
}

// Scrobble submits a single play that started at timestamp.
func (s *ScrobbleService) Scrobble(ctx context.Context, sessionKey string, track Track, timestamp time.Time) (*ScrobbleResponse, error) {
	return s.ScrobbleBatch(ctx, sessionKey, []Scrobble{{Track: track, Timestamp: timestamp}})
}

// ScrobbleBatch submits up to MaxBatchSize plays in one request. Extra
// scrobbles beyond the limit are rejected rather than silently dropped.
func (s *ScrobbleService) ScrobbleBatch(ctx context.Context, sessionKey string, scrobbles []Scrobble) (*ScrobbleResponse, error) {
	if len(scrobbles) == 0 {
		return &ScrobbleResponse{}, nil
	}
	if len(scrobbles) > MaxBatchSize {
		return nil, fmt.Errorf("lastfm: cannot scrobble more than %d tracks at once (got %d)", MaxBatchSize, len(scrobbles))
	}

	params := make(map[string]string, len(scrobbles)*4)
	for i, sc := range scrobbles {
		if err := validateTrack(sc.Track); err != nil {
			return nil, fmt.Errorf("scrobble %d: %w", i, err)
		}
		suffix := "[" + strconv.Itoa(i) + "]"
		for k, v := range trackParams(sc.Track, suffix) {
			params[k] = v
		}
		params["timestamp"+suffix] = strconv.FormatInt(sc.Timestamp.Unix(), 10)
	}

	inner, err := s.client.call(ctx, "track.scrobble", params, sessionKey, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Scrobbles struct {
			Accepted int `xml:"accepted,attr"`
			Ignored  int `xml:"ignored,attr"`
			Items    []struct {
				Artist    string     `xml:"artist"`
				Track     string     `xml:"track"`
				Album     string     `xml:"album"`
				Timestamp int64      `xml:"timestamp"`
				Ignored   ignoredXML `xml:"ignoredMessage"`
			} `xml:"scrobble"`
		} `xml:"scrobbles"`
	}
	if err := decodeInner(inner, &resp); err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse scrobble response: %w", err)
	}

	out := &ScrobbleResponse{
		Accepted:  resp.Scrobbles.Accepted,
		Ignored:   resp.Scrobbles.Ignored,
		Scrobbles: make([]ScrobbleResult, len(resp.Scrobbles.Items)),
	}
	for i, r := range resp.Scrobbles.Items {
		out.Scrobbles[i] = ScrobbleResult{
			Artist:    r.Artist,
			Track:     r.Track,
			Album:     r.Album,
			Timestamp: r.Timestamp,
			Ignored:   r.Ignored.message(),
		}
	}

	return out, nil
}

type ignoredXML struct {
	Code int    `xml:"code,attr"`
	Text string `xml:",chardata"`
}

func (i ignoredXML) message() IgnoredMessage {
	return IgnoredMessage{Code: i.Code, Text: i.Text}
}

func validateTrack(t Track) error {
	if t.Artist == "" || t.Track == "" {
		return fmt.Errorf("lastfm: artist and track are required")
	}
	return nil
}

// trackParams builds the request parameters for t, appending suffix
// (e.g. "[0]") to each key for batch requests.
func trackParams(t Track, suffix string) map[string]string {
	p := map[string]string{
		"artist" + suffix: t.Artist,
		"track" + suffix:  t.Track,
	}
	if t.Album != "" {
		p["album"+suffix] = t.Album
	}
	if t.AlbumArtist != "" {
		p["albumArtist"+suffix] = t.AlbumArtist
	}
	if t.Duration > 0 {
		p["duration"+suffix] = strconv.Itoa(t.Duration)
	}
	if t.TrackNumber > 0 {
		p["trackNumber"+suffix] = strconv.Itoa(t.TrackNumber)
	}
	if t.MBTrackID != "" {
		p["mbid"+suffix] = t.MBTrackID
	}
	return p
}
