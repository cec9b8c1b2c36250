package scrobbler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/scrobby/pkg/lastfm"
)

// Client wraps the Last.fm API client. The session key travels with each
// call so one Client can serve before and after authentication.
type Client struct {
	client *lastfm.Client
}

// ClientOption customizes the underlying Last.fm client.
type ClientOption func(*lastfm.Config)

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *lastfm.Config) { c.BaseURL = url }
}

// WithMaxRetries sets the number of attempts per API call.
func WithMaxRetries(n int) ClientOption {
	return func(c *lastfm.Config) { c.MaxRetries = n }
}

// NewClient creates a Last.fm client that logs request details at debug level.
func NewClient(apiKey, apiSecret string, logger zerolog.Logger, opts ...ClientOption) (*Client, error) {
	cfg := lastfm.Config{
		APIKey:    apiKey,
		APISecret: apiSecret,
		UserAgent: "scrobby",
		Logger:    debugLogger{logger.With().Str("component", "lastfm").Logger()},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := lastfm.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create lastfm client: %w", err)
	}
	return &Client{client: client}, nil
}

// AuthenticateWithToken initiates the authentication flow
// Returns the auth URL that the user should visit
func (c *Client) AuthenticateWithToken(ctx context.Context) (token string, authURL string, err error) {
	tokenResp, err := c.client.Auth().GetToken(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to get auth token: %w", err)
	}

	return tokenResp.Token, c.client.Auth().GetAuthURL(tokenResp.Token), nil
}

// GetSession completes the authentication flow after user authorization
// Returns the session key that should be stored for future use
func (c *Client) GetSession(ctx context.Context, token string) (sessionKey string, err error) {
	session, err := c.client.Auth().GetSession(ctx, token)
	if err != nil {
		return "", fmt.Errorf("failed to login with token: %w", err)
	}

	if session.Key == "" {
		return "", errors.New("received empty session key")
	}

	return session.Key, nil
}

// SubmitNowPlaying announces the track as currently playing. The result is
// false when Last.fm answered but ignored the update.
func (c *Client) SubmitNowPlaying(ctx context.Context, sessionKey string, t TrackInfo) (bool, error) {
	resp, err := c.client.Scrobble().UpdateNowPlaying(ctx, sessionKey, lastfmTrack(t))
	if err != nil {
		return false, fmt.Errorf("failed to update now playing: %w", err)
	}

	return resp.Ignored.Code == 0, nil
}

// SubmitScrobble records a play. The result is true only when Last.fm
// accepted the scrobble.
func (c *Client) SubmitScrobble(ctx context.Context, sessionKey string, t TrackInfo) (bool, error) {
	resp, err := c.client.Scrobble().Scrobble(ctx, sessionKey, lastfmTrack(t), t.Timestamp(time.Now()))
	if err != nil {
		return false, fmt.Errorf("failed to scrobble track: %w", err)
	}

	return resp.Accepted == 1, nil
}

func lastfmTrack(t TrackInfo) lastfm.Track {
	return lastfm.Track{
		Artist: t.Artist,
		Track:  t.Track,
		Album:  t.Album,
	}
}

type debugLogger struct {
	logger zerolog.Logger
}

func (l debugLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}
