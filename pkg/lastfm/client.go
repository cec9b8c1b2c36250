package lastfm

import (
	"fmt"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the Last.fm API endpoint.
	DefaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

	// DefaultAuthURL is where users authorize a request token.
	DefaultAuthURL = "https://www.last.fm/api/auth/"

	defaultUserAgent = "scrobby/1.0"
)

// Config holds client configuration.
type Config struct {
	APIKey     string       // Required: Last.fm API key
	APISecret  string       // Required: Last.fm API secret
	HTTPClient *http.Client // Optional: defaults to a client with a 30s timeout
	BaseURL    string       // Optional: API endpoint, overridden in tests
	UserAgent  string       // Optional: User-Agent header
	Logger     Logger       // Optional: debug logging sink
	MaxRetries int          // Optional: attempts per call, defaults to 3
}

// Logger is an optional interface for debug logging.
type Logger interface {
	Debugf(format string, args ...interface{})
}

// Client is the entry point for Last.fm API operations.
type Client struct {
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     Logger
	maxRetries int

	// backoff is the first retry delay; doubled per attempt up to maxBackoff.
	backoff time.Duration

	auth     *AuthService
	scrobble *ScrobbleService
}

// NewClient creates a new Last.fm API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: APIKey is required", ErrInvalidConfig)
	}
	if cfg.APISecret == "" {
		return nil, fmt.Errorf("%w: APISecret is required", ErrInvalidConfig)
	}

	c := &Client{
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		httpClient: cfg.HTTPClient,
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		logger:     cfg.Logger,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Second,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if c.maxRetries <= 0 {
		c.maxRetries = 3
	}

	c.auth = &AuthService{client: c}
	c.scrobble = &ScrobbleService{client: c}

	return c, nil
}

// Auth returns the authentication service.
func (c *Client) Auth() *AuthService {
	return c.auth
}

// Scrobble returns the scrobbling service.
func (c *Client) Scrobble() *ScrobbleService {
	return c.scrobble
}

// APIKey returns the configured API key.
func (c *Client) APIKey() string {
	return c.apiKey
}

func (c *Client) debugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
