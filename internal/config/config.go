// Package config loads scrobby settings from config.yaml and SCROBBY_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const appName = "scrobby"

// Player backends.
const (
	BackendAppleScript = "applescript"
	BackendMPRIS       = "mpris"
)

// Retry store backends.
const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
)

// Config holds application configuration
type Config struct {
	// Output format template for the now command
	// Default: "{{.Artist}} - {{.Track}}"
	OutputFormat     string
	OutputWidth      int
	MarqueeEnabled   bool
	MarqueeSpeed     int
	MarqueeSeparator string

	Poll     PollConfig
	Scrobble ScrobbleConfig
	Retry    RetryConfig
	Player   PlayerConfig
	Network  NetworkConfig
	Metrics  MetricsConfig

	// Last.fm API credentials
	LastFM LastFMConfig

	dir string
}

// PollConfig controls the player poll loop.
type PollConfig struct {
	ActiveInterval time.Duration
	IdleInterval   time.Duration
	Timeout        time.Duration
}

// ScrobbleConfig controls when a play counts.
type ScrobbleConfig struct {
	MaxThreshold time.Duration
	RewindLimit  time.Duration
}

// RetryConfig controls the retry queue.
type RetryConfig struct {
	Enabled   bool
	Interval  time.Duration
	ItemDelay time.Duration
	Backend   string
	Path      string
}

// PlayerConfig selects the player to read.
type PlayerConfig struct {
	Backend   string
	MPRISName string
}

// NetworkConfig controls the connectivity probe.
type NetworkConfig struct {
	CheckHosts   []string
	CheckTimeout time.Duration
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string
}

// LastFMConfig holds Last.fm specific configuration
type LastFMConfig struct {
	APIKey     string
	APISecret  string
	SessionKey string
}

// Load reads configuration from the default config directory.
func Load() (*Config, error) {
	return LoadFrom(ConfigDir())
}

// LoadFrom reads config.yaml from dir (if present), then the environment.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.AddConfigPath(".")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix("SCROBBY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		OutputFormat:     v.GetString("output_format"),
		OutputWidth:      v.GetInt("output_width"),
		MarqueeEnabled:   v.GetBool("marquee_enabled"),
		MarqueeSpeed:     v.GetInt("marquee_speed"),
		MarqueeSeparator: v.GetString("marquee_separator"),
		Poll: PollConfig{
			ActiveInterval: v.GetDuration("poll.active_interval"),
			IdleInterval:   v.GetDuration("poll.idle_interval"),
			Timeout:        v.GetDuration("poll.timeout"),
		},
		Scrobble: ScrobbleConfig{
			MaxThreshold: v.GetDuration("scrobble.max_threshold"),
			RewindLimit:  v.GetDuration("scrobble.rewind_limit"),
		},
		Retry: RetryConfig{
			Enabled:   v.GetBool("retry.enabled"),
			Interval:  v.GetDuration("retry.interval"),
			ItemDelay: v.GetDuration("retry.item_delay"),
			Backend:   v.GetString("retry.backend"),
			Path:      v.GetString("retry.path"),
		},
		Player: PlayerConfig{
			Backend:   v.GetString("player.backend"),
			MPRISName: v.GetString("player.mpris_name"),
		},
		Network: NetworkConfig{
			CheckHosts:   v.GetStringSlice("network.check_hosts"),
			CheckTimeout: v.GetDuration("network.check_timeout"),
		},
		Metrics: MetricsConfig{
			Addr: v.GetString("metrics.addr"),
		},
		LastFM: LastFMConfig{
			APIKey:     v.GetString("lastfm.api_key"),
			APISecret:  v.GetString("lastfm.api_secret"),
			SessionKey: v.GetString("lastfm.session_key"),
		},
		dir: dir,
	}

	if cfg.Retry.Path == "" {
		cfg.Retry.Path = DefaultRetryPath(cfg.Retry.Backend)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output_format", "{{.Artist}} - {{.Track}}")
	v.SetDefault("output_width", 0)
	v.SetDefault("marquee_enabled", false)
	v.SetDefault("marquee_speed", 2)
	v.SetDefault("marquee_separator", " • ")

	v.SetDefault("poll.active_interval", "10s")
	v.SetDefault("poll.idle_interval", "30s")
	v.SetDefault("poll.timeout", "10s")

	v.SetDefault("scrobble.max_threshold", "4m")
	v.SetDefault("scrobble.rewind_limit", "10000s")

	v.SetDefault("retry.enabled", true)
	v.SetDefault("retry.interval", "10m")
	v.SetDefault("retry.item_delay", "1s")
	v.SetDefault("retry.backend", StoreSQLite)
	v.SetDefault("retry.path", "")

	v.SetDefault("player.backend", defaultPlayerBackend())
	v.SetDefault("player.mpris_name", "org.mpris.MediaPlayer2.spotify")

	v.SetDefault("network.check_hosts", []string{"ws.audioscrobbler.com:443"})
	v.SetDefault("network.check_timeout", "3s")

	v.SetDefault("metrics.addr", "")

	v.SetDefault("lastfm.api_key", "")
	v.SetDefault("lastfm.api_secret", "")
	v.SetDefault("lastfm.session_key", "")
}

func defaultPlayerBackend() string {
	if runtime.GOOS == "darwin" {
		return BackendAppleScript
	}
	return BackendMPRIS
}

// Validate rejects settings the daemon cannot run with.
func (c *Config) Validate() error {
	switch c.Retry.Backend {
	case StoreSQLite, StoreFile:
	default:
		return fmt.Errorf("invalid retry.backend %q: must be %q or %q", c.Retry.Backend, StoreSQLite, StoreFile)
	}

	switch c.Player.Backend {
	case BackendAppleScript, BackendMPRIS:
	default:
		return fmt.Errorf("invalid player.backend %q: must be %q or %q", c.Player.Backend, BackendAppleScript, BackendMPRIS)
	}

	durations := map[string]time.Duration{
		"poll.active_interval": c.Poll.ActiveInterval,
		"poll.idle_interval":   c.Poll.IdleInterval,
		"poll.timeout":         c.Poll.Timeout,
		"retry.interval":       c.Retry.Interval,
	}
	for key, d := range durations {
		if d <= 0 {
			return fmt.Errorf("invalid %s %v: must be positive", key, d)
		}
	}

	return nil
}

// ConfigDir returns the configuration directory path
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// DataDir returns the directory for the retry store and other state.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// DefaultRetryPath returns the default store location for backend.
func DefaultRetryPath(backend string) string {
	if backend == StoreFile {
		return filepath.Join(DataDir(), "retry-queue.json")
	}
	return filepath.Join(DataDir(), "retry.db")
}

// Path returns the file Save writes to.
func (c *Config) Path() string {
	dir := c.dir
	if dir == "" {
		dir = ConfigDir()
	}
	return filepath.Join(dir, "config.yaml")
}

// Save writes configuration to file
func (c *Config) Save() error {
	v := viper.New()

	v.Set("output_format", c.OutputFormat)
	v.Set("output_width", c.OutputWidth)
	v.Set("marquee_enabled", c.MarqueeEnabled)
	v.Set("marquee_speed", c.MarqueeSpeed)
	v.Set("marquee_separator", c.MarqueeSeparator)

	v.Set("poll.active_interval", c.Poll.ActiveInterval.String())
	v.Set("poll.idle_interval", c.Poll.IdleInterval.String())
	v.Set("poll.timeout", c.Poll.Timeout.String())

	v.Set("scrobble.max_threshold", c.Scrobble.MaxThreshold.String())
	v.Set("scrobble.rewind_limit", c.Scrobble.RewindLimit.String())

	v.Set("retry.enabled", c.Retry.Enabled)
	v.Set("retry.interval", c.Retry.Interval.String())
	v.Set("retry.item_delay", c.Retry.ItemDelay.String())
	v.Set("retry.backend", c.Retry.Backend)
	v.Set("retry.path", c.Retry.Path)

	v.Set("player.backend", c.Player.Backend)
	v.Set("player.mpris_name", c.Player.MPRISName)

	v.Set("network.check_hosts", c.Network.CheckHosts)
	v.Set("network.check_timeout", c.Network.CheckTimeout.String())

	v.Set("metrics.addr", c.Metrics.Addr)

	v.Set("lastfm.api_key", c.LastFM.APIKey)
	v.Set("lastfm.api_secret", c.LastFM.APISecret)
	v.Set("lastfm.session_key", c.LastFM.SessionKey)

	path := c.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return os.Chmod(path, 0o600)
}
