package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"active interval", cfg.Poll.ActiveInterval, 10 * time.Second},
		{"idle interval", cfg.Poll.IdleInterval, 30 * time.Second},
		{"poll timeout", cfg.Poll.Timeout, 10 * time.Second},
		{"max threshold", cfg.Scrobble.MaxThreshold, 4 * time.Minute},
		{"rewind limit", cfg.Scrobble.RewindLimit, 10000 * time.Second},
		{"retry enabled", cfg.Retry.Enabled, true},
		{"retry interval", cfg.Retry.Interval, 10 * time.Minute},
		{"retry item delay", cfg.Retry.ItemDelay, time.Second},
		{"retry backend", cfg.Retry.Backend, StoreSQLite},
		{"retry path", cfg.Retry.Path, DefaultRetryPath(StoreSQLite)},
		{"mpris name", cfg.Player.MPRISName, "org.mpris.MediaPlayer2.spotify"},
		{"check timeout", cfg.Network.CheckTimeout, 3 * time.Second},
		{"metrics addr", cfg.Metrics.Addr, ""},
		{"output format", cfg.OutputFormat, "{{.Artist}} - {{.Track}}"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	wantBackend := BackendMPRIS
	if runtime.GOOS == "darwin" {
		wantBackend = BackendAppleScript
	}
	if cfg.Player.Backend != wantBackend {
		t.Errorf("player backend = %q, want %q", cfg.Player.Backend, wantBackend)
	}

	if len(cfg.Network.CheckHosts) != 1 || cfg.Network.CheckHosts[0] != "ws.audioscrobbler.com:443" {
		t.Errorf("check hosts = %v", cfg.Network.CheckHosts)
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	writeConfig(t, dir, `
poll:
  active_interval: 5s
retry:
  backend: file
  enabled: false
player:
  backend: mpris
  mpris_name: org.mpris.MediaPlayer2.vlc
lastfm:
  api_key: key
  api_secret: secret
  session_key: session
`)

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Poll.ActiveInterval != 5*time.Second {
		t.Errorf("active interval = %v", cfg.Poll.ActiveInterval)
	}
	if cfg.Poll.IdleInterval != 30*time.Second {
		t.Errorf("idle interval should keep its default, got %v", cfg.Poll.IdleInterval)
	}
	if cfg.Retry.Enabled {
		t.Error("retry should be disabled")
	}
	if cfg.Retry.Path != DefaultRetryPath(StoreFile) {
		t.Errorf("retry path = %q", cfg.Retry.Path)
	}
	if !strings.HasSuffix(cfg.Retry.Path, "retry-queue.json") {
		t.Errorf("file backend should default to a json file, got %q", cfg.Retry.Path)
	}
	if cfg.Player.MPRISName != "org.mpris.MediaPlayer2.vlc" {
		t.Errorf("mpris name = %q", cfg.Player.MPRISName)
	}
	if cfg.LastFM != (LastFMConfig{APIKey: "key", APISecret: "secret", SessionKey: "session"}) {
		t.Errorf("lastfm = %+v", cfg.LastFM)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SCROBBY_POLL_IDLE_INTERVAL", "1m")
	t.Setenv("SCROBBY_LASTFM_SESSION_KEY", "from-env")

	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Poll.IdleInterval != time.Minute {
		t.Errorf("idle interval = %v, want 1m", cfg.Poll.IdleInterval)
	}
	if cfg.LastFM.SessionKey != "from-env" {
		t.Errorf("session key = %q", cfg.LastFM.SessionKey)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown retry backend", "retry:\n  backend: redis\n"},
		{"unknown player backend", "player:\n  backend: winamp\n"},
		{"zero interval", "poll:\n  active_interval: 0s\n"},
		{"malformed yaml", "poll: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			dir := t.TempDir()
			writeConfig(t, dir, tt.body)

			if _, err := LoadFrom(dir); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	cfg.LastFM = LastFMConfig{APIKey: "k", APISecret: "s", SessionKey: "sk"}
	cfg.Poll.ActiveInterval = 7 * time.Second

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0o600 {
		t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.LastFM != cfg.LastFM {
		t.Errorf("lastfm = %+v, want %+v", loaded.LastFM, cfg.LastFM)
	}
	if loaded.Poll.ActiveInterval != 7*time.Second {
		t.Errorf("active interval = %v", loaded.Poll.ActiveInterval)
	}
}
