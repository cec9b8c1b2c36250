package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jfmyers9/scrobby/internal/config"
	"github.com/jfmyers9/scrobby/internal/music"
	"github.com/jfmyers9/scrobby/internal/scrobbler"
)

// newReader returns the snapshot reader selected by player.backend.
func newReader(cfg *config.Config) music.Reader {
	if cfg.Player.Backend == config.BackendMPRIS {
		return music.NewMPRISReader(cfg.Player.MPRISName)
	}
	return music.NewAppleScriptReader()
}

// retryPath resolves the retry store location, relocating it under dataDir
// when one is given.
func retryPath(cfg *config.Config, dataDir string) string {
	if dataDir == "" {
		return cfg.Retry.Path
	}
	return filepath.Join(dataDir, filepath.Base(cfg.Retry.Path))
}

// openStore opens the retry store selected by retry.backend. The returned
// closer must be closed once the queue is no longer used.
func openStore(cfg *config.Config, path string) (scrobbler.Store, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if cfg.Retry.Backend == config.StoreFile {
		return scrobbler.NewFileStore(path), closeFunc(func() error { return nil }), nil
	}

	store, err := scrobbler.NewSQLiteStore(path)
	if err != nil {
		return nil, nil, err
	}
	return store, store, nil
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }
