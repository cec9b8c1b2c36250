//go:build integration

package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func buildBinary(t *testing.T) string {
	t.Helper()

	bin := filepath.Join(t.TempDir(), "scrobby")
	build := exec.Command("go", "build", "-o", bin, ".")
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		t.Fatalf("Failed to build binary: %v", err)
	}
	return bin
}

func daemonEnv(t *testing.T) []string {
	t.Helper()
	home := t.TempDir()
	return append(os.Environ(),
		"XDG_CONFIG_HOME="+filepath.Join(home, "config"),
		"XDG_DATA_HOME="+filepath.Join(home, "data"),
		"XDG_STATE_HOME="+filepath.Join(home, "state"),
		"SCROBBY_LASTFM_API_KEY=test_key",
		"SCROBBY_LASTFM_API_SECRET=test_secret",
		"SCROBBY_LASTFM_SESSION_KEY=test_session",
		"SCROBBY_NETWORK_CHECK_HOSTS=127.0.0.1:1",
		"SCROBBY_RETRY_ENABLED=true",
	)
}

// TestDaemonLifecycle starts the daemon, checks the retry store is created
// and that SIGINT shuts it down cleanly.
func TestDaemonLifecycle(t *testing.T) {
	bin := buildBinary(t)
	dataDir := t.TempDir()

	cmd := exec.Command(bin, "daemon", "--data-dir", dataDir, "--log-level", "debug")
	cmd.Env = daemonEnv(t)
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start daemon: %v", err)
	}

	store := filepath.Join(dataDir, "retry.db")
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(store); err == nil {
			break
		}
		if time.Now().After(deadline) {
			_ = cmd.Process.Kill()
			t.Fatalf("Retry store not created: %s", store)
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		t.Fatalf("Failed to signal daemon: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Daemon exited with error: %v", err)
		}
	case <-time.After(15 * time.Second):
		_ = cmd.Process.Kill()
		t.Fatal("Daemon did not stop after SIGINT")
	}
}

// TestDaemonRequiresCredentials checks the daemon refuses to start unauthenticated.
func TestDaemonRequiresCredentials(t *testing.T) {
	bin := buildBinary(t)
	home := t.TempDir()

	cmd := exec.Command(bin, "daemon")
	cmd.Env = append(os.Environ(),
		"XDG_CONFIG_HOME="+filepath.Join(home, "config"),
		"XDG_DATA_HOME="+filepath.Join(home, "data"),
		"SCROBBY_LASTFM_SESSION_KEY=",
	)

	if err := cmd.Run(); err == nil {
		t.Fatal("expected daemon to fail without credentials")
	}
}
