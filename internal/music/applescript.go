package music

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const fieldSep = "|||"

// snapshotScript answers with a single delimited record so that running
// state and track data come from one osascript invocation.
const snapshotScript = `
tell application "System Events"
	if not ((name of processes) contains "Music") then
		return "false|||false||||||||||||0|||0"
	end if
end tell
tell application "Music"
	if player state is playing then
		set trackName to name of current track
		set trackArtist to artist of current track
		set trackAlbum to album of current track
		set trackDuration to duration of current track
		set playerPos to player position
		return "true|||true|||" & trackName & "|||" & trackArtist & "|||" & trackAlbum & "|||" & trackDuration & "|||" & playerPos
	else
		return "true|||false||||||||||||0|||0"
	end if
end tell`

// AppleScriptReader reads Apple Music state through osascript.
type AppleScriptReader struct {
	// command runs the script and returns its stdout; replaced in tests.
	command func(ctx context.Context, script string) ([]byte, error)
}

// NewAppleScriptReader creates a Reader for Apple Music on macOS.
func NewAppleScriptReader() *AppleScriptReader {
	return &AppleScriptReader{command: runOsascript}
}

// Snapshot implements Reader.
func (r *AppleScriptReader) Snapshot(ctx context.Context) (Snapshot, error) {
	output, err := r.command(ctx, snapshotScript)
	if err != nil {
		return Snapshot{}, err
	}

	snap, err := parseSnapshot(strings.TrimSpace(string(output)))
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse player state: %w", err)
	}
	return snap, nil
}

func runOsascript(ctx context.Context, script string) ([]byte, error) {
	output, err := exec.CommandContext(ctx, "osascript", "-e", script).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("osascript error: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("failed to execute osascript: %w", err)
	}
	return output, nil
}

// parseSnapshot parses running|||playing|||track|||artist|||album|||duration|||position.
// A track field that itself contains the separator yields the wrong field
// count and the record is rejected.
func parseSnapshot(output string) (Snapshot, error) {
	parts := strings.Split(output, fieldSep)
	if len(parts) != 7 {
		return Snapshot{}, fmt.Errorf("expected 7 fields, got %d: %q", len(parts), output)
	}

	running, err := strconv.ParseBool(strings.TrimSpace(parts[0]))
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse running flag %q: %w", parts[0], err)
	}
	playing, err := strconv.ParseBool(strings.TrimSpace(parts[1]))
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse playing flag %q: %w", parts[1], err)
	}

	if !running || !playing {
		return Snapshot{IsRunning: running}, nil
	}

	// AppleScript may format reals with a decimal comma depending on locale.
	durationSec, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(parts[5]), ",", "."), 64)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse duration %q: %w", parts[5], err)
	}
	positionSec, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(parts[6]), ",", "."), 64)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse position %q: %w", parts[6], err)
	}

	return Snapshot{
		IsRunning: true,
		IsPlaying: true,
		Track:     strings.TrimSpace(parts[2]),
		Artist:    strings.TrimSpace(parts[3]),
		Album:     strings.TrimSpace(parts[4]),
		Duration:  secondsToDuration(durationSec),
		Position:  secondsToDuration(positionSec),
	}, nil
}
