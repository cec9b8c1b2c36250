package music

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestAppleScriptReader_Integration queries the real Music app.
func TestAppleScriptReader_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if _, err := runOsascript(context.Background(), `return "ok"`); err != nil {
		t.Skip("osascript not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := NewAppleScriptReader().Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() failed: %v", err)
	}
	if !snap.IsPlaying {
		t.Logf("Music running: %v, not playing", snap.IsRunning)
		return
	}
	if snap.Position < 0 || snap.Position > snap.Duration {
		t.Errorf("Position (%v) outside [0, %v]", snap.Position, snap.Duration)
	}
	t.Logf("Now playing: %s - %s (%s) %v/%v", snap.Artist, snap.Track, snap.Album, snap.Position, snap.Duration)
}

func TestParseSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Snapshot
		wantErr bool
	}{
		{
			name:  "playing track",
			input: "true|||true|||Bohemian Rhapsody|||Queen|||A Night at the Opera|||354.0|||120.5",
			want: Snapshot{
				IsRunning: true,
				IsPlaying: true,
				Track:     "Bohemian Rhapsody",
				Artist:    "Queen",
				Album:     "A Night at the Opera",
				Duration:  354 * time.Second,
				Position:  120*time.Second + 500*time.Millisecond,
			},
		},
		{
			name:  "decimal comma locale",
			input: "true|||true|||Track|||Artist|||Album|||180,5|||60,25",
			want: Snapshot{
				IsRunning: true,
				IsPlaying: true,
				Track:     "Track",
				Artist:    "Artist",
				Album:     "Album",
				Duration:  180*time.Second + 500*time.Millisecond,
				Position:  60*time.Second + 250*time.Millisecond,
			},
		},
		{
			name:  "empty album",
			input: "true|||true|||Test Track|||Test Artist||||||180.0|||60.0",
			want: Snapshot{
				IsRunning: true,
				IsPlaying: true,
				Track:     "Test Track",
				Artist:    "Test Artist",
				Duration:  180 * time.Second,
				Position:  60 * time.Second,
			},
		},
		{
			name:  "running but paused",
			input: "true|||false||||||||||||0|||0",
			want:  Snapshot{IsRunning: true},
		},
		{
			name:  "not running",
			input: "false|||false||||||||||||0|||0",
			want:  Snapshot{},
		},
		{
			name:    "wrong number of fields",
			input:   "true|||true|||Track|||Artist",
			wantErr: true,
		},
		{
			name:    "bad running flag",
			input:   "yes|||true|||Track|||Artist|||Album|||180.0|||60.0",
			wantErr: true,
		},
		{
			name:    "bad duration",
			input:   "true|||true|||Track|||Artist|||Album|||bad|||60.0",
			wantErr: true,
		},
		{
			name:    "bad position",
			input:   "true|||true|||Track|||Artist|||Album|||180.0|||bad",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSnapshot(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("parseSnapshot() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSnapshot() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseSnapshot() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAppleScriptReader_Snapshot(t *testing.T) {
	t.Run("parses command output", func(t *testing.T) {
		r := &AppleScriptReader{command: func(ctx context.Context, script string) ([]byte, error) {
			return []byte("true|||true|||A|||X|||Album|||100|||60\n"), nil
		}}

		snap, err := r.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("Snapshot() unexpected error: %v", err)
		}
		if !snap.IsPlaying || snap.Track != "A" || snap.Position != 60*time.Second {
			t.Errorf("unexpected snapshot: %+v", snap)
		}
	})

	t.Run("propagates command failure", func(t *testing.T) {
		boom := errors.New("osascript error: not authorized")
		r := &AppleScriptReader{command: func(ctx context.Context, script string) ([]byte, error) {
			return nil, boom
		}}

		if _, err := r.Snapshot(context.Background()); !errors.Is(err, boom) {
			t.Errorf("Snapshot() error = %v, want %v", err, boom)
		}
	})
}

func TestReaderFunc(t *testing.T) {
	var r Reader = ReaderFunc(func(ctx context.Context) (Snapshot, error) {
		return Snapshot{IsRunning: true}, nil
	})
	snap, err := r.Snapshot(context.Background())
	if err != nil || !snap.IsRunning {
		t.Errorf("ReaderFunc.Snapshot() = %+v, %v", snap, err)
	}
}
