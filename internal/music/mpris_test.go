package music

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
)

type fakeBus struct {
	owner        bool
	ownerErr     error
	props        map[string]dbus.Variant
	propsErr     error
	disconnected bool
	closed       bool
}

func (b *fakeBus) Connected() bool { return !b.disconnected }

func (b *fakeBus) Close() error {
	b.closed = true
	return nil
}

func (b *fakeBus) HasOwner(ctx context.Context, name string) (bool, error) {
	return b.owner, b.ownerErr
}

func (b *fakeBus) PlayerProperties(ctx context.Context, name string) (map[string]dbus.Variant, error) {
	return b.props, b.propsErr
}

func playingProps() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant("Playing"),
		"Position":       dbus.MakeVariant(int64(61_500_000)),
		"Metadata": dbus.MakeVariant(map[string]dbus.Variant{
			"xesam:title":  dbus.MakeVariant("Paranoid Android"),
			"xesam:artist": dbus.MakeVariant([]string{"Radiohead", "Other"}),
			"xesam:album":  dbus.MakeVariant("OK Computer"),
			"mpris:length": dbus.MakeVariant(uint64(387_000_000)),
		}),
	}
}

func TestSnapshotFromProperties(t *testing.T) {
	tests := []struct {
		name    string
		props   map[string]dbus.Variant
		want    Snapshot
		wantErr bool
	}{
		{
			name:  "playing",
			props: playingProps(),
			want: Snapshot{
				IsRunning: true,
				IsPlaying: true,
				Track:     "Paranoid Android",
				Artist:    "Radiohead",
				Album:     "OK Computer",
				Duration:  387 * time.Second,
				Position:  61*time.Second + 500*time.Millisecond,
			},
		},
		{
			name: "paused",
			props: map[string]dbus.Variant{
				"PlaybackStatus": dbus.MakeVariant("Paused"),
			},
			want: Snapshot{IsRunning: true},
		},
		{
			name:  "no status",
			props: map[string]dbus.Variant{},
			want:  Snapshot{IsRunning: true},
		},
		{
			name: "playing without metadata",
			props: map[string]dbus.Variant{
				"PlaybackStatus": dbus.MakeVariant("Playing"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := snapshotFromProperties(tt.props)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("snapshotFromProperties() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMPRISReader_Snapshot(t *testing.T) {
	t.Run("player not on bus", func(t *testing.T) {
		r := NewMPRISReader("")
		r.bus = &fakeBus{owner: false}

		snap, err := r.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snap.IsRunning {
			t.Error("expected player not running")
		}
		if r.name != DefaultMPRISName {
			t.Errorf("expected default bus name, got %s", r.name)
		}
	})

	t.Run("playing", func(t *testing.T) {
		r := NewMPRISReader("org.mpris.MediaPlayer2.vlc")
		r.bus = &fakeBus{owner: true, props: playingProps()}

		snap, err := r.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !snap.IsPlaying || snap.Artist != "Radiohead" {
			t.Errorf("unexpected snapshot: %+v", snap)
		}
	})

	t.Run("bus errors", func(t *testing.T) {
		boom := errors.New("connection reset")
		r := NewMPRISReader("")
		r.bus = &fakeBus{ownerErr: boom}
		if _, err := r.Snapshot(context.Background()); !errors.Is(err, boom) {
			t.Errorf("expected %v, got %v", boom, err)
		}

		r.bus = &fakeBus{owner: true, propsErr: boom}
		if _, err := r.Snapshot(context.Background()); !errors.Is(err, boom) {
			t.Errorf("expected %v, got %v", boom, err)
		}
	})
}

func TestMPRISReader_Reconnect(t *testing.T) {
	dropped := &fakeBus{ownerErr: errors.New("connection closed"), disconnected: true}
	fresh := &fakeBus{owner: true, props: playingProps()}

	dials := 0
	r := NewMPRISReader("")
	r.dial = func() (mprisBus, error) {
		dials++
		if dials == 1 {
			return dropped, nil
		}
		return fresh, nil
	}

	if _, err := r.Snapshot(context.Background()); err == nil {
		t.Fatal("expected error from closed connection")
	}
	if !dropped.closed {
		t.Error("expected closed connection to be released")
	}

	snap, err := r.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error after reconnect: %v", err)
	}
	if !snap.IsPlaying {
		t.Errorf("expected playing snapshot, got %+v", snap)
	}
	if dials != 2 {
		t.Errorf("expected 2 dials, got %d", dials)
	}

	// A failed call on a healthy connection keeps it.
	fresh.propsErr = errors.New("timeout")
	if _, err := r.Snapshot(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := r.Snapshot(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if dials != 2 || fresh.closed {
		t.Errorf("healthy connection was dropped (dials=%d closed=%v)", dials, fresh.closed)
	}
}

func TestMicroseconds(t *testing.T) {
	tests := []struct {
		v    dbus.Variant
		want time.Duration
	}{
		{dbus.MakeVariant(int64(1_000_000)), time.Second},
		{dbus.MakeVariant(uint64(2_000_000)), 2 * time.Second},
		{dbus.MakeVariant(int32(500_000)), 500 * time.Millisecond},
		{dbus.MakeVariant(float64(250_000)), 250 * time.Millisecond},
		{dbus.MakeVariant("nope"), 0},
		{dbus.Variant{}, 0},
	}

	for _, tt := range tests {
		if got := microseconds(tt.v); got != tt.want {
			t.Errorf("microseconds(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
