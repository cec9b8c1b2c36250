package music

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	mprisPath            = "/org/mpris/MediaPlayer2"
	mprisPlayerInterface = "org.mpris.MediaPlayer2.Player"
	dbusPropertiesGetAll = "org.freedesktop.DBus.Properties.GetAll"
	dbusNameHasOwner     = "org.freedesktop.DBus.NameHasOwner"

	// DefaultMPRISName is the bus name queried when none is configured.
	DefaultMPRISName = "org.mpris.MediaPlayer2.spotify"
)

// mprisBus is the subset of D-Bus the reader needs.
type mprisBus interface {
	HasOwner(ctx context.Context, name string) (bool, error)
	PlayerProperties(ctx context.Context, name string) (map[string]dbus.Variant, error)
	Connected() bool
	Close() error
}

// MPRISReader reads a single MPRIS-compatible player over the session bus.
type MPRISReader struct {
	name string
	dial func() (mprisBus, error)

	mu  sync.Mutex
	bus mprisBus
}

// NewMPRISReader creates a Reader for the player owning busName.
// The session bus connection is opened on first use.
func NewMPRISReader(busName string) *MPRISReader {
	if busName == "" {
		busName = DefaultMPRISName
	}
	return &MPRISReader{name: busName, dial: dialSessionBus}
}

// Snapshot implements Reader.
func (r *MPRISReader) Snapshot(ctx context.Context) (Snapshot, error) {
	bus, err := r.connect()
	if err != nil {
		return Snapshot{}, err
	}

	running, err := bus.HasOwner(ctx, r.name)
	if err != nil {
		r.dropIfDisconnected(bus)
		return Snapshot{}, fmt.Errorf("failed to check for %s: %w", r.name, err)
	}
	if !running {
		return Snapshot{}, nil
	}

	props, err := bus.PlayerProperties(ctx, r.name)
	if err != nil {
		r.dropIfDisconnected(bus)
		return Snapshot{}, fmt.Errorf("failed to read player properties: %w", err)
	}

	return snapshotFromProperties(props)
}

func (r *MPRISReader) connect() (mprisBus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bus != nil {
		return r.bus, nil
	}

	bus, err := r.dial()
	if err != nil {
		return nil, err
	}
	r.bus = bus
	return bus, nil
}

// dropIfDisconnected forgets a connection the bus has closed so the next
// Snapshot dials a new one.
func (r *MPRISReader) dropIfDisconnected(bus mprisBus) {
	if bus.Connected() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bus == bus {
		r.bus = nil
		_ = bus.Close()
	}
}

func dialSessionBus() (mprisBus, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &sessionBus{conn: conn}, nil
}

// sessionBus implements mprisBus on a private session bus connection.
type sessionBus struct {
	conn *dbus.Conn
}

func (b *sessionBus) Connected() bool { return b.conn.Connected() }

func (b *sessionBus) Close() error { return b.conn.Close() }

func (b *sessionBus) HasOwner(ctx context.Context, name string) (bool, error) {
	var has bool
	err := b.conn.BusObject().CallWithContext(ctx, dbusNameHasOwner, 0, name).Store(&has)
	return has, err
}

func (b *sessionBus) PlayerProperties(ctx context.Context, name string) (map[string]dbus.Variant, error) {
	var props map[string]dbus.Variant
	err := b.conn.Object(name, mprisPath).
		CallWithContext(ctx, dbusPropertiesGetAll, 0, mprisPlayerInterface).
		Store(&props)
	return props, err
}

// snapshotFromProperties maps org.mpris.MediaPlayer2.Player properties to
// a Snapshot. Lengths and positions are reported in microseconds.
func snapshotFromProperties(props map[string]dbus.Variant) (Snapshot, error) {
	snap := Snapshot{IsRunning: true}

	status, _ := props["PlaybackStatus"].Value().(string)
	if status != "Playing" {
		return snap, nil
	}

	metaVariant, ok := props["Metadata"]
	if !ok {
		return Snapshot{}, fmt.Errorf("player reported no metadata")
	}
	meta, ok := metaVariant.Value().(map[string]dbus.Variant)
	if !ok {
		return Snapshot{}, fmt.Errorf("unexpected metadata type %s", metaVariant.Signature())
	}

	snap.IsPlaying = true
	snap.Track, _ = meta["xesam:title"].Value().(string)
	snap.Album, _ = meta["xesam:album"].Value().(string)
	if artists, ok := meta["xesam:artist"].Value().([]string); ok && len(artists) > 0 {
		snap.Artist = artists[0]
	}
	snap.Duration = microseconds(meta["mpris:length"])
	snap.Position = microseconds(props["Position"])

	return snap, nil
}

// microseconds converts an integer variant to a duration. Players disagree
// on the integer type, so all of them are accepted.
func microseconds(v dbus.Variant) time.Duration {
	switch n := v.Value().(type) {
	case int64:
		return time.Duration(n) * time.Microsecond
	case uint64:
		return time.Duration(n) * time.Microsecond
	case int32:
		return time.Duration(n) * time.Microsecond
	case uint32:
		return time.Duration(n) * time.Microsecond
	case float64:
		return time.Duration(n * float64(time.Microsecond))
	default:
		return 0
	}
}
