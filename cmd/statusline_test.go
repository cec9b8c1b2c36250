package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/jfmyers9/scrobby/internal/music"
)

func TestPadToWidth(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{"no padding when width is 0", "Hello", 0, "Hello"},
		{"no padding when width is negative", "Hello", -1, "Hello"},
		{"pad short text with spaces", "Hi", 10, "Hi        "},
		{"exact width unchanged", "Hello", 5, "Hello"},
		{"truncate long text with ellipsis", "This is a very long string that needs truncation", 20, "This is a very lo..."},
		{"wide characters count double", "日本語", 10, "日本語    "},
		{"truncate wide characters", "日本語とても長いテキスト", 10, "日本語... "},
		{"empty string padding", "", 5, "     "},
		{"minimum width for truncation", "Hello", 3, "..."},
		{"width below ellipsis", "Hello", 2, ".."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := padToWidth(tt.input, tt.width)
			if result != tt.expected {
				t.Errorf("padToWidth(%q, %d) = %q, expected %q", tt.input, tt.width, result, tt.expected)
			}

			if tt.width > 0 {
				if w := runewidth.StringWidth(result); w != tt.width {
					t.Errorf("padToWidth(%q, %d) produced width %d", tt.input, tt.width, w)
				}
			}
		})
	}
}

func TestMarqueeText(t *testing.T) {
	text := "Artist - A Rather Long Track Name"

	t.Run("short text is padded", func(t *testing.T) {
		got := marqueeText("Hi", 6, 2, " | ", time.Unix(100, 0))
		if got != "Hi    " {
			t.Errorf("got %q", got)
		}
	})

	t.Run("window starts at time-derived offset", func(t *testing.T) {
		got := marqueeText(text, 10, 1, " | ", time.Unix(0, 0))
		if got != "Artist - A" {
			t.Errorf("at t=0 got %q", got)
		}

		got = marqueeText(text, 10, 1, " | ", time.Unix(9, 0))
		if got != "A Rather L" {
			t.Errorf("at t=9 got %q", got)
		}
	})

	t.Run("wraps through separator", func(t *testing.T) {
		loopLen := len([]rune(text + " | "))
		got := marqueeText(text, 10, 1, " | ", time.Unix(int64(loopLen-3), 0))
		if !strings.HasPrefix(got, " | Artist") {
			t.Errorf("got %q", got)
		}
	})

	t.Run("always exact width", func(t *testing.T) {
		for sec := int64(0); sec < 60; sec++ {
			got := marqueeText("🎵 日本語のとても長いタイトル", 11, 3, " • ", time.Unix(sec, 0))
			if w := runewidth.StringWidth(got); w != 11 {
				t.Fatalf("t=%d width %d for %q", sec, w, got)
			}
		}
	})

	t.Run("zero width returns input", func(t *testing.T) {
		if got := marqueeText(text, 0, 1, " | ", time.Unix(0, 0)); got != text {
			t.Errorf("got %q", got)
		}
	})
}

func TestFormatStatus(t *testing.T) {
	snap := music.Snapshot{
		IsRunning: true,
		IsPlaying: true,
		Track:     "Yesterday",
		Artist:    "The Beatles",
		Album:     "Help!",
		Duration:  125 * time.Second,
		Position:  30 * time.Second,
	}

	tests := []struct {
		name     string
		format   string
		expected string
		wantErr  bool
	}{
		{"default", "{{.Artist}} - {{.Track}}", "The Beatles - Yesterday", false},
		{"album and position", "{{.Album}} [{{.Position}}/{{.Duration}}]", "Help! [30s/2m5s]", false},
		{"invalid template", "{{.Artist", "", true},
		{"unknown field", "{{.Nope}}", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatStatus(snap, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("formatStatus: %v", err)
			}
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
