package scrobbler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileStore keeps the retry list as a JSON array in a single file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path. The file is created on the
// first Add.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

type fileRecord struct {
	ID        string `json:"id"`
	Track     string `json:"track"`
	Artist    string `json:"artist"`
	Album     string `json:"album"`
	StartTime *int64 `json:"startTime,omitempty"`
	Position  *int64 `json:"position,omitempty"`
}

// Load reads the list. A missing file is an empty list; a corrupt one is an
// error so it is never silently overwritten.
func (s *FileStore) Load(ctx context.Context) ([]TrackInfo, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []TrackInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read retry file: %w", err)
	}

	var records []fileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse retry file %s: %w", s.path, err)
	}

	items := make([]TrackInfo, 0, len(records))
	for _, r := range records {
		t := TrackInfo{ID: r.ID, Track: r.Track, Artist: r.Artist, Album: r.Album}
		if r.StartTime != nil {
			t.StartTime = time.UnixMilli(*r.StartTime)
		}
		if r.Position != nil {
			t.Position = time.Duration(*r.Position) * time.Millisecond
		}
		items = append(items, t)
	}

	return items, nil
}

// Add appends t unless its id is already stored.
func (s *FileStore) Add(ctx context.Context, t TrackInfo) error {
	items, err := s.Load(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.ID == t.ID {
			return nil
		}
	}
	return s.write(append(items, t))
}

// Remove drops the items with the given ids.
func (s *FileStore) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	items, err := s.Load(ctx)
	if err != nil {
		return err
	}

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	kept := items[:0]
	for _, item := range items {
		if !drop[item.ID] {
			kept = append(kept, item)
		}
	}
	return s.write(kept)
}

// write replaces the file atomically via a temp file and rename.
func (s *FileStore) write(items []TrackInfo) error {
	records := make([]fileRecord, 0, len(items))
	for _, t := range items {
		r := fileRecord{ID: t.ID, Track: t.Track, Artist: t.Artist, Album: t.Album}
		if !t.StartTime.IsZero() {
			ms := t.StartTime.UnixMilli()
			r.StartTime = &ms
		}
		if t.Position != 0 {
			ms := t.Position.Milliseconds()
			r.Position = &ms
		}
		records = append(records, r)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal retry queue: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create retry directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write retry file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename retry file: %w", err)
	}

	return nil
}
