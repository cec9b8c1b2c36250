package scrobbler

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists retry items one row at a time, so several queues (the
// daemon and a one-off flush) can share it without overwriting each other.
// Load on a store that was never written returns an empty list.
type Store interface {
	Load(ctx context.Context) ([]TrackInfo, error)
	Add(ctx context.Context, t TrackInfo) error
	Remove(ctx context.Context, ids ...string) error
}

// SQLiteStore keeps the retry list in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps :memory: databases consistent across calls.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS retry_queue (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			track TEXT NOT NULL,
			artist TEXT NOT NULL,
			album TEXT NOT NULL DEFAULT '',
			start_time INTEGER,
			position_ms INTEGER,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load returns the stored items in insertion order.
func (s *SQLiteStore) Load(ctx context.Context) ([]TrackInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, track, artist, album, start_time, position_ms
		FROM retry_queue
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query retry queue: %w", err)
	}
	defer rows.Close()

	items := []TrackInfo{}
	for rows.Next() {
		var (
			t         TrackInfo
			startTime sql.NullInt64
			position  sql.NullInt64
		)

		if err := rows.Scan(&t.ID, &t.Track, &t.Artist, &t.Album, &startTime, &position); err != nil {
			return nil, fmt.Errorf("failed to scan retry item: %w", err)
		}

		if startTime.Valid {
			t.StartTime = time.UnixMilli(startTime.Int64)
		}
		if position.Valid {
			t.Position = time.Duration(position.Int64) * time.Millisecond
		}

		items = append(items, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating retry queue: %w", err)
	}

	return items, nil
}

// Add inserts t. Adding an id that is already stored is a no-op.
func (s *SQLiteStore) Add(ctx context.Context, t TrackInfo) error {
	var startTime, position sql.NullInt64
	if !t.StartTime.IsZero() {
		startTime = sql.NullInt64{Int64: t.StartTime.UnixMilli(), Valid: true}
	}
	if t.Position != 0 {
		position = sql.NullInt64{Int64: t.Position.Milliseconds(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO retry_queue (id, track, artist, album, start_time, position_ms)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, t.ID, t.Track, t.Artist, t.Album, startTime, position)
	if err != nil {
		return fmt.Errorf("failed to insert retry item %s: %w", t.ID, err)
	}

	return nil
}

// Remove deletes the rows with the given ids. Unknown ids are ignored.
func (s *SQLiteStore) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM retry_queue WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("failed to delete retry item %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
