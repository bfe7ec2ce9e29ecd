package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no route has the requested ID or checksum
var ErrNotFound = errors.New("route not found")

// Record is one stored, processed route. Payload holds the processed track
// as JSON; the other fields are denormalized for listing.
type Record struct {
	ID            string
	Checksum      string
	Filename      string
	Name          string
	PointCount    int
	TotalDistance float64
	Payload       []byte
	CreatedAt     time.Time
}

// Store persists processed routes in SQLite
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the route database at path. Use ":memory:"
// for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// A single connection keeps ":memory:" databases alive and serializes writes
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS routes (
			id TEXT PRIMARY KEY,
			checksum TEXT NOT NULL UNIQUE,
			filename TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			point_count INTEGER NOT NULL,
			total_distance DOUBLE NOT NULL,
			payload BLOB NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS routes_created_at ON routes (created_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRoute inserts a record. Saving a checksum that already exists is an error.
func (s *Store) SaveRoute(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO routes (id, checksum, filename, name, point_count, total_distance, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Checksum, r.Filename, r.Name, r.PointCount, r.TotalDistance, r.Payload, r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save route %s: %w", r.ID, err)
	}
	return nil
}

// GetRoute returns the record with the given ID
func (s *Store) GetRoute(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, checksum, filename, name, point_count, total_distance, payload, created_at
		 FROM routes WHERE id = ?`, id)
	return scanRecord(row)
}

// FindByChecksum returns the record uploaded with the given content checksum
func (s *Store) FindByChecksum(ctx context.Context, checksum string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, checksum, filename, name, point_count, total_distance, payload, created_at
		 FROM routes WHERE checksum = ?`, checksum)
	return scanRecord(row)
}

// ListRoutes returns up to limit records, newest first, without payloads
func (s *Store) ListRoutes(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, checksum, filename, name, point_count, total_distance, created_at
		 FROM routes ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Checksum, &r.Filename, &r.Name, &r.PointCount, &r.TotalDistance, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func scanRecord(row *sql.Row) (Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.Checksum, &r.Filename, &r.Name, &r.PointCount, &r.TotalDistance, &r.Payload, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return r, nil
}
