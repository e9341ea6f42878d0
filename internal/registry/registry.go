// Package registry is the backend record of saved locations: a thin
// list/create resource. The dashboard mirrors additions here but never
// reads the registry back; client-side persistence remains the source of
// truth.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Location is one registry record.
type Location struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the registry contract used by the HTTP layer and the mirror.
type Store interface {
	List(ctx context.Context) ([]Location, error)
	Create(ctx context.Context, name string, lat, lon float64) (Location, error)
	Close() error
}

// SQLiteStore is a file-backed registry.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the registry database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		log.Println("registry: warning: could not set WAL mode:", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS locations (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        latitude REAL NOT NULL DEFAULT 0,
        longitude REAL NOT NULL DEFAULT 0,
        created_at TEXT NOT NULL
    );`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Location, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, latitude, longitude, created_at FROM locations ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Location, 0)
	for rows.Next() {
		var loc Location
		var created string
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Latitude, &loc.Longitude, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339, created); err == nil {
			loc.CreatedAt = ts
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Create(ctx context.Context, name string, lat, lon float64) (Location, error) {
	loc := Location{
		ID:        uuid.NewString(),
		Name:      name,
		Latitude:  lat,
		Longitude: lon,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO locations(id, name, latitude, longitude, created_at) VALUES(?,?,?,?,?)`,
		loc.ID, loc.Name, loc.Latitude, loc.Longitude, loc.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Location{}, err
	}
	return loc, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
