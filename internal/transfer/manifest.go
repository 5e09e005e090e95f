package transfer

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS downloads (
    name          TEXT PRIMARY KEY,
    url           TEXT NOT NULL,
    size          INTEGER NOT NULL,
    sha256        TEXT NOT NULL,
    etag          TEXT NOT NULL DEFAULT '',
    last_modified TEXT NOT NULL DEFAULT '',
    fetched_at    TEXT NOT NULL
);
`

// Entry describes one downloaded snapshot blob.
type Entry struct {
	Name         string
	URL          string
	Size         int64
	SHA256       string
	ETag         string
	LastModified string
	FetchedAt    time.Time
}

// Manifest records what was downloaded so cached blobs can be validated
// against both the remote server and their own content.
type Manifest struct {
	db *sql.DB
}

// OpenManifest opens (or creates) the manifest database at dbPath.
func OpenManifest(dbPath string) (*Manifest, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open manifest db: %w", err)
	}

	// Several mozci processes may share one cache directory
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Manifest{db: db}, nil
}

// Upsert stores e, replacing any previous entry with the same name.
func (m *Manifest) Upsert(e Entry) error {
	_, err := m.db.Exec(`
		INSERT INTO downloads (name, url, size, sha256, etag, last_modified, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			url = excluded.url,
			size = excluded.size,
			sha256 = excluded.sha256,
			etag = excluded.etag,
			last_modified = excluded.last_modified,
			fetched_at = excluded.fetched_at`,
		e.Name, e.URL, e.Size, e.SHA256, e.ETag, e.LastModified,
		e.FetchedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", e.Name, err)
	}
	return nil
}

// Get returns the entry for name, or nil if there is none.
func (m *Manifest) Get(name string) (*Entry, error) {
	row := m.db.QueryRow(`
		SELECT name, url, size, sha256, etag, last_modified, fetched_at
		FROM downloads WHERE name = ?`, name)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	return e, nil
}

// List returns all entries ordered by name.
func (m *Manifest) List() ([]Entry, error) {
	rows, err := m.db.Query(`
		SELECT name, url, size, sha256, etag, last_modified, fetched_at
		FROM downloads ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Delete removes the entry for name. Missing entries are not an error.
func (m *Manifest) Delete(name string) error {
	if _, err := m.db.Exec("DELETE FROM downloads WHERE name = ?", name); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// Clear removes every entry.
func (m *Manifest) Clear() error {
	if _, err := m.db.Exec("DELETE FROM downloads"); err != nil {
		return fmt.Errorf("clear downloads: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (m *Manifest) Close() error {
	return m.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (*Entry, error) {
	var e Entry
	var fetchedAt string
	if err := s.Scan(&e.Name, &e.URL, &e.Size, &e.SHA256, &e.ETag, &e.LastModified, &fetchedAt); err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339, fetchedAt); err == nil {
		e.FetchedAt = t
	}
	return &e, nil
}
