package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS versions (
	package_name       TEXT    NOT NULL,
	target             TEXT    NOT NULL,
	latest_version     TEXT    NOT NULL DEFAULT '',
	available_versions TEXT    NOT NULL,
	fetched_at         INTEGER NOT NULL,
	ttl_seconds        INTEGER NOT NULL,
	PRIMARY KEY (package_name, target)
)`

const sqliteUpsert = `
INSERT INTO versions (package_name, target, latest_version, available_versions, fetched_at, ttl_seconds)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (package_name, target) DO UPDATE SET
	latest_version     = excluded.latest_version,
	available_versions = excluded.available_versions,
	fetched_at         = excluded.fetched_at,
	ttl_seconds        = excluded.ttl_seconds`

// SQLiteBackend stores entries in an embedded SQLite database.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
// A missing driver, a permission error or a corrupt file all fail here, so
// callers can fall back before any read happens.
func OpenSQLite(ctx context.Context, path string) (*SQLiteBackend, error) {
	dsn := "file:" + (&url.URL{Path: path}).EscapedPath() +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers inside the process.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteBackend{db: db, path: path}, nil
}

func (b *SQLiteBackend) Kind() BackendKind { return BackendSQLite }

// Path returns the database file.
func (b *SQLiteBackend) Path() string { return b.path }

func (b *SQLiteBackend) Get(ctx context.Context, name, target string) (*Entry, error) {
	row := b.db.QueryRowContext(ctx,
		`SELECT latest_version, available_versions, fetched_at, ttl_seconds
		 FROM versions WHERE package_name = ? AND target = ?`, name, target)

	var (
		latest, versions string
		fetchedAt, ttl   int64
	)
	if err := row.Scan(&latest, &versions, &fetchedAt, &ttl); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	e := &Entry{
		PackageName:   name,
		Target:        target,
		LatestVersion: latest,
		FetchedAt:     time.UnixMilli(fetchedAt),
		TTLSeconds:    ttl,
	}
	if err := json.Unmarshal([]byte(versions), &e.AvailableVersions); err != nil {
		return nil, fmt.Errorf("%w: versions for %s: %v", ErrCorrupt, name, err)
	}
	return e, nil
}

func (b *SQLiteBackend) Put(ctx context.Context, e *Entry) error {
	versions, err := json.Marshal(e.AvailableVersions)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx, sqliteUpsert,
		e.PackageName, e.Target, e.LatestVersion, string(versions),
		e.FetchedAt.UnixMilli(), e.TTLSeconds)
	return err
}

func (b *SQLiteBackend) Len(ctx context.Context) (int, error) {
	var n int
	err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM versions`).Scan(&n)
	return n, err
}

func (b *SQLiteBackend) Clear(ctx context.Context) (int, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM versions`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (b *SQLiteBackend) Close() error { return b.db.Close() }

var _ Backend = (*SQLiteBackend)(nil)
