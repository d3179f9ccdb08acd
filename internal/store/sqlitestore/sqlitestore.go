// Package sqlitestore keeps session blobs in a SQLite table with an expiry column.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"socialrelay/internal/model"
)

// DB is a session store backed by SQLite.
type DB struct {
	sql *sql.DB
	now func() time.Time
}

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		d.SetMaxOpenConns(1)
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA busy_timeout=5000;`); err != nil {
		_ = d.Close()
		return nil, err
	}
	db := &DB{sql: d, now: time.Now}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS sessions (
	  id TEXT PRIMARY KEY,
	  data BLOB NOT NULL,
	  expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
	`)
	return err
}

// Get returns the session blob, or model.ErrSessionNotFound when it is absent or expired.
func (d *DB) Get(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := d.sql.QueryRowContext(ctx,
		`SELECT data FROM sessions WHERE id=? AND expires_at>?`, id, d.now().Unix()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Put upserts the blob for id, valid for ttl.
func (d *DB) Put(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	exp := d.now().Add(ttl).Unix()
	_, err := d.sql.ExecContext(ctx, `INSERT INTO sessions(id, data, expires_at) VALUES(?,?,?)
	ON CONFLICT(id) DO UPDATE SET data=excluded.data, expires_at=excluded.expires_at`, id, data, exp)
	return err
}

func (d *DB) Delete(ctx context.Context, id string) error {
	_, err := d.sql.ExecContext(ctx, `DELETE FROM sessions WHERE id=?`, id)
	return err
}

// Purge removes expired rows and reports how many were dropped.
func (d *DB) Purge(ctx context.Context) (int64, error) {
	res, err := d.sql.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at<=?`, d.now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
