package repository

import (
	"context"
	"database/sql"
	"time"
)

// SnapshotRepo stores snapshot documents keyed by name.
type SnapshotRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewSnapshotRepo creates a SnapshotRepo over a migrated database.
func NewSnapshotRepo(db *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db, now: time.Now}
}

// Get returns the stored document for key, or a NotFoundError.
func (r *SnapshotRepo) Get(ctx context.Context, key string) ([]byte, error) {
	var doc []byte
	err := r.db.QueryRowContext(ctx, `SELECT document FROM snapshots WHERE key = ?`, key).Scan(&doc)
	if err != nil {
		return nil, mapDBError(err, "snapshot", key)
	}
	return doc, nil
}

// Put inserts or replaces the document for key.
func (r *SnapshotRepo) Put(ctx context.Context, key string, doc []byte, digest string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, document, digest, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			document = excluded.document,
			digest = excluded.digest,
			updated_at = excluded.updated_at`,
		key, doc, digest, formatTime(r.now()))
	return mapDBError(err, "snapshot", key)
}

// Digest returns the digest recorded with the document for key.
func (r *SnapshotRepo) Digest(ctx context.Context, key string) (string, error) {
	var digest string
	err := r.db.QueryRowContext(ctx, `SELECT digest FROM snapshots WHERE key = ?`, key).Scan(&digest)
	if err != nil {
		return "", mapDBError(err, "snapshot", key)
	}
	return digest, nil
}
