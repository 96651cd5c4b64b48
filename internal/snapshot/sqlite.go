package snapshot

import (
	"context"

	"lf-playbook/internal/db/repository"
	"lf-playbook/internal/playbook"
)

// SQLiteStore keeps snapshots as rows in the local state database.
type SQLiteStore struct {
	repo *repository.SnapshotRepo
}

// NewSQLiteStore creates a SQLiteStore over a snapshot repository.
func NewSQLiteStore(repo *repository.SnapshotRepo) *SQLiteStore {
	return &SQLiteStore{repo: repo}
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.repo.Get(ctx, key)
}

// Put implements Store. The document digest is stored alongside it.
func (s *SQLiteStore) Put(ctx context.Context, key string, data []byte) error {
	digest, err := playbook.Digest(data)
	if err != nil {
		return err
	}
	return s.repo.Put(ctx, key, data, digest)
}
