// Package snapshot persists the last known deployed state of a playbook.
package snapshot

import (
	"context"
	"fmt"
)

// Store reads and writes snapshot documents by key. Get returns a
// *domain.NotFoundError when nothing is stored under key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Key names the snapshot of one account and region.
func Key(accountID, region string) string {
	return fmt.Sprintf("deployed-%s-%s.json", accountID, region)
}
