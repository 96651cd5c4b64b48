package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lf-playbook/internal/domain"
	"lf-playbook/internal/playbook"
)

// Snapshots loads and saves the deployed state of one account and region.
type Snapshots struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Snapshots over store.
func New(store Store, logger *slog.Logger) *Snapshots {
	if logger == nil {
		logger = slog.Default()
	}
	return &Snapshots{store: store, logger: logger, now: time.Now}
}

// Load returns the deployed state, or an empty state when none was saved
// yet. Stored documents are validated against the snapshot schema and must
// belong to accountID and region.
func (s *Snapshots) Load(ctx context.Context, accountID, region string) (*playbook.State, error) {
	key := Key(accountID, region)
	data, err := s.store.Get(ctx, key)
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		s.logger.Debug("no deployed snapshot", "key", key)
		return playbook.NewState(), nil
	}
	if err != nil {
		return nil, err
	}

	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", key, err)
	}
	state, meta, err := playbook.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", key, err)
	}
	if meta.AccountID != accountID || meta.Region != region {
		return nil, domain.ErrValidation("snapshot %s belongs to %s/%s", key, meta.AccountID, meta.Region)
	}
	s.logger.Debug("loaded deployed snapshot", "key", key, "deployed_by", meta.DeployedBy,
		"deployed_at", meta.DeployedAtUTC, "resources", state.Resources.Len(),
		"grants", state.Grants.Len(), "tag_attachments", state.TagAttachments.Len())
	return state, nil
}

// Save writes state as the deployed snapshot and returns its digest.
func (s *Snapshots) Save(ctx context.Context, accountID, region string, state *playbook.State) (string, error) {
	data, err := playbook.Encode(state, playbook.NewMetadata(accountID, region, s.now()))
	if err != nil {
		return "", err
	}
	digest, err := playbook.Digest(data)
	if err != nil {
		return "", err
	}
	key := Key(accountID, region)
	if err := s.store.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("save snapshot %s: %w", key, err)
	}
	s.logger.Info("saved deployed snapshot", "key", key, "digest", digest)
	return digest, nil
}
