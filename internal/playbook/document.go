package playbook

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"sort"
	"time"

	"github.com/gowebpki/jcs"

	"lf-playbook/internal/domain"
)

const localTimeLayout = "2006-01-02T15:04:05.000000-07:00"

// Metadata describes who wrote a snapshot and when.
type Metadata struct {
	DeployedBy      string
	DeployedAtLocal string
	DeployedAtUTC   string
	AccountID       string
	Region          string
}

// NewMetadata stamps the current operating-system user and now.
func NewMetadata(accountID, region string, now time.Time) Metadata {
	return Metadata{
		DeployedBy:      currentUser(),
		DeployedAtLocal: now.Local().Format(localTimeLayout),
		DeployedAtUTC:   now.UTC().Format(time.RFC3339Nano),
		AccountID:       accountID,
		Region:          region,
	}
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}

type document struct {
	DeployedBy      string                     `json:"deployed_by"`
	DeployedAtLocal string                     `json:"deployed_at_local_time"`
	DeployedAtUTC   string                     `json:"deployed_at_utc_time"`
	AccountID       string                     `json:"account_id"`
	Region          string                     `json:"region"`
	Resources       map[string]json.RawMessage `json:"resources"`
	Grants          map[string]json.RawMessage `json:"grants"`
	TagAttachments  map[string]json.RawMessage `json:"tag_attachments"`
}

// Encode serializes s as one canonical (RFC 8785) JSON document.
func Encode(s *State, meta Metadata) ([]byte, error) {
	doc := document{
		DeployedBy:      meta.DeployedBy,
		DeployedAtLocal: meta.DeployedAtLocal,
		DeployedAtUTC:   meta.DeployedAtUTC,
		AccountID:       meta.AccountID,
		Region:          meta.Region,
	}
	var err error
	if doc.Resources, err = encodeAll(s.Resources.Items()); err != nil {
		return nil, err
	}
	if doc.Grants, err = encodeAll(s.Grants.Items()); err != nil {
		return nil, err
	}
	if doc.TagAttachments, err = encodeAll(s.TagAttachments.Items()); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize snapshot: %w", err)
	}
	return canonical, nil
}

func encodeAll[T domain.Entity](items []T) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(items))
	for _, it := range items {
		data, err := json.Marshal(it)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", it.ID(), err)
		}
		out[it.ID()] = data
	}
	return out, nil
}

// Decode is the inverse of Encode. Entities are rebuilt through their
// constructors, so a tampered document fails validation; every map key must
// equal the id of the entity it holds. Entities come back unmanaged.
func Decode(data []byte) (*State, Metadata, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, Metadata{}, fmt.Errorf("decode snapshot: %w", err)
	}
	meta := Metadata{
		DeployedBy:      doc.DeployedBy,
		DeployedAtLocal: doc.DeployedAtLocal,
		DeployedAtUTC:   doc.DeployedAtUTC,
		AccountID:       doc.AccountID,
		Region:          doc.Region,
	}

	s := NewState()
	if err := decodeAll(doc.Resources, s.Resources, domain.DecodeResource); err != nil {
		return nil, meta, err
	}
	if err := decodeAll(doc.Grants, s.Grants, domain.DecodeGrant); err != nil {
		return nil, meta, err
	}
	if err := decodeAll(doc.TagAttachments, s.TagAttachments, domain.DecodeTagAttachment); err != nil {
		return nil, meta, err
	}
	return s, meta, nil
}

func decodeAll[T domain.Entity](in map[string]json.RawMessage, into *domain.Collection[T], decode func([]byte) (T, error)) error {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := decode(in[k])
		if err != nil {
			return fmt.Errorf("snapshot %s %q: %w", into.Name(), k, err)
		}
		if v.ID() != k {
			return domain.ErrValidation("snapshot %s key %q does not match id %q", into.Name(), k, v.ID())
		}
		if err := into.Add(v); err != nil {
			return err
		}
	}
	return nil
}

// Digest returns the sha256 hex digest of the canonical form of data.
func Digest(data []byte) (string, error) {
	canonical, err := jcs.Transform(data)
	if err != nil {
		return "", fmt.Errorf("canonicalize snapshot: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
