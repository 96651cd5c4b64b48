package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Delimiter separates the defining attributes inside an entity id.
const Delimiter = "|"

// Entity is anything with a deterministic, content-derived identifier.
// Two entities are equal exactly when their ids are equal.
type Entity interface {
	ID() string
}

// Same reports whether a and b describe the same real-world object.
func Same(a, b Entity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID() == b.ID()
}

// NewID generates a UUIDv7 string for playbooks and reconciliation runs.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func joinID(parts ...string) string {
	return strings.Join(parts, Delimiter)
}

var varNameReplacer = strings.NewReplacer(
	"-", "_",
	":", "_",
	"/", "__",
	".", "_dot_",
)

// ToVarName converts s into an identifier-safe form, e.g. "us-east-1" becomes
// "us_east_1" and "database.table" becomes "database_dot_table".
func ToVarName(s string) string {
	return varNameReplacer.Replace(s)
}

// Ownership records the desired-state container that created an entity.
// The zero value is unmanaged.
type Ownership struct {
	playbookID string
}

// PlaybookManaged reports whether the entity was added to a playbook and is
// therefore subject to reconciliation.
func (o *Ownership) PlaybookManaged() bool {
	return o.playbookID != ""
}

// PlaybookID returns the owning playbook id, or "" when unmanaged.
func (o *Ownership) PlaybookID() string {
	return o.playbookID
}

// AssignPlaybook stamps the entity with its owning playbook. It is called by
// the playbook add operations.
func (o *Ownership) AssignPlaybook(id string) {
	o.playbookID = id
}

// Managed is implemented by entities that carry Ownership.
type Managed interface {
	Entity
	PlaybookManaged() bool
	PlaybookID() string
	AssignPlaybook(id string)
}
