// Package backend declares the capabilities the reconciler consumes from a
// permission backend: paginated listing and batch mutation. Concrete clients
// live in subpackages; decorators here add rate limiting and retries.
package backend

import (
	"context"
	"fmt"

	"lf-playbook/internal/domain"
)

// Lister fetches one page of a listing. args carries the method's request
// parameters including any continuation token. The response is decoded into
// a generic mapping so that pagination can be driven by field names.
type Lister interface {
	ListPage(ctx context.Context, method string, args map[string]any) (map[string]any, error)
}

// MutationOp names a batch mutation.
type MutationOp string

// Mutation operations.
const (
	OpGrant      MutationOp = "grant"
	OpRevoke     MutationOp = "revoke"
	OpAddTags    MutationOp = "add-tags"
	OpRemoveTags MutationOp = "remove-tags"
)

// Entry is one item of a mutation batch. Args holds the mapped backend
// arguments, typically a mapper.GrantEntryArg or mapper.TagEntryArg.
type Entry struct {
	ID   string
	Args any
}

// EntryFailure reports an item the backend rejected. Items absent from the
// failure list succeeded.
type EntryFailure struct {
	ID      string
	Code    string
	Message string
}

// Error implements error.
func (f EntryFailure) Error() string {
	if f.Code == "" {
		return f.Message
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// notFoundCodes are backend error codes meaning the target no longer exists.
var notFoundCodes = map[string]bool{
	"EntityNotFoundException": true,
	"NoSuchEntity":            true,
	"NotFound":                true,
}

// IsNotFound reports whether the failure means the target no longer exists.
func (f EntryFailure) IsNotFound() bool {
	return notFoundCodes[f.Code]
}

// Mutator applies a batch. A non-nil error means the whole call failed and
// no item can be assumed applied.
type Mutator interface {
	Mutate(ctx context.Context, op MutationOp, entries []Entry) ([]EntryFailure, error)
}

// Session carries the account, region and capabilities every call needs.
type Session struct {
	AccountID string
	Region    string
	Lister    Lister
	Mutator   Mutator
}

// Validate checks that the session is usable.
func (s Session) Validate() error {
	if err := domain.ValidateAccountID(s.AccountID); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if s.Region == "" {
		return domain.ErrValidation("session: region is required")
	}
	if s.Lister == nil || s.Mutator == nil {
		return domain.ErrValidation("session: lister and mutator are required")
	}
	return nil
}
