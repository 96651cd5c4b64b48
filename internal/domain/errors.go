// Package domain defines the access-control object model: principals,
// resources, permissions and the associations between them.
package domain

import "fmt"

// NotFoundError indicates an entity or persisted document was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates a malformed entity construction.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// DuplicateEntityError indicates an insert of an id that is already present
// in a collection.
type DuplicateEntityError struct {
	Collection string
	ID         string
}

func (e *DuplicateEntityError) Error() string {
	return fmt.Sprintf("duplicate %s %q", e.Collection, e.ID)
}

// UnknownVariantError indicates a type tag outside a closed variant family.
type UnknownVariantError struct {
	Family string
	Tag    string
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("unknown %s variant %q", e.Family, e.Tag)
}

// UnsupportedOperationError indicates that a resource type has no mapping
// for an association kind.
type UnsupportedOperationError struct {
	ResourceType ResourceType
	Kind         AssociationKind
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s does not support %s", e.ResourceType, e.Kind)
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrDuplicate creates a DuplicateEntityError.
func ErrDuplicate(collection, id string) *DuplicateEntityError {
	return &DuplicateEntityError{Collection: collection, ID: id}
}

// ErrUnknownVariant creates an UnknownVariantError.
func ErrUnknownVariant(family, tag string) *UnknownVariantError {
	return &UnknownVariantError{Family: family, Tag: tag}
}

// ErrUnsupported creates an UnsupportedOperationError.
func ErrUnsupported(rt ResourceType, kind AssociationKind) *UnsupportedOperationError {
	return &UnsupportedOperationError{ResourceType: rt, Kind: kind}
}
