package domain

import (
	"encoding/json"
	"fmt"
)

// AssociationKind identifies the two reconciled association types.
type AssociationKind int

const (
	// KindGrant is a (principal, resource, permission) triple.
	KindGrant AssociationKind = iota
	// KindTagAttachment is a (resource, tag) pair.
	KindTagAttachment
)

// String returns a kebab-case name for the kind.
func (k AssociationKind) String() string {
	switch k {
	case KindGrant:
		return "grant"
	case KindTagAttachment:
		return "tag-attachment"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k AssociationKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseAssociationKind is the inverse of AssociationKind.String.
func ParseAssociationKind(s string) (AssociationKind, error) {
	switch s {
	case "grant":
		return KindGrant, nil
	case "tag-attachment":
		return KindTagAttachment, nil
	default:
		return 0, ErrUnknownVariant("association kind", s)
	}
}

// Association is implemented by *Grant and *TagAttachment.
type Association interface {
	Managed
	Kind() AssociationKind
}

// === Grant ===

// Grant gives a principal a permission on a resource.
type Grant struct {
	Ownership
	Principal  Principal
	Resource   Resource
	Permission Permission
}

// NewGrant validates the triple and constructs a grant.
func NewGrant(principal Principal, resource Resource, permission Permission) (*Grant, error) {
	if principal.IsZero() {
		return nil, ErrValidation("grant: principal is required")
	}
	if _, err := NewPrincipal(principal.Type, principal.Identifier); err != nil {
		return nil, fmt.Errorf("grant: %w", err)
	}
	if resource == nil {
		return nil, ErrValidation("grant: resource is required")
	}
	if permission.IsZero() {
		return nil, ErrValidation("grant: permission is required")
	}
	if p, err := PermissionByID(permission.Identifier); err != nil || p != permission {
		return nil, ErrValidation("grant: permission %q is not in the catalog", permission.Identifier)
	}
	if !permission.AppliesTo(resource) {
		return nil, ErrValidation("grant: permission %s does not apply to %s %q",
			permission.Identifier, resource.ResourceType(), resource.ID())
	}
	return &Grant{Principal: principal, Resource: resource, Permission: permission}, nil
}

// ID implements Entity.
func (g *Grant) ID() string {
	return joinID(g.Principal.ID(), g.Resource.ID(), g.Permission.ID())
}

// Kind implements Association.
func (g *Grant) Kind() AssociationKind { return KindGrant }

type grantJSON struct {
	Principal  Principal       `json:"principal"`
	Resource   json.RawMessage `json:"resource"`
	Permission Permission      `json:"permission"`
}

// MarshalJSON implements json.Marshaler.
func (g *Grant) MarshalJSON() ([]byte, error) {
	res, err := json.Marshal(g.Resource)
	if err != nil {
		return nil, err
	}
	return json.Marshal(grantJSON{Principal: g.Principal, Resource: res, Permission: g.Permission})
}

// DecodeGrant is the inverse of Grant.MarshalJSON.
func DecodeGrant(data []byte) (*Grant, error) {
	var raw grantJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode grant: %w", err)
	}
	res, err := DecodeResource(raw.Resource)
	if err != nil {
		return nil, err
	}
	return NewGrant(raw.Principal, res, raw.Permission)
}

// === TagAttachment ===

// TagAttachment labels a non-tag resource with a tag.
type TagAttachment struct {
	Ownership
	Resource Resource
	Tag      *Tag
}

// NewTagAttachment validates the pair and constructs an attachment. resource
// must not be a tag and tag must be one.
func NewTagAttachment(resource Resource, tag Resource) (*TagAttachment, error) {
	if resource == nil || tag == nil {
		return nil, ErrValidation("tag attachment: resource and tag are required")
	}
	if _, ok := resource.(*Tag); ok {
		return nil, ErrValidation("tag attachment: cannot attach a tag to tag %q", resource.ID())
	}
	t, ok := tag.(*Tag)
	if !ok {
		return nil, ErrValidation("tag attachment: %s %q is not a tag", tag.ResourceType(), tag.ID())
	}
	return &TagAttachment{Resource: resource, Tag: t}, nil
}

// ID implements Entity.
func (a *TagAttachment) ID() string {
	return joinID(a.Resource.ID(), a.Tag.ID())
}

// Kind implements Association.
func (a *TagAttachment) Kind() AssociationKind { return KindTagAttachment }

type tagAttachmentJSON struct {
	Resource json.RawMessage `json:"resource"`
	Tag      json.RawMessage `json:"tag"`
}

// MarshalJSON implements json.Marshaler.
func (a *TagAttachment) MarshalJSON() ([]byte, error) {
	res, err := json.Marshal(a.Resource)
	if err != nil {
		return nil, err
	}
	tag, err := json.Marshal(a.Tag)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tagAttachmentJSON{Resource: res, Tag: tag})
}

// DecodeTagAttachment is the inverse of TagAttachment.MarshalJSON.
func DecodeTagAttachment(data []byte) (*TagAttachment, error) {
	var raw tagAttachmentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode tag attachment: %w", err)
	}
	res, err := DecodeResource(raw.Resource)
	if err != nil {
		return nil, err
	}
	tag, err := DecodeResource(raw.Tag)
	if err != nil {
		return nil, err
	}
	return NewTagAttachment(res, tag)
}
