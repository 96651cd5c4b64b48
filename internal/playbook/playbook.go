// Package playbook holds the desired-state container an operator builds, the
// persisted snapshot document, and the YAML declaration format.
package playbook

import (
	"fmt"

	"lf-playbook/internal/domain"
)

// State is a graph of resources and the two association kinds. It is used
// both for desired state and for the last known deployed state.
type State struct {
	Resources      *domain.Collection[domain.Resource]
	Grants         *domain.Collection[*domain.Grant]
	TagAttachments *domain.Collection[*domain.TagAttachment]
}

// NewState creates an empty state.
func NewState() *State {
	return &State{
		Resources:      domain.NewCollection[domain.Resource]("resource"),
		Grants:         domain.NewCollection[*domain.Grant]("grant"),
		TagAttachments: domain.NewCollection[*domain.TagAttachment]("tag attachment"),
	}
}

// Playbook is the desired-state container. Entities added to it are stamped
// with its id and become subject to reconciliation.
type Playbook struct {
	id        string
	AccountID string
	Region    string

	desired *State
}

// New creates an empty playbook for one account and region.
func New(accountID, region string) (*Playbook, error) {
	if err := domain.ValidateAccountID(accountID); err != nil {
		return nil, err
	}
	if region == "" {
		return nil, domain.ErrValidation("playbook: region is required")
	}
	return &Playbook{
		id:        domain.NewID(),
		AccountID: accountID,
		Region:    region,
		desired:   NewState(),
	}, nil
}

// ID returns the ownership id stamped on every added entity.
func (p *Playbook) ID() string { return p.id }

// Desired returns the declared state. Callers must mutate it only through
// the Add methods.
func (p *Playbook) Desired() *State { return p.desired }

// AddResource adds r and stamps it. A second resource with the same id is
// rejected with a DuplicateEntityError.
func (p *Playbook) AddResource(r domain.Resource) error {
	if r == nil {
		return domain.ErrValidation("playbook: resource is required")
	}
	if err := p.desired.Resources.Add(r); err != nil {
		return err
	}
	r.AssignPlaybook(p.id)
	return nil
}

// AddResources adds each resource in order, stopping at the first error.
func (p *Playbook) AddResources(rs ...domain.Resource) error {
	for _, r := range rs {
		if err := p.AddResource(r); err != nil {
			return err
		}
	}
	return nil
}

// AddGrant adds g and stamps it.
func (p *Playbook) AddGrant(g *domain.Grant) error {
	if g == nil {
		return domain.ErrValidation("playbook: grant is required")
	}
	// Revoking a grantable permission also revokes the plain one, so one
	// principal may hold only one of the two on a resource.
	for _, other := range p.desired.Grants.Items() {
		if other.Principal.ID() == g.Principal.ID() && other.Resource.ID() == g.Resource.ID() &&
			other.Permission.Action == g.Permission.Action &&
			other.Permission.ResourceType == g.Permission.ResourceType &&
			other.Permission.Grantable != g.Permission.Grantable {
			return domain.ErrValidation("playbook: %s and %s on %s for %s: declare only one",
				other.Permission.Identifier, g.Permission.Identifier, g.Resource.ID(), g.Principal.ID())
		}
	}
	if err := p.desired.Grants.Add(g); err != nil {
		return err
	}
	g.AssignPlaybook(p.id)
	return nil
}

// AddTagAttachment adds a and stamps it.
func (p *Playbook) AddTagAttachment(a *domain.TagAttachment) error {
	if a == nil {
		return domain.ErrValidation("playbook: tag attachment is required")
	}
	if err := p.desired.TagAttachments.Add(a); err != nil {
		return err
	}
	a.AssignPlaybook(p.id)
	return nil
}

// Grant creates one grant per permission and adds them.
func (p *Playbook) Grant(principal domain.Principal, resource domain.Resource, perms ...domain.Permission) ([]*domain.Grant, error) {
	if len(perms) == 0 {
		return nil, domain.ErrValidation("playbook: at least one permission is required")
	}
	out := make([]*domain.Grant, 0, len(perms))
	for _, perm := range perms {
		g, err := domain.NewGrant(principal, resource, perm)
		if err != nil {
			return nil, err
		}
		if err := p.AddGrant(g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// Attach creates one tag attachment per tag and adds them.
func (p *Playbook) Attach(resource domain.Resource, tags ...*domain.Tag) ([]*domain.TagAttachment, error) {
	if len(tags) == 0 {
		return nil, domain.ErrValidation("playbook: at least one tag is required")
	}
	out := make([]*domain.TagAttachment, 0, len(tags))
	for _, tag := range tags {
		if tag == nil {
			return nil, domain.ErrValidation("playbook: tag is required")
		}
		a, err := domain.NewTagAttachment(resource, tag)
		if err != nil {
			return nil, err
		}
		if err := p.AddTagAttachment(a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// String summarises the playbook contents.
func (p *Playbook) String() string {
	return fmt.Sprintf("playbook %s (%s/%s): %d resources, %d grants, %d tag attachments",
		p.id, p.AccountID, p.Region,
		p.desired.Resources.Len(), p.desired.Grants.Len(), p.desired.TagAttachments.Len())
}
