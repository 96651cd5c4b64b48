package reconcile

import (
	"fmt"

	"lf-playbook/internal/domain"
	"lf-playbook/internal/playbook"
)

// Plan holds the per-kind diffs of one reconciliation.
type Plan struct {
	Grants         Diff[*domain.Grant]
	TagAttachments Diff[*domain.TagAttachment]
}

// NewPlan diffs desired against deployed for each association kind.
// Resources are reconciled only through the associations that use them.
func NewPlan(desired, deployed *playbook.State) *Plan {
	return &Plan{
		Grants:         DiffSets(desired.Grants, deployed.Grants),
		TagAttachments: DiffSets(desired.TagAttachments, deployed.TagAttachments),
	}
}

// Action is one planned change, for display.
type Action struct {
	Operation Operation
	Kind      domain.AssociationKind
	ID        string
	Name      string
}

// Actions lists the planned changes in apply order: attachments are created
// before grants, and grants are revoked before attachments are removed.
func (p *Plan) Actions() []Action {
	var out []Action
	for _, a := range p.TagAttachments.ToCreate {
		out = append(out, Action{OpCreate, domain.KindTagAttachment, a.ID(), DescribeTagAttachment(a)})
	}
	for _, g := range p.Grants.ToCreate {
		out = append(out, Action{OpCreate, domain.KindGrant, g.ID(), DescribeGrant(g)})
	}
	for _, g := range p.Grants.ToRemove {
		out = append(out, Action{OpRemove, domain.KindGrant, g.ID(), DescribeGrant(g)})
	}
	for _, a := range p.TagAttachments.ToRemove {
		out = append(out, Action{OpRemove, domain.KindTagAttachment, a.ID(), DescribeTagAttachment(a)})
	}
	return out
}

// PlanSummary holds counts of planned operations.
type PlanSummary struct {
	Creates   int `json:"creates"`
	Removes   int `json:"removes"`
	Unchanged int `json:"unchanged"`
}

// Summary counts the plan's operations across both kinds.
func (p *Plan) Summary() PlanSummary {
	return PlanSummary{
		Creates:   len(p.Grants.ToCreate) + len(p.TagAttachments.ToCreate),
		Removes:   len(p.Grants.ToRemove) + len(p.TagAttachments.ToRemove),
		Unchanged: len(p.Grants.Unchanged) + len(p.TagAttachments.Unchanged),
	}
}

// HasChanges reports whether anything would be created or removed.
func (p *Plan) HasChanges() bool {
	return !p.Grants.Empty() || !p.TagAttachments.Empty()
}

// DescribeGrant renders g with declaration names, e.g.
// "user_alice SuperDatabase on lf_tag_admin_y".
func DescribeGrant(g *domain.Grant) string {
	return fmt.Sprintf("%s %s on %s", g.Principal.VarName(), g.Permission.Identifier, g.Resource.VarName())
}

// DescribeTagAttachment renders a, e.g. "lf_tag_admin_y on db_111122223333_us_east_1_amz".
func DescribeTagAttachment(a *domain.TagAttachment) string {
	return fmt.Sprintf("%s on %s", a.Tag.VarName(), a.Resource.VarName())
}
