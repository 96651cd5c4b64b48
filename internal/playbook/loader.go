package playbook

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"lf-playbook/internal/domain"
)

// Declaration document constants.
const (
	SupportedAPIVersion = "lf/v1"
	KindPlaybook        = "Playbook"
)

// Doc is a YAML playbook declaration.
type Doc struct {
	APIVersion string  `yaml:"apiVersion"`
	Kind       string  `yaml:"kind"`
	Metadata   DocMeta `yaml:"metadata"`
	Spec       Spec    `yaml:"spec"`
}

// DocMeta scopes the declaration to one account and region.
type DocMeta struct {
	AccountID string `yaml:"account_id"`
	Region    string `yaml:"region"`
}

// Spec lists the declared resources, principals and associations.
type Spec struct {
	Databases        []DatabaseSpec   `yaml:"databases,omitempty"`
	Locations        []LocationSpec   `yaml:"locations,omitempty"`
	DataCellsFilters []FilterSpec     `yaml:"data_cells_filters,omitempty"`
	Tags             []TagSpec        `yaml:"tags,omitempty"`
	Principals       []PrincipalSpec  `yaml:"principals,omitempty"`
	Attachments      []AttachmentSpec `yaml:"attachments,omitempty"`
	Grants           []GrantSpec      `yaml:"grants,omitempty"`
}

// DatabaseSpec declares a database with its tables.
type DatabaseSpec struct {
	Name      string      `yaml:"name"`
	CatalogID string      `yaml:"catalog_id,omitempty"`
	Tables    []TableSpec `yaml:"tables,omitempty"`
}

// TableSpec declares a table with its columns.
type TableSpec struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns,omitempty"`
}

// LocationSpec declares a registered storage location.
type LocationSpec struct {
	ResourceARN string `yaml:"resource_arn"`
	RoleARN     string `yaml:"role_arn,omitempty"`
}

// FilterSpec declares a data cells filter. AllColumns selects every column
// and stands for an empty exclude list.
type FilterSpec struct {
	Name           string   `yaml:"name"`
	Database       string   `yaml:"database"`
	Table          string   `yaml:"table"`
	RowFilter      string   `yaml:"row_filter,omitempty"`
	IncludeColumns []string `yaml:"include_columns,omitempty"`
	ExcludeColumns []string `yaml:"exclude_columns,omitempty"`
	AllColumns     bool     `yaml:"all_columns,omitempty"`
}

// TagSpec declares a tag key with its values. Each value becomes one Tag.
type TagSpec struct {
	Key    string   `yaml:"key"`
	Values []string `yaml:"values"`
}

// PrincipalSpec names a principal for use in grants.
type PrincipalSpec struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	ARN       string `yaml:"arn,omitempty"`
	AccountID string `yaml:"account_id,omitempty"`
}

// ResourceRef points at a declared resource. Set database (optionally with
// table and column), or exactly one of location, filter and tag.
type ResourceRef struct {
	Database string `yaml:"database,omitempty"`
	Table    string `yaml:"table,omitempty"`
	Column   string `yaml:"column,omitempty"`
	Location string `yaml:"location,omitempty"`
	Filter   string `yaml:"filter,omitempty"`
	Tag      string `yaml:"tag,omitempty"`
}

// AttachmentSpec attaches tags ("key=value") to a resource.
type AttachmentSpec struct {
	Resource ResourceRef `yaml:"resource"`
	Tags     []string    `yaml:"tags"`
}

// GrantSpec grants permissions to a named principal on a resource.
type GrantSpec struct {
	Principal   string      `yaml:"principal"`
	Resource    ResourceRef `yaml:"resource"`
	Permissions []string    `yaml:"permissions"`
}

// LoadFile reads a YAML declaration and builds its playbook.
func LoadFile(path string) (*Playbook, error) {
	data, err := os.ReadFile(path) //nolint:gosec // intentional: reading user-specified declaration files
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	pb, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pb, nil
}

// Load parses a YAML declaration and builds its playbook. Unknown fields are
// rejected.
func Load(data []byte) (*Playbook, error) {
	var doc Doc
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return Build(&doc)
}

// Build constructs a playbook from a parsed declaration.
func Build(doc *Doc) (*Playbook, error) {
	if doc.APIVersion != SupportedAPIVersion {
		return nil, domain.ErrValidation("unsupported apiVersion %q (expected %q)", doc.APIVersion, SupportedAPIVersion)
	}
	if doc.Kind != KindPlaybook {
		return nil, domain.ErrValidation("unexpected kind %q (expected %q)", doc.Kind, KindPlaybook)
	}
	pb, err := New(doc.Metadata.AccountID, doc.Metadata.Region)
	if err != nil {
		return nil, err
	}
	b := &builder{pb: pb, principals: make(map[string]domain.Principal), filters: make(map[string][]string)}

	steps := []func(*Spec) error{
		b.databases,
		b.locations,
		b.dataCellsFilters,
		b.tags,
		b.declarePrincipals,
		b.attachments,
		b.grants,
	}
	for _, step := range steps {
		if err := step(&doc.Spec); err != nil {
			return nil, err
		}
	}
	return pb, nil
}

type builder struct {
	pb         *Playbook
	principals map[string]domain.Principal
	// filters maps a filter name to the ids of declared filters with it.
	filters map[string][]string
}

func (b *builder) databases(spec *Spec) error {
	for _, ds := range spec.Databases {
		catalog := ds.CatalogID
		if catalog == "" {
			catalog = b.pb.AccountID
		}
		db, err := domain.NewDatabase(catalog, b.pb.Region, ds.Name)
		if err != nil {
			return err
		}
		if err := b.pb.AddResource(db); err != nil {
			return err
		}
		for _, ts := range ds.Tables {
			t, err := db.AddTable(ts.Name)
			if err != nil {
				return fmt.Errorf("database %s: %w", ds.Name, err)
			}
			if err := b.pb.AddResource(t); err != nil {
				return err
			}
			for _, cs := range ts.Columns {
				c, err := t.AddColumn(cs)
				if err != nil {
					return fmt.Errorf("table %s.%s: %w", ds.Name, ts.Name, err)
				}
				if err := b.pb.AddResource(c); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (b *builder) locations(spec *Spec) error {
	for _, ls := range spec.Locations {
		loc, err := domain.NewDataLakeLocation(b.pb.AccountID, ls.ResourceARN, ls.RoleARN)
		if err != nil {
			return err
		}
		if err := b.pb.AddResource(loc); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) dataCellsFilters(spec *Spec) error {
	for _, fs := range spec.DataCellsFilters {
		exclude := fs.ExcludeColumns
		if fs.AllColumns {
			if len(fs.ExcludeColumns) > 0 {
				return domain.ErrValidation("data cells filter %q: all_columns and exclude_columns are exclusive", fs.Name)
			}
			exclude = []string{}
		}
		f, err := domain.NewDataCellsFilter(domain.DataCellsFilterSpec{
			FilterName:          fs.Name,
			CatalogID:           b.pb.AccountID,
			DatabaseName:        fs.Database,
			TableName:           fs.Table,
			RowFilterExpression: fs.RowFilter,
			IncludeColumns:      fs.IncludeColumns,
			ExcludeColumns:      exclude,
		})
		if err != nil {
			return err
		}
		if err := b.pb.AddResource(f); err != nil {
			return err
		}
		b.filters[fs.Name] = append(b.filters[fs.Name], f.ID())
	}
	return nil
}

func (b *builder) tags(spec *Spec) error {
	for _, ts := range spec.Tags {
		if len(ts.Values) == 0 {
			return domain.ErrValidation("tag %q: at least one value is required", ts.Key)
		}
		for _, v := range ts.Values {
			tag, err := domain.NewTag(b.pb.AccountID, ts.Key, v)
			if err != nil {
				return err
			}
			if err := b.pb.AddResource(tag); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) declarePrincipals(spec *Spec) error {
	for _, ps := range spec.Principals {
		if ps.Name == "" {
			return domain.ErrValidation("principal name is required")
		}
		if _, ok := b.principals[ps.Name]; ok {
			return domain.ErrDuplicate("principal", ps.Name)
		}
		identifier := ps.ARN
		if domain.PrincipalType(ps.Type) == domain.PrincipalExternalAccount {
			identifier = ps.AccountID
		}
		p, err := domain.NewPrincipal(domain.PrincipalType(ps.Type), identifier)
		if err != nil {
			return fmt.Errorf("principal %s: %w", ps.Name, err)
		}
		b.principals[ps.Name] = p
	}
	return nil
}

func (b *builder) attachments(spec *Spec) error {
	for i, as := range spec.Attachments {
		res, err := b.resolve(as.Resource)
		if err != nil {
			return fmt.Errorf("attachment %d: %w", i, err)
		}
		tags := make([]*domain.Tag, 0, len(as.Tags))
		for _, ref := range as.Tags {
			r, err := b.resolve(ResourceRef{Tag: ref})
			if err != nil {
				return fmt.Errorf("attachment %d: %w", i, err)
			}
			tags = append(tags, r.(*domain.Tag))
		}
		if _, err := b.pb.Attach(res, tags...); err != nil {
			return fmt.Errorf("attachment %d: %w", i, err)
		}
	}
	return nil
}

func (b *builder) grants(spec *Spec) error {
	for i, gs := range spec.Grants {
		principal, ok := b.principals[gs.Principal]
		if !ok {
			return domain.ErrNotFound("grant %d: principal %q is not declared", i, gs.Principal)
		}
		res, err := b.resolve(gs.Resource)
		if err != nil {
			return fmt.Errorf("grant %d: %w", i, err)
		}
		perms := make([]domain.Permission, 0, len(gs.Permissions))
		for _, id := range gs.Permissions {
			perm, err := domain.PermissionByID(id)
			if err != nil {
				return fmt.Errorf("grant %d: %w", i, err)
			}
			perms = append(perms, perm)
		}
		if _, err := b.pb.Grant(principal, res, perms...); err != nil {
			return fmt.Errorf("grant %d: %w", i, err)
		}
	}
	return nil
}

// resolve finds the declared resource a reference points at.
func (b *builder) resolve(ref ResourceRef) (domain.Resource, error) {
	set := 0
	for _, v := range []string{ref.Database, ref.Location, ref.Filter, ref.Tag} {
		if v != "" {
			set++
		}
	}
	if set != 1 || (ref.Database == "" && (ref.Table != "" || ref.Column != "")) || (ref.Column != "" && ref.Table == "") {
		return nil, domain.ErrValidation("invalid resource reference %+v", ref)
	}

	var id string
	switch {
	case ref.Database != "":
		dbRef := domain.DatabaseRef{CatalogID: b.pb.AccountID, Region: b.pb.Region, Name: ref.Database}
		id = dbRef.ID()
		if ref.Table != "" {
			tableRef := domain.TableRef{Database: dbRef, Name: ref.Table}
			id = tableRef.ID()
			if ref.Column != "" {
				c, err := domain.NewColumn(tableRef, ref.Column)
				if err != nil {
					return nil, err
				}
				id = c.ID()
			}
		}
	case ref.Location != "":
		loc, err := domain.NewDataLakeLocation(b.pb.AccountID, ref.Location, "")
		if err != nil {
			return nil, err
		}
		id = loc.ID()
	case ref.Filter != "":
		ids := b.filters[ref.Filter]
		if len(ids) != 1 {
			return nil, domain.ErrValidation("filter reference %q matches %d declared filters", ref.Filter, len(ids))
		}
		id = ids[0]
	case ref.Tag != "":
		key, value, ok := strings.Cut(ref.Tag, "=")
		if !ok {
			return nil, domain.ErrValidation("tag reference %q must be key=value", ref.Tag)
		}
		tag, err := domain.NewTag(b.pb.AccountID, key, value)
		if err != nil {
			return nil, err
		}
		id = tag.ID()
	}

	r, ok := b.pb.Desired().Resources.Get(id)
	if !ok {
		return nil, domain.ErrNotFound("resource %q is not declared", id)
	}
	return r, nil
}
