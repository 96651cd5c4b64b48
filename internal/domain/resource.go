package domain

import (
	"encoding/json"
	"sort"
	"strings"
)

// ResourceType is the discriminant of the closed Resource family.
type ResourceType string

// Resource variants.
const (
	ResourceDatabase         ResourceType = "Database"
	ResourceTable            ResourceType = "Table"
	ResourceColumn           ResourceType = "Column"
	ResourceDataLakeLocation ResourceType = "DataLakeLocation"
	ResourceDataCellsFilter  ResourceType = "DataCellsFilter"
	ResourceTag              ResourceType = "Tag"
)

// ResourceTypes lists every variant in declaration order.
var ResourceTypes = []ResourceType{
	ResourceDatabase,
	ResourceTable,
	ResourceColumn,
	ResourceDataLakeLocation,
	ResourceDataCellsFilter,
	ResourceTag,
}

// Resource is a catalog object or a tag. The set of implementations is
// closed: *Database, *Table, *Column, *DataLakeLocation, *DataCellsFilter
// and *Tag.
type Resource interface {
	Managed
	ResourceType() ResourceType
	VarName() string
	isResource()
}

// === Database ===

// DatabaseRef identifies a database without owning it.
type DatabaseRef struct {
	CatalogID string
	Region    string
	Name      string
}

// ID returns the database id.
func (r DatabaseRef) ID() string {
	return joinID("database", r.CatalogID, r.Region, r.Name)
}

func (r DatabaseRef) attrName() string {
	return ToVarName(r.CatalogID + "_" + r.Region + "_" + r.Name)
}

// Database is a catalog database. It owns its tables by name.
type Database struct {
	Ownership
	DatabaseRef
	Tables map[string]*Table
}

// NewDatabase validates and constructs a database.
func NewDatabase(catalogID, region, name string) (*Database, error) {
	if err := ValidateAccountID(catalogID); err != nil {
		return nil, err
	}
	if region == "" {
		return nil, ErrValidation("database %q: region is required", name)
	}
	if name == "" {
		return nil, ErrValidation("database name is required")
	}
	return &Database{
		DatabaseRef: DatabaseRef{CatalogID: catalogID, Region: region, Name: name},
		Tables:      make(map[string]*Table),
	}, nil
}

// ID implements Entity.
func (d *Database) ID() string { return d.DatabaseRef.ID() }

// ResourceType implements Resource.
func (d *Database) ResourceType() ResourceType { return ResourceDatabase }

// VarName returns e.g. "db_111122223333_us_east_1_amz".
func (d *Database) VarName() string { return "db_" + d.attrName() }

// Ref returns the non-owning reference used by child tables.
func (d *Database) Ref() DatabaseRef { return d.DatabaseRef }

// AddTable creates a table in this database.
func (d *Database) AddTable(name string) (*Table, error) {
	if _, ok := d.Tables[name]; ok {
		return nil, ErrDuplicate("table", name)
	}
	t, err := NewTable(d.Ref(), name)
	if err != nil {
		return nil, err
	}
	if d.Tables == nil {
		d.Tables = make(map[string]*Table)
	}
	d.Tables[name] = t
	return t, nil
}

// TableNames returns the owned table names in sorted order.
func (d *Database) TableNames() []string {
	return sortedKeys(d.Tables)
}

func (d *Database) isResource() {}

// === Table ===

// TableRef identifies a table without owning it.
type TableRef struct {
	Database DatabaseRef
	Name     string
}

// ID returns the table id.
func (r TableRef) ID() string {
	return joinID(r.Database.ID(), "table", r.Name)
}

// Table is a catalog table. It reads through to its database but does not
// own it, and owns its columns by name.
type Table struct {
	Ownership
	TableRef
	Columns map[string]*Column
}

// NewTable validates and constructs a table in db.
func NewTable(db DatabaseRef, name string) (*Table, error) {
	if db.Name == "" {
		return nil, ErrValidation("table %q: database is required", name)
	}
	if name == "" {
		return nil, ErrValidation("table name is required")
	}
	return &Table{
		TableRef: TableRef{Database: db, Name: name},
		Columns:  make(map[string]*Column),
	}, nil
}

// ID implements Entity.
func (t *Table) ID() string { return t.TableRef.ID() }

// ResourceType implements Resource.
func (t *Table) ResourceType() ResourceType { return ResourceTable }

// CatalogID returns the owning database's catalog id.
func (t *Table) CatalogID() string { return t.Database.CatalogID }

// VarName returns e.g. "tb_111122223333_us_east_1_amz_user".
func (t *Table) VarName() string {
	return "tb_" + t.Database.attrName() + "_" + ToVarName(t.Name)
}

// Ref returns the non-owning reference used by child columns.
func (t *Table) Ref() TableRef { return t.TableRef }

// AddColumn creates a column in this table.
func (t *Table) AddColumn(name string) (*Column, error) {
	if _, ok := t.Columns[name]; ok {
		return nil, ErrDuplicate("column", name)
	}
	c, err := NewColumn(t.Ref(), name)
	if err != nil {
		return nil, err
	}
	if t.Columns == nil {
		t.Columns = make(map[string]*Column)
	}
	t.Columns[name] = c
	return c, nil
}

// ColumnNames returns the owned column names in sorted order.
func (t *Table) ColumnNames() []string {
	return sortedKeys(t.Columns)
}

func (t *Table) isResource() {}

// === Column ===

// Column is a table column.
type Column struct {
	Ownership
	Name  string
	Table TableRef
}

// NewColumn validates and constructs a column of table.
func NewColumn(table TableRef, name string) (*Column, error) {
	if table.Name == "" {
		return nil, ErrValidation("column %q: table is required", name)
	}
	if name == "" {
		return nil, ErrValidation("column name is required")
	}
	return &Column{Name: name, Table: table}, nil
}

// ID implements Entity.
func (c *Column) ID() string { return joinID(c.Table.ID(), "column", c.Name) }

// ResourceType implements Resource.
func (c *Column) ResourceType() ResourceType { return ResourceColumn }

// CatalogID returns the owning database's catalog id.
func (c *Column) CatalogID() string { return c.Table.Database.CatalogID }

// VarName returns e.g. "col_111122223333_us_east_1_amz_user_id".
func (c *Column) VarName() string {
	return "col_" + c.Table.Database.attrName() + "_" + ToVarName(c.Table.Name) + "_" + ToVarName(c.Name)
}

func (c *Column) isResource() {}

// === DataLakeLocation ===

// DataLakeLocation is a registered storage location. An empty RoleARN means
// the service-linked role is used.
type DataLakeLocation struct {
	Ownership
	CatalogID   string
	ResourceARN string
	RoleARN     string
}

// NewDataLakeLocation validates and constructs a location.
func NewDataLakeLocation(catalogID, resourceARN, roleARN string) (*DataLakeLocation, error) {
	if err := ValidateAccountID(catalogID); err != nil {
		return nil, err
	}
	if resourceARN == "" {
		return nil, ErrValidation("data lake location: resource ARN is required")
	}
	if roleARN != "" {
		if err := ValidateIAMARN(roleARN); err != nil {
			return nil, err
		}
	}
	return &DataLakeLocation{CatalogID: catalogID, ResourceARN: resourceARN, RoleARN: roleARN}, nil
}

// ID implements Entity.
func (l *DataLakeLocation) ID() string { return joinID("location", l.CatalogID, l.ResourceARN) }

// ResourceType implements Resource.
func (l *DataLakeLocation) ResourceType() ResourceType { return ResourceDataLakeLocation }

// UsesServiceLinkedRole reports whether no explicit role was given.
func (l *DataLakeLocation) UsesServiceLinkedRole() bool { return l.RoleARN == "" }

// VarName returns e.g. "dl_loc_111122223333_arn_aws_s3___bucket".
func (l *DataLakeLocation) VarName() string {
	return "dl_loc_" + ToVarName(l.CatalogID+"_"+l.ResourceARN)
}

func (l *DataLakeLocation) isResource() {}

// === DataCellsFilter ===

// DataCellsFilter restricts rows and columns of one table. Exactly one of
// IncludeColumns and ExcludeColumns is non-nil; an empty ExcludeColumns
// selects every column.
type DataCellsFilter struct {
	Ownership
	FilterName          string
	CatalogID           string
	DatabaseName        string
	TableName           string
	RowFilterExpression string
	IncludeColumns      []string
	ExcludeColumns      []string
}

// DataCellsFilterSpec holds the construction parameters of a DataCellsFilter.
type DataCellsFilterSpec struct {
	FilterName          string
	CatalogID           string
	DatabaseName        string
	TableName           string
	RowFilterExpression string
	IncludeColumns      []string
	ExcludeColumns      []string
}

// NewDataCellsFilter validates spec and constructs a filter.
func NewDataCellsFilter(spec DataCellsFilterSpec) (*DataCellsFilter, error) {
	if spec.FilterName == "" {
		return nil, ErrValidation("data cells filter name is required")
	}
	if err := ValidateAccountID(spec.CatalogID); err != nil {
		return nil, err
	}
	if spec.DatabaseName == "" || spec.TableName == "" {
		return nil, ErrValidation("data cells filter %q: database and table names are required", spec.FilterName)
	}
	hasInclude := spec.IncludeColumns != nil
	hasExclude := spec.ExcludeColumns != nil
	if hasInclude == hasExclude {
		return nil, ErrValidation("data cells filter %q: exactly one of include_columns and exclude_columns must be set", spec.FilterName)
	}
	if hasInclude && len(spec.IncludeColumns) == 0 {
		return nil, ErrValidation("data cells filter %q: include_columns must not be empty", spec.FilterName)
	}
	return &DataCellsFilter{
		FilterName:          spec.FilterName,
		CatalogID:           spec.CatalogID,
		DatabaseName:        spec.DatabaseName,
		TableName:           spec.TableName,
		RowFilterExpression: spec.RowFilterExpression,
		IncludeColumns:      cloneStrings(spec.IncludeColumns),
		ExcludeColumns:      cloneStrings(spec.ExcludeColumns),
	}, nil
}

// ID implements Entity.
func (f *DataCellsFilter) ID() string {
	return joinID("filter", f.CatalogID, f.DatabaseName, f.TableName, f.FilterName)
}

// ResourceType implements Resource.
func (f *DataCellsFilter) ResourceType() ResourceType { return ResourceDataCellsFilter }

// VarName returns e.g. "filter_111122223333_no_user_password".
func (f *DataCellsFilter) VarName() string {
	return "filter_" + ToVarName(f.CatalogID+"_"+f.FilterName)
}

func (f *DataCellsFilter) isResource() {}

// === Tag ===

// Tag is a key=value label used by tag-based policies. It is not a
// containment node.
type Tag struct {
	Ownership
	CatalogID string
	Key       string
	Value     string
}

// NewTag validates and constructs a tag.
func NewTag(catalogID, key, value string) (*Tag, error) {
	if err := ValidateAccountID(catalogID); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, ErrValidation("tag key is required")
	}
	if value == "" {
		return nil, ErrValidation("tag %q: value is required", key)
	}
	return &Tag{CatalogID: catalogID, Key: key, Value: value}, nil
}

// ID implements Entity.
func (t *Tag) ID() string { return joinID("tag", t.CatalogID, t.Key, t.Value) }

// ResourceType implements Resource.
func (t *Tag) ResourceType() ResourceType { return ResourceTag }

// VarName returns e.g. "lf_tag_admin_y".
func (t *Tag) VarName() string {
	return "lf_tag_" + ToVarName(strings.ToLower(t.Key)) + "_" + ToVarName(strings.ToLower(t.Value))
}

// String returns "key=value".
func (t *Tag) String() string { return t.Key + "=" + t.Value }

func (t *Tag) isResource() {}

// === JSON ===

type databaseJSON struct {
	ResType   ResourceType `json:"res_type"`
	CatalogID string       `json:"catalog_id"`
	Region    string       `json:"region"`
	Name      string       `json:"name"`
}

type tableJSON struct {
	ResType  ResourceType `json:"res_type"`
	Name     string       `json:"name"`
	Database databaseJSON `json:"database"`
}

type columnJSON struct {
	ResType ResourceType `json:"res_type"`
	Name    string       `json:"name"`
	Table   tableJSON    `json:"table"`
}

type locationJSON struct {
	ResType     ResourceType `json:"res_type"`
	CatalogID   string       `json:"catalog_id"`
	ResourceARN string       `json:"resource_arn"`
	RoleARN     *string      `json:"role_arn"`
}

type filterJSON struct {
	ResType             ResourceType `json:"res_type"`
	FilterName          string       `json:"filter_name"`
	CatalogID           string       `json:"catalog_id"`
	DatabaseName        string       `json:"database_name"`
	TableName           string       `json:"table_name"`
	RowFilterExpression string       `json:"row_filter_expression"`
	IncludeColumns      []string     `json:"include_columns"`
	ExcludeColumns      []string     `json:"exclude_columns"`
}

type tagJSON struct {
	ResType   ResourceType `json:"res_type"`
	CatalogID string       `json:"catalog_id"`
	Key       string       `json:"key"`
	Value     string       `json:"value"`
}

func (r DatabaseRef) toJSON() databaseJSON {
	return databaseJSON{ResType: ResourceDatabase, CatalogID: r.CatalogID, Region: r.Region, Name: r.Name}
}

func (r TableRef) toJSON() tableJSON {
	return tableJSON{ResType: ResourceTable, Name: r.Name, Database: r.Database.toJSON()}
}

// MarshalJSON implements json.Marshaler.
func (d *Database) MarshalJSON() ([]byte, error) { return json.Marshal(d.DatabaseRef.toJSON()) }

// MarshalJSON implements json.Marshaler.
func (t *Table) MarshalJSON() ([]byte, error) { return json.Marshal(t.TableRef.toJSON()) }

// MarshalJSON implements json.Marshaler.
func (c *Column) MarshalJSON() ([]byte, error) {
	return json.Marshal(columnJSON{ResType: ResourceColumn, Name: c.Name, Table: c.Table.toJSON()})
}

// MarshalJSON implements json.Marshaler.
func (l *DataLakeLocation) MarshalJSON() ([]byte, error) {
	out := locationJSON{ResType: ResourceDataLakeLocation, CatalogID: l.CatalogID, ResourceARN: l.ResourceARN}
	if l.RoleARN != "" {
		role := l.RoleARN
		out.RoleARN = &role
	}
	return json.Marshal(out)
}

// MarshalJSON implements json.Marshaler.
func (f *DataCellsFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(filterJSON{
		ResType:             ResourceDataCellsFilter,
		FilterName:          f.FilterName,
		CatalogID:           f.CatalogID,
		DatabaseName:        f.DatabaseName,
		TableName:           f.TableName,
		RowFilterExpression: f.RowFilterExpression,
		IncludeColumns:      f.IncludeColumns,
		ExcludeColumns:      f.ExcludeColumns,
	})
}

// MarshalJSON implements json.Marshaler.
func (t *Tag) MarshalJSON() ([]byte, error) {
	return json.Marshal(tagJSON{ResType: ResourceTag, CatalogID: t.CatalogID, Key: t.Key, Value: t.Value})
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
