// Package mapper converts domain associations into the argument shapes the
// permission backend accepts. Field names follow the backend wire format.
package mapper

import (
	"fmt"

	"lf-playbook/internal/domain"
)

// DatabaseArg addresses a catalog database.
type DatabaseArg struct {
	CatalogId string `json:"CatalogId"`
	Name      string `json:"Name"`
}

// TableArg addresses a catalog table.
type TableArg struct {
	CatalogId    string `json:"CatalogId"`
	DatabaseName string `json:"DatabaseName"`
	Name         string `json:"Name"`
}

// TableWithColumnsArg addresses a subset of a table's columns.
type TableWithColumnsArg struct {
	CatalogId    string   `json:"CatalogId"`
	DatabaseName string   `json:"DatabaseName"`
	Name         string   `json:"Name"`
	ColumnNames  []string `json:"ColumnNames"`
}

// DataLocationArg addresses a registered storage location.
type DataLocationArg struct {
	CatalogId   string `json:"CatalogId"`
	ResourceArn string `json:"ResourceArn"`
}

// DataCellsFilterArg addresses a data cells filter.
type DataCellsFilterArg struct {
	TableCatalogId string `json:"TableCatalogId"`
	DatabaseName   string `json:"DatabaseName"`
	TableName      string `json:"TableName"`
	Name           string `json:"Name"`
}

// TagExpr is one key with the values it matches.
type TagExpr struct {
	TagKey    string   `json:"TagKey"`
	TagValues []string `json:"TagValues"`
}

// LFTagPolicyArg addresses every resource of ResourceType that matches
// Expression.
type LFTagPolicyArg struct {
	CatalogId    string    `json:"CatalogId"`
	ResourceType string    `json:"ResourceType"`
	Expression   []TagExpr `json:"Expression"`
}

// ResourceArg is a tagged union: exactly one field is set.
type ResourceArg struct {
	Database         *DatabaseArg         `json:"Database,omitempty"`
	Table            *TableArg            `json:"Table,omitempty"`
	TableWithColumns *TableWithColumnsArg `json:"TableWithColumns,omitempty"`
	DataLocation     *DataLocationArg     `json:"DataLocation,omitempty"`
	DataCellsFilter  *DataCellsFilterArg  `json:"DataCellsFilter,omitempty"`
	LFTagPolicy      *LFTagPolicyArg      `json:"LFTagPolicy,omitempty"`
}

// LFTagArg is a tag key with the values being attached.
type LFTagArg struct {
	CatalogId string   `json:"CatalogId"`
	TagKey    string   `json:"TagKey"`
	TagValues []string `json:"TagValues"`
}

// PrincipalArg identifies a grantee.
type PrincipalArg struct {
	DataLakePrincipalIdentifier string `json:"DataLakePrincipalIdentifier"`
}

// GrantEntryArg is one entry of a batch grant or revoke request.
type GrantEntryArg struct {
	Id                         string       `json:"Id"`
	Principal                  PrincipalArg `json:"Principal"`
	Resource                   ResourceArg  `json:"Resource"`
	Permissions                []string     `json:"Permissions"`
	PermissionsWithGrantOption []string     `json:"PermissionsWithGrantOption,omitempty"`
}

// TagEntryArg is one add-tags or remove-tags request.
type TagEntryArg struct {
	Resource ResourceArg `json:"Resource"`
	LFTags   []LFTagArg  `json:"LFTags"`
}

func databaseArg(d *domain.Database) *DatabaseArg {
	return &DatabaseArg{CatalogId: d.CatalogID, Name: d.Name}
}

func tableArg(t *domain.Table) *TableArg {
	return &TableArg{CatalogId: t.CatalogID(), DatabaseName: t.Database.Name, Name: t.Name}
}

func columnArg(c *domain.Column) *TableWithColumnsArg {
	return &TableWithColumnsArg{
		CatalogId:    c.CatalogID(),
		DatabaseName: c.Table.Database.Name,
		Name:         c.Table.Name,
		ColumnNames:  []string{c.Name},
	}
}

func tagArg(t *domain.Tag) LFTagArg {
	return LFTagArg{CatalogId: t.CatalogID, TagKey: t.Key, TagValues: []string{t.Value}}
}

// TagResource returns the resource argument for attaching or detaching tags.
// Only databases, tables and columns can carry tags.
func TagResource(r domain.Resource) (ResourceArg, error) {
	switch v := r.(type) {
	case *domain.Database:
		return ResourceArg{Database: databaseArg(v)}, nil
	case *domain.Table:
		return ResourceArg{Table: tableArg(v)}, nil
	case *domain.Column:
		return ResourceArg{TableWithColumns: columnArg(v)}, nil
	default:
		return ResourceArg{}, domain.ErrUnsupported(r.ResourceType(), domain.KindTagAttachment)
	}
}

// GrantResource returns the resource argument for granting perm on r. A tag
// becomes a single-key tag policy scoped to the permission's resource type.
func GrantResource(r domain.Resource, perm domain.Permission) (ResourceArg, error) {
	switch v := r.(type) {
	case *domain.Database:
		return ResourceArg{Database: databaseArg(v)}, nil
	case *domain.Table:
		return ResourceArg{Table: tableArg(v)}, nil
	case *domain.Column:
		return ResourceArg{TableWithColumns: columnArg(v)}, nil
	case *domain.DataLakeLocation:
		return ResourceArg{DataLocation: &DataLocationArg{CatalogId: v.CatalogID, ResourceArn: v.ResourceARN}}, nil
	case *domain.DataCellsFilter:
		return ResourceArg{DataCellsFilter: &DataCellsFilterArg{
			TableCatalogId: v.CatalogID,
			DatabaseName:   v.DatabaseName,
			TableName:      v.TableName,
			Name:           v.FilterName,
		}}, nil
	case *domain.Tag:
		return ResourceArg{LFTagPolicy: &LFTagPolicyArg{
			CatalogId:    v.CatalogID,
			ResourceType: perm.ResourceType,
			Expression:   []TagExpr{{TagKey: v.Key, TagValues: []string{v.Value}}},
		}}, nil
	default:
		return ResourceArg{}, domain.ErrUnsupported(r.ResourceType(), domain.KindGrant)
	}
}

// GrantEntry builds the batch entry for g. Entry ids are positional within a
// batch; the caller maps them back to grant ids.
func GrantEntry(entryID string, g *domain.Grant) (GrantEntryArg, error) {
	res, err := GrantResource(g.Resource, g.Permission)
	if err != nil {
		return GrantEntryArg{}, fmt.Errorf("map grant %s: %w", g.ID(), err)
	}
	entry := GrantEntryArg{
		Id:          entryID,
		Principal:   PrincipalArg{DataLakePrincipalIdentifier: g.Principal.ID()},
		Resource:    res,
		Permissions: []string{g.Permission.Action},
	}
	if g.Permission.Grantable {
		entry.PermissionsWithGrantOption = []string{g.Permission.Action}
	}
	return entry, nil
}

// TagEntry builds the add-tags or remove-tags request for a.
func TagEntry(a *domain.TagAttachment) (TagEntryArg, error) {
	res, err := TagResource(a.Resource)
	if err != nil {
		return TagEntryArg{}, fmt.Errorf("map tag attachment %s: %w", a.ID(), err)
	}
	return TagEntryArg{Resource: res, LFTags: []LFTagArg{tagArg(a.Tag)}}, nil
}
