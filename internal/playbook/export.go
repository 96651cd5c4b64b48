package playbook

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"lf-playbook/internal/domain"
)

// ExportDoc renders discovered principals and resources as a declaration
// with no associations. Principals are named by their VarName. Tables and
// columns are taken from their databases.
func ExportDoc(accountID, region string, principals []domain.Principal, resources []domain.Resource) *Doc {
	doc := &Doc{
		APIVersion: SupportedAPIVersion,
		Kind:       KindPlaybook,
		Metadata:   DocMeta{AccountID: accountID, Region: region},
	}
	spec := &doc.Spec

	for _, p := range principals {
		ps := PrincipalSpec{Name: p.VarName(), Type: string(p.Type)}
		if p.Type == domain.PrincipalExternalAccount {
			ps.AccountID = p.Identifier
		} else {
			ps.ARN = p.Identifier
		}
		spec.Principals = append(spec.Principals, ps)
	}

	tagIndex := make(map[string]int)
	for _, r := range resources {
		switch v := r.(type) {
		case *domain.Database:
			ds := DatabaseSpec{Name: v.Name}
			if v.CatalogID != accountID {
				ds.CatalogID = v.CatalogID
			}
			for _, tn := range v.TableNames() {
				t := v.Tables[tn]
				ds.Tables = append(ds.Tables, TableSpec{Name: tn, Columns: t.ColumnNames()})
			}
			spec.Databases = append(spec.Databases, ds)
		case *domain.DataLakeLocation:
			spec.Locations = append(spec.Locations, LocationSpec{ResourceARN: v.ResourceARN, RoleARN: v.RoleARN})
		case *domain.DataCellsFilter:
			fs := FilterSpec{
				Name:           v.FilterName,
				Database:       v.DatabaseName,
				Table:          v.TableName,
				RowFilter:      v.RowFilterExpression,
				IncludeColumns: v.IncludeColumns,
				ExcludeColumns: v.ExcludeColumns,
			}
			if v.ExcludeColumns != nil && len(v.ExcludeColumns) == 0 {
				fs.AllColumns = true
				fs.ExcludeColumns = nil
			}
			spec.DataCellsFilters = append(spec.DataCellsFilters, fs)
		case *domain.Tag:
			i, ok := tagIndex[v.Key]
			if !ok {
				i = len(spec.Tags)
				tagIndex[v.Key] = i
				spec.Tags = append(spec.Tags, TagSpec{Key: v.Key})
			}
			spec.Tags[i].Values = append(spec.Tags[i].Values, v.Value)
		}
	}
	return doc
}

// MarshalDoc encodes a declaration as YAML.
func MarshalDoc(doc *Doc) ([]byte, error) {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode declaration: %w", err)
	}
	return out, nil
}
