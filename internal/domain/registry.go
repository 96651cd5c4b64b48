package domain

import (
	"encoding/json"
	"fmt"
)

// Each closed family decodes through one dispatch table keyed by its type
// tag. Adding a variant means adding a constant, a type and an entry here.

var principalDecoders = map[PrincipalType]func(principalJSON) (Principal, error){
	PrincipalIAMRole:  func(p principalJSON) (Principal, error) { return NewIAMRole(p.ARN) },
	PrincipalIAMUser:  func(p principalJSON) (Principal, error) { return NewIAMUser(p.ARN) },
	PrincipalIAMGroup: func(p principalJSON) (Principal, error) { return NewIAMGroup(p.ARN) },
	PrincipalExternalAccount: func(p principalJSON) (Principal, error) {
		return NewExternalAccount(p.AccountID)
	},
}

var resourceDecoders = map[ResourceType]func([]byte) (Resource, error){
	ResourceDatabase:         decodeDatabase,
	ResourceTable:            decodeTable,
	ResourceColumn:           decodeColumn,
	ResourceDataLakeLocation: decodeLocation,
	ResourceDataCellsFilter:  decodeFilter,
	ResourceTag:              decodeTag,
}

// DecodePrincipal is the inverse of Principal.MarshalJSON.
func DecodePrincipal(data []byte) (Principal, error) {
	var raw principalJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Principal{}, fmt.Errorf("decode principal: %w", err)
	}
	decode, ok := principalDecoders[raw.PrincipalType]
	if !ok {
		return Principal{}, ErrUnknownVariant("principal", string(raw.PrincipalType))
	}
	return decode(raw)
}

// DecodeResource is the inverse of the resource MarshalJSON methods.
func DecodeResource(data []byte) (Resource, error) {
	var head struct {
		ResType ResourceType `json:"res_type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode resource: %w", err)
	}
	decode, ok := resourceDecoders[head.ResType]
	if !ok {
		return nil, ErrUnknownVariant("resource", string(head.ResType))
	}
	return decode(data)
}

// DecodePermission is the inverse of Permission.MarshalJSON. The decoded
// record must match its catalog entry.
func DecodePermission(data []byte) (Permission, error) {
	var raw permissionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Permission{}, fmt.Errorf("decode permission: %w", err)
	}
	p, err := PermissionByID(raw.Identifier)
	if err != nil {
		return Permission{}, err
	}
	if p.ResourceType != raw.ResourceType || p.Action != raw.Action || p.Grantable != raw.Grantable {
		return Permission{}, ErrValidation("permission %q does not match its catalog entry", raw.Identifier)
	}
	return p, nil
}

func decodeInto[T any](data []byte, what string) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", what, err)
	}
	return v, nil
}

func (j databaseJSON) build() (*Database, error) {
	return NewDatabase(j.CatalogID, j.Region, j.Name)
}

func (j tableJSON) build() (*Table, error) {
	db, err := j.Database.build()
	if err != nil {
		return nil, err
	}
	return NewTable(db.Ref(), j.Name)
}

func decodeDatabase(data []byte) (Resource, error) {
	j, err := decodeInto[databaseJSON](data, "database")
	if err != nil {
		return nil, err
	}
	return j.build()
}

func decodeTable(data []byte) (Resource, error) {
	j, err := decodeInto[tableJSON](data, "table")
	if err != nil {
		return nil, err
	}
	return j.build()
}

func decodeColumn(data []byte) (Resource, error) {
	j, err := decodeInto[columnJSON](data, "column")
	if err != nil {
		return nil, err
	}
	t, err := j.Table.build()
	if err != nil {
		return nil, err
	}
	return NewColumn(t.Ref(), j.Name)
}

func decodeLocation(data []byte) (Resource, error) {
	j, err := decodeInto[locationJSON](data, "data lake location")
	if err != nil {
		return nil, err
	}
	role := ""
	if j.RoleARN != nil {
		role = *j.RoleARN
	}
	return NewDataLakeLocation(j.CatalogID, j.ResourceARN, role)
}

func decodeFilter(data []byte) (Resource, error) {
	j, err := decodeInto[filterJSON](data, "data cells filter")
	if err != nil {
		return nil, err
	}
	return NewDataCellsFilter(DataCellsFilterSpec{
		FilterName:          j.FilterName,
		CatalogID:           j.CatalogID,
		DatabaseName:        j.DatabaseName,
		TableName:           j.TableName,
		RowFilterExpression: j.RowFilterExpression,
		IncludeColumns:      j.IncludeColumns,
		ExcludeColumns:      j.ExcludeColumns,
	})
}

func decodeTag(data []byte) (Resource, error) {
	j, err := decodeInto[tagJSON](data, "tag")
	if err != nil {
		return nil, err
	}
	return NewTag(j.CatalogID, j.Key, j.Value)
}
