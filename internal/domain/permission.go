package domain

import "encoding/json"

// Permission resource types.
const (
	PermResourceDatabase     = "DATABASE"
	PermResourceTable        = "TABLE"
	PermResourceDataLocation = "DATA_LOCATION"
)

// Permission is an immutable named grant from the fixed catalog below.
// A Grantable permission also confers the right to re-grant it.
type Permission struct {
	Identifier   string
	ResourceType string
	Action       string
	Grantable    bool
}

// ID implements Entity.
func (p Permission) ID() string { return p.Identifier }

// IsZero reports whether p was never assigned.
func (p Permission) IsZero() bool { return p.Identifier == "" }

// Permission catalog.
var (
	PermCreateTable      = Permission{"CreateTable", PermResourceDatabase, "CREATE_TABLE", false}
	PermAlterDatabase    = Permission{"AlterDatabase", PermResourceDatabase, "ALTER", false}
	PermDropDatabase     = Permission{"DropDatabase", PermResourceDatabase, "DROP", false}
	PermDescribeDatabase = Permission{"DescribeDatabase", PermResourceDatabase, "DESCRIBE", false}
	PermSuperDatabase    = Permission{"SuperDatabase", PermResourceDatabase, "ALL", false}

	PermSelect        = Permission{"Select", PermResourceTable, "SELECT", false}
	PermInsert        = Permission{"Insert", PermResourceTable, "INSERT", false}
	PermDelete        = Permission{"Delete", PermResourceTable, "DELETE", false}
	PermDescribeTable = Permission{"DescribeTable", PermResourceTable, "DESCRIBE", false}
	PermAlterTable    = Permission{"AlterTable", PermResourceTable, "ALTER", false}
	PermDropTable     = Permission{"DropTable", PermResourceTable, "DROP", false}
	PermSuperTable    = Permission{"SuperTable", PermResourceTable, "ALL", false}

	PermDataLocationAccess = Permission{"DataLocationAccess", PermResourceDataLocation, "DATA_LOCATION_ACCESS", false}

	PermCreateTableGrantable        = grantable(PermCreateTable)
	PermAlterDatabaseGrantable      = grantable(PermAlterDatabase)
	PermDropDatabaseGrantable       = grantable(PermDropDatabase)
	PermDescribeDatabaseGrantable   = grantable(PermDescribeDatabase)
	PermSuperDatabaseGrantable      = grantable(PermSuperDatabase)
	PermSelectGrantable             = grantable(PermSelect)
	PermInsertGrantable             = grantable(PermInsert)
	PermDeleteGrantable             = grantable(PermDelete)
	PermDescribeTableGrantable      = grantable(PermDescribeTable)
	PermAlterTableGrantable         = grantable(PermAlterTable)
	PermDropTableGrantable          = grantable(PermDropTable)
	PermSuperTableGrantable         = grantable(PermSuperTable)
	PermDataLocationAccessGrantable = grantable(PermDataLocationAccess)
)

func grantable(p Permission) Permission {
	p.Identifier += "Grantable"
	p.Grantable = true
	return p
}

// Permissions lists the catalog in declaration order.
var Permissions = []Permission{
	PermCreateTable, PermAlterDatabase, PermDropDatabase, PermDescribeDatabase, PermSuperDatabase,
	PermSelect, PermInsert, PermDelete, PermDescribeTable, PermAlterTable, PermDropTable, PermSuperTable,
	PermDataLocationAccess,
	PermCreateTableGrantable, PermAlterDatabaseGrantable, PermDropDatabaseGrantable,
	PermDescribeDatabaseGrantable, PermSuperDatabaseGrantable,
	PermSelectGrantable, PermInsertGrantable, PermDeleteGrantable, PermDescribeTableGrantable,
	PermAlterTableGrantable, PermDropTableGrantable, PermSuperTableGrantable,
	PermDataLocationAccessGrantable,
}

var permissionsByID = func() map[string]Permission {
	m := make(map[string]Permission, len(Permissions))
	for _, p := range Permissions {
		m[p.Identifier] = p
	}
	return m
}()

// PermissionByID looks up a catalog entry.
func PermissionByID(id string) (Permission, error) {
	p, ok := permissionsByID[id]
	if !ok {
		return Permission{}, ErrUnknownVariant("permission", id)
	}
	return p, nil
}

// AppliesTo reports whether p can be granted on r. Tags carry database and
// table permissions through tag policies.
func (p Permission) AppliesTo(r Resource) bool {
	switch r.(type) {
	case *Database:
		return p.ResourceType == PermResourceDatabase
	case *Table, *Column, *DataCellsFilter:
		return p.ResourceType == PermResourceTable
	case *DataLakeLocation:
		return p.ResourceType == PermResourceDataLocation
	case *Tag:
		return p.ResourceType == PermResourceDatabase || p.ResourceType == PermResourceTable
	default:
		return false
	}
}

type permissionJSON struct {
	Identifier   string `json:"identifier"`
	ResourceType string `json:"resource_type"`
	Action       string `json:"action"`
	Grantable    bool   `json:"grantable"`
}

// MarshalJSON implements json.Marshaler.
func (p Permission) MarshalJSON() ([]byte, error) {
	return json.Marshal(permissionJSON(p))
}

// UnmarshalJSON resolves the record against the catalog.
func (p *Permission) UnmarshalJSON(data []byte) error {
	decoded, err := DecodePermission(data)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}
