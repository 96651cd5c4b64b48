package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissions_CatalogConsistency(t *testing.T) {
	seen := make(map[string]bool)
	for _, p := range Permissions {
		assert.False(t, seen[p.Identifier], "duplicate identifier %q", p.Identifier)
		seen[p.Identifier] = true

		assert.Equal(t, strings.HasSuffix(p.Identifier, "Grantable"), p.Grantable, p.Identifier)
		assert.Contains(t, []string{PermResourceDatabase, PermResourceTable, PermResourceDataLocation}, p.ResourceType)

		got, err := PermissionByID(p.Identifier)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	assert.Len(t, Permissions, 26)
}

func TestPermissions_GrantableMirrorsBase(t *testing.T) {
	for _, p := range Permissions {
		if !p.Grantable {
			continue
		}
		base, err := PermissionByID(strings.TrimSuffix(p.Identifier, "Grantable"))
		require.NoError(t, err)
		assert.Equal(t, base.ResourceType, p.ResourceType)
		assert.Equal(t, base.Action, p.Action)
	}
}

func TestPermissionByID_Unknown(t *testing.T) {
	_, err := PermissionByID("CreateCatalog")
	var uv *UnknownVariantError
	require.ErrorAs(t, err, &uv)
}

func TestPermission_AppliesTo(t *testing.T) {
	o := newObjects(t)

	tests := []struct {
		name string
		perm Permission
		res  Resource
		want bool
	}{
		{"database perm on database", PermCreateTable, o.dbAmz, true},
		{"table perm on database", PermSelect, o.dbAmz, false},
		{"table perm on table", PermSelect, o.tbAmzUser, true},
		{"table perm on column", PermSelect, o.colAmzUserID, true},
		{"table perm on filter", PermSelect, o.filter, true},
		{"location perm on location", PermDataLocationAccess, o.dlLoc, true},
		{"database perm on location", PermSuperDatabase, o.dlLoc, false},
		{"database perm on tag", PermSuperDatabase, o.tagAdminY, true},
		{"table perm on tag", PermSelectGrantable, o.tagAdminY, true},
		{"location perm on tag", PermDataLocationAccess, o.tagAdminY, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.perm.AppliesTo(tt.res))
		})
	}
}

func TestPermission_JSON(t *testing.T) {
	data, err := json.Marshal(PermSuperDatabaseGrantable)
	require.NoError(t, err)
	assert.JSONEq(t, `{"identifier":"SuperDatabaseGrantable","resource_type":"DATABASE","action":"ALL","grantable":true}`, string(data))

	var got Permission
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, PermSuperDatabaseGrantable, got)

	err = json.Unmarshal([]byte(`{"identifier":"Select","resource_type":"TABLE","action":"INSERT","grantable":false}`), &got)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}
