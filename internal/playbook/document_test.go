package playbook

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lf-playbook/internal/domain"
)

func sampleState(t *testing.T) *State {
	t.Helper()
	s := NewState()
	db := mustDB(t, "amz")
	table, err := db.AddTable("user")
	require.NoError(t, err)
	col, err := table.AddColumn("password")
	require.NoError(t, err)
	loc, err := domain.NewDataLakeLocation(account, "arn:aws:s3:::111122223333-us-east-1-artifacts/datalake/*", "")
	require.NoError(t, err)
	filter, err := domain.NewDataCellsFilter(domain.DataCellsFilterSpec{
		FilterName: "no-user-password", CatalogID: account, DatabaseName: "amz", TableName: "user",
		ExcludeColumns: []string{"password"},
	})
	require.NoError(t, err)
	adminY, adminN := mustTag(t, "admin", "y"), mustTag(t, "admin", "n")
	for _, r := range []domain.Resource{db, table, col, loc, filter, adminY, adminN} {
		require.NoError(t, s.Resources.Add(r))
	}

	g, err := domain.NewGrant(alice(t), adminY, domain.PermSuperDatabase)
	require.NoError(t, err)
	require.NoError(t, s.Grants.Add(g))
	a, err := domain.NewTagAttachment(db, adminY)
	require.NoError(t, err)
	require.NoError(t, s.TagAttachments.Add(a))
	a, err = domain.NewTagAttachment(col, adminN)
	require.NoError(t, err)
	require.NoError(t, s.TagAttachments.Add(a))
	return s
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	s := sampleState(t)
	meta := NewMetadata(account, region, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	data, err := Encode(s, meta)
	require.NoError(t, err)

	got, gotMeta, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, meta, gotMeta)
	assert.ElementsMatch(t, s.Resources.IDs(), got.Resources.IDs())
	assert.ElementsMatch(t, s.Grants.IDs(), got.Grants.IDs())
	assert.ElementsMatch(t, s.TagAttachments.IDs(), got.TagAttachments.IDs())
	for _, r := range got.Resources.Items() {
		assert.False(t, r.PlaybookManaged())
	}
}

func TestEncode_TopLevelShape(t *testing.T) {
	data, err := Encode(sampleState(t), NewMetadata(account, region, time.Now()))
	require.NoError(t, err)

	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &top))
	for _, key := range []string{
		"resources", "grants", "tag_attachments",
		"deployed_by", "deployed_at_local_time", "deployed_at_utc_time", "account_id", "region",
	} {
		assert.Contains(t, top, key)
	}
}

func TestEncode_IsCanonical(t *testing.T) {
	meta := NewMetadata(account, region, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	a, err := Encode(sampleState(t), meta)
	require.NoError(t, err)
	b, err := Encode(sampleState(t), meta)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	da, err := Digest(a)
	require.NoError(t, err)
	assert.Len(t, da, 64)

	// Whitespace does not change the digest.
	var v any
	require.NoError(t, json.Unmarshal(a, &v))
	pretty, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	dp, err := Digest(pretty)
	require.NoError(t, err)
	assert.Equal(t, da, dp)
}

func TestDecode_Errors(t *testing.T) {
	tag := `{"res_type":"Tag","catalog_id":"111122223333","key":"admin","value":"y"}`

	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"not json", `{`, "decode snapshot"},
		{"key mismatch", `{"resources":{"tag|111122223333|admin|n":` + tag + `}}`, "does not match id"},
		{"unknown variant", `{"resources":{"x":{"res_type":"Catalog"}}}`, `unknown resource variant "Catalog"`},
		{
			"invalid grant",
			`{"grants":{"g":{"principal":{"principal_type":"IamUser","arn":"bad"},"resource":` + tag +
				`,"permission":{"identifier":"SuperDatabase","resource_type":"DATABASE","action":"ALL","grantable":false}}}}`,
			"invalid IAM ARN",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecode_EmptyDocument(t *testing.T) {
	s, _, err := Decode([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Resources.Len())
	assert.Equal(t, 0, s.Grants.Len())
}
