package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lf-playbook/internal/testutil"
)

func rolesListing() Listing {
	return Listing{
		Method:     "ListRoles",
		Args:       map[string]any{"MaxItems": 2},
		TokenArg:   "Marker",
		TokenField: "Marker",
		ItemsField: "Roles",
	}
}

func TestItems_WalksAllPages(t *testing.T) {
	lister := &testutil.MockLister{}
	lister.SetPages("ListRoles", "Marker", "Marker", "Roles",
		[]map[string]any{{"Arn": "a"}, {"Arn": "b"}},
		[]map[string]any{{"Arn": "c"}, {"Arn": "d"}},
		[]map[string]any{{"Arn": "e"}},
	)

	items, err := All(context.Background(), lister, rolesListing())
	require.NoError(t, err)

	var arns []string
	for _, it := range items {
		arns = append(arns, str(it, "Arn"))
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, arns)
	require.Len(t, lister.Calls, 3)
	assert.NotContains(t, lister.Calls[0].Args, "Marker")
	assert.Equal(t, "1", lister.Calls[1].Args["Marker"])
	assert.Equal(t, "2", lister.Calls[2].Args["Marker"])
	assert.Equal(t, 2, lister.Calls[2].Args["MaxItems"])
}

func TestItems_DoesNotMutateListingArgs(t *testing.T) {
	lister := &testutil.MockLister{}
	lister.SetPages("ListRoles", "Marker", "Marker", "Roles",
		[]map[string]any{{"Arn": "a"}},
		[]map[string]any{{"Arn": "b"}},
	)
	ls := rolesListing()

	_, err := All(context.Background(), lister, ls)
	require.NoError(t, err)
	assert.NotContains(t, ls.Args, "Marker")

	// Restartable from the top.
	items, err := All(context.Background(), lister, ls)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestItems_EmptyListing(t *testing.T) {
	items, err := All(context.Background(), &testutil.MockLister{}, rolesListing())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestItems_StopsEarly(t *testing.T) {
	lister := &testutil.MockLister{}
	lister.SetPages("ListRoles", "Marker", "Marker", "Roles",
		[]map[string]any{{"Arn": "a"}, {"Arn": "b"}},
		[]map[string]any{{"Arn": "c"}},
	)

	for it, err := range Items(context.Background(), lister, rolesListing()) {
		require.NoError(t, err)
		assert.Equal(t, "a", str(it, "Arn"))
		break
	}
	assert.Equal(t, 1, lister.CallCount("ListRoles"))
}

func TestItems_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	lister := &testutil.MockLister{Errors: map[string]error{"ListRoles": boom}}

	_, err := All(context.Background(), lister, rolesListing())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "list ListRoles")
	assert.Equal(t, 1, lister.CallCount("ListRoles"))
}

func TestItems_RejectsMalformedPages(t *testing.T) {
	tests := []struct {
		name    string
		page    map[string]any
		wantErr string
	}{
		{"items not a list", map[string]any{"Roles": "x"}, "not a list"},
		{"item not an object", map[string]any{"Roles": []any{"x"}}, "not an object"},
		{"empty token ends listing", map[string]any{"Roles": []any{}, "Marker": ""}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &testutil.MockLister{
				Pages:     map[string]map[string]map[string]any{"ListRoles": {"": tt.page}},
				TokenArgs: map[string]string{"ListRoles": "Marker"},
			}
			_, err := All(context.Background(), lister, rolesListing())
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestItems_RepeatedToken(t *testing.T) {
	lister := &testutil.MockLister{
		Pages: map[string]map[string]map[string]any{"ListRoles": {
			"":     {"Roles": []any{}, "Marker": "loop"},
			"loop": {"Roles": []any{}, "Marker": "loop"},
		}},
		TokenArgs: map[string]string{"ListRoles": "Marker"},
	}
	_, err := All(context.Background(), lister, rolesListing())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repeated")
}
