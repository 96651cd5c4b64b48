package awslf

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/lakeformation/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lf-playbook/internal/domain"
	"lf-playbook/internal/mapper"
)

func TestConvert_GrantEntry(t *testing.T) {
	alice, err := domain.NewIAMUser("arn:aws:iam::111122223333:user/alice")
	require.NoError(t, err)
	tag, err := domain.NewTag("111122223333", "admin", "y")
	require.NoError(t, err)
	g, err := domain.NewGrant(alice, tag, domain.PermSuperDatabaseGrantable)
	require.NoError(t, err)
	arg, err := mapper.GrantEntry("7", g)
	require.NoError(t, err)

	req, err := convert[types.BatchPermissionsRequestEntry](arg)
	require.NoError(t, err)

	assert.Equal(t, "7", aws.ToString(req.Id))
	assert.Equal(t, "arn:aws:iam::111122223333:user/alice", aws.ToString(req.Principal.DataLakePrincipalIdentifier))
	assert.Equal(t, []types.Permission{types.PermissionAll}, req.Permissions)
	assert.Equal(t, []types.Permission{types.PermissionAll}, req.PermissionsWithGrantOption)
	require.NotNil(t, req.Resource.LFTagPolicy)
	assert.Equal(t, types.ResourceTypeDatabase, req.Resource.LFTagPolicy.ResourceType)
	require.Len(t, req.Resource.LFTagPolicy.Expression, 1)
	assert.Equal(t, "admin", aws.ToString(req.Resource.LFTagPolicy.Expression[0].TagKey))
	assert.Equal(t, []string{"y"}, req.Resource.LFTagPolicy.Expression[0].TagValues)
}

func TestConvert_TagEntry(t *testing.T) {
	db, err := domain.NewDatabase("111122223333", "us-east-1", "amz")
	require.NoError(t, err)
	tag, err := domain.NewTag("111122223333", "admin", "y")
	require.NoError(t, err)
	a, err := domain.NewTagAttachment(db, tag)
	require.NoError(t, err)
	arg, err := mapper.TagEntry(a)
	require.NoError(t, err)

	req, err := convert[tagRequest](arg)
	require.NoError(t, err)
	require.NotNil(t, req.Resource.Database)
	assert.Equal(t, "amz", aws.ToString(req.Resource.Database.Name))
	require.Len(t, req.LFTags, 1)
	assert.Equal(t, "111122223333", aws.ToString(req.LFTags[0].CatalogId))
}

func TestToMap_ListingOutput(t *testing.T) {
	out := &iam.ListRolesOutput{
		Roles:  []iamtypes.Role{{Arn: aws.String("arn:aws:iam::111122223333:role/ec2-web-app"), RoleName: aws.String("ec2-web-app")}},
		Marker: aws.String("next"),
	}
	m, err := toMap(out)
	require.NoError(t, err)

	assert.Equal(t, "next", m["Marker"])
	roles, ok := m["Roles"].([]any)
	require.True(t, ok)
	require.Len(t, roles, 1)
	assert.Equal(t, "arn:aws:iam::111122223333:role/ec2-web-app", roles[0].(map[string]any)["Arn"])
}

func TestCallConvertsArguments(t *testing.T) {
	var got *iam.ListUsersInput
	fn := call(func(_ context.Context, in *iam.ListUsersInput, _ ...func(*iam.Options)) (*iam.ListUsersOutput, error) {
		got = in
		return &iam.ListUsersOutput{}, nil
	})

	_, err := fn(context.Background(), map[string]any{"Marker": "abc", "MaxItems": 1000})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "abc", aws.ToString(got.Marker))
	assert.Equal(t, int32(1000), aws.ToInt32(got.MaxItems))
}

func TestListPage_UnsupportedMethod(t *testing.T) {
	c := New(aws.Config{Region: "us-east-1"})
	assert.Equal(t, "us-east-1", c.Region())

	_, err := c.ListPage(context.Background(), "ListBuckets", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported listing method")
}

func TestFailureFromError(t *testing.T) {
	f := failureFromError("2", &smithy.GenericAPIError{Code: "EntityNotFoundException", Message: "gone"})
	assert.Equal(t, "2", f.ID)
	assert.True(t, f.IsNotFound())
	assert.Equal(t, "gone", f.Message)

	f = failureFromError("3", errors.New("dial tcp: timeout"))
	assert.Empty(t, f.Code)
	assert.Equal(t, "dial tcp: timeout", f.Message)
}
