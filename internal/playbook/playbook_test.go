package playbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lf-playbook/internal/domain"
)

const (
	account = "111122223333"
	region  = "us-east-1"
)

func mustTag(t *testing.T, key, value string) *domain.Tag {
	t.Helper()
	tag, err := domain.NewTag(account, key, value)
	require.NoError(t, err)
	return tag
}

func mustDB(t *testing.T, name string) *domain.Database {
	t.Helper()
	db, err := domain.NewDatabase(account, region, name)
	require.NoError(t, err)
	return db
}

func alice(t *testing.T) domain.Principal {
	t.Helper()
	p, err := domain.NewIAMUser("arn:aws:iam::111122223333:user/alice")
	require.NoError(t, err)
	return p
}

func TestNew_Validation(t *testing.T) {
	_, err := New("abc", region)
	require.Error(t, err)
	_, err = New(account, "")
	require.Error(t, err)

	pb, err := New(account, region)
	require.NoError(t, err)
	assert.NotEmpty(t, pb.ID())
	assert.Equal(t, 0, pb.Desired().Resources.Len())
}

func TestPlaybook_AddResourceStampsOwnership(t *testing.T) {
	pb, err := New(account, region)
	require.NoError(t, err)
	tag := mustTag(t, "admin", "y")
	assert.False(t, tag.PlaybookManaged())

	require.NoError(t, pb.AddResource(tag))
	assert.True(t, tag.PlaybookManaged())
	assert.Equal(t, pb.ID(), tag.PlaybookID())
}

func TestPlaybook_RejectsDuplicates(t *testing.T) {
	pb, err := New(account, region)
	require.NoError(t, err)

	require.NoError(t, pb.AddResource(mustTag(t, "admin", "y")))
	twin := mustTag(t, "admin", "y")
	err = pb.AddResource(twin)
	var dup *domain.DuplicateEntityError
	require.ErrorAs(t, err, &dup)
	assert.False(t, twin.PlaybookManaged(), "rejected entity must not be stamped")
	assert.Equal(t, 1, pb.Desired().Resources.Len())

	_, err = pb.Grant(alice(t), mustTag(t, "admin", "y"), domain.PermSuperDatabase)
	require.NoError(t, err)
	_, err = pb.Grant(alice(t), mustTag(t, "admin", "y"), domain.PermSuperDatabase)
	require.ErrorAs(t, err, &dup)

	db := mustDB(t, "amz")
	_, err = pb.Attach(db, mustTag(t, "admin", "y"))
	require.NoError(t, err)
	_, err = pb.Attach(db, mustTag(t, "admin", "y"))
	require.ErrorAs(t, err, &dup)
}

func TestPlaybook_GrantAndAttachHelpers(t *testing.T) {
	pb, err := New(account, region)
	require.NoError(t, err)
	db := mustDB(t, "amz")
	table, err := db.AddTable("user")
	require.NoError(t, err)

	grants, err := pb.Grant(alice(t), table, domain.PermSelect, domain.PermDescribeTable)
	require.NoError(t, err)
	require.Len(t, grants, 2)
	for _, g := range grants {
		assert.Equal(t, pb.ID(), g.PlaybookID())
	}

	atts, err := pb.Attach(table, mustTag(t, "admin", "y"), mustTag(t, "regular", "n"))
	require.NoError(t, err)
	require.Len(t, atts, 2)
	assert.Equal(t, 2, pb.Desired().TagAttachments.Len())

	_, err = pb.Grant(alice(t), table)
	require.Error(t, err)
	_, err = pb.Attach(table)
	require.Error(t, err)
	_, err = pb.Grant(alice(t), db, domain.PermSelect)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestPlaybook_GrantableAndPlainConflict(t *testing.T) {
	pb, err := New(account, region)
	require.NoError(t, err)
	db := mustDB(t, "amz")
	table, err := db.AddTable("user")
	require.NoError(t, err)

	_, err = pb.Grant(alice(t), table, domain.PermSelect, domain.PermSelectGrantable)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, err.Error(), "declare only one")
	assert.Equal(t, 1, pb.Desired().Grants.Len())

	// Different actions and different principals do not conflict.
	_, err = pb.Grant(alice(t), table, domain.PermDescribeTableGrantable)
	require.NoError(t, err)
	bob, err := domain.NewIAMUser("arn:aws:iam::111122223333:user/bob")
	require.NoError(t, err)
	_, err = pb.Grant(bob, table, domain.PermSelectGrantable)
	require.NoError(t, err)
	assert.Contains(t, pb.String(), "3 grants")
}
