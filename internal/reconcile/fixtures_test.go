package reconcile

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"lf-playbook/internal/domain"
	"lf-playbook/internal/playbook"
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

func alice(t *testing.T) domain.Principal {
	t.Helper()
	p, err := domain.NewIAMUser("arn:aws:iam::111122223333:user/alice")
	require.NoError(t, err)
	return p
}

// scenarioPlaybook declares tags admin=y and admin=n, attaches admin=y to
// database amz and grants alice SuperDatabase on admin=y.
func scenarioPlaybook(t *testing.T) *playbook.Playbook {
	t.Helper()
	pb, err := playbook.New(account, region)
	require.NoError(t, err)
	db, err := domain.NewDatabase(account, region, "amz")
	require.NoError(t, err)
	adminY, adminN := mustTag(t, "admin", "y"), mustTag(t, "admin", "n")
	require.NoError(t, pb.AddResources(db, adminY, adminN))
	_, err = pb.Attach(db, adminY)
	require.NoError(t, err)
	_, err = pb.Grant(alice(t), adminY, domain.PermSuperDatabase)
	require.NoError(t, err)
	return pb
}

// grantPlaybook grants alice SuperDatabase on tags k=v0 .. k=v<n-1>.
func grantPlaybook(t *testing.T, n int) *playbook.Playbook {
	t.Helper()
	pb, err := playbook.New(account, region)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		tag := mustTag(t, "k", fmt.Sprintf("v%d", i))
		require.NoError(t, pb.AddResource(tag))
		_, err := pb.Grant(alice(t), tag, domain.PermSuperDatabase)
		require.NoError(t, err)
	}
	return pb
}
