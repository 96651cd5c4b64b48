package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/require"

	"lf-playbook/internal/backend"
	"lf-playbook/internal/testutil"
)

const (
	testAccount = "111122223333"
	testRegion  = "us-east-1"
)

const testPlaybook = `apiVersion: lf/v1
kind: Playbook
metadata:
  account_id: "111122223333"
  region: us-east-1
spec:
  databases:
    - name: amz
  tags:
    - key: admin
      values: ["y", "n"]
  principals:
    - name: alice
      type: IamUser
      arn: arn:aws:iam::111122223333:user/alice
  attachments:
    - resource: {database: amz}
      tags: [admin=y]
  grants:
    - principal: alice
      resource: {tag: admin=y}
      permissions: [SuperDatabase]
`

// harness runs commands against fake AWS hooks in an isolated home and
// workspace.
type harness struct {
	t         *testing.T
	workspace string
	lister    *testutil.MockLister
	mutator   *testutil.MockMutator
	account   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{
		"LF_WORKSPACE_DIR", "LF_OUTPUT", "LOG_LEVEL", "AWS_REGION", "AWS_PROFILE",
		"LF_STATE_BACKEND", "LF_STATE_BUCKET", "LF_STATE_PREFIX", "LF_STATE_DB_PATH",
		"LF_AZURE_ACCOUNT_KEY", "LF_BATCH_SIZE",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("LOG_LEVEL", "error")
	ws := t.TempDir()
	t.Setenv("LF_WORKSPACE_DIR", ws)
	return &harness{
		t:         t,
		workspace: ws,
		lister:    &testutil.MockLister{},
		mutator:   &testutil.MockMutator{},
		account:   testAccount,
	}
}

func (h *harness) hooks() hooks {
	return hooks{
		loadAWS: func(_ context.Context, region, _ string) (aws.Config, error) {
			if region == "" {
				region = testRegion
			}
			return aws.Config{Region: region}, nil
		},
		connect: func(_ context.Context, cfg aws.Config) (backend.Session, error) {
			return backend.Session{AccountID: h.account, Region: cfg.Region, Lister: h.lister, Mutator: h.mutator}, nil
		},
	}
}

// writePlaybook writes content to the workspace and returns its path.
func (h *harness) writePlaybook(content string) string {
	h.t.Helper()
	path := filepath.Join(h.workspace, "playbook.yaml")
	require.NoError(h.t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// run executes the CLI and returns stdout, stderr and the exit code.
func (h *harness) run(args ...string) (string, string, int) {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmdWith(h.hooks())
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--env-file", filepath.Join(h.workspace, "missing.env")}, args...))
	code := execute(root)
	return stdout.String(), stderr.String(), code
}
