package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCmd(t *testing.T) {
	h := newHarness(t)
	pb := h.writePlaybook(testPlaybook)

	out, _, code := h.run("validate", "-f", pb)
	assert.Equal(t, 0, code)
	assert.Equal(t, "Playbook is valid: 3 resources, 1 grants, 1 tag attachments for 111122223333/us-east-1.\n", out)
}

func TestValidateCmd_InvalidJSON(t *testing.T) {
	h := newHarness(t)
	pb := h.writePlaybook("apiVersion: lf/v2\nkind: Playbook\n")

	out, _, code := h.run("validate", "-f", pb, "-o", "json")
	assert.Equal(t, 1, code)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, false, got["valid"])
	assert.Contains(t, got["error"], "unsupported apiVersion")
}
