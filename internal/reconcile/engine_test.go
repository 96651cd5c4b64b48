package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lf-playbook/internal/backend"
	"lf-playbook/internal/domain"
	"lf-playbook/internal/mapper"
	"lf-playbook/internal/playbook"
	"lf-playbook/internal/testutil"
)

func grantTagValue(e backend.Entry) string {
	return e.Args.(mapper.GrantEntryArg).Resource.LFTagPolicy.Expression[0].TagValues[0]
}

func TestNewEngine_ClampsBatchSize(t *testing.T) {
	m := &testutil.MockMutator{}
	assert.Equal(t, 1, NewEngine(m, 0, nil).BatchSize())
	assert.Equal(t, 7, NewEngine(m, 7, nil).BatchSize())
	assert.Equal(t, MaxBatchSize, NewEngine(m, 500, nil).BatchSize())
}

func TestEngine_BatchesInStableOrder(t *testing.T) {
	m := &testutil.MockMutator{}
	plan := NewPlan(grantPlaybook(t, 7).Desired(), playbook.NewState())

	report := NewEngine(m, 3, nil).Apply(context.Background(), plan)

	calls := m.CallsFor(backend.OpGrant)
	require.Len(t, calls, 3)
	var sizes []int
	var values []string
	for _, c := range calls {
		sizes = append(sizes, len(c.Entries))
		for i, e := range c.Entries {
			assert.Equal(t, []string{"0", "1", "2"}[i], e.ID)
			values = append(values, grantTagValue(e))
		}
	}
	assert.Equal(t, []int{3, 3, 1}, sizes)
	assert.Equal(t, []string{"v0", "v1", "v2", "v3", "v4", "v5", "v6"}, values)

	assert.Equal(t, ReportSummary{Applied: 7}, report.Summary())
	assert.Equal(t, domain.RunStatusSucceeded, report.Status())
	assert.Equal(t, 2, report.Results[6].Batch)
}

func TestEngine_PartialFailureIsolation(t *testing.T) {
	calls := 0
	m := &testutil.MockMutator{
		// The second batch fails as a whole.
		ErrFn: func(op backend.MutationOp, _ []backend.Entry) error {
			calls++
			if calls == 2 {
				return errors.New("throttled")
			}
			return nil
		},
		FailFn: func(_ backend.MutationOp, e backend.Entry) *backend.EntryFailure {
			if grantTagValue(e) == "v0" {
				return &backend.EntryFailure{ID: e.ID, Code: "AccessDeniedException", Message: "denied"}
			}
			return nil
		},
	}
	plan := NewPlan(grantPlaybook(t, 5).Desired(), playbook.NewState())

	report := NewEngine(m, 2, nil).Apply(context.Background(), plan)

	require.Len(t, m.Calls, 3, "a failed batch does not stop later batches")
	outcomes := make([]Outcome, 0, len(report.Results))
	for _, r := range report.Results {
		outcomes = append(outcomes, r.Outcome)
	}
	assert.Equal(t, []Outcome{
		OutcomeFailed, OutcomeApplied, // batch 0: v0 rejected
		OutcomeFailed, OutcomeFailed, // batch 1: call failed
		OutcomeApplied, // batch 2
	}, outcomes)
	assert.Equal(t, "AccessDeniedException: denied", report.Results[0].Reason)
	assert.Contains(t, report.Results[2].Reason, "throttled")
	assert.Contains(t, report.Results[2].Reason, "grant create batch 1")
	assert.Equal(t, domain.RunStatusPartial, report.Status())

	applied := report.Applied(domain.KindGrant, OpCreate)
	assert.Len(t, applied, 2)
}

func TestEngine_NotFoundIsSkipped(t *testing.T) {
	pb := grantPlaybook(t, 2)
	m := &testutil.MockMutator{
		FailFn: func(op backend.MutationOp, e backend.Entry) *backend.EntryFailure {
			if op == backend.OpRevoke && e.ID == "1" {
				return &backend.EntryFailure{ID: e.ID, Code: "EntityNotFoundException", Message: "gone"}
			}
			return nil
		},
	}
	// Deployed has both grants, desired has none: both are revoked.
	plan := NewPlan(playbook.NewState(), pb.Desired())

	report := NewEngine(m, 20, nil).Apply(context.Background(), plan)
	require.Len(t, report.Results, 2)
	assert.Equal(t, OutcomeApplied, report.Results[0].Outcome)
	assert.Equal(t, OutcomeSkipped, report.Results[1].Outcome)
	assert.Equal(t, OpRemove, report.Results[1].Operation)
	assert.Equal(t, ReportSummary{Applied: 1, Skipped: 1}, report.Summary())
	assert.Equal(t, domain.RunStatusSucceeded, report.Status())
}

func TestEngine_UnsupportedMappingFailsItemOnly(t *testing.T) {
	pb, err := playbook.New(account, region)
	require.NoError(t, err)
	loc, err := domain.NewDataLakeLocation(account, "arn:aws:s3:::bucket/prefix", "")
	require.NoError(t, err)
	db, err := domain.NewDatabase(account, region, "amz")
	require.NoError(t, err)
	tag := mustTag(t, "admin", "y")
	require.NoError(t, pb.AddResources(loc, db, tag))
	_, err = pb.Attach(loc, tag)
	require.NoError(t, err)
	_, err = pb.Attach(db, tag)
	require.NoError(t, err)

	m := &testutil.MockMutator{}
	report := NewEngine(m, 20, nil).Apply(context.Background(), NewPlan(pb.Desired(), playbook.NewState()))

	require.Len(t, report.Results, 2)
	assert.Equal(t, OutcomeFailed, report.Results[0].Outcome)
	assert.Contains(t, report.Results[0].Reason, "DataLakeLocation does not support tag-attachment")
	assert.Equal(t, OutcomeApplied, report.Results[1].Outcome)

	calls := m.CallsFor(backend.OpAddTags)
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Entries, 1)
	assert.Equal(t, "1", calls[0].Entries[0].ID, "entry ids stay positional")
}

func TestEngine_CancelledContextSendsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &testutil.MockMutator{}

	report := NewEngine(m, 2, nil).Apply(ctx, NewPlan(grantPlaybook(t, 3).Desired(), playbook.NewState()))
	assert.Empty(t, m.Calls)
	assert.Equal(t, ReportSummary{Failed: 3}, report.Summary())
	assert.Equal(t, domain.RunStatusFailed, report.Status())
	assert.Contains(t, report.Results[0].Reason, "not sent")
}

func TestEngine_ApplyOrder(t *testing.T) {
	pb := scenarioPlaybook(t)
	deployed := grantPlaybook(t, 1).Desired()
	m := &testutil.MockMutator{}

	NewEngine(m, 20, nil).Apply(context.Background(), NewPlan(pb.Desired(), deployed))

	var ops []backend.MutationOp
	for _, c := range m.Calls {
		ops = append(ops, c.Op)
	}
	assert.Equal(t, []backend.MutationOp{backend.OpAddTags, backend.OpGrant, backend.OpRevoke}, ops)
}
