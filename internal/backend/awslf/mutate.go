package awslf

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lakeformation"
	"github.com/aws/aws-sdk-go-v2/service/lakeformation/types"
	"github.com/aws/smithy-go"

	"lf-playbook/internal/backend"
)

// Mutate implements backend.Mutator. Grants and revokes go out as one batch
// call; tag changes are issued per entry because the tag APIs take a single
// resource.
func (c *Client) Mutate(ctx context.Context, op backend.MutationOp, entries []backend.Entry) ([]backend.EntryFailure, error) {
	switch op {
	case backend.OpGrant, backend.OpRevoke:
		return c.batchPermissions(ctx, op, entries)
	case backend.OpAddTags, backend.OpRemoveTags:
		return tagResources(ctx, c.lf, op, entries)
	default:
		return nil, fmt.Errorf("unsupported mutation %q", op)
	}
}

func (c *Client) batchPermissions(ctx context.Context, op backend.MutationOp, entries []backend.Entry) ([]backend.EntryFailure, error) {
	reqs := make([]types.BatchPermissionsRequestEntry, 0, len(entries))
	for _, e := range entries {
		req, err := convert[types.BatchPermissionsRequestEntry](e.Args)
		if err != nil {
			return nil, fmt.Errorf("%s entry %s: %w", op, e.ID, err)
		}
		req.Id = aws.String(e.ID)
		reqs = append(reqs, req)
	}

	var failures []types.BatchPermissionsFailureEntry
	if op == backend.OpGrant {
		out, err := c.lf.BatchGrantPermissions(ctx, &lakeformation.BatchGrantPermissionsInput{Entries: reqs})
		if err != nil {
			return nil, fmt.Errorf("batch grant permissions: %w", err)
		}
		failures = out.Failures
	} else {
		out, err := c.lf.BatchRevokePermissions(ctx, &lakeformation.BatchRevokePermissionsInput{Entries: reqs})
		if err != nil {
			return nil, fmt.Errorf("batch revoke permissions: %w", err)
		}
		failures = out.Failures
	}

	result := make([]backend.EntryFailure, 0, len(failures))
	for _, f := range failures {
		ef := backend.EntryFailure{}
		if f.RequestEntry != nil {
			ef.ID = aws.ToString(f.RequestEntry.Id)
		}
		if f.Error != nil {
			ef.Code = aws.ToString(f.Error.ErrorCode)
			ef.Message = aws.ToString(f.Error.ErrorMessage)
		}
		result = append(result, ef)
	}
	return result, nil
}

type tagRequest struct {
	Resource types.Resource
	LFTags   []types.LFTagPair
}

// tagAPI is the part of *lakeformation.Client used for tag changes.
type tagAPI interface {
	AddLFTagsToResource(ctx context.Context, in *lakeformation.AddLFTagsToResourceInput, optFns ...func(*lakeformation.Options)) (*lakeformation.AddLFTagsToResourceOutput, error)
	RemoveLFTagsFromResource(ctx context.Context, in *lakeformation.RemoveLFTagsFromResourceInput, optFns ...func(*lakeformation.Options)) (*lakeformation.RemoveLFTagsFromResourceOutput, error)
}

// tagResources issues one call per entry. Entries not sent because ctx
// ended are reported as failures next to the results already collected. A
// transient error ends the call with an error so the whole batch can be
// retried; adding or removing the same tags again is harmless.
func tagResources(ctx context.Context, api tagAPI, op backend.MutationOp, entries []backend.Entry) ([]backend.EntryFailure, error) {
	var result []backend.EntryFailure
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			for _, rest := range entries[i:] {
				result = append(result, backend.EntryFailure{ID: rest.ID, Message: fmt.Sprintf("not sent: %v", err)})
			}
			return result, nil
		}
		req, err := convert[tagRequest](e.Args)
		if err != nil {
			result = append(result, backend.EntryFailure{ID: e.ID, Message: fmt.Sprintf("invalid arguments: %v", err)})
			continue
		}

		var tagErrs []types.LFTagError
		if op == backend.OpAddTags {
			out, callErr := api.AddLFTagsToResource(ctx, &lakeformation.AddLFTagsToResourceInput{
				Resource: &req.Resource,
				LFTags:   req.LFTags,
			})
			err = callErr
			if out != nil {
				tagErrs = out.Failures
			}
		} else {
			out, callErr := api.RemoveLFTagsFromResource(ctx, &lakeformation.RemoveLFTagsFromResourceInput{
				Resource: &req.Resource,
				LFTags:   req.LFTags,
			})
			err = callErr
			if out != nil {
				tagErrs = out.Failures
			}
		}

		if err != nil {
			if backend.IsTransient(err) {
				return nil, fmt.Errorf("%s entry %s: %w", op, e.ID, err)
			}
			result = append(result, failureFromError(e.ID, err))
			continue
		}
		for _, te := range tagErrs {
			ef := backend.EntryFailure{ID: e.ID}
			if te.Error != nil {
				ef.Code = aws.ToString(te.Error.ErrorCode)
				ef.Message = aws.ToString(te.Error.ErrorMessage)
			}
			result = append(result, ef)
		}
	}
	return result, nil
}

func failureFromError(id string, err error) backend.EntryFailure {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return backend.EntryFailure{ID: id, Code: apiErr.ErrorCode(), Message: apiErr.ErrorMessage()}
	}
	return backend.EntryFailure{ID: id, Message: err.Error()}
}
