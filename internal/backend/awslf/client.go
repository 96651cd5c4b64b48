// Package awslf implements the backend capabilities on top of IAM, Glue,
// Lake Formation and STS.
package awslf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lakeformation"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"lf-playbook/internal/backend"
)

var (
	_ backend.Lister  = (*Client)(nil)
	_ backend.Mutator = (*Client)(nil)
)

type listFunc func(ctx context.Context, args map[string]any) (any, error)

// Client serves listings and mutations against one account and region.
type Client struct {
	cfg     aws.Config
	region  string
	iam     *iam.Client
	glue    *glue.Client
	lf      *lakeformation.Client
	sts     *sts.Client
	listers map[string]listFunc
}

// New creates a Client from a loaded AWS configuration.
func New(cfg aws.Config) *Client {
	c := &Client{
		cfg:    cfg,
		region: cfg.Region,
		iam:    iam.NewFromConfig(cfg),
		glue:   glue.NewFromConfig(cfg),
		lf:     lakeformation.NewFromConfig(cfg),
		sts:    sts.NewFromConfig(cfg),
	}
	c.listers = map[string]listFunc{
		backend.MethodListRoles:           call(c.iam.ListRoles),
		backend.MethodListUsers:           call(c.iam.ListUsers),
		backend.MethodListGroups:          call(c.iam.ListGroups),
		backend.MethodGetDatabases:        call(c.glue.GetDatabases),
		backend.MethodGetTables:           call(c.glue.GetTables),
		backend.MethodListResources:       call(c.lf.ListResources),
		backend.MethodListLFTags:          call(c.lf.ListLFTags),
		backend.MethodListDataCellsFilter: call(c.lf.ListDataCellsFilter),
	}
	return c
}

// LoadConfig resolves credentials from the default chain. Empty region and
// profile defer to the environment and shared config.
func LoadConfig(ctx context.Context, region, profile string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.Region == "" {
		return aws.Config{}, errors.New("aws region is not configured")
	}
	return cfg, nil
}

// Config returns the AWS configuration the client was built from.
func (c *Client) Config() aws.Config { return c.cfg }

// Region returns the configured region.
func (c *Client) Region() string { return c.region }

// CallerAccount returns the account id of the active credentials.
func (c *Client) CallerAccount(ctx context.Context) (string, error) {
	out, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("get caller identity: %w", err)
	}
	return aws.ToString(out.Account), nil
}

// Session builds a backend session for the caller's account.
func (c *Client) Session(ctx context.Context) (backend.Session, error) {
	account, err := c.CallerAccount(ctx)
	if err != nil {
		return backend.Session{}, err
	}
	s := backend.Session{AccountID: account, Region: c.region, Lister: c, Mutator: c}
	return s, s.Validate()
}

// ListPage implements backend.Lister.
func (c *Client) ListPage(ctx context.Context, method string, args map[string]any) (map[string]any, error) {
	fn, ok := c.listers[method]
	if !ok {
		return nil, fmt.Errorf("unsupported listing method %q", method)
	}
	out, err := fn(ctx, args)
	if err != nil {
		return nil, err
	}
	return toMap(out)
}

// call adapts an SDK operation into a listFunc. Request parameters are
// decoded into the input struct by field name.
func call[I, O, Opt any](op func(context.Context, *I, ...func(*Opt)) (*O, error)) listFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		in, err := convert[I](args)
		if err != nil {
			return nil, err
		}
		out, err := op(ctx, &in)
		if err != nil {
			return nil, err
		}
		return out, nil
	}
}

// convert re-decodes v into T through its JSON form. Mapper arguments and
// listing parameters use the SDK field names, so the shapes line up.
func convert[T any](v any) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode arguments into %T: %w", out, err)
	}
	return out, nil
}

func toMap(v any) (map[string]any, error) {
	return convert[map[string]any](v)
}
