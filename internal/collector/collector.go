package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"lf-playbook/internal/backend"
	"lf-playbook/internal/domain"
)

// serviceLinkedRoleSuffix marks locations registered with the Lake Formation
// service-linked role, which is recorded as no role.
const serviceLinkedRoleSuffix = "AWSServiceRoleForLakeFormationDataAccess"

// Glue caps page sizes at 100.
const maxGluePageSize = 100

// Options tunes a collection run.
type Options struct {
	// PageSize is the requested page size for IAM listings.
	PageSize int
	// Concurrency bounds the number of listings in flight.
	Concurrency int
	Logger      *slog.Logger
}

// Snapshot is the deployed state. Every entity in it is unmanaged.
type Snapshot struct {
	AccountID  string
	Region     string
	Principals *domain.Collection[domain.Principal]
	Resources  *domain.Collection[domain.Resource]
}

// Databases returns the collected databases in collection order.
func (s *Snapshot) Databases() []*domain.Database {
	var out []*domain.Database
	for _, r := range s.Resources.Items() {
		if db, ok := r.(*domain.Database); ok {
			out = append(out, db)
		}
	}
	return out
}

type collectFunc func(ctx context.Context) ([]domain.Entity, error)

// Collect lists principals and resources of the session's account. Listings
// run concurrently; the snapshot order is fixed regardless of timing.
func Collect(ctx context.Context, s backend.Session, opts Options) (*Snapshot, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 1000
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &collector{session: s, opts: opts, logger: logger}

	tasks := []collectFunc{
		c.iamPrincipals(backend.MethodListRoles, "Roles", domain.NewIAMRole),
		c.iamPrincipals(backend.MethodListUsers, "Users", domain.NewIAMUser),
		c.iamPrincipals(backend.MethodListGroups, "Groups", domain.NewIAMGroup),
		c.databases,
		c.locations,
		c.tags,
		c.filters,
	}
	results := make([][]domain.Entity, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, task := range tasks {
		g.Go(func() error {
			out, err := task(gctx)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		AccountID:  s.AccountID,
		Region:     s.Region,
		Principals: domain.NewCollection[domain.Principal]("principal"),
		Resources:  domain.NewCollection[domain.Resource]("resource"),
	}
	for _, batch := range results {
		for _, e := range batch {
			var err error
			switch v := e.(type) {
			case domain.Principal:
				err = snap.Principals.Add(v)
			case domain.Resource:
				err = snap.Resources.Add(v)
			}
			var dup *domain.DuplicateEntityError
			if err != nil && !errors.As(err, &dup) {
				return nil, err
			}
		}
	}
	logger.Info("collected deployed state",
		"account", s.AccountID, "region", s.Region,
		"principals", snap.Principals.Len(), "resources", snap.Resources.Len())
	return snap, nil
}

type collector struct {
	session backend.Session
	opts    Options
	logger  *slog.Logger
}

func (c *collector) list(ctx context.Context, ls Listing) ([]map[string]any, error) {
	items, err := All(ctx, c.session.Lister, ls)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("listed", "method", ls.Method, "items", len(items))
	return items, nil
}

func (c *collector) gluePageSize() int {
	return min(c.opts.PageSize, maxGluePageSize)
}

func (c *collector) iamPrincipals(method, field string, build func(arn string) (domain.Principal, error)) collectFunc {
	return func(ctx context.Context) ([]domain.Entity, error) {
		items, err := c.list(ctx, Listing{
			Method:     method,
			Args:       map[string]any{"MaxItems": c.opts.PageSize},
			TokenArg:   "Marker",
			TokenField: "Marker",
			ItemsField: field,
		})
		if err != nil {
			return nil, err
		}
		out := make([]domain.Entity, 0, len(items))
		for _, it := range items {
			p, err := build(str(it, "Arn"))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", method, err)
			}
			out = append(out, p)
		}
		return out, nil
	}
}

// databases lists databases including those shared from other catalogs, then
// their tables and columns.
func (c *collector) databases(ctx context.Context) ([]domain.Entity, error) {
	items, err := c.list(ctx, Listing{
		Method: backend.MethodGetDatabases,
		Args: map[string]any{
			"CatalogId":         c.session.AccountID,
			"MaxResults":        c.gluePageSize(),
			"ResourceShareType": "ALL",
		},
		TokenArg:   "NextToken",
		TokenField: "NextToken",
		ItemsField: "DatabaseList",
	})
	if err != nil {
		return nil, err
	}

	var out []domain.Entity
	for _, it := range items {
		catalog := str(it, "CatalogId")
		if catalog == "" {
			catalog = c.session.AccountID
		}
		db, err := domain.NewDatabase(catalog, c.session.Region, str(it, "Name"))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", backend.MethodGetDatabases, err)
		}
		out = append(out, db)

		tables, err := c.tables(ctx, db)
		if err != nil {
			return nil, err
		}
		out = append(out, tables...)
	}
	return out, nil
}

func (c *collector) tables(ctx context.Context, db *domain.Database) ([]domain.Entity, error) {
	items, err := c.list(ctx, Listing{
		Method: backend.MethodGetTables,
		Args: map[string]any{
			"CatalogId":    db.CatalogID,
			"DatabaseName": db.Name,
			"MaxResults":   c.gluePageSize(),
		},
		TokenArg:   "NextToken",
		TokenField: "NextToken",
		ItemsField: "TableList",
	})
	if err != nil {
		return nil, fmt.Errorf("database %s: %w", db.Name, err)
	}

	var out []domain.Entity
	for _, it := range items {
		t, err := db.AddTable(str(it, "Name"))
		if err != nil {
			return nil, fmt.Errorf("database %s: %w", db.Name, err)
		}
		out = append(out, t)

		var columns []map[string]any
		if sd := obj(it, "StorageDescriptor"); sd != nil {
			columns, _ = pageItems(sd, "Columns")
		}
		partitions, _ := pageItems(it, "PartitionKeys")
		for _, col := range append(columns, partitions...) {
			name := str(col, "Name")
			if _, exists := t.Columns[name]; exists {
				continue
			}
			cc, err := t.AddColumn(name)
			if err != nil {
				return nil, fmt.Errorf("table %s.%s: %w", db.Name, t.Name, err)
			}
			out = append(out, cc)
		}
	}
	return out, nil
}

func (c *collector) locations(ctx context.Context) ([]domain.Entity, error) {
	items, err := c.list(ctx, Listing{
		Method:     backend.MethodListResources,
		TokenArg:   "NextToken",
		TokenField: "NextToken",
		ItemsField: "ResourceInfoList",
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Entity, 0, len(items))
	for _, it := range items {
		role := str(it, "RoleArn")
		if strings.HasSuffix(role, serviceLinkedRoleSuffix) {
			role = ""
		}
		loc, err := domain.NewDataLakeLocation(c.session.AccountID, str(it, "ResourceArn"), role)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", backend.MethodListResources, err)
		}
		out = append(out, loc)
	}
	return out, nil
}

// tags expands every tag key into one Tag per allowed value.
func (c *collector) tags(ctx context.Context) ([]domain.Entity, error) {
	items, err := c.list(ctx, Listing{
		Method:     backend.MethodListLFTags,
		Args:       map[string]any{"CatalogId": c.session.AccountID, "ResourceShareType": "ALL"},
		TokenArg:   "NextToken",
		TokenField: "NextToken",
		ItemsField: "LFTags",
	})
	if err != nil {
		return nil, err
	}
	var out []domain.Entity
	for _, it := range items {
		catalog := str(it, "CatalogId")
		if catalog == "" {
			catalog = c.session.AccountID
		}
		for _, v := range strs(it, "TagValues") {
			tag, err := domain.NewTag(catalog, str(it, "TagKey"), v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", backend.MethodListLFTags, err)
			}
			out = append(out, tag)
		}
	}
	return out, nil
}

func (c *collector) filters(ctx context.Context) ([]domain.Entity, error) {
	items, err := c.list(ctx, Listing{
		Method:     backend.MethodListDataCellsFilter,
		TokenArg:   "NextToken",
		TokenField: "NextToken",
		ItemsField: "DataCellsFilters",
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Entity, 0, len(items))
	for _, it := range items {
		spec := domain.DataCellsFilterSpec{
			FilterName:   str(it, "Name"),
			CatalogID:    str(it, "TableCatalogId"),
			DatabaseName: str(it, "DatabaseName"),
			TableName:    str(it, "TableName"),
		}
		if rf := obj(it, "RowFilter"); rf != nil {
			spec.RowFilterExpression = str(rf, "FilterExpression")
		}
		if wc := obj(it, "ColumnWildcard"); wc != nil {
			spec.ExcludeColumns = strs(wc, "ExcludedColumnNames")
			if spec.ExcludeColumns == nil {
				spec.ExcludeColumns = []string{}
			}
		} else if names := strs(it, "ColumnNames"); len(names) > 0 {
			spec.IncludeColumns = names
		} else {
			spec.ExcludeColumns = []string{}
		}
		f, err := domain.NewDataCellsFilter(spec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", backend.MethodListDataCellsFilter, err)
		}
		out = append(out, f)
	}
	return out, nil
}
