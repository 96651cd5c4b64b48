package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"

	"lf-playbook/internal/backend"
	"lf-playbook/internal/backend/awslf"
	"lf-playbook/internal/config"
	"lf-playbook/internal/db"
	"lf-playbook/internal/db/repository"
	"lf-playbook/internal/snapshot"
)

// hooks reach AWS. Tests replace them.
type hooks struct {
	loadAWS func(ctx context.Context, region, profile string) (aws.Config, error)
	connect func(ctx context.Context, cfg aws.Config) (backend.Session, error)
}

func defaultHooks() hooks {
	return hooks{
		loadAWS: awslf.LoadConfig,
		connect: func(ctx context.Context, cfg aws.Config) (backend.Session, error) {
			return awslf.New(cfg).Session(ctx)
		},
	}
}

// environment carries what the root command resolved and opens the
// collaborators commands need. Nothing is opened until a command asks.
type environment struct {
	hooks hooks

	profile   Profile
	envFile   string
	region    *string
	workspace *string

	cfg    *config.Config
	logger *slog.Logger

	awsCfg  *aws.Config
	db      *sql.DB
	closers []io.Closer
}

// load reads configuration: dotenv, then profile values for unset
// variables, then the environment, then flag overrides.
func (e *environment) load(errOut io.Writer) error {
	if e.cfg != nil {
		return nil
	}
	if err := config.LoadDotEnv(e.envFile); err != nil {
		return err
	}
	if err := applyProfileEnv(e.profile); err != nil {
		return err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if e.region != nil {
		cfg.AWSRegion = *e.region
	}
	if e.workspace != nil {
		cfg.WorkspaceDir = *e.workspace
	}

	e.cfg = cfg
	e.logger = slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	for _, w := range cfg.Warnings {
		e.logger.Warn(w)
	}
	return nil
}

// applyProfileEnv exports profile values for variables the environment
// leaves unset.
func applyProfileEnv(p Profile) error {
	for key, value := range map[string]string{
		"AWS_REGION":           p.Region,
		"AWS_PROFILE":          p.AWSProfile,
		"LF_WORKSPACE_DIR":     p.Workspace,
		"LF_STATE_BACKEND":     p.StateBackend,
		"LF_STATE_BUCKET":      p.StateBucket,
		"LF_STATE_PREFIX":      p.StatePrefix,
		"LF_AZURE_ACCOUNT_KEY": p.AzureAccountKey,
	} {
		if value == "" || os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("setenv %s: %w", key, err)
		}
	}
	return nil
}

func (e *environment) awsConfig(ctx context.Context) (aws.Config, error) {
	if e.awsCfg != nil {
		return *e.awsCfg, nil
	}
	cfg, err := e.hooks.loadAWS(ctx, e.cfg.AWSRegion, e.cfg.AWSProfile)
	if err != nil {
		return aws.Config{}, err
	}
	e.awsCfg = &cfg
	return cfg, nil
}

// session connects to the backend of the active credentials. Calls are
// retried on transient errors and share one rate limiter.
func (e *environment) session(ctx context.Context) (backend.Session, error) {
	cfg, err := e.awsConfig(ctx)
	if err != nil {
		return backend.Session{}, err
	}
	s, err := e.hooks.connect(ctx, cfg)
	if err != nil {
		return backend.Session{}, fmt.Errorf("connect: %w", err)
	}
	s = backend.RateLimited(s, backend.RateLimitConfig{
		RequestsPerSecond: e.cfg.RateLimitRPS,
		Burst:             e.cfg.RateLimitBurst,
	})
	s = backend.Retrying(s, backend.RetryConfig{
		MaxRetries:      e.cfg.MaxRetries,
		InitialInterval: e.cfg.RetryInterval,
	}, e.logger)
	return s, nil
}

// database opens the migrated history database.
func (e *environment) database() (*sql.DB, error) {
	if e.db != nil {
		return e.db, nil
	}
	path := e.cfg.HistoryDBPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	sqlDB, err := db.OpenMigrated(path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	e.db = sqlDB
	e.closers = append(e.closers, sqlDB)
	return sqlDB, nil
}

func (e *environment) runs() (*repository.RunRepo, error) {
	sqlDB, err := e.database()
	if err != nil {
		return nil, err
	}
	return repository.NewRunRepo(sqlDB), nil
}

// snapshots opens the configured snapshot backend.
func (e *environment) snapshots(ctx context.Context) (*snapshot.Snapshots, error) {
	st := e.cfg.State
	opts := snapshot.Options{
		Backend:            st.Backend,
		Dir:                e.cfg.WorkspaceDir,
		Bucket:             st.Bucket,
		Prefix:             st.Prefix,
		S3Endpoint: snapshot.S3Endpoint{
			URL:             st.S3Endpoint,
			AccessKeyID:     st.S3KeyID,
			SecretAccessKey: st.S3Secret,
		},
		GCSCredentialsFile: st.GCSCredentialsFile,
		AzureAccountName:   st.AzureAccountName,
		AzureAccountKey:    st.AzureAccountKey,
	}
	switch st.Backend {
	case config.BackendS3:
		cfg, err := e.awsConfig(ctx)
		if err != nil {
			return nil, err
		}
		opts.AWS = cfg
	case config.BackendSQLite:
		sqlDB, err := e.database()
		if err != nil {
			return nil, err
		}
		opts.DB = sqlDB
	}
	store, err := snapshot.Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	if c, ok := store.(io.Closer); ok {
		e.closers = append(e.closers, c)
	}
	return snapshot.New(store, e.logger), nil
}

// close releases everything opened for the command.
func (e *environment) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil && e.logger != nil {
			e.logger.Warn("close", "error", err)
		}
	}
	e.closers = nil
	e.db = nil
}
