package snapshot

import (
	"context"
	"database/sql"

	"github.com/aws/aws-sdk-go-v2/aws"

	"lf-playbook/internal/db/repository"
	"lf-playbook/internal/domain"
)

// Backend names.
const (
	BackendFile   = "file"
	BackendS3     = "s3"
	BackendGCS    = "gcs"
	BackendAzure  = "azure"
	BackendSQLite = "sqlite"
)

// Options selects and configures a Store.
type Options struct {
	Backend string

	// Dir is the directory of the file backend.
	Dir string

	// Bucket and Prefix locate objects for s3, gcs and azure. For azure
	// Bucket is the container.
	Bucket string
	Prefix string

	AWS                aws.Config
	S3Endpoint         S3Endpoint
	GCSCredentialsFile string
	AzureAccountName   string
	AzureAccountKey    string

	// DB is the migrated database of the sqlite backend.
	DB *sql.DB
}

// Open builds the Store named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendFile, "":
		dir := opts.Dir
		if dir == "" {
			dir = "."
		}
		return NewFileStore(dir), nil
	case BackendS3:
		if opts.Bucket == "" {
			return nil, domain.ErrValidation("s3 snapshot backend requires a bucket")
		}
		return NewS3StoreFromConfig(opts.AWS, opts.Bucket, opts.Prefix, opts.S3Endpoint), nil
	case BackendGCS:
		if opts.Bucket == "" {
			return nil, domain.ErrValidation("gcs snapshot backend requires a bucket")
		}
		return NewGCSStore(ctx, opts.Bucket, opts.Prefix, opts.GCSCredentialsFile)
	case BackendAzure:
		if opts.Bucket == "" {
			return nil, domain.ErrValidation("azure snapshot backend requires a container")
		}
		return NewAzureStore(opts.AzureAccountName, opts.AzureAccountKey, opts.Bucket, opts.Prefix)
	case BackendSQLite:
		if opts.DB == nil {
			return nil, domain.ErrValidation("sqlite snapshot backend requires a database")
		}
		return NewSQLiteStore(repository.NewSnapshotRepo(opts.DB)), nil
	default:
		return nil, domain.ErrUnknownVariant("snapshot backend", opts.Backend)
	}
}
