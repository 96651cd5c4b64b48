// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Snapshot backends.
const (
	BackendFile   = "file"
	BackendS3     = "s3"
	BackendGCS    = "gcs"
	BackendAzure  = "azure"
	BackendSQLite = "sqlite"
)

// MaxBatchSize is the largest batch the permission backend accepts.
const MaxBatchSize = 20

// StateConfig locates the persisted deployed snapshot.
type StateConfig struct {
	Backend string // file, s3, gcs, azure or sqlite (default "file")
	Bucket  string // bucket, or container for azure
	Prefix  string // object key prefix
	DBPath  string // SQLite file for the sqlite backend and run history

	// S3-compatible endpoint and static keys (optional).
	S3Endpoint string
	S3KeyID    string
	S3Secret   string

	GCSCredentialsFile string // service account JSON for gcs (optional)
	AzureAccountName   string
	AzureAccountKey    string
}

// Validate checks that the backend has what it needs.
func (s *StateConfig) Validate() error {
	switch s.Backend {
	case BackendFile, BackendSQLite:
	case BackendS3, BackendGCS:
		if s.Bucket == "" {
			return fmt.Errorf("LF_STATE_BUCKET is required for the %s state backend", s.Backend)
		}
		if (s.S3KeyID == "") != (s.S3Secret == "") {
			return fmt.Errorf("LF_STATE_S3_KEY_ID and LF_STATE_S3_SECRET must be set together")
		}
	case BackendAzure:
		if s.Bucket == "" {
			return fmt.Errorf("LF_STATE_BUCKET (container) is required for the azure state backend")
		}
		if s.AzureAccountName == "" || s.AzureAccountKey == "" {
			return fmt.Errorf("LF_AZURE_ACCOUNT_NAME and LF_AZURE_ACCOUNT_KEY are required for the azure state backend")
		}
	default:
		return fmt.Errorf("unknown LF_STATE_BACKEND %q (want file, s3, gcs, azure or sqlite)", s.Backend)
	}
	return nil
}

// Config holds the configuration of a reconciliation run.
type Config struct {
	WorkspaceDir string // directory of local snapshots and the history database (default ".")
	LogLevel     string // log level: debug, info, warn, error (default "info")

	AWSRegion  string // overrides the SDK's region resolution when set
	AWSProfile string // shared config profile (optional)

	State StateConfig

	BatchSize          int // mutation batch size, clamped to [1, 20] (default 20)
	PageSize           int // listing page size (default 1000)
	CollectConcurrency int // listings in flight during collection (default 4)

	// Rate limiting and retries of backend calls
	RateLimitRPS   float64       // sustained calls per second (default 10)
	RateLimitBurst int           // burst capacity (default 20)
	MaxRetries     int           // retries of transient errors (default 3)
	RetryInterval  time.Duration // initial retry interval (default 200ms)

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// HistoryDBPath returns the SQLite file holding run history.
func (c *Config) HistoryDBPath() string {
	if filepath.IsAbs(c.State.DBPath) {
		return c.State.DBPath
	}
	return filepath.Join(c.WorkspaceDir, c.State.DBPath)
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		WorkspaceDir: os.Getenv("LF_WORKSPACE_DIR"),
		LogLevel:     os.Getenv("LOG_LEVEL"),
		AWSRegion:    os.Getenv("AWS_REGION"),
		AWSProfile:   os.Getenv("AWS_PROFILE"),
		State: StateConfig{
			Backend:            strings.ToLower(strings.TrimSpace(os.Getenv("LF_STATE_BACKEND"))),
			Bucket:             os.Getenv("LF_STATE_BUCKET"),
			Prefix:             os.Getenv("LF_STATE_PREFIX"),
			DBPath:             os.Getenv("LF_STATE_DB_PATH"),
			S3Endpoint:         os.Getenv("LF_STATE_S3_ENDPOINT"),
			S3KeyID:            os.Getenv("LF_STATE_S3_KEY_ID"),
			S3Secret:           os.Getenv("LF_STATE_S3_SECRET"),
			GCSCredentialsFile: os.Getenv("LF_GCS_CREDENTIALS_FILE"),
			AzureAccountName:   os.Getenv("LF_AZURE_ACCOUNT_NAME"),
			AzureAccountKey:    os.Getenv("LF_AZURE_ACCOUNT_KEY"),
		},
	}

	var err error
	if cfg.BatchSize, err = intEnv("LF_BATCH_SIZE", MaxBatchSize); err != nil {
		return nil, err
	}
	if cfg.PageSize, err = intEnv("LF_PAGE_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.CollectConcurrency, err = intEnv("LF_COLLECT_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = intEnv("LF_RATE_LIMIT_BURST", 20); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = intEnv("LF_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	cfg.RateLimitRPS = 10
	if v := os.Getenv("LF_RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("LF_RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimitRPS = f
	}
	cfg.RetryInterval = 200 * time.Millisecond
	if v := os.Getenv("LF_RETRY_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("LF_RETRY_INTERVAL: %w", err)
		}
		cfg.RetryInterval = d
	}

	// Defaults
	if cfg.WorkspaceDir == "" {
		cfg.WorkspaceDir = "."
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.State.Backend == "" {
		cfg.State.Backend = BackendFile
	}
	if cfg.State.DBPath == "" {
		cfg.State.DBPath = "lf_playbook.sqlite"
	}
	if cfg.BatchSize < 1 || cfg.BatchSize > MaxBatchSize {
		clamped := max(1, min(cfg.BatchSize, MaxBatchSize))
		cfg.Warnings = append(cfg.Warnings,
			fmt.Sprintf("LF_BATCH_SIZE=%d is outside [1, %d]; using %d", cfg.BatchSize, MaxBatchSize, clamped))
		cfg.BatchSize = clamped
	}
	if cfg.PageSize < 1 {
		return nil, fmt.Errorf("LF_PAGE_SIZE must be positive")
	}
	if cfg.CollectConcurrency < 1 {
		cfg.CollectConcurrency = 1
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.Warnings = append(cfg.Warnings, "LF_RATE_LIMIT_RPS <= 0 disables rate limiting")
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	isObjectStore := cfg.State.Backend == BackendS3 || cfg.State.Backend == BackendGCS || cfg.State.Backend == BackendAzure
	if isObjectStore && cfg.State.Prefix == "" {
		cfg.Warnings = append(cfg.Warnings, "LF_STATE_PREFIX not set; snapshots are stored at the bucket root")
	}
	if err := cfg.State.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = stripQuotes(value)
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
