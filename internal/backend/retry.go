package backend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig controls retries of transient backend errors.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// transientCodes are backend error codes worth retrying.
var transientCodes = map[string]bool{
	"ThrottlingException":             true,
	"Throttling":                      true,
	"TooManyRequestsException":        true,
	"ConcurrentModificationException": true,
	"InternalServiceException":        true,
	"ServiceUnavailable":              true,
	"RequestTimeout":                  true,
}

// IsTransient reports whether err is worth retrying. Errors carrying a
// backend error code are retried only for throttling and availability codes;
// other errors (network failures) are retried unless the context ended.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		return transientCodes[coded.ErrorCode()]
	}
	return true
}

func (c RetryConfig) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if c.InitialInterval > 0 {
		eb.InitialInterval = c.InitialInterval
	}
	if c.MaxInterval > 0 {
		eb.MaxInterval = c.MaxInterval
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(max(c.MaxRetries, 0))), ctx)
}

func retry[T any](ctx context.Context, cfg RetryConfig, logger *slog.Logger, what string, fn func() (T, error)) (T, error) {
	var out T
	err := backoff.RetryNotify(
		func() error {
			v, err := fn()
			if err != nil {
				if !IsTransient(err) {
					return backoff.Permanent(err)
				}
				return err
			}
			out = v
			return nil
		},
		cfg.backOff(ctx),
		func(err error, wait time.Duration) {
			logger.Warn("transient backend error, retrying", "call", what, "wait", wait, "error", err)
		},
	)
	return out, err
}

type retryingLister struct {
	next   Lister
	cfg    RetryConfig
	logger *slog.Logger
}

func (l *retryingLister) ListPage(ctx context.Context, method string, args map[string]any) (map[string]any, error) {
	return retry(ctx, l.cfg, l.logger, method, func() (map[string]any, error) {
		return l.next.ListPage(ctx, method, args)
	})
}

type retryingMutator struct {
	next   Mutator
	cfg    RetryConfig
	logger *slog.Logger
}

func (m *retryingMutator) Mutate(ctx context.Context, op MutationOp, entries []Entry) ([]EntryFailure, error) {
	return retry(ctx, m.cfg, m.logger, string(op), func() ([]EntryFailure, error) {
		return m.next.Mutate(ctx, op, entries)
	})
}

// Retrying wraps both capabilities of s with exponential backoff on
// transient errors.
func Retrying(s Session, cfg RetryConfig, logger *slog.Logger) Session {
	if logger == nil {
		logger = slog.Default()
	}
	s.Lister = &retryingLister{next: s.Lister, cfg: cfg, logger: logger}
	s.Mutator = &retryingMutator{next: s.Mutator, cfg: cfg, logger: logger}
	return s
}
