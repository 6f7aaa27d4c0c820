package store

import (
	"context"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/roach88/treestore/internal/metrics"
)

// retryOptions returns retry options for database statements: linear-ish
// backoff (100ms, 200ms, 300ms) on transient lock errors only.
func (s *Store) retryOptions(ctx context.Context, op string) []retry.Option {
	return []retry.Option{
		retry.Attempts(3),
		retry.Delay(100 * time.Millisecond),
		retry.MaxDelay(300 * time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(IsDatabaseLocked),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			metrics.BackendRetries.WithLabelValues(op).Inc()
			s.log.WithError(err).WithField("op", op).WithField("attempt", n+1).Warn("database locked, retrying")
		}),
	}
}

// withRetry runs fn with lock retries and records the statement's metrics.
func withRetry[T any](ctx context.Context, s *Store, op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := retry.DoWithData(fn, s.retryOptions(ctx, op)...)
	metrics.ObserveBackend(op, start, err)
	return v, err
}

// IsDatabaseLocked returns true if the error indicates a database lock.
// Both drivers report SQLITE_BUSY with this text.
func IsDatabaseLocked(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
