package retry

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/shopvia/shopvia-backend/pkg/config"
	"github.com/shopvia/shopvia-backend/pkg/db"
	pkgerrors "github.com/shopvia/shopvia-backend/pkg/errors"
	"github.com/shopvia/shopvia-backend/pkg/logger"
)

// IsTransient classifies errors worth retrying. The default treats
// serialization failures and deadlocks as transient.
type IsTransient func(error) bool

// Coordinator re-runs a unit of work when it fails on store contention.
// Validation and dependency failures pass through untouched; only
// transient conflicts consume the retry budget.
type Coordinator struct {
	maxAttempts uint64
	backoff     time.Duration
	isTransient IsTransient
	logger      *logger.Logger
}

func NewCoordinator(cfg config.CheckoutConfig, logg *logger.Logger) *Coordinator {
	attempts := cfg.RetryMaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	return &Coordinator{
		maxAttempts: uint64(attempts),
		backoff:     backoff,
		isTransient: db.IsTransient,
		logger:      logg,
	}
}

// WithClassifier overrides the transient-error classifier.
func (c *Coordinator) WithClassifier(fn IsTransient) *Coordinator {
	clone := *c
	clone.isTransient = fn
	return &clone
}

// Run executes fn, retrying on transient store conflicts with a constant
// backoff. When the budget is exhausted the caller gets a retryable
// contention error instead of the raw driver error.
func (c *Coordinator) Run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	backoff := retry.WithMaxRetries(c.maxAttempts-1, retry.NewConstant(c.backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if c.isTransient(err) {
			if c.logger != nil {
				c.logger.Warn(c.logger.WithFields(ctx, map[string]any{
					"operation": op,
					"attempt":   attempt,
				}), "transient store conflict, retrying")
			}
			return retry.RetryableError(err)
		}
		return err
	})
	if err == nil {
		return nil
	}
	if c.isTransient(err) {
		return pkgerrors.Wrap(pkgerrors.CodeContention, err, op+" exhausted retry budget")
	}
	return err
}
