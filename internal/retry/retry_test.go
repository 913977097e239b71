package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopvia/shopvia-backend/pkg/config"
	pkgerrors "github.com/shopvia/shopvia-backend/pkg/errors"
)

var errFlaky = errors.New("serialization conflict")

func newTestCoordinator(maxAttempts int) *Coordinator {
	c := NewCoordinator(config.CheckoutConfig{
		RetryMaxAttempts: maxAttempts,
		RetryBackoff:     time.Millisecond,
	}, nil)
	return c.WithClassifier(func(err error) bool {
		return errors.Is(err, errFlaky)
	})
}

func TestRunSucceedsFirstAttempt(t *testing.T) {
	t.Parallel()
	coord := newTestCoordinator(3)

	attempts := 0
	err := coord.Run(context.Background(), "commit", func(ctx context.Context) error {
		attempts++
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestRunRetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()
	coord := newTestCoordinator(3)

	attempts := 0
	err := coord.Run(context.Background(), "commit", func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errFlaky
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRunDoesNotRetryNonTransient(t *testing.T) {
	t.Parallel()
	coord := newTestCoordinator(3)

	wantErr := pkgerrors.New(pkgerrors.CodeValidation, "bad input")
	attempts := 0
	err := coord.Run(context.Background(), "commit", func(ctx context.Context) error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected the original error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestRunExhaustionYieldsContention(t *testing.T) {
	t.Parallel()
	coord := newTestCoordinator(3)

	attempts := 0
	err := coord.Run(context.Background(), "commit", func(ctx context.Context) error {
		attempts++
		return errFlaky
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeContention) {
		t.Fatalf("expected contention error, got %v", err)
	}
	if !errors.Is(err, errFlaky) {
		t.Fatalf("expected wrapped original error, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestRunSingleAttemptBudget(t *testing.T) {
	t.Parallel()
	coord := newTestCoordinator(1)

	attempts := 0
	err := coord.Run(context.Background(), "commit", func(ctx context.Context) error {
		attempts++
		return errFlaky
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeContention) {
		t.Fatalf("expected contention error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}
