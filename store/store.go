package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/samay/internal/profile"
)

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = 50 * time.Millisecond
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
	logger  *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:       driver,
		profile:      profile,
		logger:       slog.Default(),
		maxRetries:   defaultMaxRetries,
		retryBackoff: defaultRetryBackoff,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

// SetLogger replaces the logger used for retry diagnostics.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetRetryPolicy overrides the transient-error retry budget.
func (s *Store) SetRetryPolicy(maxRetries int, backoff time.Duration) {
	s.maxRetries = maxRetries
	s.retryBackoff = backoff
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// retry runs fn, retrying transient driver errors with exponential backoff.
// Non-transient errors and context cancellation return at once.
func retry[T any](ctx context.Context, s *Store, op string, fn func() (T, error)) (T, error) {
	backoff := s.retryBackoff
	for attempt := 0; ; attempt++ {
		v, err := fn()
		if err == nil || attempt >= s.maxRetries || !s.driver.IsTransientError(err) {
			return v, err
		}

		s.logger.Warn("retrying transient store error",
			slog.String("op", op),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func retryErr(ctx context.Context, s *Store, op string, fn func() error) error {
	_, err := retry(ctx, s, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
