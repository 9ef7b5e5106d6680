package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// CreateTimer inserts a timer. Its due instant is always derived from the
// start and the duration.
func (s *Store) CreateTimer(ctx context.Context, create *Timer) (*Timer, error) {
	if create.DurationSeconds <= 0 {
		return nil, errors.Errorf("timer duration must be positive, got %d", create.DurationSeconds)
	}
	if create.StartAt.IsZero() {
		return nil, errors.New("timer requires a start instant")
	}
	end := create.EndAt()
	create.DueAt = &end
	prepareCreate(&create.CommitmentBase, time.Now())
	return retry(ctx, s, "CreateTimer", func() (*Timer, error) {
		return s.driver.CreateTimer(ctx, create)
	})
}

func (s *Store) ListTimers(ctx context.Context, find *FindTimer) ([]*Timer, error) {
	return retry(ctx, s, "ListTimers", func() ([]*Timer, error) {
		return s.driver.ListTimers(ctx, find)
	})
}

func (s *Store) GetTimer(ctx context.Context, id, userID int32) (*Timer, error) {
	list, err := s.ListTimers(ctx, &FindTimer{FindCommitment: FindCommitment{ID: &id, UserID: &userID}})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

func (s *Store) UpdateTimer(ctx context.Context, update *UpdateTimer) (*Timer, error) {
	if update.DueAt != nil {
		return nil, errors.New("timer due instant is derived from start and duration")
	}
	if update.DurationSeconds != nil && *update.DurationSeconds <= 0 {
		return nil, errors.Errorf("timer duration must be positive, got %d", *update.DurationSeconds)
	}
	return retry(ctx, s, "UpdateTimer", func() (*Timer, error) {
		return s.driver.UpdateTimer(ctx, update)
	})
}

func (s *Store) DeleteTimer(ctx context.Context, delete *DeleteTimer) error {
	return retryErr(ctx, s, "DeleteTimer", func() error {
		return s.driver.DeleteTimer(ctx, delete)
	})
}
