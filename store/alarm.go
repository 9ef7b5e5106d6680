package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// CreateAlarm inserts an alarm. A row with the same user and dedupe key is
// returned as-is instead of inserting a duplicate.
func (s *Store) CreateAlarm(ctx context.Context, create *Alarm) (*Alarm, error) {
	if create.DueAt == nil {
		return nil, errors.New("alarm requires a due instant")
	}
	prepareCreate(&create.CommitmentBase, time.Now())
	return retry(ctx, s, "CreateAlarm", func() (*Alarm, error) {
		return s.driver.CreateAlarm(ctx, create)
	})
}

// ListAlarms lists alarms with filter.
func (s *Store) ListAlarms(ctx context.Context, find *FindAlarm) ([]*Alarm, error) {
	return retry(ctx, s, "ListAlarms", func() ([]*Alarm, error) {
		return s.driver.ListAlarms(ctx, find)
	})
}

// GetAlarm returns the alarm with id owned by userID.
func (s *Store) GetAlarm(ctx context.Context, id, userID int32) (*Alarm, error) {
	list, err := s.ListAlarms(ctx, &FindAlarm{FindCommitment: FindCommitment{ID: &id, UserID: &userID}})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

// UpdateAlarm updates the given fields and returns the stored row.
func (s *Store) UpdateAlarm(ctx context.Context, update *UpdateAlarm) (*Alarm, error) {
	return retry(ctx, s, "UpdateAlarm", func() (*Alarm, error) {
		return s.driver.UpdateAlarm(ctx, update)
	})
}

// DeleteAlarm hard-deletes an alarm.
func (s *Store) DeleteAlarm(ctx context.Context, delete *DeleteAlarm) error {
	return retryErr(ctx, s, "DeleteAlarm", func() error {
		return s.driver.DeleteAlarm(ctx, delete)
	})
}
