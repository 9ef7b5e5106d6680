package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// CreateReminder inserts a reminder, deduplicated like CreateAlarm.
func (s *Store) CreateReminder(ctx context.Context, create *Reminder) (*Reminder, error) {
	if create.DueAt == nil {
		return nil, errors.New("reminder requires a due instant")
	}
	prepareCreate(&create.CommitmentBase, time.Now())
	return retry(ctx, s, "CreateReminder", func() (*Reminder, error) {
		return s.driver.CreateReminder(ctx, create)
	})
}

func (s *Store) ListReminders(ctx context.Context, find *FindReminder) ([]*Reminder, error) {
	return retry(ctx, s, "ListReminders", func() ([]*Reminder, error) {
		return s.driver.ListReminders(ctx, find)
	})
}

func (s *Store) GetReminder(ctx context.Context, id, userID int32) (*Reminder, error) {
	list, err := s.ListReminders(ctx, &FindReminder{FindCommitment: FindCommitment{ID: &id, UserID: &userID}})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

func (s *Store) UpdateReminder(ctx context.Context, update *UpdateReminder) (*Reminder, error) {
	return retry(ctx, s, "UpdateReminder", func() (*Reminder, error) {
		return s.driver.UpdateReminder(ctx, update)
	})
}

// CompleteReminder marks a reminder done. A completed reminder never fires again.
func (s *Store) CompleteReminder(ctx context.Context, id, userID int32) (*Reminder, error) {
	completed := true
	return s.UpdateReminder(ctx, &UpdateReminder{
		UpdateCommitment: UpdateCommitment{ID: id, UserID: userID},
		Completed:        &completed,
	})
}

func (s *Store) DeleteReminder(ctx context.Context, delete *DeleteReminder) error {
	return retryErr(ctx, s, "DeleteReminder", func() error {
		return s.driver.DeleteReminder(ctx, delete)
	})
}
