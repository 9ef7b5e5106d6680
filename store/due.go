package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ArchiveCommitment soft-deletes a row: it is kept for history but disabled,
// so it drops out of ListDue.
func (s *Store) ArchiveCommitment(ctx context.Context, kind Kind, id, userID int32) error {
	if !kind.Valid() {
		return errors.Errorf("unknown commitment kind %q", kind)
	}
	return retryErr(ctx, s, "ArchiveCommitment", func() error {
		return s.driver.ArchiveCommitment(ctx, kind, id, userID)
	})
}

// DeleteCommitment hard-deletes a row of any kind.
func (s *Store) DeleteCommitment(ctx context.Context, kind Kind, delete *DeleteCommitment) error {
	switch kind {
	case KindAlarm:
		return s.DeleteAlarm(ctx, delete)
	case KindReminder:
		return s.DeleteReminder(ctx, delete)
	case KindTimer:
		return s.DeleteTimer(ctx, delete)
	case KindCalendarEvent:
		return s.DeleteCalendarEvent(ctx, delete)
	}
	return errors.Errorf("unknown commitment kind %q", kind)
}

// ListDue returns every scheduled row with due_at <= before across all four
// tables, earliest first. Ties break on kind then id, so two calls without an
// intervening write return identical slices.
func (s *Store) ListDue(ctx context.Context, before time.Time, limit int) ([]*DueCommitment, error) {
	if limit <= 0 {
		return nil, errors.Errorf("list due limit must be positive, got %d", limit)
	}
	return retry(ctx, s, "ListDue", func() ([]*DueCommitment, error) {
		return s.driver.ListDue(ctx, before, limit)
	})
}

// NextDueAt returns the earliest due instant of any scheduled row, or nil
// when nothing is scheduled.
func (s *Store) NextDueAt(ctx context.Context) (*time.Time, error) {
	return retry(ctx, s, "NextDueAt", func() (*time.Time, error) {
		return s.driver.NextDueAt(ctx)
	})
}

// MarkFired atomically transitions a due row to fired, re-arming it when
// NextDueAt is set. It reports false when the row no longer matches the
// expected due instant, e.g. it was edited, deleted or already fired.
func (s *Store) MarkFired(ctx context.Context, fire *FireCommitment) (bool, error) {
	if !fire.Kind.Valid() {
		return false, errors.Errorf("unknown commitment kind %q", fire.Kind)
	}
	if fire.NextDueAt != nil && !fire.NextDueAt.After(fire.ExpectedDueAt) {
		return false, errors.New("next due instant must be after the fired one")
	}
	return retry(ctx, s, "MarkFired", func() (bool, error) {
		return s.driver.MarkFired(ctx, fire)
	})
}

// PurgeRetired hard-deletes rows that can never fire again and were last
// touched before olderThan. It returns the number of deleted rows.
func (s *Store) PurgeRetired(ctx context.Context, olderThan time.Time) (int64, error) {
	return retry(ctx, s, "PurgeRetired", func() (int64, error) {
		return s.driver.PurgeRetired(ctx, olderThan)
	})
}
