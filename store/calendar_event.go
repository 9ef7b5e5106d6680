package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// CreateCalendarEvent inserts an event. The derived reminder fires at
// EventAt minus the lead; without a lead the event never fires.
func (s *Store) CreateCalendarEvent(ctx context.Context, create *CalendarEvent) (*CalendarEvent, error) {
	if create.EventAt.IsZero() {
		return nil, errors.New("calendar event requires an event instant")
	}
	if lead := create.ReminderLeadMinutes; lead != nil && *lead < 0 {
		return nil, errors.Errorf("reminder lead must not be negative, got %d", *lead)
	}
	create.DueAt = create.ReminderAt()
	prepareCreate(&create.CommitmentBase, time.Now())
	return retry(ctx, s, "CreateCalendarEvent", func() (*CalendarEvent, error) {
		return s.driver.CreateCalendarEvent(ctx, create)
	})
}

func (s *Store) ListCalendarEvents(ctx context.Context, find *FindCalendarEvent) ([]*CalendarEvent, error) {
	return retry(ctx, s, "ListCalendarEvents", func() ([]*CalendarEvent, error) {
		return s.driver.ListCalendarEvents(ctx, find)
	})
}

func (s *Store) GetCalendarEvent(ctx context.Context, id, userID int32) (*CalendarEvent, error) {
	list, err := s.ListCalendarEvents(ctx, &FindCalendarEvent{FindCommitment: FindCommitment{ID: &id, UserID: &userID}})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

func (s *Store) UpdateCalendarEvent(ctx context.Context, update *UpdateCalendarEvent) (*CalendarEvent, error) {
	if update.DueAt != nil {
		return nil, errors.New("event due instant is derived from the event and its lead")
	}
	if lead := update.ReminderLeadMinutes; lead != nil && *lead < 0 {
		return nil, errors.Errorf("reminder lead must not be negative, got %d", *lead)
	}
	return retry(ctx, s, "UpdateCalendarEvent", func() (*CalendarEvent, error) {
		return s.driver.UpdateCalendarEvent(ctx, update)
	})
}

func (s *Store) DeleteCalendarEvent(ctx context.Context, delete *DeleteCalendarEvent) error {
	return retryErr(ctx, s, "DeleteCalendarEvent", func() error {
		return s.driver.DeleteCalendarEvent(ctx, delete)
	})
}
