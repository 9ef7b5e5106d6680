// Package commitment turns Hindi utterances into stored commitments.
//
// The service parses and resolves the temporal phrase, picks the commitment
// kind from the request intent, stores the row and wakes the scheduling
// daemon. Parse and resolution failures are answered as values so that the
// caller can speak them back to the user.
package commitment

import (
	"context"

	"github.com/hrygo/samay/store"
)

// Store is the interface for store operations needed by the commitment service.
type Store interface {
	CreateAlarm(ctx context.Context, create *store.Alarm) (*store.Alarm, error)
	CreateReminder(ctx context.Context, create *store.Reminder) (*store.Reminder, error)
	CreateTimer(ctx context.Context, create *store.Timer) (*store.Timer, error)
	CreateCalendarEvent(ctx context.Context, create *store.CalendarEvent) (*store.CalendarEvent, error)

	ListAlarms(ctx context.Context, find *store.FindAlarm) ([]*store.Alarm, error)
	ListReminders(ctx context.Context, find *store.FindReminder) ([]*store.Reminder, error)
	ListTimers(ctx context.Context, find *store.FindTimer) ([]*store.Timer, error)
	ListCalendarEvents(ctx context.Context, find *store.FindCalendarEvent) ([]*store.CalendarEvent, error)

	GetAlarm(ctx context.Context, id, userID int32) (*store.Alarm, error)
	GetReminder(ctx context.Context, id, userID int32) (*store.Reminder, error)

	UpdateAlarm(ctx context.Context, update *store.UpdateAlarm) (*store.Alarm, error)
	UpdateReminder(ctx context.Context, update *store.UpdateReminder) (*store.Reminder, error)
	UpdateTimer(ctx context.Context, update *store.UpdateTimer) (*store.Timer, error)
	UpdateCalendarEvent(ctx context.Context, update *store.UpdateCalendarEvent) (*store.CalendarEvent, error)
	CompleteReminder(ctx context.Context, id, userID int32) (*store.Reminder, error)

	ArchiveCommitment(ctx context.Context, kind store.Kind, id, userID int32) error
	DeleteCommitment(ctx context.Context, kind store.Kind, delete *store.DeleteCommitment) error
}

var _ Store = (*store.Store)(nil)

// Waker is notified whenever the set of scheduled rows changes, so the
// daemon can re-evaluate its sleep.
type Waker interface {
	Wake()
}
