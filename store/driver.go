package store

import (
	"context"
	"database/sql"
	"time"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Dialect names the SQL dialect, "sqlite" or "postgres".
	Dialect() string
	// IsTransientError reports whether err is worth retrying, e.g. a busy
	// database, a dropped connection or a serialization failure.
	IsTransientError(err error) bool

	// Alarm model related methods.
	CreateAlarm(ctx context.Context, create *Alarm) (*Alarm, error)
	ListAlarms(ctx context.Context, find *FindAlarm) ([]*Alarm, error)
	UpdateAlarm(ctx context.Context, update *UpdateAlarm) (*Alarm, error)
	DeleteAlarm(ctx context.Context, delete *DeleteAlarm) error

	// Reminder model related methods.
	CreateReminder(ctx context.Context, create *Reminder) (*Reminder, error)
	ListReminders(ctx context.Context, find *FindReminder) ([]*Reminder, error)
	UpdateReminder(ctx context.Context, update *UpdateReminder) (*Reminder, error)
	DeleteReminder(ctx context.Context, delete *DeleteReminder) error

	// Timer model related methods.
	CreateTimer(ctx context.Context, create *Timer) (*Timer, error)
	ListTimers(ctx context.Context, find *FindTimer) ([]*Timer, error)
	UpdateTimer(ctx context.Context, update *UpdateTimer) (*Timer, error)
	DeleteTimer(ctx context.Context, delete *DeleteTimer) error

	// CalendarEvent model related methods.
	CreateCalendarEvent(ctx context.Context, create *CalendarEvent) (*CalendarEvent, error)
	ListCalendarEvents(ctx context.Context, find *FindCalendarEvent) ([]*CalendarEvent, error)
	UpdateCalendarEvent(ctx context.Context, update *UpdateCalendarEvent) (*CalendarEvent, error)
	DeleteCalendarEvent(ctx context.Context, delete *DeleteCalendarEvent) error

	// Cross-kind lifecycle methods used by the scheduling daemon.
	ArchiveCommitment(ctx context.Context, kind Kind, id, userID int32) error
	ListDue(ctx context.Context, before time.Time, limit int) ([]*DueCommitment, error)
	NextDueAt(ctx context.Context) (*time.Time, error)
	MarkFired(ctx context.Context, fire *FireCommitment) (bool, error)
	PurgeRetired(ctx context.Context, olderThan time.Time) (int64, error)
}
