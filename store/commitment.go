package store

import (
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/samay/plugin/temporal"
	"github.com/hrygo/samay/server/timezone"
)

// Kind names one of the four commitment tables.
type Kind string

const (
	KindAlarm         Kind = "alarm"
	KindReminder      Kind = "reminder"
	KindTimer         Kind = "timer"
	KindCalendarEvent Kind = "calendar_event"
)

// Kinds lists every commitment kind in list_due tie-break order.
var Kinds = []Kind{KindAlarm, KindCalendarEvent, KindReminder, KindTimer}

func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k names a known table.
func (k Kind) Valid() bool {
	switch k {
	case KindAlarm, KindReminder, KindTimer, KindCalendarEvent:
		return true
	}
	return false
}

// ParseKind accepts the canonical names plus a few short aliases.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "alarm", "alarms":
		return KindAlarm, nil
	case "reminder", "reminders":
		return KindReminder, nil
	case "timer", "timers":
		return KindTimer, nil
	case "calendar_event", "calendar_events", "event", "events":
		return KindCalendarEvent, nil
	}
	return "", errors.Errorf("unknown commitment kind %q", s)
}

// RowStatus is the soft-delete marker shared by all commitment tables.
type RowStatus string

const (
	// Normal is the status for a live row.
	Normal RowStatus = "NORMAL"
	// Archived is the status for a soft-deleted row.
	Archived RowStatus = "ARCHIVED"
)

func (r RowStatus) String() string {
	return string(r)
}

var (
	// ErrNotFound is returned when no row matches an id and user scope.
	ErrNotFound = errors.New("commitment not found")
)

// CommitmentBase holds the lifecycle columns every commitment table carries.
type CommitmentBase struct {
	ID     int32
	UID    string
	UserID int32
	// DedupeKey makes inserts idempotent per user. Empty means no dedupe.
	DedupeKey string

	RowStatus RowStatus
	Enabled   bool
	Fired     bool
	// DueAt is nil when the row can never fire, e.g. an event without a lead.
	DueAt       *time.Time
	LastFiredAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Scheduled reports whether the row is waiting to fire.
func (c *CommitmentBase) Scheduled() bool {
	return c.RowStatus == Normal && c.Enabled && !c.Fired && c.DueAt != nil
}

// Alarm fires at DueAt. When RepeatDays is non-empty it is re-armed for the
// next matching weekday at the same time of day.
type Alarm struct {
	CommitmentBase

	Label      string
	RepeatDays temporal.WeekdaySet
}

// Recurring reports whether the alarm re-arms after firing.
func (a *Alarm) Recurring() bool {
	return !a.RepeatDays.IsEmpty()
}

// Reminder carries free text. Completed is set by the user and is distinct
// from Fired, which only records that the reminder was announced.
type Reminder struct {
	CommitmentBase

	Text       string
	Completed  bool
	RepeatDays temporal.WeekdaySet
}

func (r *Reminder) Recurring() bool {
	return !r.RepeatDays.IsEmpty()
}

// Timer is a one-shot countdown. DueAt is always StartAt + DurationSeconds.
type Timer struct {
	CommitmentBase

	Label           string
	StartAt         time.Time
	DurationSeconds int64
}

// EndAt returns the derived end instant.
func (t *Timer) EndAt() time.Time {
	return t.StartAt.Add(time.Duration(t.DurationSeconds) * time.Second)
}

// CalendarEvent fires its derived reminder at EventAt minus the lead.
type CalendarEvent struct {
	CommitmentBase

	Title               string
	Location            string
	Description         string
	EventAt             time.Time
	ReminderLeadMinutes *int32
}

// ReminderAt returns the derived reminder instant, or nil without a lead.
func (e *CalendarEvent) ReminderAt() *time.Time {
	return EventDueAt(e.EventAt, e.ReminderLeadMinutes)
}

// EventDueAt derives an event's due instant from its lead.
func EventDueAt(eventAt time.Time, lead *int32) *time.Time {
	if lead == nil {
		return nil
	}
	due := eventAt.Add(-time.Duration(*lead) * time.Minute)
	return &due
}

// FindCommitment is the filter shared by every List* call.
type FindCommitment struct {
	ID        *int32
	UID       *string
	UserID    *int32
	DedupeKey *string
	RowStatus *RowStatus
	Enabled   *bool

	// DueBefore restricts to rows with due_at <= the instant.
	DueBefore *time.Time

	// Pagination
	Limit  *int
	Offset *int
}

type FindAlarm struct {
	FindCommitment
}

type FindReminder struct {
	FindCommitment
	Completed *bool
}

type FindTimer struct {
	FindCommitment
}

type FindCalendarEvent struct {
	FindCommitment

	// Event window, inclusive start and exclusive end.
	EventFrom *time.Time
	EventTo   *time.Time
}

// UpdateCommitment carries the lifecycle fields any kind may update.
type UpdateCommitment struct {
	ID     int32
	UserID int32

	RowStatus *RowStatus
	Enabled   *bool
	Fired     *bool
	DueAt     *time.Time
}

type UpdateAlarm struct {
	UpdateCommitment

	Label      *string
	RepeatDays *temporal.WeekdaySet
}

type UpdateReminder struct {
	UpdateCommitment

	Text       *string
	Completed  *bool
	RepeatDays *temporal.WeekdaySet
}

// UpdateTimer recomputes due_at whenever StartAt or DurationSeconds changes.
type UpdateTimer struct {
	UpdateCommitment

	Label           *string
	StartAt         *time.Time
	DurationSeconds *int64
}

// UpdateCalendarEvent recomputes due_at whenever EventAt or the lead changes.
type UpdateCalendarEvent struct {
	UpdateCommitment

	Title               *string
	Location            *string
	Description         *string
	EventAt             *time.Time
	ReminderLeadMinutes *int32
	// ClearReminderLead removes the lead so the event never fires.
	ClearReminderLead bool
}

// DeleteCommitment is the hard-delete request for any kind.
type DeleteCommitment struct {
	ID     int32
	UserID int32
}

type DeleteAlarm = DeleteCommitment
type DeleteReminder = DeleteCommitment
type DeleteTimer = DeleteCommitment
type DeleteCalendarEvent = DeleteCommitment

// DueCommitment is one row of the cross-table list_due view.
type DueCommitment struct {
	Kind   Kind
	ID     int32
	UID    string
	UserID int32
	DueAt  time.Time
	// Text is the alarm or timer label, the reminder text, or the event title.
	Text        string
	RepeatDays  temporal.WeekdaySet
	EventAt     *time.Time
	LeadMinutes *int32
}

// Recurring reports whether firing re-arms the row.
func (d *DueCommitment) Recurring() bool {
	return (d.Kind == KindAlarm || d.Kind == KindReminder) && !d.RepeatDays.IsEmpty()
}

// Recurrence returns the weekly pattern the row repeats on.
func (d *DueCommitment) Recurrence() temporal.Recurrence {
	return temporal.Recurrence{TimeOfDay: temporal.ClockOf(d.DueAt.In(timezone.IST)), Days: d.RepeatDays}
}

// FireCommitment is the compare-and-set request issued when a row fires.
type FireCommitment struct {
	Kind          Kind
	ID            int32
	ExpectedDueAt time.Time
	FiredAt       time.Time
	// NextDueAt re-arms a recurring row. Nil retires it.
	NextDueAt *time.Time
}
