package commitment

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/hrygo/samay/plugin/temporal"
	"github.com/hrygo/samay/server/internal/errors"
	"github.com/hrygo/samay/server/timezone"
	"github.com/hrygo/samay/store"
)

// maxSnoozeMinutes caps a snooze at one day.
const maxSnoozeMinutes = 24 * 60

// Preview is the dry-run result of parsing and resolving an utterance.
type Preview struct {
	Text      string   `json:"utterance_text" yaml:"utterance_text"`
	Reference string   `json:"reference_instant" yaml:"reference_instant"`
	Intent    string   `json:"intent,omitempty" yaml:"intent,omitempty"`
	SpecKind  string   `json:"spec_kind,omitempty" yaml:"spec_kind,omitempty"`
	Spec      string   `json:"spec,omitempty" yaml:"spec,omitempty"`
	Instant   string   `json:"instant,omitempty" yaml:"instant,omitempty"`
	Spoken    string   `json:"spoken,omitempty" yaml:"spoken,omitempty"`
	RRule     string   `json:"rrule,omitempty" yaml:"rrule,omitempty"`
	Upcoming  []string `json:"upcoming,omitempty" yaml:"upcoming,omitempty"`
	Failure   *Failure `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// Preview parses and resolves text without storing anything.
func (s *Service) Preview(ctx context.Context, text string, ref time.Time, upcoming int) *Preview {
	if ref.IsZero() {
		ref = s.now()
	}
	ref = ref.In(timezone.IST)
	p := &Preview{Text: text, Reference: timezone.FormatInstant(ref)}

	spec, resolved, fail := s.understand(ctx, text, ref)
	if spec != nil {
		p.SpecKind = spec.Kind().String()
		p.Spec = spec.String()
		p.Intent = detectIntent(text, spec).String()
	}
	if fail != nil {
		p.Failure = fail
		return p
	}

	p.Instant = timezone.FormatInstant(resolved.Instant)
	if resolved.Recurrence != nil {
		p.RRule = resolved.Recurrence.RRule()
		p.Spoken = FormatRecurrenceHindi(resolved.Recurrence.Days, resolved.Recurrence.TimeOfDay)
	} else {
		p.Spoken = FormatTimeHindi(resolved.Instant, ref)
	}
	for _, t := range resolved.Upcoming(upcoming) {
		p.Upcoming = append(p.Upcoming, timezone.FormatInstant(t))
	}
	return p
}

// Commitments holds a user's live rows of every kind.
type Commitments struct {
	Alarms    []*store.Alarm
	Reminders []*store.Reminder
	Timers    []*store.Timer
	Events    []*store.CalendarEvent
}

// Commitments loads the live rows of userID. An empty kind loads every kind.
func (s *Service) Commitments(ctx context.Context, userID int32, kind store.Kind) (*Commitments, error) {
	if userID <= 0 {
		return nil, errors.InvalidArgument("user_id must be positive")
	}
	if kind != "" && !kind.Valid() {
		return nil, errors.InvalidArgument(fmt.Sprintf("unknown commitment kind %q", kind))
	}
	normal := store.Normal
	find := store.FindCommitment{UserID: &userID, RowStatus: &normal}
	out := &Commitments{}

	var err error
	if kind == "" || kind == store.KindAlarm {
		if out.Alarms, err = s.store.ListAlarms(ctx, &store.FindAlarm{FindCommitment: find}); err != nil {
			return nil, errors.StoreError("failed to list alarms", err)
		}
	}
	if kind == "" || kind == store.KindReminder {
		if out.Reminders, err = s.store.ListReminders(ctx, &store.FindReminder{FindCommitment: find}); err != nil {
			return nil, errors.StoreError("failed to list reminders", err)
		}
	}
	if kind == "" || kind == store.KindTimer {
		if out.Timers, err = s.store.ListTimers(ctx, &store.FindTimer{FindCommitment: find}); err != nil {
			return nil, errors.StoreError("failed to list timers", err)
		}
	}
	if kind == "" || kind == store.KindCalendarEvent {
		if out.Events, err = s.store.ListCalendarEvents(ctx, &store.FindCalendarEvent{FindCommitment: find}); err != nil {
			return nil, errors.StoreError("failed to list calendar events", err)
		}
	}
	return out, nil
}

// Item is the flat listing view of any commitment.
type Item struct {
	Kind       store.Kind `json:"kind" yaml:"kind"`
	ID         int32      `json:"id" yaml:"id"`
	UID        string     `json:"uid" yaml:"uid"`
	Text       string     `json:"text" yaml:"text"`
	DueAt      string     `json:"due_at,omitempty" yaml:"due_at,omitempty"`
	EventAt    string     `json:"event_at,omitempty" yaml:"event_at,omitempty"`
	RepeatDays string     `json:"repeat_days,omitempty" yaml:"repeat_days,omitempty"`
	Enabled    bool       `json:"enabled" yaml:"enabled"`
	Fired      bool       `json:"fired" yaml:"fired"`
	Completed  bool       `json:"completed,omitempty" yaml:"completed,omitempty"`
}

func itemOf(kind store.Kind, base *store.CommitmentBase, text string) *Item {
	return &Item{
		Kind:    kind,
		ID:      base.ID,
		UID:     base.UID,
		Text:    text,
		DueAt:   formatDue(base.DueAt),
		Enabled: base.Enabled,
		Fired:   base.Fired,
	}
}

// List returns the live commitments of userID as flat items, alarms first.
func (s *Service) List(ctx context.Context, userID int32, kind store.Kind) ([]*Item, error) {
	c, err := s.Commitments(ctx, userID, kind)
	if err != nil {
		return nil, err
	}

	items := make([]*Item, 0, len(c.Alarms)+len(c.Reminders)+len(c.Timers)+len(c.Events))
	for _, a := range c.Alarms {
		item := itemOf(store.KindAlarm, &a.CommitmentBase, a.Label)
		item.RepeatDays = repeatString(a.RepeatDays)
		items = append(items, item)
	}
	for _, r := range c.Reminders {
		item := itemOf(store.KindReminder, &r.CommitmentBase, r.Text)
		item.RepeatDays = repeatString(r.RepeatDays)
		item.Completed = r.Completed
		items = append(items, item)
	}
	for _, t := range c.Timers {
		items = append(items, itemOf(store.KindTimer, &t.CommitmentBase, t.Label))
	}
	for _, e := range c.Events {
		item := itemOf(store.KindCalendarEvent, &e.CommitmentBase, e.Title)
		item.EventAt = timezone.FormatInstant(e.EventAt)
		items = append(items, item)
	}
	return items, nil
}

// Cancel soft-deletes a commitment, or removes it when hard is set.
func (s *Service) Cancel(ctx context.Context, userID int32, kind store.Kind, id int32, hard bool) error {
	if !kind.Valid() {
		return errors.InvalidArgument(fmt.Sprintf("unknown commitment kind %q", kind))
	}
	var err error
	if hard {
		err = s.store.DeleteCommitment(ctx, kind, &store.DeleteCommitment{ID: id, UserID: userID})
	} else {
		err = s.store.ArchiveCommitment(ctx, kind, id, userID)
	}
	if err != nil {
		return storeError(err, fmt.Sprintf("failed to cancel %s %d", kind, id))
	}
	s.wake()
	return nil
}

// CompleteReminder marks a reminder done so it never fires again.
func (s *Service) CompleteReminder(ctx context.Context, userID, id int32) (*store.Reminder, error) {
	reminder, err := s.store.CompleteReminder(ctx, id, userID)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("failed to complete reminder %d", id))
	}
	s.wake()
	return reminder, nil
}

// SetEnabled pauses or resumes a commitment. Resuming a repeating alarm or
// reminder re-arms it at its next occurrence from now, so a stale due time
// from before the pause is never announced.
func (s *Service) SetEnabled(ctx context.Context, userID int32, kind store.Kind, id int32, enabled bool) error {
	base := store.UpdateCommitment{ID: id, UserID: userID, Enabled: &enabled}
	if enabled && (kind == store.KindAlarm || kind == store.KindReminder) {
		next, err := s.rearm(ctx, userID, kind, id)
		if err != nil {
			return err
		}
		base.DueAt = next
	}

	var err error
	switch kind {
	case store.KindAlarm:
		_, err = s.store.UpdateAlarm(ctx, &store.UpdateAlarm{UpdateCommitment: base})
	case store.KindReminder:
		_, err = s.store.UpdateReminder(ctx, &store.UpdateReminder{UpdateCommitment: base})
	case store.KindTimer:
		_, err = s.store.UpdateTimer(ctx, &store.UpdateTimer{UpdateCommitment: base})
	case store.KindCalendarEvent:
		_, err = s.store.UpdateCalendarEvent(ctx, &store.UpdateCalendarEvent{UpdateCommitment: base})
	default:
		return errors.InvalidArgument(fmt.Sprintf("unknown commitment kind %q", kind))
	}
	if err != nil {
		return storeError(err, fmt.Sprintf("failed to update %s %d", kind, id))
	}
	s.wake()
	return nil
}

// rearm returns the next occurrence of a repeating alarm or reminder at or
// after now. One-shot rows and rows without a due time yield nil.
func (s *Service) rearm(ctx context.Context, userID int32, kind store.Kind, id int32) (*time.Time, error) {
	var row *store.CommitmentBase
	var days temporal.WeekdaySet
	if kind == store.KindAlarm {
		alarm, err := s.store.GetAlarm(ctx, id, userID)
		if err != nil {
			return nil, storeError(err, fmt.Sprintf("failed to load %s %d", kind, id))
		}
		row, days = &alarm.CommitmentBase, alarm.RepeatDays
	} else {
		reminder, err := s.store.GetReminder(ctx, id, userID)
		if err != nil {
			return nil, storeError(err, fmt.Sprintf("failed to load %s %d", kind, id))
		}
		row, days = &reminder.CommitmentBase, reminder.RepeatDays
	}
	if days.IsEmpty() || row.DueAt == nil {
		return nil, nil
	}

	rec := temporal.Recurrence{TimeOfDay: temporal.ClockOf(row.DueAt.In(timezone.IST)), Days: days}
	next, err := temporal.NextOccurrence(rec, s.now().In(timezone.IST), true, timezone.IST)
	if err != nil {
		return nil, errors.ResolutionError("failed to re-arm repeating commitment", err)
	}
	return &next, nil
}

// Snooze re-arms a one-shot alarm or reminder minutes from now.
// Repeating rows keep their time of day and cannot be snoozed.
func (s *Service) Snooze(ctx context.Context, userID int32, kind store.Kind, id int32, minutes int) (time.Time, error) {
	if minutes <= 0 || minutes > maxSnoozeMinutes {
		return time.Time{}, errors.InvalidArgument(fmt.Sprintf("snooze minutes must be between 1 and %d", maxSnoozeMinutes))
	}
	due := s.now().In(timezone.IST).Add(time.Duration(minutes) * time.Minute).Truncate(time.Second)
	enabled, fired := true, false
	base := store.UpdateCommitment{ID: id, UserID: userID, Enabled: &enabled, Fired: &fired, DueAt: &due}

	var days temporal.WeekdaySet
	var err error
	switch kind {
	case store.KindAlarm:
		var alarm *store.Alarm
		if alarm, err = s.store.GetAlarm(ctx, id, userID); err == nil {
			days = alarm.RepeatDays
		}
	case store.KindReminder:
		var reminder *store.Reminder
		if reminder, err = s.store.GetReminder(ctx, id, userID); err == nil {
			days = reminder.RepeatDays
		}
	default:
		return time.Time{}, errors.InvalidArgument(fmt.Sprintf("%s cannot be snoozed", kind))
	}
	if err != nil {
		return time.Time{}, storeError(err, fmt.Sprintf("failed to load %s %d", kind, id))
	}
	if !days.IsEmpty() {
		return time.Time{}, errors.InvalidArgument("a repeating commitment cannot be snoozed")
	}

	if kind == store.KindAlarm {
		_, err = s.store.UpdateAlarm(ctx, &store.UpdateAlarm{UpdateCommitment: base})
	} else {
		_, err = s.store.UpdateReminder(ctx, &store.UpdateReminder{UpdateCommitment: base})
	}
	if err != nil {
		return time.Time{}, storeError(err, fmt.Sprintf("failed to snooze %s %d", kind, id))
	}
	s.wake()
	return due, nil
}

// storeError maps a missing row to NOT_FOUND and everything else to STORE_ERROR.
func storeError(err error, msg string) error {
	if stderrors.Is(err, store.ErrNotFound) {
		return errors.NotFound(msg)
	}
	return errors.StoreError(msg, err)
}
