// Package ics renders a user's commitments as an iCalendar feed.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/hrygo/samay/server/timezone"
	"github.com/hrygo/samay/store"
)

const (
	productID = "-//samay//commitments//HI"
	tzid      = "Asia/Kolkata"
)

// localLayout is a floating DATE-TIME, qualified by a TZID parameter.
const localLayout = "20060102T150405"

// Options controls the generated calendar.
type Options struct {
	// Name is shown by calendar clients as the calendar title.
	Name string
	// Now stamps DTSTAMP. Zero means time.Now().
	Now time.Time
}

// Export renders calendar events, alarms and reminders as one calendar.
// Only scheduled rows are included; repeating rows carry an RRULE.
func Export(events []*store.CalendarEvent, alarms []*store.Alarm, reminders []*store.Reminder, opts Options) (string, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	cal.SetXWRTimezone(tzid)

	for _, e := range events {
		if e.RowStatus != store.Normal {
			continue
		}
		ve := newEvent(cal, e.UID, e.Title, e.EventAt, &e.CommitmentBase, now)
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.ReminderLeadMinutes != nil {
			alarm := ve.AddAlarm()
			alarm.SetProperty(ical.ComponentPropertyAction, "DISPLAY")
			alarm.SetProperty(ical.ComponentPropertyDescription, e.Title)
			alarm.SetProperty(ical.ComponentPropertyTrigger, fmt.Sprintf("-PT%dM", *e.ReminderLeadMinutes))
		}
	}

	for _, a := range alarms {
		if !a.Scheduled() {
			continue
		}
		summary := a.Label
		if summary == "" {
			summary = "अलार्म"
		}
		ve := newEvent(cal, a.UID, summary, *a.DueAt, &a.CommitmentBase, now)
		if a.Recurring() {
			ve.AddRrule(recurrenceOf(&a.CommitmentBase, a.RepeatDays))
		}
	}

	for _, r := range reminders {
		if !r.Scheduled() || r.Completed {
			continue
		}
		ve := newEvent(cal, r.UID, r.Text, *r.DueAt, &r.CommitmentBase, now)
		if r.Recurring() {
			ve.AddRrule(recurrenceOf(&r.CommitmentBase, r.RepeatDays))
		}
	}

	return cal.Serialize(), nil
}

func newEvent(cal *ical.Calendar, uid, summary string, start time.Time, base *store.CommitmentBase, now time.Time) *ical.VEvent {
	ve := cal.AddEvent(uid + "@samay")
	ve.SetDtStampTime(now)
	ve.SetCreatedTime(base.CreatedAt)
	ve.SetModifiedAt(base.UpdatedAt)
	// DTSTART is local so that BYHOUR in an RRULE means IST wall time.
	ve.SetProperty(ical.ComponentPropertyDtStart, start.In(timezone.IST).Format(localLayout),
		&ical.KeyValues{Key: string(ical.ParameterTzid), Value: []string{tzid}})
	ve.SetSummary(summary)
	return ve
}
