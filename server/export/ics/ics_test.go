package ics

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/samay/plugin/temporal"
	"github.com/hrygo/samay/server/timezone"
	"github.com/hrygo/samay/store"
)

func base(uid string, due *time.Time) store.CommitmentBase {
	created := time.Date(2026, 2, 1, 9, 0, 0, 0, timezone.IST)
	return store.CommitmentBase{
		UID:       uid,
		UserID:    1,
		RowStatus: store.Normal,
		Enabled:   true,
		DueAt:     due,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestExport(t *testing.T) {
	eventAt := time.Date(2026, 2, 14, 17, 0, 0, 0, timezone.IST)
	alarmDue := time.Date(2026, 2, 16, 7, 0, 0, 0, timezone.IST)
	reminderDue := time.Date(2026, 2, 13, 18, 0, 0, 0, timezone.IST)
	lead := int32(15)

	events := []*store.CalendarEvent{
		{CommitmentBase: base("evt1", store.EventDueAt(eventAt, &lead)), Title: "Standup", Location: "Office", EventAt: eventAt, ReminderLeadMinutes: &lead},
	}
	archived := base("evt2", nil)
	archived.RowStatus = store.Archived
	events = append(events, &store.CalendarEvent{CommitmentBase: archived, Title: "Gone", EventAt: eventAt})

	alarms := []*store.Alarm{
		{CommitmentBase: base("alm1", &alarmDue), Label: "Gym", RepeatDays: temporal.NewWeekdaySet(time.Monday, time.Wednesday)},
	}
	disabled := base("alm2", &alarmDue)
	disabled.Enabled = false
	alarms = append(alarms, &store.Alarm{CommitmentBase: disabled})

	reminders := []*store.Reminder{
		{CommitmentBase: base("rem1", &reminderDue), Text: "Pay bill"},
		{CommitmentBase: base("rem2", &reminderDue), Text: "Done", Completed: true},
	}

	out, err := Export(events, alarms, reminders, Options{Name: "samay", Now: reminderDue})
	require.NoError(t, err)

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)

	uids := map[string]*ical.VEvent{}
	for _, ve := range cal.Events() {
		uids[ve.GetProperty(ical.ComponentPropertyUniqueId).Value] = ve
	}
	assert.Len(t, uids, 3)
	require.Contains(t, uids, "evt1@samay")
	require.Contains(t, uids, "alm1@samay")
	require.Contains(t, uids, "rem1@samay")

	assert.Equal(t, "Office", uids["evt1@samay"].GetProperty(ical.ComponentPropertyLocation).Value)
	assert.Contains(t, out, "TRIGGER:-PT15M")
	assert.Contains(t, out, "DTSTART;TZID=Asia/Kolkata:20260214T170000")

	rrule := uids["alm1@samay"].GetProperty(ical.ComponentPropertyRrule)
	require.NotNil(t, rrule)
	assert.Contains(t, rrule.Value, "FREQ=WEEKLY")
	assert.Contains(t, rrule.Value, "BYDAY=MO,WE")
	assert.Nil(t, uids["rem1@samay"].GetProperty(ical.ComponentPropertyRrule))
}

func TestExportEmpty(t *testing.T) {
	out, err := Export(nil, nil, nil, Options{})
	require.NoError(t, err)
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.NotContains(t, out, "BEGIN:VEVENT")
}
