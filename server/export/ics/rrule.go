package ics

import (
	"github.com/hrygo/samay/plugin/temporal"
	"github.com/hrygo/samay/server/timezone"
	"github.com/hrygo/samay/store"
)

// recurrenceOf renders the RRULE of a repeating row anchored at its due time.
func recurrenceOf(base *store.CommitmentBase, days temporal.WeekdaySet) string {
	rec := temporal.Recurrence{
		TimeOfDay: temporal.ClockOf(base.DueAt.In(timezone.IST)),
		Days:      days,
	}
	return rec.RRule()
}
