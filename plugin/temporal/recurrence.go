package temporal

import (
	"time"

	"github.com/teambition/rrule-go"

	"github.com/hrygo/samay/server/timezone"
)

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// options builds the rrule for r anchored at dtstart.
// Daily when the day set is empty, weekly BYDAY otherwise.
func (r *Recurrence) options(dtstart time.Time) rrule.ROption {
	opt := rrule.ROption{
		Freq:     rrule.DAILY,
		Dtstart:  dtstart,
		Byhour:   []int{r.TimeOfDay.Hour},
		Byminute: []int{r.TimeOfDay.Minute},
		Bysecond: []int{0},
	}
	if !r.IsDaily() {
		opt.Freq = rrule.WEEKLY
		for _, d := range r.Days.Days() {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
		}
	}
	return opt
}

// RRule renders r as an iCalendar RRULE value without DTSTART,
// e.g. "FREQ=WEEKLY;BYDAY=MO,WE;BYHOUR=7;BYMINUTE=0;BYSECOND=0".
func (r *Recurrence) RRule() string {
	opt := r.options(time.Time{})
	return opt.RRuleString()
}

// NextOccurrence returns the first instant matching rec that is after the
// given instant, or equal to it when inclusive is set.
func NextOccurrence(rec Recurrence, after time.Time, inclusive bool, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = timezone.IST
	}
	if rec.TimeOfDay.Hour < 0 || rec.TimeOfDay.Hour > 23 || rec.TimeOfDay.Minute < 0 || rec.TimeOfDay.Minute > 59 {
		return time.Time{}, resolutionError("invalid time of day %s", rec.TimeOfDay)
	}
	after = after.In(loc)
	rule, err := rrule.NewRRule(rec.options(timezone.StartOfDay(after, loc)))
	if err != nil {
		return time.Time{}, resolutionError("invalid recurrence %s: %v", rec.String(), err)
	}
	next := rule.After(after, inclusive)
	if next.IsZero() {
		return time.Time{}, resolutionError("recurrence %s has no occurrence after %s", rec.String(), timezone.FormatInstant(after))
	}
	return next.In(loc), nil
}
