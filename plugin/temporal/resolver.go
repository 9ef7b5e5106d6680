package temporal

import (
	"time"

	"github.com/hrygo/samay/server/timezone"
)

// maxAdvance bounds the search for a valid date; Feb 29 needs at most 8 years.
const maxAdvance = 64

// Resolver pins a Spec to concrete instants relative to a reference instant.
// All calendar arithmetic happens in its location.
type Resolver struct {
	loc *time.Location
}

// NewResolver creates a resolver for loc, defaulting to IST.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = timezone.IST
	}
	return &Resolver{loc: loc}
}

// Location returns the resolver's civil timezone.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Resolve computes the schedule for spec as seen at ref.
//
// Absolute instants come out strictly after ref. Durations end at ref+seconds.
// Recurrences yield the first occurrence at or after ref.
func (r *Resolver) Resolve(spec Spec, ref time.Time) (ResolvedSchedule, error) {
	if ref.IsZero() {
		return ResolvedSchedule{}, resolutionError("reference instant is not set")
	}
	ref = ref.In(r.loc)
	if y := ref.Year(); y < 1 || y > 9999 {
		return ResolvedSchedule{}, resolutionError("reference year %d is out of range", y)
	}

	switch s := spec.(type) {
	case *AbsoluteInstant:
		t, err := r.resolveAbsolute(s, ref)
		if err != nil {
			return ResolvedSchedule{}, err
		}
		return ResolvedSchedule{Kind: KindAbsolute, Instant: t, Start: t}, nil

	case *Duration:
		if s.Seconds <= 0 {
			return ResolvedSchedule{}, resolutionError("duration must be positive")
		}
		return ResolvedSchedule{Kind: KindDuration, Instant: ref.Add(s.Value()), Start: ref}, nil

	case *Recurrence:
		t, err := NextOccurrence(*s, ref, true, r.loc)
		if err != nil {
			return ResolvedSchedule{}, err
		}
		rec := *s
		return ResolvedSchedule{Kind: KindRecurrence, Instant: t, Start: t, Recurrence: &rec}, nil

	case nil:
		return ResolvedSchedule{}, resolutionError("no time expression")
	default:
		return ResolvedSchedule{}, resolutionError("unsupported spec type %T", spec)
	}
}

type civilDate struct {
	y int
	m time.Month
	d int
}

func (c civilDate) valid() bool {
	return c.m >= time.January && c.m <= time.December && c.d >= 1 && c.d <= timezone.DaysIn(c.y, c.m)
}

func (c civilDate) addDays(n int) civilDate {
	t := time.Date(c.y, c.m, c.d+n, 0, 0, 0, 0, time.UTC)
	return civilDate{t.Year(), t.Month(), t.Day()}
}

func (c civilDate) firstOfMonth(offset int) civilDate {
	t := time.Date(c.y, c.m+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
	return civilDate{t.Year(), t.Month(), 1}
}

func (r *Resolver) resolveAbsolute(a *AbsoluteInstant, ref time.Time) (time.Time, error) {
	if a.Clock.Hour < 0 || a.Clock.Hour > 23 || a.Clock.Minute < 0 || a.Clock.Minute > 59 {
		return time.Time{}, resolutionError("invalid time of day %s", a.Clock)
	}
	hours := []int{a.Clock.Hour}
	if a.Flags.Has(AmbiguousMeridiem) {
		hours = []int{a.Clock.Hour % 12, a.Clock.Hour%12 + 12}
	}

	ry, rm, rd := ref.Date()
	date := civilDate{ry, rm, rd}
	var advance func(civilDate) civilDate

	switch p := a.Date; {
	case p.Year != 0 && p.Month != 0 && p.Day != 0:
		date = civilDate{p.Year, p.Month, p.Day}
	case p.Month != 0 && p.Day != 0:
		date = civilDate{ry, p.Month, p.Day}
		advance = func(c civilDate) civilDate { return civilDate{c.y + 1, p.Month, p.Day} }
	case p.Day != 0:
		if a.MonthOffset != 0 {
			date = date.firstOfMonth(a.MonthOffset)
		}
		date.d = p.Day
		advance = func(c civilDate) civilDate {
			next := c.firstOfMonth(1)
			next.d = p.Day
			return next
		}
	case a.MonthOffset != 0:
		date = date.firstOfMonth(a.MonthOffset)
		advance = func(c civilDate) civilDate { return c.addDays(1) }
	case a.DayOffset != nil:
		date = date.addDays(*a.DayOffset)
		advance = func(c civilDate) civilDate { return c.addDays(1) }
	case a.Weekday != nil:
		delta := (int(a.Weekday.Day) - int(ref.Weekday()) + 7) % 7
		if a.Weekday.Next && delta == 0 {
			delta = 7
		}
		date = date.addDays(delta)
		advance = func(c civilDate) civilDate { return c.addDays(7) }
	default:
		advance = func(c civilDate) civilDate { return c.addDays(1) }
	}

	for i := 0; i < maxAdvance; i++ {
		if date.valid() {
			for _, h := range hours {
				t := time.Date(date.y, date.m, date.d, h, a.Clock.Minute, 0, 0, r.loc)
				if t.After(ref) {
					return r.checkWeekday(a, t)
				}
			}
		}
		if advance == nil {
			if !date.valid() {
				return time.Time{}, resolutionError("date %d-%02d-%02d does not exist", date.y, date.m, date.d)
			}
			return time.Time{}, resolutionError("%d-%02d-%02d %s is not after the reference instant",
				date.y, date.m, date.d, a.Clock)
		}
		date = advance(date)
	}
	return time.Time{}, resolutionError("no date matches %s", a)
}

func (r *Resolver) checkWeekday(a *AbsoluteInstant, t time.Time) (time.Time, error) {
	if a.Weekday != nil && t.Weekday() != a.Weekday.Day {
		return time.Time{}, resolutionError("%s falls on %s, not %s", t.Format("2006-01-02"), t.Weekday(), a.Weekday.Day)
	}
	return t, nil
}
