package temporal

import (
	"fmt"
	"strings"
	"time"
)

// SpecKind identifies which case of a Spec is populated.
type SpecKind int

const (
	KindAbsolute SpecKind = iota + 1
	KindDuration
	KindRecurrence
)

func (k SpecKind) String() string {
	switch k {
	case KindAbsolute:
		return "absolute"
	case KindDuration:
		return "duration"
	case KindRecurrence:
		return "recurrence"
	default:
		return "unknown"
	}
}

// Spec is the canonical parsed form of a time expression produced by the Parser.
// It is a closed set: *AbsoluteInstant, *Duration or *Recurrence.
type Spec interface {
	Kind() SpecKind
	fmt.Stringer
	isSpec()
}

// Period is a period-of-day word used to place a 12-hour clock value.
type Period int

const (
	PeriodNone Period = iota
	PeriodMorning
	PeriodAfternoon
	PeriodEvening
	PeriodNight
)

func (p Period) String() string {
	switch p {
	case PeriodMorning:
		return "morning"
	case PeriodAfternoon:
		return "afternoon"
	case PeriodEvening:
		return "evening"
	case PeriodNight:
		return "night"
	default:
		return ""
	}
}

// Contains reports whether the 24-hour value h falls in the period's bucket.
// Buckets: morning 4-11, afternoon 12-16, evening 17-20, night 21-3.
func (p Period) Contains(h int) bool {
	switch p {
	case PeriodMorning:
		return h >= 4 && h <= 11
	case PeriodAfternoon:
		return h >= 12 && h <= 16
	case PeriodEvening:
		return h >= 17 && h <= 20
	case PeriodNight:
		return h >= 21 || (h >= 0 && h <= 3)
	default:
		return true
	}
}

// place converts a 12-hour value (1..12) to 24 hours inside the bucket.
// When neither candidate is inside, morning keeps AM and the rest take PM,
// except that "सुबह 12" is noon.
func (p Period) place(h int) int {
	am, pm := h%12, h%12+12
	switch {
	case p.Contains(am):
		return am
	case p.Contains(pm):
		return pm
	case p == PeriodMorning && am == 0:
		return 12
	case p == PeriodMorning:
		return am
	default:
		return pm
	}
}

// defaultHour is used when a period is spoken without a clock value.
func (p Period) defaultHour() int {
	switch p {
	case PeriodMorning:
		return 8
	case PeriodAfternoon:
		return 14
	case PeriodEvening:
		return 18
	case PeriodNight:
		return 21
	default:
		return 9
	}
}

// AmbiguityFlags records what the Parser could not pin down.
type AmbiguityFlags uint8

const (
	// AmbiguousMeridiem marks a 1..12 hour with no period or AM/PM marker.
	AmbiguousMeridiem AmbiguityFlags = 1 << iota
	// DefaultedHour marks an hour filled in because none was spoken.
	DefaultedHour
)

// Has reports whether flag is set.
func (f AmbiguityFlags) Has(flag AmbiguityFlags) bool {
	return f&flag != 0
}

func (f AmbiguityFlags) String() string {
	var parts []string
	if f.Has(AmbiguousMeridiem) {
		parts = append(parts, "ambiguous-meridiem")
	}
	if f.Has(DefaultedHour) {
		parts = append(parts, "defaulted-hour")
	}
	return strings.Join(parts, ",")
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ClockOf returns the wall-clock time of t in its own location.
func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

// DateParts holds explicitly spoken calendar fields. Zero means unspecified.
type DateParts struct {
	Year  int
	Month time.Month
	Day   int
}

// IsZero reports whether no calendar field was given.
func (d DateParts) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// WeekdayConstraint pins an instant to a weekday.
// Next means the matching day strictly after the reference day.
type WeekdayConstraint struct {
	Day  time.Weekday
	Next bool
}

// AbsoluteInstant is a possibly partial calendar instant.
// The Resolver fills unspecified fields from the reference instant.
type AbsoluteInstant struct {
	Date        DateParts
	DayOffset   *int
	MonthOffset int
	Weekday     *WeekdayConstraint
	Clock       Clock
	Period      Period
	Flags       AmbiguityFlags
}

func (*AbsoluteInstant) Kind() SpecKind { return KindAbsolute }
func (*AbsoluteInstant) isSpec()        {}

func (a *AbsoluteInstant) String() string {
	var b strings.Builder
	b.WriteString("absolute{")
	if a.Date.Year != 0 {
		fmt.Fprintf(&b, "year=%d ", a.Date.Year)
	}
	if a.Date.Month != 0 {
		fmt.Fprintf(&b, "month=%d ", int(a.Date.Month))
	}
	if a.Date.Day != 0 {
		fmt.Fprintf(&b, "day=%d ", a.Date.Day)
	}
	if a.DayOffset != nil {
		fmt.Fprintf(&b, "day+%d ", *a.DayOffset)
	}
	if a.MonthOffset != 0 {
		fmt.Fprintf(&b, "month+%d ", a.MonthOffset)
	}
	if a.Weekday != nil {
		if a.Weekday.Next {
			b.WriteString("next-")
		}
		fmt.Fprintf(&b, "%s ", strings.ToLower(a.Weekday.Day.String()[:3]))
	}
	b.WriteString(a.Clock.String())
	if a.Period != PeriodNone {
		fmt.Fprintf(&b, " %s", a.Period)
	}
	if a.Flags != 0 {
		fmt.Fprintf(&b, " [%s]", a.Flags)
	}
	b.WriteString("}")
	return b.String()
}

// Duration is elapsed time from the reference instant.
type Duration struct {
	Seconds int64
}

func (*Duration) Kind() SpecKind { return KindDuration }
func (*Duration) isSpec()        {}

func (d *Duration) String() string {
	return fmt.Sprintf("duration{%s}", d.Value())
}

// Value returns the duration as a time.Duration.
func (d *Duration) Value() time.Duration {
	return time.Duration(d.Seconds) * time.Second
}

// Recurrence is a repeating time of day on a set of weekdays.
// An empty Days set means every day.
type Recurrence struct {
	TimeOfDay Clock
	Days      WeekdaySet
	Flags     AmbiguityFlags
}

func (*Recurrence) Kind() SpecKind { return KindRecurrence }
func (*Recurrence) isSpec()        {}

func (r *Recurrence) String() string {
	days := "daily"
	if !r.Days.IsEmpty() {
		days = r.Days.String()
	}
	return fmt.Sprintf("recurrence{%s %s}", days, r.TimeOfDay)
}

// IsDaily reports whether the recurrence fires every day.
func (r *Recurrence) IsDaily() bool {
	return r.Days.IsEmpty() || r.Days == EveryDay
}

// ResolvedSchedule is a Spec pinned to concrete instants.
type ResolvedSchedule struct {
	Kind SpecKind `json:"kind"`
	// Instant is the first due instant; the end instant for durations.
	Instant time.Time `json:"instant"`
	// Start is the reference instant for durations and equals Instant otherwise.
	Start      time.Time   `json:"start"`
	Recurrence *Recurrence `json:"-"`
}

// Duration returns the window length. It is zero unless Kind is KindDuration.
func (r ResolvedSchedule) Duration() time.Duration {
	return r.Instant.Sub(r.Start)
}

// Upcoming returns up to n instants starting with Instant.
// Non-recurring schedules yield exactly one.
func (r ResolvedSchedule) Upcoming(n int) []time.Time {
	if n <= 0 {
		return nil
	}
	out := []time.Time{r.Instant}
	if r.Recurrence == nil {
		return out
	}
	cur := r.Instant
	for len(out) < n {
		next, err := NextOccurrence(*r.Recurrence, cur, false, r.Instant.Location())
		if err != nil {
			break
		}
		out = append(out, next)
		cur = next
	}
	return out
}
