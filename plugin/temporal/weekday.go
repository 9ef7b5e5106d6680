package temporal

import (
	"fmt"
	"math/bits"
	"strings"
	"time"
)

// WeekdaySet is a set of weekdays stored as a bitmask (bit n = time.Weekday(n)).
// The zero value is the empty set.
type WeekdaySet uint8

const (
	// EveryDay contains all seven days.
	EveryDay WeekdaySet = 0x7f
	// WorkWeek is Monday through Friday.
	WorkWeek WeekdaySet = 1<<time.Monday | 1<<time.Tuesday | 1<<time.Wednesday | 1<<time.Thursday | 1<<time.Friday
	// Weekend is Saturday and Sunday.
	Weekend WeekdaySet = 1<<time.Saturday | 1<<time.Sunday
)

// mondayFirst is the display and iteration order.
var mondayFirst = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

var shortNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// NewWeekdaySet builds a set from days.
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.Add(d)
	}
	return s
}

// Add returns s with d included.
func (s WeekdaySet) Add(d time.Weekday) WeekdaySet {
	return s | 1<<uint(d%7)
}

// Contains reports whether d is in s.
func (s WeekdaySet) Contains(d time.Weekday) bool {
	return s&(1<<uint(d%7)) != 0
}

// IsEmpty reports whether s has no days.
func (s WeekdaySet) IsEmpty() bool {
	return s&EveryDay == 0
}

// Len returns the number of days in s.
func (s WeekdaySet) Len() int {
	return bits.OnesCount8(uint8(s & EveryDay))
}

// Days lists the members Monday first.
func (s WeekdaySet) Days() []time.Weekday {
	out := make([]time.Weekday, 0, s.Len())
	for _, d := range mondayFirst {
		if s.Contains(d) {
			out = append(out, d)
		}
	}
	return out
}

// String renders s as comma-separated short names, e.g. "mon,wed".
func (s WeekdaySet) String() string {
	days := s.Days()
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = strings.ToLower(d.String()[:3])
	}
	return strings.Join(names, ",")
}

// Span returns the days from first to last inclusive, wrapping past Sunday.
func Span(first, last time.Weekday) WeekdaySet {
	var s WeekdaySet
	for d := first; ; d = (d + 1) % 7 {
		s = s.Add(d)
		if d == last {
			return s
		}
	}
}

// ParseWeekdaySet parses the String form. Empty input yields the empty set.
// Full English day names are accepted too.
func ParseWeekdaySet(s string) (WeekdaySet, error) {
	var set WeekdaySet
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if len(part) > 3 {
			part = part[:3]
		}
		d, ok := shortNames[part]
		if !ok {
			return 0, fmt.Errorf("unknown weekday %q", part)
		}
		set = set.Add(d)
	}
	return set, nil
}
