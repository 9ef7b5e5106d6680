// Package timezone provides the civil-time helpers used by samay.
//
// Every schedule computation happens in India Standard Time, a fixed
// UTC+05:30 zone with no daylight saving. Instants cross process and storage
// boundaries as RFC 3339 strings carrying that explicit offset.
package timezone

import (
	"fmt"
	"time"
)

const (
	// TimezoneIST is the zone name used for the fixed IST location.
	TimezoneIST = "IST"

	// TimezoneAsiaKolkata is the IANA identifier for India Standard Time.
	TimezoneAsiaKolkata = "Asia/Kolkata"

	// TimezoneUTC is the UTC timezone identifier.
	TimezoneUTC = "UTC"

	// ISTOffsetSeconds is the offset of IST from UTC.
	ISTOffsetSeconds = 5*60*60 + 30*60

	// InstantLayout is the persisted/exchanged instant format.
	InstantLayout = time.RFC3339
)

// IST is the fixed India Standard Time location.
// It does not depend on the host tz database.
var IST = time.FixedZone(TimezoneIST, ISTOffsetSeconds)

// ParseTimezone parses a timezone identifier.
// IST aliases resolve to the fixed IST location without consulting tzdata.
func ParseTimezone(tz string) (*time.Location, error) {
	switch tz {
	case "", TimezoneIST, TimezoneAsiaKolkata, "Asia/Calcutta", "+05:30":
		return IST, nil
	case TimezoneUTC:
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return IST, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// MustParseTimezone parses a timezone or panics if invalid.
func MustParseTimezone(tz string) *time.Location {
	loc, err := ParseTimezone(tz)
	if err != nil {
		panic(err)
	}
	return loc
}

// IsFixedIST reports whether loc observes +05:30 year-round.
// It samples both solstices so zones with DST are rejected.
func IsFixedIST(loc *time.Location) bool {
	if loc == nil {
		return false
	}
	for _, month := range []time.Month{time.January, time.July} {
		_, offset := time.Date(2026, month, 1, 12, 0, 0, 0, loc).Zone()
		if offset != ISTOffsetSeconds {
			return false
		}
	}
	return true
}

// FormatInstant renders t as an RFC 3339 instant in IST at second precision.
func FormatInstant(t time.Time) string {
	return t.In(IST).Truncate(time.Second).Format(InstantLayout)
}

// ParseInstant parses an RFC 3339 instant with any offset and converts it to IST.
func ParseInstant(s string) (time.Time, error) {
	t, err := time.Parse(InstantLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid instant %q: %w", s, err)
	}
	return t.In(IST), nil
}

// StartOfDay returns midnight of t's civil date in tz.
func StartOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = IST
	}
	t = t.In(tz)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, tz)
}

// EndOfDay returns the last nanosecond of t's civil date in tz.
func EndOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = IST
	}
	t = t.In(tz)
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, tz)
}

// NowInTimezone returns the current time in the given timezone.
func NowInTimezone(tz *time.Location) time.Time {
	if tz == nil {
		tz = IST
	}
	return time.Now().In(tz)
}

// DaysIn returns the number of days in month m of year y.
func DaysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsLeapYear reports whether y is a Gregorian leap year.
func IsLeapYear(y int) bool {
	return DaysIn(y, time.February) == 29
}
