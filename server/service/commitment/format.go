package commitment

import (
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/samay/plugin/temporal"
	"github.com/hrygo/samay/server/timezone"
)

var hindiMonths = [...]string{
	"जनवरी", "फ़रवरी", "मार्च", "अप्रैल", "मई", "जून",
	"जुलाई", "अगस्त", "सितंबर", "अक्टूबर", "नवंबर", "दिसंबर",
}

var hindiWeekdays = map[time.Weekday]string{
	time.Sunday:    "रविवार",
	time.Monday:    "सोमवार",
	time.Tuesday:   "मंगलवार",
	time.Wednesday: "बुधवार",
	time.Thursday:  "गुरुवार",
	time.Friday:    "शुक्रवार",
	time.Saturday:  "शनिवार",
}

// FormatClockHindi renders a time of day the way it is spoken,
// e.g. "सुबह 7 बजे" or "शाम 6:30 बजे".
func FormatClockHindi(hour, minute int) string {
	period, h := "रात", hour-12
	switch {
	case hour == 0:
		h = 12
	case hour < 12:
		period, h = "सुबह", hour
	case hour == 12:
		period, h = "दोपहर", 12
	case hour < 17:
		period = "दोपहर"
	case hour < 21:
		period = "शाम"
	}
	if minute > 0 {
		return fmt.Sprintf("%s %d:%02d बजे", period, h, minute)
	}
	return fmt.Sprintf("%s %d बजे", period, h)
}

// FormatTimeHindi renders t relative to ref in IST. Tomorrow and the day
// after get "कल" and "परसों"; other days get the calendar date.
func FormatTimeHindi(t, ref time.Time) string {
	t = t.In(timezone.IST)
	clock := FormatClockHindi(t.Hour(), t.Minute())

	days := int(timezone.StartOfDay(t, timezone.IST).Sub(timezone.StartOfDay(ref, timezone.IST)).Hours() / 24)
	switch days {
	case 0:
		return clock
	case 1:
		return "कल " + clock
	case 2:
		return "परसों " + clock
	}
	date := fmt.Sprintf("%d %s", t.Day(), hindiMonths[t.Month()-1])
	if t.Year() != ref.In(timezone.IST).Year() {
		date = fmt.Sprintf("%s %d", date, t.Year())
	}
	return date + " " + clock
}

// FormatDurationHindi renders seconds as "1 घंटा 30 मिनट", "10 मिनट" or "45 सेकंड".
func FormatDurationHindi(seconds int64) string {
	if seconds < 60 {
		return fmt.Sprintf("%d सेकंड", seconds)
	}
	if seconds < 3600 {
		return fmt.Sprintf("%d मिनट", seconds/60)
	}
	hours, minutes := seconds/3600, (seconds%3600)/60
	unit := "घंटे"
	if hours == 1 {
		unit = "घंटा"
	}
	if minutes > 0 {
		return fmt.Sprintf("%d %s %d मिनट", hours, unit, minutes)
	}
	return fmt.Sprintf("%d %s", hours, unit)
}

// FormatRecurrenceHindi renders a weekly pattern, e.g. "हर दिन सुबह 7 बजे"
// or "हर सोमवार, बुधवार शाम 6 बजे".
func FormatRecurrenceHindi(days temporal.WeekdaySet, clock temporal.Clock) string {
	var b strings.Builder
	b.WriteString("हर ")
	if days.IsEmpty() || days == temporal.EveryDay {
		b.WriteString("दिन")
	} else {
		names := make([]string, 0, days.Len())
		for _, d := range days.Days() {
			names = append(names, hindiWeekdays[d])
		}
		b.WriteString(strings.Join(names, ", "))
	}
	b.WriteString(" ")
	b.WriteString(FormatClockHindi(clock.Hour, clock.Minute))
	return b.String()
}
