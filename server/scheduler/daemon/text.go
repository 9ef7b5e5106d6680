package daemon

import (
	"fmt"
	"time"

	"github.com/hrygo/samay/plugin/temporal"
	"github.com/hrygo/samay/server/service/commitment"
	"github.com/hrygo/samay/server/timezone"
	"github.com/hrygo/samay/store"
)

// NotificationText is the Hindi sentence spoken when c fires at firedAt.
// An event reminder counts the minutes left until the event, which is less
// than the lead when the daemon fires late.
func NotificationText(c *store.DueCommitment, firedAt time.Time) string {
	switch c.Kind {
	case store.KindAlarm:
		if c.Text != "" {
			return "अलार्म: " + c.Text
		}
		clock := temporal.ClockOf(c.DueAt.In(timezone.IST))
		return commitment.FormatClockHindi(clock.Hour, clock.Minute) + " का अलार्म"
	case store.KindTimer:
		if c.Text != "" {
			return fmt.Sprintf("टाइमर '%s' पूरा हो गया", c.Text)
		}
		return "टाइमर पूरा हो गया"
	case store.KindReminder:
		return "रिमाइंडर: " + c.Text
	case store.KindCalendarEvent:
		minutes := minutesUntilEvent(c, firedAt)
		if minutes <= 0 {
			return fmt.Sprintf("रिमाइंडर: '%s' का समय हो गया", c.Text)
		}
		return fmt.Sprintf("रिमाइंडर: %s में '%s' है", commitment.FormatDurationHindi(int64(minutes)*60), c.Text)
	}
	return c.Text
}

func minutesUntilEvent(c *store.DueCommitment, firedAt time.Time) int {
	eventAt := c.DueAt
	switch {
	case c.EventAt != nil:
		eventAt = *c.EventAt
	case c.LeadMinutes != nil:
		eventAt = c.DueAt.Add(time.Duration(*c.LeadMinutes) * time.Minute)
	}
	return int(eventAt.Sub(firedAt).Round(time.Minute) / time.Minute)
}
