package commitment

import (
	"strings"

	"github.com/hrygo/samay/plugin/temporal"
	"github.com/hrygo/samay/store"
)

// intentKeywords is checked in order, so "मीटिंग की याद" is an event with a
// reminder lead and not a plain reminder.
var intentKeywords = []struct {
	kind  store.Kind
	words []string
}{
	{store.KindTimer, []string{"टाइमर", "timer"}},
	{store.KindCalendarEvent, []string{"मीटिंग", "इवेंट", "कैलेंडर", "अपॉइंटमेंट", "meeting", "event", "calendar", "appointment"}},
	{store.KindAlarm, []string{"अलार्म", "उठाना", "उठा देना", "alarm"}},
	{store.KindReminder, []string{"याद", "रिमाइंडर", "remind"}},
}

// reminderLeadWord marks an event utterance that asks to be reminded.
const reminderLeadWord = "याद"

// defaultEventLeadMinutes is used when an event asks for a reminder without
// saying how early.
const defaultEventLeadMinutes int32 = 15

// detectIntent picks the commitment kind from keywords, falling back to the
// shape of the parsed phrase.
func detectIntent(text string, spec temporal.Spec) store.Kind {
	lower := strings.ToLower(text)
	for _, k := range intentKeywords {
		for _, w := range k.words {
			if strings.Contains(lower, w) {
				return k.kind
			}
		}
	}
	switch spec.Kind() {
	case temporal.KindDuration:
		return store.KindTimer
	case temporal.KindRecurrence:
		return store.KindAlarm
	default:
		return store.KindReminder
	}
}

// eventLead returns the reminder lead for a new calendar event.
func eventLead(req *Request) *int32 {
	if req.LeadMinutes != nil {
		lead := *req.LeadMinutes
		return &lead
	}
	if strings.Contains(req.Text, reminderLeadWord) {
		lead := defaultEventLeadMinutes
		return &lead
	}
	return nil
}
