package commitment

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/samay/server/internal/errors"
	"github.com/hrygo/samay/server/internal/observability"
	"github.com/hrygo/samay/server/timezone"
	"github.com/hrygo/samay/store"
	teststore "github.com/hrygo/samay/store/test"
)

type countingWaker struct {
	n atomic.Int32
}

func (w *countingWaker) Wake() {
	w.n.Add(1)
}

// Friday 13 Feb 2026, 10:00 IST.
var testRef = time.Date(2026, 2, 13, 10, 0, 0, 0, timezone.IST)

func newTestService(t *testing.T) (*Service, *store.Store, *countingWaker, *observability.Metrics) {
	t.Helper()
	ts := teststore.NewTestingStore(context.Background(), t)
	svc := NewService(ts, nil)
	waker := &countingWaker{}
	metrics := observability.NewMetrics()
	svc.SetWaker(waker)
	svc.SetMetrics(metrics)
	svc.SetClock(func() time.Time { return testRef })
	return svc, ts, waker, metrics
}

func TestHandle(t *testing.T) {
	ctx := context.Background()
	svc, _, waker, _ := newTestService(t)

	tests := []struct {
		name     string
		req      *Request
		kind     store.Kind
		dueAt    string
		repeat   string
		userText string
	}{
		{
			name:     "alarm tomorrow morning",
			req:      &Request{Text: "कल सुबह 7 बजे अलार्म", UserID: 1},
			kind:     store.KindAlarm,
			dueAt:    "2026-02-14T07:00:00+05:30",
			userText: "कल सुबह 7 बजे का अलार्म सेट कर दिया",
		},
		{
			name:     "timer from duration",
			req:      &Request{Text: "10 मिनट का टाइमर", UserID: 1},
			kind:     store.KindTimer,
			dueAt:    "2026-02-13T10:10:00+05:30",
			userText: "10 मिनट का टाइमर शुरू कर दिया",
		},
		{
			name:     "reminder with payload",
			req:      &Request{Text: "शाम 6 बजे दवाई लेना याद दिलाना", UserID: 1, PayloadText: "दवाई लेना"},
			kind:     store.KindReminder,
			dueAt:    "2026-02-13T18:00:00+05:30",
			userText: "ठीक है, शाम 6 बजे को 'दवाई लेना' याद दिला दूंगा",
		},
		{
			name:     "weekly alarm",
			req:      &Request{Text: "हर सोमवार और बुधवार सुबह 7 बजे अलार्म", UserID: 1},
			kind:     store.KindAlarm,
			dueAt:    "2026-02-16T07:00:00+05:30",
			repeat:   "mon,wed",
			userText: "हर सोमवार, बुधवार सुबह 7 बजे का अलार्म सेट कर दिया",
		},
		{
			name:     "event with default lead",
			req:      &Request{Text: "कल शाम 5 बजे मीटिंग याद दिलाना", UserID: 1, PayloadText: "टीम मीटिंग"},
			kind:     store.KindCalendarEvent,
			dueAt:    "2026-02-14T16:45:00+05:30",
			userText: "'टीम मीटिंग' कैलेंडर में जोड़ दिया",
		},
		{
			name:     "explicit intent turns an absolute time into a timer",
			req:      &Request{Text: "शाम 6 बजे", UserID: 1, Intent: "timer"},
			kind:     store.KindTimer,
			dueAt:    "2026-02-13T18:00:00+05:30",
			userText: "8 घंटे का टाइमर शुरू कर दिया",
		},
		{
			name:     "bare duration falls back to a timer",
			req:      &Request{Text: "आधा घंटा", UserID: 1},
			kind:     store.KindTimer,
			dueAt:    "2026-02-13T10:30:00+05:30",
			userText: "30 मिनट का टाइमर शुरू कर दिया",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := waker.n.Load()
			tt.req.ReferenceInstant = testRef
			resp, err := svc.Handle(ctx, tt.req)
			require.NoError(t, err)
			require.Nil(t, resp.Failure)
			assert.Equal(t, tt.kind, resp.Kind)
			assert.NotZero(t, resp.ID)
			assert.NotEmpty(t, resp.UID)
			assert.Equal(t, tt.dueAt, resp.DueAt)
			assert.Equal(t, tt.repeat, resp.RepeatDays)
			assert.Equal(t, tt.userText, resp.UserFacingText)
			assert.Equal(t, before+1, waker.n.Load())
		})
	}
}

func TestHandleEventWithoutLead(t *testing.T) {
	svc, ts, _, _ := newTestService(t)
	resp, err := svc.Handle(context.Background(), &Request{Text: "कल शाम 5 बजे मीटिंग", UserID: 2})
	require.NoError(t, err)
	assert.Equal(t, store.KindCalendarEvent, resp.Kind)
	assert.Empty(t, resp.DueAt)

	event, err := ts.GetCalendarEvent(context.Background(), resp.ID, 2)
	require.NoError(t, err)
	assert.Nil(t, event.ReminderLeadMinutes)
	assert.Equal(t, "कल शाम 5 बजे मीटिंग", event.Title)
}

func TestHandleFailures(t *testing.T) {
	ctx := context.Background()
	svc, _, waker, metrics := newTestService(t)

	resp, err := svc.Handle(ctx, &Request{Text: "कुछ भी नहीं", UserID: 1})
	require.NoError(t, err)
	require.NotNil(t, resp.Failure)
	assert.Equal(t, errors.ErrCodeParseFailure, resp.Failure.Code)
	assert.Equal(t, "माफ़ कीजिए, मुझे समय समझ नहीं आया", resp.UserFacingText)

	resp, err = svc.Handle(ctx, &Request{Text: "हर दिन सुबह 7 बजे", UserID: 1, Intent: "timer"})
	require.NoError(t, err)
	require.NotNil(t, resp.Failure)
	assert.Equal(t, errors.ErrCodeResolutionError, resp.Failure.Code)
	assert.Equal(t, "a timer cannot repeat", resp.Failure.Reason)

	snap := metrics.Snapshot()
	assert.Equal(t, int64(2), snap.RequestTotal)
	assert.Equal(t, int64(1), snap.ParseFailures)
	assert.Equal(t, int64(1), snap.ResolutionFailures)
	assert.Zero(t, waker.n.Load())
}

func TestHandleInvalidInput(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t)

	tests := []struct {
		name string
		req  *Request
	}{
		{"nil request", nil},
		{"empty text", &Request{Text: "  ", UserID: 1}},
		{"missing user", &Request{Text: "7 बजे"}},
		{"negative lead", &Request{Text: "कल मीटिंग", UserID: 1, LeadMinutes: ptr(int32(-5))}},
		{"unknown intent", &Request{Text: "7 बजे", UserID: 1, Intent: "todo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Handle(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidArgument))
		})
	}
}

func TestHandleDedupesOnRequestID(t *testing.T) {
	ctx := context.Background()
	svc, ts, _, _ := newTestService(t)

	req := &Request{Text: "कल सुबह 7 बजे अलार्म", UserID: 1, RequestID: "req-1"}
	first, err := svc.Handle(ctx, req)
	require.NoError(t, err)
	second, err := svc.Handle(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "req-1", second.RequestID)

	alarms, err := ts.ListAlarms(ctx, &store.FindAlarm{})
	require.NoError(t, err)
	assert.Len(t, alarms, 1)
}

func TestManage(t *testing.T) {
	ctx := context.Background()
	svc, ts, _, _ := newTestService(t)

	alarm, err := svc.Handle(ctx, &Request{Text: "कल सुबह 7 बजे अलार्म", UserID: 1})
	require.NoError(t, err)
	reminder, err := svc.Handle(ctx, &Request{Text: "शाम 6 बजे याद दिलाना", UserID: 1, PayloadText: "पानी पीना"})
	require.NoError(t, err)
	weekly, err := svc.Handle(ctx, &Request{Text: "हर सोमवार सुबह 9 बजे याद दिलाना", UserID: 1, PayloadText: "रिपोर्ट"})
	require.NoError(t, err)
	_, err = svc.Handle(ctx, &Request{Text: "10 मिनट का टाइमर", UserID: 2})
	require.NoError(t, err)

	t.Run("list is scoped to the user", func(t *testing.T) {
		items, err := svc.List(ctx, 1, "")
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, store.KindAlarm, items[0].Kind)
		assert.Equal(t, "पानी पीना", items[1].Text)
		assert.Equal(t, "mon", items[2].RepeatDays)

		items, err = svc.List(ctx, 1, store.KindTimer)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("snooze one-shot reminder", func(t *testing.T) {
		due, err := svc.Snooze(ctx, 1, store.KindReminder, reminder.ID, 10)
		require.NoError(t, err)
		assert.True(t, due.Equal(testRef.Add(10*time.Minute)))

		got, err := ts.GetReminder(ctx, reminder.ID, 1)
		require.NoError(t, err)
		require.NotNil(t, got.DueAt)
		assert.True(t, got.DueAt.Equal(due))
	})

	t.Run("snooze rejects repeating rows and timers", func(t *testing.T) {
		_, err := svc.Snooze(ctx, 1, store.KindReminder, weekly.ID, 10)
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidArgument))
		_, err = svc.Snooze(ctx, 1, store.KindTimer, 1, 10)
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidArgument))
		_, err = svc.Snooze(ctx, 1, store.KindAlarm, alarm.ID, 0)
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidArgument))
	})

	t.Run("complete reminder", func(t *testing.T) {
		got, err := svc.CompleteReminder(ctx, 1, reminder.ID)
		require.NoError(t, err)
		assert.True(t, got.Completed)
	})

	t.Run("disable and enable alarm", func(t *testing.T) {
		require.NoError(t, svc.SetEnabled(ctx, 1, store.KindAlarm, alarm.ID, false))
		got, err := ts.GetAlarm(ctx, alarm.ID, 1)
		require.NoError(t, err)
		assert.False(t, got.Enabled)
		require.NoError(t, svc.SetEnabled(ctx, 1, store.KindAlarm, alarm.ID, true))
	})

	t.Run("cancel another user's row is not found", func(t *testing.T) {
		err := svc.Cancel(ctx, 2, store.KindAlarm, alarm.ID, false)
		assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
	})

	t.Run("soft then hard cancel", func(t *testing.T) {
		require.NoError(t, svc.Cancel(ctx, 1, store.KindAlarm, alarm.ID, false))
		items, err := svc.List(ctx, 1, store.KindAlarm)
		require.NoError(t, err)
		assert.Empty(t, items)

		require.NoError(t, svc.Cancel(ctx, 1, store.KindAlarm, alarm.ID, true))
		err = svc.Cancel(ctx, 1, store.KindAlarm, alarm.ID, true)
		assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
	})
}

func TestSetEnabledRearmsRepeatingRows(t *testing.T) {
	ctx := context.Background()
	svc, ts, _, _ := newTestService(t)
	now := testRef
	svc.SetClock(func() time.Time { return now })

	weekly, err := svc.Handle(ctx, &Request{Text: "हर सोमवार सुबह 7 बजे अलार्म", UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, "2026-02-16T07:00:00+05:30", weekly.DueAt)
	once, err := svc.Handle(ctx, &Request{Text: "कल सुबह 7 बजे अलार्म", UserID: 1})
	require.NoError(t, err)

	require.NoError(t, svc.SetEnabled(ctx, 1, store.KindAlarm, weekly.ID, false))
	require.NoError(t, svc.SetEnabled(ctx, 1, store.KindAlarm, once.ID, false))

	// Resumed on Wednesday: Monday's occurrence is gone, the next one is a week out.
	now = time.Date(2026, 2, 18, 12, 0, 0, 0, timezone.IST)
	require.NoError(t, svc.SetEnabled(ctx, 1, store.KindAlarm, weekly.ID, true))
	require.NoError(t, svc.SetEnabled(ctx, 1, store.KindAlarm, once.ID, true))

	got, err := ts.GetAlarm(ctx, weekly.ID, 1)
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	require.NotNil(t, got.DueAt)
	assert.Equal(t, "2026-02-23T07:00:00+05:30", timezone.FormatInstant(*got.DueAt))

	oneShot, err := ts.GetAlarm(ctx, once.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, oneShot.DueAt)
	assert.Equal(t, once.DueAt, timezone.FormatInstant(*oneShot.DueAt))

	due, err := ts.ListDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, once.ID, due[0].ID)

	err = svc.SetEnabled(ctx, 2, store.KindAlarm, weekly.ID, true)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestTimerStatus(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t)
	now := testRef
	svc.SetClock(func() time.Time { return now })

	status, err := svc.TimerStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "कोई टाइमर चालू नहीं है", status.UserFacingText)
	assert.Empty(t, status.Timers)

	_, err = svc.Handle(ctx, &Request{Text: "आधा घंटा", UserID: 1, PayloadText: "दाल"})
	require.NoError(t, err)
	short, err := svc.Handle(ctx, &Request{Text: "10 मिनट का टाइमर", UserID: 1})
	require.NoError(t, err)
	paused, err := svc.Handle(ctx, &Request{Text: "5 मिनट का टाइमर", UserID: 1})
	require.NoError(t, err)
	require.NoError(t, svc.SetEnabled(ctx, 1, store.KindTimer, paused.ID, false))

	now = testRef.Add(4*time.Minute + 30*time.Second)
	status, err = svc.TimerStatus(ctx, 1)
	require.NoError(t, err)
	require.Len(t, status.Timers, 2)
	assert.Equal(t, short.ID, status.Timers[0].ID)
	assert.Equal(t, int64(330), status.Timers[0].RemainingSeconds)
	assert.Equal(t, "2026-02-13T10:10:00+05:30", status.Timers[0].EndsAt)
	assert.Equal(t, "दाल", status.Timers[1].Label)
	assert.Equal(t, "टाइमर में 5 मिनट बाकी हैं", status.UserFacingText)

	// An overdue timer the daemon has not fired yet reports nothing left.
	now = testRef.Add(20 * time.Minute)
	status, err = svc.TimerStatus(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, status.Timers[0].RemainingSeconds)
	assert.Equal(t, "टाइमर में 0 सेकंड बाकी हैं", status.UserFacingText)

	status, err = svc.TimerStatus(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "कोई टाइमर चालू नहीं है", status.UserFacingText)

	_, err = svc.TimerStatus(ctx, 0)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidArgument))
}

func TestPreview(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	p := svc.Preview(context.Background(), "हर दिन रात 10 बजे", testRef, 3)
	require.Nil(t, p.Failure)
	assert.Equal(t, "recurrence", p.SpecKind)
	assert.Equal(t, "alarm", p.Intent)
	assert.Equal(t, "2026-02-13T22:00:00+05:30", p.Instant)
	assert.Equal(t, "हर दिन रात 10 बजे", p.Spoken)
	assert.Contains(t, p.RRule, "FREQ=DAILY")
	assert.Equal(t, []string{
		"2026-02-13T22:00:00+05:30",
		"2026-02-14T22:00:00+05:30",
		"2026-02-15T22:00:00+05:30",
	}, p.Upcoming)

	p = svc.Preview(context.Background(), "कुछ भी नहीं", testRef, 1)
	require.NotNil(t, p.Failure)
	assert.Empty(t, p.SpecKind)
}

func ptr[T any](v T) *T {
	return &v
}
