package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/samay/internal/profile"
	"github.com/hrygo/samay/server/internal/errors"
	"github.com/hrygo/samay/server/internal/observability"
	"github.com/hrygo/samay/server/notify"
	"github.com/hrygo/samay/server/scheduler/daemon"
	"github.com/hrygo/samay/server/service/commitment"
	"github.com/hrygo/samay/server/timezone"
	"github.com/hrygo/samay/store"
	teststore "github.com/hrygo/samay/store/test"
)

// Friday 13 Feb 2026, 10:00 IST.
var testRef = time.Date(2026, 2, 13, 10, 0, 0, 0, timezone.IST)

type stubHealth struct {
	status daemon.HealthStatus
}

func (h *stubHealth) HealthCheck() daemon.HealthStatus {
	return h.status
}

type failingHandler struct {
	err error
}

func (h *failingHandler) Handle(context.Context, *commitment.Request) (*commitment.Response, error) {
	return nil, h.err
}

type testServer struct {
	echo    *echo.Echo
	api     *APIV1Service
	store   *store.Store
	health  *stubHealth
	memory  *notify.MemoryPublisher
	metrics *observability.Metrics
}

func newTestServer(t *testing.T, limit profile.RateLimitConfig) *testServer {
	t.Helper()
	ts := teststore.NewTestingStore(context.Background(), t)
	metrics := observability.NewMetrics()

	svc := commitment.NewService(ts, nil)
	svc.SetMetrics(metrics)
	svc.SetClock(func() time.Time { return testRef })

	health := &stubHealth{status: daemon.HealthStatus{Healthy: true, Running: true}}
	api := NewAPIV1Service(&profile.Profile{Version: "test", RateLimit: limit}, svc, health)
	api.Metrics = metrics
	api.Notifications = notify.NewMemoryPublisher(10, nil)

	e := echo.New()
	api.RegisterRoutes(e)
	return &testServer{echo: e, api: api, store: ts, health: health, memory: api.Notifications, metrics: metrics}
}

func (s *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(data))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func utterance(text string, userID int32) map[string]any {
	return map[string]any{
		"utterance_text":    text,
		"user_id":           userID,
		"reference_instant": timezone.FormatInstant(testRef),
	}
}

func itoa(id int32) string {
	return strconv.Itoa(int(id))
}

var generous = profile.RateLimitConfig{RPS: 1000, Burst: 1000}

func TestCreateUtterance(t *testing.T) {
	s := newTestServer(t, generous)

	tests := []struct {
		name   string
		body   any
		status int
		check  func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:   "alarm is stored",
			body:   utterance("कल सुबह 7 बजे अलार्म", 1),
			status: http.StatusCreated,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				resp := decode[commitment.Response](t, rec)
				assert.Equal(t, store.KindAlarm, resp.Kind)
				assert.Equal(t, "2026-02-14T07:00:00+05:30", resp.DueAt)
				assert.NotEmpty(t, resp.UID)
				assert.NotEmpty(t, resp.RequestID)
			},
		},
		{
			name:   "unparseable text is a failure value",
			body:   utterance("कुछ भी नहीं", 1),
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				resp := decode[commitment.Response](t, rec)
				require.NotNil(t, resp.Failure)
				assert.Equal(t, errors.ErrCodeParseFailure, resp.Failure.Code)
				assert.Equal(t, resp.Failure.UserMessage, resp.UserFacingText)
			},
		},
		{
			name:   "missing user",
			body:   utterance("कल सुबह 7 बजे अलार्म", 0),
			status: http.StatusBadRequest,
		},
		{
			name:   "malformed body",
			body:   "not an object",
			status: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/utterances", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, rec)
			}
		})
	}
}

func TestCreateUtteranceRateLimited(t *testing.T) {
	s := newTestServer(t, profile.RateLimitConfig{RPS: 0.001, Burst: 1})

	rec := s.do(t, http.MethodPost, "/api/v1/utterances", utterance("10 मिनट का टाइमर", 1))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/utterances", utterance("10 मिनट का टाइमर", 1))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, errors.ErrCodeRateLimited, decode[ErrorResponse](t, rec).Code)

	// Another user has its own bucket.
	rec = s.do(t, http.MethodPost, "/api/v1/utterances", utterance("10 मिनट का टाइमर", 2))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateUtteranceStoreError(t *testing.T) {
	s := newTestServer(t, generous)
	s.api.Handler = &failingHandler{err: errors.StoreError("failed to create alarm", context.DeadlineExceeded)}

	rec := s.do(t, http.MethodPost, "/api/v1/utterances", utterance("कल सुबह 7 बजे अलार्म", 1))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, errors.ErrCodeStoreError, body.Code)
	assert.Equal(t, errors.UserMessage(errors.ErrCodeStoreError), body.UserMessage)
}

func TestParseUtterance(t *testing.T) {
	s := newTestServer(t, generous)

	rec := s.do(t, http.MethodPost, "/api/v1/parse", map[string]any{
		"utterance_text":    "हर सोमवार सुबह 7 बजे",
		"reference_instant": timezone.FormatInstant(testRef),
		"upcoming":          2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preview := decode[commitment.Preview](t, rec)
	assert.Nil(t, preview.Failure)
	assert.Equal(t, "2026-02-16T07:00:00+05:30", preview.Instant)
	assert.Len(t, preview.Upcoming, 2)
	assert.Contains(t, preview.RRule, "BYDAY=MO")

	// Nothing was stored.
	alarms, err := s.store.ListAlarms(context.Background(), &store.FindAlarm{})
	require.NoError(t, err)
	assert.Empty(t, alarms)

	rec = s.do(t, http.MethodPost, "/api/v1/parse", map[string]any{"utterance_text": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTimerStatus(t *testing.T) {
	s := newTestServer(t, generous)

	rec := s.do(t, http.MethodGet, "/api/v1/timers/status?user_id=1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "कोई टाइमर चालू नहीं है", decode[commitment.TimerStatus](t, rec).UserFacingText)

	rec = s.do(t, http.MethodPost, "/api/v1/utterances", utterance("10 मिनट का टाइमर", 1))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/v1/timers/status?user_id=1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	status := decode[commitment.TimerStatus](t, rec)
	require.Len(t, status.Timers, 1)
	assert.Equal(t, int64(600), status.Timers[0].RemainingSeconds)
	assert.Equal(t, "टाइमर में 10 मिनट बाकी हैं", status.UserFacingText)

	rec = s.do(t, http.MethodGet, "/api/v1/timers/status", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommitmentLifecycle(t *testing.T) {
	s := newTestServer(t, generous)

	create := func(text, payload string) commitment.Response {
		body := utterance(text, 1)
		body["payload_text"] = payload
		rec := s.do(t, http.MethodPost, "/api/v1/utterances", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		return decode[commitment.Response](t, rec)
	}
	alarm := create("कल सुबह 7 बजे अलार्म", "")
	reminder := create("शाम 6 बजे याद दिलाना", "पानी पीना")

	list := func(query string) []*commitment.Item {
		rec := s.do(t, http.MethodGet, "/api/v1/commitments?"+query, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode[ListCommitmentsResponse](t, rec).Commitments
	}

	t.Run("list", func(t *testing.T) {
		items := list("user_id=1")
		require.Len(t, items, 2)
		assert.Equal(t, store.KindAlarm, items[0].Kind)
		assert.Equal(t, "पानी पीना", items[1].Text)

		assert.Len(t, list("user_id=1&kind=reminders"), 1)
		assert.Empty(t, list("user_id=2"))

		rec := s.do(t, http.MethodGet, "/api/v1/commitments", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rec = s.do(t, http.MethodGet, "/api/v1/commitments?user_id=1&kind=todo", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("snooze", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/v1/commitments/reminder/"+itoa(reminder.ID)+"/snooze?user_id=1", SnoozeRequest{Minutes: 10})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "2026-02-13T10:10:00+05:30", decode[SnoozeResponse](t, rec).DueAt)

		rec = s.do(t, http.MethodPost, "/api/v1/commitments/timer/1/snooze?user_id=1", SnoozeRequest{Minutes: 10})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("disable and enable", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/v1/commitments/alarm/"+itoa(alarm.ID)+"/disable?user_id=1", nil)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		assert.False(t, list("user_id=1&kind=alarm")[0].Enabled)

		rec = s.do(t, http.MethodPost, "/api/v1/commitments/alarm/"+itoa(alarm.ID)+"/enable?user_id=1", nil)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		assert.True(t, list("user_id=1&kind=alarm")[0].Enabled)
	})

	t.Run("complete reminder", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/v1/reminders/"+itoa(reminder.ID)+"/complete?user_id=1", nil)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		assert.True(t, list("user_id=1&kind=reminder")[0].Completed)

		rec = s.do(t, http.MethodPost, "/api/v1/reminders/"+itoa(reminder.ID)+"/complete?user_id=2", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("calendar export", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/v1/calendar.ics?user_id=1", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/calendar")
		assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
		assert.Contains(t, rec.Body.String(), alarm.UID+"@samay")
	})

	t.Run("cancel", func(t *testing.T) {
		rec := s.do(t, http.MethodDelete, "/api/v1/commitments/alarm/"+itoa(alarm.ID)+"?user_id=2", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = s.do(t, http.MethodDelete, "/api/v1/commitments/alarm/"+itoa(alarm.ID)+"?user_id=1", nil)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		assert.Empty(t, list("user_id=1&kind=alarm"))

		rec = s.do(t, http.MethodDelete, "/api/v1/commitments/reminder/"+itoa(reminder.ID)+"?user_id=1&hard=true", nil)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		_, err := s.store.GetReminder(context.Background(), reminder.ID, 1)
		assert.ErrorIs(t, err, store.ErrNotFound)

		rec = s.do(t, http.MethodDelete, "/api/v1/commitments/alarm/abc?user_id=1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListNotifications(t *testing.T) {
	s := newTestServer(t, generous)
	ctx := context.Background()
	for i, user := range []int32{1, 2, 1} {
		n := notify.NewNotification("timer", int32(i+1), "uid", user, "टाइमर पूरा हो गया", testRef, testRef)
		require.NoError(t, s.memory.Publish(ctx, n))
	}

	rec := s.do(t, http.MethodGet, "/api/v1/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[ListNotificationsResponse](t, rec).Notifications, 3)

	rec = s.do(t, http.MethodGet, "/api/v1/notifications?user_id=1&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[ListNotificationsResponse](t, rec).Notifications
	require.Len(t, got, 1)
	assert.Equal(t, int32(3), got[0].CommitmentID)

	rec = s.do(t, http.MethodGet, "/api/v1/notifications?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsAndHealth(t *testing.T) {
	s := newTestServer(t, generous)
	s.do(t, http.MethodPost, "/api/v1/utterances", utterance("10 मिनट का टाइमर", 1))
	s.do(t, http.MethodPost, "/api/v1/utterances", utterance("कुछ भी नहीं", 1))

	rec := s.do(t, http.MethodGet, "/api/v1/system/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		RequestTotal   int64   `json:"request_total"`
		ParseFailures  int64   `json:"parse_failures"`
		UnderstoodRate float64 `json:"understood_rate"`
		Version        string  `json:"version"`
		Health         struct {
			Running bool `json:"running"`
		} `json:"health"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body.RequestTotal)
	assert.Equal(t, int64(1), body.ParseFailures)
	assert.InDelta(t, 50.0, body.UnderstoodRate, 0.01)
	assert.Equal(t, "test", body.Version)
	assert.True(t, body.Health.Running)

	rec = s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	s.health.status = daemon.HealthStatus{Running: true, Degraded: true, ConsecutiveFailures: 6}
	rec = s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, decode[daemon.HealthStatus](t, rec).Degraded)
}
