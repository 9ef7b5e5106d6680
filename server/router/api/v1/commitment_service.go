package v1

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/samay/server/export/ics"
	"github.com/hrygo/samay/server/internal/errors"
	"github.com/hrygo/samay/server/internal/observability"
	"github.com/hrygo/samay/server/notify"
	"github.com/hrygo/samay/server/service/commitment"
	"github.com/hrygo/samay/server/timezone"
	"github.com/hrygo/samay/store"
)

// CreateUtterance stores the commitment an utterance describes.
// POST /api/v1/utterances
func (s *APIV1Service) CreateUtterance(c echo.Context) error {
	var req commitment.Request
	if err := c.Bind(&req); err != nil {
		return s.writeError(c, errors.InvalidArgument("malformed request body"))
	}
	if req.UserID <= 0 {
		return s.writeError(c, errors.InvalidArgument("user_id must be a positive integer"))
	}
	if !s.limiter.Allow("user:" + strconv.Itoa(int(req.UserID))) {
		return s.writeError(c, errors.RateLimited("rate limit exceeded"))
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = c.Response().Header().Get(echo.HeaderXRequestID)
	}
	reqCtx := observability.NewRequestContextWithID(s.logger, requestID, observability.SourceHTTP, req.UserID)
	ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)

	resp, err := s.Handler.Handle(ctx, &req)
	if err != nil {
		return s.writeError(c, err)
	}
	if resp.RequestID == "" {
		resp.RequestID = reqCtx.RequestID
	}
	reqCtx.Info(ctx, "utterance handled",
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
		slog.Bool("understood", resp.Failure == nil),
	)
	if resp.Failure != nil {
		return c.JSON(errors.HTTPStatus(resp.Failure.Code), resp)
	}
	return c.JSON(http.StatusCreated, resp)
}

// ParseRequest is the body of a dry-run parse.
type ParseRequest struct {
	Text             string    `json:"utterance_text"`
	ReferenceInstant time.Time `json:"reference_instant,omitzero"`
	Upcoming         int       `json:"upcoming,omitempty"`
}

// ParseUtterance parses and resolves without storing anything.
// POST /api/v1/parse
func (s *APIV1Service) ParseUtterance(c echo.Context) error {
	var req ParseRequest
	if err := c.Bind(&req); err != nil {
		return s.writeError(c, errors.InvalidArgument("malformed request body"))
	}
	if req.Text == "" {
		return s.writeError(c, errors.InvalidArgument("utterance_text is required"))
	}
	if req.Upcoming < 0 || req.Upcoming > 20 {
		return s.writeError(c, errors.InvalidArgument("upcoming must be between 0 and 20"))
	}
	return c.JSON(http.StatusOK, s.Service.Preview(c.Request().Context(), req.Text, req.ReferenceInstant, req.Upcoming))
}

// ListCommitmentsResponse wraps the flat listing.
type ListCommitmentsResponse struct {
	Commitments []*commitment.Item `json:"commitments"`
}

// ListCommitments lists the live commitments of a user.
// GET /api/v1/commitments?user_id=&kind=
func (s *APIV1Service) ListCommitments(c echo.Context) error {
	userID, err := queryUserID(c)
	if err != nil {
		return s.writeError(c, err)
	}
	var kind store.Kind
	if raw := c.QueryParam("kind"); raw != "" {
		if kind, err = store.ParseKind(raw); err != nil {
			return s.writeError(c, errors.InvalidArgument(err.Error()))
		}
	}
	items, err := s.Service.List(c.Request().Context(), userID, kind)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, ListCommitmentsResponse{Commitments: items})
}

// commitmentTarget resolves the user, kind and id of a per-commitment route.
func commitmentTarget(c echo.Context) (int32, store.Kind, int32, error) {
	userID, err := queryUserID(c)
	if err != nil {
		return 0, "", 0, err
	}
	kind, err := store.ParseKind(c.Param("kind"))
	if err != nil {
		return 0, "", 0, errors.InvalidArgument(err.Error())
	}
	id, err := pathID(c)
	if err != nil {
		return 0, "", 0, err
	}
	return userID, kind, id, nil
}

// CancelCommitment archives a commitment, or deletes it with hard=true.
// DELETE /api/v1/commitments/:kind/:id?user_id=&hard=
func (s *APIV1Service) CancelCommitment(c echo.Context) error {
	userID, kind, id, err := commitmentTarget(c)
	if err != nil {
		return s.writeError(c, err)
	}
	hard := false
	if raw := c.QueryParam("hard"); raw != "" {
		if hard, err = strconv.ParseBool(raw); err != nil {
			return s.writeError(c, errors.InvalidArgument("hard must be a boolean"))
		}
	}
	if err := s.Service.Cancel(c.Request().Context(), userID, kind, id, hard); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SnoozeRequest is the body of a snooze.
type SnoozeRequest struct {
	Minutes int `json:"minutes"`
}

// SnoozeResponse carries the new due instant.
type SnoozeResponse struct {
	DueAt string `json:"due_at"`
}

// SnoozeCommitment pushes an alarm or reminder out by some minutes.
// POST /api/v1/commitments/:kind/:id/snooze?user_id=
func (s *APIV1Service) SnoozeCommitment(c echo.Context) error {
	userID, kind, id, err := commitmentTarget(c)
	if err != nil {
		return s.writeError(c, err)
	}
	var req SnoozeRequest
	if err := c.Bind(&req); err != nil {
		return s.writeError(c, errors.InvalidArgument("malformed request body"))
	}
	due, err := s.Service.Snooze(c.Request().Context(), userID, kind, id, req.Minutes)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, SnoozeResponse{DueAt: timezone.FormatInstant(due)})
}

// EnableCommitment re-enables a commitment.
// POST /api/v1/commitments/:kind/:id/enable?user_id=
func (s *APIV1Service) EnableCommitment(c echo.Context) error {
	return s.setEnabled(c, true)
}

// DisableCommitment pauses a commitment without archiving it.
// POST /api/v1/commitments/:kind/:id/disable?user_id=
func (s *APIV1Service) DisableCommitment(c echo.Context) error {
	return s.setEnabled(c, false)
}

func (s *APIV1Service) setEnabled(c echo.Context, enabled bool) error {
	userID, kind, id, err := commitmentTarget(c)
	if err != nil {
		return s.writeError(c, err)
	}
	if err := s.Service.SetEnabled(c.Request().Context(), userID, kind, id, enabled); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CompleteReminder marks a reminder done.
// POST /api/v1/reminders/:id/complete?user_id=
func (s *APIV1Service) CompleteReminder(c echo.Context) error {
	userID, err := queryUserID(c)
	if err != nil {
		return s.writeError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return s.writeError(c, err)
	}
	if _, err := s.Service.CompleteReminder(c.Request().Context(), userID, id); err != nil {
		return s.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetTimerStatus reports the time left on the user's running timers.
// GET /api/v1/timers/status?user_id=
func (s *APIV1Service) GetTimerStatus(c echo.Context) error {
	userID, err := queryUserID(c)
	if err != nil {
		return s.writeError(c, err)
	}
	status, err := s.Service.TimerStatus(c.Request().Context(), userID)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

// ExportCalendar renders the user's commitments as an iCalendar feed.
// GET /api/v1/calendar.ics?user_id=
func (s *APIV1Service) ExportCalendar(c echo.Context) error {
	userID, err := queryUserID(c)
	if err != nil {
		return s.writeError(c, err)
	}
	all, err := s.Service.Commitments(c.Request().Context(), userID, "")
	if err != nil {
		return s.writeError(c, err)
	}
	body, err := ics.Export(all.Events, all.Alarms, all.Reminders, ics.Options{Name: fmt.Sprintf("samay %d", userID)})
	if err != nil {
		return s.writeError(c, errors.Wrap(err, errors.ErrCodeInternal, "failed to render calendar"))
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="samay.ics"`)
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

// ListNotificationsResponse wraps recently published notifications.
type ListNotificationsResponse struct {
	Notifications []notify.Notification `json:"notifications"`
}

// ListNotifications returns the notifications kept in memory, newest last.
// GET /api/v1/notifications?user_id=&limit=
func (s *APIV1Service) ListNotifications(c echo.Context) error {
	out := ListNotificationsResponse{Notifications: []notify.Notification{}}
	if s.Notifications == nil {
		return c.JSON(http.StatusOK, out)
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return s.writeError(c, errors.InvalidArgument("limit must be a non-negative integer"))
		}
		limit = n
	}

	var list []notify.Notification
	if c.QueryParam("user_id") != "" {
		userID, err := queryUserID(c)
		if err != nil {
			return s.writeError(c, err)
		}
		list = s.Notifications.ForUser(userID)
		if limit > 0 && len(list) > limit {
			list = list[len(list)-limit:]
		}
	} else {
		list = s.Notifications.Recent(limit)
	}
	if list != nil {
		out.Notifications = list
	}
	return c.JSON(http.StatusOK, out)
}
