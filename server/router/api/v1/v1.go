package v1

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/samay/internal/profile"
	"github.com/hrygo/samay/server/internal/errors"
	"github.com/hrygo/samay/server/internal/observability"
	ratelimit "github.com/hrygo/samay/server/middleware"
	"github.com/hrygo/samay/server/notify"
	"github.com/hrygo/samay/server/scheduler/daemon"
	"github.com/hrygo/samay/server/service/commitment"
)

// HealthChecker reports the scheduling daemon's health.
type HealthChecker interface {
	HealthCheck() daemon.HealthStatus
}

// RequestHandler answers one inbound utterance.
type RequestHandler interface {
	Handle(ctx context.Context, req *commitment.Request) (*commitment.Response, error)
}

type APIV1Service struct {
	Profile *profile.Profile
	Service *commitment.Service
	// Handler defaults to Service. Tests swap it to exercise failure paths.
	Handler RequestHandler
	// Notifications is optional; without it the notifications endpoint is empty.
	Notifications *notify.MemoryPublisher
	Health        HealthChecker
	Metrics       *observability.Metrics

	limiter *ratelimit.RateLimiter
	logger  *slog.Logger
}

func NewAPIV1Service(profile *profile.Profile, service *commitment.Service, health HealthChecker) *APIV1Service {
	return &APIV1Service{
		Profile: profile,
		Service: service,
		Handler: service,
		Health:  health,
		Metrics: observability.GlobalMetrics(),
		limiter: ratelimit.NewRateLimiter(profile.RateLimit),
		logger:  slog.Default(),
	}
}

// SetLogger sets the request logger.
func (s *APIV1Service) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// RegisterRoutes registers the JSON API and the health probe on echoServer.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	echoServer.GET("/healthz", s.GetHealth)

	api := echoServer.Group("/api/v1")
	api.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(_ string) (bool, error) {
			return true, nil
		},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"*"},
	}))

	// Utterances carry user_id in the body, so they are limited in the handler.
	api.POST("/utterances", s.CreateUtterance)

	limited := api.Group("", s.limiter.Middleware())
	limited.POST("/parse", s.ParseUtterance)
	limited.GET("/commitments", s.ListCommitments)
	limited.DELETE("/commitments/:kind/:id", s.CancelCommitment)
	limited.POST("/commitments/:kind/:id/snooze", s.SnoozeCommitment)
	limited.POST("/commitments/:kind/:id/enable", s.EnableCommitment)
	limited.POST("/commitments/:kind/:id/disable", s.DisableCommitment)
	limited.POST("/reminders/:id/complete", s.CompleteReminder)
	limited.GET("/timers/status", s.GetTimerStatus)
	limited.GET("/calendar.ics", s.ExportCalendar)
	limited.GET("/notifications", s.ListNotifications)
	limited.GET("/system/metrics", s.GetMetrics)
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code        errors.ErrorCode `json:"code"`
	Error       string           `json:"error"`
	UserMessage string           `json:"user_message"`
}

// writeError maps err onto its HTTP status.
func (s *APIV1Service) writeError(c echo.Context, err error) error {
	code := errors.GetCodeFromError(err, errors.ErrCodeInternal)
	status := errors.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		observability.LoggerFromContext(c.Request().Context(), s.logger).ErrorContext(c.Request().Context(), "request failed",
			slog.String("path", c.Path()),
			slog.String(observability.LogFieldErrorCode, string(code)),
			slog.String("error", err.Error()),
		)
	}
	return c.JSON(status, ErrorResponse{Code: code, Error: err.Error(), UserMessage: errors.UserMessage(code)})
}

func queryUserID(c echo.Context) (int32, error) {
	return parseUserID(c.QueryParam("user_id"))
}

func parseUserID(raw string) (int32, error) {
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, errors.InvalidArgument("user_id must be a positive integer")
	}
	return int32(id), nil
}

func pathID(c echo.Context) (int32, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil || id <= 0 {
		return 0, errors.InvalidArgument("id must be a positive integer")
	}
	return int32(id), nil
}
