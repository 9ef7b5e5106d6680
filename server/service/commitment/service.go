package commitment

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/samay/plugin/temporal"
	"github.com/hrygo/samay/server/internal/errors"
	"github.com/hrygo/samay/server/internal/observability"
	"github.com/hrygo/samay/server/timezone"
	"github.com/hrygo/samay/store"
)

// Request is one inbound utterance.
type Request struct {
	Text   string `json:"utterance_text"`
	UserID int32  `json:"user_id"`
	// ReferenceInstant anchors relative phrases. Zero means now.
	ReferenceInstant time.Time `json:"reference_instant,omitzero"`
	// Intent forces the commitment kind; empty means detect it from the text.
	Intent string `json:"intent,omitempty"`
	// PayloadText is the reminder text, alarm or timer label, or event title.
	PayloadText string `json:"payload_text,omitempty"`
	LeadMinutes *int32 `json:"lead_minutes,omitempty"`
	// RequestID doubles as the dedupe key, so a redelivered request stores
	// one row.
	RequestID string `json:"request_id,omitempty"`
}

// Failure is a parse or resolution failure answered to the user.
type Failure struct {
	Code        errors.ErrorCode `json:"code" yaml:"code"`
	Reason      string           `json:"reason" yaml:"reason"`
	UserMessage string           `json:"user_message" yaml:"user_message"`
}

// Response summarizes the stored commitment, or carries a Failure.
type Response struct {
	RequestID      string     `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Kind           store.Kind `json:"commitment_kind,omitempty" yaml:"commitment_kind,omitempty"`
	ID             int32      `json:"commitment_id,omitempty" yaml:"commitment_id,omitempty"`
	UID            string     `json:"commitment_uid,omitempty" yaml:"commitment_uid,omitempty"`
	DueAt          string     `json:"due_at,omitempty" yaml:"due_at,omitempty"`
	RepeatDays     string     `json:"repeat_days,omitempty" yaml:"repeat_days,omitempty"`
	UserFacingText string     `json:"user_facing_text" yaml:"user_facing_text"`
	Failure        *Failure   `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// Service handles utterances and commitment management.
type Service struct {
	store   Store
	time    temporal.TimeService
	waker   Waker
	metrics *observability.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a commitment service. A nil time service resolves in IST.
func NewService(s Store, ts temporal.TimeService) *Service {
	if ts == nil {
		ts = temporal.NewService(timezone.IST)
	}
	return &Service{
		store:   s,
		time:    ts,
		metrics: observability.GlobalMetrics(),
		logger:  slog.Default(),
		now:     time.Now,
	}
}

// SetWaker registers the daemon to poke after every schedule change.
func (s *Service) SetWaker(w Waker) {
	s.waker = w
}

func (s *Service) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

func (s *Service) SetMetrics(m *observability.Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// SetClock overrides the clock used for a missing reference instant.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) wake() {
	if s.waker != nil {
		s.waker.Wake()
	}
}

func (s *Service) loggerFor(ctx context.Context) *slog.Logger {
	return observability.LoggerFromContext(ctx, s.logger)
}

// Handle parses the utterance, stores the commitment and wakes the daemon.
// Parse and resolution failures come back as a Response with Failure set and
// a nil error. Invalid input and store failures are returned as errors.
func (s *Service) Handle(ctx context.Context, req *Request) (*Response, error) {
	started := time.Now()
	defer func() { s.metrics.RecordRequest(time.Since(started)) }()

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	ref := req.ReferenceInstant
	if ref.IsZero() {
		ref = s.now()
	}
	ref = ref.In(timezone.IST)

	kind, err := parseIntent(req)
	if err != nil {
		return nil, err
	}
	spec, resolved, fail := s.understand(ctx, req.Text, ref)
	if fail != nil {
		return &Response{RequestID: req.RequestID, UserFacingText: fail.UserMessage, Failure: fail}, nil
	}
	if kind == "" {
		kind = detectIntent(req.Text, spec)
	}

	var resp *Response
	switch kind {
	case store.KindAlarm:
		resp, err = s.createAlarm(ctx, req, resolved, ref)
	case store.KindReminder:
		resp, err = s.createReminder(ctx, req, resolved, ref)
	case store.KindTimer:
		resp, err = s.createTimer(ctx, req, resolved, ref)
	case store.KindCalendarEvent:
		resp, err = s.createCalendarEvent(ctx, req, resolved)
	}
	if err != nil {
		var se *errors.SamayError
		if stderrors.As(err, &se) && se.Code == errors.ErrCodeResolutionError {
			s.metrics.RecordResolutionFailure()
			fail := failureOf(errors.ErrCodeResolutionError, se)
			return &Response{RequestID: req.RequestID, UserFacingText: fail.UserMessage, Failure: fail}, nil
		}
		return nil, err
	}
	resp.RequestID = req.RequestID

	s.loggerFor(ctx).InfoContext(ctx, "commitment created",
		slog.String(observability.LogFieldKind, string(resp.Kind)),
		slog.Int(observability.LogFieldCommitmentID, int(resp.ID)),
		slog.String(observability.LogFieldDueAt, resp.DueAt),
	)
	s.wake()
	return resp, nil
}

func validateRequest(req *Request) error {
	if req == nil || strings.TrimSpace(req.Text) == "" {
		return errors.InvalidArgument("utterance_text is required")
	}
	if req.UserID <= 0 {
		return errors.InvalidArgument("user_id must be positive")
	}
	if req.LeadMinutes != nil && *req.LeadMinutes < 0 {
		return errors.InvalidArgument("lead_minutes must not be negative")
	}
	return nil
}

func parseIntent(req *Request) (store.Kind, error) {
	if req.Intent == "" {
		return "", nil
	}
	kind, err := store.ParseKind(strings.ToLower(strings.TrimSpace(req.Intent)))
	if err != nil {
		return "", errors.InvalidArgument(err.Error())
	}
	return kind, nil
}

// understand parses and resolves text, recording failures in metrics.
func (s *Service) understand(ctx context.Context, text string, ref time.Time) (temporal.Spec, temporal.ResolvedSchedule, *Failure) {
	spec, err := s.time.Parse(ctx, text)
	if err != nil {
		s.metrics.RecordParseFailure()
		s.loggerFor(ctx).DebugContext(ctx, "parse failure", slog.String("text", text), slog.String("error", err.Error()))
		return nil, temporal.ResolvedSchedule{}, failureOf(errors.ErrCodeParseFailure, err)
	}
	resolved, err := s.time.Resolve(ctx, spec, ref)
	if err != nil {
		s.metrics.RecordResolutionFailure()
		s.loggerFor(ctx).DebugContext(ctx, "resolution failure", slog.String("spec", spec.String()), slog.String("error", err.Error()))
		return spec, temporal.ResolvedSchedule{}, failureOf(errors.ErrCodeResolutionError, err)
	}
	return spec, resolved, nil
}

func failureOf(code errors.ErrorCode, err error) *Failure {
	reason := err.Error()
	var pf *temporal.ParseFailure
	var re *temporal.ResolutionError
	var se *errors.SamayError
	switch {
	case stderrors.As(err, &pf):
		reason = pf.Reason
	case stderrors.As(err, &re):
		reason = re.Reason
	case stderrors.As(err, &se):
		reason = se.Message
	}
	return &Failure{Code: code, Reason: reason, UserMessage: errors.UserMessage(code)}
}

// oneShotOrRepeat converts a resolved schedule into a first due instant and
// repeat days. A daily recurrence repeats on every day.
func oneShotOrRepeat(resolved temporal.ResolvedSchedule) (time.Time, temporal.WeekdaySet) {
	if resolved.Recurrence == nil {
		return resolved.Instant, 0
	}
	days := resolved.Recurrence.Days
	if days.IsEmpty() {
		days = temporal.EveryDay
	}
	return resolved.Instant, days
}

func (s *Service) createAlarm(ctx context.Context, req *Request, resolved temporal.ResolvedSchedule, ref time.Time) (*Response, error) {
	due, days := oneShotOrRepeat(resolved)
	alarm, err := s.store.CreateAlarm(ctx, &store.Alarm{
		CommitmentBase: store.CommitmentBase{UserID: req.UserID, DedupeKey: req.RequestID, DueAt: &due},
		Label:          strings.TrimSpace(req.PayloadText),
		RepeatDays:     days,
	})
	if err != nil {
		return nil, errors.StoreError("failed to save alarm", err)
	}

	when := FormatTimeHindi(due, ref)
	if alarm.Recurring() {
		when = FormatRecurrenceHindi(alarm.RepeatDays, temporal.ClockOf(due.In(timezone.IST)))
	}
	return &Response{
		Kind:           store.KindAlarm,
		ID:             alarm.ID,
		UID:            alarm.UID,
		DueAt:          formatDue(alarm.DueAt),
		RepeatDays:     repeatString(alarm.RepeatDays),
		UserFacingText: fmt.Sprintf("%s का अलार्म सेट कर दिया", when),
	}, nil
}

func (s *Service) createReminder(ctx context.Context, req *Request, resolved temporal.ResolvedSchedule, ref time.Time) (*Response, error) {
	text := strings.TrimSpace(req.PayloadText)
	if text == "" {
		text = strings.TrimSpace(req.Text)
	}
	due, days := oneShotOrRepeat(resolved)
	reminder, err := s.store.CreateReminder(ctx, &store.Reminder{
		CommitmentBase: store.CommitmentBase{UserID: req.UserID, DedupeKey: req.RequestID, DueAt: &due},
		Text:           text,
		RepeatDays:     days,
	})
	if err != nil {
		return nil, errors.StoreError("failed to save reminder", err)
	}

	when := FormatTimeHindi(due, ref)
	if reminder.Recurring() {
		when = FormatRecurrenceHindi(reminder.RepeatDays, temporal.ClockOf(due.In(timezone.IST)))
	}
	return &Response{
		Kind:           store.KindReminder,
		ID:             reminder.ID,
		UID:            reminder.UID,
		DueAt:          formatDue(reminder.DueAt),
		RepeatDays:     repeatString(reminder.RepeatDays),
		UserFacingText: fmt.Sprintf("ठीक है, %s को '%s' याद दिला दूंगा", when, reminder.Text),
	}, nil
}

func (s *Service) createTimer(ctx context.Context, req *Request, resolved temporal.ResolvedSchedule, ref time.Time) (*Response, error) {
	var seconds int64
	switch resolved.Kind {
	case temporal.KindDuration:
		seconds = int64(resolved.Duration() / time.Second)
	case temporal.KindAbsolute:
		seconds = int64(resolved.Instant.Sub(ref) / time.Second)
	default:
		return nil, errors.ResolutionError("a timer cannot repeat", nil)
	}
	if seconds <= 0 {
		return nil, errors.ResolutionError("timer duration must be positive", nil)
	}

	timer, err := s.store.CreateTimer(ctx, &store.Timer{
		CommitmentBase:  store.CommitmentBase{UserID: req.UserID, DedupeKey: req.RequestID},
		Label:           strings.TrimSpace(req.PayloadText),
		StartAt:         ref,
		DurationSeconds: seconds,
	})
	if err != nil {
		return nil, errors.StoreError("failed to save timer", err)
	}
	return &Response{
		Kind:           store.KindTimer,
		ID:             timer.ID,
		UID:            timer.UID,
		DueAt:          formatDue(timer.DueAt),
		UserFacingText: fmt.Sprintf("%s का टाइमर शुरू कर दिया", FormatDurationHindi(timer.DurationSeconds)),
	}, nil
}

func (s *Service) createCalendarEvent(ctx context.Context, req *Request, resolved temporal.ResolvedSchedule) (*Response, error) {
	if resolved.Recurrence != nil {
		return nil, errors.ResolutionError("a calendar event cannot repeat", nil)
	}
	title := strings.TrimSpace(req.PayloadText)
	if title == "" {
		title = strings.TrimSpace(req.Text)
	}
	event, err := s.store.CreateCalendarEvent(ctx, &store.CalendarEvent{
		CommitmentBase:      store.CommitmentBase{UserID: req.UserID, DedupeKey: req.RequestID},
		Title:               title,
		EventAt:             resolved.Instant,
		ReminderLeadMinutes: eventLead(req),
	})
	if err != nil {
		return nil, errors.StoreError("failed to save calendar event", err)
	}
	return &Response{
		Kind:           store.KindCalendarEvent,
		ID:             event.ID,
		UID:            event.UID,
		DueAt:          formatDue(event.DueAt),
		UserFacingText: fmt.Sprintf("'%s' कैलेंडर में जोड़ दिया", event.Title),
	}, nil
}

func formatDue(t *time.Time) string {
	if t == nil {
		return ""
	}
	return timezone.FormatInstant(*t)
}

func repeatString(days temporal.WeekdaySet) string {
	if days.IsEmpty() {
		return ""
	}
	return days.String()
}
