package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/hrygo/samay/internal/profile"
	"github.com/hrygo/samay/server/internal/errors"
	"github.com/hrygo/samay/server/internal/observability"
	"github.com/hrygo/samay/server/service/commitment"
)

// RequestHandler answers one inbound utterance.
type RequestHandler interface {
	Handle(ctx context.Context, req *commitment.Request) (*commitment.Response, error)
}

// ResponseMessage is published on the response topic for the speech relay.
type ResponseMessage struct {
	UserID int32 `json:"user_id"`
	*commitment.Response
}

// Subscriber consumes text requests from the request topic and publishes
// each answer to the response topic.
type Subscriber struct {
	client        Client
	handler       RequestHandler
	requestTopic  string
	responseTopic string
	qos           byte
	timeout       time.Duration
	logger        *slog.Logger
}

func NewSubscriber(client Client, handler RequestHandler, cfg profile.MQTTConfig, logger *slog.Logger) (*Subscriber, error) {
	for _, topic := range []string{cfg.RequestTopic, cfg.ResponseTopic} {
		if topic == "" {
			return nil, errors.InvalidArgument("request and response topics are required")
		}
		if IsDeviceTopic(topic) {
			return nil, errors.InvalidArgument(fmt.Sprintf("topic %q is in the device namespace", topic))
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		client:        client,
		handler:       handler,
		requestTopic:  cfg.RequestTopic,
		responseTopic: cfg.ResponseTopic,
		qos:           cfg.QoS,
		timeout:       cfg.PublishTimeout,
		logger:        logger,
	}, nil
}

// Run subscribes and blocks until ctx is done.
func (s *Subscriber) Run(ctx context.Context) error {
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		s.Process(ctx, msg.Payload())
	}
	if err := waitToken(ctx, s.client.Subscribe(s.requestTopic, s.qos, handler), s.timeout); err != nil {
		return errors.PublishError(fmt.Sprintf("failed to subscribe to %s", s.requestTopic), err)
	}
	s.logger.Info("listening for requests", slog.String("topic", s.requestTopic))

	<-ctx.Done()

	// ctx is already done, so bound the unsubscribe by the timeout alone.
	if err := waitToken(context.Background(), s.client.Unsubscribe(s.requestTopic), s.timeout); err != nil {
		s.logger.Warn("failed to unsubscribe", slog.String("topic", s.requestTopic), slog.String("error", err.Error()))
	}
	return nil
}

// Process handles one request payload and publishes the answer. The answer
// is returned for callers that want it; nil means the payload was unusable.
func (s *Subscriber) Process(ctx context.Context, payload []byte) *ResponseMessage {
	var req commitment.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		s.logger.Warn("dropping malformed request", slog.String("error", err.Error()))
		return nil
	}

	reqCtx := observability.NewRequestContextWithID(s.logger, req.RequestID, observability.SourceMQTT, req.UserID)
	ctx = observability.WithRequestContext(ctx, reqCtx)

	resp, err := s.handler.Handle(ctx, &req)
	if err != nil {
		code := errors.GetCodeFromError(err, errors.ErrCodeInternal)
		reqCtx.Error(ctx, "request failed", err, slog.String(observability.LogFieldErrorCode, string(code)))
		resp = &commitment.Response{
			RequestID:      req.RequestID,
			UserFacingText: errors.UserMessage(code),
			Failure:        &commitment.Failure{Code: code, Reason: err.Error(), UserMessage: errors.UserMessage(code)},
		}
	}
	if resp.RequestID == "" {
		resp.RequestID = reqCtx.RequestID
	}
	msg := &ResponseMessage{UserID: req.UserID, Response: resp}

	data, err := json.Marshal(msg)
	if err != nil {
		reqCtx.Error(ctx, "failed to encode response", err)
		return msg
	}
	if err := waitToken(ctx, s.client.Publish(strings.TrimSuffix(s.responseTopic, "/"), s.qos, false, data), s.timeout); err != nil {
		reqCtx.Error(ctx, "failed to publish response", err, slog.String("topic", s.responseTopic))
		return msg
	}
	reqCtx.Info(ctx, "request answered",
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
		slog.Bool("understood", resp.Failure == nil),
	)
	return msg
}
