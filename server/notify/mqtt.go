package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/hrygo/samay/internal/profile"
	"github.com/hrygo/samay/server/internal/errors"
)

const disconnectQuiesceMs = 250

// Client is the slice of the paho client samay relies on.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
	Disconnect(quiesce uint)
}

var _ Client = (mqtt.Client)(nil)

// NewMQTTClient connects to the configured broker with auto-reconnect.
func NewMQTTClient(ctx context.Context, cfg profile.MQTTConfig, logger *slog.Logger) (mqtt.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "samay-" + uuid.NewString()[:8]
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second).
		SetMaxReconnectInterval(30 * time.Second).
		SetCleanSession(false).
		SetOrderMatters(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", slog.String("broker", cfg.Broker), slog.String("error", err.Error()))
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			logger.Info("mqtt connected", slog.String("broker", cfg.Broker), slog.String("client_id", clientID))
		})

	client := mqtt.NewClient(opts)
	if err := waitToken(ctx, client.Connect(), cfg.PublishTimeout); err != nil {
		client.Disconnect(0)
		return nil, errors.PublishError(fmt.Sprintf("failed to connect to %s", cfg.Broker), err)
	}
	return client, nil
}

// MQTTPublisher publishes notifications as JSON to the notification topic
// and mirrors each one to a per-kind subtopic.
type MQTTPublisher struct {
	client  Client
	topic   string
	qos     byte
	timeout time.Duration
	logger  *slog.Logger
}

var _ Publisher = (*MQTTPublisher)(nil)

func NewMQTTPublisher(client Client, cfg profile.MQTTConfig, logger *slog.Logger) (*MQTTPublisher, error) {
	if IsDeviceTopic(cfg.NotifyTopic) {
		return nil, errors.InvalidArgument(fmt.Sprintf("notification topic %q is in the device namespace", cfg.NotifyTopic))
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MQTTPublisher{
		client:  client,
		topic:   strings.TrimSuffix(cfg.NotifyTopic, "/"),
		qos:     cfg.QoS,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Topics returns the topics a notification of kind is published to.
func (p *MQTTPublisher) Topics(kind string) []string {
	return []string{p.topic, p.topic + "/" + kind}
}

func (p *MQTTPublisher) Publish(ctx context.Context, n Notification) error {
	payload, err := n.Marshal()
	if err != nil {
		return errors.PublishError("failed to encode notification", err)
	}

	for _, topic := range p.Topics(n.Kind) {
		if err := waitToken(ctx, p.client.Publish(topic, p.qos, false, payload), p.timeout); err != nil {
			p.logger.Warn("failed to publish notification",
				slog.String("topic", topic),
				slog.Int("commitment_id", int(n.CommitmentID)),
				slog.String("error", err.Error()),
			)
			return errors.PublishError(fmt.Sprintf("failed to publish to %s", topic), err)
		}
	}
	p.logger.Debug("published notification", slog.String("topic", p.topic), slog.String("kind", n.Kind))
	return nil
}

// Close leaves the connection to its owner.
func (p *MQTTPublisher) Close() error {
	return nil
}

// waitToken waits for a paho token, bounded by timeout and ctx.
func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsDeviceTopic reports whether topic falls in the device-control namespace.
func IsDeviceTopic(topic string) bool {
	return strings.HasPrefix(strings.TrimPrefix(topic, "/"), profile.DeviceNamespace)
}

// Disconnect closes client after letting in-flight work drain.
func Disconnect(client Client) {
	if client != nil {
		client.Disconnect(disconnectQuiesceMs)
	}
}
