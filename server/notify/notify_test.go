package notify

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/samay/internal/profile"
	"github.com/hrygo/samay/server/internal/errors"
	"github.com/hrygo/samay/server/service/commitment"
	"github.com/hrygo/samay/server/timezone"
)

// fakeToken completes immediately with err, or never when hang is set.
type fakeToken struct {
	err  error
	done chan struct{}
}

func newToken(err error, hang bool) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	if !hang {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	mu           sync.Mutex
	published    []published
	subscribed   map[string]mqtt.MessageHandler
	unsubscribed []string
	publishErr   error
	hang         bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{subscribed: map[string]mqtt.MessageHandler{}}
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return newToken(c.publishErr, c.hang)
}

func (c *fakeClient) Subscribe(topic string, _ byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed[topic] = callback
	return newToken(nil, false)
}

func (c *fakeClient) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribed = append(c.unsubscribed, topics...)
	return newToken(nil, false)
}

func (c *fakeClient) Disconnect(uint) {}

func (c *fakeClient) topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.published))
	for i, p := range c.published {
		out[i] = p.topic
	}
	return out
}

func (c *fakeClient) handler(topic string) mqtt.MessageHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribed[topic]
}

type fakeMessage struct {
	mqtt.Message
	payload []byte
}

func (m fakeMessage) Payload() []byte { return m.payload }

func testConfig() profile.MQTTConfig {
	return profile.MQTTConfig{
		NotifyTopic:    "samay/notification",
		RequestTopic:   "samay/request",
		ResponseTopic:  "samay/response",
		QoS:            1,
		PublishTimeout: 50 * time.Millisecond,
	}
}

func testNotification() Notification {
	due := time.Date(2026, 2, 14, 7, 0, 0, 0, timezone.IST)
	return NewNotification("alarm", 7, "uid-7", 1, "अलार्म: जिम", due, due.Add(2*time.Second))
}

func TestNotificationJSON(t *testing.T) {
	data, err := testNotification().Marshal()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "alarm", got["commitment_kind"])
	assert.Equal(t, float64(7), got["commitment_id"])
	assert.Equal(t, "अलार्म: जिम", got["user_facing_text"])
	assert.Equal(t, "2026-02-14T07:00:02+05:30", got["fired_at"])
}

func TestMQTTPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes to the topic and the kind subtopic", func(t *testing.T) {
		client := newFakeClient()
		p, err := NewMQTTPublisher(client, testConfig(), nil)
		require.NoError(t, err)

		require.NoError(t, p.Publish(ctx, testNotification()))
		assert.Equal(t, []string{"samay/notification", "samay/notification/alarm"}, client.topics())
		assert.Equal(t, byte(1), client.published[0].qos)

		var n Notification
		require.NoError(t, json.Unmarshal(client.published[0].payload, &n))
		assert.Equal(t, int32(7), n.CommitmentID)
	})

	t.Run("broker error", func(t *testing.T) {
		client := newFakeClient()
		client.publishErr = stderrors.New("not connected")
		p, err := NewMQTTPublisher(client, testConfig(), nil)
		require.NoError(t, err)

		err = p.Publish(ctx, testNotification())
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodePublishError))
		assert.Len(t, client.topics(), 1)
	})

	t.Run("timeout", func(t *testing.T) {
		client := newFakeClient()
		client.hang = true
		p, err := NewMQTTPublisher(client, testConfig(), nil)
		require.NoError(t, err)

		start := time.Now()
		err = p.Publish(ctx, testNotification())
		assert.True(t, errors.IsCode(err, errors.ErrCodePublishError))
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("device namespace is refused", func(t *testing.T) {
		cfg := testConfig()
		cfg.NotifyTopic = "device/speaker"
		_, err := NewMQTTPublisher(newFakeClient(), cfg, nil)
		assert.Error(t, err)
	})
}

func TestMemoryPublisher(t *testing.T) {
	p := NewMemoryPublisher(2, nil)
	for i := int32(1); i <= 3; i++ {
		n := testNotification()
		n.CommitmentID = i
		n.UserID = i % 2
		require.NoError(t, p.Publish(context.Background(), n))
	}

	recent := p.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, int32(2), recent[0].CommitmentID)
	assert.Equal(t, int32(3), recent[1].CommitmentID)
	assert.Len(t, p.Recent(1), 1)
	assert.Len(t, p.ForUser(1), 1)
}

func TestDispatcher(t *testing.T) {
	mem := NewMemoryPublisher(0, nil)
	client := newFakeClient()
	client.publishErr = stderrors.New("offline")
	mq, err := NewMQTTPublisher(client, testConfig(), nil)
	require.NoError(t, err)

	d := NewDispatcher(mq, mem)
	err = d.Publish(context.Background(), testNotification())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePublishError))
	// A failing publisher does not starve the others.
	assert.Len(t, mem.Recent(0), 1)
	assert.NoError(t, d.Close())
}

type stubHandler struct {
	got  *commitment.Request
	resp *commitment.Response
	err  error
}

func (h *stubHandler) Handle(_ context.Context, req *commitment.Request) (*commitment.Response, error) {
	h.got = req
	return h.resp, h.err
}

func TestSubscriber(t *testing.T) {
	t.Run("answers on the response topic", func(t *testing.T) {
		client := newFakeClient()
		h := &stubHandler{resp: &commitment.Response{Kind: "timer", ID: 3, UserFacingText: "10 मिनट का टाइमर शुरू कर दिया"}}
		s, err := NewSubscriber(client, h, testConfig(), nil)
		require.NoError(t, err)

		msg := s.Process(context.Background(), []byte(`{"utterance_text":"10 मिनट का टाइमर","user_id":4,"reference_instant":"2026-02-13T10:00:00+05:30","request_id":"r-1"}`))
		require.NotNil(t, msg)
		assert.Equal(t, "10 मिनट का टाइमर", h.got.Text)
		assert.Equal(t, int32(4), h.got.UserID)
		assert.Equal(t, "2026-02-13T10:00:00+05:30", timezone.FormatInstant(h.got.ReferenceInstant))

		require.Equal(t, []string{"samay/response"}, client.topics())
		var out map[string]any
		require.NoError(t, json.Unmarshal(client.published[0].payload, &out))
		assert.Equal(t, float64(4), out["user_id"])
		assert.Equal(t, "r-1", out["request_id"])
		assert.Equal(t, "10 मिनट का टाइमर शुरू कर दिया", out["user_facing_text"])
	})

	t.Run("errors become spoken failures", func(t *testing.T) {
		client := newFakeClient()
		h := &stubHandler{err: errors.StoreError("failed to save timer", stderrors.New("disk full"))}
		s, err := NewSubscriber(client, h, testConfig(), nil)
		require.NoError(t, err)

		msg := s.Process(context.Background(), []byte(`{"utterance_text":"10 मिनट","user_id":4}`))
		require.NotNil(t, msg)
		require.NotNil(t, msg.Failure)
		assert.Equal(t, errors.ErrCodeStoreError, msg.Failure.Code)
		assert.Equal(t, errors.UserMessage(errors.ErrCodeStoreError), msg.UserFacingText)
		assert.NotEmpty(t, msg.RequestID)
	})

	t.Run("malformed payload is dropped", func(t *testing.T) {
		client := newFakeClient()
		s, err := NewSubscriber(client, &stubHandler{}, testConfig(), nil)
		require.NoError(t, err)
		assert.Nil(t, s.Process(context.Background(), []byte("not json")))
		assert.Empty(t, client.topics())
	})

	t.Run("run subscribes until cancelled", func(t *testing.T) {
		client := newFakeClient()
		h := &stubHandler{resp: &commitment.Response{UserFacingText: "ok"}}
		s, err := NewSubscriber(client, h, testConfig(), nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		require.Eventually(t, func() bool { return client.handler("samay/request") != nil }, time.Second, 5*time.Millisecond)
		client.handler("samay/request")(nil, fakeMessage{payload: []byte(`{"utterance_text":"7 बजे","user_id":1}`)})
		assert.Equal(t, "7 बजे", h.got.Text)

		cancel()
		require.NoError(t, <-done)
		assert.Equal(t, []string{"samay/request"}, client.unsubscribed)
	})

	t.Run("device topics are refused", func(t *testing.T) {
		cfg := testConfig()
		cfg.RequestTopic = "device/+/command"
		_, err := NewSubscriber(newFakeClient(), &stubHandler{}, cfg, nil)
		assert.Error(t, err)
	})
}
