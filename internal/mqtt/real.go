package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/sweeney/smartchime/internal/metrics"
)

// Options configures a RealClient.
type Options struct {
	Broker      string
	Username    string
	Password    string
	ClientID    string // empty = "smartchime-<random>"
	SystemTopic string // empty disables lifecycle publishing and the will
	BufferSize  int    // system events held while disconnected
}

// conn is the subset of paho.Client used here.
type conn interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	Disconnect(quiesce uint)
}

// RealClient talks to an actual MQTT broker.
type RealClient struct {
	client      conn
	systemTopic string
	now         func() time.Time

	mu       sync.Mutex
	subs     map[string]func(topic string, payload []byte)
	order    []string
	buffer   *ringBuffer
	connects int
}

func newClient(opts Options) *RealClient {
	size := opts.BufferSize
	if size <= 0 {
		size = 16
	}
	return &RealClient{
		systemTopic: opts.SystemTopic,
		now:         time.Now,
		subs:        make(map[string]func(string, []byte)),
		buffer:      newRingBuffer(size),
	}
}

// NewRealClient connects to the broker. The first connection must succeed
// within ten seconds. After that paho reconnects on its own; subscriptions
// are restored and buffered system events replayed each time.
func NewRealClient(opts Options) (*RealClient, error) {
	c := newClient(opts)

	clientID := opts.ClientID
	if clientID == "" {
		clientID = "smartchime-" + uuid.NewString()[:8]
	}

	popts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) { c.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			metrics.SetBrokerConnected(false)
			slog.Warn("mqtt connection lost", "error", err)
		})
	if opts.Username != "" {
		popts.SetUsername(opts.Username).SetPassword(opts.Password)
	}
	if c.systemTopic != "" {
		will, err := FormatSystemPayload(SystemEvent{
			Timestamp: c.now(),
			Event:     EventShutdown,
			Reason:    ReasonDisconnect,
		})
		if err != nil {
			return nil, fmt.Errorf("format will: %w", err)
		}
		popts.SetBinaryWill(c.systemTopic, will, 1, true)
	}

	client := paho.NewClient(popts)
	c.client = client

	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		client.Disconnect(0)
		return nil, fmt.Errorf("connect to %s: timeout", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	slog.Info("mqtt connected", "broker", opts.Broker, "client_id", clientID)
	return c, nil
}

// IsConnected reports whether the broker connection is currently up.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Subscribe registers h for topic at QoS 1. While disconnected the
// subscription is only recorded; onConnect makes it.
func (c *RealClient) Subscribe(topic string, h func(topic string, payload []byte)) error {
	c.mu.Lock()
	if _, ok := c.subs[topic]; !ok {
		c.order = append(c.order, topic)
	}
	c.subs[topic] = h
	c.mu.Unlock()

	if !c.client.IsConnectionOpen() {
		return nil
	}
	return c.subscribe(topic, h)
}

func (c *RealClient) subscribe(topic string, h func(topic string, payload []byte)) error {
	token := c.client.Subscribe(topic, 1, func(_ paho.Client, msg paho.Message) {
		h(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

// onConnect runs on every connect. It restores subscriptions and replays
// buffered system events; reconnects are also announced.
func (c *RealClient) onConnect() {
	metrics.SetBrokerConnected(true)

	c.mu.Lock()
	c.connects++
	reconnect := c.connects > 1
	topics := append([]string(nil), c.order...)
	handlers := make([]func(string, []byte), len(topics))
	for i, t := range topics {
		handlers[i] = c.subs[t]
	}
	pending, dropped := c.buffer.drainAll()
	c.mu.Unlock()

	for i, t := range topics {
		if err := c.subscribe(t, handlers[i]); err != nil {
			slog.Error("mqtt resubscribe failed", "topic", t, "error", err)
		}
	}

	if c.systemTopic == "" {
		return
	}
	if len(pending) > 0 || dropped > 0 {
		slog.Info("mqtt replaying buffered events", "count", len(pending), "dropped", dropped)
	}
	for _, m := range pending {
		if err := c.publish(m); err != nil {
			slog.Warn("mqtt replay failed", "error", err)
		}
	}
	if !reconnect {
		return
	}
	slog.Info("mqtt reconnected")
	payload, err := FormatSystemPayload(SystemEvent{Timestamp: c.now(), Event: EventReconnected})
	if err != nil {
		return
	}
	if err := c.publish(bufferedMsg{topic: c.systemTopic, payload: payload}); err != nil {
		slog.Warn("mqtt publish reconnected failed", "error", err)
	}
}

// PublishSystem sends a system lifecycle event at QoS 1. While the broker
// is unreachable the event is buffered and replayed on reconnect.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	if c.systemTopic == "" {
		return nil
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	msg := bufferedMsg{topic: c.systemTopic, payload: payload, retained: event.Retained}

	if !c.client.IsConnectionOpen() {
		c.mu.Lock()
		c.buffer.push(msg)
		c.mu.Unlock()
		slog.Debug("mqtt offline, buffered system event", "event", event.Event)
		return nil
	}
	return c.publish(msg)
}

func (c *RealClient) publish(m bufferedMsg) error {
	token := c.client.Publish(m.topic, 1, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	metrics.SetBrokerConnected(false)
	return nil
}
