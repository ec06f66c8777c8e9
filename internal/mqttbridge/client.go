package mqttbridge

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
)

// Config configures Client's connection to the broker. TLS fields mirror
// internal/config.RuntimeConfig's mqtt_* settings one-to-one.
type Config struct {
	Host        string
	Port        string
	ClientID    string
	User        string
	Pass        string
	TLS         bool
	TLSInsecure bool
	CAFile      string
	CertFile    string
	KeyFile     string
	QueueLimit  int
	KeepAlive   uint16
}

// InboundHandler processes one inbound publish; dispatch, authorisation,
// and serial TX all happen inside it. It is supplied by the daemon, not
// by this package, so mqttbridge stays ignorant of command semantics.
type InboundHandler func(ctx context.Context, topic string, payload []byte, props *paho.PublishProperties)

// Client wraps autopaho's auto-reconnecting connection manager with the
// bridge's own bounded, oldest-drop publish queue (spec.md §4.5's
// "mqtt outbound publisher with a bounded publish queue") and exposes a
// plain Message type so the rest of the daemon never imports paho
// directly.
type Client struct {
	cfg     Config
	logger  *log.Logger
	topics  Topics
	handler InboundHandler

	cm    *autopaho.ConnectionManager
	queue *publishQueue

	onDrop    func()
	connected atomic.Bool
}

// New builds a Client. handler is invoked for every inbound publish on a
// topic within topics.SubscriptionFilters(); onDrop is called once per
// message dropped for queue overflow, wired by the caller to
// internal/state.RuntimeState.IncMQTTDropped.
func New(cfg Config, topics Topics, logger *log.Logger, handler InboundHandler, onDrop func()) *Client {
	limit := cfg.QueueLimit
	if limit <= 0 {
		limit = 256
	}
	return &Client{
		cfg:     cfg,
		logger:  logger,
		topics:  topics,
		handler: handler,
		queue:   newPublishQueue(limit),
		onDrop:  onDrop,
	}
}

// Connect establishes the auto-reconnecting connection and subscribes to
// every inbound topic family once the connection comes up.
func (c *Client) Connect(ctx context.Context) error {
	scheme := "mqtt"
	if c.cfg.TLS {
		scheme = "mqtts"
	}
	u, err := url.Parse(fmt.Sprintf("%s://%s:%s", scheme, c.cfg.Host, c.cfg.Port))
	if err != nil {
		return fmt.Errorf("mqttbridge: parse broker url: %w", err)
	}

	keepAlive := c.cfg.KeepAlive
	if keepAlive == 0 {
		keepAlive = 30
	}

	subscriptions := make([]paho.SubscribeOptions, 0, len(c.topics.SubscriptionFilters()))
	for _, f := range c.topics.SubscriptionFilters() {
		subscriptions = append(subscriptions, paho.SubscribeOptions{Topic: f, QoS: 1})
	}

	cliCfg := autopaho.ClientConfig{
		ServerUrls:        []*url.URL{u},
		KeepAlive:         keepAlive,
		ConnectRetryDelay: 5 * time.Second,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			c.logger.Info("mqtt connection up")
			c.connected.Store(true)
			subCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if _, err := cm.Subscribe(subCtx, &paho.Subscribe{Subscriptions: subscriptions}); err != nil {
				c.logger.Error("mqtt subscribe failed", "err", err)
			}
		},
		OnConnectError: func(err error) {
			c.logger.Warn("mqtt connect error", "err", err)
			c.connected.Store(false)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: c.cfg.ClientID,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(pr paho.PublishReceived) (bool, error) {
					if c.handler != nil {
						c.handler(ctx, pr.Packet.Topic, pr.Packet.Payload, pr.Packet.Properties)
					}
					return true, nil
				},
			},
			OnClientError: func(err error) {
				c.logger.Error("mqtt client error", "err", err)
			},
		},
	}
	if c.cfg.User != "" {
		cliCfg.ConnectUsername = c.cfg.User
		cliCfg.ConnectPassword = []byte(c.cfg.Pass)
	}

	cm, err := autopaho.NewConnection(ctx, cliCfg)
	if err != nil {
		return fmt.Errorf("mqttbridge: connect: %w", err)
	}
	c.cm = cm
	return nil
}

// Publish enqueues m for delivery. Overflow drops the oldest queued
// message and invokes onDrop, matching spec.md §4.5's drop-oldest policy.
func (c *Client) Publish(m Message) {
	if c.queue.push(m) && c.onDrop != nil {
		c.onDrop()
	}
}

// QueueSize reports the current depth of the outbound queue, for
// internal/state.RuntimeState.SetMQTTQueue.
func (c *Client) QueueSize() int { return c.queue.len() }

// IsConnected reports the most recently observed connection state.
// autopaho retries silently in the background; this client infers
// "down" from a failed publish rather than a dedicated disconnect hook,
// since ClientConfig exposes OnConnectionUp/OnConnectError but no
// symmetric "connection lost" callback in this library version.
func (c *Client) IsConnected() bool { return c.connected.Load() }

// Run drains the outbound queue for as long as ctx is live; callers wrap
// it in a daemon.Task whose Run func calls client.Run(ctx, onSpool) with
// an onSpool that enqueues the message into the spool. A drained message that fails to
// publish (broker unreachable) is handed to onSpool rather than
// requeued, so the spool — not this queue — owns retry-until-connected
// semantics.
func (c *Client) Run(ctx context.Context, onSpool func(Message)) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m, ok := c.queue.pop()
			if !ok {
				continue
			}
			if err := c.publishNow(ctx, m); err != nil {
				c.logger.Warn("mqtt publish failed, spooling", "topic", m.Topic, "err", err)
				if onSpool != nil {
					onSpool(m)
				}
			}
		}
	}
}

func (c *Client) publishNow(ctx context.Context, m Message) error {
	if c.cm == nil {
		return fmt.Errorf("mqttbridge: not connected")
	}
	props := &paho.PublishProperties{
		ResponseTopic:   m.ResponseTopic,
		CorrelationData: m.CorrelationData,
	}
	for k, v := range m.UserProperties {
		props.User.Add(k, v)
	}
	_, err := c.cm.Publish(ctx, &paho.Publish{
		Topic:      m.Topic,
		QoS:        m.QoS,
		Retain:     m.Retain,
		Payload:    m.Payload,
		Properties: props,
	})
	if err != nil {
		c.connected.Store(false)
	}
	return err
}

// Disconnect tears down the connection, honoring ctx for the graceful
// DISCONNECT handshake timeout.
func (c *Client) Disconnect(ctx context.Context) error {
	c.connected.Store(false)
	if c.cm == nil {
		return nil
	}
	return c.cm.Disconnect(ctx)
}
