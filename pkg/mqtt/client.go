package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/autopeer-io/printersim/pkg/log"
)

// protocolVersion311 selects MQTT 3.1.1, the only version printers speak.
const protocolVersion311 = 4

type pahoClient struct {
	cfg    *ClientConfig
	client paho.Client

	// subscriptions holds the registered handlers.
	// Key: topic filter (string), Value: subscriptionEntry
	subscriptions sync.Map

	connected     chan struct{}
	connectedOnce sync.Once
}

type subscriptionEntry struct {
	topic   string
	qos     int
	handler MessageHandler
}

// NewClient creates a new MQTT client implementing the Client interface.
func NewClient(cfg *ClientConfig) (Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mqtt config is required")
	}

	setDefaultConfig(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mqtt config: %w", err)
	}

	return &pahoClient{
		cfg:       cfg,
		connected: make(chan struct{}),
	}, nil
}

func (c *pahoClient) Start(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetUsername(c.cfg.Username).
		SetPassword(c.cfg.Password).
		SetProtocolVersion(protocolVersion311).
		SetKeepAlive(time.Duration(c.cfg.KeepAlive) * time.Second).
		SetConnectTimeout(c.cfg.ConnectTimeout).
		SetCleanSession(c.cfg.CleanSession).
		SetTLSConfig(&tls.Config{InsecureSkipVerify: c.cfg.InsecureSkipVerify}).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(10 * time.Second).
		SetDefaultPublishHandler(c.router).
		SetOnConnectHandler(c.onConnectionUp).
		SetConnectionLostHandler(c.onConnectionLost)

	log.Info("Starting MQTT Client", "broker", c.cfg.BrokerURL, "clientID", c.cfg.ClientID)

	c.client = paho.NewClient(opts)
	if err := wait(ctx, c.client.Connect()); err != nil {
		return fmt.Errorf("connect to %s: %w", c.cfg.BrokerURL, err)
	}
	return nil
}

func (c *pahoClient) Disconnect(ctx context.Context) {
	if c.client == nil {
		return
	}
	c.client.Disconnect(250)
	log.Info("MQTT Client disconnected")
}

func (c *pahoClient) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	if c.client == nil {
		return fmt.Errorf("client not started")
	}
	return wait(ctx, c.client.Publish(topic, byte(qos), retain, payload))
}

func (c *pahoClient) Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error {
	if c.client == nil {
		return fmt.Errorf("client not started")
	}

	c.subscriptions.Store(topic, subscriptionEntry{
		topic:   topic,
		qos:     qos,
		handler: handler,
	})

	// A nil callback routes deliveries through the default handler (c.router).
	if err := wait(ctx, c.client.Subscribe(topic, byte(qos), nil)); err != nil {
		return fmt.Errorf("failed to send subscription packet: %w", err)
	}

	log.Info("Subscribed to topic", "topic", topic)
	return nil
}

func (c *pahoClient) Unsubscribe(ctx context.Context, topic string) error {
	if c.client == nil {
		return fmt.Errorf("client not started")
	}

	c.subscriptions.Delete(topic)
	return wait(ctx, c.client.Unsubscribe(topic))
}

func (c *pahoClient) AwaitConnection(ctx context.Context) error {
	select {
	case <-c.connected:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *pahoClient) IsConnected() bool {
	return c.client != nil && c.client.IsConnectionOpen()
}

// --- Internal Callbacks ---

// onConnectionUp runs after every successful CONNACK, including reconnects.
func (c *pahoClient) onConnectionUp(cl paho.Client) {
	log.Info("MQTT Connection established")
	c.connectedOnce.Do(func() { close(c.connected) })

	c.subscriptions.Range(func(key, value any) bool {
		entry := value.(subscriptionEntry)
		tok := cl.Subscribe(entry.topic, byte(entry.qos), nil)
		if tok.WaitTimeout(c.cfg.ConnectTimeout) && tok.Error() != nil {
			log.Error(tok.Error(), "Failed to re-subscribe", "topic", entry.topic)
		}
		return true
	})
}

func (c *pahoClient) onConnectionLost(_ paho.Client, err error) {
	log.Warn("MQTT Connection lost, reconnecting", "error", err)
}

// router dispatches incoming messages to the matching registered handlers.
func (c *pahoClient) router(_ paho.Client, msg paho.Message) {
	matched := false
	c.subscriptions.Range(func(key, value any) bool {
		entry := value.(subscriptionEntry)
		if topicsMatch(entry.topic, msg.Topic()) {
			go entry.handler(context.Background(), msg.Topic(), msg.Payload())
			matched = true
		}
		return true
	})

	if !matched {
		log.Debug("Received message on unhandled topic", "topic", msg.Topic())
	}
}

// wait blocks until tok completes or ctx ends.
func wait(ctx context.Context, tok paho.Token) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// topicsMatch checks if a topic matches a filter (supports wildcards + and #).
func topicsMatch(filter, topic string) bool {
	if filter == topic {
		return true
	}

	if !strings.Contains(filter, Wildcard) && !strings.Contains(filter, MultiWildcard) {
		return false
	}

	filterParts := strings.Split(filter, "/")
	topicParts := strings.Split(topic, "/")

	for i, part := range filterParts {
		if part == MultiWildcard {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if part != Wildcard && part != topicParts[i] {
			return false
		}
	}

	return len(filterParts) == len(topicParts)
}
