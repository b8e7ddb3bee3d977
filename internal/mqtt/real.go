package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// RealClient talks to an actual MQTT broker. Publishes made while
// disconnected are queued in a bounded outbox and replayed on
// reconnect; commands arriving on the command topic are parsed and
// handed to the control loop over a channel.
type RealClient struct {
	client   paho.Client
	commands chan Command

	mu  sync.Mutex
	out *outbox
}

// NewRealClient creates a client for the given broker. Connect must be
// called before the client is useful; auto-reconnect handles drops
// after that.
func NewRealClient(broker string) *RealClient {
	c := &RealClient{
		commands: make(chan Command, 16),
		out:      newOutbox(64),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("fan-bank").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(c.onConnect)

	c.client = paho.NewClient(opts)
	return c
}

// Connect dials the broker, blocking up to ten seconds. With connect
// retry enabled a timeout here is not fatal: the background retry
// keeps going and onConnect replays the outbox when it succeeds.
func (c *RealClient) Connect() error {
	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}

// onConnect runs on every (re)connect: resubscribe to the command
// topic and replay anything queued while offline.
func (c *RealClient) onConnect(client paho.Client) {
	if token := client.Subscribe(TopicCommand, 1, c.onCommand); token.WaitTimeout(5*time.Second) && token.Error() != nil {
		log.Printf("mqtt: subscribe %s: %v", TopicCommand, token.Error())
	}

	c.mu.Lock()
	queued := c.out.flush()
	c.mu.Unlock()

	for _, m := range queued {
		client.Publish(m.topic, m.qos, m.retained, m.payload)
	}
	if len(queued) > 0 {
		log.Printf("mqtt: replayed %d queued messages", len(queued))
	}
}

func (c *RealClient) onCommand(_ paho.Client, msg paho.Message) {
	cmd, err := ParseCommand(msg.Payload())
	if err != nil {
		log.Printf("mqtt: %v", err)
		return
	}
	select {
	case c.commands <- cmd:
	default:
		log.Printf("mqtt: command queue full, dropping %q", cmd.Cmd)
	}
}

// Commands returns the channel the control loop drains for requests
// received over MQTT.
func (c *RealClient) Commands() <-chan Command {
	return c.commands
}

func (c *RealClient) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !c.client.IsConnected() {
		c.mu.Lock()
		c.out.add(queuedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		c.mu.Unlock()
		return nil
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Publish sends a fan telemetry event to the broker.
func (c *RealClient) Publish(event Telemetry) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once): telemetry is refreshed every window anyway
	return c.publish(Topic, 0, false, payload)
}

// PublishSystem sends a system lifecycle event to the broker.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once): lifecycle events must reach the broker
	return c.publish(TopicSystem, 1, event.Retained, payload)
}

// IsConnected reports whether the broker connection is up.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}
