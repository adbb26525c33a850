// Package mqtt implements the MQTT transport for signalbox.
//
// MQTT is well-suited for kiosks, tablets and lightweight pub/sub setups.
// The transport subscribes to a configurable command topic; each message is
// a JSON utterance request, optionally carrying a reply_topic field. Results
// are published to that reply topic, or to "<topic>/results" by default.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nadzzz/signalbox/internal/transport"
	"github.com/nadzzz/signalbox/internal/utterance"
)

const (
	connectTimeout = 10 * time.Second
	publishQoS     = 1

	// disconnectQuiesce is the grace period in milliseconds paho waits for
	// in-flight work on disconnect.
	disconnectQuiesce = 250
)

// inbound is the wire form of an MQTT command message: a request plus an
// optional reply topic.
type inbound struct {
	utterance.Request
	ReplyTopic string `json:"reply_topic,omitempty"`
}

// Transport implements transport.Transport over MQTT.
type Transport struct {
	broker string
	topic  string
	client pahomqtt.Client
}

// New creates a new MQTT transport.
func New(broker, topic string) *Transport {
	return &Transport{broker: broker, topic: topic}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "mqtt" }

// Listen connects to the MQTT broker and subscribes to the configured topic.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	opts := pahomqtt.NewClientOptions().
		AddBroker(t.broker).
		SetClientID("signalbox-" + uuid.NewString()[:8]).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetConnectTimeout(connectTimeout)

	t.client = pahomqtt.NewClient(opts)
	if token := t.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}

	token := t.client.Subscribe(t.topic, publishQoS, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		t.handleMessage(ctx, msg, handler)
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt subscribe: %w", token.Error())
	}

	slog.Info("mqtt transport listening", "broker", t.broker, "topic", t.topic)

	<-ctx.Done()
	slog.Info("mqtt transport shutting down")
	t.client.Disconnect(disconnectQuiesce)
	return nil
}

// handleMessage interprets one command message and publishes the result.
func (t *Transport) handleMessage(ctx context.Context, msg pahomqtt.Message, handler transport.Handler) {
	var in inbound
	if err := json.Unmarshal(msg.Payload(), &in); err != nil {
		slog.Warn("mqtt message is not a valid request", "topic", msg.Topic(), "error", err)
		return
	}
	if in.Transcript == "" {
		slog.Warn("mqtt message has no transcript", "topic", msg.Topic())
		return
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}

	result := handler(ctx, in.Request)

	replyTopic := in.ReplyTopic
	if replyTopic == "" {
		replyTopic = t.topic + "/results"
	}

	payload, err := json.Marshal(result)
	if err != nil {
		slog.Error("marshalling mqtt result", "error", err)
		return
	}
	if token := t.client.Publish(replyTopic, publishQoS, false, payload); token.Wait() && token.Error() != nil {
		slog.Error("publishing mqtt result", "topic", replyTopic, "error", token.Error())
	}
}

// Close disconnects from the MQTT broker.
func (t *Transport) Close() error {
	if t.client != nil && t.client.IsConnected() {
		t.client.Disconnect(disconnectQuiesce)
	}
	return nil
}
