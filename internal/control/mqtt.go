package control

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/leandrodaf/midiseq/sdk/contracts"
)

// DefaultTopic is the MQTT control topic used when none is configured.
const DefaultTopic = "midiseq/control"

const mqttTimeout = 5 * time.Second

// MQTT receives control messages published on a topic. The subscription is
// made on every (re)connect, so a clean-session reconnect keeps delivering.
type MQTT struct {
	client mqtt.Client
	topic  string
	qos    byte
	logger contracts.Logger

	mu     sync.RWMutex
	handle Handler
}

// DialMQTT connects to the broker. An empty client id gets a random one.
func DialMQTT(cfg contracts.MQTTConfig, logger contracts.Logger) (*MQTT, error) {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "midiseq-" + uuid.NewString()
	}
	m := &MQTT{topic: cfg.Topic, qos: cfg.QoS, logger: logger}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(mqttTimeout)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = m.subscribe
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost, will auto-reconnect",
			logger.Field().String("broker", cfg.Broker),
			logger.Field().Error("error", err))
	}

	m.client = mqtt.NewClient(opts)
	token := m.client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("mqtt connection timeout: %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}

	logger.Info("mqtt connection established",
		logger.Field().String("broker", cfg.Broker),
		logger.Field().String("client_id", cfg.ClientID))
	return m, nil
}

// subscribe runs on every successful connect.
func (m *MQTT) subscribe(client mqtt.Client) {
	token := client.Subscribe(m.topic, m.qos, m.receive)
	if !token.WaitTimeout(mqttTimeout) {
		m.logger.Error("mqtt subscription timeout", m.logger.Field().String("topic", m.topic))
		return
	}
	if err := token.Error(); err != nil {
		m.logger.Error("mqtt subscription failed",
			m.logger.Field().String("topic", m.topic),
			m.logger.Field().Error("error", err))
		return
	}
	m.logger.Info("subscribed to control topic", m.logger.Field().String("topic", m.topic))
}

func (m *MQTT) receive(_ mqtt.Client, msg mqtt.Message) {
	m.mu.RLock()
	handle := m.handle
	m.mu.RUnlock()

	if handle == nil {
		m.logger.Debug("dropping control message",
			m.logger.Field().String("source", "mqtt"),
			m.logger.Field().String("reason", "not serving"))
		return
	}
	dispatch(msg.Payload(), handle, m.logger, "mqtt")
}

// Topic returns the control topic.
func (m *MQTT) Topic() string {
	return m.topic
}

// Serve hands received commands to handle until ctx is done.
func (m *MQTT) Serve(ctx context.Context, handle Handler) error {
	m.mu.Lock()
	m.handle = handle
	m.mu.Unlock()

	<-ctx.Done()

	m.mu.Lock()
	m.handle = nil
	m.mu.Unlock()
	return nil
}

// Publish sends one encoded command to the control topic.
func (m *MQTT) Publish(cmd contracts.Command) error {
	data, err := Encode(cmd)
	if err != nil {
		return err
	}
	token := m.client.Publish(m.topic, m.qos, false, data)
	if !token.WaitTimeout(mqttTimeout) {
		return fmt.Errorf("mqtt publish timeout: %s", m.topic)
	}
	return token.Error()
}

// Close unsubscribes and disconnects from the broker.
func (m *MQTT) Close() error {
	if m.client.IsConnected() {
		m.client.Unsubscribe(m.topic).WaitTimeout(mqttTimeout)
	}
	m.client.Disconnect(250)
	return nil
}
