package device

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/revgen/voicecmd/domain/entities"
	"github.com/revgen/voicecmd/domain/repositories"
)

const (
	defaultCommandTopic = "appliance/{device}/command"
	defaultPublishWait  = 5 * time.Second
)

// MQTTConfig holds MQTT client configuration
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// Topic may contain a {device} placeholder, e.g. "appliance/{device}/command".
	Topic string
	QoS   byte
	// PublishTimeout bounds the wait for a broker acknowledgement.
	PublishTimeout time.Duration
}

// MQTTController publishes device commands for an IR transmitter bridge to
// pick up and replay.
type MQTTController struct {
	client  mqtt.Client
	topic   string
	qos     byte
	timeout time.Duration
	logger  *zap.Logger
}

var _ repositories.DeviceController = (*MQTTController)(nil)

// NewMQTTController connects to the broker and returns a controller.
func NewMQTTController(config MQTTConfig, logger *zap.Logger) (*MQTTController, error) {
	if config.Broker == "" {
		return nil, fmt.Errorf("mqtt broker address is required")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("Connected to MQTT broker", zap.String("broker", config.Broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return newMQTTController(client, config, logger), nil
}

func newMQTTController(client mqtt.Client, config MQTTConfig, logger *zap.Logger) *MQTTController {
	topic := config.Topic
	if topic == "" {
		topic = defaultCommandTopic
	}
	timeout := config.PublishTimeout
	if timeout == 0 {
		timeout = defaultPublishWait
	}
	return &MQTTController{
		client:  client,
		topic:   topic,
		qos:     config.QoS,
		timeout: timeout,
		logger:  logger,
	}
}

// Execute publishes cmd as JSON. The transmitter dedupes on the command ID.
func (c *MQTTController) Execute(ctx context.Context, cmd entities.DeviceCommand) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal device command: %w", err)
	}

	topic := formatTopic(c.topic, cmd.Device)
	token := c.client.Publish(topic, c.qos, false, payload)

	wait := c.timeout
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
		wait = time.Until(deadline)
	}
	if !token.WaitTimeout(wait) {
		return fmt.Errorf("timed out publishing device command to %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish device command: %w", err)
	}

	c.logger.Info("Published device command",
		zap.String("command_id", cmd.ID),
		zap.String("topic", topic),
		zap.String("operation", string(cmd.Operation)))
	return nil
}

// Close closes the MQTT client connection
func (c *MQTTController) Close() {
	c.client.Disconnect(250)
	c.logger.Info("MQTT client disconnected")
}

func formatTopic(pattern, device string) string {
	return strings.ReplaceAll(pattern, "{device}", device)
}
