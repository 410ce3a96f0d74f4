// Package notify delivers escalation notifications to the external notifier.
// Delivery is fire-and-forget: transports do not retry.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"audit-remediation/common/redis"
	"audit-remediation/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Transport names accepted by the NOTIFIER_TRANSPORT setting
const (
	TransportLog    = "log"
	TransportHTTP   = "http"
	TransportMQTT   = "mqtt"
	TransportStream = "stream"
)

// LogNotifier writes notifications to the log only
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements escalation.Notifier
func (n *LogNotifier) Notify(ctx context.Context, msg models.Notification) error {
	n.logger.Info("Notification",
		zap.String("notification_id", msg.NotificationID),
		zap.String("recipient_id", msg.RecipientID),
		zap.String("category", msg.Category),
		zap.String("title", msg.Title),
		zap.String("deep_link", msg.DeepLink),
	)
	return nil
}

// HTTPNotifier POSTs notifications as JSON to the notifier service
type HTTPNotifier struct {
	client *resty.Client
	logger *zap.Logger
}

// NewHTTPNotifier creates an HTTPNotifier for baseURL
func NewHTTPNotifier(baseURL string, logger *zap.Logger) *HTTPNotifier {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &HTTPNotifier{client: client, logger: logger}
}

// Notify implements escalation.Notifier
func (n *HTTPNotifier) Notify(ctx context.Context, msg models.Notification) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(msg).
		Post("/notifications")
	if err != nil {
		return fmt.Errorf("failed to call notifier: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notifier returned %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	n.logger.Debug("Notification delivered",
		zap.String("recipient_id", msg.RecipientID),
		zap.Int("status_code", resp.StatusCode()),
	)
	return nil
}

// Publisher is the subset of the MQTT client used here
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTNotifier publishes to {prefix}/{recipient_id}
type MQTTNotifier struct {
	publisher   Publisher
	topicPrefix string
	qos         byte
	logger      *zap.Logger
}

// NewMQTTNotifier creates an MQTTNotifier
func NewMQTTNotifier(publisher Publisher, topicPrefix string, qos byte, logger *zap.Logger) *MQTTNotifier {
	return &MQTTNotifier{
		publisher:   publisher,
		topicPrefix: strings.TrimRight(topicPrefix, "/"),
		qos:         qos,
		logger:      logger,
	}
}

// Topic returns the topic a recipient's notifications are published on.
func (n *MQTTNotifier) Topic(recipientID string) string {
	return n.topicPrefix + "/" + recipientID
}

// Notify implements escalation.Notifier
func (n *MQTTNotifier) Notify(ctx context.Context, msg models.Notification) error {
	if msg.RecipientID == "" {
		return fmt.Errorf("recipient_id is required")
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := n.publisher.Publish(n.Topic(msg.RecipientID), n.qos, false, payload); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// StreamNotifier appends notifications to a Redis stream
type StreamNotifier struct {
	client *redis.Client
	stream string
	logger *zap.Logger
}

// NewStreamNotifier creates a StreamNotifier
func NewStreamNotifier(client *redis.Client, stream string, logger *zap.Logger) *StreamNotifier {
	return &StreamNotifier{client: client, stream: stream, logger: logger}
}

// Notify implements escalation.Notifier
func (n *StreamNotifier) Notify(ctx context.Context, msg models.Notification) error {
	id, err := redis.PublishJSONToStream(ctx, n.client, n.stream, msg)
	if err != nil {
		return fmt.Errorf("failed to publish notification to stream: %w", err)
	}
	n.logger.Debug("Notification queued",
		zap.String("stream", n.stream),
		zap.String("message_id", id),
		zap.String("recipient_id", msg.RecipientID),
	)
	return nil
}
