package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	rediscommon "audit-remediation/common/redis"
	"audit-remediation/internal/actionplan"

	"go.uber.org/zap"
)

// Processor builds the action plan of a completed inspection
type Processor interface {
	ProcessInspection(ctx context.Context, inspectionID string) (actionplan.Result, error)
}

// InspectionCompletedEvent payload published when an inspection is completed
type InspectionCompletedEvent struct {
	InspectionID string     `json:"inspection_id"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Options consumer group settings
type Options struct {
	Stream    string
	Group     string
	Consumer  string
	BatchSize int64
	Block     time.Duration

	// ReplayIdle is how long a failed message stays pending before it is
	// retried; negative retries on the next read.
	ReplayIdle time.Duration
	// MaxDeliveries caps attempts per message; after that it is acked and dropped.
	MaxDeliveries int64
}

// InspectionConsumer reads inspection-completed events from a Redis stream.
// Messages are acked once processed or found malformed. Processing failures
// stay pending and are claimed again once idle for ReplayIdle, up to
// MaxDeliveries attempts.
type InspectionConsumer struct {
	client    *rediscommon.Client
	processor Processor
	opts      Options
	logger    *zap.Logger
}

// NewInspectionConsumer creates an InspectionConsumer
func NewInspectionConsumer(client *rediscommon.Client, processor Processor, opts Options, logger *zap.Logger) *InspectionConsumer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Block <= 0 {
		opts.Block = 5 * time.Second
	}
	if opts.ReplayIdle == 0 {
		opts.ReplayIdle = 30 * time.Second
	}
	if opts.MaxDeliveries <= 0 {
		opts.MaxDeliveries = 5
	}
	return &InspectionConsumer{
		client:    client,
		processor: processor,
		opts:      opts,
		logger:    logger,
	}
}

// Start consumes until ctx is cancelled, backing off on read failures.
func (c *InspectionConsumer) Start(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, c.client, c.opts.Stream, c.opts.Group); err != nil {
		return fmt.Errorf("failed to create consumer group for %s: %w", c.opts.Stream, err)
	}

	c.logger.Info("Inspection consumer started",
		zap.String("stream", c.opts.Stream),
		zap.String("consumer_group", c.opts.Group),
		zap.String("consumer_name", c.opts.Consumer),
	)

	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if _, err := c.ConsumeOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to consume stream",
				zap.Error(err),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
			continue
		}
		backoff = time.Second
	}
}

// ConsumeOnce retries idle pending messages, then reads one batch of new
// ones. It returns how many messages were acked.
func (c *InspectionConsumer) ConsumeOnce(ctx context.Context) (int, error) {
	replayed, err := c.replayPending(ctx)
	if err != nil {
		return 0, err
	}

	messages, err := rediscommon.ReadFromStream(ctx, c.client, c.opts.Stream, c.opts.Group, c.opts.Consumer, c.opts.BatchSize, c.opts.Block)
	if err != nil {
		return 0, fmt.Errorf("failed to read from stream: %w", err)
	}

	var ackIDs []string
	for _, msg := range messages {
		if c.handle(ctx, msg) {
			ackIDs = append(ackIDs, msg.ID)
		}
	}

	if err := rediscommon.Ack(ctx, c.client, c.opts.Stream, c.opts.Group, ackIDs...); err != nil {
		return replayed, fmt.Errorf("failed to ack messages: %w", err)
	}
	return replayed + len(ackIDs), nil
}

func (c *InspectionConsumer) replayPending(ctx context.Context) (int, error) {
	pending, err := rediscommon.ListPending(ctx, c.client, c.opts.Stream, c.opts.Group, c.opts.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending messages: %w", err)
	}

	var retryIDs, dropIDs []string
	for _, p := range pending {
		if p.Idle < c.opts.ReplayIdle {
			continue
		}
		if p.Deliveries >= c.opts.MaxDeliveries {
			c.logger.Error("Dropping inspection event after repeated failures",
				zap.String("stream_id", p.ID),
				zap.Int64("deliveries", p.Deliveries),
			)
			dropIDs = append(dropIDs, p.ID)
			continue
		}
		retryIDs = append(retryIDs, p.ID)
	}

	minIdle := c.opts.ReplayIdle
	if minIdle < 0 {
		minIdle = 0
	}
	messages, err := rediscommon.Claim(ctx, c.client, c.opts.Stream, c.opts.Group, c.opts.Consumer, minIdle, retryIDs...)
	if err != nil {
		return 0, fmt.Errorf("failed to claim pending messages: %w", err)
	}

	ackIDs := dropIDs
	for _, msg := range messages {
		c.logger.Info("Retrying inspection event", zap.String("stream_id", msg.ID))
		if c.handle(ctx, msg) {
			ackIDs = append(ackIDs, msg.ID)
		}
	}

	if err := rediscommon.Ack(ctx, c.client, c.opts.Stream, c.opts.Group, ackIDs...); err != nil {
		return 0, fmt.Errorf("failed to ack messages: %w", err)
	}
	return len(ackIDs), nil
}

// handle reports whether msg should be acked.
func (c *InspectionConsumer) handle(ctx context.Context, msg rediscommon.StreamMessage) bool {
	inspectionID, err := ParseInspectionID(msg.Values)
	if err != nil {
		c.logger.Warn("Dropping malformed inspection event",
			zap.String("stream_id", msg.ID),
			zap.Error(err),
		)
		return true
	}

	result, err := c.processor.ProcessInspection(ctx, inspectionID)
	if err != nil {
		c.logger.Error("Failed to process inspection",
			zap.String("stream_id", msg.ID),
			zap.String("inspection_id", inspectionID),
			zap.Error(err),
		)
		return false
	}

	c.logger.Info("Inspection processed",
		zap.String("inspection_id", inspectionID),
		zap.Int("flagged", result.Flagged),
		zap.Int("created", result.Created),
		zap.Bool("skipped", result.Skipped),
	)
	return true
}

// ParseInspectionID accepts either a flat inspection_id field or a JSON
// event under "data".
func ParseInspectionID(values map[string]interface{}) (string, error) {
	if v, ok := values["inspection_id"].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), nil
	}

	raw, ok := values["data"].(string)
	if !ok {
		return "", fmt.Errorf("missing inspection_id and data fields")
	}
	var event InspectionCompletedEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return "", fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if strings.TrimSpace(event.InspectionID) == "" {
		return "", fmt.Errorf("inspection_id is required")
	}
	return strings.TrimSpace(event.InspectionID), nil
}
