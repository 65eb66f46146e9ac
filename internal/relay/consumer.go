package relay

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

// Consumer replays records published by other nodes into the local hub.
type Consumer struct {
	topic  string
	origin string
	group  sarama.ConsumerGroup
	local  Broadcaster
	logger *slog.Logger
}

// NewConsumer creates a consumer. Records carrying origin are skipped since
// the publisher already delivered them locally.
func NewConsumer(topic, origin string, group sarama.ConsumerGroup, local Broadcaster, logger *slog.Logger) *Consumer {
	return &Consumer{
		topic:  topic,
		origin: origin,
		group:  group,
		local:  local,
		logger: logger,
	}
}

// Start runs the consume loop until ctx is cancelled or the group is closed.
func (c *Consumer) Start(ctx context.Context) error {
	defer func() {
		if err := c.group.Close(); err != nil {
			c.logger.Warn("close consumer group", slog.Any("error", err))
		}
	}()

	go func() {
		for err := range c.group.Errors() {
			c.logger.Error("relay consumer", slog.Any("error", err))
		}
	}()

	c.logger.Info("relay consumer started", slog.String("topic", c.topic))

	backoff := time.Second
	for {
		err := c.group.Consume(ctx, []string{c.topic}, c)
		if err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return err
			}
			c.logger.Error("relay consume", slog.Any("error", err))

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		backoff = time.Second
	}
}

func (c *Consumer) Setup(session sarama.ConsumerGroupSession) error {
	for topic, partitions := range session.Claims() {
		c.logger.Info("relay partitions assigned",
			slog.String("topic", topic),
			slog.Any("partitions", partitions))
	}
	return nil
}

func (c *Consumer) Cleanup(_ sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim broadcasts each foreign record to the local members of its
// group.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if !c.fromSelf(msg) && len(msg.Key) > 0 {
			c.local.Broadcast(string(msg.Key), msg.Value)
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

func (c *Consumer) fromSelf(msg *sarama.ConsumerMessage) bool {
	for _, h := range msg.Headers {
		if h != nil && string(h.Key) == originHeader {
			return bytes.Equal(h.Value, []byte(c.origin))
		}
	}
	return false
}
