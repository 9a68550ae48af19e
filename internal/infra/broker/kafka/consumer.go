package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

type Consumer struct {
	group      sarama.ConsumerGroup
	handler    MessageHandler
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewConsumer joins groupID. A message whose handler fails is retried every
// retryDelay and is not marked until it succeeds.
func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, retryDelay time.Duration, logger *slog.Logger) (*Consumer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{group: g, handler: handler, retryDelay: retryDelay, logger: logger}, nil
}

func (c *Consumer) Run(ctx context.Context, topics []string) error {
	h := consumerGroupHandler{handler: c.handler, retryDelay: c.retryDelay, logger: c.logger}
	for {
		if err := c.group.Consume(ctx, topics, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type consumerGroupHandler struct {
	handler    MessageHandler
	retryDelay time.Duration
	logger     *slog.Logger
}

func (h consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if !h.handleUntilDone(ctx, message) {
				return nil
			}
			sess.MarkMessage(message, "")
		}
	}
}

// handleUntilDone reports false when the session ended before the handler succeeded.
func (h consumerGroupHandler) handleUntilDone(ctx context.Context, message *sarama.ConsumerMessage) bool {
	delay := h.retryDelay
	if delay <= 0 {
		delay = time.Second
	}
	for {
		err := h.handler.Handle(ctx, message)
		if err == nil {
			return true
		}
		h.logger.Warn("kafka message handling failed, will retry",
			"topic", message.Topic, "partition", message.Partition, "offset", message.Offset,
			"retry_in", delay, "error", err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}
