package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	infraoutbox "hostelhunt/internal/infra/outbox"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

// EnvelopeHandler decodes CloudEvents envelopes and passes them to Deliver.
type EnvelopeHandler struct {
	Deliver func(ctx context.Context, env infraoutbox.Envelope) error
}

func (h EnvelopeHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	env, err := infraoutbox.DecodeEnvelope(msg.Value)
	if err != nil {
		return err
	}
	return h.Deliver(ctx, env)
}

// Consumer feeds notification topics to a handler. A failing message is
// retried once per Backoff step; after the last step it is logged and
// committed so one bad event cannot stall the partition.
type Consumer struct {
	Backoff []time.Duration

	group   sarama.ConsumerGroup
	handler MessageHandler
	logger  *slog.Logger
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
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
	return &Consumer{group: g, handler: handler, logger: logger}, nil
}

// Run joins the group until ctx is cancelled, rejoining after rebalances.
func (c *Consumer) Run(ctx context.Context, topics []string) error {
	for {
		if err := c.group.Consume(ctx, topics, c.claimHandler()); err != nil {
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

func (c *Consumer) claimHandler() claimHandler {
	return claimHandler{handler: c.handler, logger: c.logger, backoff: c.Backoff}
}

type claimHandler struct {
	handler MessageHandler
	logger  *slog.Logger
	backoff []time.Duration
}

func (h claimHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h claimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h claimHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for message := range claim.Messages() {
		if !h.deliver(ctx, message) {
			// Shutting down: leave the offset so the next member redelivers.
			return nil
		}
		sess.MarkMessage(message, "")
	}
	return nil
}

// deliver reports false only when ctx ended before the message was settled.
func (h claimHandler) deliver(ctx context.Context, msg *sarama.ConsumerMessage) bool {
	for attempt := 0; ; attempt++ {
		err := h.handler.Handle(ctx, msg)
		if err == nil {
			return true
		}
		if attempt >= len(h.backoff) {
			h.logger.Error("event dropped after retries",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"attempts", attempt+1,
				"error", err,
			)
			return true
		}
		h.logger.Warn("event handling failed", "topic", msg.Topic, "offset", msg.Offset, "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(h.backoff[attempt]):
		}
	}
}
