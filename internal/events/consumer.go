package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type Handler interface {
	HandleEvent(ctx context.Context, event LifecycleEvent) error
}

type Consumer interface {
	Start(ctx context.Context) error
	Close() error
}

const (
	minReadBackoff = 100 * time.Millisecond
	maxReadBackoff = 5 * time.Second
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type kafkaConsumer struct {
	reader  messageReader
	handler Handler
	logger  zerolog.Logger
	topic   string
	groupID string
	wait    func(ctx context.Context, d time.Duration) error
}

func NewKafkaConsumer(brokers []string, topic, groupID string, handler Handler, logger zerolog.Logger) Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})

	return &kafkaConsumer{
		reader:  reader,
		handler: handler,
		logger:  logger,
		topic:   topic,
		groupID: groupID,
		wait:    sleepContext,
	}
}

// Start reads messages until ctx is cancelled. Bad messages are logged and skipped.
// Consecutive read errors are retried with a doubling delay.
func (c *kafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info().
		Str("topic", c.topic).
		Str("group", c.groupID).
		Msg("kafka consumer started")

	var backoff time.Duration
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			c.logger.Error().Err(err).Dur("retry_in", backoff).Msg("read message")
			if err := c.wait(ctx, backoff); err != nil {
				return err
			}
			continue
		}
		backoff = 0

		var event LifecycleEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Error().
				Err(err).
				Int64("offset", msg.Offset).
				Msg("unmarshal lifecycle event")
			continue
		}

		if err := c.handler.HandleEvent(ctx, event); err != nil {
			c.logger.Error().
				Err(err).
				Str("kind", string(event.Kind)).
				Msg("handle event")
		}
	}
}

func (c *kafkaConsumer) Close() error {
	return c.reader.Close()
}

func nextBackoff(current time.Duration) time.Duration {
	if current < minReadBackoff {
		return minReadBackoff
	}
	if current >= maxReadBackoff/2 {
		return maxReadBackoff
	}
	return current * 2
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
