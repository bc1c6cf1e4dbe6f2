package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type Producer interface {
	Publish(ctx context.Context, event LifecycleEvent) error
	Close() error
}

type kafkaProducer struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaProducer(brokers []string, topic string) Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}

	return &kafkaProducer{
		writer: writer,
		topic:  topic,
	}
}

func (p *kafkaProducer) Publish(ctx context.Context, event LifecycleEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return err
	}

	message := kafka.Message{
		Key:   []byte(event.Key()),
		Value: eventJSON,
		Time:  event.Timestamp,
	}

	return p.writer.WriteMessages(ctx, message)
}

func (p *kafkaProducer) Close() error {
	return p.writer.Close()
}

// Dispatcher publishes events without blocking the caller. A lifecycle action
// has already committed when its event is sent, so failures are only logged.
type Dispatcher struct {
	producer Producer
	logger   zerolog.Logger
	timeout  time.Duration

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

func NewDispatcher(producer Producer, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		producer: producer,
		logger:   logger,
		timeout:  5 * time.Second,
	}
}

func (d *Dispatcher) Dispatch(event LifecycleEvent) {
	if d == nil || d.producer == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn().
			Str("kind", string(event.Kind)).
			Str("key", event.Key()).
			Msg("dispatcher closed, lifecycle event dropped")
		return
	}
	d.inflight.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.producer.Publish(ctx, event); err != nil {
			d.logger.Warn().
				Err(err).
				Str("kind", string(event.Kind)).
				Str("key", event.Key()).
				Msg("failed to publish lifecycle event")
		}
	}()
}

// Close stops accepting events, waits for in-flight publishes and then
// closes the producer.
func (d *Dispatcher) Close() error {
	if d == nil || d.producer == nil {
		return nil
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.inflight.Wait()
	return d.producer.Close()
}
