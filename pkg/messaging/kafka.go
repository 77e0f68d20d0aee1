package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"
)

type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer returns a producer that routes by message key, so every
// message sharing a key lands on one partition in publish order.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			MaxAttempts:            1,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaProducer) Publish(ctx context.Context, topic, key string, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to write message to kafka topic %s: %w", topic, err)
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

type KafkaConsumer struct {
	brokers []string
	groupID string

	// Redelivery delays for a message whose handler failed.
	retryInitial time.Duration
	retryMax     time.Duration

	mu      sync.Mutex
	readers []*kafka.Reader
}

func NewKafkaConsumer(brokers []string, groupID string) *KafkaConsumer {
	return &KafkaConsumer{
		brokers:      brokers,
		groupID:      groupID,
		retryInitial: 500 * time.Millisecond,
		retryMax:     30 * time.Second,
	}
}

// messageReader is the part of *kafka.Reader the consume loop needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Subscribe blocks reading topic until ctx is done. A message's offset is
// committed only after its handler succeeds; a failing message is handled
// again after a backoff delay and blocks its partition until then.
func (c *KafkaConsumer) Subscribe(ctx context.Context, topic string, handler Handler) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.brokers,
		Topic:    topic,
		GroupID:  c.groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	c.mu.Lock()
	c.readers = append(c.readers, reader)
	c.mu.Unlock()

	slog.Info("kafka consumer started", "topic", topic, "group", c.groupID)
	return c.consume(ctx, topic, reader, handler)
}

func (c *KafkaConsumer) consume(ctx context.Context, topic string, reader messageReader, handler Handler) error {
	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			slog.Error("error while reading message from kafka", "topic", topic, "error", err)
			time.Sleep(time.Second)
			continue
		}

		if err := c.handle(ctx, topic, m, handler); err != nil {
			// Uncommitted; the group hands it out again after a restart.
			return nil
		}

		if err := reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			slog.Error("failed to commit kafka offset", "topic", topic, "offset", m.Offset, "error", err)
		}
	}
}

// handle runs handler on m until it succeeds or ctx is done.
func (c *KafkaConsumer) handle(ctx context.Context, topic string, m kafka.Message, handler Handler) error {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     c.retryInitial,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         c.retryMax,
	}
	b.Reset()

	for {
		err := handler(ctx, string(m.Key), m.Value)
		if err == nil {
			return nil
		}

		delay := b.NextBackOff()
		slog.Error("error handling message, will redeliver",
			"topic", topic,
			"partition", m.Partition,
			"offset", m.Offset,
			"retry_in", delay,
			"error", err,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *KafkaConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, r := range c.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.readers = nil
	return errors.Join(errs...)
}
