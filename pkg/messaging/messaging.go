package messaging

import (
	"context"
	"fmt"
	"strings"
)

// Publisher hands a keyed message to a durable topic and returns once the
// broker acknowledged it.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
	Close() error
}

// Handler processes one delivered message.
type Handler func(ctx context.Context, key string, value []byte) error

// Subscriber delivers messages from a topic to a handler until ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}

const (
	BrokerKafka    = "kafka"
	BrokerRabbitMQ = "rabbitmq"
)

type BrokerConfig struct {
	Type        string
	Brokers     []string
	RabbitMQURL string
	GroupID     string
}

// NewPublisher builds the publisher for the configured broker type.
func NewPublisher(cfg BrokerConfig) (Publisher, error) {
	switch strings.ToLower(cfg.Type) {
	case BrokerKafka, "":
		return NewKafkaProducer(cfg.Brokers), nil
	case BrokerRabbitMQ:
		rc := DefaultConfig()
		rc.URL = cfg.RabbitMQURL
		return NewRabbitMQClient(rc)
	default:
		return nil, fmt.Errorf("unsupported broker type %q", cfg.Type)
	}
}

// NewSubscriber builds the subscriber for the configured broker type.
func NewSubscriber(cfg BrokerConfig) (Subscriber, error) {
	switch strings.ToLower(cfg.Type) {
	case BrokerKafka, "":
		return NewKafkaConsumer(cfg.Brokers, cfg.GroupID), nil
	case BrokerRabbitMQ:
		rc := DefaultConfig()
		rc.URL = cfg.RabbitMQURL
		return NewRabbitMQClient(rc)
	default:
		return nil, fmt.Errorf("unsupported broker type %q", cfg.Type)
	}
}
