package kafka

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/segmentio/kafka-go"

	"migitrader/pkg/errors"
	"migitrader/pkg/logger"
)

// Producer handles Kafka message publishing.
// Safe for concurrent use: Publish is called from HTTP request goroutines.
type Producer struct {
	mu      sync.Mutex
	writers map[string]*kafka.Writer
	brokers []string
	log     *logger.Logger
}

// ProducerConfig holds producer configuration
type ProducerConfig struct {
	Brokers []string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig) *Producer {
	return &Producer{
		writers: make(map[string]*kafka.Writer),
		brokers: cfg.Brokers,
		log:     logger.Get().With("component", "kafka_producer"),
	}
}

// getWriter returns or creates a writer for a topic
func (p *Producer) getWriter(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.writers[topic]; ok {
		return w
	}

	w := &kafka.Writer{
		Addr:     kafka.TCP(p.brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
		// Synchronous for reliability
		Async: false,
	}

	p.writers[topic] = w
	return w
}

// Publish marshals the payload to JSON and writes it to the topic
func (p *Producer) Publish(ctx context.Context, topic string, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal payload for topic %s", topic)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.getWriter(topic).WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "failed to publish to topic %s", topic)
	}

	p.log.Debugw("Event published", "topic", topic, "key", key)
	return nil
}

// Close closes all topic writers
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for topic, w := range p.writers {
		if err := w.Close(); err != nil {
			p.log.Warnw("Failed to close kafka writer", "topic", topic, "error", err)
		}
	}
	return nil
}
