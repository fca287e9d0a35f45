// Package audit publishes request and response records to the banking-logs
// topic. Publishing never blocks request handling; records that cannot be
// queued are dropped with a local warning.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"

	"github.com/josh-kwaku/transfer-saga/internal/logging"
)

type Direction string

const (
	DirectionRequest  Direction = "REQUEST"
	DirectionResponse Direction = "RESPONSE"
)

type Event struct {
	RequestID string    `json:"-"`
	Service   string    `json:"service"`
	Direction Direction `json:"direction"`
	Endpoint  string    `json:"endpoint"`
	Method    string    `json:"method"`
	Status    int       `json:"status,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event)
	Close() error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
func (Nop) Close() error                   { return nil }

type KafkaPublisher struct {
	producer sarama.AsyncProducer
	input    chan<- *sarama.ProducerMessage
	topic    string
	dropped  atomic.Int64
	done     chan struct{}
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	producer, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("audit.NewKafkaPublisher: %w", err)
	}
	return newKafkaPublisher(producer, topic), nil
}

func newKafkaPublisher(producer sarama.AsyncProducer, topic string) *KafkaPublisher {
	p := &KafkaPublisher{
		producer: producer,
		input:    producer.Input(),
		topic:    topic,
		done:     make(chan struct{}),
	}
	go p.drainErrors()
	return p
}

func (p *KafkaPublisher) drainErrors() {
	defer close(p.done)
	for perr := range p.producer.Errors() {
		slog.Warn("audit publish failed", "topic", p.topic, "error", perr.Err)
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) {
	value, err := json.Marshal(e)
	if err != nil {
		logging.FromContext(ctx).Warn("audit event not encodable", "error", err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(value),
	}
	if e.RequestID != "" {
		msg.Key = sarama.StringEncoder(e.RequestID)
	}

	select {
	case p.input <- msg:
	default:
		p.dropped.Add(1)
		logging.FromContext(ctx).Warn("audit buffer full, dropping event",
			"endpoint", e.Endpoint,
			"direction", e.Direction,
		)
	}
}

func (p *KafkaPublisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close flushes queued events. Publish must not be called afterwards.
func (p *KafkaPublisher) Close() error {
	p.producer.AsyncClose()
	<-p.done
	return nil
}

// New returns a Kafka publisher, or Nop when no brokers are configured.
func New(brokers []string, topic string) (Publisher, error) {
	if len(brokers) == 0 {
		return Nop{}, nil
	}
	return NewKafkaPublisher(brokers, topic)
}
