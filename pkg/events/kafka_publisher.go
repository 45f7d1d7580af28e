package events

import (
	"context"
	"encoding/json"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaConfig configures the optional outbound publisher. Grounded on the
// teacher's kafka_wrapper.ProducerConfig, trimmed to the producer half —
// this engine never consumes Kafka, so ConsumerGroup/DLQ/batch-reader code
// has no SPEC_FULL.md component to serve and is dropped.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

// KafkaPublisher is a Subscriber that forwards trade and book-change events
// to a Kafka topic as JSON, async and best-effort: a publish failure is
// logged, never propagated back into the match loop.
type KafkaPublisher struct {
	w      *kafka.Writer
	topic  string
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewKafkaPublisher opens a Kafka writer for cfg. The writer is async
// (fire-and-forget), matching the non-blocking contract every Subscriber
// must uphold.
func NewKafkaPublisher(cfg KafkaConfig, log *zap.Logger) *KafkaPublisher {
	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = 100
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = 50 * time.Millisecond
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              batchSize,
		BatchTimeout:           batchTimeout,
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireNone,
		Async:                  true,
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &KafkaPublisher{w: w, topic: cfg.Topic, log: log, ctx: ctx, cancel: cancel}
}

func (p *KafkaPublisher) Deliver(ev Event) {
	var key string
	var payload any
	switch {
	case ev.Trade != nil:
		key = ev.Trade.Symbol
		payload = ev.Trade
	case ev.BookChanged != nil:
		key = ev.BookChanged.Symbol
		payload = ev.BookChanged
	default:
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("kafka publisher: marshal event", zap.Error(err))
		return
	}
	if err := p.w.WriteMessages(p.ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: b,
		Time:  time.Now(),
	}); err != nil {
		p.log.Warn("kafka publisher: write failed", zap.Error(err))
	}
}

// Close releases the underlying writer.
func (p *KafkaPublisher) Close() error {
	p.cancel()
	return p.w.Close()
}
