package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"numintel/pkg/platform/sentinel"
)

// KafkaPublisher produces events to one topic, keyed by number so every
// analysis of the same number lands on the same partition.
type KafkaPublisher struct {
	client  *kgo.Client
	topic   string
	breaker *breaker
}

// KafkaOption configures a KafkaPublisher.
type KafkaOption func(*kafkaSettings)

type kafkaSettings struct {
	threshold int
	cooldown  time.Duration
	extra     []kgo.Opt
}

// WithBreaker sets how many consecutive failures open the breaker and how
// long it stays open.
func WithBreaker(threshold int, cooldown time.Duration) KafkaOption {
	return func(s *kafkaSettings) {
		s.threshold = threshold
		s.cooldown = cooldown
	}
}

// WithClientOpts passes extra options to the underlying kgo client.
func WithClientOpts(opts ...kgo.Opt) KafkaOption {
	return func(s *kafkaSettings) {
		s.extra = append(s.extra, opts...)
	}
}

// NewKafkaPublisher builds a producer. No connection is made until the first
// publish.
func NewKafkaPublisher(brokers []string, topic string, opts ...KafkaOption) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("kafka: topic is required")
	}

	var settings kafkaSettings
	for _, opt := range opts {
		opt(&settings)
	}

	kopts := append([]kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RecordDeliveryTimeout(10 * time.Second),
	}, settings.extra...)

	client, err := kgo.NewClient(kopts...)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaPublisher{
		client:  client,
		topic:   topic,
		breaker: newBreaker(settings.threshold, settings.cooldown),
	}, nil
}

// EnsureTopic creates the topic if it does not exist yet.
func (p *KafkaPublisher) EnsureTopic(ctx context.Context, partitions int32, replication int16) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopics(ctx, partitions, replication, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Publish produces all events and waits for acknowledgement. While the
// breaker is open it fails fast with sentinel.ErrUnavailable.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", ev.ID, err)
		}
		records = append(records, &kgo.Record{
			Topic: p.topic,
			Key:   []byte(ev.Number),
			Value: payload,
			Headers: []kgo.RecordHeader{
				{Key: "type", Value: []byte(ev.Type)},
			},
		})
	}

	if !p.breaker.allow() {
		return fmt.Errorf("kafka publish skipped: %w", sentinel.ErrUnavailable)
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		p.breaker.recordFailure()
		return fmt.Errorf("kafka produce: %w", err)
	}
	p.breaker.recordSuccess()
	return nil
}

// Close flushes nothing further and releases the client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}
