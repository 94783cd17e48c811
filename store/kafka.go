package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aluiziolira/go-enrich-products/models"
	"github.com/segmentio/kafka-go"
)

// messageWriter abstracts kafka.Writer for tests.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaSink publishes enriched records keyed by "<store>/<id>", so a
// compacted topic retains the latest record per product.
type KafkaSink struct {
	writer  messageWriter
	brokers []string
}

// NewKafkaSink creates a synchronous writer for topic.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
		},
		brokers: brokers,
	}
}

// NewKafkaSinkWith wraps an existing writer.
func NewKafkaSinkWith(w messageWriter) *KafkaSink {
	return &KafkaSink{writer: w}
}

// Upsert publishes p.
func (k *KafkaSink) Upsert(ctx context.Context, p *models.EnrichedProduct) error {
	msg, err := NewMessage(p)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Key, err)
	}
	return nil
}

// Ping dials the first reachable broker.
func (k *KafkaSink) Ping(ctx context.Context) error {
	if len(k.brokers) == 0 {
		return fmt.Errorf("no brokers configured")
	}
	dialer := &kafka.Dialer{Timeout: 5 * time.Second}
	var lastErr error
	for _, broker := range k.brokers {
		conn, err := dialer.DialContext(ctx, "tcp", broker)
		if err == nil {
			return conn.Close()
		}
		lastErr = err
	}
	return fmt.Errorf("dial kafka brokers: %w", lastErr)
}

// Close flushes and closes the underlying writer.
func (k *KafkaSink) Close() error {
	if closer, ok := k.writer.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// NewMessage builds the Kafka message for p.
func NewMessage(p *models.EnrichedProduct) (kafka.Message, error) {
	key, err := recordKey(p)
	if err != nil {
		return kafka.Message{}, err
	}
	value, err := encodeRecord(p)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "store", Value: []byte(p.StoreName)},
			{Key: "category", Value: []byte(p.MainCategory)},
		},
		Time: p.ScrapedAt,
	}, nil
}
