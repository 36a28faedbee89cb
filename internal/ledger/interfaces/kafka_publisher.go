package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Shopify/sarama"

	ledger "github.com/buzzn/myBuzzn-backend-sub000/internal/ledger/domain"
)

// KafkaPublisher sends appended rows to a topic, keyed by meter id, for the
// live broadcast consumers.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaProducer dials a sync producer tuned for small, ordered messages.
func NewKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("ledger kafka: no brokers")
	}
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	cfg.Producer.Timeout = 5 * time.Second
	return sarama.NewSyncProducer(brokers, cfg)
}

// NewKafkaPublisher wraps an existing producer.
func NewKafkaPublisher(producer sarama.SyncProducer, topic string) (*KafkaPublisher, error) {
	if producer == nil {
		return nil, errors.New("ledger kafka: nil producer")
	}
	if topic == "" {
		return nil, errors.New("ledger kafka: empty topic")
	}
	return &KafkaPublisher{producer: producer, topic: topic}, nil
}

// PublishRow sends the row in per-capita naming.
func (p *KafkaPublisher) PublishRow(ctx context.Context, row ledger.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(row.PerCapita())
	if err != nil {
		return err
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(row.MeterID),
		Value: sarama.ByteEncoder(payload),
	})
	return err
}

// Close closes the producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
