package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// DefaultTopic carries email notifications.
const DefaultTopic = "notifications.email"

type producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Events() chan kafka.Event
	Flush(timeoutMs int) int
	Close()
}

// KafkaDispatcher publishes notifications to a Kafka topic with a long-lived
// producer. Delivery reports are drained in the background and failures logged.
type KafkaDispatcher struct {
	producer producer
	topic    string
	logger   *slog.Logger
	done     chan struct{}
}

// NewKafkaDispatcher connects a producer to brokers.
func NewKafkaDispatcher(brokers, topic string, logger *slog.Logger) (*KafkaDispatcher, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  brokers,
		"acks":               "all",
		"enable.idempotence": true,
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return newKafkaDispatcher(p, topic, logger), nil
}

func newKafkaDispatcher(p producer, topic string, logger *slog.Logger) *KafkaDispatcher {
	if topic == "" {
		topic = DefaultTopic
	}
	d := &KafkaDispatcher{producer: p, topic: topic, logger: logger, done: make(chan struct{})}
	go d.drain()
	return d
}

func (d *KafkaDispatcher) drain() {
	defer close(d.done)
	for ev := range d.producer.Events() {
		switch e := ev.(type) {
		case *kafka.Message:
			if e.TopicPartition.Error != nil {
				d.logger.Error("notification delivery failed",
					slog.String("topic", d.topic),
					slog.String("key", string(e.Key)),
					slog.Any("error", e.TopicPartition.Error))
			}
		case kafka.Error:
			d.logger.Error("kafka producer error", slog.Any("error", e))
		}
	}
}

// Enqueue serialises message and hands it to the producer. The recipient is
// the partition key so one user's messages stay ordered.
func (d *KafkaDispatcher) Enqueue(ctx context.Context, message Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := Encode(message)
	if err != nil {
		return err
	}
	return d.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &d.topic, Partition: kafka.PartitionAny},
		Key:            []byte(message.Recipient),
		Value:          payload,
		Headers:        []kafka.Header{{Key: "kind", Value: []byte(message.Kind)}},
	}, nil)
}

// Close flushes outstanding messages and stops the producer.
func (d *KafkaDispatcher) Close() {
	if remaining := d.producer.Flush(5000); remaining > 0 {
		d.logger.Warn("notifications left unflushed", slog.Int("count", remaining))
	}
	d.producer.Close()
	<-d.done
}
