package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const workerGroupID = "notification-mailer-group"

// Sender delivers one decoded notification.
type Sender interface {
	Send(ctx context.Context, message Message) error
}

type consumer interface {
	ReadMessage(timeout time.Duration) (*kafka.Message, error)
	Close() error
}

// Worker consumes the notification topic and hands each message to a Sender.
type Worker struct {
	consumer consumer
	sender   Sender
	logger   *slog.Logger
	poll     time.Duration
}

// NewWorker subscribes a consumer group to topic.
func NewWorker(brokers, topic string, sender Sender, logger *slog.Logger) (*Worker, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"group.id":          workerGroupID,
		"auto.offset.reset": "earliest",
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	if err := c.Subscribe(topic, nil); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return newWorker(c, sender, logger), nil
}

func newWorker(c consumer, sender Sender, logger *slog.Logger) *Worker {
	return &Worker{consumer: c, sender: sender, logger: logger, poll: 100 * time.Millisecond}
}

// Run polls until ctx is cancelled, then closes the consumer.
func (w *Worker) Run(ctx context.Context) error {
	defer func() {
		if err := w.consumer.Close(); err != nil {
			w.logger.Warn("close notification consumer", slog.Any("error", err))
		}
	}()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("notification worker stopping")
			return nil
		default:
		}

		msg, err := w.consumer.ReadMessage(w.poll)
		if err != nil {
			var kErr kafka.Error
			if errors.As(err, &kErr) && kErr.Code() == kafka.ErrTimedOut {
				continue
			}
			w.logger.Error("read notification", slog.Any("error", err))
			continue
		}
		w.handle(ctx, msg.Value)
	}
}

func (w *Worker) handle(ctx context.Context, value []byte) {
	message, err := Decode(value)
	if err != nil {
		w.logger.Error("discarding undecodable notification", slog.Any("error", err))
		return
	}
	if err := w.sender.Send(ctx, message); err != nil {
		w.logger.Error("notification send failed",
			slog.String("kind", string(message.Kind)),
			slog.String("recipient", message.Recipient),
			slog.Any("error", err))
		return
	}
	w.logger.Info("notification sent", slog.String("kind", string(message.Kind)), slog.String("recipient", message.Recipient))
}
