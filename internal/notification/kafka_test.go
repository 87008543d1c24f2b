package notification

import (
	"context"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paywave/paywave/internal/logging"
)

type fakeProducer struct {
	produced []*kafka.Message
	events   chan kafka.Event
}

func newFakeProducer() *fakeProducer { return &fakeProducer{events: make(chan kafka.Event, 8)} }

func (p *fakeProducer) Produce(msg *kafka.Message, _ chan kafka.Event) error {
	p.produced = append(p.produced, msg)
	return nil
}
func (p *fakeProducer) Events() chan kafka.Event { return p.events }
func (p *fakeProducer) Flush(int) int            { return 0 }
func (p *fakeProducer) Close()                   { close(p.events) }

func TestKafkaDispatcherProducesKeyedMessage(t *testing.T) {
	p := newFakeProducer()
	d := newKafkaDispatcher(p, "", logging.Discard())

	msg := NewBalanceAlert("ada@example.com", BalanceAlert{AlertType: AlertDebit, Amount: 500})
	require.NoError(t, d.Enqueue(context.Background(), msg))
	d.Close()

	require.Len(t, p.produced, 1)
	got := p.produced[0]
	assert.Equal(t, DefaultTopic, *got.TopicPartition.Topic)
	assert.Equal(t, "ada@example.com", string(got.Key))

	decoded, err := Decode(got.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(500), decoded.BalanceAlert.Amount)
}

func TestKafkaDispatcherHonoursCancelledContext(t *testing.T) {
	p := newFakeProducer()
	d := newKafkaDispatcher(p, "alerts", logging.Discard())
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, d.Enqueue(ctx, NewOneTimeCode("x@example.com", OneTimeCode{Code: "1"})), context.Canceled)
	assert.Empty(t, p.produced)
}
