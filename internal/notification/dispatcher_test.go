package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/paywave/paywave/internal/logging"
)

type dispatcherMock struct{ mock.Mock }

func (m *dispatcherMock) Enqueue(ctx context.Context, message Message) error {
	return m.Called(ctx, message).Error(0)
}

func TestNotifySwallowsErrorsAndBoundsContext(t *testing.T) {
	d := &dispatcherMock{}
	d.On("Enqueue", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= EnqueueTimeout
	}), mock.Anything).Return(errors.New("broker down")).Once()

	parent, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NotPanics(t, func() {
		Notify(parent, d, logging.Discard(), NewOneTimeCode("ada@example.com", OneTimeCode{Code: "123456"}))
	})
	d.AssertExpectations(t)
}

func TestNotifyNilDispatcher(t *testing.T) {
	assert.NotPanics(t, func() {
		Notify(context.Background(), nil, logging.Discard(), Message{})
	})
}
