package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paywave/paywave/internal/logging"
)

type queueStub struct {
	full   bool
	events []Event
}

func (q *queueStub) Submit(e Event) bool {
	if q.full {
		return false
	}
	q.events = append(q.events, e)
	return true
}

const chargeBody = `{"event":"charge.completed","data":{"id":4975363,"tx_ref":"ref-1","amount":100,"customer":{"email":"ada@example.com"}}}`

func newApp(q Submitter) *fiber.App {
	app := fiber.New()
	h := NewHandler("s3cret", q, logging.Discard())
	app.Post("/webhook/flw-webhook", h.Receive)
	return app
}

func post(t *testing.T, app *fiber.App, hash, body string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/flw-webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if hash != "" {
		req.Header.Set(HashHeader, hash)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestReceiveRejectsBadHash(t *testing.T) {
	q := &queueStub{}
	app := newApp(q)

	assert.Equal(t, http.StatusUnauthorized, post(t, app, "", chargeBody))
	assert.Equal(t, http.StatusUnauthorized, post(t, app, "wrong", chargeBody))
	assert.Empty(t, q.events)
}

func TestReceiveQueuesValidEvent(t *testing.T) {
	q := &queueStub{}
	app := newApp(q)

	assert.Equal(t, http.StatusOK, post(t, app, "s3cret", chargeBody))
	require.Len(t, q.events, 1)
	assert.Equal(t, KindChargeCompleted, q.events[0].Kind)
	assert.Equal(t, int64(4975363), q.events[0].ID)
	assert.Equal(t, "flw:charge.completed:4975363", q.events[0].Key())
}

func TestReceiveAcknowledgesMalformedBody(t *testing.T) {
	q := &queueStub{}
	app := newApp(q)

	assert.Equal(t, http.StatusOK, post(t, app, "s3cret", `{"event":`))
	assert.Equal(t, http.StatusOK, post(t, app, "s3cret", `{"event":"subscription.cancelled","data":{"id":1}}`))
	assert.Empty(t, q.events)
}

func TestReceiveAsksForRedeliveryWhenQueueIsFull(t *testing.T) {
	app := newApp(&queueStub{full: true})
	assert.Equal(t, http.StatusServiceUnavailable, post(t, app, "s3cret", chargeBody))
}

type recordingHandler struct {
	mu   sync.Mutex
	seen []Event
}

func (r *recordingHandler) HandleEvent(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, e)
	return nil
}

func TestPoolDrainsOnShutdown(t *testing.T) {
	h := &recordingHandler{}
	pool := NewPool(4, h, logging.Discard())
	pool.Start(2)

	for i := int64(1); i <= 3; i++ {
		require.True(t, pool.Submit(Event{Kind: KindChargeCompleted, ID: i}))
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))
	assert.Len(t, h.seen, 3)
}

func TestPoolSubmitFailsWhenFull(t *testing.T) {
	pool := NewPool(1, &recordingHandler{}, logging.Discard())
	require.True(t, pool.Submit(Event{ID: 1}))
	assert.False(t, pool.Submit(Event{ID: 2}))
}

func TestPoolRefusesEventsAfterShutdown(t *testing.T) {
	pool := NewPool(4, &recordingHandler{}, logging.Discard())
	pool.Start(1)
	require.NoError(t, pool.Shutdown(context.Background()))

	assert.NotPanics(t, func() {
		assert.False(t, pool.Submit(Event{Kind: KindChargeCompleted, ID: 1}))
	})
	require.NoError(t, pool.Shutdown(context.Background()))
}

func TestShutdownRacingSubmitDoesNotPanic(t *testing.T) {
	pool := NewPool(64, &recordingHandler{}, logging.Discard())
	pool.Start(2)

	var wg sync.WaitGroup
	for i := int64(1); i <= 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			pool.Submit(Event{Kind: KindChargeCompleted, ID: id})
		}(i)
	}
	require.NoError(t, pool.Shutdown(context.Background()))
	wg.Wait()
}

func TestParseEventFallsBackToTxRef(t *testing.T) {
	e, err := ParseEvent([]byte(`{"event":"transfer.completed","data":{"id":"77","reference":"disburse_x"}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(77), e.ID)
	assert.Equal(t, "disburse_x", e.Reference)

	e, err = ParseEvent([]byte(chargeBody))
	require.NoError(t, err)
	assert.Equal(t, "ref-1", e.Reference)
	assert.Equal(t, "ada@example.com", e.CustomerEmail)

	_, err = ParseEvent([]byte(`{"event":"charge.completed","data":{}}`))
	require.Error(t, err)
}
