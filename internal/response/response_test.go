package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paywave/paywave/internal/apperr"
	"github.com/paywave/paywave/internal/logging"
)

func render(t *testing.T, err error) (int, Envelope) {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.Discard())})
	app.Get("/", func(*fiber.Ctx) error { return err })

	resp, testErr := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, testErr)
	defer resp.Body.Close()

	var env Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestErrorHandlerMapsKinds(t *testing.T) {
	notFound := apperr.New(apperr.KindNotFound, "X_NOT_FOUND", "x not found")

	status, env := render(t, notFound)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Status)
	assert.Equal(t, "x not found", env.Message)

	status, env = render(t, apperr.Validation("bad", map[string]string{"amount": "is required"}))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "is required", env.Errors["amount"])

	status, _ = render(t, apperr.New(apperr.KindUnknownOutcome, "OUTCOME_UNKNOWN", "pending"))
	assert.Equal(t, http.StatusAccepted, status)
}

func TestErrorHandlerHidesUpstreamDetail(t *testing.T) {
	status, env := render(t, apperr.Upstream("rail said no", errors.New("secret key invalid")))
	assert.Equal(t, http.StatusBadGateway, status)
	assert.NotContains(t, env.Message, "secret")
}

func TestErrorHandlerUnclassified(t *testing.T) {
	status, env := render(t, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", env.Message)
}
