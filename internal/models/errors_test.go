package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewValidationError("bad"), fiber.StatusBadRequest},
		{NewUnauthorizedError("no"), fiber.StatusUnauthorized},
		{NewCredentialExpiredError(), fiber.StatusUnauthorized},
		{NewForbiddenError("no"), fiber.StatusForbidden},
		{NewSelfApplicationError(), fiber.StatusForbidden},
		{NewNotFoundError("Service", 1), fiber.StatusNotFound},
		{NewConflictError("busy"), fiber.StatusConflict},
		{NewDuplicateApplicationError(), fiber.StatusConflict},
		{NewInvalidTransitionError(ApplicationAccepted, ApplicationRejected), fiber.StatusConflict},
		{NewInternalError(errors.New("db down")), fiber.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NewForbiddenError("no")), fiber.StatusForbidden},
		{fiber.NewError(fiber.StatusTooManyRequests, "slow down"), fiber.StatusTooManyRequests},
		{errors.New("plain"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "%v", tt.err)
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("apply: %w", NewDuplicateApplicationError())
	assert.True(t, HasCode(err, CodeDuplicate))
	assert.False(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(errors.New("x"), CodeDuplicate))
}

func respond(t *testing.T, err error, expose bool) (int, ErrorResponse) {
	t.Helper()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return RespondWithError(c, err, expose) })

	resp, testErr := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, testErr)
	body, _ := io.ReadAll(resp.Body)

	var out ErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return resp.StatusCode, out
}

func TestRespondWithError_HidesInternalDetails(t *testing.T) {
	status, body := respond(t, NewInternalError(errors.New("pq: connection refused")), false)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, CodeInternal, body.Code)
	assert.Equal(t, "Internal server error", body.Error)
	assert.Empty(t, body.Details)

	_, body = respond(t, NewInternalError(errors.New("pq: connection refused")), true)
	assert.Equal(t, "pq: connection refused", body.Details)

	status, body = respond(t, errors.New("raw failure"), false)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Empty(t, body.Details)
}

func TestRespondWithError_FieldDetail(t *testing.T) {
	status, body := respond(t, NewFieldValidationError("Validation failed", map[string]string{"title": "too short"}), false)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, CodeValidation, body.Code)
	assert.Equal(t, "too short", body.Fields["title"])
}
