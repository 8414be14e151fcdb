package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrAlreadyExists, ErrInvalidInput, ErrUnauthorized,
		ErrForbidden, ErrServiceUnavail, ErrPaymentFailed,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

func TestAppError_ErrorString(t *testing.T) {
	withCause := &AppError{Code: "INTERNAL_ERROR", Message: "boom", Err: fmt.Errorf("db down")}
	assert.Equal(t, "INTERNAL_ERROR: boom: db down", withCause.Error())

	bare := &AppError{Code: "NOT_FOUND", Message: "gone"}
	assert.Equal(t, "NOT_FOUND: gone", bare.Error())
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
	}{
		{"not found", NotFound("product", "p-1"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"already exists", AlreadyExists("user", "email", "a@b.com"), "ALREADY_EXISTS", http.StatusConflict, ErrAlreadyExists},
		{"invalid input", InvalidInput("name is required"), "INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput},
		{"unauthorized", Unauthorized("nope"), "UNAUTHORIZED", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", Forbidden("admins only"), "FORBIDDEN", http.StatusForbidden, ErrForbidden},
		{"unavailable", ServiceUnavailable("payments down"), "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, ErrServiceUnavail},
		{"payment failed", PaymentFailed("declined"), "PAYMENT_FAILED", http.StatusUnprocessableEntity, ErrPaymentFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.True(t, errors.Is(tt.err, tt.sentinel))
		})
	}
}

func TestNotFound_Message(t *testing.T) {
	err := NotFound("review", "r-9")
	assert.Contains(t, err.Message, "review")
	assert.Contains(t, err.Message, "r-9")
}

func TestInternal_HidesCause(t *testing.T) {
	err := Internal(fmt.Errorf("segfault"))
	assert.NotContains(t, err.Message, "segfault")
	assert.Contains(t, err.Error(), "segfault")
}

func TestHTTPStatus_AppErrorWinsOverSentinel(t *testing.T) {
	err := &AppError{Code: "NOT_FOUND", Status: http.StatusBadRequest, Err: ErrNotFound}
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(fmt.Errorf("lookup: %w", err)))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(Unauthorized("x")))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(fmt.Errorf("guard: %w", Unauthorized("x"))))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("wrap: %w", ErrNotFound)))
	assert.Equal(t, http.StatusConflict, HTTPStatus(ErrAlreadyExists))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrInvalidInput))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(ErrForbidden))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(ErrServiceUnavail))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(ErrPaymentFailed))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("random")))
}
