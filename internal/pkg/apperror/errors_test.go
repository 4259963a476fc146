package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeToHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrCodeNotFound:           http.StatusNotFound,
		ErrCodeConflict:           http.StatusConflict,
		ErrCodeInvalidTransition:  http.StatusUnprocessableEntity,
		ErrCodeAmountMismatch:     http.StatusUnprocessableEntity,
		ErrCodeGatewayUnavailable: http.StatusServiceUnavailable,
		ErrCodeExternalCall:       http.StatusBadGateway,
		ErrCodeValidation:         http.StatusBadRequest,
		ErrCodeDatabaseError:      http.StatusInternalServerError,
	}

	for code, status := range cases {
		assert.Equal(t, status, New(code, "x").HTTPStatus, code)
	}
}

func TestHasCode_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("offer service: %w", ErrAlreadyAccepted)

	assert.True(t, IsConflict(err))
	assert.False(t, IsNotFound(err))
	assert.ErrorIs(t, err, ErrAlreadyAccepted)
	assert.Equal(t, ErrCodeConflict, CodeOf(err))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, ErrCodeExternalCall, "шлюз не ответил")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("boom")))
}
