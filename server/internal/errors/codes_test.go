package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSamayError(t *testing.T) {
	cause := stderrors.New("database is locked")
	err := StoreError("failed to insert alarm", cause).WithContext("kind", "alarm")

	assert.Equal(t, "[STORE_ERROR] failed to insert alarm: database is locked", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "alarm", err.Context["kind"])
	assert.Equal(t, "[NOT_FOUND] reminder 7", NotFound("reminder 7").Error())
}

func TestIsCodeFollowsChain(t *testing.T) {
	wrapped := fmt.Errorf("handle utterance: %w", ParseFailure("no temporal expression", nil))

	assert.True(t, IsCode(wrapped, ErrCodeParseFailure))
	assert.False(t, IsCode(wrapped, ErrCodeStoreError))
	assert.False(t, IsCode(stderrors.New("plain"), ErrCodeParseFailure))
	assert.Equal(t, ErrCodeParseFailure, GetCodeFromError(wrapped, ErrCodeInternal))
	assert.Equal(t, ErrCodeInternal, GetCodeFromError(stderrors.New("plain"), ErrCodeInternal))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeParseFailure, http.StatusUnprocessableEntity},
		{ErrCodeResolutionError, http.StatusUnprocessableEntity},
		{ErrCodeInvalidArgument, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeStoreError, http.StatusServiceUnavailable},
		{ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestUserMessageTreatsResolutionLikeParse(t *testing.T) {
	assert.Equal(t, UserMessage(ErrCodeParseFailure), UserMessage(ErrCodeResolutionError))
	assert.NotEmpty(t, UserMessage(ErrorCode("UNKNOWN")))
}
