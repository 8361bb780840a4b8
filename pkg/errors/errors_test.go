package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	rejected := Clone(ErrUpstreamRejected, "Error del servidor (500)")
	wrapped := fmt.Errorf("save exit: %w", rejected)

	assert.True(t, Is(wrapped, ErrUpstreamRejected))
	assert.False(t, Is(wrapped, ErrSignInRequired))
	assert.False(t, Is(errors.New("plain"), ErrUpstreamRejected))
	assert.False(t, Is(nil, ErrUpstreamRejected))
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, "internal server error: boom", err.Error())
}

func TestCloneKeepsOriginal(t *testing.T) {
	clone := Clone(ErrValidation, "motive is required")
	assert.Equal(t, "motive is required", clone.Message)
	assert.Equal(t, "validation failed", ErrValidation.Message)
}
