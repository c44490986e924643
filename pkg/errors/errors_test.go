package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesTemplate(t *testing.T) {
	err := Clone(ErrCapacity, "room 101 is full")
	assert.True(t, stdErrors.Is(err, ErrCapacity))
	assert.False(t, stdErrors.Is(err, ErrConflict))
	assert.Equal(t, "room 101 is full", err.Message)
	assert.Equal(t, "room is at full capacity", ErrCapacity.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)

	wrapped := fmt.Errorf("outer: %w", Clone(ErrInvalidState, "payment not pending"))
	assert.Equal(t, ErrInvalidState.Code, FromError(wrapped).Code)
	assert.Nil(t, FromError(nil))
}
