package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("get task: %w", NotFound("Task not found"))

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "Task not found", appErr.Message)

	_, ok = As(errors.New("boom"))
	assert.False(t, ok)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusOf(Validation("bad")))
	assert.Equal(t, http.StatusBadRequest, StatusOf(Auth("Invalid username or password")))
	assert.Equal(t, http.StatusUnauthorized, StatusOf(Unauthorized("no token")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("duplicate key")
	err := &Error{Status: http.StatusBadRequest, Message: "Username already exists", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Username already exists: duplicate key", err.Error())
}
