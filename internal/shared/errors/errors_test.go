package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error includes wrapped cause", func(t *testing.T) {
		err := Internal("server error", errors.New("disk full"))
		assert.Equal(t, "server error: disk full", err.Error())
	})

	t.Run("Unwrap exposes cause", func(t *testing.T) {
		cause := errors.New("disk full")
		err := Internal("", cause)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "server error", err.Message)
	})

	t.Run("Is compares codes", func(t *testing.T) {
		assert.ErrorIs(t, BadRequest("url is required"), BadRequest("other"))
		assert.NotErrorIs(t, BadRequest("x"), NotFound("x"))
	})
}

func TestGetStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad request", BadRequest("missing"), http.StatusBadRequest},
		{"not found", NotFound("history"), http.StatusNotFound},
		{"internal", Internal("", nil), http.StatusInternalServerError},
		{"unavailable", ServiceUnavailable(""), http.StatusServiceUnavailable},
		{"wrapped sentinel", fmt.Errorf("load: %w", ErrNotFound), http.StatusNotFound},
		{"wrapped app error", fmt.Errorf("handler: %w", BadRequest("x")), http.StatusBadRequest},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetStatusCode(tt.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "url is required", PublicMessage(BadRequest("url is required")))
	assert.Equal(t, "server error", PublicMessage(errors.New("open /data/users.json: no such file")))
}
