package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NewValidationError("bad", nil), http.StatusBadRequest},
		{NewNotFoundError("gone", nil), http.StatusNotFound},
		{NewFeatureDisabledError("cinematography"), http.StatusNotFound},
		{NewConflictError("stale", nil), http.StatusConflict},
		{NewTimeoutError("slow", nil), http.StatusGatewayTimeout},
		{NewPayloadTooLargeError("big"), http.StatusRequestEntityTooLarge},
		{NewUpstreamError(500, "boom"), http.StatusBadGateway},
		{NewProcessingError("oops", nil), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NewNotFoundError("panel 3", nil)), http.StatusNotFound},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestWrapErrorKeepsType(t *testing.T) {
	base := NewUpstreamError(413, "Request too large")
	wrapped := WrapError(base, "generate image", ErrorTypeError)

	assert.True(t, IsUpstreamError(wrapped))
	assert.Equal(t, "generate image: Request too large", Message(wrapped))

	var app *AppError
	assert.True(t, errors.As(wrapped, &app))
	assert.Equal(t, 413, app.Status)
	assert.Equal(t, "UPSTREAM_ERROR", app.Code)

	plain := WrapError(errors.New("disk full"), "save export", ErrorTypeError)
	assert.Equal(t, "save export: disk full", plain.Error())
	assert.Equal(t, "save export", Message(plain))

	assert.Nil(t, WrapError(nil, "x", ErrorTypeError))
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsValidationError(NewValidationError("x", nil)))
	assert.False(t, IsValidationError(NewConflictError("x", nil)))
	assert.True(t, IsPayloadTooLargeError(NewPayloadTooLargeError("x")))
	assert.True(t, IsFeatureDisabledError(NewFeatureDisabledError("script_refinement")))
	assert.Equal(t, "plain", Message(errors.New("plain")))

	_, ok := TypeOf(errors.New("plain"))
	assert.False(t, ok)
}
