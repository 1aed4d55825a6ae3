package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "failed to load agent")

	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeInternal))
	assert.Contains(t, err.Error(), "failed to load agent")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHasCode(t *testing.T) {
	err := New(CodeConflict, "agent DID already registered")

	assert.True(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeConflict))
	assert.False(t, HasCode(nil, CodeConflict))
}

func TestHasCodeThroughWrapping(t *testing.T) {
	inner := New(CodeUnauthorized, "invalid signature")
	outer := fmt.Errorf("handling request: %w", inner)

	assert.True(t, HasCode(outer, CodeUnauthorized))
	assert.Equal(t, CodeUnauthorized, CodeOf(outer))
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "agent not found", MessageOf(New(CodeNotFound, "agent not found")))
	assert.Equal(t, "unexpected error", MessageOf(errors.New("sql: connection reset")),
		"non-domain errors must not leak internals")
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeBadRequest:         http.StatusBadRequest,
		CodeInvariantViolation: http.StatusBadRequest,
		CodeUnauthorized:       http.StatusUnauthorized,
		CodeNotFound:           http.StatusNotFound,
		CodeConflict:           http.StatusConflict,
		CodeTimeout:            http.StatusGatewayTimeout,
		CodeInternal:           http.StatusInternalServerError,
		Code("unknown"):        http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), "code %s", code)
	}
}
