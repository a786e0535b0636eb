package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrConfig, "inventory file not found")
	assert.Equal(t, "CONFIG: inventory file not found", err.Error())

	wrapped := Wrap(stderrors.New("permission denied"), ErrConnection, "can't reach host")
	assert.Equal(t, "CONNECTION: can't reach host: permission denied", wrapped.Error())
}

func TestNewf(t *testing.T) {
	err := Newf(ErrNotFound, "credential not found: %s", "deploy")
	assert.Equal(t, "NOT_FOUND: credential not found: deploy", err.Error())
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("dial tcp: timeout")
	err := Wrap(cause, ErrTimeout, "probe timed out")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Unwrap())
}

func TestIsCode(t *testing.T) {
	err := New(ErrSession, "shell closed")

	assert.True(t, IsCode(err, ErrSession))
	assert.False(t, IsCode(err, ErrConfig))
	assert.False(t, IsCode(nil, ErrSession))
	assert.False(t, IsCode(stderrors.New("plain"), ErrSession))

	// Codes survive fmt wrapping.
	deep := fmt.Errorf("outer: %w", err)
	assert.True(t, IsCode(deep, ErrSession))
}

func TestCode(t *testing.T) {
	assert.Equal(t, ErrCheck, Code(New(ErrCheck, "boom")))
	assert.Equal(t, "", Code(stderrors.New("plain")))
	assert.Equal(t, "", Code(nil))
}
