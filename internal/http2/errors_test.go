package http2

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsReadError(t *testing.T) {
	assert.False(t, IsReadError(nil))
	assert.False(t, IsReadError(io.EOF))
	assert.False(t, IsReadError(ErrAgain))
	assert.False(t, IsReadError(fmt.Errorf("retry: %w", ErrAgain)))

	assert.True(t, IsReadError(errors.New("socket closed")))
	assert.True(t, IsReadError(io.ErrUnexpectedEOF))
	assert.True(t, IsReadError(NewStreamError(1, ErrCodeProtocolError, "bad frame")))
}

func TestResetCodeForError(t *testing.T) {
	assert.Equal(t, ErrCodeRefusedStream,
		ResetCodeForError(NewStreamError(2, ErrCodeRefusedStream, "no thanks")))
	assert.Equal(t, ErrCodeCompressionError,
		ResetCodeForError(NewConnectionError(ErrCodeCompressionError, "table desync")))
	assert.Equal(t, ErrCodeFlowControlError,
		ResetCodeForError(fmt.Errorf("wrapped: %w", NewStreamError(3, ErrCodeFlowControlError, "over"))))
	assert.Equal(t, ErrCodeCancel, ResetCodeForError(errors.New("anything else")))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	se := NewStreamErrorWithCause(1, ErrCodeInternalError, "wrapped", cause)
	assert.ErrorIs(t, se, cause)
	assert.Contains(t, se.Error(), "root cause")

	ce := NewConnectionErrorWithCause(ErrCodeProtocolError, "wrapped", cause)
	assert.ErrorIs(t, ce, cause)
}

func TestErrorCodeString(t *testing.T) {
	assert.Equal(t, "NO_ERROR", ErrCodeNoError.String())
	assert.Equal(t, "REFUSED_STREAM", ErrCodeRefusedStream.String())
	assert.Equal(t, "UNKNOWN_ERROR_CODE_255", ErrorCode(255).String())
}
