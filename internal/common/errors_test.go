package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *Error
		want string
		kind Kind
	}{
		{"dir_not_found", ErrDirectoryNotFound("docs"), `Directory "docs" not found`, KindNotFound},
		{"file_not_found", ErrFileNotFound("annar"), `File "annar" not found`, KindNotFound},
		{"entry_not_found", ErrEntryNotFound("x"), `Entry "x" not found`, KindNotFound},
		{"not_empty", ErrDirectoryNotEmpty("first"), `Directory "first" is not empty`, KindNotEmpty},
		{"type_mismatch", ErrTypeMismatch(), "The path supplied exists, but was not an entry of requested type.", KindTypeMismatch},
		{"unsupported", ErrUnsupportedType(), "Writing unsupported type", KindUnsupportedType},
		{"unsupported_data", ErrUnsupportedDataType(), "Writing unsupported data type", KindUnsupportedType},
		{"locked", ErrStreamLocked(), "Invalid state: WritableStream is locked", KindInvalidState},
		{"closed", ErrStreamClosed(), "Invalid state: WritableStream is closed", KindInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
			assert.Equal(t, tt.kind, tt.err.Kind)
		})
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindNotFound, KindOf(ErrFileNotFound("x")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))

	wrapped := fmt.Errorf("outer: %w", ErrDirectoryNotEmpty("d"))
	assert.Equal(t, KindNotEmpty, KindOf(wrapped))
}

func TestWrapErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("socket reset")
	err := WrapError(KindIO, "", cause)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "socket reset", err.Error())

	withMsg := WrapError(KindConnectFailed, "connect failed", cause)
	assert.Equal(t, "connect failed", withMsg.Error())
	require.ErrorIs(t, withMsg, cause)
}
