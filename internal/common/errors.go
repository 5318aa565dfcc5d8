// Copyright 2025 ShareFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"errors"
	"fmt"
)

// Kind classifies an error into the taxonomy shared by all layers.
// The driver assigns kinds at the submission boundary; the surface
// layer turns kinds into the externally visible messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindTypeMismatch
	KindNotEmpty
	KindInvalidName
	KindInvalidURL
	KindInvalidAuth
	KindInvalidState
	KindUnsupportedType
	KindPermissionDenied
	KindConnectFailed
	KindIO
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindTypeMismatch:
		return "type mismatch"
	case KindNotEmpty:
		return "not empty"
	case KindInvalidName:
		return "invalid name"
	case KindInvalidURL:
		return "invalid URL"
	case KindInvalidAuth:
		return "invalid auth"
	case KindInvalidState:
		return "invalid state"
	case KindUnsupportedType:
		return "unsupported type"
	case KindPermissionDenied:
		return "permission denied"
	case KindConnectFailed:
		return "connect failed"
	case KindIO:
		return "I/O error"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error carries a kind, the externally visible message, and the
// underlying cause (if any).
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an error of the given kind with a fixed message.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf builds an error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an error of the given kind wrapping a cause.
// When message is empty the cause's message is used verbatim.
func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// The messages below are the stable externally visible error contract.
// Callers must not reword them.

// ErrDirectoryNotFound reports a missing directory entry.
func ErrDirectoryNotFound(name string) *Error {
	return Errorf(KindNotFound, "Directory %q not found", name)
}

// ErrFileNotFound reports a missing file entry.
func ErrFileNotFound(name string) *Error {
	return Errorf(KindNotFound, "File %q not found", name)
}

// ErrEntryNotFound reports a missing removal target.
func ErrEntryNotFound(name string) *Error {
	return Errorf(KindNotFound, "Entry %q not found", name)
}

// ErrDirectoryNotEmpty reports a non-recursive removal of a populated directory.
func ErrDirectoryNotEmpty(name string) *Error {
	return Errorf(KindNotEmpty, "Directory %q is not empty", name)
}

// ErrTypeMismatch reports an entry of the wrong kind at an existing path.
func ErrTypeMismatch() *Error {
	return NewError(KindTypeMismatch, "The path supplied exists, but was not an entry of requested type.")
}

// ErrUnsupportedType reports a write payload that is not bytes or a string.
func ErrUnsupportedType() *Error {
	return NewError(KindUnsupportedType, "Writing unsupported type")
}

// ErrUnsupportedDataType reports a structured write whose data field has an
// unsupported shape.
func ErrUnsupportedDataType() *Error {
	return NewError(KindUnsupportedType, "Writing unsupported data type")
}

// ErrStreamLocked reports getWriter on a locked WritableStream.
func ErrStreamLocked() *Error {
	return NewError(KindInvalidState, "Invalid state: WritableStream is locked")
}

// ErrStreamClosed reports an operation on a closed WritableStream.
func ErrStreamClosed() *Error {
	return NewError(KindInvalidState, "Invalid state: WritableStream is closed")
}
