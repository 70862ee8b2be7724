package protocol

import (
	"errors"
	"fmt"

	"github.com/danmuck/rawlog/internal/protocol/frame"
)

var (
	ErrIO                    = errors.New("protocol: io failure")
	ErrClosed                = errors.New("protocol: archive closed")
	ErrTruncated             = frame.ErrTruncated
	ErrPayloadTooLarge       = frame.ErrPayloadTooLarge
	ErrTypeNameTooLong       = frame.ErrTypeNameTooLong
	ErrInvalidTypeName       = frame.ErrInvalidTypeName
	ErrPayloadLength         = errors.New("protocol: payload length mismatch")
	ErrInvalidBool           = errors.New("protocol: invalid bool value")
	ErrInvalidUTF8           = errors.New("protocol: invalid utf-8 string")
	ErrSequenceTooLong       = errors.New("protocol: sequence too long")
	ErrUnknownType           = errors.New("protocol: unknown type")
	ErrUnsupportedVersion    = errors.New("protocol: unsupported version")
	ErrDuplicateRegistration = errors.New("protocol: duplicate registration")
	ErrInvalidFactory        = errors.New("protocol: invalid factory")
	ErrVersionMismatch       = errors.New("protocol: declared version mismatch")
	ErrTypeMismatch          = errors.New("protocol: unexpected object type")
)

// IOError is a transport-level failure. It matches ErrIO.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("protocol: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// UnknownTypeError names a type that is absent from the registry.
type UnknownTypeError struct {
	Name string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("protocol: unknown type %q", e.Name)
}

func (e *UnknownTypeError) Is(target error) bool { return target == ErrUnknownType }

// UnsupportedVersionError reports a version newer than the compiled type knows.
type UnsupportedVersionError struct {
	TypeName string
	Version  uint8
	Current  uint8
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("protocol: %s: unsupported version %d (current %d)", e.TypeName, e.Version, e.Current)
}

func (e *UnsupportedVersionError) Is(target error) bool { return target == ErrUnsupportedVersion }

// RecordError wraps a failure reading one stream record.
// Resumable is true when the envelope was consumed in full, so the stream is
// positioned at the next envelope.
type RecordError struct {
	Index     int64
	TypeName  string
	Version   uint8
	Resumable bool
	Err       error
}

func (e *RecordError) Error() string {
	if e.TypeName == "" {
		return fmt.Sprintf("protocol: record %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("protocol: record %d (%s v%d): %v", e.Index, e.TypeName, e.Version, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

func closedError(op string) error {
	return &IOError{Op: op, Err: ErrClosed}
}
