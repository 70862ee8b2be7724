package protocol

import (
	"errors"
	"fmt"
)

// Serializable is the versioned codec contract every persisted type implements.
//
// Encode always writes the CurrentVersion layout. Decode must accept every
// version from 0 to CurrentVersion and fill defaults for fields that the
// decoded version predates.
type Serializable interface {
	CurrentVersion() uint8
	Encode(out *Archive) error
	Decode(in *Archive, version uint8) error
}

// DecodeFunc reads one historical layout into v.
type DecodeFunc[T any] func(in *Archive, v T) error

// VersionTable dispatches decoding by version; index i decodes version i.
type VersionTable[T any] struct {
	typeName string
	decoders []DecodeFunc[T]
}

// NewVersionTable lists the decoders of every version in order, oldest first.
// It panics when the list is empty or longer than the version byte allows,
// which is a programming error in the type's declaration.
func NewVersionTable[T any](typeName string, decoders ...DecodeFunc[T]) VersionTable[T] {
	if len(decoders) == 0 || len(decoders) > 256 {
		panic(fmt.Sprintf("protocol: %s: version table needs 1..256 decoders, got %d", typeName, len(decoders)))
	}
	for i, d := range decoders {
		if d == nil {
			panic(fmt.Sprintf("protocol: %s: nil decoder for version %d", typeName, i))
		}
	}
	return VersionTable[T]{typeName: typeName, decoders: decoders}
}

// Current is the newest version the table knows.
func (t VersionTable[T]) Current() uint8 {
	return uint8(len(t.decoders) - 1)
}

func (t VersionTable[T]) Decode(in *Archive, v T, version uint8) error {
	if int(version) >= len(t.decoders) {
		return in.Fail(&UnsupportedVersionError{TypeName: t.typeName, Version: version, Current: t.Current()})
	}
	if err := t.decoders[version](in, v); err != nil {
		return in.Fail(err)
	}
	return in.Err()
}

// EncodePayload returns the current-version payload of obj without an envelope.
func EncodePayload(obj Serializable, opts ...Option) ([]byte, error) {
	buf := NewBuffer(nil)
	a := NewArchive(buf, opts...)
	if err := obj.Encode(a); err != nil {
		return nil, err
	}
	if err := a.Err(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodePayload decodes payload as the given version of obj. The payload must
// be consumed exactly.
func DecodePayload(obj Serializable, version uint8, payload []byte, opts ...Option) error {
	a := NewArchive(NewBuffer(payload), opts...)
	return decodeExact(a, obj, version)
}

func decodeExact(a *Archive, obj Serializable, version uint8) error {
	err := obj.Decode(a, version)
	if err == nil {
		err = a.Err()
	}
	if err != nil {
		if errors.Is(err, ErrTruncated) {
			return fmt.Errorf("%w: payload ended early: %w", ErrPayloadLength, err)
		}
		return err
	}
	if buf, ok := a.t.(*Buffer); ok && buf.Len() > 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrPayloadLength, buf.Len())
	}
	return nil
}
