package protocol

import (
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/rawlog/internal/protocol/frame"
)

// Envelope is one framed object: type name, version and opaque payload.
type Envelope = frame.Envelope

// WriteEnvelope frames env onto the transport as-is.
func (a *Archive) WriteEnvelope(env Envelope) error {
	if a.err != nil {
		return a.err
	}
	if err := frame.WriteEnvelope(transportWriter{a}, env, a.limits.frame()); err != nil {
		if isFrameError(err) {
			return a.Fail(err)
		}
		return a.Fail(&IOError{Op: "write", Err: err})
	}
	return nil
}

// ReadEnvelope reads the next framed object without decoding its payload.
// io.EOF at a clean boundary is returned but not recorded, so a caller can
// probe for more data.
func (a *Archive) ReadEnvelope() (Envelope, error) {
	if a.err != nil {
		return Envelope{}, a.err
	}
	env, err := frame.ReadEnvelope(transportReader{a}, a.limits.frame())
	if err != nil {
		if err == io.EOF {
			return Envelope{}, io.EOF
		}
		if isFrameError(err) {
			return Envelope{}, a.Fail(err)
		}
		return Envelope{}, a.Fail(readError(err))
	}
	return env, nil
}

// WriteNull writes the null-object sentinel.
func (a *Archive) WriteNull() error {
	return a.WriteEnvelope(Envelope{})
}

// WriteObject writes obj in its current version, framed with its registered
// type name. A nil obj, including a typed nil pointer, is written as null.
// Lookup and encode failures are returned without being recorded.
func (a *Archive) WriteObject(obj Serializable) error {
	_, err := a.writeObject(obj)
	return err
}

func (a *Archive) writeObject(obj Serializable) (Envelope, error) {
	if a.err != nil {
		return Envelope{}, a.err
	}
	if isNil(obj) {
		return Envelope{}, a.WriteNull()
	}
	env, err := a.encodeEnvelope(obj)
	if err != nil {
		// Nothing reached the transport, so the archive stays usable.
		return Envelope{}, err
	}
	return env, a.WriteEnvelope(env)
}

func (a *Archive) encodeEnvelope(obj Serializable) (Envelope, error) {
	name, err := a.registry.NameOf(obj)
	if err != nil {
		return Envelope{}, err
	}
	desc, _ := a.registry.Lookup(name)
	buf := NewBuffer(nil)
	inner := a.payloadArchive(buf)
	if err := obj.Encode(inner); err != nil {
		return Envelope{}, fmt.Errorf("protocol: encode %s: %w", name, err)
	}
	if err := inner.Err(); err != nil {
		return Envelope{}, fmt.Errorf("protocol: encode %s: %w", name, err)
	}
	return Envelope{TypeName: name, Version: desc.CurrentVersion, Payload: buf.Bytes()}, nil
}

// ReadObject reads and decodes the next framed object. A null sentinel yields
// (nil, nil). Decode failures are recorded on the archive.
func (a *Archive) ReadObject() (Serializable, error) {
	env, err := a.ReadEnvelope()
	if err != nil {
		if err == io.EOF {
			return nil, a.Fail(ErrTruncated)
		}
		return nil, err
	}
	obj, err := a.DecodeEnvelope(env)
	if err != nil {
		return nil, a.Fail(err)
	}
	return obj, nil
}

// DecodeEnvelope builds the object described by env. The payload is decoded
// against its own archive, so failures here never poison a.
func (a *Archive) DecodeEnvelope(env Envelope) (Serializable, error) {
	if env.IsNull() {
		return nil, nil
	}
	desc, ok := a.registry.Lookup(env.TypeName)
	if !ok {
		return nil, &UnknownTypeError{Name: env.TypeName}
	}
	if env.Version > desc.CurrentVersion {
		return nil, &UnsupportedVersionError{TypeName: env.TypeName, Version: env.Version, Current: desc.CurrentVersion}
	}
	obj := desc.Factory()
	if err := a.decodePayload(env, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// ReadObjectInto reads the next framed object into dst, which must be of the
// registered type named by the envelope. Null is rejected.
func (a *Archive) ReadObjectInto(dst Serializable) error {
	env, err := a.ReadEnvelope()
	if err != nil {
		if err == io.EOF {
			return a.Fail(ErrTruncated)
		}
		return err
	}
	want, err := a.registry.NameOf(dst)
	if err != nil {
		return a.Fail(err)
	}
	if env.TypeName != want {
		return a.Fail(fmt.Errorf("%w: want %s, got %q", ErrTypeMismatch, want, env.TypeName))
	}
	desc, _ := a.registry.Lookup(want)
	if env.Version > desc.CurrentVersion {
		return a.Fail(&UnsupportedVersionError{TypeName: env.TypeName, Version: env.Version, Current: desc.CurrentVersion})
	}
	return a.Fail(a.decodePayload(env, dst))
}

func (a *Archive) decodePayload(env Envelope, obj Serializable) error {
	if err := decodeExact(a.payloadArchive(NewBuffer(env.Payload)), obj, env.Version); err != nil {
		return fmt.Errorf("protocol: decode %s v%d: %w", env.TypeName, env.Version, err)
	}
	return nil
}

func isFrameError(err error) bool {
	return errors.Is(err, frame.ErrTruncated) ||
		errors.Is(err, frame.ErrPayloadTooLarge) ||
		errors.Is(err, frame.ErrTypeNameTooLong) ||
		errors.Is(err, frame.ErrInvalidTypeName) ||
		errors.Is(err, frame.ErrNameLenOverflow)
}
