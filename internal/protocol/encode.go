package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

func (a *Archive) WriteUint8(v uint8) error {
	a.scratch[0] = v
	return a.write(a.scratch[:1])
}

func (a *Archive) WriteInt8(v int8) error {
	return a.WriteUint8(uint8(v))
}

func (a *Archive) WriteUint16(v uint16) error {
	binary.LittleEndian.PutUint16(a.scratch[:2], v)
	return a.write(a.scratch[:2])
}

func (a *Archive) WriteInt16(v int16) error {
	return a.WriteUint16(uint16(v))
}

func (a *Archive) WriteUint32(v uint32) error {
	binary.LittleEndian.PutUint32(a.scratch[:4], v)
	return a.write(a.scratch[:4])
}

func (a *Archive) WriteInt32(v int32) error {
	return a.WriteUint32(uint32(v))
}

func (a *Archive) WriteUint64(v uint64) error {
	binary.LittleEndian.PutUint64(a.scratch[:8], v)
	return a.write(a.scratch[:8])
}

func (a *Archive) WriteInt64(v int64) error {
	return a.WriteUint64(uint64(v))
}

// WriteFloat32 writes the IEEE-754 bits of v. NaN and Inf are preserved.
func (a *Archive) WriteFloat32(v float32) error {
	return a.WriteUint32(math.Float32bits(v))
}

func (a *Archive) WriteFloat64(v float64) error {
	return a.WriteUint64(math.Float64bits(v))
}

func (a *Archive) WriteBool(v bool) error {
	b := uint8(0)
	if v {
		b = 1
	}
	return a.WriteUint8(b)
}

// WriteString writes a uint32 length prefix followed by the UTF-8 bytes of v.
func (a *Archive) WriteString(v string) error {
	if a.err != nil {
		return a.err
	}
	if !utf8.ValidString(v) {
		return a.Fail(ErrInvalidUTF8)
	}
	if err := a.writeLen(len(v)); err != nil {
		return err
	}
	if len(v) == 0 {
		return nil
	}
	return a.write([]byte(v))
}

// WriteBytes writes a uint32 length prefix followed by v.
func (a *Archive) WriteBytes(v []byte) error {
	if err := a.writeLen(len(v)); err != nil {
		return err
	}
	if len(v) == 0 {
		return nil
	}
	return a.write(v)
}

// WriteRaw writes v with no length prefix.
func (a *Archive) WriteRaw(v []byte) error {
	if len(v) == 0 {
		return a.err
	}
	return a.write(v)
}

// WriteTimestamp writes t as int64 Unix nanoseconds; the zero time is written as 0.
func (a *Archive) WriteTimestamp(t time.Time) error {
	if t.IsZero() {
		return a.WriteInt64(0)
	}
	return a.WriteInt64(t.UnixNano())
}

func (a *Archive) writeLen(n int) error {
	if a.err != nil {
		return a.err
	}
	if uint64(n) > uint64(a.limits.MaxPayloadBytes) {
		return a.Fail(fmt.Errorf("%w: %d bytes, max %d", ErrPayloadTooLarge, n, a.limits.MaxPayloadBytes))
	}
	return a.WriteUint32(uint32(n))
}
