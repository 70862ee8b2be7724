package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

func (a *Archive) ReadUint8() (uint8, error) {
	b, err := a.read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (a *Archive) ReadInt8() (int8, error) {
	v, err := a.ReadUint8()
	return int8(v), err
}

func (a *Archive) ReadUint16() (uint16, error) {
	b, err := a.read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (a *Archive) ReadInt16() (int16, error) {
	v, err := a.ReadUint16()
	return int16(v), err
}

func (a *Archive) ReadUint32() (uint32, error) {
	b, err := a.read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (a *Archive) ReadInt32() (int32, error) {
	v, err := a.ReadUint32()
	return int32(v), err
}

func (a *Archive) ReadUint64() (uint64, error) {
	b, err := a.read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (a *Archive) ReadInt64() (int64, error) {
	v, err := a.ReadUint64()
	return int64(v), err
}

func (a *Archive) ReadFloat32() (float32, error) {
	v, err := a.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (a *Archive) ReadFloat64() (float64, error) {
	v, err := a.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func (a *Archive) ReadBool() (bool, error) {
	v, err := a.ReadUint8()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, a.Fail(fmt.Errorf("%w: %d", ErrInvalidBool, v))
	}
}

func (a *Archive) ReadString() (string, error) {
	n, err := a.readLen()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	b, err := a.read(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", a.Fail(ErrInvalidUTF8)
	}
	return string(b), nil
}

// ReadBytes reads a length-prefixed byte slice. The result is owned by the caller.
func (a *Archive) ReadBytes() ([]byte, error) {
	n, err := a.readLen()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return a.ReadRaw(n)
}

// ReadRaw reads exactly n bytes with no length prefix.
func (a *Archive) ReadRaw(n int) ([]byte, error) {
	b, err := a.read(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadTimestamp reads int64 Unix nanoseconds; 0 reads back as the zero time.
func (a *Archive) ReadTimestamp() (time.Time, error) {
	ns, err := a.ReadInt64()
	if err != nil {
		return time.Time{}, err
	}
	if ns == 0 {
		return time.Time{}, nil
	}
	return time.Unix(0, ns).UTC(), nil
}

func (a *Archive) readLen() (int, error) {
	n, err := a.ReadUint32()
	if err != nil {
		return 0, err
	}
	if n > a.limits.MaxPayloadBytes {
		return 0, a.Fail(fmt.Errorf("%w: %d bytes, max %d", ErrPayloadTooLarge, n, a.limits.MaxPayloadBytes))
	}
	return int(n), nil
}
