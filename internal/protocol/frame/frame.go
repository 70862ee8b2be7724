package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode"
	"unicode/utf8"
)

const (
	// VersionLen is the size of the version byte that follows the type name.
	VersionLen = 1
	// PayloadLenSize is the size of the little-endian payload length.
	PayloadLenSize = 4

	DefaultMaxTypeNameLen  = 255
	DefaultMaxPayloadBytes = 64 * 1024 * 1024
)

var (
	ErrTruncated       = errors.New("frame: truncated envelope")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrTypeNameTooLong = errors.New("frame: type name too long")
	ErrInvalidTypeName = errors.New("frame: invalid type name")
	ErrNameLenOverflow = errors.New("frame: type name length overflow")
)

// Envelope is one self-describing object unit on the wire.
// An Envelope with an empty TypeName is the null sentinel and carries nothing else.
type Envelope struct {
	TypeName string
	Version  uint8
	Payload  []byte
}

// IsNull reports whether e is the null-object sentinel.
func (e Envelope) IsNull() bool {
	return e.TypeName == ""
}

// Size returns the number of bytes e occupies on the wire.
func (e Envelope) Size() int {
	if e.IsNull() {
		return 1
	}
	return uvarintLen(uint64(len(e.TypeName))) + len(e.TypeName) + VersionLen + PayloadLenSize + len(e.Payload)
}

// Limits constrains envelope decode/encode memory use.
type Limits struct {
	MaxTypeNameLen  int
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxTypeNameLen:  DefaultMaxTypeNameLen,
		MaxPayloadBytes: DefaultMaxPayloadBytes,
	}
}

// WithDefaults fills unset limits with the package defaults.
func (l Limits) WithDefaults() Limits {
	if l.MaxTypeNameLen <= 0 {
		l.MaxTypeNameLen = DefaultMaxTypeNameLen
	}
	if l.MaxPayloadBytes == 0 {
		l.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	return l
}

// ValidateTypeName checks a non-null type name against the wire rules.
func ValidateTypeName(name string, maxLen int) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTypeName)
	}
	if maxLen > 0 && len(name) > maxLen {
		return fmt.Errorf("%w: %d bytes, max %d", ErrTypeNameTooLong, len(name), maxLen)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: not valid utf-8", ErrInvalidTypeName)
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains whitespace or control characters", ErrInvalidTypeName, name)
		}
	}
	return nil
}

// EncodeHeader returns the wire bytes that precede the payload.
func EncodeHeader(typeName string, version uint8, payloadLen uint32) []byte {
	if typeName == "" {
		return []byte{0}
	}
	buf := make([]byte, 0, binary.MaxVarintLen64+len(typeName)+VersionLen+PayloadLenSize)
	buf = binary.AppendUvarint(buf, uint64(len(typeName)))
	buf = append(buf, typeName...)
	buf = append(buf, version)
	buf = binary.LittleEndian.AppendUint32(buf, payloadLen)
	return buf
}

func WriteEnvelope(w io.Writer, env Envelope, limits Limits) error {
	if env.IsNull() {
		_, err := w.Write([]byte{0})
		return err
	}
	limits = limits.WithDefaults()
	if err := ValidateTypeName(env.TypeName, limits.MaxTypeNameLen); err != nil {
		return err
	}
	if uint64(len(env.Payload)) > uint64(limits.MaxPayloadBytes) {
		return fmt.Errorf("%w: %d bytes, max %d", ErrPayloadTooLarge, len(env.Payload), limits.MaxPayloadBytes)
	}

	if _, err := w.Write(EncodeHeader(env.TypeName, env.Version, uint32(len(env.Payload)))); err != nil {
		return err
	}
	if len(env.Payload) > 0 {
		if _, err := w.Write(env.Payload); err != nil {
			return err
		}
	}
	return nil
}

// ReadEnvelope reads one envelope from r. It returns io.EOF only when r is
// exhausted exactly at an envelope boundary; a shortfall after the first byte
// is ErrTruncated.
func ReadEnvelope(r io.Reader, limits Limits) (Envelope, error) {
	limits = limits.WithDefaults()
	nameLen, err := readUvarint(asByteReader(r))
	if err != nil {
		return Envelope{}, err
	}
	if nameLen == 0 {
		return Envelope{}, nil
	}
	if nameLen > uint64(limits.MaxTypeNameLen) {
		return Envelope{}, fmt.Errorf("%w: %d bytes, max %d", ErrTypeNameTooLong, nameLen, limits.MaxTypeNameLen)
	}

	fixed := make([]byte, int(nameLen)+VersionLen+PayloadLenSize)
	if err := readFull(r, fixed); err != nil {
		return Envelope{}, err
	}
	name := string(fixed[:nameLen])
	if err := ValidateTypeName(name, limits.MaxTypeNameLen); err != nil {
		return Envelope{}, err
	}
	env := Envelope{TypeName: name, Version: fixed[nameLen]}
	payloadLen := binary.LittleEndian.Uint32(fixed[nameLen+VersionLen:])
	if payloadLen > limits.MaxPayloadBytes {
		return Envelope{}, fmt.Errorf("%w: %d bytes, max %d", ErrPayloadTooLarge, payloadLen, limits.MaxPayloadBytes)
	}

	env.Payload = make([]byte, payloadLen)
	if payloadLen > 0 {
		if err := readFull(r, env.Payload); err != nil {
			return Envelope{}, err
		}
	}
	return env, nil
}

func readFull(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrTruncated
		}
		return err
	}
	return nil
}

// readUvarint returns io.EOF only when no byte of the varint was available.
func readUvarint(br io.ByteReader) (uint64, error) {
	var x uint64
	var s uint
	for i := 0; i < binary.MaxVarintLen64; i++ {
		b, err := br.ReadByte()
		if err != nil {
			if i > 0 && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)) {
				return 0, ErrTruncated
			}
			return 0, err
		}
		if b < 0x80 {
			if i == binary.MaxVarintLen64-1 && b > 1 {
				return 0, ErrNameLenOverflow
			}
			return x | uint64(b)<<s, nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, ErrNameLenOverflow
}

type byteReader struct {
	r   io.Reader
	buf [1]byte
}

func (b *byteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(b.r, b.buf[:]); err != nil {
		return 0, err
	}
	return b.buf[0], nil
}

func asByteReader(r io.Reader) io.ByteReader {
	if br, ok := r.(io.ByteReader); ok {
		return br
	}
	return &byteReader{r: r}
}

func uvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}
