package protocol

import "github.com/danmuck/rawlog/internal/protocol/frame"

const DefaultMaxSequenceLen = 1 << 24

// Transport is the byte channel an Archive reads from and writes to.
//
// ReadBytes returns exactly n bytes, io.EOF when no byte is available, or
// io.ErrUnexpectedEOF when the channel ends after a partial read. The returned
// slice is only valid until the next call. WriteBytes must not retain p.
type Transport interface {
	ReadBytes(n int) ([]byte, error)
	WriteBytes(p []byte) error
	AtEnd() bool
	Close() error
}

// Flusher is implemented by transports that buffer writes.
type Flusher interface {
	Flush() error
}

// Limits constrains decode memory use for envelopes and sequences.
type Limits struct {
	MaxTypeNameLen  int
	MaxPayloadBytes uint32
	MaxSequenceLen  uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxTypeNameLen:  frame.DefaultMaxTypeNameLen,
		MaxPayloadBytes: frame.DefaultMaxPayloadBytes,
		MaxSequenceLen:  DefaultMaxSequenceLen,
	}
}

func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.MaxTypeNameLen <= 0 {
		l.MaxTypeNameLen = def.MaxTypeNameLen
	}
	if l.MaxPayloadBytes == 0 {
		l.MaxPayloadBytes = def.MaxPayloadBytes
	}
	if l.MaxSequenceLen == 0 {
		l.MaxSequenceLen = def.MaxSequenceLen
	}
	return l
}

func (l Limits) frame() frame.Limits {
	return frame.Limits{MaxTypeNameLen: l.MaxTypeNameLen, MaxPayloadBytes: l.MaxPayloadBytes}
}
