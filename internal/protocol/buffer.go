package protocol

import "io"

// Buffer is an in-memory Transport. Writes append; reads consume from the front.
type Buffer struct {
	buf    []byte
	off    int
	closed bool
}

// NewBuffer returns a Buffer whose unread content is data.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{buf: data}
}

func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	if b.closed {
		return nil, ErrClosed
	}
	if n <= 0 {
		return nil, nil
	}
	avail := len(b.buf) - b.off
	if avail == 0 {
		return nil, io.EOF
	}
	if avail < n {
		out := b.buf[b.off:]
		b.off = len(b.buf)
		return out, io.ErrUnexpectedEOF
	}
	out := b.buf[b.off : b.off+n]
	b.off += n
	return out, nil
}

func (b *Buffer) WriteBytes(p []byte) error {
	if b.closed {
		return ErrClosed
	}
	b.buf = append(b.buf, p...)
	return nil
}

func (b *Buffer) AtEnd() bool {
	return b.off >= len(b.buf)
}

func (b *Buffer) Close() error {
	b.closed = true
	return nil
}

// Bytes returns the unread portion of the buffer.
func (b *Buffer) Bytes() []byte {
	return b.buf[b.off:]
}

// Len returns the number of unread bytes.
func (b *Buffer) Len() int {
	return len(b.buf) - b.off
}
