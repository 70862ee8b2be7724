package transport

import (
	"bufio"
	"errors"
	"io"

	"github.com/danmuck/rawlog/internal/protocol"
)

const defaultBufferSize = 64 << 10

var (
	ErrReadOnly  = errors.New("transport: channel is read-only")
	ErrWriteOnly = errors.New("transport: channel is write-only")
)

// Channel is a buffered protocol.Transport over an io.Reader, an io.Writer,
// or both. Closers run in order on Close, after pending writes are flushed.
type Channel struct {
	name    string
	r       *bufio.Reader
	w       *bufio.Writer
	closers []io.Closer
	buf     []byte
	closed  bool
}

var _ protocol.Transport = (*Channel)(nil)
var _ protocol.Flusher = (*Channel)(nil)

func NewReader(name string, r io.Reader, closers ...io.Closer) *Channel {
	return &Channel{name: name, r: asBufioReader(r), closers: closers}
}

func NewWriter(name string, w io.Writer, closers ...io.Closer) *Channel {
	return &Channel{name: name, w: bufio.NewWriterSize(w, defaultBufferSize), closers: closers}
}

// NewReadWriter builds a duplex channel, typically over a network connection.
func NewReadWriter(name string, rw io.ReadWriter, closers ...io.Closer) *Channel {
	return &Channel{
		name:    name,
		r:       asBufioReader(rw),
		w:       bufio.NewWriterSize(rw, defaultBufferSize),
		closers: closers,
	}
}

func asBufioReader(r io.Reader) *bufio.Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return br
	}
	return bufio.NewReaderSize(r, defaultBufferSize)
}

func (c *Channel) Name() string {
	return c.name
}

func (c *Channel) ReadBytes(n int) ([]byte, error) {
	if c.closed {
		return nil, protocol.ErrClosed
	}
	if c.r == nil {
		return nil, ErrWriteOnly
	}
	if n <= 0 {
		return nil, nil
	}
	if cap(c.buf) < n {
		c.buf = make([]byte, n)
	}
	b := c.buf[:n]
	m, err := io.ReadFull(c.r, b)
	if err != nil {
		return b[:m], err
	}
	return b, nil
}

func (c *Channel) WriteBytes(p []byte) error {
	if c.closed {
		return protocol.ErrClosed
	}
	if c.w == nil {
		return ErrReadOnly
	}
	_, err := c.w.Write(p)
	return err
}

// AtEnd reports whether no further byte can be read.
func (c *Channel) AtEnd() bool {
	if c.closed || c.r == nil {
		return true
	}
	_, err := c.r.Peek(1)
	return err != nil
}

func (c *Channel) Flush() error {
	if c.closed {
		return protocol.ErrClosed
	}
	if c.w == nil {
		return nil
	}
	return c.w.Flush()
}

func (c *Channel) Close() error {
	if c.closed {
		return nil
	}
	var errs []error
	if c.w != nil {
		if err := c.w.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closed = true
	for _, closer := range c.closers {
		if closer == nil {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.buf = nil
	return errors.Join(errs...)
}
