package transport

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
)

type Compression string

const (
	CompressionAuto   Compression = "auto"
	CompressionNone   Compression = "none"
	CompressionGzip   Compression = "gzip"
	CompressionSnappy Compression = "snappy"
)

var ErrUnknownCompression = errors.New("transport: unknown compression")

var (
	gzipMagic   = []byte{0x1f, 0x8b}
	snappyMagic = []byte{0xff, 0x06, 0x00, 0x00, 0x73, 0x4e, 0x61, 0x50, 0x70, 0x59}
)

func ParseCompression(raw string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(raw))); c {
	case "":
		return CompressionAuto, nil
	case CompressionAuto, CompressionNone, CompressionGzip, CompressionSnappy:
		return c, nil
	case "plain":
		return CompressionNone, nil
	case "gz":
		return CompressionGzip, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCompression, raw)
	}
}

// Detect sniffs the stream header without consuming it. Anything that is not
// gzip or a snappy framed stream is treated as plain.
func Detect(r *bufio.Reader) Compression {
	head, _ := r.Peek(len(snappyMagic))
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return CompressionGzip
	case bytes.Equal(head, snappyMagic):
		return CompressionSnappy
	default:
		return CompressionNone
	}
}

// ExtensionFor returns the conventional file suffix for c.
func ExtensionFor(c Compression) string {
	switch c {
	case CompressionGzip:
		return ".rawlog.gz"
	case CompressionSnappy:
		return ".rawlog.sz"
	default:
		return ".rawlog"
	}
}

// decompress wraps r according to c. The returned closer, if any, must be
// closed before the underlying source.
func decompress(r *bufio.Reader, c Compression) (io.Reader, io.Closer, error) {
	switch c {
	case CompressionNone:
		return r, nil, nil
	case CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("transport: gzip header: %w", err)
		}
		return zr, zr, nil
	case CompressionSnappy:
		return snappy.NewReader(r), nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownCompression, c)
	}
}

// compress wraps w according to c. The returned closer flushes the compressed
// trailer and must run before the underlying sink is closed.
func compress(w io.Writer, c Compression) (io.Writer, io.Closer, error) {
	switch c {
	case CompressionNone, CompressionAuto:
		return w, nil, nil
	case CompressionGzip:
		zw := gzip.NewWriter(w)
		return zw, zw, nil
	case CompressionSnappy:
		sw := snappy.NewBufferedWriter(w)
		return sw, sw, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownCompression, c)
	}
}

// NewDecodingReader detects the compression of r and returns a read channel
// over the decompressed bytes.
func NewDecodingReader(name string, r io.Reader, c Compression, closers ...io.Closer) (*Channel, Compression, error) {
	br := asBufioReader(r)
	if c == CompressionAuto {
		c = Detect(br)
	}
	dr, dc, err := decompress(br, c)
	if err != nil {
		return nil, c, err
	}
	if dc != nil {
		closers = append([]io.Closer{dc}, closers...)
	}
	return NewReader(name, dr, closers...), c, nil
}

// NewEncodingWriter returns a write channel that compresses into w.
func NewEncodingWriter(name string, w io.Writer, c Compression, closers ...io.Closer) (*Channel, error) {
	cw, cc, err := compress(w, c)
	if err != nil {
		return nil, err
	}
	if cc != nil {
		closers = append([]io.Closer{cc}, closers...)
	}
	return NewWriter(name, cw, closers...), nil
}
