package rawlog

import (
	"github.com/danmuck/rawlog/internal/protocol"
	"github.com/danmuck/rawlog/internal/transport"
)

// Writer appends objects to a rawlog in their current versions.
type Writer struct {
	stream *protocol.Stream
	name   string
	count  int64
}

// Create creates the rawlog at path. CompressionAuto picks the format from
// the file extension.
func Create(path string, opts Options) (*Writer, error) {
	ch, err := transport.CreateFile(path, opts.compression())
	if err != nil {
		return nil, err
	}
	w := NewWriter(ch, opts)
	w.name = path
	return w, nil
}

func NewWriter(t protocol.Transport, opts Options) *Writer {
	return &Writer{stream: protocol.NewStream(t, opts.streamOptions()...)}
}

func (w *Writer) Name() string {
	return w.name
}

// Count returns the number of records written, nulls included.
func (w *Writer) Count() int64 {
	return w.count
}

func (w *Writer) Write(obj protocol.Serializable) error {
	if err := w.stream.WriteObject(obj); err != nil {
		return err
	}
	w.count++
	return nil
}

func (w *Writer) WriteNull() error {
	if err := w.stream.WriteNull(); err != nil {
		return err
	}
	w.count++
	return nil
}

// WriteEnvelope copies a record without decoding it.
func (w *Writer) WriteEnvelope(env protocol.Envelope) error {
	if err := w.stream.WriteEnvelope(env); err != nil {
		return err
	}
	w.count++
	return nil
}

func (w *Writer) Flush() error {
	return w.stream.Flush()
}

func (w *Writer) Close() error {
	return w.stream.Close()
}
