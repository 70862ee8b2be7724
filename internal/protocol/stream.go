package protocol

import (
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// Observer receives per-object stream activity. Implementations must be safe
// for concurrent use when shared between streams.
type Observer interface {
	ObjectWritten(typeName string, version uint8, size int)
	ObjectRead(typeName string, version uint8, size int)
	ReadFailed(err error)
}

// Record is one envelope read from a stream together with its decoded object.
// Object is nil for null records and for records that failed to decode.
type Record struct {
	Index    int64
	TypeName string
	Version  uint8
	Size     int
	Object   Serializable
}

func (r Record) IsNull() bool {
	return r.TypeName == ""
}

// Stream writes and reads a sequence of envelopes over one transport.
// A Stream is not safe for concurrent use. Close must not race other calls.
type Stream struct {
	archive  *Archive
	t        Transport
	observer Observer
	logger   zerolog.Logger

	mu     sync.Mutex
	closed bool
	nrec   int64
}

func NewStream(t Transport, opts ...Option) *Stream {
	o := buildOptions(opts)
	return &Stream{
		archive:  &Archive{t: t, registry: o.registry, limits: o.limits},
		t:        t,
		observer: o.observer,
		logger:   o.logger.With().Str("component", "stream").Logger(),
	}
}

// Archive exposes the stream's archive for callers mixing raw primitives with
// framed objects.
func (s *Stream) Archive() *Archive {
	return s.archive
}

func (s *Stream) Registry() *Registry {
	return s.archive.registry
}

// Records returns the number of envelopes read so far.
func (s *Stream) Records() int64 {
	return s.nrec
}

func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Stream) WriteObject(obj Serializable) error {
	if s.Closed() {
		return closedError("write")
	}
	env, err := s.archive.writeObject(obj)
	if err != nil {
		s.logger.Debug().Err(err).Msg("write object failed")
		return err
	}
	if s.observer != nil {
		s.observer.ObjectWritten(env.TypeName, env.Version, env.Size())
	}
	return nil
}

func (s *Stream) WriteNull() error {
	if s.Closed() {
		return closedError("write")
	}
	if err := s.archive.WriteNull(); err != nil {
		return err
	}
	if s.observer != nil {
		s.observer.ObjectWritten("", 0, 1)
	}
	return nil
}

// WriteEnvelope copies an already framed object without decoding it.
func (s *Stream) WriteEnvelope(env Envelope) error {
	if s.Closed() {
		return closedError("write")
	}
	if err := s.archive.WriteEnvelope(env); err != nil {
		return err
	}
	if s.observer != nil {
		s.observer.ObjectWritten(env.TypeName, env.Version, env.Size())
	}
	return nil
}

// ReadEnvelope reads the next envelope without decoding it.
func (s *Stream) ReadEnvelope() (Envelope, error) {
	if s.Closed() {
		return Envelope{}, closedError("read")
	}
	env, err := s.archive.ReadEnvelope()
	if err != nil {
		if err != io.EOF {
			s.readFailed(err)
		}
		return Envelope{}, err
	}
	s.nrec++
	return env, nil
}

// ReadRecord reads and decodes the next envelope. At a clean end it returns
// io.EOF. Other failures are *RecordError; when Resumable is set the failed
// envelope was consumed and the next ReadRecord continues after it.
func (s *Stream) ReadRecord() (Record, error) {
	index := s.nrec
	env, err := s.ReadEnvelope()
	if err != nil {
		if err == io.EOF || errors.Is(err, ErrClosed) {
			return Record{}, err
		}
		return Record{Index: index}, &RecordError{Index: index, Err: err}
	}
	rec := Record{Index: index, TypeName: env.TypeName, Version: env.Version, Size: env.Size()}
	obj, err := s.archive.DecodeEnvelope(env)
	if err != nil {
		s.readFailed(err)
		s.logger.Debug().Err(err).Int64("index", index).Str("type", env.TypeName).Uint8("version", env.Version).Msg("record decode failed")
		return rec, &RecordError{Index: index, TypeName: env.TypeName, Version: env.Version, Resumable: true, Err: err}
	}
	rec.Object = obj
	if s.observer != nil {
		s.observer.ObjectRead(env.TypeName, env.Version, rec.Size)
	}
	return rec, nil
}

// ReadObject returns the next decoded object. A null record yields (nil, nil);
// a clean end of stream yields (nil, io.EOF).
func (s *Stream) ReadObject() (Serializable, error) {
	rec, err := s.ReadRecord()
	if err != nil {
		return nil, err
	}
	return rec.Object, nil
}

func (s *Stream) Flush() error {
	if s.Closed() {
		return closedError("flush")
	}
	return s.archive.Flush()
}

// Close flushes pending writes and closes the transport. Calling Close again
// is a no-op.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var flushErr error
	if s.archive.err == nil {
		flushErr = s.archive.Flush()
	}
	s.archive.err = closedError("use")
	closeErr := s.t.Close()
	s.logger.Debug().Int64("records", s.nrec).Int64("bytes_read", s.archive.nread).Int64("bytes_written", s.archive.nwritten).Msg("stream closed")
	if closeErr != nil {
		return &IOError{Op: "close", Err: closeErr}
	}
	if flushErr != nil {
		return flushErr
	}
	return nil
}

func (s *Stream) readFailed(err error) {
	if s.observer != nil {
		s.observer.ReadFailed(err)
	}
}
