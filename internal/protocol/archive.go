package protocol

import (
	"errors"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Option configures an Archive or Stream.
type Option func(*options)

type options struct {
	registry *Registry
	limits   Limits
	observer Observer
	logger   *zerolog.Logger
}

// WithRegistry resolves type names against r instead of Default.
func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

func WithLimits(l Limits) Option {
	return func(o *options) { o.limits = l }
}

// WithObserver reports per-object stream activity to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

func buildOptions(opts []Option) options {
	o := options{limits: DefaultLimits()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.registry == nil {
		o.registry = Default
	}
	if o.logger == nil {
		l := log.Logger
		o.logger = &l
	}
	o.limits = o.limits.withDefaults()
	return o
}

// Archive reads and writes wire primitives on a Transport.
//
// Every operation returns its error and also records the first error seen;
// after that every operation fails fast with the recorded error, so codecs may
// chain calls and check Err once.
type Archive struct {
	t        Transport
	registry *Registry
	limits   Limits

	err      error
	nread    int64
	nwritten int64
	scratch  [8]byte
}

func NewArchive(t Transport, opts ...Option) *Archive {
	o := buildOptions(opts)
	return &Archive{t: t, registry: o.registry, limits: o.limits}
}

// payloadArchive returns an archive over an in-memory buffer that shares the
// registry and limits of a.
func (a *Archive) payloadArchive(b *Buffer) *Archive {
	return &Archive{t: b, registry: a.registry, limits: a.limits}
}

// Err returns the first error recorded by the archive.
func (a *Archive) Err() error {
	return a.err
}

func (a *Archive) BytesRead() int64 {
	return a.nread
}

func (a *Archive) BytesWritten() int64 {
	return a.nwritten
}

func (a *Archive) Registry() *Registry {
	return a.registry
}

func (a *Archive) Limits() Limits {
	return a.limits
}

// AtEnd reports whether the transport has no more data to read.
func (a *Archive) AtEnd() bool {
	return a.t.AtEnd()
}

// Fail records err as the archive error if none is recorded yet. Codecs use it
// to report semantic problems found while decoding.
func (a *Archive) Fail(err error) error {
	if a.err == nil && err != nil {
		a.err = err
	}
	return err
}

func (a *Archive) read(n int) ([]byte, error) {
	if a.err != nil {
		return nil, a.err
	}
	b, err := a.t.ReadBytes(n)
	a.nread += int64(len(b))
	if err != nil {
		return nil, a.Fail(readError(err))
	}
	return b, nil
}

func (a *Archive) write(p []byte) error {
	if a.err != nil {
		return a.err
	}
	if err := a.t.WriteBytes(p); err != nil {
		return a.Fail(&IOError{Op: "write", Err: err})
	}
	a.nwritten += int64(len(p))
	return nil
}

// Flush pushes buffered writes to the underlying channel when supported.
func (a *Archive) Flush() error {
	if a.err != nil {
		return a.err
	}
	if f, ok := a.t.(Flusher); ok {
		if err := f.Flush(); err != nil {
			return a.Fail(&IOError{Op: "flush", Err: err})
		}
	}
	return nil
}

func readError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return err
	}
	return &IOError{Op: "read", Err: err}
}

// transportReader adapts the archive transport to io.Reader for frame decoding.
type transportReader struct {
	a *Archive
}

func (r transportReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	b, err := r.a.t.ReadBytes(len(p))
	n := copy(p, b)
	r.a.nread += int64(n)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return n, io.EOF
	}
	return n, err
}

// ReadByte lets frame decode the type-name varint one byte at a time.
func (r transportReader) ReadByte() (byte, error) {
	b, err := r.a.t.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	r.a.nread++
	return b[0], nil
}

type transportWriter struct {
	a *Archive
}

func (w transportWriter) Write(p []byte) (int, error) {
	if err := w.a.t.WriteBytes(p); err != nil {
		return 0, err
	}
	w.a.nwritten += int64(len(p))
	return len(p), nil
}
