package rawlog

import (
	"errors"
	"io"

	"github.com/danmuck/rawlog/internal/obs"
	"github.com/danmuck/rawlog/internal/protocol"
	"github.com/danmuck/rawlog/internal/transport"
	"github.com/rs/zerolog"
)

// Skip describes a record dropped under PolicySkip.
type Skip struct {
	Record protocol.Record
	Err    error
}

// Reader iterates the records of a rawlog.
type Reader struct {
	stream      *protocol.Stream
	opts        Options
	name        string
	compression transport.Compression
	logger      zerolog.Logger

	skipped []Skip
}

// Open opens the rawlog at path.
func Open(path string, opts Options) (*Reader, error) {
	ch, detected, err := transport.OpenFile(path, opts.compression())
	if err != nil {
		return nil, err
	}
	r := NewReader(ch, opts)
	r.name = path
	r.compression = detected
	return r, nil
}

// NewReader reads records from an already open transport.
func NewReader(t protocol.Transport, opts Options) *Reader {
	return &Reader{
		stream:      protocol.NewStream(t, opts.streamOptions()...),
		opts:        opts,
		compression: transport.CompressionNone,
		logger:      opts.logger().With().Str("component", "rawlog.reader").Logger(),
	}
}

func (r *Reader) Name() string {
	return r.name
}

func (r *Reader) Compression() transport.Compression {
	return r.compression
}

// Skipped returns the records dropped so far under PolicySkip.
func (r *Reader) Skipped() []Skip {
	return r.skipped
}

// Next returns the next record, applying the configured policies. It returns
// io.EOF after the last record.
func (r *Reader) Next() (protocol.Record, error) {
	for {
		rec, err := r.stream.ReadRecord()
		if err == nil || errors.Is(err, io.EOF) {
			return rec, err
		}
		var recErr *protocol.RecordError
		if !errors.As(err, &recErr) || !recErr.Resumable || r.opts.policyFor(err) != PolicySkip {
			return rec, err
		}
		r.skipped = append(r.skipped, Skip{Record: rec, Err: err})
		r.logger.Warn().Err(err).Int64("index", rec.Index).Str("type", rec.TypeName).Msg("record skipped")
	}
}

// NextEnvelope returns the next record without decoding it. Policies do not
// apply; it returns io.EOF after the last record.
func (r *Reader) NextEnvelope() (protocol.Envelope, error) {
	return r.stream.ReadEnvelope()
}

// ForEach calls fn for every observation in order, flattening sensory
// frames. fn receives the index of the top-level record.
func (r *Reader) ForEach(fn func(index int64, o obs.Observation) error) error {
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch o := rec.Object.(type) {
		case *obs.SensoryFrame:
			if err := o.Each(func(inner obs.Observation) error { return fn(rec.Index, inner) }); err != nil {
				return err
			}
		case obs.Observation:
			if err := fn(rec.Index, o); err != nil {
				return err
			}
		}
	}
}

func (r *Reader) Close() error {
	return r.stream.Close()
}
