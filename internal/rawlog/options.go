package rawlog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/rawlog/internal/protocol"
	"github.com/danmuck/rawlog/internal/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Policy decides what a reader does with a record it cannot decode.
type Policy string

const (
	PolicyAbort Policy = "abort"
	PolicySkip  Policy = "skip"
)

var ErrUnknownPolicy = errors.New("rawlog: unknown policy")

func ParsePolicy(raw string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PolicyAbort, nil
	case PolicyAbort, PolicySkip:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, raw)
	}
}

// Options configures readers and writers. The zero value reads with
// protocol.Default, detects compression and aborts on any bad record.
type Options struct {
	Registry    *protocol.Registry
	Limits      protocol.Limits
	Observer    protocol.Observer
	Compression transport.Compression
	// OnUnknown applies to records whose type is not registered.
	OnUnknown Policy
	// OnCorrupt applies to records whose payload fails to decode.
	OnCorrupt Policy
	// Logger replaces the global logger when set.
	Logger *zerolog.Logger
}

func (o Options) streamOptions() []protocol.Option {
	opts := []protocol.Option{protocol.WithLimits(o.Limits)}
	if o.Registry != nil {
		opts = append(opts, protocol.WithRegistry(o.Registry))
	}
	if o.Observer != nil {
		opts = append(opts, protocol.WithObserver(o.Observer))
	}
	if o.Logger != nil {
		opts = append(opts, protocol.WithLogger(*o.Logger))
	}
	return opts
}

func (o Options) logger() zerolog.Logger {
	if o.Logger != nil {
		return *o.Logger
	}
	return log.Logger
}

func (o Options) compression() transport.Compression {
	if o.Compression == "" {
		return transport.CompressionAuto
	}
	return o.Compression
}

func (o Options) policyFor(err error) Policy {
	if errors.Is(err, protocol.ErrUnknownType) {
		return o.OnUnknown
	}
	return o.OnCorrupt
}
