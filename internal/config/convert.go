package config

import (
	"github.com/danmuck/rawlog/internal/logging"
	"github.com/danmuck/rawlog/internal/protocol"
	"github.com/danmuck/rawlog/internal/rawlog"
	"github.com/danmuck/rawlog/internal/recorder"
	"github.com/danmuck/rawlog/internal/transport"
)

func (c Config) LoggingConfig() logging.Config {
	level, ok := logging.ParseLevel(c.Log.Level)
	if !ok {
		level = logging.DefaultConfig(logging.ProfileRuntime).Level
	}
	return logging.Config{
		Level:      level,
		Timestamp:  c.Log.Timestamp,
		NoColor:    c.Log.NoColor,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
	}
}

func (c Config) StreamLimits() protocol.Limits {
	return protocol.Limits{
		MaxTypeNameLen:  c.Archive.MaxTypeNameLen,
		MaxPayloadBytes: c.Archive.MaxPayloadBytes,
		MaxSequenceLen:  c.Archive.MaxSequenceLen,
	}
}

// ReaderOptions returns rawlog options bound to reg. A nil reg means
// protocol.Default.
func (c Config) ReaderOptions(reg *protocol.Registry) rawlog.Options {
	return rawlog.Options{
		Registry:    reg,
		Limits:      c.StreamLimits(),
		Compression: c.Rawlog.Compression,
		OnUnknown:   c.Rawlog.OnUnknown,
		OnCorrupt:   c.Rawlog.OnCorrupt,
	}
}

func (c Config) RecorderOptions() recorder.Config {
	socket := transport.DefaultSocketConfig()
	socket.ReadTimeout = c.Recorder.ReadTimeout
	socket.TLS = c.Recorder.TLS
	return recorder.Config{
		Listen:          c.Recorder.Listen,
		HTTPAddr:        c.Recorder.HTTP,
		OutputDir:       c.Recorder.OutputDir,
		Compression:     c.Recorder.Compression,
		Limits:          c.StreamLimits(),
		Socket:          socket,
		ShutdownTimeout: c.Recorder.ShutdownTimeout,
		Token:           c.Recorder.Token,
	}
}
