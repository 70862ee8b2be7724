package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/rawlog/internal/logging"
	"github.com/danmuck/rawlog/internal/protocol"
	"github.com/danmuck/rawlog/internal/rawlog"
	"github.com/danmuck/rawlog/internal/transport"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Log      LogConfig
	Archive  ArchiveConfig
	Rawlog   RawlogConfig
	Recorder RecorderConfig
}

type LogConfig struct {
	Level      string
	Timestamp  bool
	NoColor    bool
	File       string
	MaxSizeMB  int
	MaxBackups int
}

type ArchiveConfig struct {
	MaxPayloadBytes uint32
	MaxTypeNameLen  int
	MaxSequenceLen  uint32
}

type RawlogConfig struct {
	Compression transport.Compression
	OnUnknown   rawlog.Policy
	OnCorrupt   rawlog.Policy
}

type RecorderConfig struct {
	Listen          string
	HTTP            string
	OutputDir       string
	Compression     transport.Compression
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
	Token           string
	TLS             transport.TLSConfig
}

func Default() Config {
	limits := protocol.DefaultLimits()
	return Config{
		Log: LogConfig{
			Level:      "info",
			Timestamp:  true,
			MaxSizeMB:  64,
			MaxBackups: 3,
		},
		Archive: ArchiveConfig{
			MaxPayloadBytes: limits.MaxPayloadBytes,
			MaxTypeNameLen:  limits.MaxTypeNameLen,
			MaxSequenceLen:  limits.MaxSequenceLen,
		},
		Rawlog: RawlogConfig{
			Compression: transport.CompressionAuto,
			OnUnknown:   rawlog.PolicyAbort,
			OnCorrupt:   rawlog.PolicyAbort,
		},
		Recorder: RecorderConfig{
			Listen:          "127.0.0.1:7400",
			HTTP:            "127.0.0.1:7401",
			OutputDir:       "rawlogs",
			Compression:     transport.CompressionGzip,
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
	}
}

type fileConfig struct {
	Log      fileLog      `toml:"log"`
	Archive  fileArchive  `toml:"archive"`
	Rawlog   fileRawlog   `toml:"rawlog"`
	Recorder fileRecorder `toml:"recorder"`
}

type fileLog struct {
	Level      string `toml:"level"`
	Timestamp  bool   `toml:"timestamp"`
	NoColor    bool   `toml:"no_color"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

type fileArchive struct {
	MaxPayloadBytes int64 `toml:"max_payload_bytes"`
	MaxTypeNameLen  int   `toml:"max_type_name_len"`
	MaxSequenceLen  int64 `toml:"max_sequence_len"`
}

type fileRawlog struct {
	Compression string `toml:"compression"`
	OnUnknown   string `toml:"on_unknown"`
	OnCorrupt   string `toml:"on_corrupt"`
}

type fileRecorder struct {
	Listen          string              `toml:"listen"`
	HTTP            string              `toml:"http"`
	OutputDir       string              `toml:"output_dir"`
	Compression     string              `toml:"compression"`
	ReadTimeout     string              `toml:"read_timeout"`
	ShutdownTimeout string              `toml:"shutdown_timeout"`
	Token           string              `toml:"token"`
	TLS             transport.TLSConfig `toml:"tls"`
}

// Load reads path and applies every key it defines over Default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q in %s", ErrInvalid, undecoded[0].String(), path)
	}

	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "timestamp") {
		cfg.Log.Timestamp = raw.Log.Timestamp
	}
	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.Log.NoColor
	}
	if meta.IsDefined("log", "file") {
		cfg.Log.File = strings.TrimSpace(raw.Log.File)
	}
	if meta.IsDefined("log", "max_size_mb") {
		cfg.Log.MaxSizeMB = raw.Log.MaxSizeMB
	}
	if meta.IsDefined("log", "max_backups") {
		cfg.Log.MaxBackups = raw.Log.MaxBackups
	}

	if meta.IsDefined("archive", "max_payload_bytes") {
		if raw.Archive.MaxPayloadBytes <= 0 || raw.Archive.MaxPayloadBytes > 1<<32-1 {
			return Config{}, fmt.Errorf("%w: archive.max_payload_bytes out of range: %d", ErrInvalid, raw.Archive.MaxPayloadBytes)
		}
		cfg.Archive.MaxPayloadBytes = uint32(raw.Archive.MaxPayloadBytes)
	}
	if meta.IsDefined("archive", "max_type_name_len") {
		cfg.Archive.MaxTypeNameLen = raw.Archive.MaxTypeNameLen
	}
	if meta.IsDefined("archive", "max_sequence_len") {
		if raw.Archive.MaxSequenceLen <= 0 || raw.Archive.MaxSequenceLen > 1<<32-1 {
			return Config{}, fmt.Errorf("%w: archive.max_sequence_len out of range: %d", ErrInvalid, raw.Archive.MaxSequenceLen)
		}
		cfg.Archive.MaxSequenceLen = uint32(raw.Archive.MaxSequenceLen)
	}

	if meta.IsDefined("rawlog", "compression") {
		if cfg.Rawlog.Compression, err = transport.ParseCompression(raw.Rawlog.Compression); err != nil {
			return Config{}, fmt.Errorf("parse rawlog.compression: %w", err)
		}
	}
	if meta.IsDefined("rawlog", "on_unknown") {
		if cfg.Rawlog.OnUnknown, err = rawlog.ParsePolicy(raw.Rawlog.OnUnknown); err != nil {
			return Config{}, fmt.Errorf("parse rawlog.on_unknown: %w", err)
		}
	}
	if meta.IsDefined("rawlog", "on_corrupt") {
		if cfg.Rawlog.OnCorrupt, err = rawlog.ParsePolicy(raw.Rawlog.OnCorrupt); err != nil {
			return Config{}, fmt.Errorf("parse rawlog.on_corrupt: %w", err)
		}
	}

	if meta.IsDefined("recorder", "listen") {
		cfg.Recorder.Listen = strings.TrimSpace(raw.Recorder.Listen)
	}
	if meta.IsDefined("recorder", "http") {
		cfg.Recorder.HTTP = strings.TrimSpace(raw.Recorder.HTTP)
	}
	if meta.IsDefined("recorder", "output_dir") {
		cfg.Recorder.OutputDir = strings.TrimSpace(raw.Recorder.OutputDir)
	}
	if meta.IsDefined("recorder", "compression") {
		if cfg.Recorder.Compression, err = transport.ParseCompression(raw.Recorder.Compression); err != nil {
			return Config{}, fmt.Errorf("parse recorder.compression: %w", err)
		}
	}
	if meta.IsDefined("recorder", "read_timeout") {
		if cfg.Recorder.ReadTimeout, err = time.ParseDuration(strings.TrimSpace(raw.Recorder.ReadTimeout)); err != nil {
			return Config{}, fmt.Errorf("parse recorder.read_timeout: %w", err)
		}
	}
	if meta.IsDefined("recorder", "shutdown_timeout") {
		if cfg.Recorder.ShutdownTimeout, err = time.ParseDuration(strings.TrimSpace(raw.Recorder.ShutdownTimeout)); err != nil {
			return Config{}, fmt.Errorf("parse recorder.shutdown_timeout: %w", err)
		}
	}
	if meta.IsDefined("recorder", "token") {
		cfg.Recorder.Token = strings.TrimSpace(raw.Recorder.Token)
	}
	if meta.IsDefined("recorder", "tls") {
		cfg.Recorder.TLS = raw.Recorder.TLS
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if _, ok := logging.ParseLevel(cfg.Log.Level); !ok {
		return fmt.Errorf("%w: log.level %q", ErrInvalid, cfg.Log.Level)
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 {
		return fmt.Errorf("%w: log rotation settings must not be negative", ErrInvalid)
	}
	if cfg.Archive.MaxTypeNameLen <= 0 {
		return fmt.Errorf("%w: archive.max_type_name_len must be positive", ErrInvalid)
	}
	if cfg.Archive.MaxPayloadBytes == 0 || cfg.Archive.MaxSequenceLen == 0 {
		return fmt.Errorf("%w: archive limits must be positive", ErrInvalid)
	}
	if strings.TrimSpace(cfg.Recorder.Listen) == "" {
		return fmt.Errorf("%w: recorder.listen is required", ErrInvalid)
	}
	if strings.TrimSpace(cfg.Recorder.OutputDir) == "" {
		return fmt.Errorf("%w: recorder.output_dir is required", ErrInvalid)
	}
	if cfg.Recorder.Compression == transport.CompressionAuto {
		return fmt.Errorf("%w: recorder.compression must be none, gzip or snappy", ErrInvalid)
	}
	if cfg.Recorder.ReadTimeout < 0 || cfg.Recorder.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: recorder timeouts must not be negative", ErrInvalid)
	}
	if err := cfg.Recorder.TLS.ValidateServer(); err != nil {
		return fmt.Errorf("%w: recorder.tls: %w", ErrInvalid, err)
	}
	return nil
}
