package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Template renders cfg in the file layout Load accepts.
func Template(cfg Config) (string, error) {
	out, err := toml.Marshal(toFile(cfg))
	if err != nil {
		return "", fmt.Errorf("config template marshal failed: %w", err)
	}
	return string(out), nil
}

// WriteTemplate writes the defaults to path. An existing file is left alone
// unless overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	template, err := Template(Default())
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config dir create failed (%s): %w", dir, err)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

func toFile(cfg Config) fileConfig {
	return fileConfig{
		Log: fileLog{
			Level:      cfg.Log.Level,
			Timestamp:  cfg.Log.Timestamp,
			NoColor:    cfg.Log.NoColor,
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		},
		Archive: fileArchive{
			MaxPayloadBytes: int64(cfg.Archive.MaxPayloadBytes),
			MaxTypeNameLen:  cfg.Archive.MaxTypeNameLen,
			MaxSequenceLen:  int64(cfg.Archive.MaxSequenceLen),
		},
		Rawlog: fileRawlog{
			Compression: string(cfg.Rawlog.Compression),
			OnUnknown:   string(cfg.Rawlog.OnUnknown),
			OnCorrupt:   string(cfg.Rawlog.OnCorrupt),
		},
		Recorder: fileRecorder{
			Listen:          cfg.Recorder.Listen,
			HTTP:            cfg.Recorder.HTTP,
			OutputDir:       cfg.Recorder.OutputDir,
			Compression:     string(cfg.Recorder.Compression),
			ReadTimeout:     cfg.Recorder.ReadTimeout.String(),
			ShutdownTimeout: cfg.Recorder.ShutdownTimeout.String(),
			Token:           cfg.Recorder.Token,
			TLS:             cfg.Recorder.TLS,
		},
	}
}
