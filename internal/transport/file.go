package transport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// OpenFile opens a rawlog for reading. With CompressionAuto the format is
// detected from the file header; the detected format is returned.
func OpenFile(path string, c Compression) (*Channel, Compression, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("transport: open %s: %w", path, err)
	}
	ch, detected, err := NewDecodingReader(path, f, c, f)
	if err != nil {
		_ = f.Close()
		return nil, detected, fmt.Errorf("transport: open %s: %w", path, err)
	}
	log.Debug().Str("path", path).Str("compression", string(detected)).Msg("rawlog opened")
	return ch, detected, nil
}

// CreateFile creates or truncates a rawlog for writing. With CompressionAuto
// the format follows the file extension.
func CreateFile(path string, c Compression) (*Channel, error) {
	if c == CompressionAuto {
		c = CompressionForPath(path)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("transport: create %s: %w", path, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("transport: create %s: %w", path, err)
	}
	ch, err := NewEncodingWriter(path, f, c, f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("transport: create %s: %w", path, err)
	}
	log.Debug().Str("path", path).Str("compression", string(c)).Msg("rawlog created")
	return ch, nil
}

// CompressionForPath guesses the compression from a file name.
func CompressionForPath(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return CompressionGzip
	case ".sz", ".snappy":
		return CompressionSnappy
	default:
		return CompressionNone
	}
}
