package observability

import (
	"github.com/danmuck/rawlog/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger installs cfg as the process logger and tags it with app.
func InitLogger(app string, cfg logging.Config) zerolog.Logger {
	logging.Apply(cfg)
	logger := log.With().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
