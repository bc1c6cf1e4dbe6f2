package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/lingocrowd/contribution_control/internal/cfg"
)

// New builds the process logger. Local runs get a human readable console writer,
// every other env writes JSON lines to stdout.
func New(env, level, service string) (zerolog.Logger, error) {
	zerolog.TimestampFieldName = "timestamp"

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	w := io.Writer(os.Stdout)
	switch env {
	case cfg.EnvDev, cfg.EnvProd:
	case cfg.EnvLocal:
		consoleWriter := zerolog.NewConsoleWriter()
		consoleWriter.TimeFormat = time.DateTime
		consoleWriter.Out = os.Stdout
		w = consoleWriter
	default:
		return zerolog.Nop(), fmt.Errorf("unknown env: %s", env)
	}

	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Caller().
		Int("pid", os.Getpid()).
		Str("service", service).
		Logger(), nil
}
