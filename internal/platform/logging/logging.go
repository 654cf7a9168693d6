// Package logging builds the zerolog loggers used by every service.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects level and output format.
type Config struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	// Format is "json" or "console".
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// New returns a logger for service writing to stdout.
func New(service string, cfg Config) (zerolog.Logger, error) {
	return NewWithWriter(os.Stdout, service, cfg)
}

// NewWithWriter is New with an explicit output.
func NewWithWriter(w io.Writer, service string, cfg Config) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if s := strings.TrimSpace(cfg.Level); s != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(s))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "json":
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), fmt.Errorf("log format %q is not supported", cfg.Format)
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("service", service).Logger(), nil
}
