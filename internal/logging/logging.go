package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Rrens/social-content-generator/internal/config"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger writing to out and, when cfg.File is set, to a daily rotated file.
// Console output is used outside production or when the format asks for it.
func New(cfg config.LoggingConfig, production bool, out io.Writer, opts ...rotatelogs.Option) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	if !production || cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out}
	}

	var closer io.Closer = nopCloser{}
	writer := out
	if cfg.File != "" {
		options := []rotatelogs.Option{rotatelogs.WithLinkName(cfg.File)}
		if cfg.MaxAge > 0 {
			options = append(options, rotatelogs.WithMaxAge(cfg.MaxAge))
		}
		if cfg.Rotation > 0 {
			options = append(options, rotatelogs.WithRotationTime(cfg.Rotation))
		}
		options = append(options, opts...)

		rl, err := rotatelogs.New(cfg.File+".%Y%m%d", options...)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writer = zerolog.MultiLevelWriter(out, rl)
		closer = rl
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

// Setup installs the configured logger as the global zerolog logger
func Setup(cfg config.LoggingConfig, production bool) (io.Closer, error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger, closer, err := New(cfg, production, os.Stderr)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(logger.GetLevel())
	log.Logger = logger
	return closer, nil
}
