// Package logger wraps zerolog behind a small leveled interface shared by
// every TrendLens component.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config controls the global logging setup.
type Config struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // "console" or "json"
	Output string `mapstructure:"output" yaml:"output"` // "stdout" or a file path
}

// Logger is a leveled, field-aware logger.
type Logger struct {
	logger zerolog.Logger
}

// New builds a Logger from config. Unknown levels fall back to info;
// unopenable output files fall back to stdout.
func New(cfg Config) *Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var output io.Writer = os.Stdout
	if cfg.Output != "" && cfg.Output != "stdout" {
		if f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			output = f
		}
	}

	var zl zerolog.Logger
	if cfg.Format == "console" {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: output, TimeFormat: time.TimeOnly}).
			With().Timestamp().Logger()
	} else {
		zl = zerolog.New(output).With().Timestamp().Logger()
	}
	return &Logger{logger: zl}
}

func (l *Logger) Debug(msg string) { l.logger.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.logger.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.logger.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.logger.Error().Msg(msg) }
func (l *Logger) Fatal(msg string) { l.logger.Fatal().Msg(msg) }

// Debugf and friends format in the style of fmt.Printf.
func (l *Logger) Debugf(format string, args ...any) { l.logger.Debug().Msgf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logger.Info().Msgf(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logger.Warn().Msgf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logger.Error().Msgf(format, args...) }

// WithField returns a child logger carrying an extra field.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// WithFields returns a child logger carrying several extra fields.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{logger: ctx.Logger()}
}

// WithError returns a child logger carrying an error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{logger: l.logger.With().Err(err).Logger()}
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetGlobal installs l as zerolog's package-level logger.
func SetGlobal(l *Logger) {
	log.Logger = l.logger
}
