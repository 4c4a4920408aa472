package telemetry

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with helpers for the fields this adapter
// logs on every line of a run.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a new structured logger from the logging configuration.
func NewLogger(cfg LoggingConfig, serviceName string) (*Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	switch cfg.Output {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		output = f
	}

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(output).Level(level).With().
		Timestamp().
		Str("service", serviceName)
	if cfg.EnableCaller {
		ctx = ctx.Caller()
	}

	return &Logger{logger: ctx.Logger()}, nil
}

// NewComponentLogger returns a logger scoped to a named component of the
// adapter (lifecycle, keywords, cli).
func (l *Logger) NewComponentLogger(component string) *Logger {
	return &Logger{logger: l.logger.With().Str("component", component).Logger()}
}

// WithRunID returns a logger carrying the run identifier.
func (l *Logger) WithRunID(runID string) *Logger {
	return &Logger{logger: l.logger.With().Str("run_id", runID).Logger()}
}

// WithBoard returns a logger carrying the board name.
func (l *Logger) WithBoard(board string) *Logger {
	return &Logger{logger: l.logger.With().Str("board", board).Logger()}
}

// WithSuite returns a logger carrying the current suite name.
func (l *Logger) WithSuite(suite string) *Logger {
	return &Logger{logger: l.logger.With().Str("suite", suite).Logger()}
}

// WithTest returns a logger carrying the current test name.
func (l *Logger) WithTest(test string) *Logger {
	return &Logger{logger: l.logger.With().Str("test", test).Logger()}
}

// WithKeyword returns a logger carrying the keyword being executed.
func (l *Logger) WithKeyword(keyword string) *Logger {
	return &Logger{logger: l.logger.With().Str("keyword", keyword).Logger()}
}

// WithError returns a logger carrying an error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{logger: l.logger.With().Err(err).Logger()}
}

// WithField returns a logger carrying an arbitrary field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// Trace logs a message at trace level.
func (l *Logger) Trace(msg string) { l.logger.Trace().Msg(msg) }

// Tracef logs a formatted message at trace level.
func (l *Logger) Tracef(format string, args ...interface{}) { l.logger.Trace().Msgf(format, args...) }

// Debug logs a message at debug level.
func (l *Logger) Debug(msg string) { l.logger.Debug().Msg(msg) }

// Debugf logs a formatted message at debug level.
func (l *Logger) Debugf(format string, args ...interface{}) { l.logger.Debug().Msgf(format, args...) }

// Info logs a message at info level.
func (l *Logger) Info(msg string) { l.logger.Info().Msg(msg) }

// Infof logs a formatted message at info level.
func (l *Logger) Infof(format string, args ...interface{}) { l.logger.Info().Msgf(format, args...) }

// Warn logs a message at warn level.
func (l *Logger) Warn(msg string) { l.logger.Warn().Msg(msg) }

// Warnf logs a formatted message at warn level.
func (l *Logger) Warnf(format string, args ...interface{}) { l.logger.Warn().Msgf(format, args...) }

// Error logs a message at error level.
func (l *Logger) Error(msg string) { l.logger.Error().Msg(msg) }

// Errorf logs a formatted message at error level.
func (l *Logger) Errorf(format string, args ...interface{}) { l.logger.Error().Msgf(format, args...) }

// Fatal logs a message at fatal level and exits.
func (l *Logger) Fatal(msg string) { l.logger.Fatal().Msg(msg) }

// Zerolog exposes the underlying zerolog.Logger for advanced use.
func (l *Logger) Zerolog() *zerolog.Logger { return &l.logger }

type loggerContextKey struct{}

// WithContext attaches the logger to a context.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, l)
}

// FromContext retrieves the logger from a context, or a discard logger
// when none is attached.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerContextKey{}).(*Logger); ok {
		return l
	}
	return &Logger{logger: zerolog.Nop()}
}
