// Package logger provides structured logging configuration for the fleet service
// with support for different log levels, formats, output destinations and
// request correlation IDs.
package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleet-service/internal/config"
)

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

type correlationKey struct{}

// New creates a new configured logrus logger instance with the specified
// log level, format, and output destination.
func New(level, format, output string) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(parseLevel(level))
	logger.SetFormatter(formatterFor(format))

	switch strings.ToLower(output) {
	case "stdout", "":
		logger.SetOutput(os.Stdout)
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		file, err := openLogFile(output)
		if err != nil {
			logger.SetOutput(os.Stdout)
			logger.WithError(err).Warn("Failed to open log file, using stdout")
			return logger
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, file))
	}

	return logger
}

// NewWithConfig creates a logger from the logging section of the service
// configuration. When dual output is enabled the console receives
// ConsoleFormat entries while the file at FilePath receives FileFormat entries.
func NewWithConfig(cfg *config.LoggingConfig) *logrus.Logger {
	if !cfg.EnableDualOutput || cfg.FilePath == "" {
		return New(cfg.Level, cfg.Format, cfg.Output)
	}

	logger := New(cfg.Level, cfg.ConsoleFormat, "stdout")

	file, err := openLogFile(cfg.FilePath)
	if err != nil {
		logger.WithError(err).Warn("Failed to open log file, dual output disabled")
		return logger
	}

	logger.AddHook(&fileHook{
		writer:    file,
		formatter: formatterFor(cfg.FileFormat),
		levels:    logrus.AllLevels,
	})

	return logger
}

// SetCorrelationID stores the correlation ID in the context.
func SetCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// GetCorrelationID returns the correlation ID stored in the context, if any.
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}

// WithCorrelationID returns a log entry carrying the correlation ID from ctx.
func WithCorrelationID(ctx context.Context, logger *logrus.Logger) *logrus.Entry {
	entry := logrus.NewEntry(logger)
	if id := GetCorrelationID(ctx); id != "" {
		entry = entry.WithField("correlation_id", id)
	}
	return entry
}

func parseLevel(level string) logrus.Level {
	logLevel, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return logLevel
}

func formatterFor(format string) logrus.Formatter {
	switch strings.ToLower(format) {
	case "text":
		return &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		}
	case "json":
		return &logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		}
	default:
		// Default to JSON for structured logging
		return &logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
		}
	}
}

func openLogFile(path string) (*os.File, error) {
	// Validate and clean the file path to prevent directory traversal attacks
	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return nil, os.ErrInvalid
	}

	// #nosec G304 -- Path is validated and cleaned above to prevent traversal attacks
	return os.OpenFile(cleanPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}

// fileHook writes every entry to a secondary writer using its own formatter.
type fileHook struct {
	writer    io.Writer
	formatter logrus.Formatter
	levels    []logrus.Level
}

func (h *fileHook) Levels() []logrus.Level {
	return h.levels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(line)
	return err
}
