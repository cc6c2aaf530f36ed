package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps slog with configuration and lifecycle management
type Logger struct {
	config *Config
	file   io.WriteCloser
	logger *slog.Logger
}

// Config holds logging configuration
type Config struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	File       string `yaml:"file"`        // log file path (optional)
	MaxSize    int    `yaml:"max_size"`    // megabytes
	MaxBackups int    `yaml:"max_backups"` // number of old log files to keep
	MaxAge     int    `yaml:"max_age"`     // days
	Console    bool   `yaml:"console"`     // also log to console
	Stderr     bool   `yaml:"stderr"`      // console output goes to stderr
	JSON       bool   `yaml:"json"`        // JSON format instead of text

	// Output replaces the console writer when set.
	Output io.Writer `yaml:"-"`
}

// DefaultConfig returns console logging at info level.
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Console:    true,
	}
}

var globalLogger *Logger

// Initialize sets up the global logger
func Initialize(cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	globalLogger = &Logger{
		config: cfg,
	}
	return globalLogger.configure()
}

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	if globalLogger == nil {
		globalLogger = &Logger{
			config: DefaultConfig(),
		}
		_ = globalLogger.configure()
	}
	return globalLogger
}

// New builds a standalone logger that does not touch the global one.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	l := &Logger{config: cfg}
	if err := l.build(); err != nil {
		return nil, err
	}
	return l, nil
}

// configure builds the handler and installs it as slog's default.
func (l *Logger) configure() error {
	if err := l.build(); err != nil {
		return err
	}
	slog.SetDefault(l.logger)
	return nil
}

func (l *Logger) build() error {
	level := parseLevel(l.config.Level)

	var writers []io.Writer

	if l.config.Console {
		switch {
		case l.config.Output != nil:
			writers = append(writers, l.config.Output)
		case l.config.Stderr:
			writers = append(writers, os.Stderr)
		default:
			writers = append(writers, os.Stdout)
		}
	}

	if l.config.File != "" {
		if l.file != nil {
			l.file.Close()
		}

		rotator := &lumberjack.Logger{
			Filename:   l.config.File,
			MaxSize:    l.config.MaxSize, // megabytes
			MaxBackups: l.config.MaxBackups,
			MaxAge:     l.config.MaxAge, // days
			Compress:   true,
		}
		l.file = rotator
		writers = append(writers, rotator)
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = io.Discard
	case 1:
		writer = writers[0]
	default:
		writer = io.MultiWriter(writers...)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if l.config.JSON {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}

	l.logger = slog.New(handler)
	return nil
}

// parseLevel converts string level to slog.Level
func parseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether level is a recognised level name.
func ValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// Reload reconfigures the logger with new settings
func (l *Logger) Reload(cfg *Config) error {
	l.config = cfg
	return l.configure()
}

// Close closes any open file handles
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Underlying returns the underlying *slog.Logger for components that take
// an injected logger.
func (l *Logger) Underlying() *slog.Logger {
	return l.logger
}

// Component returns a logger tagged with a component name.
func (l *Logger) Component(name string) *slog.Logger {
	return l.logger.With(slog.String("component", name))
}

func (l *Logger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l *Logger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l *Logger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}

func (l *Logger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l *Logger) Fatal(msg string, args ...any) {
	l.logger.Error(msg, args...)
	os.Exit(1)
}

func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
	os.Exit(1)
}

// With returns a logger with the given attributes added
func (l *Logger) With(args ...any) *slog.Logger {
	return l.logger.With(args...)
}

// WithError returns a logger with an error field
func (l *Logger) WithError(err error) *slog.Logger {
	return l.logger.With(Err(err))
}

// Package-level convenience functions

// Debug logs at debug level
func Debug(msg string, args ...any) {
	GetLogger().Debug(msg, args...)
}

// Debugf logs formatted message at debug level
func Debugf(format string, v ...interface{}) {
	GetLogger().Debugf(format, v...)
}

// Info logs at info level
func Info(msg string, args ...any) {
	GetLogger().Info(msg, args...)
}

// Infof logs formatted message at info level
func Infof(format string, v ...interface{}) {
	GetLogger().Infof(format, v...)
}

// Warn logs at warn level
func Warn(msg string, args ...any) {
	GetLogger().Warn(msg, args...)
}

// Warnf logs formatted message at warn level
func Warnf(format string, v ...interface{}) {
	GetLogger().Warnf(format, v...)
}

// Error logs at error level
func Error(msg string, args ...any) {
	GetLogger().Error(msg, args...)
}

// Errorf logs formatted message at error level
func Errorf(format string, v ...interface{}) {
	GetLogger().Errorf(format, v...)
}

// Fatal logs at error level and exits
func Fatal(msg string, args ...any) {
	GetLogger().Fatal(msg, args...)
}

// Fatalf logs formatted message at error level and exits
func Fatalf(format string, v ...interface{}) {
	GetLogger().Fatalf(format, v...)
}

// With returns a logger with the given attributes added
func With(args ...any) *slog.Logger {
	return GetLogger().With(args...)
}

// WithError returns a logger with an error field
func WithError(err error) *slog.Logger {
	return GetLogger().WithError(err)
}

// Component returns the global logger tagged with a component name.
func Component(name string) *slog.Logger {
	return GetLogger().Component(name)
}
