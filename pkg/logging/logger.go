// Copyright 2025 Interlayer Labs
//
// Package logging provides structured logging for the relayer: a thin
// wrapper over log/slog with convenience constructors for the fields the
// relayer attaches most often (domain, component, error).
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"
)

// Logger wraps slog.Logger with relayer-specific convenience methods.
type Logger struct {
	*slog.Logger
	config *Config
}

// Config controls output format and destination.
type Config struct {
	Level      slog.Level
	Format     string // "json" or "text"
	Output     string // "stdout", "stderr", or a file path
	AddSource  bool
}

// Field is a structured log key/value pair.
type Field struct {
	Key   string
	Value interface{}
}

func NewLogger(config *Config) (*Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	var output io.Writer
	switch config.Output {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("logging: open log file: %w", err)
		}
		output = file
	}

	handlerOpts := &slog.HandlerOptions{Level: config.Level, AddSource: config.AddSource}
	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(output, handlerOpts)
	}

	return &Logger{Logger: slog.New(handler), config: config}, nil
}

func DefaultConfig() *Config {
	return &Config{Level: slog.LevelInfo, Format: "text", Output: "stdout"}
}

// WithFields accepts a map (handy at call sites building up ad hoc fields);
// WithField takes individual Field values.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	if len(fields) == 0 {
		return l
	}
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{Logger: l.Logger.With(args...), config: l.config}
}

func (l *Logger) WithField(fields ...Field) *Logger {
	if len(fields) == 0 {
		return l
	}
	args := make([]any, len(fields)*2)
	for i, f := range fields {
		args[i*2] = f.Key
		args[i*2+1] = f.Value
	}
	return &Logger{Logger: l.Logger.With(args...), config: l.config}
}

func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{Logger: l.Logger.With("error", err.Error()), config: l.config}
}

func (l *Logger) WithComponent(component string) *Logger {
	return l.WithField(Field{Key: "component", Value: component})
}

func (l *Logger) WithDomain(domain uint32) *Logger {
	return l.WithField(Field{Key: "domain", Value: domain})
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(slog.LevelDebug, msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(slog.LevelInfo, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(slog.LevelWarn, msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.log(slog.LevelError, msg, fields...) }

func (l *Logger) Fatal(msg string, fields ...Field) {
	l.log(slog.LevelError, msg, fields...)
	os.Exit(1)
}

func (l *Logger) log(level slog.Level, msg string, fields ...Field) {
	if !l.Logger.Enabled(context.Background(), level) {
		return
	}
	attrs := make([]slog.Attr, len(fields))
	for i, f := range fields {
		attrs[i] = slog.Any(f.Key, f.Value)
	}
	if l.config.AddSource {
		_, file, line, ok := runtime.Caller(2)
		if ok {
			attrs = append(attrs, slog.Group("source", slog.String("file", file), slog.Int("line", line)))
		}
	}
	l.Logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// LogRequest logs one admin-server HTTP request, warn at 4xx, error at 5xx.
func (l *Logger) LogRequest(method, path string, statusCode int, duration time.Duration) {
	level := slog.LevelInfo
	if statusCode >= 400 {
		level = slog.LevelWarn
	}
	if statusCode >= 500 {
		level = slog.LevelError
	}
	l.log(level, "admin request", Field{"method", method}, Field{"path", path}, Field{"status_code", statusCode}, Field{"duration_ms", duration.Milliseconds()})
}

// ParseLevel parses a config-file log level string.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", level)
	}
}

var globalLogger *Logger

func SetGlobalLogger(logger *Logger) { globalLogger = logger }

func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		logger, _ := NewLogger(DefaultConfig())
		globalLogger = logger
	}
	return globalLogger
}

// RequestLogger is an HTTP middleware that logs every admin-server request.
type RequestLogger struct {
	logger *Logger
}

func NewRequestLogger(logger *Logger) *RequestLogger {
	return &RequestLogger{logger: logger}
}

func (rl *RequestLogger) MiddlewareFunc() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapper := &responseWriter{ResponseWriter: w, statusCode: 200}
			next.ServeHTTP(wrapper, r)
			rl.logger.LogRequest(r.Method, r.URL.Path, wrapper.statusCode, time.Since(start))
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
