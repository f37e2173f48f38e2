package xlog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewConfig returns the default logging config: text output to stdout at
// LevelInfo, no file output.
func NewConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		AddSource: true,
		StdFormat: "text",
		StdWriter: os.Stdout,
		MaxSize:   30,
	}
}

// Config describes where and how log records are written.
type Config struct {
	// Level is the minimum level emitted, defaults to LevelInfo.
	Level slog.Level
	// AddSource emits the file and line of the logging call.
	AddSource bool

	// StdFormat is the console output format, one of ["text", "json"].
	StdFormat string
	// StdWriter is the console output writer, defaults to os.Stdout.
	StdWriter io.Writer

	// Path is the log file path. Empty disables file output. File output is
	// always JSON and rotated by lumberjack.
	Path string
	// MaxSize is the maximum size in MB of a log file before it gets rotated.
	MaxSize int
	// MaxAge is the maximum number of days to retain old log files.
	MaxAge int
	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int
	// Compress enables compression of rotated files.
	Compress bool
}

// New creates a *slog.Logger with the given config.
func New(c Config) *slog.Logger {
	return slog.New(c.BuildHandler())
}

// BuildHandler creates a slog.Handler with the config.
func (c *Config) BuildHandler() slog.Handler {
	opts := &slog.HandlerOptions{
		AddSource:   c.AddSource,
		Level:       c.Level,
		ReplaceAttr: normalizeSourceAttr,
	}
	writer := c.StdWriter
	if writer == nil {
		writer = os.Stdout
	}

	var stdHandler slog.Handler
	if c.StdFormat == "json" {
		stdHandler = slog.NewJSONHandler(writer, opts)
	} else {
		stdHandler = slog.NewTextHandler(writer, opts)
	}

	if c.Path == "" {
		return stdHandler
	}
	fileHandler := slog.NewJSONHandler(&lumberjack.Logger{
		Filename:   c.Path,
		MaxSize:    c.MaxSize,
		MaxAge:     c.MaxAge,
		MaxBackups: c.MaxBackups,
		Compress:   c.Compress,
	}, opts)
	return multiHandler{stdHandler, fileHandler}
}

// normalizeSourceAttr replaces the source file path with its basename.
func normalizeSourceAttr(groups []string, attr slog.Attr) slog.Attr {
	if attr.Key == slog.SourceKey {
		if source, ok := attr.Value.Any().(*slog.Source); ok {
			source.File = filepath.Base(source.File)
		}
	}
	return attr
}

// multiHandler fans out each record to all wrapped handlers.
type multiHandler []slog.Handler

func (h multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h multiHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range h {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (h multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(multiHandler, 0, len(h))
	for _, handler := range h {
		next = append(next, handler.WithAttrs(attrs))
	}
	return next
}

func (h multiHandler) WithGroup(name string) slog.Handler {
	next := make(multiHandler, 0, len(h))
	for _, handler := range h {
		next = append(next, handler.WithGroup(name))
	}
	return next
}
