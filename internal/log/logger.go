// Package log sets up the process-wide slog logger. Records go to stderr and,
// when configured, to a size-rotated file.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"firestige.xyz/trpt/internal/config"
)

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// Init installs the default logger described by cfg. stdout is left to the
// decoded records.
func Init(cfg config.LogConfig) error {
	return initWithWriter(cfg, os.Stderr)
}

func initWithWriter(cfg config.LogConfig, console io.Writer) error {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return err
	}

	out := console
	if file := cfg.Outputs.File; file.Enabled {
		rotated, err := createFileWriter(file)
		if err != nil {
			return err
		}
		out = io.MultiWriter(console, rotated)
	}

	handler, err := newHandler(cfg.Format, out, level)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func newHandler(format string, w io.Writer, level slog.Level) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	case "text":
		return slog.NewTextHandler(w, opts), nil
	}
	return nil, fmt.Errorf("log: format %q is neither json nor text", format)
}

func parseLevel(s string) (slog.Level, error) {
	if level, ok := levels[strings.ToLower(s)]; ok {
		return level, nil
	}
	return slog.LevelInfo, fmt.Errorf("log: unknown level %q", s)
}

// createFileWriter returns a lumberjack writer rotating at fc.Rotation limits.
func createFileWriter(fc config.FileOutputConfig) (*lumberjack.Logger, error) {
	if fc.Path == "" {
		return nil, fmt.Errorf("log: file output enabled without a path")
	}
	return &lumberjack.Logger{
		Filename:   fc.Path,
		MaxSize:    fc.Rotation.MaxSizeMB,
		MaxAge:     fc.Rotation.MaxAgeDays,
		MaxBackups: fc.Rotation.MaxBackups,
		Compress:   fc.Rotation.Compress,
	}, nil
}
