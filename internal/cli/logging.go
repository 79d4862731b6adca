package cli

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/vietddude/stylelog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vietddude/annotator/internal/core/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func parseLevel(level string, debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// initLogging installs the default logger. A configured file gets JSON
// lines with rotation; otherwise json format goes to stdout and anything
// else uses the colored console handler.
func initLogging(cfg config.LoggingConfig, debug bool) io.Closer {
	level := parseLevel(cfg.Level, debug)

	if cfg.File != "" {
		w := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		}
		slog.SetDefault(slog.New(newJSONHandler(w, level)))
		return w
	}

	if strings.EqualFold(cfg.Format, "json") {
		slog.SetDefault(slog.New(newJSONHandler(os.Stdout, level)))
		return nopCloser{}
	}

	stylelog.InitDefault(&tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})
	return nopCloser{}
}

func newJSONHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}
