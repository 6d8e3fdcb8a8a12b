// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ChicagoDave/sunnysips/internal/config"
)

// FileName is the log file written inside the configured log dir.
const FileName = "sunnysips.log"

// Init builds a text logger writing to stdout and, when cfg.Dir is set, to
// a log file as well. It installs the logger as the slog default. The
// returned closer releases the file; it is a no-op without one.
func Init(cfg config.LogConfig) (*slog.Logger, io.Closer) {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if cfg.Dir != "" {
		_ = os.MkdirAll(cfg.Dir, 0o755)
		f, err := os.OpenFile(filepath.Join(cfg.Dir, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger := slog.New(slog.NewTextHandler(os.Stdout, opts))
			logger.Error("failed to open log file; falling back to stdout only", "error", err)
			slog.SetDefault(logger)
			return logger, closer
		}
		out = io.MultiWriter(f, os.Stdout)
		closer = f
	}

	logger := New(out, cfg.Level)
	slog.SetDefault(logger)
	log.SetOutput(out)
	return logger, closer
}

// New returns a text logger on w at the named level.
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// ParseLevel maps debug/info/warn/error to a slog level. Unknown names
// select info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
