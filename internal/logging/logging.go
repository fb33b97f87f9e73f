// Package logging builds the slog logger shared by the server and the
// command-line tools.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel accepts debug, info, warn(ing) and error(err), case and
// separator insensitive. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	s = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch s {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "err":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
}

type Options struct {
	Level       string
	AddSource   bool
	JSON        bool
	Writer      io.Writer
	DefaultSlog bool
}

// New returns a text or JSON logger writing to Writer (stderr by default)
// and the parsed level. Debug level turns on source locations.
func New(opt Options) (*slog.Logger, slog.Level, error) {
	level, err := ParseLevel(opt.Level)
	if err != nil {
		return nil, 0, err
	}
	w := opt.Writer
	if w == nil {
		w = os.Stderr
	}
	ho := &slog.HandlerOptions{
		Level:     level,
		AddSource: opt.AddSource || level == slog.LevelDebug,
	}

	var h slog.Handler = slog.NewTextHandler(w, ho)
	if opt.JSON {
		h = slog.NewJSONHandler(w, ho)
	}
	lg := slog.New(h).With("app", "infocomp")
	if opt.DefaultSlog {
		slog.SetDefault(lg)
	}
	return lg, level, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
