// Package logging writes structured JSON logs to a file in the data
// directory. The terminal belongs to the TUI, so nothing goes to stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileName is the log file inside the data directory.
const FileName = "reviewr.log"

// ParseLevel maps debug/info/warn/error to a slog level. Anything else is info.
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

// New opens <dir>/reviewr.log for appending and returns a JSON logger on it.
// Every record carries a "run" attribute unique to this process.
// The returned closer closes the file.
func New(dir string, level slog.Level) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return NewWriter(f, level), f, nil
}

// NewWriter builds the logger on an arbitrary writer.
func NewWriter(w io.Writer, level slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("run", uuid.NewString())
}
