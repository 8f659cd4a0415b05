package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// NewLogger writes structured logs to the configured file. The TUI owns
// the terminal, so without LOG_FILE logs are discarded.
func NewLogger(cfg *Config) (*slog.Logger, error) {
	if cfg.LogFile == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, nil)), nil
}
