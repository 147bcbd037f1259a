package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// Log formats for the stderr handler. The log file is always JSON.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// SetupLogger builds the process logger from lc: stderr in lc.Format, plus
// a JSON copy appended to lc.File when set. The cleanup function closes the
// file. If the file cannot be opened the logger falls back to stderr only.
func SetupLogger(lc LogConfig, level slog.Level) (*slog.Logger, func() error) {
	noop := func() error { return nil }

	if lc.File == "" {
		return SetupLoggerWithWriters(os.Stderr, nil, lc.Format, level), noop
	}

	file, err := os.OpenFile(lc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger := SetupLoggerWithWriters(os.Stderr, nil, lc.Format, level)
		logger.Error("failed to open log file, using stderr only", "error", err, "file", lc.File)
		return logger, noop
	}

	return SetupLoggerWithWriters(os.Stderr, file, lc.Format, level), file.Close
}

// SetupLoggerWithWriters creates a logger writing to stderr and, when file
// is non-nil, fanning out JSON records to file.
func SetupLoggerWithWriters(stderr, file io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var stderrHandler slog.Handler
	if strings.EqualFold(format, LogFormatJSON) {
		stderrHandler = slog.NewJSONHandler(stderr, opts)
	} else {
		stderrHandler = slog.NewTextHandler(stderr, opts)
	}
	if file == nil {
		return slog.New(stderrHandler)
	}

	return slog.New(slogmulti.Fanout(stderrHandler, slog.NewJSONHandler(file, opts)))
}
