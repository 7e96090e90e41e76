// Package logx configures the process-wide go-logging backend.
package logx

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/op/go-logging"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	consoleFormat = `%{color}%{time:15:04:05.000} %{module:-8s} ▶ %{level:.4s}%{color:reset} | %{message}`
	fileFormat    = `%{time:2006-01-02 15:04:05.000} %{module} %{level:.4s} | %{message}`
)

// Options controls where logs go. An empty File logs to stderr only.
type Options struct {
	Level     string
	File      string
	MaxSizeMB int
	MaxAge    int
}

// Configure installs the backend. The returned closer flushes the log file and
// is a no-op without one.
func Configure(opts Options) (io.Closer, error) {
	level, err := logging.LogLevel(strings.ToUpper(opts.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	console := logging.NewBackendFormatter(
		logging.NewLogBackend(os.Stderr, "", 0),
		logging.MustStringFormatter(consoleFormat),
	)
	if opts.File == "" {
		leveled := logging.AddModuleLevel(console)
		leveled.SetLevel(level, "")
		logging.SetBackend(leveled)
		return nopCloser{}, nil
	}

	rotating := &lumberjack.Logger{
		Filename: opts.File,
		MaxSize:  opts.MaxSizeMB, // megabytes
		MaxAge:   opts.MaxAge,    // days
	}
	file := logging.NewBackendFormatter(
		logging.NewLogBackend(rotating, "", 0),
		logging.MustStringFormatter(fileFormat),
	)
	leveled := logging.MultiLogger(console, file)
	leveled.SetLevel(level, "")
	logging.SetBackend(leveled)
	return rotating, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
