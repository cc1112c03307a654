// Package logging builds the command-line logger: console output through
// charmbracelet/log, optionally teed to a size-rotated file.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Prefix is shown in front of every console line.
const Prefix = "fmlab"

// Options configure New.
type Options struct {
	// Console defaults to os.Stderr.
	Console io.Writer
	// File, when set, receives a copy of every line and is rotated by size.
	File    string
	Verbose bool
	Quiet   bool
}

// Logger wraps the console logger and the rotating file behind it.
type Logger struct {
	*log.Logger
	file *lumberjack.Logger
}

// New creates the logger. Verbose enables debug output; Quiet restricts
// output to warnings and errors.
func New(opts Options) (*Logger, error) {
	w := opts.Console
	if w == nil {
		w = os.Stderr
	}

	var file *lumberjack.Logger
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, err
		}
		file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    16, // MB
			MaxBackups: 3,
			MaxAge:     30,
		}
		w = io.MultiWriter(w, file)
	}

	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          Prefix,
		Level:           level(opts),
	})
	return &Logger{Logger: l, file: file}, nil
}

func level(opts Options) log.Level {
	switch {
	case opts.Verbose:
		return log.DebugLevel
	case opts.Quiet:
		return log.WarnLevel
	}
	return log.InfoLevel
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
