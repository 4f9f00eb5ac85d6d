package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Logger provides leveled logging for the QA run. Errors go to stderr,
// everything else to stdout unless a single writer is supplied.
type Logger struct {
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
	debug *log.Logger

	debugEnabled bool
}

// NewLogger creates a new Logger writing to stdout/stderr.
func NewLogger() *Logger {
	return &Logger{
		info:  log.New(os.Stdout, "", 0),
		warn:  log.New(os.Stdout, "", 0),
		err:   log.New(os.Stderr, "", 0),
		debug: log.New(os.Stdout, "", 0),
	}
}

// NewLoggerTo sends every level to w. Used by tests to capture output.
func NewLoggerTo(w io.Writer) *Logger {
	return &Logger{
		info:  log.New(w, "", 0),
		warn:  log.New(w, "", 0),
		err:   log.New(w, "", 0),
		debug: log.New(w, "", 0),
	}
}

// NewDiscardLogger drops everything.
func NewDiscardLogger() *Logger {
	return NewLoggerTo(io.Discard)
}

// SetDebug toggles Debug output; it is off by default.
func (l *Logger) SetDebug(enabled bool) {
	l.debugEnabled = enabled
}

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) Info(format string, args ...any) {
	l.info.Printf("[%s] \033[32mINFO\033[0m  %s", l.timestamp(), fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...any) {
	l.warn.Printf("[%s] \033[33mWARN\033[0m  %s", l.timestamp(), fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...any) {
	l.err.Printf("[%s] \033[31mERROR\033[0m %s", l.timestamp(), fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...any) {
	if !l.debugEnabled {
		return
	}
	l.debug.Printf("[%s] \033[36mDEBUG\033[0m %s", l.timestamp(), fmt.Sprintf(format, args...))
}
