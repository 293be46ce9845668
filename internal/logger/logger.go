// Package logger provides the leveled logger used across the client core and
// the server.
package logger

import (
	"fmt"
	"log"
	"os"
)

// Logger is a leveled logger. Extra args are printed after the message; an
// error arg is also reported to the error tracker when one is configured.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// StdLogger writes to a standard library logger.
type StdLogger struct {
	std   *log.Logger
	debug bool
}

var _ Logger = (*StdLogger)(nil)

// New returns a StdLogger writing to stderr. Debug lines are dropped unless
// debug is set.
func New(debug bool) *StdLogger {
	return &StdLogger{std: log.New(os.Stderr, "", log.LstdFlags), debug: debug}
}

// NewStd wraps an existing standard logger.
func NewStd(std *log.Logger, debug bool) *StdLogger {
	return &StdLogger{std: std, debug: debug}
}

func (l *StdLogger) print(level, msg string, args []interface{}) {
	line := level + " " + msg
	for _, arg := range args {
		line += fmt.Sprintf(" %+v", arg)
	}
	l.std.Println(line)
}

func (l *StdLogger) Debug(msg string, args ...interface{}) {
	if l.debug {
		l.print("🔍", msg, args)
	}
}

func (l *StdLogger) Info(msg string, args ...interface{}) { l.print("ℹ️", msg, args) }

func (l *StdLogger) Warn(msg string, args ...interface{}) { l.print("⚠️", msg, args) }

func (l *StdLogger) Error(msg string, args ...interface{}) { l.print("❌", msg, args) }

// Nop discards everything.
type Nop struct{}

func (Nop) Debug(string, ...interface{}) {}
func (Nop) Info(string, ...interface{})  {}
func (Nop) Warn(string, ...interface{})  {}
func (Nop) Error(string, ...interface{}) {}
