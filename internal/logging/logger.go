package logging

import (
	"fmt"
	"io"
	"log"
	"strings"
)

// Logger is the logging surface shared by every component.
// expected args: error | map[string]interface{} | any printable value
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

type StdLogger struct {
	std   *log.Logger
	debug bool
}

var _ Logger = (*StdLogger)(nil)

// NewStdLogger writes to w with a "<COMPONENT> : " prefix.
func NewStdLogger(w io.Writer, component string, debug bool) *StdLogger {
	prefix := strings.ToUpper(strings.TrimSpace(component))
	if prefix != "" {
		prefix += " : "
	}
	return &StdLogger{
		std:   log.New(w, prefix, log.LstdFlags|log.Lmicroseconds),
		debug: debug,
	}
}

// Std exposes the underlying logger, e.g. for http.Server.ErrorLog.
func (l *StdLogger) Std() *log.Logger {
	return l.std
}

func (l *StdLogger) print(level, msg string, args []interface{}) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteString(" ")
	b.WriteString(msg)
	for _, arg := range args {
		b.WriteString(" ")
		b.WriteString(fmt.Sprintf("%+v", arg))
	}
	l.std.Println(b.String())
}

func (l *StdLogger) Debug(msg string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.print("DEBUG", msg, args)
}

func (l *StdLogger) Info(msg string, args ...interface{}) {
	l.print("INFO", msg, args)
}

func (l *StdLogger) Warn(msg string, args ...interface{}) {
	l.print("WARN", msg, args)
}

func (l *StdLogger) Error(msg string, args ...interface{}) {
	l.print("ERROR", msg, args)
}

type nop struct{}

// Nop discards everything.
var Nop Logger = nop{}

func (nop) Debug(string, ...interface{}) {}
func (nop) Info(string, ...interface{})  {}
func (nop) Warn(string, ...interface{})  {}
func (nop) Error(string, ...interface{}) {}
