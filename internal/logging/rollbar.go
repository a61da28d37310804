package logging

import (
	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
)

// RollbarLogger reports warnings and errors to Rollbar and mirrors every call
// to the wrapped std logger.
type RollbarLogger struct {
	std *StdLogger
}

var _ Logger = (*RollbarLogger)(nil)

type RollbarOptions struct {
	Token       string
	Environment string
	CodeVersion string
}

func NewRollbarLogger(std *StdLogger, opts RollbarOptions) *RollbarLogger {
	rollbar.SetToken(opts.Token)
	rollbar.SetEnvironment(opts.Environment)
	rollbar.SetCodeVersion(opts.CodeVersion)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(opts.Token != "")
	return &RollbarLogger{std: std}
}

// Close flushes queued reports.
func (l *RollbarLogger) Close() {
	rollbar.Close()
}

func (l *RollbarLogger) report(level, msg string, args []interface{}) {
	rollbar.Log(level, append([]interface{}{msg}, args...)...)
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	l.std.Debug(msg, args...)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	l.std.Info(msg, args...)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	l.report(rollbar.WARN, msg, args)
	l.std.Warn(msg, args...)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	l.report(rollbar.ERR, msg, args)
	l.std.Error(msg, args...)
}
