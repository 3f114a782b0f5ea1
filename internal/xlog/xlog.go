// Package xlog is the default X-LOG collaborator: a logrus-backed
// debug/trace callback implementation of this contract. The core packages never import this directly;
// callers that want structured logging during parse/verify pass a
// Logger value through (see verify.Options.Log).
package xlog

import "github.com/sirupsen/logrus"

// Logger is the callback contract every package in this module
// accepts for non-fatal diagnostic reporting: a failure site reports
// a human-readable string plus structured fields, and the call never
// blocks or affects control flow.
type Logger interface {
	Debugf(format string, args ...interface{})
	Tracef(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
}

// logrusLogger adapts *logrus.Entry to the Logger contract.
type logrusLogger struct {
	entry *logrus.Entry
}

// New wraps l (or logrus.StandardLogger() when l is nil) as a Logger.
func New(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return logrusLogger{entry: logrus.NewEntry(l)}
}

func (l logrusLogger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l logrusLogger) Tracef(format string, args ...interface{}) {
	l.entry.Tracef(format, args...)
}

func (l logrusLogger) WithField(key string, value interface{}) Logger {
	return logrusLogger{entry: l.entry.WithField(key, value)}
}

// Discard is a Logger that drops every call, used as the default when
// a caller does not configure a Logger.
var Discard Logger = discardLogger{}

type discardLogger struct{}

func (discardLogger) Debugf(string, ...interface{}) {}
func (discardLogger) Tracef(string, ...interface{}) {}
func (d discardLogger) WithField(string, interface{}) Logger { return d }
