// Package corelog wraps logrus for the assembler pipeline's structured
// logging: the assembler's per-run summary line and cmd/wasmaot's
// diagnostic and runtime-dependency reports go through a Logger rather than
// the standard log package.
package corelog

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Fields aliases logrus.Fields so callers never import logrus directly.
type Fields = logrus.Fields

// Logger is the subset of logrus functionality the pipeline uses.
type Logger interface {
	Debugf(string, ...interface{})
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Errorf(string, ...interface{})

	WithField(key string, value interface{}) Logger
	WithFields(Fields) Logger

	SetLevel(string) error
	SetOutput(io.Writer)
}

type logger struct {
	entry *logrus.Entry
}

// New returns a standalone Logger with its own underlying logrus instance,
// so tests never contend on a process-global logger.
func New() Logger {
	l := logrus.New()
	return logger{entry: logrus.NewEntry(l)}
}

func (l logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l logger) WithField(key string, value interface{}) Logger {
	return logger{entry: l.entry.WithField(key, value)}
}

func (l logger) WithFields(fields Fields) Logger {
	return logger{entry: l.entry.WithFields(fields)}
}

func (l logger) SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	l.entry.Logger.SetLevel(lvl)
	return nil
}

func (l logger) SetOutput(w io.Writer) {
	l.entry.Logger.SetOutput(w)
}

var global = New()

// Global returns the process-wide default logger, used by cmd/wasmaot.
func Global() Logger {
	return global
}
