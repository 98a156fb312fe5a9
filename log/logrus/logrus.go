// Package logrus adapts a logrus entry to the offcache.Logger interface.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/offcache/offcache"
)

type Logger struct{ E *logrus.Entry }

var _ offcache.Logger = Logger{}

func (l Logger) Debug(msg string, f offcache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}

func (l Logger) Info(msg string, f offcache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Info(msg)
}

func (l Logger) Warn(msg string, f offcache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Warn(msg)
}

func (l Logger) Error(msg string, f offcache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}
