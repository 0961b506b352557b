// Package util provides the ambient logging and error-taxonomy primitives
// shared across autoshell's packages.
package util

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Named log sinks. cmd/autoshell acquires each of these once at startup
// (via Sink) and threads the *logrus.Logger through the engine and its
// collaborators; packages should receive a logger as a constructor
// argument rather than looking one up by name at arbitrary call sites.
const (
	SinkCore      = "core"      // engine/pool/hosts/crawl internals
	SinkModules   = "modules"   // module dispatcher and bundled modules
	SinkTransport = "transport" // SSH/TELNET session chatter
)

type sinkHolder struct {
	logger *logrus.Logger
}

var sinks = map[string]*atomic.Value{
	SinkCore:      newDefaultSink(),
	SinkModules:   newDefaultSink(),
	SinkTransport: newDefaultSink(),
}

func newDefaultSink() *atomic.Value {
	v := &atomic.Value{}
	v.Store(&sinkHolder{logger: newLogger(os.Stderr, logrus.InfoLevel, false)})
	return v
}

func newLogger(w io.Writer, level logrus.Level, jsonFormat bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	if jsonFormat {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05Z07:00",
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return l
}

// Sink returns the *logrus.Logger currently installed under name. It
// panics on an unknown sink name since the three names above are fixed at
// compile time, not user-supplied.
func Sink(name string) *logrus.Logger {
	v, ok := sinks[name]
	if !ok {
		panic("util: unknown log sink " + name)
	}
	return v.Load().(*sinkHolder).logger
}

// Core, Modules and Transport are shorthand for Sink(SinkCore), etc.
func Core() *logrus.Logger      { return Sink(SinkCore) }
func Modules() *logrus.Logger   { return Sink(SinkModules) }
func Transport() *logrus.Logger { return Sink(SinkTransport) }

// Configure replaces the sink named by name with a freshly built logger at
// the given level/output/format. cmd/autoshell reaches it once per sink
// at startup through ConfigureAll (its -d/-l flags), never mid-run.
func Configure(name, level string, w io.Writer, jsonFormat bool) error {
	v, ok := sinks[name]
	if !ok {
		return fmt.Errorf("util: unknown log sink %q", name)
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("util: %s: %w", name, err)
	}
	v.Store(&sinkHolder{logger: newLogger(w, lvl, jsonFormat)})
	return nil
}

// ConfigureAll applies the same level/output/format to every named sink,
// the common case when no per-sink flags are given.
func ConfigureAll(level string, w io.Writer, jsonFormat bool) error {
	for name := range sinks {
		if err := Configure(name, level, w, jsonFormat); err != nil {
			return err
		}
	}
	return nil
}

// WithFields is a small convenience wrapper used by callers that already
// hold a *logrus.Logger and want a one-line field attachment, matching the
// teacher's WithField/WithFields helper shape.
func WithFields(l *logrus.Logger, fields logrus.Fields) *logrus.Entry {
	return l.WithFields(fields)
}
