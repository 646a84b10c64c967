// Package logging is spanmalloc's logging collaborator (spec §1(iv)): the
// handler (new thread-local arena, shared set-chain growth), the unix
// backing allocator (failed mmap/munmap) and the report package
// (shutdown summary) call the
// package-level functions below rather than writing log lines themselves. Applications can plug in
// their own sink with SetLogger, or leave the default in place, which
// forwards to github.com/bnclabs/golog.
package logging

import "sync/atomic"

import golog "github.com/bnclabs/golog"

// Logger is the interface a host application implements to receive
// spanmalloc's log output instead of the golog-backed default.
type Logger interface {
	SetLogLevel(level string)
	Fatalf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Verbosef(format string, v ...interface{})
	Debugf(format string, v ...interface{})
	Tracef(format string, v ...interface{})
}

var logger Logger = gologLogger{}
var enabled int64 = 1

// SetLogger overrides the default golog-backed logger. Passing nil
// restores it.
func SetLogger(l Logger) {
	if l == nil {
		logger = gologLogger{}
		return
	}
	logger = l
}

// Enable or disable logging process-wide. Disabled by default only in
// the allocate/free fast path's own judgement (arena/handler code simply
// doesn't call these on that path); this switch is for tests that want
// silence regardless of call site.
func Enable(on bool) {
	if on {
		atomic.StoreInt64(&enabled, 1)
	} else {
		atomic.StoreInt64(&enabled, 0)
	}
}

func on() bool { return atomic.LoadInt64(&enabled) > 0 }

func Fatalf(format string, v ...interface{}) {
	if on() {
		logger.Fatalf(format, v...)
	}
}

func Errorf(format string, v ...interface{}) {
	if on() {
		logger.Errorf(format, v...)
	}
}

func Warnf(format string, v ...interface{}) {
	if on() {
		logger.Warnf(format, v...)
	}
}

func Infof(format string, v ...interface{}) {
	if on() {
		logger.Infof(format, v...)
	}
}

func Verbosef(format string, v ...interface{}) {
	if on() {
		logger.Verbosef(format, v...)
	}
}

func Debugf(format string, v ...interface{}) {
	if on() {
		logger.Debugf(format, v...)
	}
}

func Tracef(format string, v ...interface{}) {
	if on() {
		logger.Tracef(format, v...)
	}
}

// gologLogger adapts golog's package-level, globally-configured logger
// to the Logger interface.
type gologLogger struct{}

func (gologLogger) SetLogLevel(level string)                    { golog.SetLogLevel(level) }
func (gologLogger) Fatalf(format string, v ...interface{})      { golog.Fatalf(format, v...) }
func (gologLogger) Errorf(format string, v ...interface{})      { golog.Errorf(format, v...) }
func (gologLogger) Warnf(format string, v ...interface{})       { golog.Warnf(format, v...) }
func (gologLogger) Infof(format string, v ...interface{})       { golog.Infof(format, v...) }
func (gologLogger) Verbosef(format string, v ...interface{})    { golog.Verbosef(format, v...) }
func (gologLogger) Debugf(format string, v ...interface{})      { golog.Debugf(format, v...) }
func (gologLogger) Tracef(format string, v ...interface{})      { golog.Tracef(format, v...) }
