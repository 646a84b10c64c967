package logging

import "testing"

type fakeLogger struct {
	lastFormat string
	calls      int
}

func (f *fakeLogger) SetLogLevel(string)                        {}
func (f *fakeLogger) Fatalf(format string, v ...interface{})    { f.record(format) }
func (f *fakeLogger) Errorf(format string, v ...interface{})    { f.record(format) }
func (f *fakeLogger) Warnf(format string, v ...interface{})     { f.record(format) }
func (f *fakeLogger) Infof(format string, v ...interface{})     { f.record(format) }
func (f *fakeLogger) Verbosef(format string, v ...interface{})  { f.record(format) }
func (f *fakeLogger) Debugf(format string, v ...interface{})    { f.record(format) }
func (f *fakeLogger) Tracef(format string, v ...interface{})    { f.record(format) }

func (f *fakeLogger) record(format string) {
	f.lastFormat = format
	f.calls++
}

func TestSetLoggerOverridesDefault(t *testing.T) {
	fake := &fakeLogger{}
	SetLogger(fake)
	defer SetLogger(nil)

	Debugf("span mapped: %d", 3)
	if fake.calls != 1 {
		t.Fatalf("expected 1 call, got %v", fake.calls)
	}
	if fake.lastFormat != "span mapped: %d" {
		t.Errorf("unexpected format captured: %q", fake.lastFormat)
	}
}

func TestEnableDisable(t *testing.T) {
	fake := &fakeLogger{}
	SetLogger(fake)
	defer SetLogger(nil)
	defer Enable(true)

	Enable(false)
	Warnf("should not be recorded")
	if fake.calls != 0 {
		t.Errorf("expected 0 calls while disabled, got %v", fake.calls)
	}

	Enable(true)
	Warnf("recorded")
	if fake.calls != 1 {
		t.Errorf("expected 1 call after re-enable, got %v", fake.calls)
	}
}
