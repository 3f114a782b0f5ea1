package xlog

import "testing"

func TestNewDefaultsToStandardLogger(t *testing.T) {
	l := New(nil)
	l.Debugf("hello %s", "world")
	l.Tracef("trace %d", 1)
	if f := l.WithField("key", "value"); f == nil {
		t.Fatal("WithField returned nil")
	}
}

func TestDiscardIsNoop(t *testing.T) {
	Discard.Debugf("unused")
	Discard.Tracef("unused")
	if Discard.WithField("k", "v") != Discard {
		t.Fatal("discardLogger.WithField should return itself")
	}
}
