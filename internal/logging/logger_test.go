package logging

import "testing"

func TestOrNopReturnsNopForNil(t *testing.T) {
	if logger := OrNop(nil); logger == nil {
		t.Fatalf("OrNop(nil) must return a usable logger")
	}

	var typedNil *fileLogger
	logger := OrNop(typedNil)
	if logger == nil {
		t.Fatalf("OrNop must handle typed nil pointers")
	}
	// Must not panic.
	logger.Debug("ignored %d", 1)
}

func TestIsNil(t *testing.T) {
	if !IsNil(nil) {
		t.Fatalf("nil interface should be nil")
	}
	var typedNil *fileLogger
	if !IsNil(typedNil) {
		t.Fatalf("typed nil pointer should be nil")
	}
	if IsNil(Nop()) {
		t.Fatalf("nop logger is not nil")
	}
}

func TestComponentLoggerDoesNotPanicWithoutFile(t *testing.T) {
	logger := NewComponentLogger("test")
	logger.Info("hello %s", "world")
	logger.Error("err %v", "boom")
}
