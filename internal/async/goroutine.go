package async

import "runtime/debug"

// PanicLogger captures panic reports from background goroutines.
type PanicLogger interface {
	Error(format string, args ...any)
}

// Go runs fn on a new goroutine and logs, rather than propagates, any panic.
// name identifies the goroutine in panic reports.
func Go(logger PanicLogger, name string, fn func()) {
	go func() {
		defer func() {
			r := recover()
			if r == nil || logger == nil {
				return
			}
			logger.Error("background goroutine %q panicked: %v\n%s", name, r, debug.Stack())
		}()
		fn()
	}()
}
