package utils

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// PanicError carries a recovered panic value and the stack at the point of
// recovery.
type PanicError struct {
	Value      any
	StackTrace string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func newPanicError(r any) *PanicError {
	err := &PanicError{Value: r, StackTrace: string(debug.Stack())}
	slog.Error("Recovered from panic", "panic", r, "stack", err.StackTrace)
	return err
}

// RecoverAsError turns a panic into an error assigned through errPtr. Use it
// with defer and a named error result:
//
//	func persist() (err error) {
//	    defer RecoverAsError(&err)
//	    ...
//	}
func RecoverAsError(errPtr *error) {
	if r := recover(); r != nil {
		*errPtr = newPanicError(r)
	}
}

// RecoverWithCallback recovers a panic and hands the resulting *PanicError to
// callback, which may be nil.
func RecoverWithCallback(callback func(error)) {
	if r := recover(); r != nil {
		err := newPanicError(r)
		if callback != nil {
			callback(err)
		}
	}
}
