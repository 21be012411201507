package panicerr

import (
	"errors"
	"fmt"
)

// Halt stops the goroutine running under Recover, which then returns err as
// is. Compiled code calls it when a runtime error is fatal and unwinding
// through explicit returns is not possible.
func Halt(err error) {
	panic(haltError{err})
}

// HaltIf calls Halt with any non-nil err.
func HaltIf(err error) {
	if err != nil {
		Halt(err)
	}
}

type haltError struct{ error }

func (err haltError) Error() string {
	if err.error != nil {
		return fmt.Sprintf("halted: %v", err.error)
	}
	return "halted"
}

func (err haltError) Unwrap() error { return err.error }

// IsHalt returns true if err carries a Halt that escaped Recover.
func IsHalt(err error) bool {
	var he haltError
	return errors.As(err, &he)
}
