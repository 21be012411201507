package panicerr

import (
	"errors"
	"fmt"
)

// recoverGoexit runs last on the Recover goroutine; its send only lands when
// nothing else was sent, which means f neither returned nor panicked.
func recoverGoexit(name string, errch chan<- error) {
	select {
	case errch <- goexitError{name}:
	default:
	}
}

// goexitError reports a runtime.Goexit inside Recover, as when a test
// assertion calls FailNow from within a running program.
type goexitError struct{ name string }

func (ge goexitError) Error() string {
	if ge.name == "" {
		return "exited without returning"
	}
	return fmt.Sprintf("%v exited without returning", ge.name)
}

// IsExit returns true if err indicates a recovered goroutine exit.
func IsExit(err error) bool {
	var ge goexitError
	return errors.As(err, &ge)
}
