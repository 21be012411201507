package panicerr

// Recover runs f on a new goroutine and waits for it. A panic, a
// runtime.Goexit, or a Halt inside f comes back as a non-nil error; a Halt
// returns exactly the error it carried.
func Recover(name string, f func() error) error {
	errch := make(chan error, 1)
	go func() {
		defer close(errch)
		defer recoverGoexit(name, errch)
		defer recoverPanicError(name, errch)
		errch <- f()
	}()
	return <-errch
}
