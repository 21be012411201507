package logio

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// Levels used by the concatrt command.
const (
	LevelInfo  = "INFO"
	LevelTrace = "TRACE"
	LevelError = "ERROR"
)

// Exit statuses reported by Logger.ExitCode.
const (
	statusErrorLogged = 1
	statusLogBroken   = 2
)

// Logger writes "LEVEL: message" lines to a base stream. A run may route
// lines through a pipe (see Wrap) such as an ElapsedWriter; the base stream
// itself is never closed by the logger.
type Logger struct {
	mu     sync.Mutex
	base   io.Writer
	pipe   io.WriteCloser
	line   bytes.Buffer
	status int
}

// NewLogger creates a logger writing to out.
func NewLogger(out io.Writer) *Logger {
	return &Logger{base: out}
}

// Wrap routes every later line through pipe(base) until Unwrap or Close.
// Wrapping again replaces, and closes, the previous pipe.
func (log *Logger) Wrap(pipe func(base io.Writer) io.WriteCloser) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.closePipe()
	log.pipe = pipe(log.base)
}

// Unwrap closes any pipe and goes back to writing the base stream directly.
func (log *Logger) Unwrap() {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.closePipe()
}

// Close is Unwrap; it exists so the logger can be deferred like a stream.
func (log *Logger) Close() error {
	log.Unwrap()
	return nil
}

// ExitCode closes any pipe, then returns 0 when nothing went wrong, 1 after
// an Errorf or ErrorIf, and 2 once writing a log line has failed.
func (log *Logger) ExitCode() int {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.closePipe()
	return log.status
}

// Tracef returns a printf-style function logging at LevelTrace, suitable as
// a machine trace log function.
func (log *Logger) Tracef() func(mess string, args ...interface{}) {
	return func(mess string, args ...interface{}) {
		log.Printf(LevelTrace, mess, args...)
	}
}

// ErrorIf logs a non-nil err with its details and marks the run failed.
func (log *Logger) ErrorIf(err error) {
	if err != nil {
		log.Errorf("%+v", err)
	}
}

// Errorf logs at LevelError and marks the run failed.
func (log *Logger) Errorf(mess string, args ...interface{}) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.writeLine(LevelError, mess, args)
	if log.status < statusErrorLogged {
		log.status = statusErrorLogged
	}
}

// Printf logs one line at level; an empty level omits the "LEVEL: " label.
func (log *Logger) Printf(level, mess string, args ...interface{}) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.writeLine(level, mess, args)
}

// writeLine formats and writes one line. A failing pipe is dropped and the
// line goes to the base stream instead, followed by the write error.
func (log *Logger) writeLine(level, mess string, args []interface{}) {
	log.line.Reset()
	if level != "" {
		log.line.WriteString(level)
		log.line.WriteString(": ")
	}
	if len(args) > 0 {
		fmt.Fprintf(&log.line, mess, args...)
	} else {
		log.line.WriteString(mess)
	}
	if b := log.line.Bytes(); len(b) == 0 || b[len(b)-1] != '\n' {
		log.line.WriteByte('\n')
	}

	line := log.line.Bytes()
	if log.pipe == nil {
		if _, err := log.base.Write(line); err != nil {
			log.status = statusLogBroken
		}
		return
	}
	_, err := log.pipe.Write(line)
	if err == nil {
		return
	}
	log.pipe.Close()
	log.pipe = nil
	log.base.Write(line)
	fmt.Fprintf(log.base, "%v: %+v\n", LevelError, err)
	log.status = statusLogBroken
}

func (log *Logger) closePipe() {
	if log.pipe == nil {
		return
	}
	pipe := log.pipe
	log.pipe = nil
	if err := pipe.Close(); err != nil {
		fmt.Fprintf(log.base, "%v: %+v\n", LevelError, err)
		log.status = statusLogBroken
	}
}
