package logio

import (
	"bytes"
	"fmt"
	"io"
	"time"
)

// ElapsedWriter stamps every line written through it with the time elapsed
// since the writer was created, e.g. "+1.5ms TRACE: > call main". Partial
// lines are held until their newline arrives, or until Close.
type ElapsedWriter struct {
	out   io.Writer
	now   func() time.Time
	start time.Time
	buf   bytes.Buffer
}

// NewElapsedWriter returns an ElapsedWriter onto out; now defaults to
// time.Now.
func NewElapsedWriter(out io.Writer, now func() time.Time) *ElapsedWriter {
	if now == nil {
		now = time.Now
	}
	return &ElapsedWriter{out: out, now: now, start: now()}
}

// Write stamps and forwards every line p completes.
func (ew *ElapsedWriter) Write(p []byte) (int, error) {
	ew.buf.Write(p)
	if err := ew.flush(false); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close forwards any partial line, terminating it. The underlying writer
// stays open.
func (ew *ElapsedWriter) Close() error {
	return ew.flush(true)
}

func (ew *ElapsedWriter) flush(partial bool) error {
	for ew.buf.Len() > 0 {
		line := ew.buf.Bytes()
		if i := bytes.IndexByte(line, '\n'); i >= 0 {
			line = line[:i+1]
		} else if !partial {
			return nil
		}
		d := ew.now().Sub(ew.start)
		if _, err := fmt.Fprintf(ew.out, "+%v %s", d, line); err != nil {
			ew.buf.Reset()
			return err
		}
		if line[len(line)-1] != '\n' {
			io.WriteString(ew.out, "\n")
		}
		ew.buf.Next(len(line))
	}
	return nil
}
