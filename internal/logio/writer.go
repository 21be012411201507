package logio

import (
	"bytes"
	"sync"
)

// Writer is an io.Writer that hands every complete line to Logf, optionally
// prefixed; it lets tests route a machine's printed output into t.Logf.
type Writer struct {
	Logf   func(string, ...interface{})
	Prefix string

	mu  sync.Mutex
	buf bytes.Buffer
}

// Write buffers p and logs any lines it completes. It never fails.
func (lw *Writer) Write(p []byte) (n int, err error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.buf.Write(p)
	lw.logLines(false)
	return len(p), nil
}

// Sync logs whatever partial line remains buffered.
func (lw *Writer) Sync() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.logLines(true)
	return nil
}

// Close calls Sync.
func (lw *Writer) Close() error {
	return lw.Sync()
}

func (lw *Writer) logLines(partial bool) {
	for lw.buf.Len() > 0 {
		line := lw.buf.Bytes()
		if i := bytes.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
		} else if !partial {
			return
		}
		lw.Logf("%s%s", lw.Prefix, line)
		lw.buf.Next(len(line))
		if lw.buf.Len() > 0 && lw.buf.Bytes()[0] == '\n' {
			lw.buf.Next(1)
		}
	}
}
