// Package flushio provides the buffered output streams behind debug printing.
package flushio

import (
	"bufio"
	"bytes"
	"io"
)

// WriteFlusher is a flush-able io.Writer.
type WriteFlusher interface {
	io.Writer
	Flush() error
}

var discardWriteFlusher WriteFlusher = nopFlusher{io.Discard}

// NewWriteFlusher returns w itself if it can already flush, a no-op flushing
// wrapper for io.Discard and in memory buffers, and a bufio.Writer otherwise.
func NewWriteFlusher(w io.Writer) WriteFlusher {
	if w == io.Discard {
		return discardWriteFlusher
	}
	if wf, is := w.(WriteFlusher); is {
		return wf
	}
	if isBuffer(w) {
		return nopFlusher{w}
	}
	return bufio.NewWriter(w)
}

// NewLineFlusher is like NewWriteFlusher, but also flushes whenever a write
// completes a line, so that printed values interleave with trace logging.
func NewLineFlusher(w io.Writer) WriteFlusher {
	wf := NewWriteFlusher(w)
	if _, isNop := wf.(nopFlusher); isNop {
		return wf
	}
	return lineFlusher{wf}
}

// in memory buffers, like bytes.Buffer and strings.Builder, never need flushing
func isBuffer(w io.Writer) bool {
	type buffer interface {
		io.Writer
		Cap() int
		Len() int
		Grow(n int)
		Reset()
	}
	_, is := w.(buffer)
	return is
}

type nopFlusher struct{ io.Writer }

func (nf nopFlusher) Flush() error { return nil }

type lineFlusher struct{ WriteFlusher }

func (lf lineFlusher) Write(p []byte) (int, error) {
	n, err := lf.WriteFlusher.Write(p)
	if err == nil && bytes.IndexByte(p[:n], '\n') >= 0 {
		err = lf.Flush()
	}
	return n, err
}
