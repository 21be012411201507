package vm

import (
	"io"

	"github.com/concatlang/concatrt/internal/flushio"
)

// Option configures a Machine under construction.
type Option interface{ apply(m *Machine) }

// Options combines any number of options into one, applied in order.
func Options(opts ...Option) Option {
	var res options
	for _, opt := range opts {
		switch impl := opt.(type) {
		case nil:
		case options:
			res = append(res, impl...)
		default:
			res = append(res, impl)
		}
	}
	if len(res) == 1 {
		return res[0]
	}
	return res
}

type options []Option

func (opts options) apply(m *Machine) {
	for _, opt := range opts {
		opt.apply(m)
	}
}

var defaultOptions = Options(
	WithStackCapacity(DefaultStackCapacity),
	WithHeapCapacity(DefaultPoolCapacity, DefaultPoolCapacity),
	WithContext(DefaultBuckets, DefaultMaxNameLen),
)

// WithLogf sets a trace log function; nil disables tracing.
func WithLogf(logfn func(mess string, args ...interface{})) Option { return withLogfn(logfn) }

// WithOutput sets the stream Print writes to.
func WithOutput(w io.Writer) Option { return outputOption{w, false} }

// WithLineOutput is like WithOutput, but flushes after every printed line.
func WithLineOutput(w io.Writer) Option { return outputOption{w, true} }

// WithTee adds another stream receiving everything Print writes.
func WithTee(w io.Writer) Option { return teeOption{w} }

// WithStackCapacity sets the initial operand stack capacity in slots.
func WithStackCapacity(n int) Option { return stackOption{capacity: n, limit: -1} }

// WithStackLimit caps operand stack growth; 0 means unbounded.
func WithStackLimit(n int) Option { return stackOption{capacity: -1, limit: n} }

// WithHeapCapacity sets the initial deep type and block pool capacities.
func WithHeapCapacity(types, blocks int) Option { return heapOption{types: types, blocks: blocks, limit: -1} }

// WithHeapLimit caps both heap pools; 0 means unbounded.
func WithHeapLimit(n int) Option { return heapOption{types: -1, blocks: -1, limit: n} }

// WithContext sets the global scope bucket count and the hashed name length.
func WithContext(buckets, maxName int) Option { return contextOption{buckets, maxName} }

// WithFatalHandler sets the function Run hands a halting error to.
func WithFatalHandler(fn func(error)) Option { return fatalOption(fn) }

type withLogfn func(mess string, args ...interface{})
type outputOption struct {
	io.Writer
	lines bool
}
type teeOption struct{ io.Writer }
type stackOption struct{ capacity, limit int }
type heapOption struct{ types, blocks, limit int }
type contextOption struct{ buckets, maxName int }
type fatalOption func(error)

func (logfn withLogfn) apply(m *Machine) { m.logfn = logfn }

func (o outputOption) apply(m *Machine) {
	if m.out != nil {
		m.out.Flush()
	}
	if o.lines {
		m.out = flushio.NewLineFlusher(o.Writer)
	} else {
		m.out = flushio.NewWriteFlusher(o.Writer)
	}
}

func (o teeOption) apply(m *Machine) {
	m.out = flushio.WriteFlushers(m.out, flushio.NewWriteFlusher(o.Writer))
}

func (o stackOption) apply(m *Machine) {
	if o.capacity >= 0 {
		m.stackCap = o.capacity
	}
	if o.limit >= 0 {
		m.stackLimit = o.limit
	}
}

func (o heapOption) apply(m *Machine) {
	if o.types >= 0 {
		m.typeCap = o.types
	}
	if o.blocks >= 0 {
		m.blockCap = o.blocks
	}
	if o.limit >= 0 {
		m.heapLimit = o.limit
	}
}

func (o contextOption) apply(m *Machine) {
	m.buckets = o.buckets
	m.maxName = o.maxName
}

func (fn fatalOption) apply(m *Machine) { m.fatal = fn }
