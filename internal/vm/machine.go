package vm

import (
	"io"

	"github.com/concatlang/concatrt/internal/flushio"
	"github.com/concatlang/concatrt/internal/panicerr"
)

// Machine is one execution: an operand stack, the heap that backs variables
// and compound values, and the active scope chain. Everything runs on the
// calling goroutine; a Machine must not be shared.
type Machine struct {
	logging
	*Stack

	heap    *Heap
	globals *Context
	scope   *Context
	depth   int

	out   flushio.WriteFlusher
	procs procTable
	fatal func(error)

	stackCap, stackLimit int
	typeCap, blockCap    int
	heapLimit            int
	buckets, maxName     int
}

// New creates a machine with a fresh stack, heap and global scope.
func New(opts ...Option) *Machine {
	var m Machine
	defaultOptions.apply(&m)
	Options(opts...).apply(&m)
	m.Stack = NewStack(m.stackCap, m.stackLimit)
	m.heap = NewHeap(m.typeCap, m.blockCap, m.heapLimit)
	m.globals = NewContext(m.heap, m.buckets, m.maxName)
	m.scope = m.globals
	if m.out == nil {
		m.out = flushio.NewWriteFlusher(io.Discard)
	}
	return &m
}

// Heap returns the machine's heap.
func (m *Machine) Heap() *Heap { return m.heap }

// Globals returns the root scope.
func (m *Machine) Globals() *Context { return m.globals }

// Scope returns the innermost open scope.
func (m *Machine) Scope() *Context { return m.scope }

// Depth returns the current procedure call depth.
func (m *Machine) Depth() int { return m.depth }

// Run calls main with an empty curried block and acts as the single fatal
// handler: any returned error, or a panicerr.Halt raised by compiled code,
// stops the program, gets logged, and is handed to the fatal handler before
// being returned.
func (m *Machine) Run(main Procedure) error {
	err := panicerr.Recover("run", func() error {
		return m.Call(main, Null)
	})
	if ferr := m.out.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		m.logf("#", "halt error: %v", err)
		if m.fatal != nil {
			m.fatal(err)
		}
	}
	return err
}

// Flush flushes the debug output stream.
func (m *Machine) Flush() error { return m.out.Flush() }

// Enter opens a nested scope inside the current one.
func (m *Machine) Enter() {
	m.scope = m.scope.Enter()
	m.logf(">", "enter scope")
}

// Exit closes the innermost scope.
func (m *Machine) Exit() error {
	if m.scope == m.globals {
		return fail(CodeScopeOpen, "cannot exit the global scope")
	}
	parent, err := m.scope.Exit()
	if err != nil {
		return err
	}
	m.scope = parent
	m.logf("<", "exit scope")
	return nil
}

// Deref reads n slots through ref, resolving it against its buffer now.
func (m *Machine) Deref(ref Ref, n int) ([]Value, error) {
	if ref.Kind == RefStack {
		return m.Stack.load(ref.Offset, n)
	}
	return m.heap.Load(ref, n)
}

// Assign writes values through ref. Slots are stored as given; ownership of
// anything they own moves with them, and whatever the overwritten heap slots
// owned is released.
func (m *Machine) Assign(ref Ref, values ...Value) error {
	if ref.Kind == RefStack {
		return m.Stack.store(ref.Offset, values)
	}
	return m.heap.Store(ref, values)
}

// Dereference pops a reference and pushes the n slots it points at.
func (m *Machine) Dereference(n int) error {
	ref, err := m.popRef()
	if err != nil {
		return err
	}
	vals, err := m.Deref(ref, n)
	if err != nil {
		return err
	}
	return m.Push(vals...)
}

// AssignThrough pops a reference, then the n slots below it, and stores
// those slots through the reference.
func (m *Machine) AssignThrough(n int) error {
	if err := m.need("assign", n+1); err != nil {
		return err
	}
	ref, err := m.popRef()
	if err != nil {
		return err
	}
	vals, err := m.PopN(n)
	if err != nil {
		return err
	}
	return m.Assign(ref, vals...)
}

func (m *Machine) popRef() (Ref, error) {
	v, err := m.Peek()
	if err != nil {
		return Null, err
	}
	ref, err := v.AsRef()
	if err != nil {
		return Null, err
	}
	m.Pop()
	return ref, nil
}

// Declare pops Slots(t) values into a new variable of the current scope.
func (m *Machine) Declare(name string, t Type, isConst bool) error {
	n, err := m.heap.Slots(t)
	if err != nil {
		return err
	}
	vals, err := m.PeekN(n)
	if err != nil {
		return err
	}
	if _, err := m.scope.Declare(name, t, isConst, vals...); err != nil {
		return err
	}
	_, err = m.PopN(n)
	return err
}

// Read pushes a copy of the named variable.
func (m *Machine) Read(name string) error {
	vals, err := m.scope.Load(name)
	if err != nil {
		return err
	}
	return m.Push(vals...)
}

// Write pops the named variable's slots and assigns them to it.
func (m *Machine) Write(name string) error {
	v, err := m.scope.Lookup(name)
	if err != nil {
		return err
	}
	vals, err := m.PeekN(v.Slots())
	if err != nil {
		return err
	}
	if err := m.scope.Assign(name, vals...); err != nil {
		return err
	}
	_, err = m.PopN(v.Slots())
	return err
}

// RefTo pushes a reference to the named variable.
func (m *Machine) RefTo(name string) error {
	v, err := m.scope.Lookup(name)
	if err != nil {
		return err
	}
	return m.Push(RefValue(v.Ref()))
}

// ArrayGet pops a uint index and an (element reference, length) array and
// pushes the slots of that element; an index past the length fails with
// IndexOutOfBounds.
func (m *Machine) ArrayGet(elemSlots int) error {
	if err := m.need("index", 3); err != nil {
		return err
	}
	vals, err := m.PeekN(3)
	if err != nil {
		return err
	}
	ref, err := vals[0].AsRef()
	if err != nil {
		return err
	}
	length, err := vals[1].AsUInt()
	if err != nil {
		return err
	}
	index, err := vals[2].AsUInt()
	if err != nil {
		return err
	}
	elem, err := m.Index(ref, length, index, elemSlots)
	if err != nil {
		return err
	}
	got, err := m.Deref(elem, elemSlots)
	if err != nil {
		return err
	}
	m.PopN(3)
	return m.Push(got...)
}

// Index returns a reference to element index of an array view.
func (m *Machine) Index(array Ref, length, index uint64, elemSlots int) (Ref, error) {
	if index >= length {
		return Null, fail(CodeIndexOutOfBounds, "index %v of array with length %v", index, length)
	}
	return array.Add(int(index) * elemSlots), nil
}
