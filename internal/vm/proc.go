package vm

// Procedure is the calling convention of compiled code. Arguments are on the
// stack before the call; the procedure pops its own arguments and pushes its
// own results. curried is Null, or a reference to the block of values the
// procedure value captured.
type Procedure func(m *Machine, curried Ref) error

// Call invokes p. Scopes are caller-managed: every call gets a fresh scope
// whose parent is the global scope, closed again when p returns, so no
// procedure ever hands a scope back to its caller.
func (m *Machine) Call(p Procedure, curried Ref) (err error) {
	if p == nil {
		return fail(CodeInvalidReference, "call of nil procedure")
	}
	if m.logfn != nil {
		m.logf(">", "call %v depth:%v stack:%v", m.procs.name(p), m.depth, m.Len())
		defer m.withLogPrefix("  ")()
	}

	scope, saved := m.globals.Enter(), m.scope
	m.scope = scope
	m.depth++
	defer func() {
		m.depth--
		xerr := m.closeScopes(scope)
		m.scope = saved
		if err == nil {
			err = xerr
		}
	}()
	return p(m, curried)
}

// closeScopes exits every scope the callee left open, then the call scope
// itself. Call scopes hang off the globals, so the walk never climbs past
// scope.
func (m *Machine) closeScopes(scope *Context) error {
	for ctx := m.scope; ctx != scope && ctx != m.globals && ctx != nil; {
		parent, err := ctx.Exit()
		if err != nil {
			return err
		}
		m.logf("<", "exit unclosed scope")
		ctx = parent
	}
	_, err := scope.Exit()
	return err
}

// PushProc pushes a procedure value: the procedure slot, then its curried
// reference slot.
func (m *Machine) PushProc(p Procedure, curried Ref) error {
	return m.Push(ProcValue(p), RefValue(curried))
}

// CallPtr pops a procedure value (procedure, curried reference) and calls it
// on the remaining stack.
func (m *Machine) CallPtr() error {
	vals, err := m.PeekN(2)
	if err != nil {
		return err
	}
	p, err := vals[0].AsProc()
	if err != nil {
		return err
	}
	curried, err := vals[1].AsRef()
	if err != nil {
		return err
	}
	m.PopN(2)
	return m.Call(p, curried)
}

// Curried reads n captured values starting at slot i of a curried block.
func (m *Machine) Curried(curried Ref, i, n int) ([]Value, error) {
	if curried.IsNull() {
		return nil, fail(CodeInvalidReference, "procedure has no curried block")
	}
	return m.heap.Load(curried.Add(i), n)
}

// Register names p, so that dumps and snapshots can refer to it.
func (m *Machine) Register(name string, p Procedure) {
	m.procs.register(name, p)
}

// Lookup returns the procedure registered under name, or nil.
func (m *Machine) Lookup(name string) Procedure {
	return m.procs.lookup(name)
}
