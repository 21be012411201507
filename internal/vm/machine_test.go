package vm

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/concatlang/concatrt/internal/panicerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_reference(t *testing.T) {
	m := New()
	require.NoError(t, m.Push(Byte(51)))
	require.NoError(t, m.Declare("x", ByteType, false))
	assert.Equal(t, 0, m.Len())

	require.NoError(t, m.Push(Byte('x')))
	require.NoError(t, m.RefTo("x"))
	require.NoError(t, m.AssignThrough(1))
	assert.Equal(t, 0, m.Len())

	require.NoError(t, m.RefTo("x"))
	require.NoError(t, m.Dereference(1))
	v, err := m.Pop()
	require.NoError(t, err)
	b, err := v.AsByte()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x78), b)

	_, err = v.AsInt()
	assert.True(t, errorIs(err, ErrTypeMismatch))
}

func TestMachine_stackReference(t *testing.T) {
	m := New(WithStackCapacity(2))
	require.NoError(t, m.Push(Int(5)))
	ref, err := m.Stack.RefTo(0)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, m.Push(Int(int64(i))))
	}
	require.NoError(t, m.Assign(ref, Int(50)))
	vals, err := m.Deref(ref, 1)
	require.NoError(t, err)
	assert.Equal(t, []Value{Int(50)}, vals)

	require.NoError(t, m.Push(RefValue(Null)))
	assert.True(t, errorIs(m.Dereference(1), ErrInvalidReference))
}

func TestMachine_readWrite(t *testing.T) {
	m := New()
	require.NoError(t, m.Push(Int(1)))
	require.NoError(t, m.Declare("n", IntType, true))
	require.NoError(t, m.Push(Int(2)))
	assert.True(t, errorIs(m.Write("n"), ErrConstWrite))
	assert.Equal(t, 1, m.Len(), "failed write leaves its operand")

	require.NoError(t, m.Declare("m", IntType, false))
	require.NoError(t, m.Read("n"))
	require.NoError(t, m.Write("m"))
	require.NoError(t, m.Read("m"))
	assert.Equal(t, []Value{Int(1)}, m.Values())

	assert.True(t, errorIs(m.Read("nope"), ErrVariableNotFound))
}

func TestMachine_scopes(t *testing.T) {
	m := New()
	assert.True(t, errorIs(m.Exit(), ErrScopeOpen), "globals stay open")

	require.NoError(t, m.Push(Int(1)))
	require.NoError(t, m.Declare("x", IntType, false))
	m.Enter()
	require.NoError(t, m.Push(Int(2)))
	require.NoError(t, m.Declare("x", IntType, false))
	require.NoError(t, m.Read("x"))
	require.NoError(t, m.Exit())
	require.NoError(t, m.Read("x"))
	assert.Equal(t, []Value{Int(2), Int(1)}, m.Values())
	assert.Equal(t, 1, m.Heap().LiveBlocks())
}

func TestMachine_arrayGet(t *testing.T) {
	m := New()
	arr, err := m.Heap().Static(Int(10), Int(20), Int(30))
	require.NoError(t, err)

	require.NoError(t, m.Push(RefValue(arr), UInt(3), UInt(2)))
	require.NoError(t, m.ArrayGet(1))
	assert.Equal(t, []Value{Int(30)}, m.Values())

	require.NoError(t, m.Push(RefValue(arr), UInt(3), UInt(3)))
	err = m.ArrayGet(1)
	assert.True(t, errorIs(err, ErrIndexOutOfBounds), "got %v", err)
	assert.Equal(t, 0xa7, ExitStatus(err))
	assert.Equal(t, 4, m.Len(), "failed index leaves its operands")

	require.NoError(t, m.Push(Int(0)))
	assert.True(t, errorIs(m.ArrayGet(1), ErrTypeMismatch))
}

func TestMachine_callPtr(t *testing.T) {
	m := New()
	var seenDepth int
	addCurried := func(m *Machine, curried Ref) error {
		seenDepth = m.Depth()
		vals, err := m.Curried(curried, 0, 1)
		if err != nil {
			return err
		}
		n, err := vals[0].AsInt()
		if err != nil {
			return err
		}
		v, err := m.Pop()
		if err != nil {
			return err
		}
		x, err := v.AsInt()
		if err != nil {
			return err
		}
		return m.Push(Int(x + n))
	}
	m.Register("add-curried", addCurried)

	curried, err := m.Heap().Curry(Int(40))
	require.NoError(t, err)
	require.NoError(t, m.Push(Int(2)))
	require.NoError(t, m.PushProc(addCurried, curried))
	require.NoError(t, m.CallPtr())
	assert.Equal(t, []Value{Int(42)}, m.Values())
	assert.Equal(t, 1, seenDepth)
	assert.Equal(t, 0, m.Depth())

	require.NoError(t, m.PushProc(addCurried, Null))
	assert.True(t, errorIs(m.CallPtr(), ErrInvalidReference), "uncurried call has no captures")

	require.NoError(t, m.Push(Int(1), Int(2)))
	assert.True(t, errorIs(m.CallPtr(), ErrTypeMismatch))
	assert.NotNil(t, m.Lookup("add-curried"))
	assert.Nil(t, m.Lookup("nope"))
}

func TestMachine_callScope(t *testing.T) {
	m := New()
	require.NoError(t, m.Push(Int(1)))
	require.NoError(t, m.Declare("g", IntType, false))

	callee := func(m *Machine, _ Ref) error {
		if err := m.Push(Int(99)); err != nil {
			return err
		}
		if err := m.Declare("local", IntType, false); err != nil {
			return err
		}
		return m.Read("g")
	}
	caller := func(m *Machine, _ Ref) error {
		if err := m.Push(Int(5)); err != nil {
			return err
		}
		if err := m.Declare("mine", IntType, false); err != nil {
			return err
		}
		if err := m.Call(callee, Null); err != nil {
			return err
		}
		return m.Read("mine")
	}
	require.NoError(t, m.Call(caller, Null))
	assert.Equal(t, []Value{Int(1), Int(5)}, m.Values())
	assert.Equal(t, 1, m.Heap().LiveBlocks(), "call scopes release their variables")
	assert.Equal(t, m.Globals(), m.Scope())

	leaky := func(m *Machine, _ Ref) error {
		return m.Read("mine")
	}
	assert.True(t, errorIs(m.Call(leaky, Null), ErrVariableNotFound), "callee scopes hang off the globals")
	assert.True(t, errorIs(m.Call(nil, Null), ErrInvalidReference))
}

func TestMachine_run(t *testing.T) {
	var fatal error
	var trace []string
	m := New(
		WithFatalHandler(func(err error) { fatal = err }),
		WithLogf(func(mess string, args ...interface{}) {
			trace = append(trace, fmt.Sprintf(mess, args...))
		}),
	)
	m.Register("main", underflowMain)

	err := m.Run(underflowMain)
	assert.True(t, errorIs(err, ErrStackUnderflow), "got %v", err)
	assert.Equal(t, err, fatal)
	assert.Equal(t, 1, ExitStatus(err))
	assert.Equal(t, []string{
		"> call main depth:0 stack:0",
		"# halt error: stack underflow: pop needs 1 slots, have 0",
	}, trace)

	fatal = nil
	err = m.Run(func(m *Machine, _ Ref) error {
		panicerr.Halt(fail(CodeReadOnly, "store into block0@0"))
		return nil
	})
	assert.True(t, errorIs(err, ErrReadOnly), "got %v", err)
	assert.Equal(t, err, fatal)

	fatal = nil
	assert.NoError(t, m.Run(func(m *Machine, _ Ref) error { return nil }))
	assert.Nil(t, fatal)
}

func underflowMain(m *Machine, _ Ref) error {
	_, err := m.Pop()
	return err
}

func TestMachine_print(t *testing.T) {
	var out, tee bytes.Buffer
	m := New(WithOutput(&out), WithTee(&tee))
	tup, err := m.Heap().NewTupleType(IntType, CodepointType)
	require.NoError(t, err)

	require.NoError(t, m.Push(Int(-3), Codepoint('λ'), Byte('3'), Bool(true), UInt(7)))
	require.NoError(t, m.Print(UIntType))
	require.NoError(t, m.Print(BoolType))
	require.NoError(t, m.Print(ByteType))
	require.NoError(t, m.Print(tup))
	require.NoError(t, m.Flush())
	assert.Equal(t, ""+
		"uint (7)\n"+
		"bool (true)\n"+
		"byte (0x33)\n"+
		"tuple#0 (-3 'λ')\n",
		out.String())
	assert.Equal(t, out.String(), tee.String())
	assert.Equal(t, 0, m.Len())

	require.NoError(t, m.Push(Int(1)))
	assert.True(t, errorIs(m.Print(FloatType), ErrTypeMismatch))
	assert.True(t, errorIs(m.Print(tup), ErrStackUnderflow))
}

func TestMachine_dump(t *testing.T) {
	m := New()
	require.NoError(t, m.Push(Int(1)))
	require.NoError(t, m.Declare("answer", IntType, true))
	require.NoError(t, m.Push(Byte(2), Bool(false)))

	var out bytes.Buffer
	m.Dump(&out)
	assert.Contains(t, out.String(), "# Machine Dump")
	assert.Contains(t, out.String(), "# Stack size:2")
	assert.Contains(t, out.String(), "@ 1 false")
	assert.Contains(t, out.String(), "const answer: int = 1")
	assert.Contains(t, out.String(), "block0 refs:1 ro [1]")
}

type lineRecorder struct{ lines []string }

func (lr *lineRecorder) Write(p []byte) (int, error) {
	lr.lines = append(lr.lines, string(p))
	return len(p), nil
}

func TestMachine_lineOutput(t *testing.T) {
	var lr lineRecorder
	m := New(WithLineOutput(&lr))
	require.NoError(t, m.Push(Int(1)))
	require.NoError(t, m.Print(IntType))
	assert.Equal(t, []string{"int (1)\n"}, lr.lines, "printed line reaches the writer without an explicit flush")
}

func TestMachine_assignThroughReleases(t *testing.T) {
	m := New()
	h := m.Heap()
	listType, err := h.NewListType(IntType)
	require.NoError(t, err)

	first, err := h.NewList(IntType, 1)
	require.NoError(t, err)
	require.NoError(t, m.Push(RefValue(first)))
	require.NoError(t, m.Declare("xs", listType, false))

	second, err := h.NewList(IntType, 1)
	require.NoError(t, err)
	require.NoError(t, m.Push(RefValue(second)))
	require.NoError(t, m.RefTo("xs"))
	require.NoError(t, m.AssignThrough(1))

	_, err = h.BlockLen(first.Block)
	assert.Error(t, err, "the overwritten list is released")
	assert.Equal(t, 2, h.LiveBlocks(), "variable storage and the new list")

	_, err = m.Globals().Exit()
	require.NoError(t, err)
	require.NoError(t, h.Release(listType.Deep))
	assert.Equal(t, 0, h.LiveBlocks())
	assert.Equal(t, 0, h.LiveTypes())
}

func TestMachine_callClosesNestedScopes(t *testing.T) {
	m := New()
	boom := fmt.Errorf("boom")
	callee := func(m *Machine, _ Ref) error {
		if err := m.Push(Int(1)); err != nil {
			return err
		}
		if err := m.Declare("outer", IntType, false); err != nil {
			return err
		}
		m.Enter()
		m.Enter()
		if err := m.Push(Int(2)); err != nil {
			return err
		}
		if err := m.Declare("inner", IntType, false); err != nil {
			return err
		}
		return boom
	}
	assert.Equal(t, boom, m.Call(callee, Null))
	assert.Equal(t, 0, m.Heap().LiveBlocks(), "unclosed scopes release their variables")
	assert.Equal(t, m.Globals(), m.Scope())
	assert.Equal(t, 0, m.Depth())

	require.NoError(t, m.Call(func(m *Machine, _ Ref) error {
		m.Enter()
		return nil
	}, Null), "returning with an open scope is not an error")
	_, err := m.Globals().Exit()
	assert.NoError(t, err, "no child scopes remain open")
}
