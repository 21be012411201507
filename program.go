package main

import (
	"context"
	"math"

	"github.com/concatlang/concatrt/internal/vm"
)

// program is the hand compiled demo: each method is one procedure in the
// shape the code generator emits, registered under its source name.
type program struct {
	ctx context.Context

	intThunk  vm.Type // ( => int )
	intToInt  vm.Type // ( int => int )
	byteArray vm.Type
	intArray  vm.Type
	intPair   vm.Type
	intList   vm.Type

	test    vm.Ref // "Test"
	numbers vm.Ref // [1, 2, 3]
}

// newProgram allocates the program's types and constant data in m, and
// registers its procedures.
func newProgram(ctx context.Context, m *vm.Machine) (*program, error) {
	prog := &program{ctx: ctx}
	h := m.Heap()
	for _, def := range []struct {
		t   *vm.Type
		new func() (vm.Type, error)
	}{
		{&prog.intThunk, func() (vm.Type, error) { return h.NewProcType(nil, []vm.Type{vm.IntType}) }},
		{&prog.intToInt, func() (vm.Type, error) { return h.NewProcType([]vm.Type{vm.IntType}, []vm.Type{vm.IntType}) }},
		{&prog.byteArray, func() (vm.Type, error) { return h.NewArrayType(vm.ByteType) }},
		{&prog.intArray, func() (vm.Type, error) { return h.NewArrayType(vm.IntType) }},
		{&prog.intPair, func() (vm.Type, error) { return h.NewTupleType(vm.IntType, vm.IntType) }},
		{&prog.intList, func() (vm.Type, error) { return h.NewListType(vm.IntType) }},
	} {
		t, err := def.new()
		if err != nil {
			return nil, err
		}
		*def.t = t
	}

	var err error
	if prog.test, err = h.Static(vm.Byte('T'), vm.Byte('e'), vm.Byte('s'), vm.Byte('t')); err != nil {
		return nil, err
	}
	if prog.numbers, err = h.Static(vm.Int(1), vm.Int(2), vm.Int(3)); err != nil {
		return nil, err
	}

	for name, p := range prog.procedures() {
		m.Register(name, p)
	}
	return prog, nil
}

func (prog *program) procedures() map[string]vm.Procedure {
	return map[string]vm.Procedure{
		"main":        prog.main,
		"goldenTrace": prog.goldenTrace,
		"branches":    prog.branches,
		"locals":      prog.locals,
		"loops":       prog.loops,
		"arithmetic":  prog.arithmetic,
		"cmpCheck":    prog.cmpCheck,
		"types":       prog.types,
		"pointers":    prog.pointers,
		"arrays":      prog.arrays,
		"lists":       prog.lists,
		"pastTheEnd":  prog.pastTheEnd,
		"spin":        prog.spin,
		"one":         one,
		"two":         two,
		"three":       three,
		"four":        four,
		"toByte":      toByte,
		"square":      square,
		"cube":        cube,
		"addCurried":  addCurried,
	}
}

// main ( => )
func (prog *program) main(m *vm.Machine, _ vm.Ref) error {
	call(m, prog.goldenTrace)
	call(m, prog.branches)
	call(m, prog.locals)
	call(m, prog.loops)
	call(m, prog.arithmetic)
	call(m, prog.types)
	call(m, prog.pointers)
	call(m, prog.arrays)
	call(m, prog.lists)
	return nil
}

// goldenTrace ( => ) pushes four literals, shuffles them, and prints the
// result top down.
func (prog *program) goldenTrace(m *vm.Machine, _ vm.Ref) error {
	push(m, vm.Int(1), vm.UInt(2), vm.Byte('3'), vm.Codepoint(0x1F4BB))
	haltif(m.Rotate(2, 1))
	haltif(m.Rotate(3, 1))
	haltif(m.DupAt(1, 1))
	haltif(m.Dup(1))
	debugPrint(m, vm.ByteType)
	haltif(m.Drop(0, 1))
	debugPrint(m, vm.UIntType)
	debugPrint(m, vm.ByteType)
	debugPrint(m, vm.CodepointType)
	debugPrint(m, vm.IntType)
	return nil
}

// branches ( => ) nests an if inside an else block.
func (prog *program) branches(m *vm.Machine, _ vm.Ref) error {
	push(m, vm.Bool(false))
	if popBool(m) {
		m.Enter()
		push(m, vm.Int(1))
		haltif(m.Exit())
	} else {
		m.Enter()
		push(m, vm.Bool(false))
		if popBool(m) {
			push(m, vm.Int(1))
		} else {
			push(m, vm.Int(0))
		}
		haltif(m.Exit())
	}
	debugPrint(m, vm.IntType)
	return nil
}

// locals ( => ) declares x and y, then reads and writes x through a
// reference.
func (prog *program) locals(m *vm.Machine, _ vm.Ref) error {
	push(m, vm.Int(66))
	call(m, toByte)
	haltif(m.Dup(1))
	haltif(m.Declare("x", vm.ByteType, false))
	push(m, vm.Int(int64(popByte(m))))
	haltif(m.Declare("y", vm.IntType, false))

	haltif(m.Read("y"))
	debugPrint(m, vm.IntType)

	haltif(m.RefTo("x"))
	haltif(m.Dereference(1))
	debugPrint(m, vm.ByteType)

	push(m, vm.Byte('x'))
	haltif(m.RefTo("x"))
	haltif(m.AssignThrough(1))

	haltif(m.RefTo("x"))
	haltif(m.Dereference(1))
	debugPrint(m, vm.ByteType)

	haltif(m.Read("y"))
	push(m, vm.Int(1))
	binaryInt(m, func(a, b int64) int64 { return a + b })
	debugPrint(m, vm.IntType)

	push(m, vm.UInt(2))
	haltif(m.Read("y"))
	y := popInt(m)
	push(m, vm.UInt(popUInt(m)-uint64(y)))
	debugPrint(m, vm.UIntType)
	return nil
}

// loops ( => ) runs a while loop that rotates its condition into place, and
// a do-while countdown.
func (prog *program) loops(m *vm.Machine, _ vm.Ref) error {
	push(m, vm.Bool(true), vm.Bool(true))
	for {
		tick(prog.ctx)
		m.Enter()
		push(m, vm.Bool(false))
		haltif(m.Rotate(3, 1))
		haltif(m.Exit())
		if !popBool(m) {
			break
		}
		m.Enter()
		haltif(m.Dup(1))
		debugPrint(m, vm.BoolType)
		haltif(m.Exit())
	}
	haltif(m.Drop(0, 2))

	push(m, vm.Byte(' '))
	debugPrint(m, vm.ByteType)

	push(m, vm.Int(5))
	for {
		tick(prog.ctx)
		m.Enter()
		haltif(m.Dup(1))
		debugPrint(m, vm.IntType)
		push(m, vm.Int(1))
		binaryInt(m, func(a, b int64) int64 { return a - b })
		haltif(m.Dup(1))
		push(m, vm.Int(0))
		b := popInt(m)
		a := popInt(m)
		push(m, vm.Bool(a > b))
		haltif(m.Exit())
		if !popBool(m) {
			break
		}
	}
	haltif(m.Drop(0, 1))
	return nil
}

// arithmetic ( => ) exercises the mixed comparisons and the bitwise
// operators.
func (prog *program) arithmetic(m *vm.Machine, _ vm.Ref) error {
	for _, args := range []struct {
		x int64
		y uint64
	}{
		{-1, 1},
		{1, 2},
		{0, 1},
		{1, 0},
		{1, math.MaxUint64},
	} {
		push(m, vm.Int(args.x), vm.UInt(args.y))
		call(m, prog.cmpCheck)
		debugPrint(m, vm.IntType)
	}

	call(m, one)
	unaryInt(m, func(a int64) int64 { return ^a })
	debugPrint(m, vm.IntType)

	call(m, one)
	unaryInt(m, func(a int64) int64 { return -a })
	unaryInt(m, func(a int64) int64 { return ^a })
	debugPrint(m, vm.IntType)

	call(m, one)
	call(m, two)
	binaryInt(m, func(a, b int64) int64 { return a | b })
	call(m, three)
	binaryInt(m, func(a, b int64) int64 { return a & b })
	call(m, four)
	binaryInt(m, func(a, b int64) int64 { return a ^ b })
	debugPrint(m, vm.IntType)
	return nil
}

// cmpCheck ( int uint => int ) packs the results of <, <=, >, >= and == as
// decimal digits.
func (prog *program) cmpCheck(m *vm.Machine, _ vm.Ref) error {
	haltif(m.Declare("y", vm.UIntType, false))
	haltif(m.Declare("x", vm.IntType, false))
	push(m, vm.Int(0))
	haltif(m.Declare("res", vm.IntType, false))

	for _, op := range []string{"<", "<=", ">", ">=", "=="} {
		haltif(m.Read("x"))
		haltif(m.Read("y"))
		y := popUInt(m)
		x := popInt(m)
		bit := int64(0)
		if compareIntUInt(op, x, y) {
			bit = 1
		}
		haltif(m.Read("res"))
		push(m, vm.Int(10))
		binaryInt(m, func(a, b int64) int64 { return a * b })
		push(m, vm.Int(bit))
		binaryInt(m, func(a, b int64) int64 { return a | b })
		haltif(m.Write("res"))
	}
	return m.Read("res")
}

// types ( => ) prints every primitive type value.
func (prog *program) types(m *vm.Machine, _ vm.Ref) error {
	for _, t := range []vm.Type{
		vm.BoolType, vm.ByteType, vm.CodepointType, vm.IntType,
		vm.UIntType, vm.FloatType, vm.TypeType,
	} {
		push(m, vm.TypeValue(t))
		debugPrint(m, vm.TypeType)
	}
	return nil
}

// pointers ( => ) calls through procedure values: a plain procedure, a
// lambda held in a variable and reassigned through a reference, and a
// curried lambda.
func (prog *program) pointers(m *vm.Machine, _ vm.Ref) error {
	haltif(m.PushProc(one, vm.Null))
	haltif(m.Dup(2))
	haltif(m.CallPtr())
	debugPrint(m, vm.IntType)
	debugPrint(m, prog.intThunk)

	haltif(m.PushProc(square, vm.Null))
	haltif(m.Declare("f", prog.intToInt, false))
	push(m, vm.Int(2))
	haltif(m.RefTo("f"))
	haltif(m.Dereference(2))
	haltif(m.CallPtr())
	debugPrint(m, vm.IntType)

	haltif(m.PushProc(cube, vm.Null))
	haltif(m.RefTo("f"))
	haltif(m.AssignThrough(2))
	push(m, vm.Int(2))
	haltif(m.RefTo("f"))
	haltif(m.Dereference(2))
	haltif(m.CallPtr())
	debugPrint(m, vm.IntType)

	curried, err := m.Heap().Curry(vm.Int(40))
	haltif(err)
	push(m, vm.Int(2))
	haltif(m.PushProc(addCurried, curried))
	haltif(m.CallPtr())
	debugPrint(m, vm.IntType)
	haltif(m.Heap().ReleaseBlock(curried.Block))
	return nil
}

// arrays ( => ) prints a constant string and walks a constant int array.
func (prog *program) arrays(m *vm.Machine, _ vm.Ref) error {
	push(m, vm.RefValue(prog.test), vm.UInt(4))
	haltif(m.Dup(2))
	debugPrint(m, prog.byteArray)
	haltif(m.Declare("str", prog.byteArray, false))

	push(m, vm.RefValue(prog.numbers), vm.UInt(3))
	for i := uint64(0); i < 3; i++ {
		tick(prog.ctx)
		haltif(m.Dup(2))
		push(m, vm.UInt(i))
		haltif(m.ArrayGet(1))
		debugPrint(m, vm.IntType)
	}
	haltif(m.Drop(0, 2))

	push(m, vm.Int(1), vm.Int(2))
	debugPrint(m, prog.intPair)
	return nil
}

// lists ( => ) builds a list of squares and prints its length and last
// element.
func (prog *program) lists(m *vm.Machine, _ vm.Ref) error {
	h := m.Heap()
	l, err := h.NewList(vm.IntType, 1)
	haltif(err)
	push(m, vm.RefValue(l))
	haltif(m.Declare("squares", prog.intList, false))

	for i := int64(1); i <= 4; i++ {
		tick(prog.ctx)
		haltif(h.ListAppend(l, vm.Int(i*i)))
	}
	n, err := h.ListLen(l)
	haltif(err)
	push(m, vm.UInt(uint64(n)))
	debugPrint(m, vm.UIntType)

	elem, err := h.ListGet(l, n-1)
	haltif(err)
	push(m, elem...)
	debugPrint(m, vm.IntType)
	return nil
}

// pastTheEnd ( => ) indexes a constant array one past its end, which is
// fatal.
func (prog *program) pastTheEnd(m *vm.Machine, _ vm.Ref) error {
	push(m, vm.RefValue(prog.numbers), vm.UInt(3), vm.UInt(3))
	haltif(m.ArrayGet(1))
	return nil
}

// spin ( => ) counts forever, until the program's context is done.
func (prog *program) spin(m *vm.Machine, _ vm.Ref) error {
	push(m, vm.Int(0))
	for {
		tick(prog.ctx)
		push(m, vm.Int(1))
		binaryInt(m, func(a, b int64) int64 { return a + b })
	}
}

// one ( => int )
func one(m *vm.Machine, _ vm.Ref) error { return m.Push(vm.Int(1)) }

// two ( => int )
func two(m *vm.Machine, _ vm.Ref) error { return m.Push(vm.Int(2)) }

// three ( => int )
func three(m *vm.Machine, _ vm.Ref) error { return m.Push(vm.Int(3)) }

// four ( => int )
func four(m *vm.Machine, _ vm.Ref) error { return m.Push(vm.Int(4)) }

// toByte ( int => byte ) truncates.
func toByte(m *vm.Machine, _ vm.Ref) error {
	push(m, vm.Byte(uint8(popInt(m))))
	return nil
}

// square ( int => int )
func square(m *vm.Machine, _ vm.Ref) error {
	haltif(m.Dup(1))
	binaryInt(m, func(a, b int64) int64 { return a * b })
	return nil
}

// cube ( int => int )
func cube(m *vm.Machine, _ vm.Ref) error {
	haltif(m.Dup(1))
	haltif(m.Dup(1))
	binaryInt(m, func(a, b int64) int64 { return a * b })
	binaryInt(m, func(a, b int64) int64 { return a * b })
	return nil
}

// addCurried ( int => int ) adds its captured int.
func addCurried(m *vm.Machine, curried vm.Ref) error {
	vals, err := m.Curried(curried, 0, 1)
	if err != nil {
		return err
	}
	push(m, vals...)
	binaryInt(m, func(a, b int64) int64 { return a + b })
	return nil
}
