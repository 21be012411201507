package main

import (
	"context"

	"github.com/concatlang/concatrt/internal/panicerr"
	"github.com/concatlang/concatrt/internal/vm"
)

// Compiled code has no recovery path of its own: every runtime error is fatal
// and unwinds straight to Machine.Run.

func haltif(err error) {
	panicerr.HaltIf(err)
}

// tick halts a long running loop once its context is done.
func tick(ctx context.Context) {
	haltif(ctx.Err())
}

func push(m *vm.Machine, values ...vm.Value) {
	haltif(m.Push(values...))
}

func pop(m *vm.Machine) vm.Value {
	v, err := m.Pop()
	haltif(err)
	return v
}

func popBool(m *vm.Machine) bool {
	b, err := pop(m).AsBool()
	haltif(err)
	return b
}

func popByte(m *vm.Machine) uint8 {
	b, err := pop(m).AsByte()
	haltif(err)
	return b
}

func popInt(m *vm.Machine) int64 {
	i, err := pop(m).AsInt()
	haltif(err)
	return i
}

func popUInt(m *vm.Machine) uint64 {
	u, err := pop(m).AsUInt()
	haltif(err)
	return u
}

// binaryInt pops two ints and pushes op applied to them, left operand lower.
func binaryInt(m *vm.Machine, op func(a, b int64) int64) {
	b := popInt(m)
	a := popInt(m)
	push(m, vm.Int(op(a, b)))
}

func unaryInt(m *vm.Machine, op func(a int64) int64) {
	push(m, vm.Int(op(popInt(m))))
}

// compareIntUInt implements the mixed signedness comparisons: a negative int
// is below every uint.
func compareIntUInt(op string, x int64, y uint64) bool {
	switch op {
	case "<":
		return x < 0 || uint64(x) < y
	case "<=":
		return x < 0 || uint64(x) <= y
	case ">":
		return x >= 0 && uint64(x) > y
	case ">=":
		return x >= 0 && uint64(x) >= y
	case "==":
		return x >= 0 && uint64(x) == y
	case "!=":
		return x < 0 || uint64(x) != y
	}
	panic("invalid comparison " + op)
}

func debugPrint(m *vm.Machine, t vm.Type) {
	haltif(m.Print(t))
}

func call(m *vm.Machine, p vm.Procedure) {
	haltif(m.Call(p, vm.Null))
}
