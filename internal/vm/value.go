package vm

import (
	"fmt"
	"math"
	"reflect"
)

// Kind tags the member of a Value that is valid.
type Kind uint8

// Value kinds.
const (
	KindNone Kind = iota
	KindBool
	KindByte
	KindCodepoint
	KindInt
	KindUInt
	KindFloat
	KindType
	KindProc
	KindRef
	KindDeepType
)

var kindNames = [...]string{
	KindNone:      "none",
	KindBool:      "bool",
	KindByte:      "byte",
	KindCodepoint: "codepoint",
	KindInt:       "int",
	KindUInt:      "uint",
	KindFloat:     "float",
	KindType:      "type",
	KindProc:      "proc",
	KindRef:       "ref",
	KindDeepType:  "deep type",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is one operand slot. Compound values are runs of consecutive Values;
// nothing inside a Value says which run it belongs to.
type Value struct {
	kind Kind
	bits uint64
	typ  Type
	proc Procedure
	ref  Ref
}

// Literal constructors.

func Bool(b bool) Value {
	if b {
		return Value{kind: KindBool, bits: 1}
	}
	return Value{kind: KindBool}
}
func Byte(b uint8) Value          { return Value{kind: KindByte, bits: uint64(b)} }
func Codepoint(r rune) Value      { return Value{kind: KindCodepoint, bits: uint64(uint32(r))} }
func Int(i int64) Value           { return Value{kind: KindInt, bits: uint64(i)} }
func UInt(u uint64) Value         { return Value{kind: KindUInt, bits: u} }
func Float(f float64) Value       { return Value{kind: KindFloat, bits: math.Float64bits(f)} }
func TypeValue(t Type) Value      { return Value{kind: KindType, typ: t} }
func ProcValue(p Procedure) Value { return Value{kind: KindProc, proc: p} }
func RefValue(r Ref) Value        { return Value{kind: KindRef, ref: r} }

// DeepTypeValue is an owning handle on a deep type id; releasing the value
// releases the id.
func DeepTypeValue(id DeepTypePtr) Value {
	return Value{kind: KindDeepType, bits: uint64(id)}
}

// Kind returns which member of v is valid.
func (v Value) Kind() Kind { return v.kind }

func (v Value) mismatch(want Kind) error {
	return fail(CodeTypeMismatch, "read %v as %v", v.kind, want)
}

// Checked accessors; each fails with TypeMismatch rather than reinterpret.

func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, v.mismatch(KindBool)
	}
	return v.bits != 0, nil
}

func (v Value) AsByte() (uint8, error) {
	if v.kind != KindByte {
		return 0, v.mismatch(KindByte)
	}
	return uint8(v.bits), nil
}

func (v Value) AsCodepoint() (rune, error) {
	if v.kind != KindCodepoint {
		return 0, v.mismatch(KindCodepoint)
	}
	return rune(uint32(v.bits)), nil
}

func (v Value) AsInt() (int64, error) {
	if v.kind != KindInt {
		return 0, v.mismatch(KindInt)
	}
	return int64(v.bits), nil
}

func (v Value) AsUInt() (uint64, error) {
	if v.kind != KindUInt {
		return 0, v.mismatch(KindUInt)
	}
	return v.bits, nil
}

func (v Value) AsFloat() (float64, error) {
	if v.kind != KindFloat {
		return 0, v.mismatch(KindFloat)
	}
	return math.Float64frombits(v.bits), nil
}

func (v Value) AsType() (Type, error) {
	if v.kind != KindType {
		return Type{}, v.mismatch(KindType)
	}
	return v.typ, nil
}

func (v Value) AsProc() (Procedure, error) {
	if v.kind != KindProc {
		return nil, v.mismatch(KindProc)
	}
	return v.proc, nil
}

func (v Value) AsRef() (Ref, error) {
	if v.kind != KindRef {
		return Ref{}, v.mismatch(KindRef)
	}
	return v.ref, nil
}

func (v Value) AsDeepType() (DeepTypePtr, error) {
	if v.kind != KindDeepType {
		return NoType, v.mismatch(KindDeepType)
	}
	return DeepTypePtr(v.bits), nil
}

// Equal compares kind and payload; procedures compare by code pointer.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindType:
		return v.typ == other.typ
	case KindProc:
		return procPointer(v.proc) == procPointer(other.proc)
	case KindRef:
		return v.ref == other.ref
	}
	return v.bits == other.bits
}

func procPointer(p Procedure) uintptr {
	if p == nil {
		return 0
	}
	return reflect.ValueOf(p).Pointer()
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprintf("bool:%v", v.bits != 0)
	case KindByte:
		return fmt.Sprintf("byte:%d", uint8(v.bits))
	case KindCodepoint:
		return fmt.Sprintf("codepoint:%q", rune(uint32(v.bits)))
	case KindInt:
		return fmt.Sprintf("int:%d", int64(v.bits))
	case KindUInt:
		return fmt.Sprintf("uint:%d", v.bits)
	case KindFloat:
		return fmt.Sprintf("float:%v", math.Float64frombits(v.bits))
	case KindType:
		return fmt.Sprintf("type:%v", v.typ)
	case KindProc:
		if v.proc == nil {
			return "proc:nil"
		}
		return fmt.Sprintf("proc:%#x", procPointer(v.proc))
	case KindRef:
		return fmt.Sprintf("ref:%v", v.ref)
	case KindDeepType:
		return fmt.Sprintf("deep:#%d", DeepTypePtr(v.bits))
	}
	return "none"
}

// RefKind says what a Ref addresses.
type RefKind uint8

// Reference kinds.
const (
	// RefNull is the zero reference, used for absent curried blocks.
	RefNull RefKind = iota
	// RefStack addresses an operand stack slot by absolute offset.
	RefStack
	// RefCell addresses a slot inside a heap block without owning it.
	RefCell
	// RefList is an owning handle on a list block.
	RefList
)

// Ref is a (buffer, offset) reference. It is resolved against the owning
// buffer at every use, so growing a buffer never leaves it dangling.
type Ref struct {
	Kind   RefKind
	Block  BlockID
	Offset int
}

// Null is the null reference.
var Null = Ref{}

// IsNull returns true for the null reference.
func (r Ref) IsNull() bool { return r.Kind == RefNull }

// Add returns a reference n slots further into the same buffer.
func (r Ref) Add(n int) Ref {
	r.Offset += n
	return r
}

func (r Ref) String() string {
	switch r.Kind {
	case RefStack:
		return fmt.Sprintf("stack@%d", r.Offset)
	case RefCell:
		return fmt.Sprintf("block%d@%d", r.Block, r.Offset)
	case RefList:
		return fmt.Sprintf("list%d", r.Block)
	}
	return "null"
}
