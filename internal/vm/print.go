package vm

import (
	"fmt"
	"math"
	"strings"
)

// Print pops one value of type t, Slots(t) slots, and writes it to the
// machine output as a "<type> (<value>)" line.
func (m *Machine) Print(t Type) error {
	n, err := m.heap.Slots(t)
	if err != nil {
		return err
	}
	vals, err := m.PeekN(n)
	if err != nil {
		return err
	}
	if want := kindOf(t.Tag); want != KindNone && vals[0].kind != want {
		return vals[0].mismatch(want)
	}
	if _, err := fmt.Fprintf(m.out, "%v (%v)\n", t, m.formatSlots(vals)); err != nil {
		return err
	}
	_, err = m.PopN(n)
	return err
}

func (m *Machine) formatSlots(vals []Value) string {
	var sb strings.Builder
	for i, v := range vals {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(m.formatValue(v))
	}
	return sb.String()
}

func (m *Machine) formatValue(v Value) string {
	switch v.kind {
	case KindBool:
		return fmt.Sprint(v.bits != 0)
	case KindByte:
		return fmt.Sprintf("%#02x", uint8(v.bits))
	case KindCodepoint:
		return fmt.Sprintf("%q", rune(uint32(v.bits)))
	case KindInt:
		return fmt.Sprint(int64(v.bits))
	case KindUInt:
		return fmt.Sprint(v.bits)
	case KindFloat:
		return fmt.Sprint(math.Float64frombits(v.bits))
	case KindType:
		return v.typ.String()
	case KindProc:
		return m.procs.name(v.proc)
	case KindRef:
		return v.ref.String()
	}
	return v.String()
}
