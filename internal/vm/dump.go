package vm

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Dump writes a text description of the machine state: the operand stack,
// live deep types, live blocks, and the variables of every open scope.
func (m *Machine) Dump(out io.Writer) {
	dump := machineDumper{m: m, out: out}
	dump.dump()
}

type machineDumper struct {
	m   *Machine
	out io.Writer

	addrWidth int
}

func (dump machineDumper) dump() {
	fmt.Fprintf(dump.out, "# Machine Dump\n")
	fmt.Fprintf(dump.out, "  depth: %v\n", dump.m.depth)
	dump.dumpStack()
	dump.dumpTypes()
	dump.dumpBlocks()
	dump.dumpScopes()
}

func (dump *machineDumper) dumpStack() {
	vals := dump.m.Values()
	fmt.Fprintf(dump.out, "# Stack size:%v cap:%v\n", len(vals), dump.m.Cap())
	dump.addrWidth = len(strconv.Itoa(len(vals))) + 1
	for i := len(vals) - 1; i >= 0; i-- {
		fmt.Fprintf(dump.out, "  @% *v %v\n", dump.addrWidth, i, dump.m.formatValue(vals[i]))
	}
}

func (dump *machineDumper) dumpTypes() {
	h := dump.m.heap
	fmt.Fprintf(dump.out, "# Deep Types live:%v hwm:%v free:%v\n", h.LiveTypes(), h.TypeHighWater(), h.TypeFreeList())
	for id := 0; id < h.typeIDs.hwm; id++ {
		dt := &h.types[id]
		if !dt.live {
			continue
		}
		fmt.Fprintf(dump.out, "  #%v %v refs:%v", id, dt.Kind, dt.RefCount)
		var buf strings.Builder
		for i, elem := range dt.Elems {
			buf.WriteByte(' ')
			if i < len(dt.Names) && dt.Names[i] != "" {
				buf.WriteString(dt.Names[i])
				buf.WriteByte(':')
			}
			if dt.Kind == TagProc && i == dt.In {
				buf.WriteString("-> ")
			}
			buf.WriteString(elem.String())
		}
		fmt.Fprintf(dump.out, "%v\n", buf.String())
	}
}

func (dump *machineDumper) dumpBlocks() {
	h := dump.m.heap
	fmt.Fprintf(dump.out, "# Blocks live:%v hwm:%v\n", h.LiveBlocks(), h.BlockHighWater())
	for id := 0; id < h.blockIDs.hwm; id++ {
		b := &h.blocks[id]
		if !b.live {
			continue
		}
		fmt.Fprintf(dump.out, "  block%v refs:%v", id, b.refs)
		switch {
		case b.list:
			fmt.Fprintf(dump.out, " list of %v len:%v cap:%v", b.content, b.size/b.stride, len(b.vals)/b.stride)
		case b.readOnly:
			fmt.Fprintf(dump.out, " ro")
		}
		fmt.Fprintf(dump.out, " [%v]\n", dump.m.formatSlots(b.vals[:b.size]))
	}
}

func (dump *machineDumper) dumpScopes() {
	level := 0
	for ctx := dump.m.scope; ctx != nil; ctx = ctx.parent {
		if ctx.parent == nil {
			fmt.Fprintf(dump.out, "# Globals\n")
		} else {
			fmt.Fprintf(dump.out, "# Scope %v\n", level)
		}
		for _, name := range ctx.Names() {
			e := ctx.find(name, HashName(name, ctx.maxName))
			mark := "var"
			if e.v.Const {
				mark = "const"
			}
			vals, err := dump.m.heap.Load(e.v.Ref(), e.v.slots)
			if err != nil {
				fmt.Fprintf(dump.out, "  %v %v: %v !%v\n", mark, name, e.v.Type, err)
				continue
			}
			fmt.Fprintf(dump.out, "  %v %v: %v = %v\n", mark, name, e.v.Type, dump.m.formatSlots(vals))
		}
		level++
	}
}
