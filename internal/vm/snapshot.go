package vm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

var snapshotEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	snapshotEncMode = em
}

// Snapshot is a serializable copy of machine state: the operand stack, the
// live heap, and the variables of every open scope, innermost first.
type Snapshot struct {
	Stack          []SlotRecord  `cbor:"1,keyasint"`
	Types          []TypeRecord  `cbor:"2,keyasint,omitempty"`
	Blocks         []BlockRecord `cbor:"3,keyasint,omitempty"`
	Scopes         []ScopeRecord `cbor:"4,keyasint,omitempty"`
	TypeHighWater  int           `cbor:"5,keyasint"`
	BlockHighWater int           `cbor:"6,keyasint"`
	Depth          int           `cbor:"7,keyasint"`
}

// SlotRecord is one Value. Procedures are recorded by registered name.
type SlotRecord struct {
	Kind   Kind    `cbor:"1,keyasint"`
	Bits   uint64  `cbor:"2,keyasint,omitempty"`
	Tag    TypeTag `cbor:"3,keyasint,omitempty"`
	Deep   int     `cbor:"4,keyasint,omitempty"`
	Proc   string  `cbor:"5,keyasint,omitempty"`
	Ref    RefKind `cbor:"6,keyasint,omitempty"`
	Block  int     `cbor:"7,keyasint,omitempty"`
	Offset int     `cbor:"8,keyasint,omitempty"`
}

// TypeRecord is one live deep type.
type TypeRecord struct {
	ID       int          `cbor:"1,keyasint"`
	Kind     TypeTag      `cbor:"2,keyasint"`
	RefCount uint32       `cbor:"3,keyasint"`
	Elems    []SlotRecord `cbor:"4,keyasint,omitempty"`
	Names    []string     `cbor:"5,keyasint,omitempty"`
	In       int          `cbor:"6,keyasint,omitempty"`
}

// BlockRecord is one live block.
type BlockRecord struct {
	ID       int          `cbor:"1,keyasint"`
	Refs     uint32       `cbor:"2,keyasint"`
	ReadOnly bool         `cbor:"3,keyasint,omitempty"`
	List     bool         `cbor:"4,keyasint,omitempty"`
	Stride   int          `cbor:"5,keyasint,omitempty"`
	Values   []SlotRecord `cbor:"6,keyasint,omitempty"`
}

// ScopeRecord lists the variables of one scope.
type ScopeRecord struct {
	Vars []VarRecord `cbor:"1,keyasint,omitempty"`
}

// VarRecord is one variable binding.
type VarRecord struct {
	Name  string     `cbor:"1,keyasint"`
	Type  SlotRecord `cbor:"2,keyasint"`
	Const bool       `cbor:"3,keyasint,omitempty"`
	Block int        `cbor:"4,keyasint"`
}

// Snapshot captures the current machine state.
func (m *Machine) Snapshot() *Snapshot {
	h := m.heap
	snap := &Snapshot{
		TypeHighWater:  h.TypeHighWater(),
		BlockHighWater: h.BlockHighWater(),
		Depth:          m.depth,
	}
	for _, v := range m.Values() {
		snap.Stack = append(snap.Stack, m.slotRecord(v))
	}
	for id := 0; id < h.typeIDs.hwm; id++ {
		dt := &h.types[id]
		if !dt.live {
			continue
		}
		rec := TypeRecord{ID: id, Kind: dt.Kind, RefCount: dt.RefCount, Names: dt.Names, In: dt.In}
		for _, elem := range dt.Elems {
			rec.Elems = append(rec.Elems, typeRecord(elem))
		}
		snap.Types = append(snap.Types, rec)
	}
	for id := 0; id < h.blockIDs.hwm; id++ {
		b := &h.blocks[id]
		if !b.live {
			continue
		}
		rec := BlockRecord{ID: id, Refs: b.refs, ReadOnly: b.readOnly, List: b.list, Stride: b.stride}
		for _, v := range b.vals[:b.size] {
			rec.Values = append(rec.Values, m.slotRecord(v))
		}
		snap.Blocks = append(snap.Blocks, rec)
	}
	for ctx := m.scope; ctx != nil; ctx = ctx.parent {
		var rec ScopeRecord
		for _, name := range ctx.Names() {
			e := ctx.find(name, HashName(name, ctx.maxName))
			rec.Vars = append(rec.Vars, VarRecord{
				Name:  name,
				Type:  typeRecord(e.v.Type),
				Const: e.v.Const,
				Block: int(e.v.storage),
			})
		}
		snap.Scopes = append(snap.Scopes, rec)
	}
	return snap
}

func typeRecord(t Type) SlotRecord {
	return SlotRecord{Kind: KindType, Tag: t.Tag, Deep: int(t.Deep)}
}

func (m *Machine) slotRecord(v Value) SlotRecord {
	rec := SlotRecord{Kind: v.kind, Bits: v.bits}
	switch v.kind {
	case KindType:
		rec.Tag, rec.Deep = v.typ.Tag, int(v.typ.Deep)
	case KindProc:
		rec.Proc = m.procs.name(v.proc)
	case KindRef:
		rec.Ref, rec.Block, rec.Offset = v.ref.Kind, int(v.ref.Block), v.ref.Offset
	}
	return rec
}

// Value rebuilds a Value from its record; procedures are resolved by name
// against m, unknown names decode as nil procedures.
func (rec SlotRecord) Value(m *Machine) Value {
	switch rec.Kind {
	case KindType:
		return TypeValue(Type{Tag: rec.Tag, Deep: DeepTypePtr(rec.Deep)})
	case KindProc:
		return ProcValue(m.Lookup(rec.Proc))
	case KindRef:
		return RefValue(Ref{Kind: rec.Ref, Block: BlockID(rec.Block), Offset: rec.Offset})
	}
	return Value{kind: rec.Kind, bits: rec.Bits}
}

// MarshalSnapshot serializes a snapshot to canonical CBOR.
func MarshalSnapshot(snap *Snapshot) ([]byte, error) {
	data, err := snapshotEncMode.Marshal(snap)
	if err != nil {
		return nil, errors.Wrap(err, "marshal snapshot")
	}
	return data, nil
}

// UnmarshalSnapshot deserializes a snapshot from CBOR.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrap(err, "unmarshal snapshot")
	}
	return &snap, nil
}
