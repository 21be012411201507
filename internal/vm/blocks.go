package vm

// BlockID is a stable id into a Heap's block pool.
type BlockID int

// block is a reference counted run of Values: variable storage, curried
// captures, arrays and lists all live in blocks.
type block struct {
	vals     []Value
	size     int
	refs     uint32
	live     bool
	readOnly bool

	// list blocks only
	list    bool
	content Type
	stride  int
}

// AllocBlock allocates n zeroed slots with a reference count of one.
func (h *Heap) AllocBlock(n int, mutable bool) (BlockID, error) {
	if len(h.blockIDs.free) == 0 {
		newCap := growCap(len(h.blocks), h.blockIDs.hwm, h.Limit)
		if newCap < 0 {
			return -1, fail(CodeOutOfMemory, "block pool limit %v reached", h.Limit)
		}
		if newCap > len(h.blocks) {
			blocks := make([]block, newCap)
			copy(blocks, h.blocks)
			h.blocks = blocks
		}
	}
	id := h.blockIDs.next()
	h.blocks[id] = block{
		vals:     make([]Value, n),
		size:     n,
		refs:     1,
		live:     true,
		readOnly: !mutable,
	}
	return BlockID(id), nil
}

func (h *Heap) block(id BlockID) (*block, error) {
	if id < 0 || int(id) >= h.blockIDs.hwm || !h.blocks[id].live {
		return nil, fail(CodeInvalidReference, "dead block %d", id)
	}
	return &h.blocks[id], nil
}

// Static allocates a read-only block holding values, for constant data
// embedded by compiled code. It returns a reference to the first slot.
func (h *Heap) Static(values ...Value) (Ref, error) {
	id, err := h.AllocBlock(len(values), false)
	if err != nil {
		return Null, err
	}
	copy(h.blocks[id].vals, values)
	return Ref{Kind: RefCell, Block: id}, nil
}

// Mutable allocates a writable block initialized with values.
func (h *Heap) Mutable(values ...Value) (Ref, error) {
	id, err := h.AllocBlock(len(values), true)
	if err != nil {
		return Null, err
	}
	copy(h.blocks[id].vals, values)
	return Ref{Kind: RefCell, Block: id}, nil
}

// Curry captures values into a read-only block to pass as the curried
// argument of a procedure value.
func (h *Heap) Curry(values ...Value) (Ref, error) { return h.Static(values...) }

// RetainBlock increments the reference count of id.
func (h *Heap) RetainBlock(id BlockID) error {
	b, err := h.block(id)
	if err != nil {
		return err
	}
	b.refs++
	return nil
}

// ReleaseBlock decrements the reference count of id. Reaching zero releases
// every owned value in the block (deep type handles, list handles, a list's
// content type) and frees the id.
func (h *Heap) ReleaseBlock(id BlockID) error {
	work := []BlockID{id}
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		if id < 0 || int(id) >= h.blockIDs.hwm || !h.blocks[id].live || h.blocks[id].refs == 0 {
			return fail(CodeRefCountUnderflow, "release of dead block %d", id)
		}
		b := &h.blocks[id]
		if b.refs--; b.refs > 0 {
			continue
		}
		for _, v := range b.vals[:b.size] {
			switch v.kind {
			case KindDeepType:
				if err := h.Release(DeepTypePtr(v.bits)); err != nil {
					return err
				}
			case KindRef:
				if v.ref.Kind == RefList {
					work = append(work, v.ref.Block)
				}
			}
		}
		if b.list && b.content.IsDeep() {
			if err := h.Release(b.content.Deep); err != nil {
				return err
			}
		}
		*b = block{}
		h.blockIDs.put(int(id))
	}
	return nil
}

// BlockRefs returns the reference count of id.
func (h *Heap) BlockRefs(id BlockID) (uint32, error) {
	b, err := h.block(id)
	if err != nil {
		return 0, err
	}
	return b.refs, nil
}

// LiveBlocks returns the number of live blocks.
func (h *Heap) LiveBlocks() int { return h.blockIDs.live() }

// BlockHighWater returns the block pool high-water mark.
func (h *Heap) BlockHighWater() int { return h.blockIDs.hwm }

// RetainValue takes another ownership share of anything v owns.
func (h *Heap) RetainValue(v Value) error {
	switch v.kind {
	case KindDeepType:
		return h.Retain(DeepTypePtr(v.bits))
	case KindRef:
		if v.ref.Kind == RefList {
			return h.RetainBlock(v.ref.Block)
		}
	}
	return nil
}

// ReleaseValue drops an ownership share of anything v owns. Values that own
// nothing are ignored.
func (h *Heap) ReleaseValue(v Value) error {
	switch v.kind {
	case KindDeepType:
		return h.Release(DeepTypePtr(v.bits))
	case KindRef:
		if v.ref.Kind == RefList {
			return h.ReleaseBlock(v.ref.Block)
		}
	}
	return nil
}

// Load reads n slots starting at ref, which must be a cell or list
// reference.
func (h *Heap) Load(ref Ref, n int) ([]Value, error) {
	b, off, err := h.cell(ref, n)
	if err != nil {
		return nil, err
	}
	return append([]Value(nil), b.vals[off:off+n]...), nil
}

// Store writes values starting at ref, taking over ownership of them and
// releasing whatever the overwritten slots owned; read-only blocks refuse
// the write.
func (h *Heap) Store(ref Ref, values []Value) error {
	b, off, err := h.cell(ref, len(values))
	if err != nil {
		return err
	}
	if b.readOnly {
		return fail(CodeReadOnly, "store into %v", ref)
	}
	return h.replace(b, off, values)
}

// replace overwrites b.vals[off:] with values, then releases the old slots.
// Releasing may free other blocks, so b must not be used afterwards.
func (h *Heap) replace(b *block, off int, values []Value) error {
	old := append([]Value(nil), b.vals[off:off+len(values)]...)
	copy(b.vals[off:], values)
	for _, o := range old {
		if err := h.ReleaseValue(o); err != nil {
			return err
		}
	}
	return nil
}

func (h *Heap) cell(ref Ref, n int) (*block, int, error) {
	if ref.Kind != RefCell && ref.Kind != RefList {
		return nil, 0, fail(CodeInvalidReference, "%v is not a heap reference", ref)
	}
	b, err := h.block(ref.Block)
	if err != nil {
		return nil, 0, err
	}
	if ref.Offset < 0 || n < 0 || ref.Offset+n > b.size {
		return nil, 0, fail(CodeInvalidReference, "%v+%v beyond block size %v", ref, n, b.size)
	}
	return b, ref.Offset, nil
}

// BlockLen returns the number of live slots in a block.
func (h *Heap) BlockLen(id BlockID) (int, error) {
	b, err := h.block(id)
	if err != nil {
		return 0, err
	}
	return b.size, nil
}
