package vm

// NewList allocates an empty list of content elements with room for capacity
// elements. The returned handle owns one reference; the list retains its
// content type.
func (h *Heap) NewList(content Type, capacity int) (Ref, error) {
	stride, err := h.Slots(content)
	if err != nil {
		return Null, err
	}
	if content.IsDeep() {
		if err := h.Retain(content.Deep); err != nil {
			return Null, err
		}
	}
	if capacity < 1 {
		capacity = 1
	}
	id, err := h.AllocBlock(capacity*stride, true)
	if err != nil {
		if content.IsDeep() {
			h.Release(content.Deep)
		}
		return Null, err
	}
	b := &h.blocks[id]
	b.size = 0
	b.list = true
	b.content = content
	b.stride = stride
	return Ref{Kind: RefList, Block: id}, nil
}

func (h *Heap) list(ref Ref) (*block, error) {
	if ref.Kind != RefList {
		return nil, fail(CodeTypeMismatch, "%v is not a list", ref)
	}
	b, err := h.block(ref.Block)
	if err != nil {
		return nil, err
	}
	if !b.list {
		return nil, fail(CodeTypeMismatch, "block %d is not a list", ref.Block)
	}
	return b, nil
}

// ListLen returns the number of elements in a list.
func (h *Heap) ListLen(ref Ref) (int, error) {
	b, err := h.list(ref)
	if err != nil {
		return 0, err
	}
	return b.size / b.stride, nil
}

// ListCap returns the number of elements a list can hold before growing.
func (h *Heap) ListCap(ref Ref) (int, error) {
	b, err := h.list(ref)
	if err != nil {
		return 0, err
	}
	return len(b.vals) / b.stride, nil
}

// ListContent returns the element type of a list.
func (h *Heap) ListContent(ref Ref) (Type, error) {
	b, err := h.list(ref)
	if err != nil {
		return Type{}, err
	}
	return b.content, nil
}

// ListAppend adds one element, given as its run of slots, doubling the
// buffer when full.
func (h *Heap) ListAppend(ref Ref, elem ...Value) error {
	b, err := h.list(ref)
	if err != nil {
		return err
	}
	if len(elem) != b.stride {
		return fail(CodeTypeMismatch, "list of %v takes %v slots, got %v", b.content, b.stride, len(elem))
	}
	if need := b.size + b.stride; need > len(b.vals) {
		newCap := 2 * len(b.vals)
		if newCap < need {
			newCap = need
		}
		vals := make([]Value, newCap)
		copy(vals, b.vals[:b.size])
		b.vals = vals
	}
	b.size += copy(b.vals[b.size:], elem)
	return nil
}

func (h *Heap) listIndex(ref Ref, i int) (*block, int, error) {
	b, err := h.list(ref)
	if err != nil {
		return nil, 0, err
	}
	if n := b.size / b.stride; i < 0 || i >= n {
		return nil, 0, fail(CodeIndexOutOfBounds, "index %v of list with %v elements", i, n)
	}
	return b, i * b.stride, nil
}

// ListGet returns a copy of element i.
func (h *Heap) ListGet(ref Ref, i int) ([]Value, error) {
	b, off, err := h.listIndex(ref, i)
	if err != nil {
		return nil, err
	}
	return append([]Value(nil), b.vals[off:off+b.stride]...), nil
}

// ListSet overwrites element i, releasing whatever the old element owned.
func (h *Heap) ListSet(ref Ref, i int, elem ...Value) error {
	b, off, err := h.listIndex(ref, i)
	if err != nil {
		return err
	}
	if len(elem) != b.stride {
		return fail(CodeTypeMismatch, "list of %v takes %v slots, got %v", b.content, b.stride, len(elem))
	}
	return h.replace(b, off, elem)
}

// ListElemRef returns a cell reference to element i; it stays valid across
// list growth.
func (h *Heap) ListElemRef(ref Ref, i int) (Ref, error) {
	_, off, err := h.listIndex(ref, i)
	if err != nil {
		return Null, err
	}
	return Ref{Kind: RefCell, Block: ref.Block, Offset: off}, nil
}
