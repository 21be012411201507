package vm

// DeepTypePtr is a stable id into a Heap's deep type pool. Ids stay valid
// across pool growth, unlike addresses.
type DeepTypePtr int

// NoType is the "no deep type" sentinel.
const NoType DeepTypePtr = -1

// DefaultPoolCapacity is the initial capacity of each Heap pool.
const DefaultPoolCapacity = 16

// RefType is the header shared by every reference counted heap entry.
type RefType struct {
	Kind     TypeTag
	RefCount uint32
}

// DeepType describes the structure of a compound type.
type DeepType struct {
	RefType

	// Elems are the element types: the one content type of a list, array or
	// reference; the members of a tuple or struct; the inputs followed by
	// the outputs of a procedure.
	Elems []Type

	// Names are struct field names, parallel to Elems.
	Names []string

	// In is the number of procedure inputs at the front of Elems.
	In int

	live bool
}

// Field is one named struct member.
type Field struct {
	Name string
	Type Type
}

// idPool hands out integer ids below a high-water mark, recycling freed
// ids through a free-list.
type idPool struct {
	hwm  int
	free []int
}

func (p *idPool) next() int {
	if n := len(p.free); n > 0 {
		id := p.free[n-1]
		p.free = p.free[:n-1]
		return id
	}
	id := p.hwm
	p.hwm++
	return id
}

// put returns id to the pool; the id just below the mark is reclaimed by
// lowering the mark instead of growing the free-list.
func (p *idPool) put(id int) {
	if id == p.hwm-1 {
		p.hwm--
		return
	}
	p.free = append(p.free, id)
}

func (p *idPool) live() int { return p.hwm - len(p.free) }

// growCap returns the capacity needed for one more id, or -1 past limit.
func growCap(capacity, hwm, limit int) int {
	if hwm < capacity {
		return capacity
	}
	if limit > 0 && hwm >= limit {
		return -1
	}
	newCap := 2 * capacity
	if newCap == 0 {
		newCap = DefaultPoolCapacity
	}
	if limit > 0 && newCap > limit {
		newCap = limit
	}
	return newCap
}

// Heap owns the deep type pool and the value block pool of one machine.
// It is not safe for concurrent use.
type Heap struct {
	types   []DeepType
	typeIDs idPool

	blocks   []block
	blockIDs idPool

	// Limit caps the number of ids in each pool; zero means unlimited.
	Limit int
}

// NewHeap creates a heap with the given initial pool capacities.
func NewHeap(typeCap, blockCap, limit int) *Heap {
	if typeCap <= 0 {
		typeCap = DefaultPoolCapacity
	}
	if blockCap <= 0 {
		blockCap = DefaultPoolCapacity
	}
	return &Heap{
		types:  make([]DeepType, typeCap),
		blocks: make([]block, blockCap),
		Limit:  limit,
	}
}

// Alloc returns a fresh deep type id with a reference count of one.
func (h *Heap) Alloc() (DeepTypePtr, error) {
	if len(h.typeIDs.free) == 0 {
		newCap := growCap(len(h.types), h.typeIDs.hwm, h.Limit)
		if newCap < 0 {
			return NoType, fail(CodeOutOfMemory, "deep type pool limit %v reached", h.Limit)
		}
		if newCap > len(h.types) {
			types := make([]DeepType, newCap)
			copy(types, h.types)
			h.types = types
		}
	}
	id := h.typeIDs.next()
	h.types[id] = DeepType{RefType: RefType{RefCount: 1}, live: true}
	return DeepTypePtr(id), nil
}

// Free returns id to the pool regardless of its reference count.
func (h *Heap) Free(id DeepTypePtr) error {
	t, err := h.deepType(id)
	if err != nil {
		return err
	}
	*t = DeepType{}
	h.typeIDs.put(int(id))
	return nil
}

func (h *Heap) deepType(id DeepTypePtr) (*DeepType, error) {
	if id < 0 || int(id) >= h.typeIDs.hwm || !h.types[id].live {
		return nil, fail(CodeInvalidReference, "dead deep type #%d", id)
	}
	return &h.types[id], nil
}

// DeepType returns a copy of the descriptor for id.
func (h *Heap) DeepType(id DeepTypePtr) (DeepType, error) {
	t, err := h.deepType(id)
	if err != nil {
		return DeepType{}, err
	}
	return *t, nil
}

// Retain increments the reference count of id.
func (h *Heap) Retain(id DeepTypePtr) error {
	t, err := h.deepType(id)
	if err != nil {
		return err
	}
	t.RefCount++
	return nil
}

// Release decrements the reference count of id. A count reaching zero
// releases every contained deep type and frees the id; contained types are
// handled through a worklist, not recursion.
func (h *Heap) Release(id DeepTypePtr) error {
	work := []DeepTypePtr{id}
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		if id < 0 || int(id) >= h.typeIDs.hwm || !h.types[id].live || h.types[id].RefCount == 0 {
			return fail(CodeRefCountUnderflow, "release of dead deep type #%d", id)
		}
		t := &h.types[id]
		if t.RefCount--; t.RefCount > 0 {
			continue
		}
		for _, elem := range t.Elems {
			if elem.IsDeep() {
				work = append(work, elem.Deep)
			}
		}
		*t = DeepType{}
		h.typeIDs.put(int(id))
	}
	return nil
}

// RefCount returns the current reference count of id.
func (h *Heap) RefCount(id DeepTypePtr) (uint32, error) {
	t, err := h.deepType(id)
	if err != nil {
		return 0, err
	}
	return t.RefCount, nil
}

// TypeHighWater returns the deep type pool high-water mark.
func (h *Heap) TypeHighWater() int { return h.typeIDs.hwm }

// TypeFreeList returns a copy of the recyclable deep type ids.
func (h *Heap) TypeFreeList() []DeepTypePtr {
	ids := make([]DeepTypePtr, len(h.typeIDs.free))
	for i, id := range h.typeIDs.free {
		ids[i] = DeepTypePtr(id)
	}
	return ids
}

// LiveTypes returns the number of live deep types.
func (h *Heap) LiveTypes() int { return h.typeIDs.live() }

// newDeep allocates a descriptor of the given kind, retaining each deep
// element so that releasing the descriptor later balances out.
func (h *Heap) newDeep(kind TypeTag, elems []Type, names []string, in int) (Type, error) {
	for _, elem := range elems {
		if elem.IsDeep() {
			if err := h.Retain(elem.Deep); err != nil {
				return Type{}, err
			}
		}
	}
	id, err := h.Alloc()
	if err != nil {
		for _, elem := range elems {
			if elem.IsDeep() {
				h.Release(elem.Deep)
			}
		}
		return Type{}, err
	}
	t := &h.types[id]
	t.Kind = kind
	t.Elems = append([]Type(nil), elems...)
	t.Names = names
	t.In = in
	return Type{Tag: kind, Deep: id}, nil
}

// NewListType describes a resizable list of elem.
func (h *Heap) NewListType(elem Type) (Type, error) {
	return h.newDeep(TagList, []Type{elem}, nil, 0)
}

// NewArrayType describes an (element reference, length) array view of elem.
func (h *Heap) NewArrayType(elem Type) (Type, error) {
	return h.newDeep(TagArray, []Type{elem}, nil, 0)
}

// NewRefType describes a reference to elem.
func (h *Heap) NewRefType(elem Type) (Type, error) {
	return h.newDeep(TagRef, []Type{elem}, nil, 0)
}

// NewTupleType describes a positional tuple.
func (h *Heap) NewTupleType(elems ...Type) (Type, error) {
	return h.newDeep(TagTuple, elems, nil, 0)
}

// NewStructType describes a struct; its layout is its fields in order.
func (h *Heap) NewStructType(fields ...Field) (Type, error) {
	elems := make([]Type, len(fields))
	names := make([]string, len(fields))
	for i, f := range fields {
		elems[i], names[i] = f.Type, f.Name
	}
	return h.newDeep(TagStruct, elems, names, 0)
}

// NewProcType describes a procedure signature ( in => out ).
func (h *Heap) NewProcType(in, out []Type) (Type, error) {
	elems := append(append([]Type(nil), in...), out...)
	return h.newDeep(TagProc, elems, nil, len(in))
}

// Slots returns the number of consecutive Values that hold a t.
func (h *Heap) Slots(t Type) (int, error) {
	switch t.Tag {
	case TagBool, TagByte, TagCodepoint, TagUInt, TagInt, TagFloat, TagType, TagRef, TagList:
		return 1, nil
	case TagArray, TagProc:
		return 2, nil
	case TagTuple, TagStruct:
		d, err := h.deepType(t.Deep)
		if err != nil {
			return 0, err
		}
		n := 0
		for _, elem := range d.Elems {
			m, err := h.Slots(elem)
			if err != nil {
				return 0, err
			}
			n += m
		}
		return n, nil
	}
	return 0, fail(CodeTypeMismatch, "no layout for %v", t)
}
