package vm

// DefaultStackCapacity is the initial slot count of a new Stack.
const DefaultStackCapacity = 1024

// Stack is the operand stack shared by all compiled procedures.
//
// The buffer grows by doubling (or straight to the required size when
// doubling is not enough). Raw slices into the buffer do not survive growth;
// Ref values do, since they hold offsets rather than addresses.
type Stack struct {
	data []Value
	size int

	// Limit caps the number of slots; exceeding it is an OutOfMemory
	// failure. Zero means unlimited.
	Limit int
}

// NewStack returns an empty stack with the given initial capacity.
func NewStack(capacity, limit int) *Stack {
	if capacity <= 0 {
		capacity = DefaultStackCapacity
	}
	if limit > 0 && capacity > limit {
		capacity = limit
	}
	return &Stack{data: make([]Value, capacity), Limit: limit}
}

// Len returns the number of live slots.
func (s *Stack) Len() int { return s.size }

// Cap returns the current buffer capacity.
func (s *Stack) Cap() int { return len(s.data) }

// Values returns a copy of the live slots, bottom first.
func (s *Stack) Values() []Value {
	return append([]Value(nil), s.data[:s.size]...)
}

// reserve makes room for n more slots past the top.
func (s *Stack) reserve(n int) error {
	need := s.size + n
	if need <= len(s.data) {
		return nil
	}
	if s.Limit > 0 && need > s.Limit {
		return fail(CodeOutOfMemory, "stack limit %v exceeded by %v", s.Limit, need)
	}
	newCap := 2 * len(s.data)
	if newCap < need {
		newCap = need
	}
	if s.Limit > 0 && newCap > s.Limit {
		newCap = s.Limit
	}
	data := make([]Value, newCap)
	copy(data, s.data[:s.size])
	s.data = data
	return nil
}

func (s *Stack) need(op string, n int) error {
	if n < 0 || n > s.size {
		return underflow(op, n, s.size)
	}
	return nil
}

// Push appends values in order, so the last one ends up on top.
func (s *Stack) Push(values ...Value) error {
	if err := s.reserve(len(values)); err != nil {
		return err
	}
	s.size += copy(s.data[s.size:], values)
	return nil
}

// Pop removes and returns the top slot.
func (s *Stack) Pop() (Value, error) {
	if err := s.need("pop", 1); err != nil {
		return Value{}, err
	}
	s.size--
	v := s.data[s.size]
	s.data[s.size] = Value{}
	return v, nil
}

// Peek returns the top slot.
func (s *Stack) Peek() (Value, error) {
	if err := s.need("peek", 1); err != nil {
		return Value{}, err
	}
	return s.data[s.size-1], nil
}

// PopN removes the top n slots and returns them bottom first.
func (s *Stack) PopN(n int) ([]Value, error) {
	if err := s.need("pop", n); err != nil {
		return nil, err
	}
	vals := append([]Value(nil), s.data[s.size-n:s.size]...)
	s.clear(s.size-n, s.size)
	s.size -= n
	return vals, nil
}

// PeekN returns a copy of the top n slots, bottom first.
func (s *Stack) PeekN(n int) ([]Value, error) {
	if err := s.need("peek", n); err != nil {
		return nil, err
	}
	return append([]Value(nil), s.data[s.size-n:s.size]...), nil
}

// Get returns the slot depth positions below the top; depth 0 is the top.
func (s *Stack) Get(depth int) (Value, error) {
	if err := s.need("get", depth+1); err != nil {
		return Value{}, err
	}
	return s.data[s.size-1-depth], nil
}

// Set overwrites the slot depth positions below the top.
func (s *Stack) Set(depth int, v Value) error {
	if err := s.need("set", depth+1); err != nil {
		return err
	}
	s.data[s.size-1-depth] = v
	return nil
}

// Drop removes count slots that lie offset slots below the top, shifting the
// offset slots above them down to close the gap.
func (s *Stack) Drop(offset, count int) error {
	if offset < 0 || count < 0 {
		return underflow("drop", offset+count, s.size)
	}
	if err := s.need("drop", offset+count); err != nil {
		return err
	}
	at := s.size - offset - count
	copy(s.data[at:], s.data[s.size-offset:s.size])
	s.clear(s.size-count, s.size)
	s.size -= count
	return nil
}

// Dup copies the top count slots onto the top as one block.
func (s *Stack) Dup(count int) error { return s.DupAt(0, count) }

// DupAt copies count slots that lie offset slots below the top onto the top;
// DupAt(1, 1) is the classic "over".
func (s *Stack) DupAt(offset, count int) error {
	if offset < 0 || count < 0 {
		return underflow("dup", offset+count, s.size)
	}
	if err := s.need("dup", offset+count); err != nil {
		return err
	}
	if err := s.reserve(count); err != nil {
		return err
	}
	from := s.size - offset - count
	s.size += copy(s.data[s.size:], s.data[from:from+count])
	return nil
}

// Rotate treats the top count slots as a cyclic window and moves its lowest
// steps slots to the top: Rotate(3, 1) turns "a b c" into "b c a".
// Negative steps rotate the other way.
func (s *Stack) Rotate(count, steps int) error {
	if count < 0 {
		return underflow("rotate", count, s.size)
	}
	if err := s.need("rotate", count); err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	if steps %= count; steps < 0 {
		steps += count
	}
	if steps == 0 {
		return nil
	}
	// rotate within the window by three reversals; no slot past the top is
	// touched, so a full stack can always rotate
	window := s.data[s.size-count : s.size]
	reverse(window[:steps])
	reverse(window[steps:])
	reverse(window)
	return nil
}

func reverse(vals []Value) {
	for i, j := 0, len(vals)-1; i < j; i, j = i+1, j-1 {
		vals[i], vals[j] = vals[j], vals[i]
	}
}

// Swap exchanges the top two slots.
func (s *Stack) Swap() error { return s.Rotate(2, 1) }

// RefTo returns a reference to the slot depth positions below the top.
func (s *Stack) RefTo(depth int) (Ref, error) {
	if err := s.need("reference", depth+1); err != nil {
		return Null, err
	}
	return Ref{Kind: RefStack, Offset: s.size - 1 - depth}, nil
}

func (s *Stack) load(offset, n int) ([]Value, error) {
	if offset < 0 || n < 0 || offset+n > s.size {
		return nil, fail(CodeInvalidReference, "stack@%v+%v beyond size %v", offset, n, s.size)
	}
	return append([]Value(nil), s.data[offset:offset+n]...), nil
}

func (s *Stack) store(offset int, values []Value) error {
	if offset < 0 || offset+len(values) > s.size {
		return fail(CodeInvalidReference, "stack@%v+%v beyond size %v", offset, len(values), s.size)
	}
	copy(s.data[offset:], values)
	return nil
}

func (s *Stack) clear(from, to int) {
	for i := from; i < to; i++ {
		s.data[i] = Value{}
	}
}
