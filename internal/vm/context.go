package vm

import "sort"

// Context defaults.
const (
	DefaultBuckets    = 16
	DefaultMaxNameLen = 64
)

// Variable is one named binding. Its value lives in a heap block of
// Slots(Type) values, so it can be referenced like any other heap cell.
type Variable struct {
	Name  string
	Type  Type
	Const bool

	storage BlockID
	slots   int
}

// Ref returns a reference to the first slot of the variable's storage.
func (v *Variable) Ref() Ref { return Ref{Kind: RefCell, Block: v.storage} }

// Slots returns the number of slots the variable occupies.
func (v *Variable) Slots() int { return v.slots }

type entry struct {
	hash uint64
	v    Variable
	next *entry
}

// Context is one lexical scope: a chained hash table of variables plus a
// link to the enclosing scope. A parent must outlive its children.
type Context struct {
	heap     *Heap
	parent   *Context
	buckets  []*entry
	count    int
	children int
	maxName  int
	closed   bool
}

// NewContext creates a root scope whose variable storage lives in heap.
func NewContext(heap *Heap, buckets, maxName int) *Context {
	if buckets <= 0 {
		buckets = DefaultBuckets
	}
	if maxName <= 0 {
		maxName = DefaultMaxNameLen
	}
	return &Context{
		heap:    heap,
		buckets: make([]*entry, buckets),
		maxName: maxName,
	}
}

// HashName is the polynomial base 31 string hash, looking at no more than
// max bytes of name; max <= 0 looks at all of it.
func HashName(name string, max int) uint64 {
	if max > 0 && len(name) > max {
		name = name[:max]
	}
	var hash uint64
	for i := 0; i < len(name); i++ {
		hash = hash*31 + uint64(name[i])
	}
	return hash
}

// Enter opens a child scope.
func (c *Context) Enter() *Context {
	c.children++
	child := NewContext(c.heap, DefaultBuckets, c.maxName)
	child.parent = c
	return child
}

// Exit closes the scope, releasing every variable's storage, type and the
// values it owns, and returns the parent scope.
func (c *Context) Exit() (*Context, error) {
	if c.closed {
		return c.parent, fail(CodeInvalidReference, "scope already closed")
	}
	if c.children > 0 {
		return c, fail(CodeScopeOpen, "%v child scopes still open", c.children)
	}
	for i, e := range c.buckets {
		for ; e != nil; e = e.next {
			if err := c.release(&e.v); err != nil {
				return c, err
			}
		}
		c.buckets[i] = nil
	}
	c.count = 0
	c.closed = true
	if c.parent != nil {
		c.parent.children--
	}
	return c.parent, nil
}

// Parent returns the enclosing scope, nil at the root.
func (c *Context) Parent() *Context { return c.parent }

// Len returns the number of variables declared directly in this scope.
func (c *Context) Len() int { return c.count }

// Names returns the sorted names declared directly in this scope.
func (c *Context) Names() []string {
	names := make([]string, 0, c.count)
	for _, e := range c.buckets {
		for ; e != nil; e = e.next {
			names = append(names, e.v.Name)
		}
	}
	sort.Strings(names)
	return names
}

func (c *Context) find(name string, hash uint64) *entry {
	for e := c.buckets[hash%uint64(len(c.buckets))]; e != nil; e = e.next {
		if e.hash == hash && e.v.Name == name {
			return e
		}
	}
	return nil
}

// Declare binds name in this scope to a new variable holding values, taking
// over ownership of them. Redeclaring a name in the same scope overwrites it,
// unless the old binding is const (ConstOverwritten) or the new one is const
// (ConstOverwrites).
func (c *Context) Declare(name string, t Type, isConst bool, values ...Value) (*Variable, error) {
	slots, err := c.heap.Slots(t)
	if err != nil {
		return nil, err
	}
	if len(values) != slots {
		return nil, fail(CodeTypeMismatch, "%v of %v takes %v slots, got %v", name, t, slots, len(values))
	}

	hash := HashName(name, c.maxName)
	e := c.find(name, hash)
	if e != nil {
		if e.v.Const {
			return nil, fail(CodeConstOverwritten, "%v", name)
		} else if isConst {
			return nil, fail(CodeConstOverwrites, "%v", name)
		}
	}

	v := Variable{Name: name, Type: t, Const: isConst, slots: slots}
	if t.IsDeep() {
		if err := c.heap.Retain(t.Deep); err != nil {
			return nil, err
		}
	}
	if v.storage, err = c.heap.AllocBlock(slots, true); err != nil {
		if t.IsDeep() {
			c.heap.Release(t.Deep)
		}
		return nil, err
	}
	b := &c.heap.blocks[v.storage]
	copy(b.vals, values)
	b.readOnly = isConst

	if e != nil {
		if err := c.release(&e.v); err != nil {
			c.release(&v)
			return nil, err
		}
		e.v = v
		return &e.v, nil
	}

	e = &entry{hash: hash, v: v}
	i := hash % uint64(len(c.buckets))
	e.next, c.buckets[i] = c.buckets[i], e
	c.count++
	if c.count > 2*len(c.buckets) {
		c.rehash(2 * len(c.buckets))
	}
	return &e.v, nil
}

func (c *Context) rehash(n int) {
	buckets := make([]*entry, n)
	for _, e := range c.buckets {
		for e != nil {
			next := e.next
			i := e.hash % uint64(n)
			e.next, buckets[i] = buckets[i], e
			e = next
		}
	}
	c.buckets = buckets
}

func (c *Context) release(v *Variable) error {
	if err := c.heap.ReleaseBlock(v.storage); err != nil {
		return err
	}
	if v.Type.IsDeep() {
		return c.heap.Release(v.Type.Deep)
	}
	return nil
}

// Lookup resolves name in this scope, then outward through the parents.
func (c *Context) Lookup(name string) (*Variable, error) {
	hash := HashName(name, c.maxName)
	for ctx := c; ctx != nil; ctx = ctx.parent {
		if e := ctx.find(name, hash); e != nil {
			return &e.v, nil
		}
	}
	return nil, fail(CodeVariableNotFound, "%v", name)
}

// Load returns a copy of the named variable's slots.
func (c *Context) Load(name string) ([]Value, error) {
	v, err := c.Lookup(name)
	if err != nil {
		return nil, err
	}
	return c.heap.Load(v.Ref(), v.slots)
}

// Assign replaces the value of the named variable, releasing whatever the
// old value owned.
func (c *Context) Assign(name string, values ...Value) error {
	v, err := c.Lookup(name)
	if err != nil {
		return err
	}
	if v.Const {
		return fail(CodeConstWrite, "%v", name)
	}
	if len(values) != v.slots {
		return fail(CodeTypeMismatch, "%v of %v takes %v slots, got %v", name, v.Type, v.slots, len(values))
	}
	return c.heap.Store(v.Ref(), values)
}
