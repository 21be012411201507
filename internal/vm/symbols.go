package vm

import "fmt"

// procTable interns procedure names; ids start at 1 so 0 means unnamed.
type procTable struct {
	names  []string
	procs  []Procedure
	ids    map[uintptr]uint
	byName map[string]uint
}

func (pt *procTable) register(name string, p Procedure) (id uint) {
	ptr := procPointer(p)
	if id, defined := pt.ids[ptr]; defined {
		pt.names[id-1] = name
		pt.byName[name] = id
		return id
	}
	if pt.ids == nil {
		pt.ids = make(map[uintptr]uint)
		pt.byName = make(map[string]uint)
	}
	id = uint(len(pt.names)) + 1
	pt.names = append(pt.names, name)
	pt.procs = append(pt.procs, p)
	pt.ids[ptr] = id
	pt.byName[name] = id
	return id
}

func (pt procTable) name(p Procedure) string {
	if id := pt.ids[procPointer(p)]; id != 0 {
		return pt.names[id-1]
	}
	if p == nil {
		return "nil"
	}
	return fmt.Sprintf("proc@%#x", procPointer(p))
}

func (pt procTable) lookup(name string) Procedure {
	if id := pt.byName[name]; id != 0 {
		return pt.procs[id-1]
	}
	return nil
}
