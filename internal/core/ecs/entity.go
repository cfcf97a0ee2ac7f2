package ecs

// EntityID encodes a 32-bit arena index in the lower bits and a 32-bit
// generation in the upper bits. Generation increments on destroy to
// invalidate stale handles held by pools and tracking sets.
type EntityID uint64

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

// State is the lifecycle bit field kept per arena slot. A live entity is
// either active (tracked by a spawner or the scene) or pooled (retired,
// waiting for reuse). Destroyed slots have no state; the generation bump
// makes old handles dead.
type State uint8

const (
	StateActive State = 1 << iota
	StatePooled
)

// Arena manages entity allocation with generational indices, a free list,
// and a per-slot state word. "Active vs pooled" is a bit on the handle's
// slot, not a scene-hierarchy membership fact.
type Arena struct {
	generations []uint32
	states      []State
	freeList    []uint32
	nextIndex   uint32
}

func NewArena() *Arena {
	a := &Arena{
		generations: make([]uint32, 0, 1024),
		states:      make([]State, 0, 1024),
		freeList:    make([]uint32, 0, 256),
	}
	// Slot 0 stays unallocated and its generation never matches, so the
	// zero EntityID is never a live handle.
	a.generations = append(a.generations, 1)
	a.states = append(a.states, 0)
	a.nextIndex = 1
	return a
}

// Create allocates a slot and returns its handle in the active state.
func (a *Arena) Create() EntityID {
	var idx uint32
	if len(a.freeList) > 0 {
		idx = a.freeList[len(a.freeList)-1]
		a.freeList = a.freeList[:len(a.freeList)-1]
	} else {
		idx = a.nextIndex
		a.nextIndex++
		if int(idx) >= len(a.generations) {
			a.generations = append(a.generations, 0)
			a.states = append(a.states, 0)
		}
	}
	a.states[idx] = StateActive
	return NewEntityID(idx, a.generations[idx])
}

// Alive reports whether the handle still refers to a live slot (active or pooled).
func (a *Arena) Alive(id EntityID) bool {
	idx := id.Index()
	if idx >= a.nextIndex {
		return false
	}
	return a.generations[idx] == id.Generation()
}

// StateOf returns the slot's state word; zero for dead handles.
func (a *Arena) StateOf(id EntityID) State {
	if !a.Alive(id) {
		return 0
	}
	return a.states[id.Index()]
}

// SetState replaces the slot's state word. No-op on dead handles.
func (a *Arena) SetState(id EntityID, s State) {
	if !a.Alive(id) {
		return
	}
	a.states[id.Index()] = s
}

// Active reports whether the handle is live and in the active state.
func (a *Arena) Active(id EntityID) bool {
	return a.StateOf(id)&StateActive != 0
}

// Pooled reports whether the handle is live and retired into a pool.
func (a *Arena) Pooled(id EntityID) bool {
	return a.StateOf(id)&StatePooled != 0
}

// Destroy retires the slot permanently. Stale handles are ignored.
func (a *Arena) Destroy(id EntityID) {
	idx := id.Index()
	if idx >= a.nextIndex {
		return
	}
	if a.generations[idx] != id.Generation() {
		return // already destroyed (stale reference)
	}
	a.generations[idx]++
	a.states[idx] = 0
	a.freeList = append(a.freeList, idx)
}
