package ecs

// World is the top-level container. It owns the entity arena, the component
// registry, the scene hierarchy, and a deferred destruction queue flushed by
// the cleanup system each tick.
type World struct {
	arena        *Arena
	registry     *Registry
	parents      map[EntityID]EntityID
	children     map[EntityID][]EntityID // insertion order preserved
	destroyQueue []EntityID
}

func NewWorld() *World {
	return &World{
		arena:        NewArena(),
		registry:     NewRegistry(),
		parents:      make(map[EntityID]EntityID, 256),
		children:     make(map[EntityID][]EntityID, 64),
		destroyQueue: make([]EntityID, 0, 64),
	}
}

func (w *World) Arena() *Arena       { return w.arena }
func (w *World) Registry() *Registry { return w.registry }

func (w *World) CreateEntity() EntityID {
	return w.arena.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.arena.Alive(id)
}

// Active reports whether the entity is live and not retired into a pool.
func (w *World) Active(id EntityID) bool {
	return w.arena.Active(id)
}

// SetParent attaches child under parent, detaching it from any previous
// parent first. A zero parent just detaches.
func (w *World) SetParent(child, parent EntityID) {
	w.Detach(child)
	if parent.IsZero() {
		return
	}
	w.parents[child] = parent
	w.children[parent] = append(w.children[parent], child)
}

// Detach removes the child from its parent's ordered child list.
func (w *World) Detach(child EntityID) {
	parent, ok := w.parents[child]
	if !ok {
		return
	}
	delete(w.parents, child)
	kids := w.children[parent]
	for i, k := range kids {
		if k == child {
			w.children[parent] = append(kids[:i], kids[i+1:]...)
			break
		}
	}
}

// Parent returns the entity's parent, or zero when detached.
func (w *World) Parent(id EntityID) EntityID {
	return w.parents[id]
}

// Children returns the entity's direct children in attachment order.
// The returned slice is owned by the world; callers must not mutate it.
func (w *World) Children(id EntityID) []EntityID {
	return w.children[id]
}

// WalkSubtree visits root and every descendant, depth-first in attachment
// order. Dead entities in the hierarchy are skipped.
func (w *World) WalkSubtree(root EntityID, fn func(EntityID)) {
	if !w.Alive(root) {
		return
	}
	fn(root)
	for _, c := range w.children[root] {
		w.WalkSubtree(c, fn)
	}
}

// MarkForDestruction queues an entity and its subtree for end-of-tick cleanup.
func (w *World) MarkForDestruction(id EntityID) {
	w.WalkSubtree(id, func(e EntityID) {
		w.destroyQueue = append(w.destroyQueue, e)
	})
}

// FlushDestroyQueue destroys all queued entities, clears their components,
// and detaches them from the hierarchy. Called by the cleanup system at the
// end of each tick.
func (w *World) FlushDestroyQueue() {
	for _, id := range w.destroyQueue {
		w.Detach(id)
		delete(w.children, id)
		w.registry.RemoveAll(id)
		w.arena.Destroy(id)
	}
	w.destroyQueue = w.destroyQueue[:0]
}
