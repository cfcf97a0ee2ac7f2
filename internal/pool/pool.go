// Package pool implements the acquire/release registry of retired entities.
// A pool instance is scoped to the spawner or generator that owns it and is
// mutated only on the simulation tick. An entity handle is in at most one of
// tracked-active, pooled, or destroyed at any time.
package pool

import (
	"go.uber.org/zap"

	"github.com/mechanica/engine/internal/behavior"
	"github.com/mechanica/engine/internal/core/ecs"
	"github.com/mechanica/engine/internal/world"
)

// Stats is the per-key counter snapshot. Read-only diagnostics: the numbers
// never gate pool behavior.
type Stats struct {
	Key            string
	Active         int
	Available      int
	PeakActive     int
	TotalCreated   int
	TotalReused    int
	TotalReturned  int
	TotalDiscarded int
}

type keyState struct {
	queue          []ecs.EntityID // FIFO of retired entities
	active         int
	peakActive     int
	totalCreated   int
	totalReused    int
	totalReturned  int
	totalDiscarded int
}

// Pool reuses previously retired entities instead of reallocating.
type Pool struct {
	world   *ecs.World
	scene   *world.State
	applier *behavior.Applier
	log     *zap.Logger
	keys    map[string]*keyState
	keyFor  map[ecs.EntityID]string
}

func New(w *ecs.World, scene *world.State, applier *behavior.Applier, log *zap.Logger) *Pool {
	p := &Pool{
		world:   w,
		scene:   scene,
		applier: applier,
		log:     log,
		keys:    make(map[string]*keyState, 8),
		keyFor:  make(map[ecs.EntityID]string, 64),
	}
	w.Registry().Register(p)
	return p
}

func (p *Pool) state(key string) *keyState {
	ks, ok := p.keys[key]
	if !ok {
		ks = &keyState{}
		p.keys[key] = ks
	}
	return ks
}

// Adopt records a freshly constructed entity under a logical key. Called by
// the spawner after successful construction.
func (p *Pool) Adopt(id ecs.EntityID, key string) {
	ks := p.state(key)
	ks.totalCreated++
	ks.active++
	if ks.active > ks.peakActive {
		ks.peakActive = ks.active
	}
	p.keyFor[id] = key
}

// Acquire dequeues a retired entity for the key. Handles that died while
// queued are discarded; an empty queue is the expected fallback to fresh
// construction, not an error. A returned entity is flipped to the active
// state with residual simulation state cleared.
func (p *Pool) Acquire(key string) (ecs.EntityID, bool) {
	ks, ok := p.keys[key]
	if !ok {
		return 0, false
	}
	for len(ks.queue) > 0 {
		id := ks.queue[0]
		ks.queue = ks.queue[1:]
		if !p.world.Arena().Pooled(id) {
			// Already deducted when the entity was destroyed.
			continue
		}
		p.world.Arena().SetState(id, ecs.StateActive)
		p.scene.ResetForReuse(id)
		ks.totalReused++
		ks.active++
		if ks.active > ks.peakActive {
			ks.peakActive = ks.active
		}
		return id, true
	}
	return 0, false
}

// Release retires an entity into its key's queue: detached from the
// hierarchy, deactivated, pool-reset hooks invoked on every capable behavior
// instance so state does not leak across reuse.
func (p *Pool) Release(id ecs.EntityID) {
	key, ok := p.keyFor[id]
	if !ok || !p.world.Alive(id) {
		p.log.Debug("release of unowned or dead entity ignored",
			zap.Uint32("index", id.Index()))
		return
	}
	ks := p.state(key)

	p.world.Detach(id)
	p.world.Arena().SetState(id, ecs.StatePooled)
	for _, r := range p.applier.Resettables(id) {
		r.ResetForPool()
	}
	if c, okc := p.scene.Colliders.Get(id); okc {
		c.Enabled = false
	}

	ks.queue = append(ks.queue, id)
	ks.totalReturned++
	if ks.active > 0 {
		ks.active--
	}
}

// Discard tells the pool an adopted entity was destroyed instead of released.
func (p *Pool) Discard(id ecs.EntityID) {
	key, ok := p.keyFor[id]
	if !ok {
		return
	}
	delete(p.keyFor, id)
	ks := p.state(key)
	ks.totalDiscarded++
	if ks.active > 0 {
		ks.active--
	}
}

// Remove implements ecs.Removable so an entity that dies without a Release
// or Discard still leaves the pool's books. It runs during the destroy flush
// while the arena state is readable: an entity destroyed while queued was
// already deducted from active on release.
func (p *Pool) Remove(id ecs.EntityID) {
	key, ok := p.keyFor[id]
	if !ok {
		return
	}
	delete(p.keyFor, id)
	ks := p.state(key)
	ks.totalDiscarded++
	if p.world.Arena().Pooled(id) {
		return
	}
	if ks.active > 0 {
		ks.active--
	}
}

// Snapshot returns the counters for one key.
func (p *Pool) Snapshot(key string) Stats {
	ks, ok := p.keys[key]
	if !ok {
		return Stats{Key: key}
	}
	return Stats{
		Key:            key,
		Active:         ks.active,
		Available:      len(ks.queue),
		PeakActive:     ks.peakActive,
		TotalCreated:   ks.totalCreated,
		TotalReused:    ks.totalReused,
		TotalReturned:  ks.totalReturned,
		TotalDiscarded: ks.totalDiscarded,
	}
}

// SnapshotAll returns counters for every key the pool has seen.
func (p *Pool) SnapshotAll() []Stats {
	out := make([]Stats, 0, len(p.keys))
	for key := range p.keys {
		out = append(out, p.Snapshot(key))
	}
	return out
}
