package world

import (
	"math"

	"github.com/mechanica/engine/internal/core/ecs"
	"github.com/mechanica/engine/internal/geom"
)

type suppressPair struct {
	a ecs.EntityID
	b ecs.EntityID
}

// State is the scene: component stores for the spatial and facet data, a
// spatial hash grid for radius queries, a tag index for "nearest tagged
// entity" lookups, and the collision-suppression record. Single-threaded,
// mutated only on the simulation tick.
type State struct {
	world *ecs.World

	Transforms *ecs.Store[Transform]
	Bodies     *ecs.Store[PhysicsBody]
	Visuals    *ecs.Store[Visual]
	Colliders  *ecs.Store[Collider]

	grid       *grid
	tags       map[string]map[ecs.EntityID]struct{}
	tagsByID   map[ecs.EntityID][]string
	suppressed map[suppressPair]struct{}
}

func NewState(w *ecs.World) *State {
	s := &State{
		world:      w,
		Transforms: ecs.NewStore[Transform](),
		Bodies:     ecs.NewStore[PhysicsBody](),
		Visuals:    ecs.NewStore[Visual](),
		Colliders:  ecs.NewStore[Collider](),
		grid:       newGrid(8),
		tags:       make(map[string]map[ecs.EntityID]struct{}, 16),
		tagsByID:   make(map[ecs.EntityID][]string, 256),
		suppressed: make(map[suppressPair]struct{}, 64),
	}
	w.Registry().Register(s.Transforms)
	w.Registry().Register(s.Bodies)
	w.Registry().Register(s.Visuals)
	w.Registry().Register(s.Colliders)
	w.Registry().Register(removerFunc(s.forget))
	return s
}

// removerFunc adapts a func to ecs.Removable for registry cleanup.
type removerFunc func(ecs.EntityID)

func (f removerFunc) Remove(id ecs.EntityID) { f(id) }

// forget drops grid membership, tags, and suppression pairs on destroy.
func (s *State) forget(id ecs.EntityID) {
	s.grid.remove(id)
	for _, t := range s.tagsByID[id] {
		delete(s.tags[t], id)
	}
	delete(s.tagsByID, id)
	for p := range s.suppressed {
		if p.a == id || p.b == id {
			delete(s.suppressed, p)
		}
	}
}

func (s *State) World() *ecs.World { return s.world }

// SetPosition moves an entity and keeps the spatial grid in sync.
func (s *State) SetPosition(id ecs.EntityID, pos geom.Vec2) {
	tr, ok := s.Transforms.Get(id)
	if !ok {
		tr = &Transform{Scale: geom.Vec2{X: 1, Y: 1}}
		s.Transforms.Set(id, tr)
	}
	tr.Pos = pos
	s.grid.update(id, pos)
}

// Position returns the entity's position; ok is false when it has no transform.
func (s *State) Position(id ecs.EntityID) (geom.Vec2, bool) {
	tr, ok := s.Transforms.Get(id)
	if !ok {
		return geom.Vec2{}, false
	}
	return tr.Pos, true
}

// Tag adds a tag to an entity and indexes it for NearestTagged.
func (s *State) Tag(id ecs.EntityID, tag string) {
	set := s.tags[tag]
	if set == nil {
		set = make(map[ecs.EntityID]struct{}, 16)
		s.tags[tag] = set
	}
	if _, dup := set[id]; dup {
		return
	}
	set[id] = struct{}{}
	s.tagsByID[id] = append(s.tagsByID[id], tag)
}

// HasTag reports whether the entity carries the tag.
func (s *State) HasTag(id ecs.EntityID, tag string) bool {
	_, ok := s.tags[tag][id]
	return ok
}

// SuppressCollision records that two entities never collide with each other
// (spawner output vs its owner). Order-insensitive.
func (s *State) SuppressCollision(a, b ecs.EntityID) {
	if b < a {
		a, b = b, a
	}
	s.suppressed[suppressPair{a, b}] = struct{}{}
}

// CollisionSuppressed reports whether a pair is suppressed.
func (s *State) CollisionSuppressed(a, b ecs.EntityID) bool {
	if b < a {
		a, b = b, a
	}
	_, ok := s.suppressed[suppressPair{a, b}]
	return ok
}

// AnyWithin reports whether any active, collider-carrying entity lies within
// radius of pos, matches the filter mask, and is not excluded. A zero mask
// matches everything.
func (s *State) AnyWithin(pos geom.Vec2, radius float64, mask uint32, exclude ...ecs.EntityID) bool {
	found := false
	s.grid.eachWithin(pos, radius, s.Position, func(id ecs.EntityID) bool {
		if !s.world.Active(id) {
			return true
		}
		for _, ex := range exclude {
			if id == ex {
				return true
			}
		}
		col, ok := s.Colliders.Get(id)
		if !ok || !col.Enabled {
			return true
		}
		if mask != 0 && col.Mask&mask == 0 {
			return true
		}
		found = true
		return false
	})
	return found
}

// NearestTagged returns the closest active entity carrying the tag, measured
// from the given point. ok is false when no such entity exists.
func (s *State) NearestTagged(tag string, from geom.Vec2) (ecs.EntityID, bool) {
	best := ecs.EntityID(0)
	bestDist := math.MaxFloat64
	for id := range s.tags[tag] {
		if !s.world.Active(id) {
			continue
		}
		pos, ok := s.Position(id)
		if !ok {
			continue
		}
		if d := geom.Dist(from, pos); d < bestDist {
			bestDist = d
			best = id
		}
	}
	return best, !best.IsZero()
}

// EachWithin visits every active entity within radius of pos.
func (s *State) EachWithin(pos geom.Vec2, radius float64, fn func(ecs.EntityID)) {
	s.grid.eachWithin(pos, radius, s.Position, func(id ecs.EntityID) bool {
		if s.world.Active(id) {
			fn(id)
		}
		return true
	})
}
