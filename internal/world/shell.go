package world

import (
	"github.com/mechanica/engine/internal/core/ecs"
	"github.com/mechanica/engine/internal/geom"
)

// ShellParams describes the minimal constructed entity behaviors attach to:
// position plus optional visual, collider, and physics facets.
type ShellParams struct {
	Pos       geom.Vec2
	Dir       geom.Vec2
	Scale     geom.Vec2 // zero means unit scale
	Visual    *Visual
	Collider  *Collider
	WithBody  bool
	Kinematic bool
	Tags      []string
}

// NewShell constructs a fresh shell entity with the requested facets.
func (s *State) NewShell(p ShellParams) ecs.EntityID {
	id := s.world.CreateEntity()

	scale := p.Scale
	if scale.IsZero() {
		scale = geom.Vec2{X: 1, Y: 1}
	}
	s.Transforms.Set(id, &Transform{Pos: p.Pos, Dir: p.Dir, Scale: scale})
	s.grid.update(id, p.Pos)

	if p.Visual != nil {
		v := *p.Visual
		s.Visuals.Set(id, &v)
	}
	if p.Collider != nil {
		c := *p.Collider
		c.Enabled = true
		s.Colliders.Set(id, &c)
	}
	if p.WithBody {
		s.Bodies.Set(id, &PhysicsBody{Kinematic: p.Kinematic})
	}
	for _, t := range p.Tags {
		s.Tag(id, t)
	}
	return id
}

// ResetForReuse clears residual simulation state on a pooled entity before
// it goes back into play: velocity and position zeroed, direction cleared,
// scale restored to unit.
func (s *State) ResetForReuse(id ecs.EntityID) {
	if tr, ok := s.Transforms.Get(id); ok {
		tr.Pos = geom.Vec2{}
		tr.Dir = geom.Vec2{}
		tr.Scale = geom.Vec2{X: 1, Y: 1}
	}
	s.grid.update(id, geom.Vec2{})
	if b, ok := s.Bodies.Get(id); ok {
		b.Velocity = geom.Vec2{}
	}
	if c, ok := s.Colliders.Get(id); ok {
		c.Enabled = true
	}
}
