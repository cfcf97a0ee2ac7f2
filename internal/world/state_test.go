package world_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mechanica/engine/internal/core/ecs"
	"github.com/mechanica/engine/internal/geom"
	"github.com/mechanica/engine/internal/world"
)

func newScene(t *testing.T) (*world.State, *ecs.World) {
	t.Helper()
	w := ecs.NewWorld()
	return world.NewState(w), w
}

func TestAnyWithinMaskAndExclude(t *testing.T) {
	s, _ := newScene(t)

	obstacle := s.NewShell(world.ShellParams{
		Pos:      geom.Vec2{X: 10, Y: 10},
		Collider: &world.Collider{Radius: 1, Mask: world.MaskObstacle},
	})

	assert.True(t, s.AnyWithin(geom.Vec2{X: 11, Y: 10}, 5, 0))
	assert.True(t, s.AnyWithin(geom.Vec2{X: 11, Y: 10}, 5, world.MaskObstacle))
	assert.False(t, s.AnyWithin(geom.Vec2{X: 11, Y: 10}, 5, world.MaskProjectile),
		"mask mismatch is not a hit")
	assert.False(t, s.AnyWithin(geom.Vec2{X: 11, Y: 10}, 5, 0, obstacle),
		"excluded entities never match")
	assert.False(t, s.AnyWithin(geom.Vec2{X: 100, Y: 100}, 5, 0))
}

func TestAnyWithinIgnoresDisabledColliders(t *testing.T) {
	s, _ := newScene(t)

	id := s.NewShell(world.ShellParams{
		Pos:      geom.Vec2{X: 0, Y: 0},
		Collider: &world.Collider{Radius: 1, Mask: world.MaskObstacle},
	})
	c, _ := s.Colliders.Get(id)
	c.Enabled = false

	assert.False(t, s.AnyWithin(geom.Vec2{}, 5, 0))
}

func TestAnyWithinIgnoresPooled(t *testing.T) {
	s, w := newScene(t)

	id := s.NewShell(world.ShellParams{
		Collider: &world.Collider{Radius: 1},
	})
	w.Arena().SetState(id, ecs.StatePooled)

	assert.False(t, s.AnyWithin(geom.Vec2{}, 5, 0))
}

func TestNearestTagged(t *testing.T) {
	s, _ := newScene(t)

	far := s.NewShell(world.ShellParams{Pos: geom.Vec2{X: 50}, Tags: []string{"target"}})
	near := s.NewShell(world.ShellParams{Pos: geom.Vec2{X: 5}, Tags: []string{"target"}})
	_ = far

	got, ok := s.NearestTagged("target", geom.Vec2{})
	require.True(t, ok)
	assert.Equal(t, near, got)

	_, ok = s.NearestTagged("missing", geom.Vec2{})
	assert.False(t, ok)
}

func TestSetPositionMovesGridMembership(t *testing.T) {
	s, _ := newScene(t)

	id := s.NewShell(world.ShellParams{
		Pos:      geom.Vec2{},
		Collider: &world.Collider{Radius: 1},
	})

	s.SetPosition(id, geom.Vec2{X: 200, Y: 200})

	assert.False(t, s.AnyWithin(geom.Vec2{}, 5, 0))
	assert.True(t, s.AnyWithin(geom.Vec2{X: 201, Y: 200}, 5, 0))
}

func TestCollisionSuppressionOrderInsensitive(t *testing.T) {
	s, _ := newScene(t)

	a := s.NewShell(world.ShellParams{})
	b := s.NewShell(world.ShellParams{})

	s.SuppressCollision(a, b)
	assert.True(t, s.CollisionSuppressed(a, b))
	assert.True(t, s.CollisionSuppressed(b, a))
	assert.False(t, s.CollisionSuppressed(a, a))
}

func TestResetForReuse(t *testing.T) {
	s, _ := newScene(t)

	id := s.NewShell(world.ShellParams{
		Pos:      geom.Vec2{X: 3, Y: 4},
		Scale:    geom.Vec2{X: 2, Y: 2},
		WithBody: true,
		Collider: &world.Collider{Radius: 1},
	})
	b, _ := s.Bodies.Get(id)
	b.Velocity = geom.Vec2{X: 9}
	c, _ := s.Colliders.Get(id)
	c.Enabled = false

	s.ResetForReuse(id)

	pos, _ := s.Position(id)
	assert.True(t, pos.IsZero())
	tr, _ := s.Transforms.Get(id)
	assert.Equal(t, geom.Vec2{X: 1, Y: 1}, tr.Scale)
	assert.True(t, b.Velocity.IsZero())
	assert.True(t, c.Enabled)
}
