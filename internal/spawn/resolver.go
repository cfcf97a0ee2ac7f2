package spawn

import (
	"math"
	"math/rand"

	"github.com/mechanica/engine/internal/core/ecs"
	"github.com/mechanica/engine/internal/geom"
	"github.com/mechanica/engine/internal/scripting"
)

// ResolveContext is handed to position resolvers for one spawn slot.
type ResolveContext struct {
	Owner    ecs.EntityID
	OwnerPos geom.Vec2
	OwnerDir geom.Vec2
	Index    int // slot index within the burst
	Count    int // burst size
}

// Point is a resolved spawn position and initial direction.
type Point struct {
	Pos geom.Vec2
	Dir geom.Vec2
}

// PositionResolver produces a spawn point for a slot, or declines.
type PositionResolver interface {
	Resolve(ctx ResolveContext) (Point, bool)
}

// LuaResolver adapts a named Lua resolver function to PositionResolver.
type LuaResolver struct {
	Engine *scripting.Engine
	Name   string
}

func (r *LuaResolver) Resolve(ctx ResolveContext) (Point, bool) {
	sp, ok := r.Engine.ResolveSpawn(r.Name, scripting.SpawnContext{
		OwnerX:    ctx.OwnerPos.X,
		OwnerY:    ctx.OwnerPos.Y,
		OwnerDirX: ctx.OwnerDir.X,
		OwnerDirY: ctx.OwnerDir.Y,
		Index:     ctx.Index,
		Count:     ctx.Count,
	})
	if !ok {
		return Point{}, false
	}
	return Point{Pos: sp.Pos, Dir: sp.Dir}, true
}

// resolveChain runs the ordered resolver chain: explicit resolver first,
// then the chaos fallback (owner position, uniform random direction), then a
// last-resort random direction. The chain never fails to produce a point.
func resolveChain(explicit PositionResolver, rng *rand.Rand, ctx ResolveContext) Point {
	if explicit != nil {
		if p, ok := explicit.Resolve(ctx); ok {
			return p
		}
	}
	if dir := chaosDirection(rng); !dir.IsZero() {
		return Point{Pos: ctx.OwnerPos, Dir: dir}
	}
	// Unreachable in practice; kept so the chain is total by construction.
	return Point{Pos: ctx.OwnerPos, Dir: geom.FromAngleDeg(rng.Float64() * 360)}
}

// chaosDirection draws a uniform random unit direction.
func chaosDirection(rng *rand.Rand) geom.Vec2 {
	angle := rng.Float64() * 2 * math.Pi
	return geom.Vec2{X: math.Cos(angle), Y: math.Sin(angle)}
}
