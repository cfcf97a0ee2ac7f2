package world

import (
	"math"

	"github.com/mechanica/engine/internal/core/ecs"
	"github.com/mechanica/engine/internal/geom"
)

type cellKey struct {
	cx int32
	cy int32
}

// grid is a spatial hash over entity positions. Membership is updated
// incrementally on SetPosition / remove, so radius queries only touch the
// cells the query circle overlaps.
type grid struct {
	cellSize float64
	cells    map[cellKey]map[ecs.EntityID]struct{}
	where    map[ecs.EntityID]cellKey
}

func newGrid(cellSize float64) *grid {
	if cellSize <= 0 {
		cellSize = 8
	}
	return &grid{
		cellSize: cellSize,
		cells:    make(map[cellKey]map[ecs.EntityID]struct{}, 256),
		where:    make(map[ecs.EntityID]cellKey, 256),
	}
}

func (g *grid) keyFor(p geom.Vec2) cellKey {
	return cellKey{
		cx: int32(math.Floor(p.X / g.cellSize)),
		cy: int32(math.Floor(p.Y / g.cellSize)),
	}
}

func (g *grid) update(id ecs.EntityID, p geom.Vec2) {
	key := g.keyFor(p)
	if old, ok := g.where[id]; ok {
		if old == key {
			return
		}
		delete(g.cells[old], id)
	}
	cell := g.cells[key]
	if cell == nil {
		cell = make(map[ecs.EntityID]struct{}, 8)
		g.cells[key] = cell
	}
	cell[id] = struct{}{}
	g.where[id] = key
}

func (g *grid) remove(id ecs.EntityID) {
	if key, ok := g.where[id]; ok {
		delete(g.cells[key], id)
		delete(g.where, id)
	}
}

// eachWithin visits every gridded entity within radius of pos. The callback
// may not mutate the grid.
func (g *grid) eachWithin(pos geom.Vec2, radius float64, positions func(ecs.EntityID) (geom.Vec2, bool), fn func(ecs.EntityID) bool) {
	min := g.keyFor(geom.Vec2{X: pos.X - radius, Y: pos.Y - radius})
	max := g.keyFor(geom.Vec2{X: pos.X + radius, Y: pos.Y + radius})
	for cx := min.cx; cx <= max.cx; cx++ {
		for cy := min.cy; cy <= max.cy; cy++ {
			for id := range g.cells[cellKey{cx, cy}] {
				p, ok := positions(id)
				if !ok {
					continue
				}
				if geom.Dist(pos, p) <= radius {
					if !fn(id) {
						return
					}
				}
			}
		}
	}
}
