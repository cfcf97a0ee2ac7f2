package world

import "github.com/mechanica/engine/internal/geom"

// Transform is the spatial component every scene entity carries.
type Transform struct {
	Pos   geom.Vec2
	Dir   geom.Vec2 // facing / travel direction, unit length or zero
	Scale geom.Vec2
}

// PhysicsBody is the minimal physics facet: a velocity integrated by the
// motion system. Kinematic bodies ignore external influence and are moved
// only by their behaviors.
type PhysicsBody struct {
	Velocity  geom.Vec2
	Kinematic bool
}

// Shape enumerates the visual facet's primitive shapes.
type Shape uint8

const (
	ShapeCircle Shape = iota
	ShapeBox
	ShapeCapsule
)

// Visual is the rendering facet. The engine never draws it; it exists so
// shells carry the data a renderer would consume.
type Visual struct {
	Shape Shape
	Size  float64
	Color geom.Color
}

// Collision filter masks. Overlap queries match when the query mask and the
// collider mask intersect.
const (
	MaskProjectile uint32 = 1 << iota
	MaskField
	MaskObstacle
)

// Collider is the collision facet: a radius and a filter mask. Overlap
// queries test mask intersection.
type Collider struct {
	Radius  float64
	Mask    uint32
	Enabled bool
}
