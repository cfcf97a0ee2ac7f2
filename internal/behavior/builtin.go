package behavior

import (
	"strings"
	"time"

	"github.com/mechanica/engine/internal/core/ecs"
	"github.com/mechanica/engine/internal/geom"
	"github.com/mechanica/engine/internal/settings"
)

// Implementation identifiers of the built-in behaviors. Catalog descriptors
// reference these in their ImplementationID field.
const (
	ImplProjectileEmitter = "projectile_emitter"
	ImplOrbitMotion       = "orbit_motion"
	ImplLifeDrain         = "life_drain"
	ImplTrailField        = "trail_field"
)

// RegisterBuiltins installs the built-in behavior implementations.
func RegisterBuiltins(reg *Registry) {
	reg.Register(ImplProjectileEmitter, Def{
		New: func() Instance { return newProjectileEmitter() },
		Fields: map[string]settings.FieldSpec{
			"Damage":       {Type: settings.KindFloat},
			"Speed":        {Type: settings.KindFloat},
			"Direction":    {Type: settings.KindVector},
			"DestroyOnHit": {Type: settings.KindBool},
			"Lifetime":     {Type: settings.KindFloat},
		},
	})
	reg.Register(ImplOrbitMotion, Def{
		New: func() Instance { return newOrbitMotion() },
		Fields: map[string]settings.FieldSpec{
			"AngularSpeed": {Type: settings.KindFloat},
			"Radius":       {Type: settings.KindFloat},
		},
	})
	reg.Register(ImplLifeDrain, Def{
		New: func() Instance { return newLifeDrain() },
		Fields: map[string]settings.FieldSpec{
			"DrainPerSecond": {Type: settings.KindFloat},
			"TargetTag":      {Type: settings.KindString},
			"Radius":         {Type: settings.KindFloat},
		},
	})
	reg.Register(ImplTrailField, Def{
		New: func() Instance { return newTrailField() },
		Fields: map[string]settings.FieldSpec{
			"Radius":       {Type: settings.KindFloat},
			"TickInterval": {Type: settings.KindFloat},
			"Color":        {Type: settings.KindColor},
			"Falloff": {Type: settings.KindInt, Enum: map[string]int64{
				"none":      0,
				"linear":    1,
				"quadratic": 2,
			}},
		},
	})
}

// ProjectileEmitter drives its entity along a direction at constant speed and
// expires it after a lifetime.
type ProjectileEmitter struct {
	Damage       float64
	Speed        float64
	Direction    geom.Vec2
	DestroyOnHit bool
	Lifetime     float64 // seconds; zero means no expiry

	age float64
}

func newProjectileEmitter() *ProjectileEmitter {
	return &ProjectileEmitter{Speed: 200, Lifetime: 5}
}

func (p *ProjectileEmitter) ImplID() string { return ImplProjectileEmitter }

func (p *ProjectileEmitter) ApplySetting(key string, v settings.Value) bool {
	switch strings.ToLower(key) {
	case "damage":
		p.Damage, _ = v.AsFloat()
	case "speed":
		p.Speed, _ = v.AsFloat()
	case "direction":
		p.Direction, _ = v.AsVector()
	case "destroyonhit":
		p.DestroyOnHit, _ = v.AsBool()
	case "lifetime":
		p.Lifetime, _ = v.AsFloat()
	default:
		return false
	}
	return true
}

// ReadyToActivate vetoes zero-speed projectiles; they would sit at the spawn
// point forever.
func (p *ProjectileEmitter) ReadyToActivate() bool { return p.Speed != 0 }

func (p *ProjectileEmitter) ResetForPool() {
	p.age = 0
}

func (p *ProjectileEmitter) Tick(ctx *Context, dt time.Duration) {
	if b, ok := ctx.Scene.Bodies.Get(ctx.Entity); ok {
		b.Velocity = p.Direction.Normalize().Scale(p.Speed)
	} else if pos, ok := ctx.Scene.Position(ctx.Entity); ok {
		step := p.Direction.Normalize().Scale(p.Speed * dt.Seconds())
		ctx.Scene.SetPosition(ctx.Entity, pos.Add(step))
	}
	p.age += dt.Seconds()
	if p.Lifetime > 0 && p.age >= p.Lifetime {
		ctx.World.MarkForDestruction(ctx.Entity)
	}
}

// OrbitMotion circles its entity around the parent at a fixed radius.
type OrbitMotion struct {
	AngularSpeed float64 // degrees per second; negative is clockwise
	Radius       float64

	angle float64
}

func newOrbitMotion() *OrbitMotion {
	return &OrbitMotion{AngularSpeed: 90, Radius: 32}
}

func (o *OrbitMotion) ImplID() string { return ImplOrbitMotion }

func (o *OrbitMotion) ApplySetting(key string, v settings.Value) bool {
	switch strings.ToLower(key) {
	case "angularspeed":
		o.AngularSpeed, _ = v.AsFloat()
	case "radius":
		o.Radius, _ = v.AsFloat()
	default:
		return false
	}
	return true
}

func (o *OrbitMotion) ResetForPool() {
	o.angle = 0
}

func (o *OrbitMotion) Tick(ctx *Context, dt time.Duration) {
	parent := ctx.World.Parent(ctx.Entity)
	if parent.IsZero() {
		return
	}
	center, ok := ctx.Scene.Position(parent)
	if !ok {
		return
	}
	o.angle += o.AngularSpeed * dt.Seconds()
	offset := geom.FromAngleDeg(o.angle).Scale(o.Radius)
	ctx.Scene.SetPosition(ctx.Entity, center.Add(offset))
}

// LifeDrain siphons from the nearest tagged target while it stays in range.
type LifeDrain struct {
	DrainPerSecond float64
	TargetTag      string
	Radius         float64

	drained float64
}

func newLifeDrain() *LifeDrain {
	return &LifeDrain{DrainPerSecond: 1, TargetTag: "drainable", Radius: 64}
}

func (l *LifeDrain) ImplID() string { return ImplLifeDrain }

func (l *LifeDrain) ApplySetting(key string, v settings.Value) bool {
	switch strings.ToLower(key) {
	case "drainpersecond":
		l.DrainPerSecond, _ = v.AsFloat()
	case "targettag":
		l.TargetTag, _ = v.AsString()
	case "radius":
		l.Radius, _ = v.AsFloat()
	default:
		return false
	}
	return true
}

// Drained returns the total amount siphoned since the last pool reset.
func (l *LifeDrain) Drained() float64 { return l.drained }

func (l *LifeDrain) ResetForPool() {
	l.drained = 0
}

func (l *LifeDrain) Tick(ctx *Context, dt time.Duration) {
	pos, ok := ctx.Scene.Position(ctx.Entity)
	if !ok {
		return
	}
	target, ok := ctx.Scene.NearestTagged(l.TargetTag, pos)
	if !ok {
		return
	}
	tpos, ok := ctx.Scene.Position(target)
	if !ok || geom.Dist(pos, tpos) > l.Radius {
		return
	}
	l.drained += l.DrainPerSecond * dt.Seconds()
}

// Falloff shapes of the trail field's effect over distance.
const (
	FalloffNone int64 = iota
	FalloffLinear
	FalloffQuadratic
)

// TrailField periodically pulses an area effect around its entity.
type TrailField struct {
	Radius       float64
	TickInterval float64 // seconds between pulses
	Color        geom.Color
	Falloff      int64

	sinceLast    float64
	lastAffected int
}

func newTrailField() *TrailField {
	return &TrailField{Radius: 48, TickInterval: 0.5, Falloff: FalloffLinear}
}

func (t *TrailField) ImplID() string { return ImplTrailField }

func (t *TrailField) ApplySetting(key string, v settings.Value) bool {
	switch strings.ToLower(key) {
	case "radius":
		t.Radius, _ = v.AsFloat()
	case "tickinterval":
		t.TickInterval, _ = v.AsFloat()
	case "color":
		t.Color, _ = v.AsColor()
	case "falloff":
		t.Falloff, _ = v.AsInt()
	default:
		return false
	}
	return true
}

// LastAffected returns how many entities the most recent pulse touched.
func (t *TrailField) LastAffected() int { return t.lastAffected }

func (t *TrailField) ResetForPool() {
	t.sinceLast = 0
	t.lastAffected = 0
}

func (t *TrailField) Tick(ctx *Context, dt time.Duration) {
	t.sinceLast += dt.Seconds()
	interval := t.TickInterval
	if interval <= 0 {
		interval = 0.5
	}
	if t.sinceLast < interval {
		return
	}
	t.sinceLast = 0

	pos, ok := ctx.Scene.Position(ctx.Entity)
	if !ok {
		return
	}
	affected := 0
	ctx.Scene.EachWithin(pos, t.Radius, func(id ecs.EntityID) {
		if id != ctx.Entity {
			affected++
		}
	})
	t.lastAffected = affected
}
