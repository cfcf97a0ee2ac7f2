package compose

import (
	"go.uber.org/zap"

	"github.com/mechanica/engine/internal/behavior"
	"github.com/mechanica/engine/internal/core/ecs"
	"github.com/mechanica/engine/internal/geom"
	"github.com/mechanica/engine/internal/settings"
	"github.com/mechanica/engine/internal/world"
)

// RegisterDefaultBuilders installs the builders for the built-in primaries.
func RegisterDefaultBuilders(b *Builders) {
	b.Register(behavior.ImplProjectileEmitter, buildProjectiles)
	b.Register(behavior.ImplTrailField, buildTrailField)
}

// primarySettings is the two-tier merge for one sub-entity of the primary:
// cached catalog merge, cloned, call-time knobs overlaid.
func primarySettings(ctx *BuildContext, primary string, params *Params) map[string]settings.Value {
	final := settings.Clone(ctx.Settings.Merged(primary))
	settings.Overlay(final, params.Overrides)
	if params.Damage != 0 {
		final["damage"] = settings.Float(params.Damage)
	}
	if params.Speed != 0 {
		final["speed"] = settings.Float(params.Speed)
	}
	if params.DrainRate != 0 {
		final["drainPerSecond"] = settings.Float(params.DrainRate)
	}
	return final
}

// buildProjectiles produces params.Count projectile shells fanned out evenly
// around the root, each carrying the primary behavior.
func buildProjectiles(ctx *BuildContext, root ecs.EntityID, primary string, params *Params) []ecs.EntityID {
	count := params.Count
	if count <= 0 {
		count = 1
	}
	implID, _ := ctx.Catalog.Resolve(primary)
	final := primarySettings(ctx, primary, params)

	subs := make([]ecs.EntityID, 0, count)
	for i := 0; i < count; i++ {
		dir := geom.FromAngleDeg(float64(i) * 360 / float64(count))
		sub := ctx.Scene.NewShell(world.ShellParams{
			Pos:      params.Origin,
			Dir:      dir,
			Visual:   &world.Visual{Shape: world.ShapeCircle, Size: 4},
			Collider: &world.Collider{Radius: 4, Mask: world.MaskProjectile},
			WithBody: true,
		})
		ctx.World.SetParent(sub, root)

		inst := settings.Clone(final)
		inst["direction"] = settings.Vector(dir)
		if _, err := ctx.Applier.Attach(sub, implID, inst); err != nil {
			ctx.Log.Warn("primary attach failed",
				zap.String("primary", primary), zap.Error(err))
		}
		subs = append(subs, sub)
	}
	return subs
}

// buildTrailField produces a single aura shell centered on the root.
func buildTrailField(ctx *BuildContext, root ecs.EntityID, primary string, params *Params) []ecs.EntityID {
	implID, _ := ctx.Catalog.Resolve(primary)
	final := primarySettings(ctx, primary, params)
	if params.Radius != 0 {
		final["radius"] = settings.Float(params.Radius)
	}

	sub := ctx.Scene.NewShell(world.ShellParams{
		Pos:    params.Origin,
		Visual: &world.Visual{Shape: world.ShapeCircle, Size: params.Radius},
	})
	ctx.World.SetParent(sub, root)
	if _, err := ctx.Applier.Attach(sub, implID, final); err != nil {
		ctx.Log.Warn("primary attach failed",
			zap.String("primary", primary), zap.Error(err))
	}
	return []ecs.EntityID{sub}
}
