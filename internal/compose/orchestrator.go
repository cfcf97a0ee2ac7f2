// Package compose is the top-level generation entry point: it assembles an
// item from a primary behavior plus modifiers, resolves settings, evaluates
// modifier fit, and wires the result into the tick scheduler.
package compose

import (
	"go.uber.org/zap"

	"github.com/mechanica/engine/internal/behavior"
	"github.com/mechanica/engine/internal/catalog"
	"github.com/mechanica/engine/internal/core/ecs"
	"github.com/mechanica/engine/internal/diag"
	"github.com/mechanica/engine/internal/fit"
	"github.com/mechanica/engine/internal/geom"
	"github.com/mechanica/engine/internal/settings"
	"github.com/mechanica/engine/internal/world"
)

// Instruction names what to build: one primary behavior and an ordered list
// of modifiers. Value object; mutated only by explicit append.
type Instruction struct {
	Primary   string
	Secondary []string
}

// AddSecondary appends a modifier name.
func (in *Instruction) AddSecondary(name string) {
	in.Secondary = append(in.Secondary, name)
}

// Params carries the caller's numeric knobs into the builders. Owned by the
// caller, passed by reference, discarded after the call.
type Params struct {
	Origin    geom.Vec2
	Count     int
	Radius    float64
	Damage    float64
	Speed     float64
	DrainRate float64
	Debug     bool

	// Overrides are call-time settings overlaid on the primary's catalog
	// merge for every produced sub-entity.
	Overrides map[string]settings.Value
}

// BuildContext is what a builder gets to work with.
type BuildContext struct {
	World    *ecs.World
	Scene    *world.State
	Catalog  *catalog.Catalog
	Settings *settings.Resolver
	Applier  *behavior.Applier
	Log      *zap.Logger
}

// Builder produces the primary's sub-entities under root and returns them.
// Builders attach the primary behavior themselves; the orchestrator layers
// modifiers on afterwards.
type Builder func(ctx *BuildContext, root ecs.EntityID, primary string, params *Params) []ecs.EntityID

// Builders is the explicit implID→builder table, resolved once at startup.
type Builders struct {
	byImpl map[string]Builder
}

func NewBuilders() *Builders {
	return &Builders{byImpl: make(map[string]Builder, 8)}
}

func (b *Builders) Register(implID string, builder Builder) {
	b.byImpl[implID] = builder
}

func (b *Builders) Get(implID string) (Builder, bool) {
	builder, ok := b.byImpl[implID]
	return builder, ok
}

// Orchestrator is the generation entry point.
type Orchestrator struct {
	world    *ecs.World
	scene    *world.State
	catalog  *catalog.Catalog
	settings *settings.Resolver
	applier  *behavior.Applier
	fit      *fit.Evaluator
	sched    *behavior.Scheduler
	builders *Builders
	dump     *diag.Dumper
	log      *zap.Logger
}

func NewOrchestrator(
	w *ecs.World,
	scene *world.State,
	cat *catalog.Catalog,
	res *settings.Resolver,
	applier *behavior.Applier,
	eval *fit.Evaluator,
	sched *behavior.Scheduler,
	builders *Builders,
	dump *diag.Dumper,
	log *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		world:    w,
		scene:    scene,
		catalog:  cat,
		settings: res,
		applier:  applier,
		fit:      eval,
		sched:    sched,
		builders: builders,
		dump:     dump,
		log:      log,
	}
}

// Create builds an item: the primary's builder produces sub-entities under a
// fresh root, compatible modifiers are layered onto every sub-entity, and the
// subtree is registered with the tick scheduler. An unresolvable primary or
// missing builder is a soft failure: the call logs and returns an otherwise
// empty root.
func (o *Orchestrator) Create(instr Instruction, params *Params) ecs.EntityID {
	root := o.scene.NewShell(world.ShellParams{Pos: params.Origin})

	callID := diag.NewCallID()
	rec := diag.Record{CallID: callID, Primary: instr.Primary}

	implID, ok := o.catalog.Resolve(instr.Primary)
	if !ok {
		o.log.Warn("primary behavior unresolved, empty root returned",
			zap.String("primary", instr.Primary), zap.String("call", callID))
		o.dump.Write(rec)
		return root
	}
	builder, ok := o.builders.Get(implID)
	if !ok {
		o.log.Warn("no builder for primary implementation, empty root returned",
			zap.String("primary", instr.Primary), zap.String("impl", implID),
			zap.String("call", callID))
		o.dump.Write(rec)
		return root
	}

	bctx := &BuildContext{
		World:    o.world,
		Scene:    o.scene,
		Catalog:  o.catalog,
		Settings: o.settings,
		Applier:  o.applier,
		Log:      o.log,
	}
	subs := builder(bctx, root, instr.Primary, params)
	rec.Behaviors = append(rec.Behaviors, o.record(instr.Primary, implID, params.Overrides))

	for _, sec := range instr.Secondary {
		res := o.fit.Evaluate(instr.Primary, sec, "modifier")
		if res.Severity == fit.Blocked {
			o.log.Warn("modifier blocked, skipped",
				zap.String("primary", instr.Primary), zap.String("modifier", sec),
				zap.String("reason", res.Reason), zap.String("call", callID))
			rec.Skipped = append(rec.Skipped, sec)
			continue
		}
		o.applyModifier(sec, subs, &rec)
	}

	o.sched.RegisterSubtree(root)
	o.dump.Write(rec)

	if params.Debug {
		o.log.Info("generation complete",
			zap.String("call", callID),
			zap.String("primary", instr.Primary),
			zap.Int("sub_entities", len(subs)),
			zap.Int("modifiers", len(instr.Secondary)-len(rec.Skipped)))
	}
	return root
}

// applyModifier attaches one modifier to every sub-entity with the two-tier
// settings merge: cached catalog merge, cloned per call.
func (o *Orchestrator) applyModifier(name string, subs []ecs.EntityID, rec *diag.Record) {
	implID, ok := o.catalog.Resolve(name)
	if !ok {
		o.log.Warn("modifier unresolved, skipped", zap.String("modifier", name))
		rec.Skipped = append(rec.Skipped, name)
		return
	}
	final := settings.Clone(o.settings.Merged(name))
	for _, sub := range subs {
		if _, err := o.applier.Attach(sub, implID, final); err != nil {
			o.log.Warn("modifier attach failed",
				zap.String("modifier", name), zap.Error(err))
		}
	}
	rec.Behaviors = append(rec.Behaviors, o.record(name, implID, nil))
}

// record builds the dump entry for one attached behavior.
func (o *Orchestrator) record(name, implID string, overlay map[string]settings.Value) diag.BehaviorRecord {
	final := settings.Clone(o.settings.Merged(name))
	settings.Overlay(final, overlay)
	applied := make(map[string]string, len(final))
	for k, v := range final {
		applied[k] = v.String()
	}
	var incompat []string
	for n := range o.catalog.IncompatibleWith(name) {
		incompat = append(incompat, n)
	}
	return diag.BehaviorRecord{
		Name:             name,
		ImplementationID: implID,
		Category:         o.catalog.Category(name),
		Settings:         applied,
		IncompatibleWith: incompat,
	}
}
