package behavior

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mechanica/engine/internal/core/ecs"
	"github.com/mechanica/engine/internal/settings"
)

// Set is the per-entity component recording attached behavior instances in
// attachment order.
type Set struct {
	Instances []Instance
}

// SettingsHook preprocesses a behavior's settings map before assignment.
// The scripting engine implements it so Lua can rewrite settings per
// implementation. ok is false when no hook exists for the implID.
type SettingsHook interface {
	PreprocessSettings(implID string, s map[string]settings.Value) (map[string]settings.Value, bool)
}

// Applier attaches behavior implementations to entities and assigns their
// settings. Assignment order: the scripted preprocess hook (when one is
// loaded for the implID), then the def's bulk-apply hook when one is
// registered, else coerce-and-assign per key. Unmatched keys and single-key
// conversion failures are dropped without aborting the rest.
type Applier struct {
	reg  *Registry
	log  *zap.Logger
	sets *ecs.Store[Set]
	hook SettingsHook
}

func NewApplier(w *ecs.World, reg *Registry, log *zap.Logger) *Applier {
	a := &Applier{
		reg:  reg,
		log:  log,
		sets: ecs.NewStore[Set](),
	}
	w.Registry().Register(a.sets)
	return a
}

// SetSettingsHook installs the scripted preprocess hook. Optional.
func (a *Applier) SetSettingsHook(h SettingsHook) {
	a.hook = h
}

// Attach resolves implID, creates (or finds) the instance on the entity, and
// applies the settings. Attaching an implID the entity already carries is
// idempotent: the existing instance is reused and settings are reapplied.
func (a *Applier) Attach(entity ecs.EntityID, implID string, s map[string]settings.Value) (Instance, error) {
	def, ok := a.reg.Get(implID)
	if !ok {
		return nil, fmt.Errorf("behavior implementation %q not registered", implID)
	}

	inst := a.Find(entity, implID)
	if inst == nil {
		inst = def.New()
		set, ok := a.sets.Get(entity)
		if !ok {
			set = &Set{}
			a.sets.Set(entity, set)
		}
		set.Instances = append(set.Instances, inst)
	}

	a.applySettings(inst, def, s)
	return inst, nil
}

func (a *Applier) applySettings(inst Instance, def Def, s map[string]settings.Value) {
	if len(s) == 0 {
		return
	}

	if a.hook != nil {
		if out, ok := a.hook.PreprocessSettings(inst.ImplID(), s); ok {
			s = out
		}
	}

	if def.ApplyAll != nil {
		if err := def.ApplyAll(inst, s); err != nil {
			a.log.Warn("bulk-apply hook failed, falling back to per-key assignment",
				zap.String("impl", inst.ImplID()), zap.Error(err))
		} else {
			return
		}
	}

	target, _ := inst.(SettingApplier)
	for key, raw := range s {
		spec, ok := fieldFor(def.Fields, key)
		if !ok {
			a.log.Debug("setting key has no matching field, dropped",
				zap.String("impl", inst.ImplID()), zap.String("key", key))
			continue
		}
		coerced, err := settings.Coerce(raw, spec)
		if err != nil {
			// One bad key never aborts the remaining keys.
			a.log.Warn("setting conversion failed, key skipped",
				zap.String("impl", inst.ImplID()), zap.String("key", key), zap.Error(err))
			continue
		}
		if target == nil || !target.ApplySetting(key, coerced) {
			a.log.Debug("setting key unmatched by instance, dropped",
				zap.String("impl", inst.ImplID()), zap.String("key", key))
		}
	}
}

func fieldFor(fields map[string]settings.FieldSpec, key string) (settings.FieldSpec, bool) {
	if spec, ok := fields[key]; ok {
		return spec, true
	}
	for k, spec := range fields {
		if strings.EqualFold(k, key) {
			return spec, true
		}
	}
	return settings.FieldSpec{}, false
}

// Find returns the entity's instance of implID, or nil.
func (a *Applier) Find(entity ecs.EntityID, implID string) Instance {
	set, ok := a.sets.Get(entity)
	if !ok {
		return nil
	}
	for _, inst := range set.Instances {
		if inst.ImplID() == implID {
			return inst
		}
	}
	return nil
}

// Instances returns the entity's attached instances in attachment order.
func (a *Applier) Instances(entity ecs.EntityID) []Instance {
	set, ok := a.sets.Get(entity)
	if !ok {
		return nil
	}
	return set.Instances
}

// Guards returns the entity's instances that opt into the activation-guard
// capability. The spawner queries this list instead of testing every component.
func (a *Applier) Guards(entity ecs.EntityID) []ActivationGuard {
	var out []ActivationGuard
	for _, inst := range a.Instances(entity) {
		if g, ok := inst.(ActivationGuard); ok {
			out = append(out, g)
		}
	}
	return out
}

// Resettables returns the entity's instances that opt into pool reset.
func (a *Applier) Resettables(entity ecs.EntityID) []PoolResettable {
	var out []PoolResettable
	for _, inst := range a.Instances(entity) {
		if r, ok := inst.(PoolResettable); ok {
			out = append(out, r)
		}
	}
	return out
}
