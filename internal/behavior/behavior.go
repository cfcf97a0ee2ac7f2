package behavior

import (
	"time"

	"go.uber.org/zap"

	"github.com/mechanica/engine/internal/core/ecs"
	"github.com/mechanica/engine/internal/settings"
	"github.com/mechanica/engine/internal/world"
)

// Context is handed to every behavior instance on each tick.
type Context struct {
	World  *ecs.World
	Scene  *world.State
	Entity ecs.EntityID
	Log    *zap.Logger
}

// Instance is one live behavior attached to one entity.
type Instance interface {
	// ImplID returns the implementation identifier the instance was
	// registered under. Used for idempotent re-attachment.
	ImplID() string
	// Tick advances the instance one simulation frame.
	Tick(ctx *Context, dt time.Duration)
}

// ActivationGuard is the capability a behavior opts into when it must veto
// activation after construction. A spawner destroys (fresh) or repools
// (reused) any entity whose guards are not ready.
type ActivationGuard interface {
	ReadyToActivate() bool
}

// PoolResettable is the capability for behaviors that keep local simulation
// state. ResetForPool is invoked when the entity is retired into a pool so
// state never leaks across reuse.
type PoolResettable interface {
	ResetForPool()
}

// SettingApplier receives coerced setting values key by key. Returning false
// marks the key unmatched; the applier drops it (catalogs evolve faster than
// implementations).
type SettingApplier interface {
	ApplySetting(key string, v settings.Value) bool
}

// Def binds an implementation identifier to its factory and field schema.
// Field keys are matched case-insensitively against setting keys. ApplyAll,
// when set, is the behavior-specific bulk-apply hook: it receives the whole
// settings map and replaces per-key assignment.
type Def struct {
	New      func() Instance
	Fields   map[string]settings.FieldSpec
	ApplyAll func(inst Instance, s map[string]settings.Value) error
}

// Registry is the explicit name→factory table: resolved once at registration,
// no reflection at attach time.
type Registry struct {
	defs map[string]Def
}

func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Def, 16)}
}

// Register adds an implementation. Re-registering an ID replaces the old def.
func (r *Registry) Register(implID string, def Def) {
	r.defs[implID] = def
}

// Get returns the def for an implementation ID.
func (r *Registry) Get(implID string) (Def, bool) {
	d, ok := r.defs[implID]
	return d, ok
}
