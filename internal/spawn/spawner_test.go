package spawn_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mechanica/engine/internal/behavior"
	"github.com/mechanica/engine/internal/catalog"
	"github.com/mechanica/engine/internal/core/ecs"
	"github.com/mechanica/engine/internal/core/event"
	"github.com/mechanica/engine/internal/geom"
	"github.com/mechanica/engine/internal/pool"
	"github.com/mechanica/engine/internal/settings"
	"github.com/mechanica/engine/internal/spawn"
	"github.com/mechanica/engine/internal/world"
)

// shotBehavior is a minimal attachable instance.
type shotBehavior struct {
	Damage float64
}

func (s *shotBehavior) ImplID() string                        { return "test_shot" }
func (s *shotBehavior) Tick(*behavior.Context, time.Duration) {}

func (s *shotBehavior) ApplySetting(key string, v settings.Value) bool {
	if key == "damage" || key == "Damage" {
		s.Damage, _ = v.AsFloat()
		return true
	}
	return false
}

// vetoBehavior always refuses activation.
type vetoBehavior struct{}

func (v *vetoBehavior) ImplID() string                        { return "test_veto" }
func (v *vetoBehavior) Tick(*behavior.Context, time.Duration) {}
func (v *vetoBehavior) ReadyToActivate() bool                 { return false }

// fixedResolver always yields the same point.
type fixedResolver struct {
	point spawn.Point
}

func (r *fixedResolver) Resolve(spawn.ResolveContext) (spawn.Point, bool) {
	return r.point, true
}

type fixture struct {
	world *ecs.World
	scene *world.State
	pool  *pool.Pool
	deps  *spawn.Deps
	owner ecs.EntityID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	w := ecs.NewWorld()
	scene := world.NewState(w)
	log := zap.NewNop()

	cat := catalog.New([]catalog.Descriptor{
		{Name: "Shot", ImplementationID: "test_shot", Properties: map[string]settings.Value{
			"Damage": settings.Float(1),
		}},
		{Name: "Veto", ImplementationID: "test_veto"},
	})

	reg := behavior.NewRegistry()
	reg.Register("test_shot", behavior.Def{
		New:    func() behavior.Instance { return &shotBehavior{} },
		Fields: map[string]settings.FieldSpec{"Damage": {Type: settings.KindFloat}},
	})
	reg.Register("test_veto", behavior.Def{
		New: func() behavior.Instance { return &vetoBehavior{} },
	})

	applier := behavior.NewApplier(w, reg, log)
	p := pool.New(w, scene, applier, log)
	sched := behavior.NewScheduler(w, scene, applier, log)

	owner := scene.NewShell(world.ShellParams{Pos: geom.Vec2{X: 100, Y: 100}})

	return &fixture{
		world: w,
		scene: scene,
		pool:  p,
		owner: owner,
		deps: &spawn.Deps{
			World:     w,
			Scene:     scene,
			Catalog:   cat,
			Settings:  settings.NewResolver(cat, log),
			Applier:   applier,
			Pool:      p,
			Scheduler: sched,
			Bus:       event.NewBus(),
			Log:       log,
			Rand:      rand.New(rand.NewSource(1)),
		},
	}
}

func baseConfig() spawn.Config {
	return spawn.Config{
		Key:              "shot",
		Attach:           []spawn.Attachment{{Name: "Shot"}},
		Interval:         time.Second,
		CountPerInterval: 1,
		Recycle:          true,
	}
}

func TestBurstSpawnsConfiguredCount(t *testing.T) {
	f := newFixture(t)
	cfg := baseConfig()
	cfg.CountPerInterval = 3

	sp := spawn.New(f.owner, cfg, f.deps)
	sp.Enable()
	sp.Burst()

	assert.Equal(t, 3, sp.TrackedCount())
	assert.Len(t, f.world.Children(f.owner), 3)
}

func TestRecycleOldestKeepsLimit(t *testing.T) {
	f := newFixture(t)
	cfg := baseConfig()
	cfg.CountPerInterval = 3
	cfg.MaxActiveChildren = 2
	cfg.LimitPolicy = spawn.LimitRecycleOldest

	sp := spawn.New(f.owner, cfg, f.deps)
	sp.Enable()

	sp.Burst()
	assert.LessOrEqual(t, sp.TrackedCount(), 2)

	sp.Burst()
	assert.LessOrEqual(t, sp.TrackedCount(), 2)

	st := f.pool.Snapshot("shot")
	assert.Greater(t, st.TotalReturned, 0, "oldest children retire through the pool")
	assert.Greater(t, st.TotalReused, 0, "retired children come back out of the pool")
	assert.LessOrEqual(t, st.Active, 2)
}

func TestRejectPolicyAbortsBurst(t *testing.T) {
	f := newFixture(t)
	cfg := baseConfig()
	cfg.CountPerInterval = 3
	cfg.MaxActiveChildren = 2
	cfg.LimitPolicy = spawn.LimitReject

	sp := spawn.New(f.owner, cfg, f.deps)
	sp.Enable()
	sp.Burst()

	assert.Equal(t, 2, sp.TrackedCount(), "burst aborts once the limit is hit")
}

func TestActivationGuardDestroysFreshAndContinues(t *testing.T) {
	f := newFixture(t)
	cfg := baseConfig()
	cfg.CountPerInterval = 3
	cfg.Attach = []spawn.Attachment{{Name: "Veto"}}

	sp := spawn.New(f.owner, cfg, f.deps)
	sp.Enable()
	require.NotPanics(t, func() { sp.Burst() })

	assert.Equal(t, 0, sp.TrackedCount(), "vetoed entities are never tracked")
	assert.Empty(t, f.world.Children(f.owner))

	// The vetoed shells are queued for destruction, not leaked.
	f.world.FlushDestroyQueue()
}

func TestBurstLimitDisables(t *testing.T) {
	f := newFixture(t)
	cfg := baseConfig()
	cfg.BurstLimit = 2

	sp := spawn.New(f.owner, cfg, f.deps)
	sp.Enable()

	sp.Burst()
	assert.Equal(t, spawn.PhaseWaiting, sp.Phase())
	sp.Burst()
	assert.Equal(t, spawn.PhaseDisabled, sp.Phase())
	assert.Equal(t, 2, sp.BurstsDone())

	before := sp.TrackedCount()
	sp.Burst()
	assert.Equal(t, before, sp.TrackedCount(), "disabled spawner never spawns")
}

func TestTickFiresOnInterval(t *testing.T) {
	f := newFixture(t)
	cfg := baseConfig()
	cfg.Interval = 100 * time.Millisecond

	sp := spawn.New(f.owner, cfg, f.deps)
	sp.Enable()

	sp.Tick(60 * time.Millisecond)
	assert.Equal(t, 0, sp.TrackedCount())

	sp.Tick(60 * time.Millisecond)
	assert.Equal(t, 1, sp.TrackedCount())
}

func TestFireOnce(t *testing.T) {
	f := newFixture(t)
	cfg := baseConfig()
	cfg.Interval = 100 * time.Millisecond

	sp := spawn.New(f.owner, cfg, f.deps)
	sp.FireOnce()

	sp.Tick(200 * time.Millisecond)
	assert.Equal(t, 1, sp.TrackedCount())
	assert.Equal(t, spawn.PhaseDisabled, sp.Phase())
}

func TestStopAllSpawningDisables(t *testing.T) {
	f := newFixture(t)

	sp := spawn.New(f.owner, baseConfig(), f.deps)
	sp.Enable()

	event.Emit(f.deps.Bus, event.StopAllSpawning{})
	f.deps.Bus.SwapBuffers()
	f.deps.Bus.DispatchAll()

	assert.Equal(t, spawn.PhaseDisabled, sp.Phase())
}

func TestOverlapAvoidanceRejectsSlot(t *testing.T) {
	f := newFixture(t)

	// An obstacle sits exactly where the resolver wants to spawn.
	target := geom.Vec2{X: 100, Y: 110}
	f.scene.NewShell(world.ShellParams{
		Pos:      target,
		Collider: &world.Collider{Radius: 2, Mask: world.MaskObstacle},
	})

	cfg := baseConfig()
	cfg.AvoidOverlap = true
	cfg.OverlapRadius = 5
	cfg.Resolver = &fixedResolver{point: spawn.Point{Pos: target, Dir: geom.Vec2{X: 1}}}

	sp := spawn.New(f.owner, cfg, f.deps)
	sp.Enable()
	sp.Burst()

	assert.Equal(t, 0, sp.TrackedCount(), "occupied position rejects the slot")
}

func TestDuplicateAvoidanceRejectsSlot(t *testing.T) {
	f := newFixture(t)

	// A companion instance already lives within the check radius of the owner.
	existing := f.scene.NewShell(world.ShellParams{Pos: geom.Vec2{X: 102, Y: 100}})
	_, err := f.deps.Applier.Attach(existing, "test_shot", nil)
	require.NoError(t, err)

	cfg := baseConfig()
	cfg.AvoidDuplicate = true
	cfg.DuplicateBehavior = "Shot"
	cfg.DuplicateRadius = 10

	sp := spawn.New(f.owner, cfg, f.deps)
	sp.Enable()
	sp.Burst()

	assert.Equal(t, 0, sp.TrackedCount(), "companion nearby rejects the slot")
	assert.Empty(t, f.world.Children(f.owner))
}

func TestDuplicateAvoidanceSkipsUnresolvableCompanion(t *testing.T) {
	f := newFixture(t)

	cfg := baseConfig()
	cfg.AvoidDuplicate = true
	cfg.DuplicateBehavior = "Ghost"
	cfg.DuplicateRadius = 10

	sp := spawn.New(f.owner, cfg, f.deps)
	sp.Enable()
	sp.Burst()

	assert.Equal(t, 1, sp.TrackedCount(), "unknown companion name disables the check")
}

func TestInheritDirectionPlaceholder(t *testing.T) {
	f := newFixture(t)

	dir := geom.Vec2{X: 0, Y: 1}
	cfg := baseConfig()
	cfg.Resolver = &fixedResolver{point: spawn.Point{Pos: geom.Vec2{X: 100, Y: 100}, Dir: dir}}
	cfg.InheritDirection = spawn.InheritVector
	cfg.Attach = []spawn.Attachment{{
		Name:    "Shot",
		Overlay: map[string]settings.Value{"damage": settings.String("inherit")},
	}}

	sp := spawn.New(f.owner, cfg, f.deps)
	sp.Enable()
	sp.Burst()

	require.Equal(t, 1, sp.TrackedCount())
	child := f.world.Children(f.owner)[0]
	inst := f.deps.Applier.Find(child, "test_shot")
	require.NotNil(t, inst)
	// The placeholder key became a vector and fails float coercion, so it
	// is skipped; the untouched catalog key still applies.
	assert.Equal(t, 1.0, inst.(*shotBehavior).Damage)
}

func TestEnableRebuildsTrackedFromScene(t *testing.T) {
	f := newFixture(t)

	sp := spawn.New(f.owner, baseConfig(), f.deps)
	sp.Enable()
	sp.Burst()
	require.Equal(t, 1, sp.TrackedCount())

	// Re-enabling picks up the still-live child from the hierarchy.
	sp.Enable()
	assert.Equal(t, 1, sp.TrackedCount())
}
