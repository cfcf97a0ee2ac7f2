package compose_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mechanica/engine/internal/behavior"
	"github.com/mechanica/engine/internal/catalog"
	"github.com/mechanica/engine/internal/compose"
	"github.com/mechanica/engine/internal/core/ecs"
	"github.com/mechanica/engine/internal/fit"
	"github.com/mechanica/engine/internal/settings"
	"github.com/mechanica/engine/internal/world"
)

type stub struct {
	Speed float64
}

func (s *stub) ImplID() string                        { return "test_stub" }
func (s *stub) Tick(*behavior.Context, time.Duration) {}

func (s *stub) ApplySetting(key string, v settings.Value) bool {
	if f, ok := v.AsFloat(); ok {
		s.Speed = f
		return true
	}
	return false
}

type modStub struct{}

func (m *modStub) ImplID() string                        { return "test_mod" }
func (m *modStub) Tick(*behavior.Context, time.Duration) {}

type fixture struct {
	world   *ecs.World
	scene   *world.State
	applier *behavior.Applier
	orch    *compose.Orchestrator
	sched   *behavior.Scheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()

	w := ecs.NewWorld()
	scene := world.NewState(w)

	cat := catalog.New([]catalog.Descriptor{
		{Name: "Stub", ImplementationID: "test_stub", Properties: map[string]settings.Value{
			"Speed": settings.Float(10),
		}, IncompatibleWith: []string{"Hostile"}},
		{Name: "Mod", ImplementationID: "test_mod"},
		{Name: "Hostile", ImplementationID: "test_mod"},
	})

	reg := behavior.NewRegistry()
	reg.Register("test_stub", behavior.Def{
		New:    func() behavior.Instance { return &stub{} },
		Fields: map[string]settings.FieldSpec{"Speed": {Type: settings.KindFloat}},
	})
	reg.Register("test_mod", behavior.Def{
		New: func() behavior.Instance { return &modStub{} },
	})

	applier := behavior.NewApplier(w, reg, log)
	sched := behavior.NewScheduler(w, scene, applier, log)

	builders := compose.NewBuilders()
	builders.Register("test_stub", func(ctx *compose.BuildContext, root ecs.EntityID, primary string, params *compose.Params) []ecs.EntityID {
		count := params.Count
		if count <= 0 {
			count = 1
		}
		final := settings.Clone(ctx.Settings.Merged(primary))
		settings.Overlay(final, params.Overrides)
		subs := make([]ecs.EntityID, 0, count)
		for i := 0; i < count; i++ {
			sub := ctx.Scene.NewShell(world.ShellParams{Pos: params.Origin})
			ctx.World.SetParent(sub, root)
			_, err := ctx.Applier.Attach(sub, "test_stub", final)
			require.NoError(t, err)
			subs = append(subs, sub)
		}
		return subs
	})

	orch := compose.NewOrchestrator(
		w, scene, cat,
		settings.NewResolver(cat, log),
		applier,
		fit.NewEvaluator(cat, log),
		sched, builders, nil, log,
	)
	return &fixture{world: w, scene: scene, applier: applier, orch: orch, sched: sched}
}

func TestCreateBuildsSubEntities(t *testing.T) {
	f := newFixture(t)

	root := f.orch.Create(compose.Instruction{Primary: "Stub"}, &compose.Params{Count: 3})
	require.False(t, root.IsZero())

	subs := f.world.Children(root)
	require.Len(t, subs, 3)
	for _, sub := range subs {
		inst := f.applier.Find(sub, "test_stub")
		require.NotNil(t, inst)
		assert.Equal(t, 10.0, inst.(*stub).Speed, "catalog properties reach the instance")
	}
	assert.Equal(t, 3, f.sched.Len(), "subtree registered with the scheduler")
}

func TestCreateUnresolvedPrimarySoftFails(t *testing.T) {
	f := newFixture(t)

	root := f.orch.Create(compose.Instruction{Primary: "Nope"}, &compose.Params{})
	require.False(t, root.IsZero(), "soft failure still returns a root")
	assert.Empty(t, f.world.Children(root))
}

func TestCreateAppliesModifiersToEverySub(t *testing.T) {
	f := newFixture(t)

	instr := compose.Instruction{Primary: "Stub"}
	instr.AddSecondary("Mod")

	root := f.orch.Create(instr, &compose.Params{Count: 2})
	for _, sub := range f.world.Children(root) {
		assert.NotNil(t, f.applier.Find(sub, "test_mod"))
	}
}

func TestCreateCallTimeOverrides(t *testing.T) {
	f := newFixture(t)

	root := f.orch.Create(compose.Instruction{Primary: "Stub"}, &compose.Params{
		Count:     1,
		Overrides: map[string]settings.Value{"Speed": settings.Float(99)},
	})
	sub := f.world.Children(root)[0]
	assert.Equal(t, 99.0, f.applier.Find(sub, "test_stub").(*stub).Speed)
}

func TestBlockedModifierSkipped(t *testing.T) {
	f := newFixture(t)

	// A missing modifier name is Blocked outright.
	instr := compose.Instruction{Primary: "Stub"}
	instr.AddSecondary("")

	root := f.orch.Create(instr, &compose.Params{Count: 1})
	sub := f.world.Children(root)[0]
	assert.Nil(t, f.applier.Find(sub, "test_mod"))
}

func TestCautionModifierStillApplies(t *testing.T) {
	f := newFixture(t)

	// Stub declares Hostile incompatible; the pairing is Caution, which
	// applies with a diagnostic rather than being skipped.
	instr := compose.Instruction{Primary: "Stub"}
	instr.AddSecondary("Hostile")

	root := f.orch.Create(instr, &compose.Params{Count: 1})
	sub := f.world.Children(root)[0]
	assert.NotNil(t, f.applier.Find(sub, "test_mod"))
}
