package behavior_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mechanica/engine/internal/behavior"
	"github.com/mechanica/engine/internal/core/ecs"
	"github.com/mechanica/engine/internal/settings"
)

type counter struct {
	Value   float64
	applied map[string]int
}

func newCounter() *counter {
	return &counter{applied: make(map[string]int)}
}

func (c *counter) ImplID() string                        { return "test_counter" }
func (c *counter) Tick(*behavior.Context, time.Duration) {}

func (c *counter) ApplySetting(key string, v settings.Value) bool {
	c.applied[key]++
	if f, ok := v.AsFloat(); ok {
		c.Value = f
		return true
	}
	return false
}

func testApplier(t *testing.T) (*behavior.Applier, *ecs.World) {
	t.Helper()
	w := ecs.NewWorld()
	reg := behavior.NewRegistry()
	reg.Register("test_counter", behavior.Def{
		New:    func() behavior.Instance { return newCounter() },
		Fields: map[string]settings.FieldSpec{"Value": {Type: settings.KindFloat}},
	})
	reg.Register("test_bulk", behavior.Def{
		New: func() behavior.Instance { return newCounter() },
		ApplyAll: func(inst behavior.Instance, s map[string]settings.Value) error {
			c := inst.(*counter)
			if v, ok := settings.Lookup(s, "value"); ok {
				c.Value, _ = v.AsFloat()
			}
			return nil
		},
	})
	return behavior.NewApplier(w, reg, zap.NewNop()), w
}

func TestAttachUnknownImplErrors(t *testing.T) {
	a, w := testApplier(t)
	id := w.CreateEntity()

	_, err := a.Attach(id, "no_such_impl", nil)
	assert.Error(t, err)
}

func TestAttachIdempotent(t *testing.T) {
	a, w := testApplier(t)
	id := w.CreateEntity()

	first, err := a.Attach(id, "test_counter", map[string]settings.Value{
		"Value": settings.Float(1),
	})
	require.NoError(t, err)

	second, err := a.Attach(id, "test_counter", map[string]settings.Value{
		"Value": settings.Float(2),
	})
	require.NoError(t, err)

	assert.Same(t, first, second, "re-attach reuses the existing instance")
	assert.Len(t, a.Instances(id), 1)
	assert.Equal(t, 2.0, second.(*counter).Value, "settings reapplied on re-attach")
}

func TestUnmatchedKeyDropped(t *testing.T) {
	a, w := testApplier(t)
	id := w.CreateEntity()

	inst, err := a.Attach(id, "test_counter", map[string]settings.Value{
		"Value":   settings.Float(3),
		"Unknown": settings.Float(9),
	})
	require.NoError(t, err)

	c := inst.(*counter)
	assert.Equal(t, 3.0, c.Value)
	assert.Zero(t, c.applied["Unknown"], "keys without a field spec never reach the instance")
}

func TestCoercionFailureSkipsKeyOnly(t *testing.T) {
	a, w := testApplier(t)
	id := w.CreateEntity()

	inst, err := a.Attach(id, "test_counter", map[string]settings.Value{
		"Value": settings.String("not-a-number"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, inst.(*counter).Value)

	// A later good value still applies.
	_, err = a.Attach(id, "test_counter", map[string]settings.Value{
		"Value": settings.String("4.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, 4.5, inst.(*counter).Value)
}

func TestFieldLookupCaseInsensitive(t *testing.T) {
	a, w := testApplier(t)
	id := w.CreateEntity()

	inst, err := a.Attach(id, "test_counter", map[string]settings.Value{
		"value": settings.Float(7),
	})
	require.NoError(t, err)
	assert.Equal(t, 7.0, inst.(*counter).Value)
}

func TestBulkApplyHook(t *testing.T) {
	a, w := testApplier(t)
	id := w.CreateEntity()

	inst, err := a.Attach(id, "test_bulk", map[string]settings.Value{
		"Value": settings.Float(11),
	})
	require.NoError(t, err)

	c := inst.(*counter)
	assert.Equal(t, 11.0, c.Value)
	assert.Empty(t, c.applied, "bulk hook replaces per-key assignment")
}

type clampHook struct{}

func (clampHook) PreprocessSettings(implID string, s map[string]settings.Value) (map[string]settings.Value, bool) {
	if implID != "test_counter" {
		return nil, false
	}
	out := make(map[string]settings.Value, len(s))
	for k, v := range s {
		if f, ok := v.AsFloat(); ok && f > 100 {
			v = settings.Float(100)
		}
		out[k] = v
	}
	return out, true
}

func TestSettingsHookPreprocesses(t *testing.T) {
	a, w := testApplier(t)
	a.SetSettingsHook(clampHook{})
	id := w.CreateEntity()

	inst, err := a.Attach(id, "test_counter", map[string]settings.Value{
		"Value": settings.Float(500),
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, inst.(*counter).Value, "hook output replaces the input map")

	other := w.CreateEntity()
	bulk, err := a.Attach(other, "test_bulk", map[string]settings.Value{
		"Value": settings.Float(500),
	})
	require.NoError(t, err)
	assert.Equal(t, 500.0, bulk.(*counter).Value, "hook declines implIDs it does not know")
}

func TestCapabilityQueries(t *testing.T) {
	a, w := testApplier(t)
	id := w.CreateEntity()

	_, err := a.Attach(id, "test_counter", nil)
	require.NoError(t, err)

	assert.Empty(t, a.Guards(id), "counter declares no activation guard")
	assert.Empty(t, a.Resettables(id))
	assert.NotNil(t, a.Find(id, "test_counter"))
	assert.Nil(t, a.Find(id, "test_bulk"))
}
