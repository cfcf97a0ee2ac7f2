package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mechanica/engine/internal/catalog"
	"github.com/mechanica/engine/internal/settings"
)

func TestResolveCaseInsensitive(t *testing.T) {
	cat := catalog.New([]catalog.Descriptor{
		{Name: "Projectile", ImplementationID: "projectile_emitter"},
	})

	for _, name := range []string{"Projectile", "projectile", "PROJECTILE"} {
		impl, ok := cat.Resolve(name)
		require.True(t, ok, "name %q should resolve", name)
		assert.Equal(t, "projectile_emitter", impl)
	}

	_, ok := cat.Resolve("Unknown")
	assert.False(t, ok)
}

func TestGetPropertiesAbsentArrays(t *testing.T) {
	cat := catalog.New([]catalog.Descriptor{
		{Name: "Bare", ImplementationID: "projectile_emitter"},
	})

	assert.Empty(t, cat.GetProperties("Bare", settings.Properties))
	assert.Empty(t, cat.GetProperties("Nope", settings.Overrides))
}

func TestIncompatibleWithFolded(t *testing.T) {
	cat := catalog.New([]catalog.Descriptor{
		{Name: "Beam", IncompatibleWith: []string{"Orbit", "Aura"}},
	})

	set := cat.IncompatibleWith("beam")
	_, ok := set[cat.FoldName("ORBIT")]
	assert.True(t, ok)
	_, ok = set[cat.FoldName("aura")]
	assert.True(t, ok)
	assert.Len(t, set, 2)
}

func TestFingerprintChangesWithContent(t *testing.T) {
	a := catalog.New([]catalog.Descriptor{
		{Name: "Projectile", Properties: map[string]settings.Value{"Damage": settings.Int(1)}},
	})
	b := catalog.New([]catalog.Descriptor{
		{Name: "Projectile", Properties: map[string]settings.Value{"Damage": settings.Int(2)}},
	})
	same := catalog.New([]catalog.Descriptor{
		{Name: "Projectile", Properties: map[string]settings.Value{"Damage": settings.Int(1)}},
	})

	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, a.Fingerprint(), same.Fingerprint())
}

func TestReplaceAllSwapsGeneration(t *testing.T) {
	cat := catalog.New([]catalog.Descriptor{
		{Name: "Projectile", ImplementationID: "projectile_emitter"},
	})
	before := cat.Fingerprint()

	cat.ReplaceAll([]catalog.Descriptor{
		{Name: "Beam", ImplementationID: "projectile_emitter"},
	})

	_, ok := cat.Resolve("Projectile")
	assert.False(t, ok, "old entries gone after replace")
	_, ok = cat.Resolve("beam")
	assert.True(t, ok)
	assert.Equal(t, 1, cat.Count())
	assert.NotEqual(t, before, cat.Fingerprint())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mechanic_list.yaml")
	data := `mechanics:
  - name: Projectile
    impl: projectile_emitter
    category: attack
    properties:
      Damage: 1
    overrides:
      DestroyOnHit: true
    incompatible_with:
      - Orbit
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cat, err := catalog.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Count())

	impl, ok := cat.Resolve("projectile")
	require.True(t, ok)
	assert.Equal(t, "projectile_emitter", impl)
	assert.Equal(t, "attack", cat.Category("Projectile"))

	props := cat.GetProperties("Projectile", settings.Properties)
	n, _ := props["Damage"].AsInt()
	assert.Equal(t, int64(1), n)
}

func TestLoadFileRejectsUnsupportedValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	data := `mechanics:
  - name: Broken
    properties:
      Nested:
        x: 1
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	_, err := catalog.LoadFile(path)
	assert.Error(t, err)
}
