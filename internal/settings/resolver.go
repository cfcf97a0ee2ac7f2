package settings

import (
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// ArrayKind selects which of a descriptor's key/value arrays to read.
type ArrayKind int

const (
	Properties ArrayKind = iota
	Overrides
	ModifierOverrides
)

// Source is the catalog surface the resolver consumes. GetProperties returns
// an empty map for unknown names; Fingerprint changes whenever the catalog
// generation changes.
type Source interface {
	GetProperties(name string, kind ArrayKind) map[string]Value
	Fingerprint() string
}

// Resolver produces the merged settings map for a behavior name and caches
// the result per name. The cache is read-mostly, single-threaded, and
// invalidated explicitly — either per name, wholesale, or implicitly when
// the catalog fingerprint changes between calls.
type Resolver struct {
	src         Source
	log         *zap.Logger
	fold        cases.Caser
	cache       map[string]map[string]Value
	fingerprint string
}

func NewResolver(src Source, log *zap.Logger) *Resolver {
	return &Resolver{
		src:         src,
		log:         log,
		fold:        cases.Fold(),
		cache:       make(map[string]map[string]Value, 32),
		fingerprint: src.Fingerprint(),
	}
}

// Merged returns the final catalog-side settings map for a behavior:
// Properties overlaid by Overrides overlaid by ModifierOverrides, with
// camelCase aliases synthesized for PascalCase keys and behavior-agnostic
// normalization applied. The returned map is the cached instance — callers
// overlay per-call values onto a copy, never onto this map.
func (r *Resolver) Merged(name string) map[string]Value {
	if fp := r.src.Fingerprint(); fp != r.fingerprint {
		r.InvalidateAll()
		r.fingerprint = fp
	}

	key := r.fold.String(name)
	if cached, ok := r.cache[key]; ok {
		return cached
	}

	merged := make(map[string]Value, 16)
	for _, kind := range []ArrayKind{Properties, Overrides, ModifierOverrides} {
		for k, v := range r.src.GetProperties(name, kind) {
			merged[k] = v
		}
	}

	synthesizeAliases(merged)
	r.normalize(name, merged)

	r.cache[key] = merged
	return merged
}

// Invalidate drops the cached map for one behavior name.
func (r *Resolver) Invalidate(name string) {
	delete(r.cache, r.fold.String(name))
}

// InvalidateAll drops every cached map. Used on catalog reload.
func (r *Resolver) InvalidateAll() {
	r.cache = make(map[string]map[string]Value, len(r.cache))
}

// synthesizeAliases adds a camelCase alias for every PascalCase key unless
// that alias already exists, so downstream lookups tolerate either style.
func synthesizeAliases(m map[string]Value) {
	for k, v := range m {
		alias := camelCase(k)
		if alias == k {
			continue
		}
		if _, exists := m[alias]; !exists {
			m[alias] = v
		}
	}
}

// camelCase folds the leading uppercase run, so "Damage" becomes "damage"
// and "ID" becomes "id". When the run is followed by a lowercase letter the
// last upper starts the next word: "HPDrain" becomes "hpDrain".
func camelCase(k string) string {
	runes := []rune(k)
	if len(runes) == 0 || !unicode.IsUpper(runes[0]) {
		return k
	}
	upper := 1
	for upper < len(runes) && unicode.IsUpper(runes[upper]) {
		upper++
	}
	if upper > 1 && upper < len(runes) && unicode.IsLower(runes[upper]) {
		upper--
	}
	for i := 0; i < upper; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// normalize resolves symbolic tokens into concrete values:
//   - a direction token ("left", "up", ...) becomes a unit vector;
//   - a rotation token ("clockwise" / "counterclockwise") flips the sign of
//     the angular-speed value and is removed once applied.
func (r *Resolver) normalize(name string, m map[string]Value) {
	for k, v := range m {
		if !strings.EqualFold(k, "direction") {
			continue
		}
		if s, ok := v.AsString(); ok {
			if coerced, err := Coerce(String(s), FieldSpec{Type: KindVector}); err == nil {
				m[k] = coerced
			} else {
				r.log.Warn("unresolvable direction token",
					zap.String("behavior", name), zap.String("token", s))
			}
		}
	}

	var rotationKeys []string
	clockwise := false
	for k, v := range m {
		if !strings.EqualFold(k, "rotation") {
			continue
		}
		s, ok := v.AsString()
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "clockwise":
			clockwise = true
			rotationKeys = append(rotationKeys, k)
		case "counterclockwise":
			rotationKeys = append(rotationKeys, k)
		default:
			r.log.Warn("unknown rotation token",
				zap.String("behavior", name), zap.String("token", s))
		}
	}
	if len(rotationKeys) == 0 {
		return
	}
	if clockwise {
		for k, v := range m {
			if !strings.EqualFold(k, "angularspeed") {
				continue
			}
			if coerced, err := Coerce(v, FieldSpec{Type: KindFloat}); err == nil {
				f, _ := coerced.AsFloat()
				m[k] = Float(-f)
			}
		}
	}
	for _, k := range rotationKeys {
		delete(m, k) // token is redundant once the sign is applied
	}
}

// Clone copies a settings map so call-time overlays never touch the cache.
func Clone(m map[string]Value) map[string]Value {
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Overlay writes every entry of over into base (highest precedence wins).
func Overlay(base, over map[string]Value) {
	for k, v := range over {
		base[k] = v
	}
}

// Lookup finds a key case-insensitively: exact match first, then a fold scan.
func Lookup(m map[string]Value, key string) (Value, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return Value{}, false
}
