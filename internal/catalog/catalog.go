package catalog

import (
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/cases"

	"github.com/mechanica/engine/internal/settings"
)

// Descriptor holds the static definition of one behavior, loaded once per
// catalog generation and immutable afterwards.
type Descriptor struct {
	Name              string
	ImplementationID  string
	Category          string
	Properties        map[string]settings.Value
	Overrides         map[string]settings.Value
	ModifierOverrides map[string]settings.Value
	IncompatibleWith  []string
}

// Catalog resolves behavior names (case-insensitively) to descriptors.
// An unresolved name is a soft failure: callers log and continue.
type Catalog struct {
	byName      map[string]*Descriptor // key: folded name
	ordered     []*Descriptor          // load order, for deterministic fingerprint
	fold        cases.Caser
	fingerprint string
}

// New builds a catalog from descriptors. Later duplicates of a folded name
// replace earlier ones.
func New(descriptors []Descriptor) *Catalog {
	c := &Catalog{
		byName: make(map[string]*Descriptor, len(descriptors)),
		fold:   cases.Fold(),
	}
	for i := range descriptors {
		d := &descriptors[i]
		c.byName[c.fold.String(d.Name)] = d
		c.ordered = append(c.ordered, d)
	}
	c.fingerprint = c.computeFingerprint()
	return c
}

// ReplaceAll swaps in a new descriptor set in place, so every holder of the
// catalog pointer observes the new generation. The fingerprint changes with
// the content; settings caches invalidate on the next lookup.
func (c *Catalog) ReplaceAll(descriptors []Descriptor) {
	c.byName = make(map[string]*Descriptor, len(descriptors))
	c.ordered = c.ordered[:0]
	for i := range descriptors {
		d := &descriptors[i]
		c.byName[c.fold.String(d.Name)] = d
		c.ordered = append(c.ordered, d)
	}
	c.fingerprint = c.computeFingerprint()
}

// Resolve maps a behavior name to its implementation identifier.
func (c *Catalog) Resolve(name string) (string, bool) {
	d, ok := c.byName[c.fold.String(name)]
	if !ok || d.ImplementationID == "" {
		return "", false
	}
	return d.ImplementationID, true
}

// Get returns the full descriptor for a name, or nil.
func (c *Catalog) Get(name string) *Descriptor {
	return c.byName[c.fold.String(name)]
}

// GetProperties returns one of the descriptor's key/value arrays. Unknown
// names and absent arrays yield an empty map. The returned map is owned by
// the catalog and must not be mutated.
func (c *Catalog) GetProperties(name string, kind settings.ArrayKind) map[string]settings.Value {
	d, ok := c.byName[c.fold.String(name)]
	if !ok {
		return map[string]settings.Value{}
	}
	var m map[string]settings.Value
	switch kind {
	case settings.Properties:
		m = d.Properties
	case settings.Overrides:
		m = d.Overrides
	case settings.ModifierOverrides:
		m = d.ModifierOverrides
	}
	if m == nil {
		return map[string]settings.Value{}
	}
	return m
}

// IncompatibleWith returns the set of folded behavior names the descriptor
// declares incompatible. Empty set for unknown names.
func (c *Catalog) IncompatibleWith(name string) map[string]struct{} {
	out := make(map[string]struct{})
	d, ok := c.byName[c.fold.String(name)]
	if !ok {
		return out
	}
	for _, n := range d.IncompatibleWith {
		out[c.fold.String(n)] = struct{}{}
	}
	return out
}

// Category returns the descriptor's category, empty for unknown names.
func (c *Catalog) Category(name string) string {
	if d, ok := c.byName[c.fold.String(name)]; ok {
		return d.Category
	}
	return ""
}

// FoldName returns the catalog's canonical (case-folded) form of a name.
func (c *Catalog) FoldName(name string) string {
	return c.fold.String(name)
}

// Count returns the number of loaded descriptors.
func (c *Catalog) Count() int {
	return len(c.byName)
}

// Fingerprint identifies this catalog generation. Settings caches compare
// fingerprints to detect a reload and invalidate wholesale.
func (c *Catalog) Fingerprint() string {
	return c.fingerprint
}

func (c *Catalog) computeFingerprint() string {
	h, _ := blake2b.New256(nil)
	names := make([]string, 0, len(c.byName))
	for n := range c.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		d := c.byName[n]
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00", n, d.ImplementationID, d.Category)
		writeSortedPairs(h, d.Properties)
		writeSortedPairs(h, d.Overrides)
		writeSortedPairs(h, d.ModifierOverrides)
		incompat := append([]string(nil), d.IncompatibleWith...)
		sort.Strings(incompat)
		for _, in := range incompat {
			fmt.Fprintf(h, "%s\x00", in)
		}
		fmt.Fprint(h, "\x01")
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

func writeSortedPairs(h interface{ Write([]byte) (int, error) }, m map[string]settings.Value) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%s\x00", k, m[k].String())
	}
	fmt.Fprint(h, "\x02")
}
