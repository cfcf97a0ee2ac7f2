package persist

import (
	"context"
	"fmt"

	"github.com/mechanica/engine/internal/catalog"
	"github.com/mechanica/engine/internal/settings"
)

// CatalogRepo loads behavior descriptors from the mechanics table.
type CatalogRepo struct {
	db *DB
}

func NewCatalogRepo(db *DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

// LoadAll returns every descriptor, in primary-key order so the catalog
// fingerprint is stable across loads.
func (r *CatalogRepo) LoadAll(ctx context.Context) ([]catalog.Descriptor, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT mechanic_name, mechanic_path, category,
		        properties, overrides, mechanic_overrides, incompatible_with
		 FROM mechanics ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []catalog.Descriptor
	for rows.Next() {
		var (
			d           catalog.Descriptor
			props       map[string]any
			overrides   map[string]any
			modOverride map[string]any
		)
		if err := rows.Scan(
			&d.Name, &d.ImplementationID, &d.Category,
			&props, &overrides, &modOverride, &d.IncompatibleWith,
		); err != nil {
			return nil, err
		}
		if d.Properties, err = toValues(d.Name, "properties", props); err != nil {
			return nil, err
		}
		if d.Overrides, err = toValues(d.Name, "overrides", overrides); err != nil {
			return nil, err
		}
		if d.ModifierOverrides, err = toValues(d.Name, "mechanic_overrides", modOverride); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// toValues converts a decoded JSONB object into a settings map. Non-scalar
// values are a load-time configuration error, not a soft failure.
func toValues(name, field string, raw map[string]any) (map[string]settings.Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]settings.Value, len(raw))
	for k, v := range raw {
		val, ok := settings.FromAny(v)
		if !ok {
			return nil, fmt.Errorf("mechanic %q: %s key %q has unsupported value %T", name, field, k, v)
		}
		out[k] = val
	}
	return out, nil
}
