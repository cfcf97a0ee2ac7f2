package event

import "github.com/mechanica/engine/internal/core/ecs"

// StopAllSpawning is the global broadcast that disables every spawner.
// Already-tracked entities are unaffected.
type StopAllSpawning struct{}

// CatalogReloaded announces a new catalog generation. Settings caches keyed
// on the old fingerprint must invalidate wholesale.
type CatalogReloaded struct {
	Fingerprint string
}

// EntitySpawned is emitted for each successfully built or reused entity.
type EntitySpawned struct {
	Entity ecs.EntityID
	Owner  ecs.EntityID
	Key    string
	Reused bool
}

// EntityRecycled is emitted when a spawner retires an entity into its pool.
type EntityRecycled struct {
	Entity ecs.EntityID
	Key    string
}
