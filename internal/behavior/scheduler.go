package behavior

import (
	"time"

	"go.uber.org/zap"

	"github.com/mechanica/engine/internal/core/ecs"
	"github.com/mechanica/engine/internal/world"
)

type schedEntry struct {
	entity ecs.EntityID
	inst   Instance
}

// Scheduler collects live behavior instances under a generated root and
// advances each once per simulation frame. No ordering is guaranteed between
// independently registered instances beyond "once per frame, each".
type Scheduler struct {
	world   *ecs.World
	scene   *world.State
	applier *Applier
	log     *zap.Logger
	entries []schedEntry
	seen    map[Instance]struct{}
}

func NewScheduler(w *ecs.World, scene *world.State, applier *Applier, log *zap.Logger) *Scheduler {
	return &Scheduler{
		world:   w,
		scene:   scene,
		applier: applier,
		log:     log,
		seen:    make(map[Instance]struct{}, 32),
	}
}

// RegisterSubtree walks the subtree once and records every attached behavior
// instance. Instances already registered (across repeated calls) are skipped.
func (s *Scheduler) RegisterSubtree(root ecs.EntityID) {
	s.world.WalkSubtree(root, func(e ecs.EntityID) {
		for _, inst := range s.applier.Instances(e) {
			if _, dup := s.seen[inst]; dup {
				continue
			}
			s.seen[inst] = struct{}{}
			s.entries = append(s.entries, schedEntry{entity: e, inst: inst})
		}
	})
}

// Register records a single entity's instances without walking children.
func (s *Scheduler) Register(e ecs.EntityID) {
	for _, inst := range s.applier.Instances(e) {
		if _, dup := s.seen[inst]; dup {
			continue
		}
		s.seen[inst] = struct{}{}
		s.entries = append(s.entries, schedEntry{entity: e, inst: inst})
	}
}

// Tick advances every registered instance once and prunes entries whose
// owning entity has been destroyed. Pooled (retired) entities are skipped
// but kept: their instances resume when the entity is reused.
func (s *Scheduler) Tick(dt time.Duration) {
	kept := s.entries[:0]
	for _, e := range s.entries {
		if !s.world.Alive(e.entity) {
			delete(s.seen, e.inst)
			continue
		}
		kept = append(kept, e)
		if !s.world.Active(e.entity) {
			continue
		}
		ctx := &Context{World: s.world, Scene: s.scene, Entity: e.entity, Log: s.log}
		e.inst.Tick(ctx, dt)
	}
	s.entries = kept
}

// Len returns the number of registered instances.
func (s *Scheduler) Len() int {
	return len(s.entries)
}
