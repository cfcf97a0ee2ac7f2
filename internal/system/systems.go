// Package system holds the per-tick simulation systems, executed in phase
// order by the core runner.
package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/mechanica/engine/internal/behavior"
	"github.com/mechanica/engine/internal/core/ecs"
	"github.com/mechanica/engine/internal/core/event"
	coresys "github.com/mechanica/engine/internal/core/system"
	"github.com/mechanica/engine/internal/spawn"
	"github.com/mechanica/engine/internal/world"
)

// EventsSystem rotates the bus at tick start and dispatches last tick's
// events to their handlers.
type EventsSystem struct {
	bus *event.Bus
}

func NewEventsSystem(bus *event.Bus) *EventsSystem {
	return &EventsSystem{bus: bus}
}

func (s *EventsSystem) Phase() coresys.Phase { return coresys.PhaseEvents }

func (s *EventsSystem) Update(time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}

// SpawnSystem advances every registered spawner's timer.
type SpawnSystem struct {
	spawners []*spawn.Spawner
}

func NewSpawnSystem() *SpawnSystem {
	return &SpawnSystem{}
}

// Add registers a spawner for per-tick advancement.
func (s *SpawnSystem) Add(sp *spawn.Spawner) {
	s.spawners = append(s.spawners, sp)
}

func (s *SpawnSystem) Phase() coresys.Phase { return coresys.PhaseSpawn }

func (s *SpawnSystem) Update(dt time.Duration) {
	for _, sp := range s.spawners {
		sp.Tick(dt)
	}
}

// BehaviorSystem advances every scheduled behavior instance once per tick.
type BehaviorSystem struct {
	sched *behavior.Scheduler
}

func NewBehaviorSystem(sched *behavior.Scheduler) *BehaviorSystem {
	return &BehaviorSystem{sched: sched}
}

func (s *BehaviorSystem) Phase() coresys.Phase { return coresys.PhaseBehavior }

func (s *BehaviorSystem) Update(dt time.Duration) {
	s.sched.Tick(dt)
}

// MotionSystem integrates dynamic body velocities and keeps the spatial grid
// in sync. Kinematic bodies are moved only by their behaviors.
type MotionSystem struct {
	world *ecs.World
	scene *world.State
}

func NewMotionSystem(w *ecs.World, scene *world.State) *MotionSystem {
	return &MotionSystem{world: w, scene: scene}
}

func (s *MotionSystem) Phase() coresys.Phase { return coresys.PhaseMotion }

func (s *MotionSystem) Update(dt time.Duration) {
	secs := dt.Seconds()
	ecs.Each2(s.scene.Bodies, s.scene.Transforms, func(id ecs.EntityID, b *world.PhysicsBody, tr *world.Transform) {
		if b.Kinematic || b.Velocity.IsZero() || !s.world.Active(id) {
			return
		}
		s.scene.SetPosition(id, tr.Pos.Add(b.Velocity.Scale(secs)))
	})
}

// CleanupSystem flushes the deferred destroy queue at tick end.
type CleanupSystem struct {
	world *ecs.World
	log   *zap.Logger
}

func NewCleanupSystem(w *ecs.World, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{world: w, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(time.Duration) {
	s.world.FlushDestroyQueue()
}
