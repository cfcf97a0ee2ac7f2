// Package spawn implements the per-owner interval spawner: a timer-driven
// state machine that produces bursts of entities, reusing pooled instances
// before constructing fresh shells, subject to active-count limits, overlap
// and duplicate avoidance, and activation guards.
package spawn

import (
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mechanica/engine/internal/behavior"
	"github.com/mechanica/engine/internal/catalog"
	"github.com/mechanica/engine/internal/core/ecs"
	"github.com/mechanica/engine/internal/core/event"
	"github.com/mechanica/engine/internal/geom"
	"github.com/mechanica/engine/internal/pool"
	"github.com/mechanica/engine/internal/settings"
	"github.com/mechanica/engine/internal/world"
)

// Phase is the spawner's lifecycle state. Bursting is transient inside
// Update and never observable between ticks.
type Phase int

const (
	PhaseDisabled Phase = iota
	PhaseWaiting
)

// LimitPolicy decides what happens when the active-count limit is reached.
type LimitPolicy int

const (
	// LimitReject aborts the burst, leaving remaining slots unfilled.
	LimitReject LimitPolicy = iota
	// LimitRecycleOldest retires the oldest tracked child to free a slot.
	LimitRecycleOldest
)

// InheritMode controls how the "inherit" direction placeholder is filled in.
type InheritMode int

const (
	// InheritNone leaves placeholder values untouched.
	InheritNone InheritMode = iota
	// InheritVector substitutes the resolved direction as a vector value.
	InheritVector
	// InheritAngleDeg substitutes the resolved direction as an angle in degrees.
	InheritAngleDeg
)

// inheritToken is the placeholder a catalog entry or call-time overlay uses
// to request the resolver-produced direction.
const inheritToken = "inherit"

// minInterval is the floor applied to the configured interval.
const minInterval = 10 * time.Millisecond

// Attachment names one behavior to attach to every spawned entity, with an
// optional call-time overlay applied on top of its merged catalog settings.
type Attachment struct {
	Name    string
	Overlay map[string]settings.Value
}

// Config is the static configuration of one spawner.
type Config struct {
	// Key is the logical pool key the spawner's entities live under.
	Key string

	// Attach lists the behaviors attached to each spawned entity, primary
	// first, modifiers after, in application order.
	Attach []Attachment

	Interval         time.Duration
	CountPerInterval int

	// MaxActiveChildren caps the tracked-children set; zero means unlimited.
	MaxActiveChildren int
	LimitPolicy       LimitPolicy

	// BurstLimit caps the number of executed bursts; zero means unlimited.
	BurstLimit int

	// ImmediateFirstBurst fires one burst inside Enable before waiting.
	ImmediateFirstBurst bool

	// Recycle releases retired children into the pool instead of destroying.
	Recycle bool

	AvoidOverlap  bool
	OverlapRadius float64
	OverlapMask   uint32

	// AvoidDuplicate rejects a slot when an instance of DuplicateBehavior
	// already exists within DuplicateRadius of the owner.
	AvoidDuplicate    bool
	DuplicateBehavior string
	DuplicateRadius   float64

	InheritDirection InheritMode

	// Resolver is the explicit head of the position-resolver chain; nil
	// falls straight through to the chaos fallback.
	Resolver PositionResolver

	SuppressOwnerCollision bool

	// Shell is the template for freshly constructed entities. Pos and Dir
	// are overwritten per slot by the resolver chain.
	Shell world.ShellParams
}

// Deps bundles the collaborators a spawner drives.
type Deps struct {
	World     *ecs.World
	Scene     *world.State
	Catalog   *catalog.Catalog
	Settings  *settings.Resolver
	Applier   *behavior.Applier
	Pool      *pool.Pool
	Scheduler *behavior.Scheduler
	Bus       *event.Bus
	Log       *zap.Logger
	Rand      *rand.Rand
}

// Spawner is the per-owner interval spawn state machine.
type Spawner struct {
	cfg   Config
	deps  *Deps
	owner ecs.EntityID

	phase      Phase
	elapsed    time.Duration
	burstsDone int

	// tracked holds currently live children in insertion order so the
	// recycle-oldest policy retires the oldest first. Entries are pruned
	// lazily when no longer active.
	tracked []ecs.EntityID
}

// New creates a disabled spawner bound to an owner entity. The spawner
// subscribes to the global stop broadcast.
func New(owner ecs.EntityID, cfg Config, deps *Deps) *Spawner {
	s := &Spawner{
		cfg:   cfg,
		deps:  deps,
		owner: owner,
		phase: PhaseDisabled,
	}
	event.Subscribe(deps.Bus, func(event.StopAllSpawning) {
		s.Disable()
	})
	return s
}

func (s *Spawner) Owner() ecs.EntityID { return s.owner }
func (s *Spawner) Phase() Phase        { return s.phase }
func (s *Spawner) BurstsDone() int     { return s.burstsDone }

// TrackedCount prunes stale entries and returns the live child count.
func (s *Spawner) TrackedCount() int {
	s.prune()
	return len(s.tracked)
}

// Enable arms the spawner: timer reset, burst counter cleared, tracked set
// rebuilt from the current scene hierarchy, and optionally one immediate
// burst fired before entering the waiting state.
func (s *Spawner) Enable() {
	s.phase = PhaseWaiting
	s.elapsed = 0
	s.burstsDone = 0
	s.rebuildTracked()
	if s.cfg.ImmediateFirstBurst {
		s.Burst()
	}
}

// Disable halts spawning. Already-tracked children are unaffected.
func (s *Spawner) Disable() {
	s.phase = PhaseDisabled
}

// rebuildTracked re-derives the tracked set from the owner's current active
// children, preserving attachment order.
func (s *Spawner) rebuildTracked() {
	s.tracked = s.tracked[:0]
	for _, c := range s.deps.World.Children(s.owner) {
		if s.deps.World.Active(c) {
			s.tracked = append(s.tracked, c)
		}
	}
}

// Tick accumulates simulation time and fires a burst when the interval
// elapses. The interval is floored at 10ms so a zero or negative value never
// spins a burst per frame.
func (s *Spawner) Tick(dt time.Duration) {
	if s.phase != PhaseWaiting {
		return
	}
	threshold := s.cfg.Interval
	if threshold < minInterval {
		threshold = minInterval
	}
	s.elapsed += dt
	if s.elapsed >= threshold {
		s.elapsed = 0
		s.Burst()
	}
}

// FireOnce arranges exactly one more burst: the limit is pinned one past the
// executed count, so the next burst runs and then disables the spawner.
func (s *Spawner) FireOnce() {
	s.cfg.BurstLimit = s.burstsDone + 1
	if s.phase == PhaseDisabled {
		s.phase = PhaseWaiting
		s.elapsed = 0
	}
}

// Burst executes one batch of spawn attempts. If the burst limit is already
// reached the spawner disables without spawning.
func (s *Spawner) Burst() {
	if s.phase == PhaseDisabled {
		return
	}
	if s.cfg.BurstLimit > 0 && s.burstsDone >= s.cfg.BurstLimit {
		s.Disable()
		return
	}

	count := s.cfg.CountPerInterval
	if count <= 0 {
		count = 1
	}
	for i := 0; i < count; i++ {
		if abort := s.spawnSlot(i, count); abort {
			break
		}
	}

	s.burstsDone++
	if s.cfg.BurstLimit > 0 && s.burstsDone >= s.cfg.BurstLimit {
		s.Disable()
	}
}

// spawnSlot attempts one spawn. Returns true when the whole burst must abort
// (reject policy with a full tracked set); slot-level rejections return false
// so the loop continues with the next index.
func (s *Spawner) spawnSlot(index, count int) (abort bool) {
	s.prune()
	if s.cfg.MaxActiveChildren > 0 && len(s.tracked) >= s.cfg.MaxActiveChildren {
		if s.cfg.LimitPolicy == LimitReject {
			s.deps.Log.Debug("active limit reached, burst aborted",
				zap.String("key", s.cfg.Key), zap.Int("limit", s.cfg.MaxActiveChildren))
			return true
		}
		s.retireOldest()
	}

	point := resolveChain(s.cfg.Resolver, s.deps.Rand, s.resolveContext(index, count))

	if s.cfg.AvoidOverlap &&
		s.deps.Scene.AnyWithin(point.Pos, s.cfg.OverlapRadius, s.cfg.OverlapMask, s.owner) {
		s.deps.Log.Debug("slot rejected, position occupied",
			zap.String("key", s.cfg.Key), zap.Int("slot", index))
		return false
	}

	if s.cfg.AvoidDuplicate && s.duplicateNearby() {
		s.deps.Log.Debug("slot rejected, duplicate companion nearby",
			zap.String("key", s.cfg.Key), zap.String("companion", s.cfg.DuplicateBehavior))
		return false
	}

	id, reused := s.deps.Pool.Acquire(s.cfg.Key)
	if reused {
		s.deps.Scene.SetPosition(id, point.Pos)
		if tr, ok := s.deps.Scene.Transforms.Get(id); ok {
			tr.Dir = point.Dir
			if !s.cfg.Shell.Scale.IsZero() {
				tr.Scale = s.cfg.Shell.Scale
			}
		}
	} else {
		shell := s.cfg.Shell
		shell.Pos = point.Pos
		shell.Dir = point.Dir
		id = s.deps.Scene.NewShell(shell)
	}

	// Attach (or re-apply to) every configured behavior. An unresolvable
	// name skips that behavior only; the entity still spawns.
	for _, att := range s.cfg.Attach {
		implID, ok := s.deps.Catalog.Resolve(att.Name)
		if !ok {
			s.deps.Log.Warn("behavior name unresolved, attachment skipped",
				zap.String("key", s.cfg.Key), zap.String("behavior", att.Name))
			continue
		}
		final := s.buildSettings(att, point.Dir)
		if _, err := s.deps.Applier.Attach(id, implID, final); err != nil {
			s.deps.Log.Warn("behavior attach failed",
				zap.String("behavior", att.Name), zap.Error(err))
		}
	}

	if !s.guardsReady(id) {
		if reused {
			s.deps.Pool.Release(id)
			event.Emit(s.deps.Bus, event.EntityRecycled{Entity: id, Key: s.cfg.Key})
		} else {
			s.deps.World.MarkForDestruction(id)
		}
		s.deps.Log.Debug("activation guard vetoed spawn",
			zap.String("key", s.cfg.Key), zap.Int("slot", index))
		return false
	}

	if !reused {
		s.deps.Pool.Adopt(id, s.cfg.Key)
	}
	s.deps.World.SetParent(id, s.owner)
	if s.cfg.SuppressOwnerCollision {
		s.deps.Scene.SuppressCollision(id, s.owner)
	}
	s.deps.Scheduler.Register(id)
	s.tracked = append(s.tracked, id)

	event.Emit(s.deps.Bus, event.EntitySpawned{
		Entity: id,
		Owner:  s.owner,
		Key:    s.cfg.Key,
		Reused: reused,
	})
	return false
}

// retireOldest frees one slot: the oldest tracked child is released into the
// pool when recycling is on, destroyed otherwise.
func (s *Spawner) retireOldest() {
	if len(s.tracked) == 0 {
		return
	}
	oldest := s.tracked[0]
	s.tracked = s.tracked[1:]

	if s.cfg.Recycle {
		s.deps.Pool.Release(oldest)
		event.Emit(s.deps.Bus, event.EntityRecycled{Entity: oldest, Key: s.cfg.Key})
		return
	}
	s.deps.Pool.Discard(oldest)
	s.deps.World.MarkForDestruction(oldest)
}

// prune drops tracked entries that are no longer active (destroyed, or
// retired into the pool by someone else).
func (s *Spawner) prune() {
	kept := s.tracked[:0]
	for _, id := range s.tracked {
		if s.deps.World.Active(id) {
			kept = append(kept, id)
		}
	}
	s.tracked = kept
}

func (s *Spawner) resolveContext(index, count int) ResolveContext {
	ctx := ResolveContext{Owner: s.owner, Index: index, Count: count}
	if pos, ok := s.deps.Scene.Position(s.owner); ok {
		ctx.OwnerPos = pos
	}
	if tr, ok := s.deps.Scene.Transforms.Get(s.owner); ok {
		ctx.OwnerDir = tr.Dir
	}
	return ctx
}

// duplicateNearby reports whether an instance of the companion behavior
// already exists within the configured radius of the owner. An unresolvable
// companion name disables the check for this slot.
func (s *Spawner) duplicateNearby() bool {
	implID, ok := s.deps.Catalog.Resolve(s.cfg.DuplicateBehavior)
	if !ok {
		s.deps.Log.Debug("duplicate-check companion unresolved, check skipped",
			zap.String("companion", s.cfg.DuplicateBehavior))
		return false
	}
	ownerPos, ok := s.deps.Scene.Position(s.owner)
	if !ok {
		return false
	}
	found := false
	s.deps.Scene.EachWithin(ownerPos, s.cfg.DuplicateRadius, func(id ecs.EntityID) {
		if id == s.owner || found {
			return
		}
		if s.deps.Applier.Find(id, implID) != nil {
			found = true
		}
	})
	return found
}

// buildSettings produces the final per-instance settings: cached catalog
// merge, cloned, call-time overlay applied, inherit placeholders filled in
// with the resolver-produced direction.
func (s *Spawner) buildSettings(att Attachment, dir geom.Vec2) map[string]settings.Value {
	final := settings.Clone(s.deps.Settings.Merged(att.Name))
	settings.Overlay(final, att.Overlay)
	if s.cfg.InheritDirection != InheritNone {
		s.fillInherited(final, dir)
	}
	return final
}

// fillInherited replaces every "inherit" placeholder with the resolved
// direction, as a vector or as an angle in degrees per configuration.
func (s *Spawner) fillInherited(m map[string]settings.Value, dir geom.Vec2) {
	for k, v := range m {
		str, ok := v.AsString()
		if !ok || !strings.EqualFold(strings.TrimSpace(str), inheritToken) {
			continue
		}
		switch s.cfg.InheritDirection {
		case InheritVector:
			m[k] = settings.Vector(dir)
		case InheritAngleDeg:
			m[k] = settings.Float(geom.AngleDeg(dir))
		}
	}
}

// guardsReady runs every activation guard the entity's instances declare.
func (s *Spawner) guardsReady(id ecs.EntityID) bool {
	for _, g := range s.deps.Applier.Guards(id) {
		if !g.ReadyToActivate() {
			return false
		}
	}
	return true
}
