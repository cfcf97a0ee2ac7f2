package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseEvents   Phase = iota // 0: swap + dispatch last tick's events
	PhaseSpawn                 // 1: spawner timers and bursts
	PhaseBehavior              // 2: tick scheduled behavior instances
	PhaseMotion                // 3: integrate dynamic bodies, refresh grid
	PhaseCleanup               // 4: destroy queued entities
)

// System is the interface every simulation system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
