// Package diag writes per-generation diagnostic dump records for offline
// inspection. Records are produced, never consumed, by the engine; reads of
// live state (pool statistics) go through a read-only locator so diagnostics
// can never mutate the simulation.
package diag

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mechanica/engine/internal/pool"
)

// BehaviorRecord describes one behavior attached during a generation call.
type BehaviorRecord struct {
	Name             string            `json:"name"`
	ImplementationID string            `json:"implementation_id"`
	Category         string            `json:"category"`
	Settings         map[string]string `json:"settings"`
	IncompatibleWith []string          `json:"incompatible_with,omitempty"`
}

// Record is one generation call's dump.
type Record struct {
	CallID    string           `json:"call_id"`
	Timestamp time.Time        `json:"timestamp"`
	Primary   string           `json:"primary"`
	Behaviors []BehaviorRecord `json:"behaviors"`
	Skipped   []string         `json:"skipped,omitempty"` // blocked modifiers
}

// StatsSource is the read-only pool statistics surface dumps may include.
type StatsSource interface {
	SnapshotAll() []pool.Stats
}

// Dumper writes JSON records under a directory. A nil Dumper is a valid
// no-op, so callers never branch on whether diagnostics are configured.
type Dumper struct {
	dir              string
	deleteOnShutdown bool
	stats            StatsSource
	log              *zap.Logger
}

// New creates the dump directory. stats may be nil.
func New(dir string, deleteOnShutdown bool, stats StatsSource, log *zap.Logger) (*Dumper, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dump dir: %w", err)
	}
	return &Dumper{
		dir:              dir,
		deleteOnShutdown: deleteOnShutdown,
		stats:            stats,
		log:              log,
	}, nil
}

// NewCallID returns a fresh generation-call identifier.
func NewCallID() string {
	return uuid.NewString()
}

// Write persists one record as <call_id>.json. Failures log and return; a
// broken dump never fails the generation call it describes.
func (d *Dumper) Write(rec Record) {
	if d == nil {
		return
	}
	if rec.CallID == "" {
		rec.CallID = NewCallID()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		d.log.Warn("dump record marshal failed", zap.Error(err))
		return
	}
	path := filepath.Join(d.dir, rec.CallID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		d.log.Warn("dump record write failed", zap.String("path", path), zap.Error(err))
	}
}

// WritePoolStats dumps a snapshot of every pool key's counters.
func (d *Dumper) WritePoolStats() {
	if d == nil || d.stats == nil {
		return
	}
	data, err := json.MarshalIndent(d.stats.SnapshotAll(), "", "  ")
	if err != nil {
		d.log.Warn("pool stats marshal failed", zap.Error(err))
		return
	}
	path := filepath.Join(d.dir, "pool_stats.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		d.log.Warn("pool stats write failed", zap.String("path", path), zap.Error(err))
	}
}

// Close removes the dump directory when configured to.
func (d *Dumper) Close() error {
	if d == nil || !d.deleteOnShutdown {
		return nil
	}
	return os.RemoveAll(d.dir)
}
