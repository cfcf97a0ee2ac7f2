// Package fit decides whether a modifier behavior may legally combine with a
// primary. Scores are heuristic; severity drives the caller's policy:
// Blocked modifiers are skipped, Caution modifiers apply but emit a one-time
// diagnostic per (primary, modifier) pair.
package fit

import (
	"go.uber.org/zap"

	"github.com/mechanica/engine/internal/catalog"
)

// Severity orders how bad a pairing is. Rules only ever raise it.
type Severity int

const (
	Normal Severity = iota
	Caution
	Blocked
)

func (s Severity) String() string {
	switch s {
	case Caution:
		return "caution"
	case Blocked:
		return "blocked"
	}
	return "normal"
}

// Result is the outcome of one compatibility evaluation. Recomputed per
// generation call, never persisted.
type Result struct {
	Primary  string
	Modifier string
	Kind     string
	Score    float64 // 0..1, lower is worse
	Severity Severity
	Reason   string
}

type pairKey struct {
	primary  string
	modifier string
}

// Evaluator scores primary/modifier pairings against the catalog's declared
// incompatibilities plus self-pairing and unknown-modifier heuristics.
type Evaluator struct {
	catalog *catalog.Catalog
	log     *zap.Logger
	warned  map[pairKey]struct{} // once-per-pair Caution diagnostics
}

func NewEvaluator(cat *catalog.Catalog, log *zap.Logger) *Evaluator {
	return &Evaluator{
		catalog: cat,
		log:     log,
		warned:  make(map[pairKey]struct{}, 32),
	}
}

// Evaluate computes the fit of modifier against primary. Rules apply
// independently; the result takes the minimum score and highest severity
// observed.
func (e *Evaluator) Evaluate(primary, modifier, kind string) Result {
	res := Result{
		Primary:  primary,
		Modifier: modifier,
		Kind:     kind,
		Score:    1.0,
		Severity: Normal,
	}

	// Missing identifiers block outright.
	if primary == "" || modifier == "" {
		res.Score = 0
		res.Severity = Blocked
		res.Reason = "missing primary or modifier identifier"
		return res
	}

	if _, ok := e.catalog.IncompatibleWith(primary)[e.catalog.FoldName(modifier)]; ok {
		res.apply(0.2, Caution, "catalog declares the pair incompatible")
	}

	if _, ok := e.catalog.Resolve(modifier); !ok {
		res.apply(0.3, Caution, "modifier not resolvable in catalog")
	}

	if e.catalog.FoldName(primary) == e.catalog.FoldName(modifier) {
		res.apply(0.4, Caution, "modifier duplicates the primary")
	}

	if res.Severity == Caution {
		e.warnOnce(res)
	}
	return res
}

// apply lowers the score and raises the severity, never the reverse.
func (r *Result) apply(score float64, sev Severity, reason string) {
	if score < r.Score {
		r.Score = score
	}
	if sev > r.Severity {
		r.Severity = sev
	}
	if r.Reason == "" {
		r.Reason = reason
	}
}

// warnOnce emits the Caution diagnostic the first time a pair is seen.
// The seen-set lives for the process lifetime.
func (e *Evaluator) warnOnce(res Result) {
	key := pairKey{
		primary:  e.catalog.FoldName(res.Primary),
		modifier: e.catalog.FoldName(res.Modifier),
	}
	if _, dup := e.warned[key]; dup {
		return
	}
	e.warned[key] = struct{}{}
	e.log.Warn("questionable modifier pairing",
		zap.String("primary", res.Primary),
		zap.String("modifier", res.Modifier),
		zap.Float64("score", res.Score),
		zap.String("reason", res.Reason))
}
