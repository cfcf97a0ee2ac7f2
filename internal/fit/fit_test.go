package fit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mechanica/engine/internal/catalog"
	"github.com/mechanica/engine/internal/fit"
)

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Descriptor{
		{Name: "Beam", ImplementationID: "projectile_emitter", IncompatibleWith: []string{"Orbit"}},
		{Name: "Orbit", ImplementationID: "orbit_motion"},
		{Name: "LifeSteal", ImplementationID: "life_drain"},
	})
}

func testEvaluator() *fit.Evaluator {
	return fit.NewEvaluator(testCatalog(), zap.NewNop())
}

func TestDeclaredIncompatibility(t *testing.T) {
	e := testEvaluator()

	res := e.Evaluate("Beam", "Orbit", "modifier")
	assert.Equal(t, fit.Caution, res.Severity)
	assert.InDelta(t, 0.2, res.Score, 1e-9)
	assert.NotEmpty(t, res.Reason)
}

func TestCompatiblePair(t *testing.T) {
	e := testEvaluator()

	res := e.Evaluate("Beam", "LifeSteal", "modifier")
	assert.Equal(t, fit.Normal, res.Severity)
	assert.Equal(t, 1.0, res.Score)
	assert.Empty(t, res.Reason)
}

func TestUnknownModifier(t *testing.T) {
	e := testEvaluator()

	res := e.Evaluate("Beam", "Ghost", "modifier")
	assert.Equal(t, fit.Caution, res.Severity)
	assert.InDelta(t, 0.3, res.Score, 1e-9)
}

func TestSelfPairing(t *testing.T) {
	e := testEvaluator()

	res := e.Evaluate("Orbit", "orbit", "modifier")
	assert.Equal(t, fit.Caution, res.Severity)
	assert.InDelta(t, 0.4, res.Score, 1e-9)
}

func TestMissingIdentifierBlocks(t *testing.T) {
	e := testEvaluator()

	res := e.Evaluate("", "Orbit", "modifier")
	assert.Equal(t, fit.Blocked, res.Severity)
	assert.Equal(t, 0.0, res.Score)
}

func TestCautionDiagnosticOncePerPair(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	e := fit.NewEvaluator(testCatalog(), zap.New(core))

	e.Evaluate("Beam", "Orbit", "modifier")
	e.Evaluate("Beam", "Orbit", "modifier")
	e.Evaluate("beam", "ORBIT", "modifier")
	assert.Equal(t, 1, logs.FilterMessage("questionable modifier pairing").Len(),
		"repeat pairings stay quiet, case included")

	e.Evaluate("Beam", "Ghost", "modifier")
	assert.Equal(t, 2, logs.Len(), "a new pair still warns")
}

func TestMinScoreMaxSeverityComposition(t *testing.T) {
	e := testEvaluator()

	// Incompatible with itself declared: Beam vs beam hits the self-pair
	// rule only; Beam vs Orbit also hits the incompatibility rule. The
	// composed score is the minimum over all matched rules.
	res := e.Evaluate("Beam", "Orbit", "modifier")
	assert.LessOrEqual(t, res.Score, 0.2)
}
