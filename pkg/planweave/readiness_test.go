package planweave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signalTable is a fixed signal environment for guard evaluation.
type signalTable map[Endpoint]Signal

func (s signalTable) read(e Endpoint) Signal { return s[e] }

func guardOver(policy JoinPolicy, sources ...Endpoint) Guard {
	g := Guard{Policy: policy}
	for _, src := range sources {
		g.Inputs = append(g.Inputs, GuardInput{Source: src, Input: src.Port})
	}
	return g
}

// TestGuardFor_CollectsControlConnections computes one guard input per
// incoming control connection.
func TestGuardFor_CollectsControlConnections(t *testing.T) {
	wf := branchWorkflow()
	inst, _ := wf.Instance("onOk")

	g := guardFor(wf, inst, func(e Endpoint) Endpoint { return e })
	require.Len(t, g.Inputs, 1)
	assert.Equal(t, Endpoint{Instance: "split", Port: "ok"}, g.Inputs[0].Source)
	assert.Equal(t, "run", g.Inputs[0].Input)
}

// TestGuardFor_ImplicitStart guards nodes without incoming control
// connections on the implicit Start signal.
func TestGuardFor_ImplicitStart(t *testing.T) {
	wf := linearWorkflow()
	inst, _ := wf.Instance("a")

	g := guardFor(wf, inst, func(e Endpoint) Endpoint { return e })
	require.Len(t, g.Inputs, 1)
	assert.Equal(t, Endpoint{Instance: Start, Port: ScopeStartPort}, g.Inputs[0].Source)
}

// TestGuard_EvaluateAll covers the ALL policy: pending until every
// input is written, run only when all fired.
func TestGuard_EvaluateAll(t *testing.T) {
	x := Endpoint{Instance: "u", Port: "x"}
	y := Endpoint{Instance: "v", Port: "y"}
	g := guardOver(JoinAll, x, y)

	testCases := []struct {
		name    string
		signals signalTable
		want    Outcome
	}{
		{"none written", signalTable{}, OutcomePending},
		{"one written", signalTable{x: {Written: true, Fired: true}}, OutcomePending},
		{"all fired", signalTable{
			x: {Written: true, Fired: true},
			y: {Written: true, Fired: true},
		}, OutcomeRun},
		{"one false", signalTable{
			x: {Written: true, Fired: true},
			y: {Written: true},
		}, OutcomeSkip},
		{"all false", signalTable{
			x: {Written: true},
			y: {Written: true},
		}, OutcomeSkip},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, g.Evaluate(tc.signals.read, nil))
		})
	}
}

// TestGuard_EvaluateAny covers the ANY policy: run as soon as one input
// fires, skip only once all are written with none fired.
func TestGuard_EvaluateAny(t *testing.T) {
	x := Endpoint{Instance: "u", Port: "x"}
	y := Endpoint{Instance: "v", Port: "y"}
	g := guardOver(JoinAny, x, y)

	testCases := []struct {
		name    string
		signals signalTable
		want    Outcome
	}{
		{"none written", signalTable{}, OutcomePending},
		{"early fire", signalTable{x: {Written: true, Fired: true}}, OutcomeRun},
		{"one false pending", signalTable{x: {Written: true}}, OutcomePending},
		{"all false", signalTable{
			x: {Written: true},
			y: {Written: true},
		}, OutcomeSkip},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, g.Evaluate(tc.signals.read, nil))
		})
	}
}

// TestGuard_EvaluateCustom defers entirely to the predicate once every
// input has been written; no all/any semantics are imposed.
func TestGuard_EvaluateCustom(t *testing.T) {
	x := Endpoint{Instance: "u", Port: "x"}
	y := Endpoint{Instance: "v", Port: "y"}
	g := guardOver(JoinCustom, x, y)

	signals := signalTable{
		x: {Written: true, Fired: true},
		y: {Written: true},
	}

	t.Run("pending before all written", func(t *testing.T) {
		partial := signalTable{x: {Written: true, Fired: true}}
		got := g.Evaluate(partial.read, func(map[string]bool) bool { return true })
		assert.Equal(t, OutcomePending, got)
	})

	t.Run("predicate sees port values", func(t *testing.T) {
		var seen map[string]bool
		g.Evaluate(signals.read, func(vals map[string]bool) bool {
			seen = vals
			return true
		})
		assert.Equal(t, map[string]bool{"x": true, "y": false}, seen)
	})

	t.Run("predicate decides run", func(t *testing.T) {
		got := g.Evaluate(signals.read, func(vals map[string]bool) bool { return vals["x"] })
		assert.Equal(t, OutcomeRun, got)
	})

	t.Run("predicate decides skip", func(t *testing.T) {
		got := g.Evaluate(signals.read, func(vals map[string]bool) bool { return vals["y"] })
		assert.Equal(t, OutcomeSkip, got)
	})

	t.Run("nil predicate skips", func(t *testing.T) {
		assert.Equal(t, OutcomeSkip, g.Evaluate(signals.read, nil))
	})
}
