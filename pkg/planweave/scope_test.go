package planweave

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScopeRemap maps the owner's scope contract ports onto the
// sub-graph pseudo-instances and passes everything else through.
func TestScopeRemap(t *testing.T) {
	wf := scopeWorkflow()
	owner, _ := wf.Instance("map")
	remap := scopeRemap(owner, "body")

	assert.Equal(t, Endpoint{Instance: Start, Port: "start"},
		remap(Endpoint{Instance: "map", Port: "start"}))
	assert.Equal(t, Endpoint{Instance: Start, Port: "item"},
		remap(Endpoint{Instance: "map", Port: "item"}))
	assert.Equal(t, Endpoint{Instance: Exit, Port: "success"},
		remap(Endpoint{Instance: "map", Port: "success"}))
	assert.Equal(t, Endpoint{Instance: Exit, Port: "result"},
		remap(Endpoint{Instance: "map", Port: "result"}))

	// Non-scope ports of the owner stay put.
	assert.Equal(t, Endpoint{Instance: "map", Port: "items"},
		remap(Endpoint{Instance: "map", Port: "items"}))
	// Other instances stay put.
	assert.Equal(t, Endpoint{Instance: "body", Port: "in"},
		remap(Endpoint{Instance: "body", Port: "in"}))
}

// TestScopeCFG orders a scope's members between the contract
// pseudo-instances.
func TestScopeCFG(t *testing.T) {
	wf := scopeWorkflow()
	owner, _ := wf.Instance("map")

	g := scopeCFG(wf, owner, "body")
	assert.Equal(t, []string{Start, "body", Exit}, g.Nodes())
	assert.True(t, g.HasEdge(Start, "body"))
	assert.True(t, g.HasEdge("body", Exit))
}

// TestExpandScope compiles one scope into a self-contained unit with
// the owner's contract ports split into entry and results.
func TestExpandScope(t *testing.T) {
	wf := scopeWorkflow()
	owner, _ := wf.Instance("map")

	unit, err := expandScope(wf, owner, "body", defaultOptions(), 1)
	require.NoError(t, err)

	assert.Equal(t, "map", unit.Owner)
	assert.Equal(t, "body", unit.Scope)

	entryNames := make([]string, 0, len(unit.Entry))
	for _, p := range unit.Entry {
		entryNames = append(entryNames, p.Name)
	}
	assert.Equal(t, []string{"start", "item"}, entryNames)

	resultNames := make([]string, 0, len(unit.Results))
	for _, p := range unit.Results {
		resultNames = append(resultNames, p.Name)
	}
	assert.Equal(t, []string{"success", "failure", "result"}, resultNames)

	require.Len(t, unit.Steps, 1)
	step := unit.Steps[0]
	assert.Equal(t, "body", step.InstanceID)
	require.Len(t, step.Guard.Inputs, 1)
	assert.Equal(t, Endpoint{Instance: Start, Port: "start"}, step.Guard.Inputs[0].Source,
		"the owner's scope start port becomes the sub-graph Start signal")
}

// TestExpandScope_DepthBound fails with ErrScopeDepth past the
// configured nesting bound.
func TestExpandScope_DepthBound(t *testing.T) {
	wf := scopeWorkflow()
	owner, _ := wf.Instance("map")

	opts := defaultOptions()
	opts.MaxScopeDepth = 2

	_, err := expandScope(wf, owner, "body", opts, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrScopeDepth))

	var scErr *ScopeError
	require.ErrorAs(t, err, &scErr)
	assert.Equal(t, "map", scErr.Owner)
	assert.Equal(t, "body", scErr.Scope)
}

// TestCompile_ScopeUnitOnStep attaches expanded units to the owning
// step of the top-level plan.
func TestCompile_ScopeUnitOnStep(t *testing.T) {
	plan := mustCompile(scopeWorkflow())

	step, ok := plan.Step("map")
	require.True(t, ok)
	require.Len(t, step.Scopes, 1)
	assert.Equal(t, "body", step.Scopes[0].Scope)
	assert.NotContains(t, plan.Order(), "body",
		"scope members never appear in the top-level order")
}
