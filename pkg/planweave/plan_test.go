package planweave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPlan_Step looks up steps by instance id.
func TestPlan_Step(t *testing.T) {
	plan := mustCompile(linearWorkflow())

	step, ok := plan.Step("b")
	require.True(t, ok)
	assert.Equal(t, "b", step.InstanceID)

	_, ok = plan.Step("nope")
	assert.False(t, ok)
}

// TestPlan_AccessorsCopy returns defensive copies so callers cannot
// mutate the plan.
func TestPlan_AccessorsCopy(t *testing.T) {
	plan := mustCompile(linearWorkflow())

	order := plan.Order()
	order[0] = "tampered"
	assert.Equal(t, Start, plan.Order()[0])

	steps := plan.Steps()
	steps[0].InstanceID = "tampered"
	assert.Equal(t, "a", plan.Steps()[0].InstanceID)
}

// TestPlan_MarshalRoundTrip serializes a plan and restores an
// equivalent one, including guards, merges and scope units.
func TestPlan_MarshalRoundTrip(t *testing.T) {
	plan := mustCompile(scopeWorkflow())

	data, err := plan.Marshal()
	require.NoError(t, err)

	restored, err := UnmarshalPlan(data)
	require.NoError(t, err)

	assert.Equal(t, plan.ID(), restored.ID())
	assert.Equal(t, plan.WorkflowName(), restored.WorkflowName())
	assert.Equal(t, plan.Order(), restored.Order())
	require.Len(t, restored.Steps(), len(plan.Steps()))

	step, ok := restored.Step("map")
	require.True(t, ok)
	require.Len(t, step.Scopes, 1)
	assert.Equal(t, "body", step.Scopes[0].Scope)
	require.Len(t, step.Scopes[0].Steps, 1)
	assert.Equal(t, "body", step.Scopes[0].Steps[0].InstanceID)
}

// TestUnmarshalPlan_Invalid rejects malformed documents.
func TestUnmarshalPlan_Invalid(t *testing.T) {
	_, err := UnmarshalPlan([]byte("{not json"))
	assert.Error(t, err)
}
