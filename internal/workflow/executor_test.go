package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNode struct {
	name     string
	valid    bool
	result   NodeResult
	err      error
	executed bool
}

func (n *fakeNode) Name() string { return n.name }
func (n *fakeNode) Validate(state *State) bool { return n.valid }
func (n *fakeNode) Execute(ctx context.Context, state *State) (NodeResult, error) {
	n.executed = true
	return n.result, n.err
}

func TestExecutor_Run_SucceedsThroughAllNodes(t *testing.T) {
	first := &fakeNode{name: "first", valid: true, result: NodeResult{
		Success:  true,
		Message:  "ok",
		Metadata: map[string]interface{}{"topic_title": "moths"},
	}}
	second := &fakeNode{name: "second", valid: true, result: NodeResult{Success: true, Message: "done"}}

	catalog := Catalog{"first": first, "second": second}
	plan := GraphPlan{Nodes: []string{"first", "second"}, Strategy: "sequential"}

	exec := NewExecutor(catalog)
	result, err := exec.Run(context.Background(), plan, "vault summary", []string{"write about moths"}, nil)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, first.executed)
	assert.True(t, second.executed)
	assert.Len(t, result.NodeResults, 2)
}

func TestExecutor_Run_StopsAtValidationFailure(t *testing.T) {
	first := &fakeNode{name: "first", valid: false}
	second := &fakeNode{name: "second", valid: true, result: NodeResult{Success: true}}

	catalog := Catalog{"first": first, "second": second}
	plan := GraphPlan{Nodes: []string{"first", "second"}, Strategy: "sequential"}

	exec := NewExecutor(catalog)
	result, err := exec.Run(context.Background(), plan, "", []string{"p"}, nil)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.False(t, second.executed, "a node after a validation failure must never execute")
}

func TestExecutor_Run_StopsAtNodeError(t *testing.T) {
	first := &fakeNode{name: "first", valid: true, err: errors.New("boom")}
	second := &fakeNode{name: "second", valid: true, result: NodeResult{Success: true}}

	catalog := Catalog{"first": first, "second": second}
	plan := GraphPlan{Nodes: []string{"first", "second"}, Strategy: "sequential"}

	exec := NewExecutor(catalog)
	result, err := exec.Run(context.Background(), plan, "", []string{"p"}, nil)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.False(t, second.executed)
}

func TestExecutor_Run_StopsOnUnsuccessfulResult(t *testing.T) {
	first := &fakeNode{name: "first", valid: true, result: NodeResult{Success: false, Message: "declined"}}
	second := &fakeNode{name: "second", valid: true, result: NodeResult{Success: true}}

	catalog := Catalog{"first": first, "second": second}
	plan := GraphPlan{Nodes: []string{"first", "second"}, Strategy: "sequential"}

	exec := NewExecutor(catalog)
	result, err := exec.Run(context.Background(), plan, "", []string{"p"}, nil)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Summary, "declined")
	assert.False(t, second.executed)
}

func TestExecutor_Run_UnknownNodeErrors(t *testing.T) {
	catalog := Catalog{}
	plan := GraphPlan{Nodes: []string{"missing"}, Strategy: "sequential"}

	exec := NewExecutor(catalog)
	_, err := exec.Run(context.Background(), plan, "", []string{"p"}, nil)

	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestExecutor_Run_MergesMetadataAcrossNodes(t *testing.T) {
	first := &fakeNode{name: "first", valid: true, result: NodeResult{
		Success:  true,
		Metadata: map[string]interface{}{"topic_title": "moths"},
	}}
	var seenTitle interface{}
	second := &secondNodeReadingState{fakeNode: fakeNode{name: "second", valid: true, result: NodeResult{Success: true}}, seen: &seenTitle}

	catalog := Catalog{"first": first, "second": second}
	plan := GraphPlan{Nodes: []string{"first", "second"}, Strategy: "sequential"}

	exec := NewExecutor(catalog)
	result, err := exec.Run(context.Background(), plan, "", []string{"p"}, nil)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "moths", seenTitle)
}

// secondNodeReadingState records what it observes in State's metadata when
// executed, to verify the executor's metadata-merge contract actually
// exposes an earlier node's output to a later node.
type secondNodeReadingState struct {
	fakeNode
	seen *interface{}
}

func (n *secondNodeReadingState) Execute(ctx context.Context, state *State) (NodeResult, error) {
	v, _ := state.Get("topic_title")
	*n.seen = v
	return n.fakeNode.Execute(ctx, state)
}

func TestExecutor_Run_ReportsBranchNameFromSubmitNode(t *testing.T) {
	submit := &fakeNode{name: "submit_draft_branch", valid: true, result: NodeResult{
		Success:  true,
		Metadata: map[string]interface{}{"branch_name": "drafts/20260101-000000"},
	}}
	catalog := Catalog{"submit_draft_branch": submit}
	plan := GraphPlan{Nodes: []string{"submit_draft_branch"}, Strategy: "sequential"}

	exec := NewExecutor(catalog)
	result, err := exec.Run(context.Background(), plan, "", []string{"p"}, nil)

	require.NoError(t, err)
	assert.Equal(t, "drafts/20260101-000000", result.BranchName)
}

func TestExecutor_Run_InvokesProgressCallback(t *testing.T) {
	node := &fakeNode{name: "only", valid: true, result: NodeResult{Success: true}}
	catalog := Catalog{"only": node}
	plan := GraphPlan{Nodes: []string{"only"}, Strategy: "sequential"}

	var calls []int
	progress := func(message string, percent int) { calls = append(calls, percent) }

	exec := NewExecutor(catalog)
	_, err := exec.Run(context.Background(), plan, "", []string{"p"}, progress)

	require.NoError(t, err)
	require.NotEmpty(t, calls)
	assert.Equal(t, 100, calls[len(calls)-1], "the final progress beacon must report completion")
}
