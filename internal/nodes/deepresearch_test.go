package nodes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/vaultforge/internal/clients/research"
	"github.com/evalgo/vaultforge/internal/workflow"
)

func TestDeepResearch_Validate_RequiresTopicTitle(t *testing.T) {
	n := &DeepResearch{Research: &research.Mock{}}

	empty := workflow.NewState("", "sequential", []string{"p"})
	assert.False(t, n.Validate(empty))
}

func TestDeepResearch_Execute_StagesCreateChange(t *testing.T) {
	fixedNow := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	n := &DeepResearch{
		Research: &research.Mock{},
		Now:      func() time.Time { return fixedNow },
	}

	catalog := workflow.Catalog{
		"topic_proposal": &fakeTopicNode{title: "Moths of the Pacific Northwest"},
		"deep_research":  n,
	}
	plan := workflow.GraphPlan{Nodes: []string{"topic_proposal", "deep_research"}, Strategy: "sequential"}
	exec := workflow.NewExecutor(catalog)

	result, err := exec.Run(context.Background(), plan, "", []string{"write about moths"}, nil)

	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, workflow.ChangeCreate, result.Changes[0].Kind)
	assert.Contains(t, result.Changes[0].Path, "proposals/moths-of-the-pacific-northwest-")
}

func TestDeepResearch_Execute_WrapsResearchError(t *testing.T) {
	n := &DeepResearch{Research: &research.Mock{Err: errors.New("service down")}}

	catalog := workflow.Catalog{
		"topic_proposal": &fakeTopicNode{title: "Moths"},
		"deep_research":  n,
	}
	plan := workflow.GraphPlan{Nodes: []string{"topic_proposal", "deep_research"}, Strategy: "sequential"}
	exec := workflow.NewExecutor(catalog)

	result, err := exec.Run(context.Background(), plan, "", []string{"p"}, nil)

	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Moths of the Pacific Northwest": "moths-of-the-pacific-northwest",
		"  leading and trailing  ":       "leading-and-trailing",
		"C++ & Go!!":                     "c-go",
		"":                               "untitled",
	}
	for input, want := range cases {
		assert.Equal(t, want, slugify(input))
	}
}

func TestSlugify_IsIdempotent(t *testing.T) {
	once := slugify("Moths of the Pacific Northwest")
	twice := slugify(once)
	assert.Equal(t, once, twice)
}

type fakeTopicNode struct{ title string }

func (n *fakeTopicNode) Name() string                 { return "topic_proposal" }
func (n *fakeTopicNode) Validate(*workflow.State) bool { return true }
func (n *fakeTopicNode) Execute(ctx context.Context, s *workflow.State) (workflow.NodeResult, error) {
	return workflow.NodeResult{Success: true, Metadata: map[string]interface{}{"topic_title": n.title}}, nil
}
