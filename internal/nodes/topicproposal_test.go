package nodes

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/vaultforge/internal/clients/llm"
	"github.com/evalgo/vaultforge/internal/workflow"
)

func TestTopicProposal_Validate_RequiresNonEmptyPrompt(t *testing.T) {
	n := &TopicProposal{LLM: &llm.Mock{}}

	assert.False(t, n.Validate(workflow.NewState("", "sequential", nil)))
	assert.False(t, n.Validate(workflow.NewState("", "sequential", []string{"  "})))
	assert.True(t, n.Validate(workflow.NewState("", "sequential", []string{"write about moths"})))
}

func TestTopicProposal_Execute_ReturnsTopicTitle(t *testing.T) {
	n := &TopicProposal{LLM: &llm.Mock{Response: "Moths of the Pacific Northwest"}}
	state := workflow.NewState("", "sequential", []string{"write about moths"})

	result, err := n.Execute(context.Background(), state)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Moths of the Pacific Northwest", result.Metadata["topic_title"])
}

func TestTopicProposal_Execute_FailIntentionallyHook(t *testing.T) {
	n := &TopicProposal{LLM: &llm.Mock{Response: "should never be used"}}
	state := workflow.NewState("", "sequential", []string{"please fail intentionally for this test"})

	result, err := n.Execute(context.Background(), state)

	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestTopicProposal_Execute_WrapsLLMError(t *testing.T) {
	n := &TopicProposal{LLM: &llm.Mock{Err: errors.New("rate limited")}}
	state := workflow.NewState("", "sequential", []string{"write about moths"})

	_, err := n.Execute(context.Background(), state)

	assert.ErrorIs(t, err, workflow.ErrExternalService)
}

func TestTopicProposal_Execute_RejectsEmptyTitle(t *testing.T) {
	n := &TopicProposal{LLM: &llm.Mock{Response: "   "}}
	state := workflow.NewState("", "sequential", []string{"write about moths"})

	result, err := n.Execute(context.Background(), state)

	require.NoError(t, err)
	assert.False(t, result.Success)
}
