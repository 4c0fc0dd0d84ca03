// Package nodes implements the article-proposal pipeline's concrete nodes:
// topic proposal, deep research, and draft-branch submission.
package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/evalgo/vaultforge/internal/clients/llm"
	"github.com/evalgo/vaultforge/internal/workflow"
)

// TopicProposal asks the LLM client to turn the primary prompt into an
// article topic title.
type TopicProposal struct {
	LLM llm.Client
}

func (n *TopicProposal) Name() string { return "topic_proposal" }

func (n *TopicProposal) Validate(state *workflow.State) bool {
	return len(state.Prompts) > 0 && strings.TrimSpace(state.Prompts[0]) != ""
}

// failIntentionallyPhrase is the pipeline's test hook: a primary prompt
// containing it (case-insensitively) always fails this node.
const failIntentionallyPhrase = "fail intentionally"

func (n *TopicProposal) Execute(ctx context.Context, state *workflow.State) (workflow.NodeResult, error) {
	primary := state.Prompts[0]

	if strings.Contains(strings.ToLower(primary), failIntentionallyPhrase) {
		return workflow.NodeResult{
			Success: false,
			Message: "topic proposal deliberately failed: prompt requested it",
		}, nil
	}

	title, err := n.LLM.Invoke(ctx, []llm.Message{
		{Role: "user", Content: renderTopicPrompt(state.Prompts)},
	})
	if err != nil {
		return workflow.NodeResult{}, fmt.Errorf("%w: %v", workflow.ErrExternalService, err)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return workflow.NodeResult{Success: false, Message: "llm returned an empty topic title"}, nil
	}

	return workflow.NodeResult{
		Success: true,
		Message: fmt.Sprintf("proposed topic %q", title),
		Metadata: map[string]interface{}{
			"topic_title": title,
		},
	}, nil
}

func renderTopicPrompt(prompts []string) string {
	var b strings.Builder
	b.WriteString("Propose a single, specific article topic title for a knowledge vault, based on this request:\n\n")
	for _, p := range prompts {
		b.WriteString("- ")
		b.WriteString(p)
		b.WriteString("\n")
	}
	b.WriteString("\nRespond with the topic title only, no preamble.")
	return b.String()
}
